package scheduler

import (
	"math"
	"time"
)

// Gene: 某列车的延误决策
type Gene struct {
	trainID        int64
	departureDelay float64   // 发车延误（分钟）
	dwellDelays    []float64 // 每个中间站额外的停站时间，与路线下标对齐
}

func (g *Gene) totalDelay() float64 {
	total := g.departureDelay
	for _, d := range g.dwellDelays {
		total += d
	}
	return total
}

// significant 延误过小的基因视为不调整，评估和输出都忽略它
func (g *Gene) significant() bool {
	return g.totalDelay() > SignificantDelay
}

func (g *Gene) clone() *Gene {
	return &Gene{
		trainID:        g.trainID,
		departureDelay: g.departureDelay,
		dwellDelays:    append([]float64(nil), g.dwellDelays...),
	}
}

// Chromosome: 所有冲突列车的延误方案，基因按列车 ID 升序排列
type Chromosome struct {
	genes      []*Gene
	fitness    float64
	conflicts  int
	totalDelay float64
}

func (c *Chromosome) score() float64 { return c.fitness }

// 未完成评估的个体不参与选择
func (c *Chromosome) discard() { c.fitness = -math.MaxFloat64 }

// 深拷贝，防止后续繁殖的过程中修改到精英的基因
func (c *Chromosome) clone() *Chromosome {
	genes := make([]*Gene, len(c.genes))
	for i, g := range c.genes {
		genes[i] = g.clone()
	}
	return &Chromosome{
		genes:      genes,
		fitness:    c.fitness,
		conflicts:  c.conflicts,
		totalDelay: c.totalDelay,
	}
}

// ScheduleChromosome: 每列车的发车时刻，与输入列车一一对应
type ScheduleChromosome struct {
	departures   []float64
	fitness      float64
	conflicts    int
	utilization  float64
	distribution float64
}

func (c *ScheduleChromosome) score() float64 { return c.fitness }

func (c *ScheduleChromosome) discard() { c.fitness = -math.MaxFloat64 }

func (c *ScheduleChromosome) clone() *ScheduleChromosome {
	cp := *c
	cp.departures = append([]float64(nil), c.departures...)
	return &cp
}

// 遗传算法参数
type Parameters struct {
	PopulationSize int           // 种群大小
	MaxGenerations int           // 最大迭代次数
	MutationRate   float64       // 变异概率
	EliteRatio     float64       // 精英比例
	TournamentSize int           // 锦标赛规模
	Workers        int           // 并行计算适应度的协程数，0 表示 GOMAXPROCS
	Seed           int64         // 随机种子，0 表示使用当前时间
	TimeBudget     time.Duration // 墙钟时间预算，0 表示不限
}

func DefaultResolverParameters() *Parameters {
	return &Parameters{
		PopulationSize: 30,
		MaxGenerations: 100,
		MutationRate:   0.4,
		EliteRatio:     0.2,
		TournamentSize: 3,
	}
}

func DefaultOptimizerParameters() *Parameters {
	return &Parameters{
		PopulationSize: 50,
		MaxGenerations: 1000,
		MutationRate:   0.1,
		EliteRatio:     0.1,
		TournamentSize: 3,
	}
}
