package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/samber/lo"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/analyzer"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/simulator"
)

const (
	UtilizationWeight  = 0.4
	ConflictWeight     = 0.4
	DistributionWeight = 0.2
	DistributionBins   = 10
	DefaultPatience    = 50
)

var (
	ErrInvalidTimeWindow = errors.New("时间窗口结束时刻必须晚于开始时刻")
	ErrInvalidTarget     = errors.New("目标利用率必须在 (0, 1] 之间")
)

type OptimizerOptions struct {
	WindowStart       domain.Minutes
	WindowEnd         domain.Minutes
	TargetUtilization float64
	StepMinutes       float64 // 冲突检测的采样步长，默认 5 分钟
	Patience          int     // 连续多少代没有改进即认为收敛
}

// Optimizer 用遗传算法为一组列车安排发车时刻
type Optimizer struct {
	parameters *Parameters
	options    OptimizerOptions
	simulator  *simulator.Simulator
	rng        *rand.Rand
	trains     []*domain.Train

	baseUtilization float64 // 分析器给出的全网平均利用率，与发车时刻无关，只计算一次
}

func NewOptimizer(sim *simulator.Simulator, an *analyzer.Analyzer, parameters *Parameters, options OptimizerOptions, trains []*domain.Train) (*Optimizer, error) {
	if options.WindowEnd <= options.WindowStart {
		return nil, fmt.Errorf("%w: [%s, %s]", ErrInvalidTimeWindow, options.WindowStart.Clock(), options.WindowEnd.Clock())
	}
	if options.TargetUtilization <= 0 || options.TargetUtilization > 1 || math.IsNaN(options.TargetUtilization) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, options.TargetUtilization)
	}
	if options.StepMinutes <= 0 {
		options.StepMinutes = 5
	}
	if options.Patience <= 0 {
		options.Patience = DefaultPatience
	}

	windowHours := float64(options.WindowEnd-options.WindowStart) / 60
	metrics, err := an.AnalyzeCapacity(trains, windowHours)
	if err != nil {
		return nil, err
	}

	return &Optimizer{
		parameters:      parameters,
		options:         options,
		simulator:       sim,
		rng:             newRand(parameters.Seed),
		trains:          trains,
		baseUtilization: analyzer.NetworkUtilization(metrics).AverageUtilization,
	}, nil
}

func (o *Optimizer) Optimize(ctx context.Context) (*domain.ScheduleResult, error) {
	if len(o.trains) == 0 {
		return &domain.ScheduleResult{
			Schedule:       []*domain.Train{},
			Metrics:        domain.ScheduleMetrics{TemporalDistributionScore: 1},
			Converged:      true,
			FitnessHistory: []float64{},
		}, nil
	}

	var deadline time.Time
	if o.parameters.TimeBudget > 0 {
		deadline = time.Now().Add(o.parameters.TimeBudget)
	}

	slog.Info("开始生成运行图", "trains", len(o.trains), "window", o.options.WindowStart.Clock()+"-"+o.options.WindowEnd.Clock(), "target", o.options.TargetUtilization)

	// 第一个个体为均匀铺开的发车时刻，其余随机
	popSize := max(o.parameters.PopulationSize, 2)
	pop := make([]*ScheduleChromosome, popSize)
	pop[0] = o.evenChromosome()
	for i := 1; i < popSize; i++ {
		pop[i] = o.randomInitChromosome()
	}
	if err := o.calcFitness(pop[0]); err != nil {
		return nil, err
	}
	cancelled := false
	if err := evaluatePopulation(ctx, pop[1:], o.parameters.Workers, o.calcFitness); err != nil {
		if !interrupted(err) {
			return nil, err
		}
		cancelled = true
	}

	bestChromosomeEver := &ScheduleChromosome{fitness: -math.MaxFloat64}
	history := make([]float64, 0)
	stagnant := 0
	updateBest := func() {
		improved := false
		for _, ch := range pop {
			if ch.fitness > bestChromosomeEver.fitness {
				bestChromosomeEver = ch.clone()
				improved = true
			}
		}
		if improved {
			stagnant = 0
		} else {
			stagnant++
		}
		history = append(history, bestChromosomeEver.fitness)
	}
	updateBest()

	iterations := 1
	converged := false
	numElites := min(eliteCount(popSize, o.parameters.EliteRatio), popSize-1)
	numParents := max(2, popSize/2)

	for gen := 1; gen < o.parameters.MaxGenerations; gen++ {
		if stagnant >= o.options.Patience {
			converged = true
			break
		}
		if cancelled || budgetExceeded(ctx, deadline) {
			break
		}

		parents := make([]*ScheduleChromosome, numParents)
		for i := range parents {
			parents[i] = selectByTournament(pop, o.parameters.TournamentSize, o.rng)
		}

		// 保留精英
		sortByFitness(pop)
		newPop := make([]*ScheduleChromosome, 0, popSize)
		newPop = append(newPop, pop[:numElites]...)

		offspring := make([]*ScheduleChromosome, 0, popSize-numElites)
		for len(offspring) < popSize-numElites {
			p1, p2 := pickTwo(parents, o.rng)
			child := o.crossover(p1, p2)
			o.mutate(child)
			offspring = append(offspring, child)
		}
		if err := evaluatePopulation(ctx, offspring, o.parameters.Workers, o.calcFitness); err != nil {
			if !interrupted(err) {
				return nil, err
			}
			break
		}

		pop = append(newPop, offspring...)
		updateBest()
		iterations++
	}
	if !converged && stagnant >= o.options.Patience {
		converged = true
	}

	slog.Info("运行图生成完成", "iterations", iterations, "converged", converged, "fitness", bestChromosomeEver.fitness, "conflicts", bestChromosomeEver.conflicts)

	return &domain.ScheduleResult{
		Schedule: o.apply(bestChromosomeEver),
		Metrics: domain.ScheduleMetrics{
			AverageCapacityUtilization: bestChromosomeEver.utilization,
			TotalConflicts:             bestChromosomeEver.conflicts,
			TemporalDistributionScore:  bestChromosomeEver.distribution,
			Fitness:                    bestChromosomeEver.fitness,
		},
		Iterations:     iterations,
		Converged:      converged,
		FitnessHistory: history,
	}, nil
}

func (o *Optimizer) evenChromosome() *ScheduleChromosome {
	start, end := float64(o.options.WindowStart), float64(o.options.WindowEnd)
	gap := (end - start) / float64(len(o.trains))

	departures := make([]float64, len(o.trains))
	for i := range departures {
		departures[i] = start + gap*float64(i)
	}
	return &ScheduleChromosome{departures: departures}
}

func (o *Optimizer) randomInitChromosome() *ScheduleChromosome {
	departures := make([]float64, len(o.trains))
	for i := range departures {
		departures[i] = o.randomDeparture()
	}
	return &ScheduleChromosome{departures: departures}
}

func (o *Optimizer) randomDeparture() float64 {
	return uniform(o.rng, float64(o.options.WindowStart), float64(o.options.WindowEnd))
}

func (o *Optimizer) apply(ch *ScheduleChromosome) []*domain.Train {
	scheduled := domain.CloneTrains(o.trains)
	for i, train := range scheduled {
		train.ScheduledDeparture = domain.Minutes(ch.departures[i])
	}
	return scheduled
}

/**
 * 计算运行图的适应度
 * fitness = UtilizationWeight * (1 - |utilization - target|) + ConflictWeight / (1 + conflicts) + DistributionWeight * distribution
 * 其中:
 * 		1. utilization 为全网平均利用率乘以高峰小时系数（最大小时发车数 / 平均小时发车数），截断到 [0, 1]
 * 		2. conflicts 为从时间窗口开始推演到结束检测到的冲突数
 * 		3. distribution 为发车时刻在时间窗口内的均匀程度
 */
func (o *Optimizer) calcFitness(ch *ScheduleChromosome) error {
	duration := float64(o.options.WindowEnd - o.options.WindowStart)
	conflicts, err := o.simulator.DetectFrom(o.apply(ch), o.options.WindowStart, duration, o.options.StepMinutes)
	if err != nil {
		return err
	}

	ch.conflicts = len(conflicts)
	ch.utilization = lo.Clamp(o.baseUtilization*o.peakHourFactor(ch.departures), 0, 1)
	ch.distribution = o.distributionScore(ch.departures)
	ch.fitness = UtilizationWeight*(1-math.Abs(ch.utilization-o.options.TargetUtilization)) +
		ConflictWeight/(1+float64(ch.conflicts)) +
		DistributionWeight*ch.distribution
	return nil
}

// bucketize 把发车时刻均分到 n 个桶中，落在窗口外的发车时刻归入首尾桶
func (o *Optimizer) bucketize(departures []float64, n int) []int {
	start := float64(o.options.WindowStart)
	width := float64(o.options.WindowEnd-o.options.WindowStart) / float64(n)

	counts := make([]int, n)
	for _, d := range departures {
		idx := lo.Clamp(int((d-start)/width), 0, n-1)
		counts[idx]++
	}
	return counts
}

// peakHourFactor = 最大小时发车数 / 平均小时发车数
func (o *Optimizer) peakHourFactor(departures []float64) float64 {
	hours := max(1, int(math.Ceil(float64(o.options.WindowEnd-o.options.WindowStart)/60)))
	counts := o.bucketize(departures, hours)

	mean := float64(len(departures)) / float64(hours)
	if mean == 0 {
		return 0
	}
	return float64(lo.Max(counts)) / mean
}

// distributionScore = 1 - 方差 / 均值^2，截断到 [0, 1]，发车越均匀越接近 1
func (o *Optimizer) distributionScore(departures []float64) float64 {
	counts := o.bucketize(departures, DistributionBins)

	mean := float64(len(departures)) / DistributionBins
	if mean == 0 {
		return 1
	}
	variance := 0.0
	for _, c := range counts {
		variance += (float64(c) - mean) * (float64(c) - mean)
	}
	variance /= DistributionBins

	return lo.Clamp(1-variance/(mean*mean), 0, 1)
}

// 均匀交叉：每列车的发车时刻随机来自其中一个父本
func (o *Optimizer) crossover(p1, p2 *ScheduleChromosome) *ScheduleChromosome {
	departures := make([]float64, len(p1.departures))
	for i := range departures {
		if o.rng.Float64() < 0.5 {
			departures[i] = p1.departures[i]
		} else {
			departures[i] = p2.departures[i]
		}
	}
	return &ScheduleChromosome{departures: departures}
}

// 变异：随机重新安排 1 到 3 列车的发车时刻
func (o *Optimizer) mutate(ch *ScheduleChromosome) {
	if o.rng.Float64() >= o.parameters.MutationRate {
		return
	}

	n := min(1+o.rng.Intn(3), len(ch.departures))
	for _, i := range o.rng.Perm(len(ch.departures))[:n] {
		ch.departures[i] = o.randomDeparture()
	}
}
