package scheduler

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/simulator"
)

const (
	ConflictPenalty      = 1000.0 // 每个冲突的惩罚
	TotalDelayWeight     = 0.1
	MaxDelayWeight       = 0.5
	PriorityWeight       = 0.01 // 只用于打破平局
	SignificantDelay     = 0.5  // 低于该值的延误不输出
	InitialMaxDeparture  = 60.0
	InitialMaxDwell      = 15.0
	MutationMaxDeparture = 90.0
)

type ResolverOptions struct {
	HorizonMinutes     float64
	StepMinutes        float64
	PriorityConvention domain.PriorityConvention
}

// Resolver 用遗传算法为冲突列车分配发车延误和停站延误
type Resolver struct {
	parameters *Parameters
	options    ResolverOptions
	simulator  *simulator.Simulator
	rng        *rand.Rand
	trains     []*domain.Train
	trainIndex map[int64]int     // {trainID: trains 中的下标}
	urgency    map[int64]float64 // {trainID: 紧急程度}
}

func NewResolver(sim *simulator.Simulator, parameters *Parameters, options ResolverOptions, trains []*domain.Train) *Resolver {
	if options.HorizonMinutes <= 0 {
		options.HorizonMinutes = 120
	}
	if options.StepMinutes <= 0 {
		options.StepMinutes = 1
	}
	if options.PriorityConvention == "" {
		options.PriorityConvention = domain.PriorityHigherFirst
	}

	r := &Resolver{
		parameters: parameters,
		options:    options,
		simulator:  sim,
		rng:        newRand(parameters.Seed),
		trains:     trains,
		trainIndex: make(map[int64]int, len(trains)),
		urgency:    make(map[int64]float64, len(trains)),
	}
	for i, train := range trains {
		r.trainIndex[train.ID] = i
		r.urgency[train.ID] = options.PriorityConvention.Urgency(train.Priority)
	}

	return r
}

func (r *Resolver) Resolve(ctx context.Context) (*domain.ResolutionResult, error) {
	var deadline time.Time
	if r.parameters.TimeBudget > 0 {
		deadline = time.Now().Add(r.parameters.TimeBudget)
	}

	initial, err := r.simulator.DetectFutureConflicts(r.trains, r.options.HorizonMinutes, r.options.StepMinutes)
	if err != nil {
		return nil, err
	}

	// 没有冲突时不需要搜索
	if len(initial) == 0 {
		slog.Info("未检测到冲突", "trains", len(r.trains))
		return &domain.ResolutionResult{
			Resolutions:    []domain.Resolution{},
			FitnessHistory: []float64{},
		}, nil
	}

	conflictTrainIDs := make([]int64, 0)
	for _, c := range initial {
		conflictTrainIDs = append(conflictTrainIDs, c.Train1ID, c.Train2ID)
	}
	conflictTrainIDs = lo.Uniq(conflictTrainIDs)
	slices.Sort(conflictTrainIDs)

	slog.Info("开始消解冲突", "conflicts", len(initial), "trains", len(conflictTrainIDs), "population", r.parameters.PopulationSize, "generations", r.parameters.MaxGenerations)

	// 生成初始种群，第一个个体为零延误方案
	popSize := max(r.parameters.PopulationSize, 2)
	pop := make([]*Chromosome, popSize)
	pop[0] = r.zeroChromosome(conflictTrainIDs)
	for i := 1; i < popSize; i++ {
		pop[i] = r.randomInitChromosome(conflictTrainIDs)
	}
	if err := r.calcFitness(pop[0]); err != nil {
		return nil, err
	}
	budgetExhausted := false
	if err := evaluatePopulation(ctx, pop[1:], r.parameters.Workers, r.calcFitness); err != nil {
		if !interrupted(err) {
			return nil, err
		}
		budgetExhausted = true
	}

	bestChromosomeEver := &Chromosome{fitness: -math.MaxFloat64}
	history := make([]float64, 0, r.parameters.MaxGenerations+1)
	updateBest := func() {
		for _, ch := range pop {
			if ch.fitness > bestChromosomeEver.fitness {
				bestChromosomeEver = ch.clone()
			}
		}
		history = append(history, bestChromosomeEver.fitness)
	}
	updateBest()

	iterations := 1
	numParents := max(2, popSize/2)
	numElites := min(eliteCount(popSize, r.parameters.EliteRatio), popSize-1)

	for gen := 1; gen < r.parameters.MaxGenerations; gen++ {
		// 找到零冲突方案立即停止
		if bestChromosomeEver.conflicts == 0 {
			break
		}
		if budgetExhausted || budgetExceeded(ctx, deadline) {
			budgetExhausted = true
			break
		}

		// 选择父本
		parents := make([]*Chromosome, numParents)
		for i := range parents {
			parents[i] = selectByTournament(pop, r.parameters.TournamentSize, r.rng).clone()
		}

		// 保留精英
		sortByFitness(pop)
		newPop := make([]*Chromosome, 0, popSize)
		newPop = append(newPop, pop[:numElites]...)

		// 交叉和变异产生后代
		offspring := make([]*Chromosome, 0, popSize-numElites)
		for len(offspring) < popSize-numElites {
			p1, p2 := pickTwo(parents, r.rng)
			child := r.crossover(p1, p2)
			r.mutate(child)
			offspring = append(offspring, child)
		}
		if err := evaluatePopulation(ctx, offspring, r.parameters.Workers, r.calcFitness); err != nil {
			if !interrupted(err) {
				return nil, err
			}
			budgetExhausted = true
			break
		}

		pop = append(newPop, offspring...)
		updateBest()
		iterations++
	}

	if bestChromosomeEver.conflicts > 0 {
		budgetExhausted = true
		slog.Warn("未能消除全部冲突，返回当前最优方案", "remaining", bestChromosomeEver.conflicts, "initial", len(initial), "iterations", iterations)
	} else {
		slog.Info("冲突已全部消解", "iterations", iterations, "totalDelay", bestChromosomeEver.totalDelay)
	}

	return r.formatResult(bestChromosomeEver, len(initial), iterations, history, budgetExhausted), nil
}

func (r *Resolver) zeroChromosome(trainIDs []int64) *Chromosome {
	genes := make([]*Gene, len(trainIDs))
	for i, id := range trainIDs {
		genes[i] = &Gene{
			trainID:     id,
			dwellDelays: make([]float64, r.trains[r.trainIndex[id]].StopCount()),
		}
	}
	return &Chromosome{genes: genes}
}

// randomInitChromosome 随机初始化一个染色体
func (r *Resolver) randomInitChromosome(trainIDs []int64) *Chromosome {
	genes := make([]*Gene, len(trainIDs))
	for i, id := range trainIDs {
		dwell := make([]float64, r.trains[r.trainIndex[id]].StopCount())
		for j := range dwell {
			dwell[j] = uniform(r.rng, 0, InitialMaxDwell)
		}
		genes[i] = &Gene{
			trainID:        id,
			departureDelay: uniform(r.rng, 0, InitialMaxDeparture),
			dwellDelays:    dwell,
		}
	}
	return &Chromosome{genes: genes}
}

// apply 返回应用了染色体延误的列车副本，未被调整的列车直接共用
// 延误过小的基因不会输出为消解方案，因此这里同样不应用
func (r *Resolver) apply(ch *Chromosome) []*domain.Train {
	adjusted := make([]*domain.Train, len(r.trains))
	copy(adjusted, r.trains)

	for _, gene := range ch.genes {
		if !gene.significant() {
			continue
		}
		idx := r.trainIndex[gene.trainID]
		train := r.trains[idx].Clone()
		train.ScheduledDeparture += domain.Minutes(gene.departureDelay)
		train.DelayMinutes += gene.totalDelay()

		if len(gene.dwellDelays) > 0 {
			dwell := make([]float64, max(len(train.DwellDelays), len(gene.dwellDelays)))
			copy(dwell, train.DwellDelays)
			for i, d := range gene.dwellDelays {
				dwell[i] += d
			}
			train.DwellDelays = dwell
		}
		adjusted[idx] = train
	}

	return adjusted
}

/**
 * 计算染色体的适应度
 * fitness = -(conflicts * ConflictPenalty + totalDelay * TotalDelayWeight + maxDelay * MaxDelayWeight + urgentDelay * PriorityWeight)
 * 其中:
 * 		1. conflicts 为应用延误后重新推演得到的冲突数，惩罚远大于延误项，保证总是优先减少冲突
 * 			推演以调整后列车的最早发车时刻为基准，与对外的冲突检测一致
 * 			采样冲突数与连续占用重叠段数取较大者，避免重叠恰好落在两个采样点之间
 * 		2. totalDelay 为所有列车的延误之和，maxDelay 为单列车的最大延误
 * 		3. urgentDelay 为按优先级加权的延误，只在其它项相同时起作用
 */
func (r *Resolver) calcFitness(ch *Chromosome) error {
	adjusted := r.apply(ch)
	conflicts, err := r.simulator.DetectFutureConflicts(adjusted, r.options.HorizonMinutes, r.options.StepMinutes)
	if err != nil {
		return err
	}
	overlaps, err := r.simulator.OverlapPeriods(adjusted, simulator.ReferenceTime(adjusted), r.options.HorizonMinutes)
	if err != nil {
		return err
	}

	totalDelay, maxDelay, urgentDelay := 0.0, 0.0, 0.0
	for _, gene := range ch.genes {
		if !gene.significant() {
			continue
		}
		d := gene.totalDelay()
		totalDelay += d
		maxDelay = max(maxDelay, d)
		urgentDelay += d * r.urgency[gene.trainID]
	}

	ch.conflicts = max(len(conflicts), overlaps)
	ch.totalDelay = totalDelay
	ch.fitness = -(float64(ch.conflicts)*ConflictPenalty + totalDelay*TotalDelayWeight + maxDelay*MaxDelayWeight + urgentDelay*PriorityWeight)
	return nil
}

// 按列车交叉：每列车的整个基因随机来自其中一个父本
func (r *Resolver) crossover(p1, p2 *Chromosome) *Chromosome {
	child := &Chromosome{genes: make([]*Gene, len(p1.genes))}
	for i := range p1.genes {
		if r.rng.Float64() < 0.5 {
			child.genes[i] = p1.genes[i].clone()
		} else {
			child.genes[i] = p2.genes[i].clone()
		}
	}
	return child
}

// 变异
// 随机选择一列车，小幅扰动发车延误或某个停站延误，或以较小概率重新随机发车延误
func (r *Resolver) mutate(ch *Chromosome) {
	if len(ch.genes) == 0 || r.rng.Float64() >= r.parameters.MutationRate {
		return
	}

	gene := ch.genes[r.rng.Intn(len(ch.genes))]
	p := r.rng.Float64()
	switch {
	case p < 0.35 || (p < 0.7 && len(gene.dwellDelays) == 0):
		gene.departureDelay = max(0, gene.departureDelay+uniform(r.rng, -15, 15))
	case p < 0.7:
		i := r.rng.Intn(len(gene.dwellDelays))
		gene.dwellDelays[i] = max(0, gene.dwellDelays[i]+uniform(r.rng, -5, 5))
	default:
		gene.departureDelay = uniform(r.rng, 0, MutationMaxDeparture)
	}
}

func (r *Resolver) formatResult(best *Chromosome, initialConflicts, iterations int, history []float64, budgetExhausted bool) *domain.ResolutionResult {
	// 置信度由最优个体剩余的冲突数决定，零冲突时为 1
	confidence := 1.0 / (1.0 + float64(best.conflicts))

	resolutions := make([]domain.Resolution, 0, len(best.genes))
	for _, gene := range best.genes {
		if !gene.significant() {
			continue
		}
		resolutions = append(resolutions, domain.Resolution{
			TrainID:                    gene.trainID,
			DepartureAdjustmentMinutes: gene.departureDelay,
			DwellAdjustmentsMinutes:    append([]float64{}, gene.dwellDelays...),
			TrackAssignment:            nil,
			Confidence:                 confidence,
		})
	}

	return &domain.ResolutionResult{
		Resolutions:        resolutions,
		TotalDelay:         best.totalDelay,
		InitialConflicts:   initialConflicts,
		RemainingConflicts: best.conflicts,
		ConflictsResolved:  max(0, initialConflicts-best.conflicts),
		IterationsUsed:     iterations,
		BestFitness:        best.fitness,
		FitnessHistory:     history,
		BudgetExhausted:    budgetExhausted,
	}
}
