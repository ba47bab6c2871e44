package scheduler_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/analyzer"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/simulator"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/utils"
)

func optimizerParameters(seed int64) *scheduler.Parameters {
	p := scheduler.DefaultOptimizerParameters()
	p.PopulationSize = 12
	p.MaxGenerations = 60
	p.Seed = seed
	p.Workers = 4
	return p
}

func newOptimizer(t *testing.T, seed int64, trains []*domain.Train) *scheduler.Optimizer {
	s := newSession(t)
	assert.Nil(t, s.AssignRoutes(trains))

	o, err := scheduler.NewOptimizer(simulator.New(s), analyzer.New(s), optimizerParameters(seed), scheduler.OptimizerOptions{
		WindowStart:       480,
		WindowEnd:         720,
		TargetUtilization: 0.5,
	}, trains)
	assert.Nil(t, err)
	return o
}

func TestNewOptimizerValidation(t *testing.T) {
	s := newSession(t)
	sim, an := simulator.New(s), analyzer.New(s)

	_, err := scheduler.NewOptimizer(sim, an, optimizerParameters(1), scheduler.OptimizerOptions{
		WindowStart:       720,
		WindowEnd:         480,
		TargetUtilization: 0.5,
	}, nil)
	assert.ErrorIs(t, err, scheduler.ErrInvalidTimeWindow)

	for _, target := range []float64{0, -0.2, 1.5} {
		_, err = scheduler.NewOptimizer(sim, an, optimizerParameters(1), scheduler.OptimizerOptions{
			WindowStart:       480,
			WindowEnd:         720,
			TargetUtilization: target,
		}, nil)
		assert.ErrorIs(t, err, scheduler.ErrInvalidTarget)
	}
}

func TestOptimizeEmpty(t *testing.T) {
	result, err := newOptimizer(t, 1, []*domain.Train{}).Optimize(context.Background())
	assert.Nil(t, err)
	assert.Empty(t, result.Schedule)
	assert.True(t, result.Converged)
	assert.Equal(t, 0, result.Metrics.TotalConflicts)
}

func TestOptimize(t *testing.T) {
	// 在 4 个车站之间随机生成 8 列车
	trains := utils.GenerateRandomTrains(newSession(t).Stations(), 8, 60, rand.New(rand.NewSource(1)))
	original := domain.CloneTrains(trains)

	result, err := newOptimizer(t, 99, trains).Optimize(context.Background())
	assert.Nil(t, err)
	assert.Len(t, result.Schedule, len(trains))

	// 发车时刻都在时间窗口内，其余字段保持不变
	for i, train := range result.Schedule {
		assert.GreaterOrEqual(t, train.ScheduledDeparture, domain.Minutes(480))
		assert.LessOrEqual(t, train.ScheduledDeparture, domain.Minutes(720))
		assert.Equal(t, trains[i].ID, train.ID)
		assert.Equal(t, trains[i].PlannedRoute, train.PlannedRoute)
	}
	for i := range trains {
		assert.Equal(t, original[i].ScheduledDeparture, trains[i].ScheduledDeparture)
	}

	m := result.Metrics
	assert.GreaterOrEqual(t, m.AverageCapacityUtilization, 0.0)
	assert.LessOrEqual(t, m.AverageCapacityUtilization, 1.0)
	assert.GreaterOrEqual(t, m.TemporalDistributionScore, 0.0)
	assert.LessOrEqual(t, m.TemporalDistributionScore, 1.0)
	assert.GreaterOrEqual(t, m.TotalConflicts, 0)

	// 适应度上限为三项权重之和
	assert.LessOrEqual(t, m.Fitness, scheduler.UtilizationWeight+scheduler.ConflictWeight+scheduler.DistributionWeight)

	assert.Len(t, result.FitnessHistory, result.Iterations)
	for i := 1; i < len(result.FitnessHistory); i++ {
		assert.GreaterOrEqual(t, result.FitnessHistory[i], result.FitnessHistory[i-1])
	}
	assert.Equal(t, m.Fitness, result.FitnessHistory[len(result.FitnessHistory)-1])
}

func TestOptimizeDeterministic(t *testing.T) {
	stations := newSession(t).Stations()

	first, err := newOptimizer(t, 5, utils.GenerateRandomTrains(stations, 6, 60, rand.New(rand.NewSource(2)))).Optimize(context.Background())
	assert.Nil(t, err)
	second, err := newOptimizer(t, 5, utils.GenerateRandomTrains(stations, 6, 60, rand.New(rand.NewSource(2)))).Optimize(context.Background())
	assert.Nil(t, err)

	assert.Equal(t, first.Metrics, second.Metrics)
	assert.Equal(t, first.FitnessHistory, second.FitnessHistory)
	for i := range first.Schedule {
		assert.Equal(t, first.Schedule[i].ScheduledDeparture, second.Schedule[i].ScheduledDeparture)
	}
}

func TestOptimizeConverges(t *testing.T) {
	s := newSession(t)
	trains := utils.GenerateRandomTrains(s.Stations(), 5, 60, rand.New(rand.NewSource(3)))
	assert.Nil(t, s.AssignRoutes(trains))

	p := optimizerParameters(8)
	p.MaxGenerations = 1000
	o, err := scheduler.NewOptimizer(simulator.New(s), analyzer.New(s), p, scheduler.OptimizerOptions{
		WindowStart:       360,
		WindowEnd:         600,
		TargetUtilization: 0.3,
		Patience:          3,
	}, trains)
	assert.Nil(t, err)

	result, err := o.Optimize(context.Background())
	assert.Nil(t, err)
	assert.True(t, result.Converged)
	assert.Less(t, result.Iterations, 1000)
}

func TestOptimizeCancelled(t *testing.T) {
	trains := utils.GenerateRandomTrains(newSession(t).Stations(), 6, 60, rand.New(rand.NewSource(4)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// 已取消时只评估均匀铺开的初始个体
	result, err := newOptimizer(t, 6, trains).Optimize(ctx)
	assert.Nil(t, err)
	assert.Equal(t, 1, result.Iterations)
	assert.Len(t, result.FitnessHistory, 1)
	assert.Len(t, result.Schedule, len(trains))
}
