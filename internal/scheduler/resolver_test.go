package scheduler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/network"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/simulator"
)

func newSession(t *testing.T) *network.Session {
	stations := []domain.Station{
		{ID: 1, Name: "甲站", NumPlatforms: 2},
		{ID: 2, Name: "乙站", NumPlatforms: 2},
		{ID: 3, Name: "丙站", NumPlatforms: 2},
		{ID: 4, Name: "丁站", NumPlatforms: 2},
	}
	tracks := []domain.Track{
		{ID: 1, LengthKm: 30, MaxSpeedKmh: 120, Capacity: 1, IsSingleTrack: true, StationIDs: [2]int64{1, 2}},
		{ID: 2, LengthKm: 40, MaxSpeedKmh: 160, Capacity: 2, StationIDs: [2]int64{2, 3}},
		{ID: 3, LengthKm: 20, MaxSpeedKmh: 120, Capacity: 1, IsSingleTrack: true, StationIDs: [2]int64{3, 4}},
	}

	s, err := network.NewSession(stations, tracks, 0)
	assert.Nil(t, err)
	return s
}

// sameTrackTrains 返回 n 列同时从单线轨道 1 起点出发的列车，每列需 15 分钟通过
func sameTrackTrains(n int) []*domain.Train {
	trains := make([]*domain.Train, n)
	for i := range trains {
		trains[i] = &domain.Train{
			ID:                 int64(i + 1),
			CurrentTrack:       1,
			VelocityKmh:        120,
			ScheduledDeparture: 480,
			Priority:           int32(i + 1),
		}
	}
	return trains
}

// 检测范围足够长，消解后所有列车都在范围内运行完毕
var longHorizon = scheduler.ResolverOptions{HorizonMinutes: 300}

func resolverParameters(seed int64) *scheduler.Parameters {
	p := scheduler.DefaultResolverParameters()
	p.Seed = seed
	p.Workers = 4
	return p
}

// applyResolutions 将消解方案应用到列车副本上
func applyResolutions(trains []*domain.Train, resolutions []domain.Resolution) []*domain.Train {
	adjusted := domain.CloneTrains(trains)
	for _, res := range resolutions {
		for _, train := range adjusted {
			if train.ID != res.TrainID {
				continue
			}
			train.ScheduledDeparture += domain.Minutes(res.DepartureAdjustmentMinutes)
			for i, d := range res.DwellAdjustmentsMinutes {
				if i >= len(train.DwellDelays) {
					train.DwellDelays = append(train.DwellDelays, 0)
				}
				train.DwellDelays[i] += d
			}
		}
	}
	return adjusted
}

func TestResolveNoConflicts(t *testing.T) {
	sim := simulator.New(newSession(t))

	// 两列车分别在不同轨道上
	trains := []*domain.Train{
		{ID: 1, CurrentTrack: 1, VelocityKmh: 120},
		{ID: 2, CurrentTrack: 3, VelocityKmh: 120},
	}
	result, err := scheduler.NewResolver(sim, resolverParameters(1), scheduler.ResolverOptions{}, trains).Resolve(context.Background())
	assert.Nil(t, err)
	assert.Empty(t, result.Resolutions)
	assert.Equal(t, 0, result.InitialConflicts)
	assert.Equal(t, 0, result.RemainingConflicts)
	assert.Equal(t, 0.0, result.TotalDelay)
	assert.Empty(t, result.FitnessHistory)
	assert.False(t, result.BudgetExhausted)
}

func TestResolveSingleTrackConflict(t *testing.T) {
	sim := simulator.New(newSession(t))
	trains := sameTrackTrains(2)

	initial, err := sim.DetectFutureConflicts(trains, longHorizon.HorizonMinutes, 1)
	assert.Nil(t, err)
	assert.NotEmpty(t, initial)

	result, err := scheduler.NewResolver(sim, resolverParameters(42), longHorizon, trains).Resolve(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, len(initial), result.InitialConflicts)
	assert.Equal(t, 0, result.RemainingConflicts)
	assert.Equal(t, result.InitialConflicts, result.ConflictsResolved)
	assert.False(t, result.BudgetExhausted)
	assert.NotEmpty(t, result.Resolutions)

	for _, res := range result.Resolutions {
		assert.Greater(t, res.TotalDelay(), scheduler.SignificantDelay)
		assert.GreaterOrEqual(t, res.DepartureAdjustmentMinutes, 0.0)
		assert.Equal(t, 1.0, res.Confidence)
		assert.Nil(t, res.TrackAssignment)
	}

	// 应用方案后重新检测，不再有超出容量的情况
	conflicts, err := sim.DetectFutureConflicts(applyResolutions(trains, result.Resolutions), longHorizon.HorizonMinutes, 1)
	assert.Nil(t, err)
	assert.Empty(t, conflicts)

	// 原始列车不受影响
	assert.Equal(t, domain.Minutes(480), trains[0].ScheduledDeparture)
	assert.Equal(t, domain.Minutes(480), trains[1].ScheduledDeparture)
}

func TestResolveFitnessHistory(t *testing.T) {
	sim := simulator.New(newSession(t))

	result, err := scheduler.NewResolver(sim, resolverParameters(7), scheduler.ResolverOptions{}, sameTrackTrains(4)).Resolve(context.Background())
	assert.Nil(t, err)
	assert.Len(t, result.FitnessHistory, result.IterationsUsed)

	// 历史最优适应度单调不减
	for i := 1; i < len(result.FitnessHistory); i++ {
		assert.GreaterOrEqual(t, result.FitnessHistory[i], result.FitnessHistory[i-1])
	}
	assert.Equal(t, result.BestFitness, result.FitnessHistory[len(result.FitnessHistory)-1])
}

func TestResolveDeterministic(t *testing.T) {
	sim := simulator.New(newSession(t))

	first, err := scheduler.NewResolver(sim, resolverParameters(2024), scheduler.ResolverOptions{}, sameTrackTrains(3)).Resolve(context.Background())
	assert.Nil(t, err)

	// 并行度不影响结果
	p := resolverParameters(2024)
	p.Workers = 1
	second, err := scheduler.NewResolver(sim, p, scheduler.ResolverOptions{}, sameTrackTrains(3)).Resolve(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, first, second)
}

func TestResolveBudgetExhausted(t *testing.T) {
	sim := simulator.New(newSession(t))

	// 6 列车需要错开至少 75 分钟，初始种群的发车延误不超过 60 分钟，只跑一代不可能消除全部冲突
	p := resolverParameters(3)
	p.PopulationSize = 4
	p.MaxGenerations = 1
	result, err := scheduler.NewResolver(sim, p, scheduler.ResolverOptions{}, sameTrackTrains(6)).Resolve(context.Background())
	assert.Nil(t, err)
	assert.True(t, result.BudgetExhausted)
	assert.Greater(t, result.RemainingConflicts, 0)
	assert.LessOrEqual(t, result.RemainingConflicts, result.InitialConflicts)
	assert.Equal(t, result.InitialConflicts-result.RemainingConflicts, result.ConflictsResolved)
	assert.Equal(t, 1, result.IterationsUsed)
	assert.Len(t, result.FitnessHistory, 1)

	for _, res := range result.Resolutions {
		assert.Less(t, res.Confidence, 1.0)
	}
}

func TestResolveCancelled(t *testing.T) {
	sim := simulator.New(newSession(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := scheduler.NewResolver(sim, resolverParameters(5), scheduler.ResolverOptions{}, sameTrackTrains(6)).Resolve(ctx)
	assert.Nil(t, err)
	assert.True(t, result.BudgetExhausted)
	assert.Equal(t, 1, result.IterationsUsed)
}

func TestResolveWithRoutes(t *testing.T) {
	s := newSession(t)
	sim := simulator.New(s)

	// 两列车沿同一路线同时出发，中间站可以通过延长停站错开
	one, four := int64(1), int64(4)
	trains := []*domain.Train{
		{ID: 1, VelocityKmh: 120, OriginStation: &one, DestinationStation: &four, ScheduledDeparture: 600, Priority: 9},
		{ID: 2, VelocityKmh: 120, OriginStation: &one, DestinationStation: &four, ScheduledDeparture: 600, Priority: 2},
	}
	assert.Nil(t, s.AssignRoutes(trains))
	assert.Equal(t, []int64{1, 2, 3}, trains[0].PlannedRoute)

	result, err := scheduler.NewResolver(sim, resolverParameters(11), scheduler.ResolverOptions{
		HorizonMinutes:     longHorizon.HorizonMinutes,
		PriorityConvention: domain.PriorityHigherFirst,
	}, trains).Resolve(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, 0, result.RemainingConflicts)

	for _, res := range result.Resolutions {
		assert.Len(t, res.DwellAdjustmentsMinutes, 2)
	}

	conflicts, err := sim.DetectFutureConflicts(applyResolutions(trains, result.Resolutions), longHorizon.HorizonMinutes, 1)
	assert.Nil(t, err)
	assert.Empty(t, conflicts)
}

func TestResolveMatchesDetection(t *testing.T) {
	sim := simulator.New(newSession(t))
	trains := sameTrackTrains(3)

	solved := 0
	for seed := int64(1); seed <= 20; seed++ {
		result, err := scheduler.NewResolver(sim, resolverParameters(seed), scheduler.ResolverOptions{}, trains).Resolve(context.Background())
		assert.Nil(t, err)

		// 用默认检测范围和步长检查输出的方案，报告的剩余冲突数与检测结果一致
		adjusted := applyResolutions(trains, result.Resolutions)
		conflicts, err := sim.DetectFutureConflicts(adjusted, 120, 1)
		assert.Nil(t, err)
		overlaps, err := sim.OverlapPeriods(adjusted, simulator.ReferenceTime(adjusted), 120)
		assert.Nil(t, err)
		assert.Equal(t, max(len(conflicts), overlaps), result.RemainingConflicts, "seed %d", seed)

		if result.RemainingConflicts == 0 {
			solved++
			assert.Empty(t, conflicts, "seed %d", seed)
			assert.Equal(t, 0, overlaps, "seed %d", seed)
			for _, res := range result.Resolutions {
				assert.Equal(t, 1.0, res.Confidence)
			}
		}
	}
	assert.Greater(t, solved, 0)
}
