package network_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/network"
)

// newSession 构建测试路网
//
//	1 --(1: 10km)-- 2 --(2: 20km)-- 3 --(3: 5km)-- 4
//	 \                                          /
//	  ------------(4: 40km)---------------------
//	5 为孤立车站
func newSession(t *testing.T) *network.Session {
	stations := []domain.Station{
		{ID: 1, Name: "东站", NumPlatforms: 4},
		{ID: 2, Name: "西站", NumPlatforms: 2},
		{ID: 3, Name: "南站", NumPlatforms: 2},
		{ID: 4, Name: "北站", NumPlatforms: 3},
		{ID: 5, Name: "孤站", NumPlatforms: 1},
	}
	tracks := []domain.Track{
		{ID: 1, LengthKm: 10, MaxSpeedKmh: 120, Capacity: 2, StationIDs: [2]int64{1, 2}},
		{ID: 2, LengthKm: 20, MaxSpeedKmh: 120, Capacity: 1, IsSingleTrack: true, StationIDs: [2]int64{2, 3}},
		{ID: 3, LengthKm: 5, MaxSpeedKmh: 120, Capacity: 2, StationIDs: [2]int64{3, 4}},
		{ID: 4, LengthKm: 40, MaxSpeedKmh: 160, Capacity: 2, StationIDs: [2]int64{1, 4}},
	}

	s, err := network.NewSession(stations, tracks, 16)
	assert.Nil(t, err)
	return s
}

func TestPlanRoute(t *testing.T) {
	s := newSession(t)

	// 1 -> 2 -> 3 -> 4 共 35 km，短于直达的 40 km
	plan, err := s.PlanRoute(1, 4, 60)
	assert.Nil(t, err)
	assert.Equal(t, []int64{1, 2, 3}, plan.TrackIDs)
	assert.Equal(t, 35.0, plan.TotalDistanceKm)
	assert.InDelta(t, 35.0, plan.TotalTimeMinutes, 1e-9)
	assert.Equal(t, "东站", plan.OriginName)
	assert.Equal(t, "北站", plan.DestinationName)

	assert.Len(t, plan.Segments, 3)
	assert.Equal(t, int64(1), plan.Segments[0].EntryStationID)
	assert.Equal(t, int64(2), plan.Segments[0].ExitStationID)
	assert.True(t, plan.Segments[1].IsSingleTrack)
	assert.Equal(t, int64(4), plan.Segments[2].ExitStationID)

	// 反方向
	plan, err = s.PlanRoute(4, 1, 60)
	assert.Nil(t, err)
	assert.Equal(t, []int64{3, 2, 1}, plan.TrackIDs)
}

func TestPlanRouteEdgeCases(t *testing.T) {
	s := newSession(t)

	// 始发站与终点站相同
	plan, err := s.PlanRoute(2, 2, 100)
	assert.Nil(t, err)
	assert.Empty(t, plan.TrackIDs)
	assert.Equal(t, 0.0, plan.TotalDistanceKm)

	// 不可达
	_, err = s.PlanRoute(1, 5, 100)
	assert.ErrorIs(t, err, network.ErrNoRoute)

	// 第二次命中缓存，结果不变
	_, err = s.PlanRoute(1, 5, 100)
	assert.ErrorIs(t, err, network.ErrNoRoute)

	// 车站不存在
	_, err = s.PlanRoute(1, 42, 100)
	assert.ErrorIs(t, err, network.ErrUnknownStation)
	_, err = s.PlanRoute(42, 1, 100)
	assert.ErrorIs(t, err, network.ErrUnknownStation)

	// 速度非正时使用默认速度
	plan, err = s.PlanRoute(1, 2, 0)
	assert.Nil(t, err)
	assert.InDelta(t, 5.0, plan.TotalTimeMinutes, 1e-9)
}

func TestPlanRouteReturnsCopy(t *testing.T) {
	s := newSession(t)

	plan, err := s.PlanRoute(1, 4, 120)
	assert.Nil(t, err)
	plan.TrackIDs[0] = 99
	plan.Segments[0].TrackID = 99

	again, err := s.PlanRoute(1, 4, 120)
	assert.Nil(t, err)
	assert.Equal(t, []int64{1, 2, 3}, again.TrackIDs)
	assert.Equal(t, int64(1), again.Segments[0].TrackID)
}

func TestPlanRouteTieBreak(t *testing.T) {
	// 两条等长路线：1 -(5)- 2 -(6)- 4 与 1 -(1)- 3 -(2)- 4，选择轨道 ID 之和较小的一条
	stations := []domain.Station{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}
	tracks := []domain.Track{
		{ID: 5, LengthKm: 10, Capacity: 2, StationIDs: [2]int64{1, 2}},
		{ID: 6, LengthKm: 10, Capacity: 2, StationIDs: [2]int64{2, 4}},
		{ID: 1, LengthKm: 10, Capacity: 2, StationIDs: [2]int64{1, 3}},
		{ID: 2, LengthKm: 10, Capacity: 2, StationIDs: [2]int64{3, 4}},
	}
	s, err := network.NewSession(stations, tracks, 0)
	assert.Nil(t, err)

	for iter := 0; iter < 10; iter++ {
		plan, err := s.PlanRoute(1, 4, 120)
		assert.Nil(t, err)
		assert.Equal(t, []int64{1, 2}, plan.TrackIDs)
	}
}

func TestNewSession(t *testing.T) {
	_, err := network.NewSession([]domain.Station{{ID: 1}}, nil, 0)
	assert.ErrorIs(t, err, network.ErrEmptyTopology)

	// 轨道连接到不存在的车站
	_, err = network.NewSession(
		[]domain.Station{{ID: 1}},
		[]domain.Track{{ID: 1, LengthKm: 10, Capacity: 1, StationIDs: [2]int64{1, 2}}},
		0,
	)
	assert.ErrorIs(t, err, network.ErrInvalidTopology)

	s := newSession(t)
	summary := s.Summary()
	assert.Equal(t, 5, summary.StationCount)
	assert.Equal(t, 4, summary.TrackCount)
	assert.Equal(t, 1, summary.SingleTrackCount)
	assert.Equal(t, 75.0, summary.TotalLengthKm)
	assert.NotEmpty(t, summary.ID)

	assert.True(t, s.HasStation(5))
	assert.False(t, s.HasTrack(5))
	track, ok := s.Track(4)
	assert.True(t, ok)
	assert.Equal(t, 160.0, track.MaxSpeedKmh)
}

type topologySource struct {
	stations []domain.Station
	tracks   []domain.Track
}

func (s *topologySource) GetAllStations() ([]domain.Station, error) { return s.stations, nil }
func (s *topologySource) GetAllTracks() ([]domain.Track, error)     { return s.tracks, nil }

func TestLoadSession(t *testing.T) {
	_, err := network.LoadSession(&topologySource{}, 0)
	assert.ErrorIs(t, err, network.ErrEmptyTopology)

	s, err := network.LoadSession(&topologySource{
		stations: []domain.Station{{ID: 1}, {ID: 2}},
		tracks:   []domain.Track{{ID: 7, LengthKm: 12, Capacity: 1, StationIDs: [2]int64{1, 2}}},
	}, 0)
	assert.Nil(t, err)
	assert.Equal(t, 1, s.Summary().TrackCount)
}

func TestAssignRoutes(t *testing.T) {
	s := newSession(t)

	one, four, five := int64(1), int64(4), int64(5)
	trains := []*domain.Train{
		{ID: 1, OriginStation: &one, DestinationStation: &four},
		{ID: 2, OriginStation: &one, DestinationStation: &five, CurrentTrack: 1},
		{ID: 3, PlannedRoute: []int64{4}, OriginStation: &one, DestinationStation: &four},
		{ID: 4, CurrentTrack: 3},
	}

	err := s.AssignRoutes(trains)
	assert.Nil(t, err)

	// 规划出路线并从第一段轨道出发
	assert.Equal(t, []int64{1, 2, 3}, trains[0].PlannedRoute)
	assert.Equal(t, int64(1), trains[0].CurrentTrack)

	// 不可达时保持原状
	assert.Empty(t, trains[1].PlannedRoute)
	assert.Equal(t, int64(1), trains[1].CurrentTrack)

	// 已有路线的列车不受影响
	assert.Equal(t, []int64{4}, trains[2].PlannedRoute)
	assert.Empty(t, trains[3].PlannedRoute)

	// 车站不存在时返回错误
	bad := int64(42)
	err = s.AssignRoutes([]*domain.Train{{ID: 5, OriginStation: &one, DestinationStation: &bad}})
	assert.ErrorIs(t, err, network.ErrUnknownStation)
}
