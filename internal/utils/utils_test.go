package utils_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/utils"
)

func TestValidateTopology(t *testing.T) {
	stations := []domain.Station{{ID: 1}, {ID: 2}}
	track := domain.Track{ID: 1, LengthKm: 10, Capacity: 1, StationIDs: [2]int64{1, 2}}

	assert.Nil(t, utils.ValidateTopology(stations, []domain.Track{track}))
	assert.NotNil(t, utils.ValidateTopology(stations, nil))
	assert.NotNil(t, utils.ValidateTopology(append(stations, domain.Station{ID: 1}), []domain.Track{track}))
	assert.NotNil(t, utils.ValidateTopology(stations, []domain.Track{track, track}))

	bad := track
	bad.LengthKm = -1
	assert.NotNil(t, utils.ValidateTopology(stations, []domain.Track{bad}))

	bad = track
	bad.Capacity = 0
	assert.NotNil(t, utils.ValidateTopology(stations, []domain.Track{bad}))

	bad = track
	bad.StationIDs[1] = 3
	assert.NotNil(t, utils.ValidateTopology(stations, []domain.Track{bad}))

	// 单线轨道的容量只能为 1
	bad = track
	bad.IsSingleTrack = true
	bad.Capacity = 2
	assert.NotNil(t, utils.ValidateTopology(stations, []domain.Track{bad}))
}

func TestValidateTrains(t *testing.T) {
	hasTrack := func(id int64) bool { return id == 1 || id == 2 }
	hasStation := func(id int64) bool { return id <= 3 }
	four := int64(4)

	assert.Nil(t, utils.ValidateTrains([]*domain.Train{
		{ID: 1, CurrentTrack: 1},
		{ID: 2, PlannedRoute: []int64{1, 2}},
	}, hasTrack, hasStation))

	cases := []*domain.Train{
		{ID: 1, CurrentTrack: 9},
		{ID: 1, PlannedRoute: []int64{1, 9}},
		{ID: 1, CurrentTrack: 1, OriginStation: &four},
		{ID: 1, CurrentTrack: 1, DestinationStation: &four},
		{ID: 1, CurrentTrack: 1, DwellDelays: []float64{-1}},
	}
	for _, train := range cases {
		assert.NotNil(t, utils.ValidateTrains([]*domain.Train{train}, hasTrack, hasStation))
	}

	// 列车 ID 重复
	assert.NotNil(t, utils.ValidateTrains([]*domain.Train{{ID: 1, CurrentTrack: 1}, {ID: 1, CurrentTrack: 2}}, hasTrack, hasStation))
}

func TestValidateSections(t *testing.T) {
	assert.Nil(t, utils.ValidateSections(utils.DemoCrossingLine()))
	assert.NotNil(t, utils.ValidateSections(nil))
	assert.NotNil(t, utils.ValidateSections([]domain.TrackSection{{SectionID: 1, StartKm: 5, EndKm: 5, MaxSpeedKmh: 80}}))
	assert.NotNil(t, utils.ValidateSections([]domain.TrackSection{{SectionID: 1, StartKm: 0, EndKm: 5}}))
}

func TestGenerateCorridorTopology(t *testing.T) {
	stations, tracks := utils.GenerateCorridorTopology(7, rand.New(rand.NewSource(1)))
	assert.Len(t, stations, 7)
	assert.Len(t, tracks, 6)
	assert.Nil(t, utils.ValidateTopology(stations, tracks))

	for i, track := range tracks {
		assert.Equal(t, [2]int64{int64(i + 1), int64(i + 2)}, track.StationIDs)
		assert.GreaterOrEqual(t, track.LengthKm, 10.0)
		assert.LessOrEqual(t, track.LengthKm, 40.0)
		assert.Equal(t, i%3 == 2, track.IsSingleTrack)
	}

	// 少于两个车站时仍然生成一条轨道
	stations, tracks = utils.GenerateCorridorTopology(1, rand.New(rand.NewSource(1)))
	assert.Len(t, stations, 2)
	assert.Len(t, tracks, 1)
}

func TestGenerateRandomTrains(t *testing.T) {
	stations, _ := utils.GenerateCorridorTopology(5, rand.New(rand.NewSource(2)))
	trains := utils.GenerateRandomTrains(stations, 20, 120, rand.New(rand.NewSource(3)))
	assert.Len(t, trains, 20)

	for _, train := range trains {
		assert.NotEqual(t, *train.OriginStation, *train.DestinationStation)
		assert.GreaterOrEqual(t, train.ScheduledDeparture, domain.Minutes(0))
		assert.Less(t, train.ScheduledDeparture, domain.Minutes(120))
		assert.GreaterOrEqual(t, train.Priority, int32(1))
		assert.LessOrEqual(t, train.Priority, int32(10))
	}

	assert.Empty(t, utils.GenerateRandomTrains(stations[:1], 5, 120, rand.New(rand.NewSource(3))))
}
