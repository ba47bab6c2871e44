package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
)

func TestParseClock(t *testing.T) {
	m, err := domain.ParseClock("08:30")
	assert.Nil(t, err)
	assert.Equal(t, domain.Minutes(510), m)

	// 跨午夜的晚点
	m, err = domain.ParseClock("25:00:30")
	assert.Nil(t, err)
	assert.Equal(t, domain.Minutes(1500.5), m)

	for _, s := range []string{"8h", "08:61", "08:30:75", "-1:00", "1:2:3:4", ""} {
		_, err = domain.ParseClock(s)
		assert.ErrorIs(t, err, domain.ErrInvalidClock, s)
	}
}

func TestMinutesClock(t *testing.T) {
	assert.Equal(t, "08:30:30", domain.Minutes(510.5).Clock())
	assert.Equal(t, "00:00:00", domain.Minutes(0).Clock())
	assert.Equal(t, "26:00:00", domain.Minutes(1560).Clock())
	assert.Equal(t, "-00:05:00", domain.Minutes(-5).Clock())
}

func TestMinutesJSON(t *testing.T) {
	var v struct {
		A domain.Minutes `json:"a"`
		B domain.Minutes `json:"b"`
	}
	err := json.Unmarshal([]byte(`{"a": "07:45", "b": 125.5}`), &v)
	assert.Nil(t, err)
	assert.Equal(t, domain.Minutes(465), v.A)
	assert.Equal(t, domain.Minutes(125.5), v.B)

	data, err := json.Marshal(v)
	assert.Nil(t, err)
	assert.JSONEq(t, `{"a": "07:45:00", "b": "02:05:30"}`, string(data))

	err = json.Unmarshal([]byte(`{"a": "7 点"}`), &v)
	assert.ErrorIs(t, err, domain.ErrInvalidClock)
}

func TestStopJSON(t *testing.T) {
	var stops []domain.Stop
	err := json.Unmarshal([]byte(`[[15, 3], {"km": 20, "durationMinutes": 2}]`), &stops)
	assert.Nil(t, err)
	assert.Equal(t, []domain.Stop{{Km: 15, DurationMinutes: 3}, {Km: 20, DurationMinutes: 2}}, stops)

	err = json.Unmarshal([]byte(`[[15]]`), &stops)
	assert.NotNil(t, err)
}

func TestUrgency(t *testing.T) {
	assert.Equal(t, 1.0, domain.PriorityHigherFirst.Urgency(10))
	assert.Equal(t, 0.0, domain.PriorityHigherFirst.Urgency(1))
	assert.Equal(t, 1.0, domain.PriorityLowerFirst.Urgency(1))
	assert.Equal(t, 0.0, domain.PriorityLowerFirst.Urgency(10))

	// 超出范围的优先级截断到 [1, 10]
	assert.Equal(t, 1.0, domain.PriorityHigherFirst.Urgency(42))
	assert.Equal(t, 0.0, domain.PriorityHigherFirst.Urgency(-3))
}

func TestTrainClone(t *testing.T) {
	origin := int64(1)
	train := &domain.Train{ID: 1, PlannedRoute: []int64{1, 2, 3}, DwellDelays: []float64{1, 2}, OriginStation: &origin}

	c := train.Clone()
	c.PlannedRoute[0] = 99
	c.DwellDelays[0] = 99
	*c.OriginStation = 99

	assert.Equal(t, []int64{1, 2, 3}, train.PlannedRoute)
	assert.Equal(t, []float64{1, 2}, train.DwellDelays)
	assert.Equal(t, int64(1), *train.OriginStation)
	assert.Equal(t, 2, train.StopCount())
	assert.Equal(t, 120.0, train.Velocity())
}

func TestConflictKey(t *testing.T) {
	a := domain.Conflict{TimeOffsetMinutes: 3.5, TrackID: 2, Train1ID: 7, Train2ID: 4}
	b := domain.Conflict{TimeOffsetMinutes: 3.9, TrackID: 2, Train1ID: 4, Train2ID: 7}
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, domain.ConflictKey{LowTrainID: 4, HighTrainID: 7, TrackID: 2, Minute: 3}, a.Key())
}
