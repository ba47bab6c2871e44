package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

type TrackSection struct {
	SectionID   int64   `json:"sectionID"`
	StartKm     float64 `json:"startKm"`
	EndKm       float64 `json:"endKm"`
	NumTracks   int32   `json:"numTracks"`
	MaxSpeedKmh float64 `json:"maxSpeedKmh"`
	HasStation  bool    `json:"hasStation"`
	StationName string  `json:"stationName"`
	CanCross    bool    `json:"canCross"` // 可以在此处交会
}

func (s *TrackSection) LengthKm() float64 {
	return s.EndKm - s.StartKm
}

func (s *TrackSection) IsSingleTrack() bool {
	return s.NumTracks == 1
}

func (s *TrackSection) MidpointKm() float64 {
	return (s.StartKm + s.EndKm) / 2
}

// Stop 中途停车：公里标与停站时长（分钟）
type Stop struct {
	Km              float64 `json:"km"`
	DurationMinutes float64 `json:"durationMinutes"`
}

// UnmarshalJSON 同时支持 {"km":..,"durationMinutes":..} 和 [km, duration] 两种写法
func (s *Stop) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var pair []float64
		if err := json.Unmarshal(data, &pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("停站信息应为 [公里标, 时长]，实际有 %d 项", len(pair))
		}
		s.Km, s.DurationMinutes = pair[0], pair[1]
		return nil
	}

	type alias Stop
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = Stop(a)
	return nil
}

type TrainPath struct {
	TrainID       string    `json:"trainID"`
	Direction     Direction `json:"direction"`
	StartKm       float64   `json:"startKm"`
	EndKm         float64   `json:"endKm"`
	AvgSpeedKmh   float64   `json:"avgSpeedKmh"`
	DepartureTime time.Time `json:"departureTime"`
	Stops         []Stop    `json:"stops"`
	Priority      int32     `json:"priority"`
}

type ExistingTrain struct {
	TrainID     string    `json:"trainID"`
	PositionKm  float64   `json:"positionKm"`
	VelocityKmh float64   `json:"velocityKmh"`
	Direction   Direction `json:"direction"`
}

type CrossingProposal struct {
	Train1Departure   time.Time `json:"train1Departure"`
	Train2Departure   time.Time `json:"train2Departure"`
	CrossingPointKm   float64   `json:"crossingPointKm"` // -1 表示无需交会
	CrossingStation   string    `json:"crossingStation"`
	CrossingTime      time.Time `json:"crossingTime"`
	Train1WaitMinutes float64   `json:"train1WaitMinutes"`
	Train2WaitMinutes float64   `json:"train2WaitMinutes"`
	TotalDelayMinutes float64   `json:"totalDelayMinutes"`
	ConflictsAvoided  int       `json:"conflictsAvoided"`
	TrafficConflicts  int       `json:"trafficConflicts"`
	Confidence        float64   `json:"confidence"`
	Reasoning         string    `json:"reasoning"`
}
