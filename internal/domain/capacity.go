package domain

import (
	"encoding/json"
	"math"
)

type CapacityMetrics struct {
	TrackID             int64   `json:"trackID"`
	TheoreticalCapacity float64 `json:"theoreticalCapacity"` // 长度为 0 的轨道为 +Inf，序列化时为 null
	Demand              int     `json:"demand"`
	Utilization         float64 `json:"utilization"`
	IsBottleneck        bool    `json:"isBottleneck"`
	IsSingleTrack       bool    `json:"isSingleTrack"`
	Capacity            int32   `json:"capacity"`
	LengthKm            float64 `json:"lengthKm"`
}

func (m CapacityMetrics) MarshalJSON() ([]byte, error) {
	type alias CapacityMetrics
	out := struct {
		alias
		TheoreticalCapacity *float64 `json:"theoreticalCapacity"`
	}{alias: alias(m)}
	if !math.IsInf(m.TheoreticalCapacity, 0) && !math.IsNaN(m.TheoreticalCapacity) {
		out.TheoreticalCapacity = &m.TheoreticalCapacity
	}
	return json.Marshal(out)
}

type NetworkStats struct {
	AverageUtilization float64 `json:"averageUtilization"`
	MinUtilization     float64 `json:"minUtilization"`
	MaxUtilization     float64 `json:"maxUtilization"`
	StdDevUtilization  float64 `json:"stdDevUtilization"`
	TotalTracks        int     `json:"totalTracks"`
	BottleneckCount    int     `json:"bottleneckCount"`
}

type Connectivity struct {
	Components       int     `json:"components"`
	IsConnected      bool    `json:"isConnected"`
	IsolatedStations []int64 `json:"isolatedStations"`
	LargestComponent int     `json:"largestComponent"`
}

type ScheduleMetrics struct {
	AverageCapacityUtilization float64 `json:"averageCapacityUtilization"`
	TotalConflicts             int     `json:"totalConflicts"`
	TemporalDistributionScore  float64 `json:"temporalDistributionScore"`
	Fitness                    float64 `json:"fitness"`
}

type ScheduleResult struct {
	Schedule       []*Train        `json:"schedule"`
	Metrics        ScheduleMetrics `json:"metrics"`
	Iterations     int             `json:"iterations"`
	Converged      bool            `json:"converged"`
	FitnessHistory []float64       `json:"fitnessHistory"`
}
