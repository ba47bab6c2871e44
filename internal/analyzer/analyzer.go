package analyzer

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/samber/lo"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
)

const (
	ReferenceSpeedKmh   = 120.0
	BottleneckThreshold = 0.8
	DefaultWindowHours  = 16.0
)

var ErrInvalidWindow = errors.New("时间窗口必须大于 0")

// Topology 路网拓扑，由路网会话提供
type Topology interface {
	Tracks() []domain.Track
	Stations() []domain.Station
}

type Analyzer struct {
	topology Topology
}

func New(topology Topology) *Analyzer {
	return &Analyzer{topology: topology}
}

// AnalyzeCapacity 计算每条轨道的理论容量、需求和利用率
//
// 需求只统计始发站或终点站位于轨道两端的列车，并不是按实际路线统计的。
// 这是一个粗略的近似，下游的目标利用率是按这个口径标定的，不要改成按路线统计。
func (a *Analyzer) AnalyzeCapacity(trains []*domain.Train, windowHours float64) ([]domain.CapacityMetrics, error) {
	if windowHours <= 0 || math.IsNaN(windowHours) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWindow, windowHours)
	}

	tracks := a.topology.Tracks()
	metrics := make([]domain.CapacityMetrics, 0, len(tracks))

	for _, track := range tracks {
		theoretical := TheoreticalCapacity(track, windowHours)
		demand := Demand(track, trains)

		utilization := 0.0
		if theoretical > 0 {
			utilization = float64(demand) / theoretical
		}

		metrics = append(metrics, domain.CapacityMetrics{
			TrackID:             track.ID,
			TheoreticalCapacity: theoretical,
			Demand:              demand,
			Utilization:         utilization,
			IsBottleneck:        utilization > BottleneckThreshold || track.IsSingleTrack,
			IsSingleTrack:       track.IsSingleTrack,
			Capacity:            track.Capacity,
			LengthKm:            track.LengthKm,
		})
	}

	return metrics, nil
}

// TheoreticalCapacity = (时间窗口 / 以参考速度通过所需时间) * 轨道容量，长度为 0 时为 +Inf
func TheoreticalCapacity(track domain.Track, windowHours float64) float64 {
	traverseHours := track.LengthKm / ReferenceSpeedKmh
	if traverseHours <= 0 {
		return math.Inf(1)
	}
	return windowHours / traverseHours * float64(track.EffectiveCapacity())
}

func Demand(track domain.Track, trains []*domain.Train) int {
	return lo.CountBy(trains, func(train *domain.Train) bool {
		if train.OriginStation != nil && track.Touches(*train.OriginStation) {
			return true
		}
		return train.DestinationStation != nil && track.Touches(*train.DestinationStation)
	})
}

// IdentifyBottlenecks 返回瓶颈轨道 ID，按利用率从高到低排列
func IdentifyBottlenecks(metrics []domain.CapacityMetrics) []int64 {
	bottlenecks := lo.Filter(metrics, func(m domain.CapacityMetrics, _ int) bool {
		return m.IsBottleneck
	})
	slices.SortStableFunc(bottlenecks, func(a, b domain.CapacityMetrics) int {
		if c := cmp.Compare(b.Utilization, a.Utilization); c != 0 {
			return c
		}
		return cmp.Compare(a.TrackID, b.TrackID)
	})

	return lo.Map(bottlenecks, func(m domain.CapacityMetrics, _ int) int64 {
		return m.TrackID
	})
}

// NetworkUtilization 汇总全网利用率的均值、最值和标准差
func NetworkUtilization(metrics []domain.CapacityMetrics) domain.NetworkStats {
	if len(metrics) == 0 {
		return domain.NetworkStats{}
	}

	utilizations := lo.Map(metrics, func(m domain.CapacityMetrics, _ int) float64 {
		return m.Utilization
	})

	avg := lo.Sum(utilizations) / float64(len(utilizations))
	variance := 0.0
	for _, u := range utilizations {
		variance += (u - avg) * (u - avg)
	}
	variance /= float64(len(utilizations))

	return domain.NetworkStats{
		AverageUtilization: avg,
		MinUtilization:     lo.Min(utilizations),
		MaxUtilization:     lo.Max(utilizations),
		StdDevUtilization:  math.Sqrt(variance),
		TotalTracks:        len(metrics),
		BottleneckCount: lo.CountBy(metrics, func(m domain.CapacityMetrics) bool {
			return m.IsBottleneck
		}),
	}
}
