package simulator

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"

	"github.com/samber/lo"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
)

const (
	BaseDwellMinutes = 2.0 // 中间站基础停站时间
	SamePositionKm   = 0.1
	MinSeparationKm  = 2.0
	MaxSamples       = 20000 // 单次检测的采样点上限
)

var (
	ErrUnknownTrack   = errors.New("轨道不存在")
	ErrInvalidHorizon = errors.New("时间范围或步长不合法")
)

// TrackTable 轨道表，由路网会话提供
type TrackTable interface {
	Track(id int64) (domain.Track, bool)
}

// Simulator 时间推演器，本身无状态，只读取轨道表
type Simulator struct {
	tracks TrackTable
}

func New(tracks TrackTable) *Simulator {
	return &Simulator{tracks: tracks}
}

// SimulatePosition 计算列车在出发后 elapsed 分钟时的位置，elapsed <= 0 表示尚未出发
func (s *Simulator) SimulatePosition(train *domain.Train, elapsed float64) (domain.TrainPosition, error) {
	tr, err := s.buildTrajectory(train)
	if err != nil {
		return domain.TrainPosition{}, err
	}
	return tr.positionAt(elapsed), nil
}

// ReferenceTime 返回一组列车中最早的计划发车时刻
func ReferenceTime(trains []*domain.Train) domain.Minutes {
	if len(trains) == 0 {
		return 0
	}
	return lo.MinBy(trains, func(a, b *domain.Train) bool {
		return a.ScheduledDeparture < b.ScheduledDeparture
	}).ScheduledDeparture
}

// DetectFutureConflicts 以最早发车时刻为基准，在 [0, horizon] 内每隔 step 分钟采样检测冲突
func (s *Simulator) DetectFutureConflicts(trains []*domain.Train, horizon, step float64) ([]domain.Conflict, error) {
	return s.DetectFrom(trains, ReferenceTime(trains), horizon, step)
}

// sampleCount 返回 [0, horizon] 内的采样区间数，采样时刻为 k * step (k = 0..n)
func sampleCount(horizon, step float64) (int, error) {
	if step <= 0 || horizon < 0 || math.IsNaN(step) || math.IsNaN(horizon) || math.IsInf(horizon, 0) {
		return 0, fmt.Errorf("%w: horizon=%v step=%v", ErrInvalidHorizon, horizon, step)
	}
	n := math.Floor(horizon/step + 1e-9)
	if n+1 > MaxSamples {
		return 0, fmt.Errorf("%w: 采样点数超过 %d", ErrInvalidHorizon, MaxSamples)
	}
	return int(n), nil
}

// DetectFrom 以给定基准时刻检测冲突
// 列车在采样时刻 t 的已运行时间为 t - (发车时刻 - 基准时刻)，尚未发车的列车不占用轨道
// 结果按时间升序、严重程度降序排列，相同输入总是得到相同输出
func (s *Simulator) DetectFrom(trains []*domain.Train, reference domain.Minutes, horizon, step float64) ([]domain.Conflict, error) {
	numSteps, err := sampleCount(horizon, step)
	if err != nil {
		return nil, err
	}

	trajectories := make([]*trajectory, len(trains))
	offsets := make([]float64, len(trains))
	for i, train := range trains {
		tr, err := s.buildTrajectory(train)
		if err != nil {
			return nil, err
		}
		trajectories[i] = tr
		offsets[i] = float64(train.ScheduledDeparture - reference)
	}

	conflicts := make([]domain.Conflict, 0)
	seen := make(map[domain.ConflictKey]bool)

	for k := 0; k <= numSteps; k++ {
		t := float64(k) * step

		// 按轨道分组
		positionsByTrack := make(map[int64][]domain.TrainPosition)
		for i, tr := range trajectories {
			elapsed := t - offsets[i]
			if elapsed < 0 {
				continue
			}
			pos := tr.positionAt(elapsed)
			if pos.HasArrived {
				continue
			}
			positionsByTrack[pos.CurrentTrack] = append(positionsByTrack[pos.CurrentTrack], pos)
		}

		trackIDs := make([]int64, 0, len(positionsByTrack))
		for id := range positionsByTrack {
			trackIDs = append(trackIDs, id)
		}
		slices.Sort(trackIDs)

		for _, trackID := range trackIDs {
			positions := positionsByTrack[trackID]
			if len(positions) < 2 {
				continue
			}
			track, _ := s.tracks.Track(trackID)
			if len(positions) <= track.EffectiveCapacity() {
				continue
			}

			// 超出容量：每一对列车都记为冲突
			for i := 0; i < len(positions); i++ {
				for j := i + 1; j < len(positions); j++ {
					c := newConflict(t, track, positions[i], positions[j])
					key := c.Key()
					if seen[key] {
						continue
					}
					seen[key] = true
					conflicts = append(conflicts, c)
				}
			}
		}
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		if conflicts[i].TimeOffsetMinutes != conflicts[j].TimeOffsetMinutes {
			return conflicts[i].TimeOffsetMinutes < conflicts[j].TimeOffsetMinutes
		}
		return conflicts[i].Severity > conflicts[j].Severity
	})

	return conflicts, nil
}

func newConflict(t float64, track domain.Track, p1, p2 domain.TrainPosition) domain.Conflict {
	distance := math.Abs(p1.PositionKm - p2.PositionKm)

	var conflictType domain.ConflictType
	switch {
	case distance < SamePositionKm:
		conflictType = domain.ConflictSamePosition
	case track.IsSingleTrack:
		conflictType = domain.ConflictSingleTrack
	case distance < MinSeparationKm:
		conflictType = domain.ConflictTooClose
	default:
		conflictType = domain.ConflictCapacityExceeded
	}

	return domain.Conflict{
		TimeOffsetMinutes: t,
		TrackID:           track.ID,
		Train1ID:          p1.TrainID,
		Train2ID:          p2.TrainID,
		Train1PositionKm:  p1.PositionKm,
		Train2PositionKm:  p2.PositionKm,
		DistanceKm:        distance,
		Type:              conflictType,
		Severity:          conflictType.Severity(),
		IsSingleTrack:     track.IsSingleTrack,
	}
}

// FindMeetingPoint 找出两列车路线上第一条在时间上重叠的共用轨道
// 时间以两车中较早的发车时刻为基准；没有共用轨道或时间不重叠时返回 nil
func (s *Simulator) FindMeetingPoint(a, b *domain.Train) (*domain.MeetingPoint, error) {
	if len(a.PlannedRoute) == 0 || len(b.PlannedRoute) == 0 {
		return nil, nil
	}

	trA, err := s.buildTrajectory(a)
	if err != nil {
		return nil, err
	}
	trB, err := s.buildTrajectory(b)
	if err != nil {
		return nil, err
	}

	reference := min(a.ScheduledDeparture, b.ScheduledDeparture)
	offsetA := float64(a.ScheduledDeparture - reference)
	offsetB := float64(b.ScheduledDeparture - reference)

	for idxA, trackID := range a.PlannedRoute {
		idxB := slices.Index(b.PlannedRoute, trackID)
		if idxB < 0 {
			continue
		}

		startA, endA, okA := trA.window(idxA)
		startB, endB, okB := trB.window(idxB)
		if !okA || !okB {
			continue
		}
		startA, endA = startA+offsetA, endA+offsetA
		startB, endB = startB+offsetB, endB+offsetB

		if (startA <= startB && startB <= endA) || (startB <= startA && startA <= endB) {
			slog.Debug("找到会车点", "track", trackID, "trainA", a.ID, "trainB", b.ID)
			return &domain.MeetingPoint{
				TrackID:            trackID,
				Train1ArrivalTime:  startA,
				Train2ArrivalTime:  startB,
				OverlapMinutes:     min(endA, endB) - max(startA, startB),
				Train1TraverseTime: endA - startA,
				Train2TraverseTime: endB - startB,
			}, nil
		}
	}

	return nil, nil
}
