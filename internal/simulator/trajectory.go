package simulator

import (
	"fmt"

	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
)

// phase 列车运行的一个阶段：在某条轨道上行驶，或在轨道末端的车站停站
type phase struct {
	trackID    int64
	routeIndex int
	start      float64 // 相对出发时刻的分钟数
	end        float64
	fromKm     float64
	toKm       float64
	speed      float64
	dwelling   bool
}

// trajectory 列车完整的时空轨迹，每次检测时为每列车构建一次
type trajectory struct {
	trainID    int64
	firstTrack int64
	firstKm    float64
	phases     []phase
	last       phase
}

func effectiveSpeed(train *domain.Train, track domain.Track) float64 {
	v := train.Velocity()
	if track.MaxSpeedKmh > 0 && track.MaxSpeedKmh < v {
		return track.MaxSpeedKmh
	}
	return v
}

func (s *Simulator) buildTrajectory(train *domain.Train) (*trajectory, error) {
	tr := &trajectory{trainID: train.ID}

	// 没有计划路线：只在当前轨道上运行，到达轨道末端即视为到站
	if len(train.PlannedRoute) == 0 {
		track, ok := s.tracks.Track(train.CurrentTrack)
		if !ok {
			return nil, fmt.Errorf("%w: 列车 %d 的当前轨道 %d", ErrUnknownTrack, train.ID, train.CurrentTrack)
		}

		startKm := min(max(train.PositionKm, 0), track.LengthKm)
		speed := effectiveSpeed(train, track)
		tr.firstTrack = track.ID
		tr.firstKm = startKm
		tr.phases = []phase{{
			trackID: track.ID,
			start:   0,
			end:     (track.LengthKm - startKm) / speed * 60.0,
			fromKm:  startKm,
			toKm:    track.LengthKm,
			speed:   speed,
		}}
		tr.last = phase{trackID: track.ID, fromKm: track.LengthKm, toKm: track.LengthKm}
		return tr, nil
	}

	startIndex := min(max(train.RouteIndex, 0), len(train.PlannedRoute)-1)
	clock := 0.0

	for idx := startIndex; idx < len(train.PlannedRoute); idx++ {
		trackID := train.PlannedRoute[idx]
		track, ok := s.tracks.Track(trackID)
		if !ok {
			return nil, fmt.Errorf("%w: 列车 %d 计划路线中的轨道 %d", ErrUnknownTrack, train.ID, trackID)
		}

		fromKm := 0.0
		if idx == startIndex {
			fromKm = min(max(train.PositionKm, 0), track.LengthKm)
			tr.firstTrack = trackID
			tr.firstKm = fromKm
		}

		speed := effectiveSpeed(train, track)
		traverse := (track.LengthKm - fromKm) / speed * 60.0
		tr.phases = append(tr.phases, phase{
			trackID:    trackID,
			routeIndex: idx,
			start:      clock,
			end:        clock + traverse,
			fromKm:     fromKm,
			toKm:       track.LengthKm,
			speed:      speed,
		})
		clock += traverse

		// 终点站不停站
		if idx < len(train.PlannedRoute)-1 {
			dwell := BaseDwellMinutes
			if idx < len(train.DwellDelays) {
				dwell += train.DwellDelays[idx]
			}
			tr.phases = append(tr.phases, phase{
				trackID:    trackID,
				routeIndex: idx,
				start:      clock,
				end:        clock + dwell,
				fromKm:     track.LengthKm,
				toKm:       track.LengthKm,
				dwelling:   true,
			})
			clock += dwell
		}

		tr.last = phase{trackID: trackID, routeIndex: idx, fromKm: track.LengthKm, toKm: track.LengthKm}
	}

	return tr, nil
}

func (tr *trajectory) positionAt(elapsed float64) domain.TrainPosition {
	if elapsed <= 0 {
		return domain.TrainPosition{
			TrainID:      tr.trainID,
			CurrentTrack: tr.firstTrack,
			PositionKm:   tr.firstKm,
			RouteIndex:   tr.phases[0].routeIndex,
		}
	}

	// 到达阶段终点的瞬间即视为已离开该阶段
	for _, p := range tr.phases {
		if elapsed >= p.end {
			continue
		}
		if p.dwelling {
			return domain.TrainPosition{
				TrainID:            tr.trainID,
				CurrentTrack:       p.trackID,
				PositionKm:         p.toKm,
				RouteIndex:         p.routeIndex,
				HasDeparted:        true,
				IsStoppedAtStation: true,
			}
		}
		return domain.TrainPosition{
			TrainID:      tr.trainID,
			CurrentTrack: p.trackID,
			PositionKm:   p.fromKm + (elapsed-p.start)/60.0*p.speed,
			VelocityKmh:  p.speed,
			RouteIndex:   p.routeIndex,
			HasDeparted:  true,
		}
	}

	return domain.TrainPosition{
		TrainID:      tr.trainID,
		CurrentTrack: tr.last.trackID,
		PositionKm:   tr.last.toKm,
		RouteIndex:   tr.last.routeIndex,
		HasDeparted:  true,
		HasArrived:   true,
	}
}

// window 返回列车在路线第 routeIndex 段轨道上行驶的时间窗
func (tr *trajectory) window(routeIndex int) (start, end float64, ok bool) {
	for _, p := range tr.phases {
		if p.routeIndex == routeIndex && !p.dwelling {
			return p.start, p.end, true
		}
	}
	return 0, 0, false
}
