package simulator

import (
	"cmp"
	"slices"

	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
)

// interval 列车占用某条轨道的连续时间段 [start, end)，时间相对基准时刻
type interval struct {
	trackID int64
	start   float64
	end     float64
}

// occupancy 把轨迹上同一轨道的行驶和停站阶段合并为连续的占用时间段
func (tr *trajectory) occupancy(offset float64) []interval {
	intervals := make([]interval, 0, len(tr.phases))
	for _, p := range tr.phases {
		n := len(intervals)
		if n > 0 && intervals[n-1].trackID == p.trackID && intervals[n-1].end == offset+p.start {
			intervals[n-1].end = offset + p.end
			continue
		}
		intervals = append(intervals, interval{trackID: p.trackID, start: offset + p.start, end: offset + p.end})
	}
	return intervals
}

type event struct {
	time  float64
	delta int
}

// OverlapPeriods 以连续时间检查 [0, horizon] 内的轨道占用，返回占用数超过容量的时间段个数
// 与采样检测不同，持续时间短于采样步长的重叠也会被计入
func (s *Simulator) OverlapPeriods(trains []*domain.Train, reference domain.Minutes, horizon float64) (int, error) {
	eventsByTrack := make(map[int64][]event)
	for _, train := range trains {
		tr, err := s.buildTrajectory(train)
		if err != nil {
			return 0, err
		}

		offset := float64(train.ScheduledDeparture - reference)
		for _, iv := range tr.occupancy(offset) {
			start, end := max(iv.start, 0), min(iv.end, horizon)
			if end <= start {
				continue
			}
			eventsByTrack[iv.trackID] = append(eventsByTrack[iv.trackID], event{start, 1}, event{end, -1})
		}
	}

	trackIDs := make([]int64, 0, len(eventsByTrack))
	for id := range eventsByTrack {
		trackIDs = append(trackIDs, id)
	}
	slices.Sort(trackIDs)

	periods := 0
	for _, trackID := range trackIDs {
		track, ok := s.tracks.Track(trackID)
		if !ok {
			continue
		}
		capacity := track.EffectiveCapacity()

		// 同一时刻先处理离开再处理进入，首尾相接不算重叠
		events := eventsByTrack[trackID]
		slices.SortFunc(events, func(a, b event) int {
			if c := cmp.Compare(a.time, b.time); c != 0 {
				return c
			}
			return cmp.Compare(a.delta, b.delta)
		})

		active := 0
		exceeded := false
		for i, e := range events {
			active += e.delta
			// 同一时刻的事件全部处理完后再判断
			if i+1 < len(events) && events[i+1].time == e.time {
				continue
			}
			if active > capacity && !exceeded {
				periods++
			}
			exceeded = active > capacity
		}
	}

	return periods, nil
}
