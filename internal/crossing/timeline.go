package crossing

import (
	"math"

	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
)

// point 列车经过某公里标的时刻，以时间窗口开始为 0 点（分钟）
type point struct {
	km   float64
	time float64
}

// timeline 按行驶顺序记录的公里标-时刻序列，时刻单调不减
// 停站时同一公里标会出现两次，分别为到达和出发
type timeline []point

func sectionSpeed(train *domain.TrainPath, section *domain.TrackSection) float64 {
	if section.MaxSpeedKmh > 0 {
		return min(train.AvgSpeedKmh, section.MaxSpeedKmh)
	}
	return train.AvgSpeedKmh
}

// buildTimeline 沿行驶方向依次通过各区段，累加运行时间和停站时间
// 只部分位于行程内的区段按行程范围截断
func (s *Scheduler) buildTimeline(train *domain.TrainPath, departure float64) timeline {
	forward := train.Direction == domain.DirectionForward
	lo, hi := min(train.StartKm, train.EndKm), max(train.StartKm, train.EndKm)

	sections := make([]*domain.TrackSection, 0, len(s.sections))
	for i := range s.sections {
		if s.sections[i].EndKm > lo && s.sections[i].StartKm < hi {
			sections = append(sections, &s.sections[i])
		}
	}
	if !forward {
		for i, j := 0, len(sections)-1; i < j; i, j = i+1, j-1 {
			sections[i], sections[j] = sections[j], sections[i]
		}
	}

	now := departure
	tl := timeline{{km: train.StartKm, time: now}}
	for _, section := range sections {
		entry, exit := max(section.StartKm, lo), min(section.EndKm, hi)
		if !forward {
			entry, exit = exit, entry
		}
		if last := tl[len(tl)-1]; last.km != entry {
			tl = append(tl, point{km: entry, time: now})
		}

		speed := sectionSpeed(train, section) / 60 // km/min
		pos := entry
		for _, stop := range stopsWithin(train.Stops, entry, exit) {
			now += math.Abs(stop.Km-pos) / speed
			tl = append(tl, point{km: stop.Km, time: now})
			now += stop.DurationMinutes
			tl = append(tl, point{km: stop.Km, time: now})
			pos = stop.Km
		}
		now += math.Abs(exit-pos) / speed
		tl = append(tl, point{km: exit, time: now})
	}

	return tl
}

// stopsWithin 返回落在 (entry, exit] 内的停站，按行驶顺序排列
// 区段起点上的停站归入上一个区段，避免在相邻区段重复计算
func stopsWithin(stops []domain.Stop, entry, exit float64) []domain.Stop {
	result := make([]domain.Stop, 0)
	for _, stop := range stops {
		d := (stop.Km - entry) * sign(exit-entry)
		if d > 0 && d <= math.Abs(exit-entry) {
			result = append(result, stop)
		}
	}
	for i := 1; i < len(result); i++ {
		for j := i; j > 0 && math.Abs(result[j].Km-entry) < math.Abs(result[j-1].Km-entry); j-- {
			result[j], result[j-1] = result[j-1], result[j]
		}
	}
	return result
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

// arrivalAt 用相邻两点线性插值得到首次到达 km 的时刻，列车不经过时 ok 为 false
func (tl timeline) arrivalAt(km float64) (float64, bool) {
	for i := 0; i < len(tl); i++ {
		if tl[i].km == km {
			return tl[i].time, true
		}
		if i+1 < len(tl) {
			a, b := tl[i], tl[i+1]
			if (a.km < km && km < b.km) || (b.km < km && km < a.km) {
				fraction := (km - a.km) / (b.km - a.km)
				return a.time + (b.time-a.time)*fraction, true
			}
		}
	}
	return 0, false
}

// span 返回列车占用 [startKm, endKm] 的时间段，只经过端点而不进入区段时 ok 为 false
func (tl timeline) span(startKm, endKm float64) (enter, leave float64, ok bool) {
	enter, leave = math.Inf(1), math.Inf(-1)
	kmLo, kmHi := math.Inf(1), math.Inf(-1)
	for _, p := range tl {
		if p.km < startKm || p.km > endKm {
			continue
		}
		enter, leave = min(enter, p.time), max(leave, p.time)
		kmLo, kmHi = min(kmLo, p.km), max(kmHi, p.km)
	}
	return enter, leave, kmHi > kmLo
}

func overlaps(aStart, aEnd, bStart, bEnd float64) bool {
	return !(aEnd < bStart || bEnd < aStart)
}

// meetingKm 找到两列相向列车在无等待情况下相遇的公里标
// 两列车的到达时刻之差沿线单调变化，用二分法求零点；两车不同时在线时返回 false
func meetingKm(tl1, tl2 timeline) (km, at float64, ok bool) {
	lo := max(minKm(tl1), minKm(tl2))
	hi := min(maxKm(tl1), maxKm(tl2))
	if lo > hi {
		return 0, 0, false
	}

	diff := func(x float64) (float64, bool) {
		t1, ok1 := tl1.arrivalAt(x)
		t2, ok2 := tl2.arrivalAt(x)
		return t1 - t2, ok1 && ok2
	}
	dLo, okLo := diff(lo)
	dHi, okHi := diff(hi)
	switch {
	case !okLo || !okHi:
		return 0, 0, false
	case dLo == 0:
		at, _ = tl1.arrivalAt(lo)
		return lo, at, true
	case dHi == 0:
		at, _ = tl1.arrivalAt(hi)
		return hi, at, true
	case (dLo > 0) == (dHi > 0):
		return 0, 0, false
	}

	for iter := 0; iter < 60; iter++ {
		mid := (lo + hi) / 2
		dMid, _ := diff(mid)
		if (dMid > 0) == (dLo > 0) {
			lo, dLo = mid, dMid
		} else {
			hi = mid
		}
	}
	km = (lo + hi) / 2
	at, _ = tl1.arrivalAt(km)
	return km, at, true
}

func minKm(tl timeline) float64 {
	m := math.Inf(1)
	for _, p := range tl {
		m = min(m, p.km)
	}
	return m
}

func maxKm(tl timeline) float64 {
	m := math.Inf(-1)
	for _, p := range tl {
		m = max(m, p.km)
	}
	return m
}
