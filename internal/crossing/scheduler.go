package crossing

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
	"golang.org/x/sync/errgroup"
)

const (
	MinSlotGapMinutes   = 5.0  // 两列车发车时刻至少间隔 5 分钟
	MaxWaitMinutes      = 30.0 // 总等待超过 30 分钟视为不可行
	MaxProposals        = 10
	MidpointBonusKm     = 10.0 // 交会点距线路中点在该范围内时加分
	WaitPenaltyPerMin   = 0.01
	TrafficPenalty      = 0.1
	MidpointBonus       = 0.1
	DefaultExistingKmh  = 120.0
	NoCrossingKm        = -1.0
	MaxSlots            = 200 // 候选发车时刻上限，组合数随其平方增长
	stationMatchDistKm  = 1.0
	defaultFrequencyMin = 60
)

var (
	ErrNoSections       = errors.New("线路区段不能为空")
	ErrSameDirection    = errors.New("两列车的运行方向必须相反")
	ErrInvalidWindow    = errors.New("时间窗口结束时刻不能早于开始时刻")
	ErrInvalidSpeed     = errors.New("列车平均速度必须大于 0")
	ErrInvalidDirection = errors.New("运行方向只能是 forward 或 backward")
	ErrTooManySlots     = errors.New("候选发车时刻过多，请缩短时间窗口或增大发车间隔")
)

// Scheduler 相向列车交会调度器，区段表在创建后只读
type Scheduler struct {
	sections        []domain.TrackSection
	crossingIndexes []int // 可交会车站在 sections 中的下标
	totalLengthKm   float64
}

func New(sections []domain.TrackSection) (*Scheduler, error) {
	if len(sections) == 0 {
		return nil, ErrNoSections
	}

	sorted := slices.Clone(sections)
	slices.SortStableFunc(sorted, func(a, b domain.TrackSection) int {
		return cmp.Compare(a.StartKm, b.StartKm)
	})

	s := &Scheduler{
		sections: sorted,
		totalLengthKm: lo.MaxBy(sorted, func(a, b domain.TrackSection) bool {
			return a.EndKm > b.EndKm
		}).EndKm,
	}
	for i, section := range sorted {
		if section.CanCross && section.HasStation {
			s.crossingIndexes = append(s.crossingIndexes, i)
		}
	}

	slog.Info("线路分析完成", "sections", len(sorted), "singleTrack", lo.CountBy(sorted, func(section domain.TrackSection) bool {
		return section.IsSingleTrack()
	}), "crossingStations", len(s.crossingIndexes))

	return s, nil
}

type slotPair struct {
	first, second float64 // 相对时间窗口开始的分钟数
}

// FindOptimalCrossing 枚举两列车的发车时刻组合，返回按总等待时间升序、置信度降序排列的前若干个方案
// 发车时刻每隔 frequencyMinutes/2 分钟取一个，各组合的评估相互独立，并行进行
func (s *Scheduler) FindOptimalCrossing(ctx context.Context, train1, train2 domain.TrainPath, windowStart, windowEnd time.Time, frequencyMinutes int, existing []domain.ExistingTrain) ([]domain.CrossingProposal, error) {
	if err := validateTrain(&train1); err != nil {
		return nil, err
	}
	if err := validateTrain(&train2); err != nil {
		return nil, err
	}
	if train1.Direction == train2.Direction {
		return nil, fmt.Errorf("%w: %s", ErrSameDirection, train1.Direction)
	}
	if windowEnd.Before(windowStart) {
		return nil, ErrInvalidWindow
	}
	if frequencyMinutes <= 0 {
		frequencyMinutes = defaultFrequencyMin
	}

	slots, err := generateSlots(windowEnd.Sub(windowStart).Minutes(), frequencyMinutes)
	if err != nil {
		return nil, err
	}
	pairs := make([]slotPair, 0, len(slots)*len(slots))
	for _, first := range slots {
		for _, second := range slots {
			if math.Abs(second-first) < MinSlotGapMinutes {
				continue
			}
			pairs = append(pairs, slotPair{first: first, second: second})
		}
	}

	slog.Info("开始搜索交会方案", "train1", train1.TrainID, "train2", train2.TrainID, "slots", len(slots), "pairs", len(pairs))

	results := make([]*domain.CrossingProposal, len(pairs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, pair := range pairs {
		i, pair := i, pair
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = s.evaluate(&train1, &train2, pair, windowStart, existing)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	proposals := make([]domain.CrossingProposal, 0, len(results))
	for _, p := range results {
		if p != nil {
			proposals = append(proposals, *p)
		}
	}
	slices.SortStableFunc(proposals, func(a, b domain.CrossingProposal) int {
		if c := cmp.Compare(a.TotalDelayMinutes, b.TotalDelayMinutes); c != 0 {
			return c
		}
		return cmp.Compare(b.Confidence, a.Confidence)
	})

	slog.Info("交会方案搜索完成", "proposals", len(proposals))
	if len(proposals) > MaxProposals {
		proposals = proposals[:MaxProposals]
	}
	return proposals, nil
}

func validateTrain(train *domain.TrainPath) error {
	if train.Direction != domain.DirectionForward && train.Direction != domain.DirectionBackward {
		return fmt.Errorf("%w: %q", ErrInvalidDirection, train.Direction)
	}
	if train.AvgSpeedKmh <= 0 || math.IsNaN(train.AvgSpeedKmh) {
		return fmt.Errorf("%w: %s", ErrInvalidSpeed, train.TrainID)
	}
	return nil
}

// generateSlots 在 [0, window] 内每隔 frequency/2 分钟生成一个候选发车时刻
func generateSlots(windowMinutes float64, frequencyMinutes int) ([]float64, error) {
	step := float64(max(1, frequencyMinutes/2))
	n := int(math.Floor(windowMinutes/step)) + 1
	if n > MaxSlots {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManySlots, n, MaxSlots)
	}

	slots := make([]float64, n)
	for i := range slots {
		slots[i] = float64(i) * step
	}
	return slots, nil
}

// evaluate 评估一组发车时刻，不可行时返回 nil
func (s *Scheduler) evaluate(train1, train2 *domain.TrainPath, pair slotPair, windowStart time.Time, existing []domain.ExistingTrain) *domain.CrossingProposal {
	tl1 := s.buildTimeline(train1, pair.first)
	tl2 := s.buildTimeline(train2, pair.second)
	conflicts := s.singleTrackConflicts(tl1, tl2)
	traffic := s.trafficConflicts(tl1, tl2, existing)

	at := func(minutes float64) time.Time {
		return windowStart.Add(time.Duration(minutes * float64(time.Minute)))
	}
	proposal := &domain.CrossingProposal{
		Train1Departure:  at(pair.first),
		Train2Departure:  at(pair.second),
		CrossingPointKm:  NoCrossingKm,
		CrossingTime:     at(pair.first),
		ConflictsAvoided: conflicts,
		TrafficConflicts: traffic,
	}

	if conflicts == 0 {
		// 无需等待，两车若同时在线则记录自然相遇的位置
		if km, t, ok := meetingKm(tl1, tl2); ok {
			proposal.CrossingPointKm = km
			proposal.CrossingTime = at(t)
			proposal.CrossingStation = s.stationAt(km)
		}
	} else {
		km, t, wait1, wait2, ok := s.bestCrossingStation(tl1, tl2)
		if !ok {
			return nil
		}
		proposal.CrossingPointKm = km
		proposal.CrossingTime = at(t)
		proposal.CrossingStation = s.stationAt(km)
		proposal.Train1WaitMinutes = wait1
		proposal.Train2WaitMinutes = wait2
		proposal.TotalDelayMinutes = wait1 + wait2
	}

	proposal.Confidence = s.confidence(proposal)
	proposal.Reasoning = s.reasoning(train1, train2, proposal)
	return proposal
}

// singleTrackConflicts 统计两列车占用时间重叠的单线区段数
func (s *Scheduler) singleTrackConflicts(tl1, tl2 timeline) int {
	conflicts := 0
	for i := range s.sections {
		section := &s.sections[i]
		if !section.IsSingleTrack() {
			continue
		}
		enter1, leave1, ok1 := tl1.span(section.StartKm, section.EndKm)
		enter2, leave2, ok2 := tl2.span(section.StartKm, section.EndKm)
		if ok1 && ok2 && overlaps(enter1, leave1, enter2, leave2) {
			conflicts++
		}
	}
	return conflicts
}

// bestCrossingStation 在可交会车站中寻找总等待时间最短的交会点
// 先到达车站的列车承担全部等待，总等待超过 MaxWaitMinutes 的车站不予考虑
func (s *Scheduler) bestCrossingStation(tl1, tl2 timeline) (km, at, wait1, wait2 float64, ok bool) {
	bestWait := math.Inf(1)
	for _, idx := range s.crossingIndexes {
		stationKm := s.sections[idx].MidpointKm()
		arrival1, ok1 := tl1.arrivalAt(stationKm)
		arrival2, ok2 := tl2.arrivalAt(stationKm)
		if !ok1 || !ok2 {
			continue
		}

		gap := arrival2 - arrival1
		w1, w2, crossingAt := 0.0, 0.0, arrival1
		if gap > 0 {
			w1, crossingAt = gap, arrival2
		} else {
			w2 = -gap
		}

		total := w1 + w2
		if total < MaxWaitMinutes && total < bestWait {
			bestWait = total
			km, at, wait1, wait2, ok = stationKm, crossingAt, w1, w2, true
		}
	}
	return km, at, wait1, wait2, ok
}

// trafficConflicts 统计与既有列车冲突的数量，每列既有列车最多计一次
// 既有列车从时间窗口开始时刻起按自身速度和方向匀速推算
func (s *Scheduler) trafficConflicts(tl1, tl2 timeline, existing []domain.ExistingTrain) int {
	conflicts := 0
	for _, train := range existing {
		velocity := train.VelocityKmh
		if velocity <= 0 {
			velocity = DefaultExistingKmh
		}
		kmPerMin := velocity / 60

		for i := range s.sections {
			section := &s.sections[i]
			if !section.IsSingleTrack() {
				continue
			}

			// 既有列车到达区段两端的时刻
			var enter, leave float64
			switch train.Direction {
			case domain.DirectionBackward:
				if section.StartKm >= train.PositionKm {
					continue
				}
				enter = max(0, (train.PositionKm-section.EndKm)/kmPerMin)
				leave = (train.PositionKm - section.StartKm) / kmPerMin
			default:
				if section.EndKm <= train.PositionKm {
					continue
				}
				enter = max(0, (section.StartKm-train.PositionKm)/kmPerMin)
				leave = (section.EndKm - train.PositionKm) / kmPerMin
			}

			hit := false
			for _, tl := range []timeline{tl1, tl2} {
				if e, l, ok := tl.span(section.StartKm, section.EndKm); ok && overlaps(enter, leave, e, l) {
					hit = true
				}
			}
			if hit {
				conflicts++
				break
			}
		}
	}
	return conflicts
}

// confidence = 1 - 总等待 * 1% - 既有列车冲突 * 0.1，交会点靠近线路中点时加 0.1，截断到 [0, 1]
func (s *Scheduler) confidence(p *domain.CrossingProposal) float64 {
	c := 1.0 - p.TotalDelayMinutes*WaitPenaltyPerMin - float64(p.TrafficConflicts)*TrafficPenalty
	if p.CrossingPointKm >= 0 && math.Abs(p.CrossingPointKm-s.totalLengthKm/2) < MidpointBonusKm {
		c += MidpointBonus
	}
	return lo.Clamp(c, 0, 1)
}

// stationAt 返回公里标所在的车站名，不在车站内时返回空字符串
func (s *Scheduler) stationAt(km float64) string {
	for _, idx := range s.crossingIndexes {
		if math.Abs(s.sections[idx].MidpointKm()-km) < stationMatchDistKm {
			return s.sections[idx].StationName
		}
	}
	for _, section := range s.sections {
		if section.HasStation && section.StartKm <= km && km <= section.EndKm {
			return section.StationName
		}
	}
	return ""
}

func (s *Scheduler) reasoning(train1, train2 *domain.TrainPath, p *domain.CrossingProposal) string {
	parts := make([]string, 0, 4)

	switch {
	case p.CrossingPointKm < 0:
		parts = append(parts, "两列车运行时间完全错开，无需交会")
	case p.CrossingStation != "":
		parts = append(parts, fmt.Sprintf("在%s（km %.1f）交会", p.CrossingStation, p.CrossingPointKm))
	default:
		parts = append(parts, fmt.Sprintf("在 km %.1f 处交会", p.CrossingPointKm))
	}

	if p.Train1WaitMinutes > 0 {
		parts = append(parts, fmt.Sprintf("%s 等待 %.0f 分钟", train1.TrainID, p.Train1WaitMinutes))
	}
	if p.Train2WaitMinutes > 0 {
		parts = append(parts, fmt.Sprintf("%s 等待 %.0f 分钟", train2.TrainID, p.Train2WaitMinutes))
	}
	if p.TotalDelayMinutes == 0 && p.CrossingPointKm >= 0 {
		parts = append(parts, "无需等待")
	}

	if p.TrafficConflicts > 0 {
		parts = append(parts, fmt.Sprintf("与既有列车存在 %d 处潜在冲突", p.TrafficConflicts))
	} else {
		parts = append(parts, "与既有列车无冲突")
	}

	return strings.Join(parts, "；") + "。"
}
