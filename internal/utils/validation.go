package utils

import (
	"errors"
	"fmt"

	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
)

func ValidateTopology(stations []domain.Station, tracks []domain.Track) error {
	if len(tracks) == 0 {
		return errors.New("路网中没有任何轨道")
	}

	stationSet := make(map[int64]bool, len(stations))
	for _, s := range stations {
		if stationSet[s.ID] {
			return fmt.Errorf("车站 %d 重复", s.ID)
		}
		stationSet[s.ID] = true
	}

	trackSet := make(map[int64]bool, len(tracks))
	for _, t := range tracks {
		if trackSet[t.ID] {
			return fmt.Errorf("轨道 %d 重复", t.ID)
		}
		trackSet[t.ID] = true

		if t.LengthKm < 0 {
			return fmt.Errorf("轨道 %d 的长度不能为负数", t.ID)
		}
		if t.MaxSpeedKmh < 0 {
			return fmt.Errorf("轨道 %d 的限速不能为负数", t.ID)
		}
		if t.Capacity < 1 {
			return fmt.Errorf("轨道 %d 的容量必须至少为 1", t.ID)
		}
		if t.IsSingleTrack && t.Capacity > 1 {
			return fmt.Errorf("单线轨道 %d 的容量只能为 1", t.ID)
		}
		for _, sid := range t.StationIDs {
			if !stationSet[sid] {
				return fmt.Errorf("轨道 %d 连接的车站 %d 不存在", t.ID, sid)
			}
		}
	}

	return nil
}

// ValidateTrains 检查列车引用的轨道和车站是否都存在于路网中
func ValidateTrains(trains []*domain.Train, hasTrack func(int64) bool, hasStation func(int64) bool) error {
	seen := make(map[int64]bool, len(trains))
	for _, train := range trains {
		if seen[train.ID] {
			return fmt.Errorf("列车 %d 重复", train.ID)
		}
		seen[train.ID] = true

		if len(train.PlannedRoute) == 0 && !hasTrack(train.CurrentTrack) {
			return fmt.Errorf("列车 %d 的当前轨道 %d 不存在", train.ID, train.CurrentTrack)
		}
		for _, trackID := range train.PlannedRoute {
			if !hasTrack(trackID) {
				return fmt.Errorf("列车 %d 的计划路线中的轨道 %d 不存在", train.ID, trackID)
			}
		}
		if train.OriginStation != nil && !hasStation(*train.OriginStation) {
			return fmt.Errorf("列车 %d 的始发站 %d 不存在", train.ID, *train.OriginStation)
		}
		if train.DestinationStation != nil && !hasStation(*train.DestinationStation) {
			return fmt.Errorf("列车 %d 的终点站 %d 不存在", train.ID, *train.DestinationStation)
		}
		for i, d := range train.DwellDelays {
			if d < 0 {
				return fmt.Errorf("列车 %d 的第 %d 个停站延误不能为负数", train.ID, i+1)
			}
		}
	}

	return nil
}

func ValidateSections(sections []domain.TrackSection) error {
	if len(sections) == 0 {
		return errors.New("线路中没有任何区段")
	}

	for _, s := range sections {
		if s.EndKm <= s.StartKm {
			return fmt.Errorf("区段 %d 的终点公里标必须大于起点公里标", s.SectionID)
		}
		if s.MaxSpeedKmh <= 0 {
			return fmt.Errorf("区段 %d 的限速必须大于 0", s.SectionID)
		}
	}

	return nil
}
