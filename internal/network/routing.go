package network

import (
	"errors"
	"log/slog"

	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
)

// AssignRoutes 为没有计划路线但给出了始发站和终点站的列车规划路线
// 找不到路线时保留原状，列车只在当前轨道上运行
func (s *Session) AssignRoutes(trains []*domain.Train) error {
	for _, train := range trains {
		if len(train.PlannedRoute) > 0 || train.OriginStation == nil || train.DestinationStation == nil {
			continue
		}

		plan, err := s.PlanRoute(*train.OriginStation, *train.DestinationStation, train.Velocity())
		switch {
		case errors.Is(err, ErrNoRoute):
			slog.Warn("未找到路线，列车只在当前轨道上运行", "train", train.ID, "origin", *train.OriginStation, "destination", *train.DestinationStation)
			continue
		case err != nil:
			return err
		}

		if len(plan.TrackIDs) == 0 {
			continue
		}
		train.PlannedRoute = plan.TrackIDs
		train.RouteIndex = 0
		if train.CurrentTrack == 0 {
			train.CurrentTrack = plan.TrackIDs[0]
		}
	}

	return nil
}
