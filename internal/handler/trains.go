package handler

import (
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/network"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/utils"
)

// 请求中的列车，scheduledDeparture 可以是分钟数，也可以是 "HH:MM[:SS]"
type trainRequest struct {
	ID                 int64          `json:"id" validate:"required"`
	PositionKm         float64        `json:"positionKm" validate:"gte=0"`
	VelocityKmh        float64        `json:"velocityKmh" validate:"gte=0"`
	CurrentTrack       int64          `json:"currentTrack" validate:"gte=0"`
	PlannedRoute       []int64        `json:"plannedRoute"`
	RouteIndex         int            `json:"routeIndex" validate:"gte=0"`
	OriginStation      *int64         `json:"originStation"`
	DestinationStation *int64         `json:"destinationStation"`
	ScheduledDeparture domain.Minutes `json:"scheduledDeparture"`
	Priority           int32          `json:"priority" validate:"omitempty,min=1,max=10"`
	DelayMinutes       float64        `json:"delayMinutes" validate:"gte=0"`
	DwellDelays        []float64      `json:"dwellDelays" validate:"dive,gte=0"`
}

func (t *trainRequest) toDomain() *domain.Train {
	priority := t.Priority
	if priority == 0 {
		priority = 5
	}
	return &domain.Train{
		ID:                 t.ID,
		PositionKm:         t.PositionKm,
		VelocityKmh:        t.VelocityKmh,
		CurrentTrack:       t.CurrentTrack,
		PlannedRoute:       append([]int64{}, t.PlannedRoute...),
		RouteIndex:         t.RouteIndex,
		OriginStation:      t.OriginStation,
		DestinationStation: t.DestinationStation,
		ScheduledDeparture: t.ScheduledDeparture,
		Priority:           priority,
		DelayMinutes:       t.DelayMinutes,
		DwellDelays:        append([]float64{}, t.DwellDelays...),
	}
}

// prepareTrains 转换请求中的列车，为只给出起讫站的列车规划路线，并检查引用的轨道和车站
func prepareTrains(session *network.Session, reqs []trainRequest) ([]*domain.Train, error) {
	trains := make([]*domain.Train, 0, len(reqs))
	for i := range reqs {
		trains = append(trains, reqs[i].toDomain())
	}

	if err := session.AssignRoutes(trains); err != nil {
		return nil, err
	}
	if err := utils.ValidateTrains(trains, session.HasTrack, session.HasStation); err != nil {
		return nil, err
	}

	return trains, nil
}
