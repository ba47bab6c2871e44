package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/network"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/simulator"
)

// SimulatePositions 计算一组列车在某一时刻的位置
// timeOffsetMinutes 以这组列车中最早的发车时刻为 0 点
func (h *Handler) SimulatePositions(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(NetworkSessionCtx).(*network.Session)

	var req struct {
		Trains            []trainRequest `json:"trains" validate:"required,min=1,dive"`
		TimeOffsetMinutes float64        `json:"timeOffsetMinutes" validate:"gte=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	trains, err := prepareTrains(session, req.Trains)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	sim := simulator.New(session)
	reference := simulator.ReferenceTime(trains)
	positions := make([]domain.TrainPosition, 0, len(trains))
	for _, train := range trains {
		elapsed := req.TimeOffsetMinutes - float64(train.ScheduledDeparture-reference)
		position, err := sim.SimulatePosition(train, elapsed)
		if err != nil {
			h.engineError(w, r, err)
			return
		}
		positions = append(positions, position)
	}

	h.successResponse(w, r, "推演列车位置成功", positions)
}

func (h *Handler) DetectConflicts(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(NetworkSessionCtx).(*network.Session)

	var req struct {
		Trains         []trainRequest `json:"trains" validate:"required,dive"`
		HorizonMinutes float64        `json:"horizonMinutes" validate:"gte=0,lte=1440"`
		StepMinutes    float64        `json:"stepMinutes" validate:"gte=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if req.HorizonMinutes == 0 {
		req.HorizonMinutes = h.config.Scheduler.Resolver.HorizonMinutes
	}
	if req.StepMinutes == 0 {
		req.StepMinutes = h.config.Scheduler.Resolver.StepMinutes
	}

	trains, err := prepareTrains(session, req.Trains)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	conflicts, err := simulator.New(session).DetectFutureConflicts(trains, req.HorizonMinutes, req.StepMinutes)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	data := struct {
		Conflicts     []domain.Conflict `json:"conflicts"`
		ConflictCount int               `json:"conflictCount"`
		Reference     domain.Minutes    `json:"reference"`
	}{
		Conflicts:     conflicts,
		ConflictCount: len(conflicts),
		Reference:     simulator.ReferenceTime(trains),
	}

	h.successResponse(w, r, "检测冲突成功", data)
}

func (h *Handler) FindMeetingPoint(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(NetworkSessionCtx).(*network.Session)

	var req struct {
		Train1 trainRequest `json:"train1" validate:"required"`
		Train2 trainRequest `json:"train2" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	trains, err := prepareTrains(session, []trainRequest{req.Train1, req.Train2})
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	mp, err := simulator.New(session).FindMeetingPoint(trains[0], trains[1])
	if err != nil {
		h.engineError(w, r, err)
		return
	}
	if mp == nil {
		h.successResponse(w, r, "两列车不会相遇", nil)
		return
	}

	h.successResponse(w, r, "查找会车点成功", mp)
}
