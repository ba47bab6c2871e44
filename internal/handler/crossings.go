package handler

import (
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/crossing"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/utils"
)

func (h *Handler) FindOptimalCrossing(w http.ResponseWriter, r *http.Request) {
	type trainPath struct {
		TrainID       string        `json:"trainID" validate:"required"`
		Direction     string        `json:"direction" validate:"required,oneof=forward backward"`
		StartKm       float64       `json:"startKm" validate:"gte=0"`
		EndKm         float64       `json:"endKm" validate:"gte=0"`
		AvgSpeedKmh   float64       `json:"avgSpeedKmh" validate:"required,gt=0"`
		DepartureTime time.Time     `json:"departureTime"`
		Stops         []domain.Stop `json:"stops"`
		Priority      int32         `json:"priority" validate:"omitempty,min=1,max=10"`
	}
	var req struct {
		Sections []domain.TrackSection `json:"sections" validate:"required,min=1"`
		Train1   trainPath             `json:"train1" validate:"required"`
		Train2   trainPath             `json:"train2" validate:"required"`
		// 时间窗口为空时以 train1 的发车时刻为开始，持续两小时
		WindowStart      time.Time `json:"windowStart"`
		WindowEnd        time.Time `json:"windowEnd"`
		FrequencyMinutes int       `json:"frequencyMinutes" validate:"gte=0"`
		ExistingTraffic  []struct {
			TrainID     string  `json:"trainID" validate:"required"`
			PositionKm  float64 `json:"positionKm" validate:"gte=0"`
			VelocityKmh float64 `json:"velocityKmh" validate:"gte=0"`
			Direction   string  `json:"direction" validate:"required,oneof=forward backward"`
		} `json:"existingTraffic" validate:"dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateSections(req.Sections); err != nil {
		h.badRequest(w, r, err)
		return
	}

	toPath := func(t trainPath) domain.TrainPath {
		return domain.TrainPath{
			TrainID:       t.TrainID,
			Direction:     domain.Direction(t.Direction),
			StartKm:       t.StartKm,
			EndKm:         t.EndKm,
			AvgSpeedKmh:   t.AvgSpeedKmh,
			DepartureTime: t.DepartureTime,
			Stops:         t.Stops,
			Priority:      t.Priority,
		}
	}
	train1, train2 := toPath(req.Train1), toPath(req.Train2)

	if req.WindowStart.IsZero() {
		req.WindowStart = train1.DepartureTime
	}
	if req.WindowEnd.IsZero() {
		req.WindowEnd = req.WindowStart.Add(2 * time.Hour)
	}

	existing := make([]domain.ExistingTrain, 0, len(req.ExistingTraffic))
	for _, t := range req.ExistingTraffic {
		existing = append(existing, domain.ExistingTrain{
			TrainID:     t.TrainID,
			PositionKm:  t.PositionKm,
			VelocityKmh: t.VelocityKmh,
			Direction:   domain.Direction(t.Direction),
		})
	}

	cs, err := crossing.New(req.Sections)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	proposals, err := cs.FindOptimalCrossing(r.Context(), train1, train2, req.WindowStart, req.WindowEnd, req.FrequencyMinutes, existing)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	if len(proposals) == 0 {
		h.successResponse(w, r, "未找到可行的交会方案", proposals)
		return
	}
	h.successResponse(w, r, "查找交会方案成功", proposals)
}
