package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/analyzer"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/network"
)

func (h *Handler) AnalyzeCapacity(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(NetworkSessionCtx).(*network.Session)

	var req struct {
		Trains      []trainRequest `json:"trains" validate:"dive"`
		WindowHours float64        `json:"windowHours" validate:"gte=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if req.WindowHours == 0 {
		req.WindowHours = analyzer.DefaultWindowHours
	}

	trains, err := prepareTrains(session, req.Trains)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	an := analyzer.New(session)
	metrics, err := an.AnalyzeCapacity(trains, req.WindowHours)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	data := struct {
		Tracks       []domain.CapacityMetrics `json:"tracks"`
		Bottlenecks  []int64                  `json:"bottlenecks"`
		Statistics   domain.NetworkStats      `json:"statistics"`
		Connectivity domain.Connectivity      `json:"connectivity"`
	}{
		Tracks:       metrics,
		Bottlenecks:  analyzer.IdentifyBottlenecks(metrics),
		Statistics:   analyzer.NetworkUtilization(metrics),
		Connectivity: an.Connectivity(),
	}

	h.successResponse(w, r, "分析容量成功", data)
}
