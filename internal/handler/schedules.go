package handler

import (
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/analyzer"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/network"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/simulator"
)

func (h *Handler) OptimizeSchedule(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(NetworkSessionCtx).(*network.Session)

	var req struct {
		Trains            []trainRequest `json:"trains" validate:"required,dive"`
		WindowStart       domain.Minutes `json:"windowStart"`
		WindowEnd         domain.Minutes `json:"windowEnd" validate:"required"`
		TargetUtilization float64        `json:"targetUtilization" validate:"required,gt=0,lte=1"`
		MaxIterations     int            `json:"maxIterations" validate:"gte=0,lte=100000"`
		PopulationSize    int            `json:"populationSize" validate:"omitempty,gte=2,lte=1000"`
		MutationRate      float64        `json:"mutationRate" validate:"gte=0,lte=1"`
		Seed              int64          `json:"seed"`
		TimeBudgetSeconds int            `json:"timeBudgetSeconds" validate:"gte=0"`
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

	cfg := h.config.Scheduler
	params := scheduler.DefaultOptimizerParameters()
	params.PopulationSize = cfg.Optimizer.PopulationSize
	params.MaxGenerations = cfg.Optimizer.MaxGenerations
	params.MutationRate = cfg.Optimizer.MutationRate
	params.EliteRatio = cfg.Optimizer.EliteRatio
	params.Workers = cfg.Workers
	params.Seed = cfg.Seed
	params.TimeBudget = time.Duration(cfg.Optimizer.TimeBudget) * time.Second
	if req.PopulationSize > 0 {
		params.PopulationSize = req.PopulationSize
	}
	if req.MaxIterations > 0 {
		params.MaxGenerations = req.MaxIterations
	}
	if req.MutationRate > 0 {
		params.MutationRate = req.MutationRate
	}
	if req.Seed != 0 {
		params.Seed = req.Seed
	}
	if req.TimeBudgetSeconds > 0 {
		params.TimeBudget = time.Duration(req.TimeBudgetSeconds) * time.Second
	}

	opts := scheduler.OptimizerOptions{
		WindowStart:       req.WindowStart,
		WindowEnd:         req.WindowEnd,
		TargetUtilization: req.TargetUtilization,
		StepMinutes:       cfg.Optimizer.StepMinutes,
		Patience:          cfg.Optimizer.Patience,
	}

	optimizer, err := scheduler.NewOptimizer(simulator.New(session), analyzer.New(session), params, opts, trains)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	result, err := optimizer.Optimize(r.Context())
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "生成运行图成功", result)
}
