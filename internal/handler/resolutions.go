package handler

import (
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/network"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/simulator"
)

func (h *Handler) ResolveConflicts(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(NetworkSessionCtx).(*network.Session)

	var req struct {
		Trains             []trainRequest `json:"trains" validate:"required,dive"`
		HorizonMinutes     float64        `json:"horizonMinutes" validate:"gte=0,lte=1440"`
		StepMinutes        float64        `json:"stepMinutes" validate:"gte=0"`
		MaxIterations      int            `json:"maxIterations" validate:"gte=0,lte=10000"`
		PopulationSize     int            `json:"populationSize" validate:"omitempty,gte=2,lte=1000"`
		PriorityConvention string         `json:"priorityConvention" validate:"omitempty,oneof=higher_first lower_first"`
		Seed               int64          `json:"seed"`
		TimeBudgetSeconds  int            `json:"timeBudgetSeconds" validate:"gte=0"`
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
	params := scheduler.DefaultResolverParameters()
	params.PopulationSize = cfg.Resolver.PopulationSize
	params.MaxGenerations = cfg.Resolver.MaxGenerations
	params.MutationRate = cfg.Resolver.MutationRate
	params.EliteRatio = cfg.Resolver.EliteRatio
	params.Workers = cfg.Workers
	params.Seed = cfg.Seed
	params.TimeBudget = time.Duration(cfg.Resolver.TimeBudget) * time.Second
	if req.PopulationSize > 0 {
		params.PopulationSize = req.PopulationSize
	}
	if req.MaxIterations > 0 {
		params.MaxGenerations = req.MaxIterations
	}
	if req.Seed != 0 {
		params.Seed = req.Seed
	}
	if req.TimeBudgetSeconds > 0 {
		params.TimeBudget = time.Duration(req.TimeBudgetSeconds) * time.Second
	}

	opts := scheduler.ResolverOptions{
		HorizonMinutes:     cfg.Resolver.HorizonMinutes,
		StepMinutes:        cfg.Resolver.StepMinutes,
		PriorityConvention: domain.PriorityConvention(cfg.PriorityConvention),
	}
	if req.HorizonMinutes > 0 {
		opts.HorizonMinutes = req.HorizonMinutes
	}
	if req.StepMinutes > 0 {
		opts.StepMinutes = req.StepMinutes
	}
	if req.PriorityConvention != "" {
		opts.PriorityConvention = domain.PriorityConvention(req.PriorityConvention)
	}

	result, err := scheduler.NewResolver(simulator.New(session), params, opts, trains).Resolve(r.Context())
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	if result.RemainingConflicts > 0 {
		h.successResponse(w, r, "未能消除全部冲突，返回当前最优方案", result)
		return
	}
	h.successResponse(w, r, "消解冲突成功", result)
}
