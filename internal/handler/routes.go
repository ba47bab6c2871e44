package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/network"
)

func (h *Handler) PlanRoute(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(NetworkSessionCtx).(*network.Session)

	var req struct {
		OriginStation      int64   `json:"originStation" validate:"required"`
		DestinationStation int64   `json:"destinationStation" validate:"required"`
		AvgSpeedKmh        float64 `json:"avgSpeedKmh" validate:"gte=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if req.AvgSpeedKmh == 0 {
		req.AvgSpeedKmh = domain.DefaultVelocityKmh
	}

	// 先从 redis 中查找，缓存按会话区分，路网重建后自然失效
	key := fmt.Sprintf("route_%s_%d_%d_%g", session.ID, req.OriginStation, req.DestinationStation, req.AvgSpeedKmh)
	if plan, ok := h.getCachedRoute(r.Context(), key); ok {
		h.successResponse(w, r, "规划路线成功", plan)
		return
	}

	plan, err := session.PlanRoute(req.OriginStation, req.DestinationStation, req.AvgSpeedKmh)
	if err != nil {
		// 没有路线是正常的结果，不视为错误
		if errors.Is(err, network.ErrNoRoute) {
			h.successResponse(w, r, "未找到路线", nil)
			return
		}
		h.engineError(w, r, err)
		return
	}

	h.setCachedRoute(r.Context(), key, plan)
	h.successResponse(w, r, "规划路线成功", plan)
}

func (h *Handler) getCachedRoute(ctx context.Context, key string) (*domain.RoutePlan, bool) {
	if h.redisClient == nil {
		return nil, false
	}

	data, err := h.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("无法从 redis 读取路线缓存", "key", key, "error", err)
		}
		return nil, false
	}

	plan := &domain.RoutePlan{}
	if err := json.Unmarshal(data, plan); err != nil {
		slog.Warn("路线缓存格式错误", "key", key, "error", err)
		return nil, false
	}
	return plan, true
}

// 缓存写入失败不影响本次请求
func (h *Handler) setCachedRoute(ctx context.Context, key string, plan *domain.RoutePlan) {
	if h.redisClient == nil {
		return
	}

	data, err := json.Marshal(plan)
	if err != nil {
		slog.Warn("无法序列化路线", "error", err)
		return
	}
	expiration := time.Duration(h.config.Redis.RouteCacheExpiration) * time.Second
	if err := h.redisClient.Set(ctx, key, data, expiration).Err(); err != nil {
		slog.Warn("无法写入路线缓存", "key", key, "error", err)
	}
}
