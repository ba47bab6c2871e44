package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/analyzer"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/crossing"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/network"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/simulator"
)

// 调用方输入导致的错误，直接把错误信息返回给调用方
var clientErrors = []error{
	domain.ErrInvalidClock,
	network.ErrEmptyTopology,
	network.ErrInvalidTopology,
	network.ErrUnknownStation,
	simulator.ErrUnknownTrack,
	simulator.ErrInvalidHorizon,
	analyzer.ErrInvalidWindow,
	scheduler.ErrInvalidTimeWindow,
	scheduler.ErrInvalidTarget,
	crossing.ErrNoSections,
	crossing.ErrSameDirection,
	crossing.ErrInvalidWindow,
	crossing.ErrInvalidSpeed,
	crossing.ErrInvalidDirection,
	crossing.ErrTooManySlots,
}

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("服务器内部错误", "method", r.Method, "path", r.URL.Path, "network", chi.URLParam(r, "networkID"), "error", err)
}

// readJSON 解析请求体，时间格式等字段错误会带上 domain 层的错误
func (h *Handler) readJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, domain.ErrInvalidClock) {
			return err
		}
		return fmt.Errorf("请求体格式错误: %w", err)
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logInternalServerError(r, err)
	}
}

// Response 所有接口统一的返回格式，业务上的失败也以 200 返回，由 Success 区分
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, msg string) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: false,
		Message: msg,
		Data:    nil,
	})
}

// badRequest 返回参数错误，校验错误翻译成中文后用分号连接
func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		h.errorResponse(w, r, err.Error())
		return
	}

	messages := make([]string, len(validationErrors))
	for i, fe := range validationErrors {
		messages[i] = fe.Translate(h.translator)
	}
	h.errorResponse(w, r, strings.Join(messages, "；"))
}

// engineError 把调度引擎各模块返回的错误转换为响应
func (h *Handler) engineError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, network.ErrSessionNotFound) {
		h.errorResponse(w, r, "路网不存在")
		return
	}
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			h.badRequest(w, r, err)
			return
		}
	}
	h.internalServerError(w, r, err)
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.writeJSON(w, r, http.StatusInternalServerError, Response{
		Success: false,
		Message: "服务器内部错误",
		Data:    nil,
	})
}

func (h *Handler) successResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}
