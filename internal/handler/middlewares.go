package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
)

// statusRecorder 记录响应状态码，处理函数没有显式写状态码时为 200
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

// logger 记录每个请求，路网相关的请求带上路网 ID，5xx 以 Warn 级别记录
func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		attrs := []any{"status", rw.status, "ip", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "duration", time.Since(start)}
		if networkID := chi.URLParam(r, "networkID"); networkID != "" {
			attrs = append(attrs, "network", networkID)
		}
		if rw.status >= http.StatusInternalServerError {
			slog.Warn("请求处理失败", attrs...)
			return
		}
		slog.Info("已处理请求", attrs...)
	})
}

// recoverer 把调度过程中的 panic 转换为 500 响应，堆栈单独打印到标准错误
func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				h.internalServerError(w, r, fmt.Errorf("panic: %v", v))
				os.Stderr.Write(debug.Stack())
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// networkSession 把路网会话放入 context，请求处理期间一直使用这一份快照
func (h *Handler) networkSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		networkID := chi.URLParam(r, "networkID")

		session, err := h.registry.Get(networkID)
		if err != nil {
			h.engineError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), NetworkSessionCtx, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
