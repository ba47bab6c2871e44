package handler

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/network"
)

func (h *Handler) CreateNetwork(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stations []struct {
			ID           int64  `json:"id" validate:"required"`
			Name         string `json:"name" validate:"required"`
			NumPlatforms int32  `json:"numPlatforms" validate:"gte=0"`
		} `json:"stations" validate:"required,dive"`
		Tracks []struct {
			ID            int64    `json:"id" validate:"required"`
			LengthKm      float64  `json:"lengthKm" validate:"gte=0"`
			MaxSpeedKmh   float64  `json:"maxSpeedKmh" validate:"gte=0"`
			Capacity      int32    `json:"capacity" validate:"required,gte=1"`
			IsSingleTrack bool     `json:"isSingleTrack"`
			StationIDs    [2]int64 `json:"stationIDs" validate:"dive,required"`
		} `json:"tracks" validate:"required,min=1,dive"`
		SetDefault bool `json:"setDefault"`
		Persist    bool `json:"persist"` // 是否同时保存到数据库
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	stations := make([]domain.Station, 0, len(req.Stations))
	for _, s := range req.Stations {
		stations = append(stations, domain.Station{ID: s.ID, Name: s.Name, NumPlatforms: s.NumPlatforms})
	}
	tracks := make([]domain.Track, 0, len(req.Tracks))
	for _, t := range req.Tracks {
		tracks = append(tracks, domain.Track{
			ID:            t.ID,
			LengthKm:      t.LengthKm,
			MaxSpeedKmh:   t.MaxSpeedKmh,
			Capacity:      t.Capacity,
			IsSingleTrack: t.IsSingleTrack || t.Capacity == 1,
			StationIDs:    t.StationIDs,
		})
	}

	session, err := network.NewSession(stations, tracks, h.config.Network.PlanCacheSize)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	if req.Persist {
		if h.repository == nil {
			h.errorResponse(w, r, "未配置数据库，无法保存路网")
			return
		}
		if err := h.repository.ReplaceTopology(stations, tracks); err != nil {
			var pgErr *pgconn.PgError
			switch {
			case errors.As(err, &pgErr):
				switch pgErr.ConstraintName {
				case "stations_pkey", "tracks_pkey":
					h.errorResponse(w, r, "车站或轨道 ID 重复")
				default:
					h.internalServerError(w, r, err)
				}
			default:
				h.internalServerError(w, r, err)
			}
			return
		}
	}

	if req.SetDefault {
		h.registry.SetDefault(session)
	} else {
		h.registry.Put(session)
	}

	h.successResponse(w, r, "创建路网成功", session.Summary())
}

// ReloadNetwork 从数据库重新加载路网并设为默认路网，旧的默认路网会话仍然可以通过 ID 访问
func (h *Handler) ReloadNetwork(w http.ResponseWriter, r *http.Request) {
	if h.repository == nil {
		h.errorResponse(w, r, "未配置数据库，无法加载路网")
		return
	}

	session, err := network.LoadSession(h.repository, h.config.Network.PlanCacheSize)
	if err != nil {
		switch {
		case errors.Is(err, network.ErrEmptyTopology):
			h.errorResponse(w, r, "数据库中没有路网数据")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}
	h.registry.SetDefault(session)

	h.successResponse(w, r, "重新加载路网成功", session.Summary())
}

func (h *Handler) GetAllNetworks(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取所有路网成功", h.registry.List())
}

func (h *Handler) GetNetwork(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(NetworkSessionCtx).(*network.Session)

	data := struct {
		network.Summary
		Stations []domain.Station `json:"stations"`
		Tracks   []domain.Track   `json:"tracks"`
	}{
		Summary:  session.Summary(),
		Stations: session.Stations(),
		Tracks:   session.Tracks(),
	}

	h.successResponse(w, r, "获取路网成功", data)
}

func (h *Handler) DeleteNetwork(w http.ResponseWriter, r *http.Request) {
	session := r.Context().Value(NetworkSessionCtx).(*network.Session)

	if !h.registry.Delete(session.ID) {
		h.errorResponse(w, r, "路网不存在")
		return
	}

	h.successResponse(w, r, "删除路网成功", nil)
}
