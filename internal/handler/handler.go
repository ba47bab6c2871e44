package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/network"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/repository"
)

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository // 未配置数据库时为 nil
	translator  ut.Translator
	redisClient *redis.Client // 未启用 redis 时为 nil
	registry    *network.Registry

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, rdb *redis.Client, registry *network.Registry) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		redisClient: rdb,
		registry:    registry,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 路网会话
	h.Mux.Route("/networks", func(r chi.Router) {
		r.Post("/", h.CreateNetwork)
		r.Get("/", h.GetAllNetworks)
		r.Post("/reload", h.ReloadNetwork)
		r.Route("/{networkID}", func(r chi.Router) {
			r.Use(h.networkSession)
			r.Get("/", h.GetNetwork)
			r.Delete("/", h.DeleteNetwork)
			r.Post("/routes", h.PlanRoute)
			r.Post("/positions", h.SimulatePositions)
			r.Post("/conflicts", h.DetectConflicts)
			r.Post("/meeting-point", h.FindMeetingPoint)
			r.Post("/capacity", h.AnalyzeCapacity)
			r.Post("/resolutions", h.ResolveConflicts)
			r.Post("/schedules", h.OptimizeSchedule)
		})
	})

	// 相向列车交会，与路网会话无关
	h.Mux.Post("/crossings", h.FindOptimalCrossing)
}
