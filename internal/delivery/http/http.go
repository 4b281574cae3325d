package http

import (
	"context"

	"task-scheduler/config"
	"task-scheduler/internal/service"
	"task-scheduler/pkg/logger"
	"task-scheduler/pkg/ratelimit"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type HttpAPIHandler struct {
	cfg       *config.Config
	log       *logger.Logger
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
	limiter   *ratelimit.LimiterStore
}

func NewHttpAPIHandler(ctx context.Context, cfg *config.Config, log *logger.Logger, echo *echo.Echo, validator *goValidator.Validate, service *service.Service) *HttpAPIHandler {
	return &HttpAPIHandler{
		cfg:       cfg,
		log:       log,
		echo:      echo,
		validator: validator,
		service:   service,
		limiter:   ratelimit.NewLimiterStore(rate.Limit(cfg.API.RequestsPerSecond), cfg.API.RequestBurst),
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	base := h.echo.Group("/api")
	h.SetupAuth(base)
	h.SetupTasks(base)
}
