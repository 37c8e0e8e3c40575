package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/mealplan-ai/internal/domain/auth"
	"github.com/yanqian/mealplan-ai/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
// authSvc may be nil, in which case plan routes are open.
func NewRouter(cfg *config.Config, handler *Handler, authSvc auth.Service) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		requestLogger(handler.logger),
		errorHandlingMiddleware(handler.logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		bodyLimitMiddleware(cfg.HTTP.MaxBodyBytes),
	)

	router.GET("/healthz", handler.Healthz)
	router.POST("/normalize-preview", handler.PreviewProfile)
	router.POST("/api/process-form", handler.PreviewProfile)

	limited := rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger)
	protected := router.Group("/", authMiddleware(authSvc))
	{
		protected.POST("/plan", limited, handler.GeneratePlan)
		protected.POST("/api/mealplan", limited, handler.GeneratePlan)
		protected.POST("/mealplan", limited, handler.SubmitPlanJob)
		protected.GET("/mealplan-status", handler.PlanJobStatus)
		protected.GET("/plan/history", handler.PlanHistory)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
