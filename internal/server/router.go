package server

import (
	"fmt"

	"github.com/abduss/easyshare/internal/auth"
	"github.com/abduss/easyshare/internal/blob"
	"github.com/abduss/easyshare/internal/config"
	"github.com/abduss/easyshare/internal/file"
	"github.com/abduss/easyshare/internal/logger"
	"github.com/abduss/easyshare/internal/metrics"
	"github.com/abduss/easyshare/internal/web"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Dependencies groups the services required by the HTTP router.
// DB is nil when both stores run in memory.
type Dependencies struct {
	Config      config.Config
	DB          *pgxpool.Pool
	Blobs       blob.Store
	AuthService *auth.Service
	FileService *file.Service
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware())
	router.Use(metrics.Middleware())

	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)
	if err := web.RegisterStatic(router); err != nil {
		return nil, err
	}

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	if deps.AuthService == nil || deps.FileService == nil {
		return nil, fmt.Errorf("router requires auth and file services")
	}
	auth.RegisterRoutes(router, deps.AuthService)

	protected := router.Group("/")
	protected.Use(auth.SessionMiddleware(deps.AuthService))
	file.RegisterRoutes(protected, deps.FileService, deps.Config.Server.BaseURL)

	return router, nil
}
