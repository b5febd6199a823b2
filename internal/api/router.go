// Package api отдаёт виды и открытые таблицы по HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"vista/internal/datasource"
	"vista/internal/registry"
	"vista/internal/view"
)

type Deps struct {
	Registry registry.Registry
	Source   datasource.Source
	Logger   zerolog.Logger

	// Catalog перечитывает виды с диска для POST /api/admin/reload; nil — перезагрузка выключена.
	Catalog func() (view.Catalog, error)

	Limit           int
	MinDisplay      time.Duration
	ConfirmationTTL time.Duration
	Metrics         bool
}

type Server struct {
	deps          Deps
	log           zerolog.Logger
	sessions      *Sessions
	confirmations *Confirmations
}

func NewServer(d Deps) *Server {
	if d.ConfirmationTTL <= 0 {
		d.ConfirmationTTL = 5 * time.Minute
	}
	return &Server{
		deps:          d,
		log:           d.Logger,
		sessions:      NewSessions(),
		confirmations: NewConfirmations(d.ConfirmationTTL),
	}
}

func (s *Server) Sessions() *Sessions { return s.sessions }

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	r.GET("/healthz", HealthHandler(s))
	if s.deps.Metrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/views", ViewListHandler(s))
		apiGroup.GET("/views/:id", ViewMetaHandler(s))
		apiGroup.GET("/views/:id/rows", ViewRowsHandler(s))
		apiGroup.DELETE("/views/:id", ViewDeleteHandler(s))
		apiGroup.POST("/views/:id/sessions", SessionCreateHandler(s))

		apiGroup.GET("/sessions/:sid", SessionGetHandler(s))
		apiGroup.DELETE("/sessions/:sid", SessionCloseHandler(s))
		apiGroup.POST("/sessions/:sid/reload", SessionReloadHandler(s))
		apiGroup.POST("/sessions/:sid/limit", SessionLimitHandler(s))
		apiGroup.POST("/sessions/:sid/page", SessionPageHandler(s))
		apiGroup.POST("/sessions/:sid/search", SessionSearchHandler(s))
		apiGroup.DELETE("/sessions/:sid/search", SessionClearSearchHandler(s))
		apiGroup.POST("/sessions/:sid/filter", SessionFilterHandler(s))
		apiGroup.DELETE("/sessions/:sid/filter", SessionDeselectFilterHandler(s))
		apiGroup.GET("/sessions/:sid/notifications", NotificationsHandler(s))

		apiGroup.POST("/sessions/:sid/rows/:index/edit", RowEditHandler(s))
		apiGroup.POST("/sessions/:sid/rows/:index/delete", RowDeleteHandler(s))
		apiGroup.POST("/sessions/:sid/rows/:index/toggle", RowToggleHandler(s))

		apiGroup.POST("/confirmations/:cid", ConfirmHandler(s))

		apiGroup.POST("/admin/reload", AdminReloadHandler(s))
	}
	return r
}

// WatchRegistry закрывает сессии удалённых видов при каждом изменении реестра.
// Блокирует до отмены ctx.
func (s *Server) WatchRegistry(ctx context.Context) {
	ch := s.deps.Registry.Subscribe()
	defer s.deps.Registry.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			n, err := s.sessions.Prune(ctx, s.deps.Registry)
			if err != nil {
				s.log.Warn().Err(err).Msg("prune sessions")
				continue
			}
			if n > 0 {
				s.log.Info().Int("closed", n).Msg("sessions of removed views closed")
			}
		}
	}
}

func HealthHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := s.deps.Registry.List(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "registry": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.sessions.Len()})
	}
}
