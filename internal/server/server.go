package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/retailpulse/internal/batch"
	"github.com/smallbiznis/retailpulse/internal/config"
	"github.com/smallbiznis/retailpulse/internal/gateway"
	"github.com/smallbiznis/retailpulse/internal/health"
	"github.com/smallbiznis/retailpulse/internal/pipeline"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Server is the HTTP edge: event ingestion, operator endpoints and the
// dashboard websocket upgrade.
type Server struct {
	cfg         config.Config
	log         *zap.Logger
	queue       pipeline.Queue
	coordinator *batch.Coordinator
	monitor     *health.Monitor
	runner      *pipeline.Runner
	gateway     *gateway.Gateway
	genID       *snowflake.Node
	http        *http.Server
}

func New(
	cfg config.Config,
	log *zap.Logger,
	queue pipeline.Queue,
	coordinator *batch.Coordinator,
	monitor *health.Monitor,
	runner *pipeline.Runner,
	gw *gateway.Gateway,
	genID *snowflake.Node,
) *Server {
	s := &Server{
		cfg:         cfg,
		log:         log.Named("server"),
		queue:       queue,
		coordinator: coordinator,
		monitor:     monitor,
		runner:      runner,
		gateway:     gw,
		genID:       genID,
	}
	s.http = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) router() *gin.Engine {
	if s.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.log))
	r.Use(tenantContext())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws/dashboard", s.gateway.HandleWS)

	v1 := r.Group("/api/v1")
	v1.POST("/events", s.handleIngestEvent)
	v1.GET("/pipeline/health", s.handlePipelineHealth)

	admin := v1.Group("", requireAPIKey(s.cfg.APIKey))
	admin.POST("/insights/refresh", s.handleRefresh)
	admin.GET("/pipeline/failed", s.handleFailedJobs)

	return r
}

// Module wires the server into the application lifecycle.
var Module = fx.Module("server",
	fx.Provide(New),
	fx.Invoke(runHTTP),
)

func runHTTP(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.log.Info("http server starting", zap.String("addr", s.http.Addr))
			go func() {
				if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server exited", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.http.Shutdown(ctx)
		},
	})
}
