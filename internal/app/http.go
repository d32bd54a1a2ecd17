package app

import (
	"context"

	"github.com/gin-gonic/gin"

	mbhttp "github.com/yungbote/mentorbridge-backend/internal/http"
	httpH "github.com/yungbote/mentorbridge-backend/internal/http/handlers"
)

func (a *App) routerConfig() mbhttp.RouterConfig {
	a.Log.Info("Wiring handlers...")
	checks := map[string]httpH.Pinger{
		"database": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"vector_store": a.Services.Index.Healthy,
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	serviceName := ""
	if a.Cfg.Otel.Enabled {
		serviceName = a.Cfg.Otel.ServiceName
	}
	return mbhttp.RouterConfig{
		Log:             a.Log,
		Metrics:         a.Metrics,
		ServiceName:     serviceName,
		AllowedOrigins:  a.Cfg.Server.AllowedOrigins,
		RequestTimeout:  a.Cfg.Server.RequestTimeout,
		HealthHandler:   httpH.NewHealthHandler(checks),
		TrainingHandler: httpH.NewTrainingHandler(a.Log, a.Services.Pipeline),
		RAGHandler: httpH.NewRAGHandler(a.Log, a.Services.Ingestion, httpH.RAGHandlerConfig{
			MaxUploadBytes: a.Cfg.Server.MaxUploadBytes,
			Manifest:       a.Cfg.Server.Manifest,
		}),
	}
}

func (a *App) Router() *gin.Engine {
	return mbhttp.NewRouter(a.routerConfig())
}

// Serve runs the HTTP API on addr until ctx is cancelled.
func (a *App) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		addr = a.Cfg.Server.Addr
	}
	a.Log.Info("HTTP server listening", "addr", addr)
	return mbhttp.NewServer(addr, a.routerConfig()).Run(ctx)
}
