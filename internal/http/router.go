package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/mentorbridge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/mentorbridge-backend/internal/http/middleware"
	"github.com/yungbote/mentorbridge-backend/internal/observability"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	AllowedOrigins []string
	// RequestTimeout bounds how long a handler may take to write its
	// response. Zero disables the limit.
	RequestTimeout time.Duration

	HealthHandler   *httpH.HealthHandler
	TrainingHandler *httpH.TrainingHandler
	RAGHandler      *httpH.RAGHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		if cfg.TrainingHandler != nil {
			api.POST("/match", cfg.TrainingHandler.Match)
			api.POST("/issues", cfg.TrainingHandler.SubmitIssue)
			api.POST("/issues/:id/process", cfg.TrainingHandler.ProcessIssue)
			api.GET("/teachers/:id/issues/summary", cfg.TrainingHandler.TeacherSummary)
			api.GET("/teachers/:id/assignments", cfg.TrainingHandler.TeacherAssignments)
			api.GET("/assignments/:id/feedback-questions", cfg.TrainingHandler.FeedbackQuestions)
		}
	}

	admin := api.Group("/admin")
	{
		if cfg.RAGHandler != nil {
			admin.POST("/rag/upload-pdf", cfg.RAGHandler.UploadPDF)
			admin.POST("/rag/process-all", cfg.RAGHandler.ProcessAll)
			admin.GET("/rag/stats", cfg.RAGHandler.Stats)
			admin.GET("/modules/rag-status", cfg.RAGHandler.ModuleStatus)
			admin.DELETE("/modules/:id", cfg.RAGHandler.DeleteModule)
		}
	}

	return r
}
