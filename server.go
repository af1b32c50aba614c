package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"bitbucket.org/mmdatafocus/closing_backend/config"
	"bitbucket.org/mmdatafocus/closing_backend/middlewares"
	"bitbucket.org/mmdatafocus/closing_backend/models"
	"bitbucket.org/mmdatafocus/closing_backend/stream"
	"bitbucket.org/mmdatafocus/closing_backend/utils"
	"bitbucket.org/mmdatafocus/closing_backend/workflow"
)

var tracer = otel.Tracer("closing-backend")

// app wires the store and the ledgers behind the HTTP surface.
type app struct {
	store       *models.Store
	controller  *workflow.Controller
	checks      *workflow.CheckLedger
	findings    *workflow.FindingsLedger
	discussions *workflow.DiscussionLedger
	uploads     *workflow.UploadRegistry
	status      *statusBroker
	logger      *logrus.Logger
}

func newApp(store *models.Store, logger *logrus.Logger, cfg *config.AppConfig) *app {
	a := &app{
		store: store,
		controller: workflow.NewController(store, logger, workflow.ControllerConfig{
			ValidateDelay:  cfg.ValidateDelay,
			EbsSettleDelay: cfg.EbsSettleDelay,
		}),
		checks:      workflow.NewCheckLedger(store, logger, cfg.MutationDelay, stream.CheckResultPreset()),
		findings:    workflow.NewFindingsLedger(store, logger, stream.FindingsPreset()),
		discussions: workflow.NewDiscussionLedger(store, logger, cfg.MutationDelay),
		uploads:     workflow.NewUploadRegistry(store, logger, cfg.MutationDelay),
		status:      newStatusBroker(),
		logger:      logger,
	}
	a.controller.OnStatusChange(a.status.publish)
	return a
}

func main() {
	logger := config.GetLogger()
	cfg := config.GetApp()

	store := models.NewStore()
	if err := models.SeedDemo(store); err != nil {
		logger.WithFields(logrus.Fields{"module": "main"}).Panic(err.Error())
	}
	a := newApp(store, logger, cfg)

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(middlewares.ActorMiddleware())

	corsConfig := cors.DefaultConfig()
	// Require an explicit allowlist in production; allow all elsewhere.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = utils.SplitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "x-correlation-id", "x-username", "x-actor-role")
	corsConfig.AddExposeHeaders("Content-Length", "x-correlation-id")
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	a.routes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		logger.WithFields(logrus.Fields{"module": "main", "port": cfg.Port}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithFields(logrus.Fields{"module": "main"}).Panic(err.Error())
		}
	}()

	<-sigCtx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		config.LogError(logger, "main", "main", "shutdown", nil, err)
	}
}
