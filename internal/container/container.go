package container

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/x-xaie/cloud-IR/internal/config"
	"github.com/x-xaie/cloud-IR/internal/factory"
	"github.com/x-xaie/cloud-IR/internal/logger"
	"github.com/x-xaie/cloud-IR/internal/observer"
	"github.com/x-xaie/cloud-IR/internal/query"
	"github.com/x-xaie/cloud-IR/internal/repository"
	"github.com/x-xaie/cloud-IR/internal/service"
	"github.com/x-xaie/cloud-IR/internal/storage"
	"github.com/x-xaie/cloud-IR/internal/transport"
	"github.com/x-xaie/cloud-IR/internal/vision"
)

// Container holds all application dependencies
type Container struct {
	config          *config.Config
	visionClient    *vision.Client
	repo            repository.ResultRepository
	blobStore       storage.BlobUploader
	queryEngine     *query.Engine
	publisher       observer.Subject
	metrics         *observer.MetricsObserver
	analysisService service.AnalysisService
	handler         http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	visionClient := vision.NewClient(vision.ClientConfig{
		Endpoint:     cfg.VisionEndpoint,
		Key:          cfg.VisionKey,
		Timeout:      cfg.VisionTimeout,
		PollInterval: cfg.OCRPollInterval,
		PollAttempts: cfg.OCRPollAttempts,
	})

	repo, err := factory.NewResultRepository(cfg)
	if err != nil {
		return nil, err
	}
	blobStore, err := factory.NewBlobStore(cfg)
	if err != nil {
		return nil, err
	}

	// Provision storage up front; failures are retried lazily on first
	// use, so a cold start with no cloud reachability still serves.
	provisionCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repo.EnsureTable(provisionCtx); err != nil {
		logger.WithError(err).Warn("Results table provisioning deferred")
	}
	if err := blobStore.EnsureContainer(provisionCtx); err != nil {
		logger.WithError(err).Warn("Upload container provisioning deferred")
	}

	publisher := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	publisher.Subscribe(observer.NewLoggingObserver(logrus.StandardLogger()))
	publisher.Subscribe(metrics)

	queryEngine := query.NewEngine(repo, query.SystemClock{}, cfg.MaxSearchResults, cfg.StatsScanLimit)
	analysisService := service.NewAnalysisService(visionClient, repo, queryEngine, publisher, vision.SystemClock{})
	handler := transport.NewHandler(analysisService, blobStore, cfg)

	return &Container{
		config:          cfg,
		visionClient:    visionClient,
		repo:            repo,
		blobStore:       blobStore,
		queryEngine:     queryEngine,
		publisher:       publisher,
		metrics:         metrics,
		analysisService: analysisService,
		handler:         handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Metrics returns the pipeline counters collected so far.
func (c *Container) Metrics() map[string]interface{} {
	return c.metrics.GetMetrics()
}
