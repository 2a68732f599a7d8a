package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/auth"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/backend"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/config"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/db"
	httpapi "github.com/WailSalutem-Health-Care/mindmap-service/internal/http"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/logging"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/mindmap"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/normalize"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/patient"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/telemetry"
)

const jwksRefreshInterval = 10 * time.Minute

// source is what both data sources offer.
type source interface {
	patient.RecordSource
	patient.MedicineCatalog
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Telemetry degrades to no-op providers when the collector is unreachable.
	provider, err := telemetry.InitProvider(ctx, telemetry.Config{
		ServiceName:      cfg.ServiceName,
		ServiceNamespace: cfg.ServiceNamespace,
		ServiceVersion:   cfg.ServiceVersion,
		Environment:      cfg.Environment,
		OTLPEndpoint:     cfg.OTLPEndpoint,
		TracesSampler:    cfg.TracesSampler,
		MetricsInterval:  cfg.MetricsInterval,
	}, logger)
	if err != nil {
		logger.Fatal("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Fatal("failed to initialize metrics", zap.Error(err))
	}

	perms, err := auth.LoadPermissions(cfg.PermissionsFile)
	if err != nil {
		logger.Fatal("failed to load permissions", zap.Error(err))
	}

	authCfg := auth.Config{
		Issuer:   cfg.AuthIssuer,
		JWKSURL:  cfg.AuthJWKSURL,
		Audience: cfg.AuthAudience,
	}.WithDefaults()

	jwks, err := auth.NewJWKS(authCfg.JWKSURL, jwksRefreshInterval)
	if err != nil {
		logger.Fatal("failed to load signing keys", zap.String("jwks_url", authCfg.JWKSURL), zap.Error(err))
	}
	defer jwks.Close()

	verifier := auth.NewVerifier(authCfg, jwks)

	normalizer := normalize.New(logger, metrics)

	var (
		src      source
		database *sql.DB
	)
	switch cfg.DataSource {
	case config.DataSourcePostgres:
		database, err = db.Connect(ctx, db.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			Name:     cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
			MaxConns: cfg.DBMaxConns,
		}, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer database.Close()

		repo := patient.NewRepository(database, logger)
		src = patient.NewDBSource(repo, patient.NewDBSchemaLookup(database), normalizer)
	default:
		bcfg := backend.DefaultConfig(cfg.BackendURL)
		bcfg.Timeout = cfg.BackendTimeout
		client, err := backend.New(bcfg, normalizer, logger)
		if err != nil {
			logger.Fatal("failed to create backend client", zap.Error(err))
		}
		src = client
	}
	logger.Info("data source selected", zap.String("data_source", cfg.DataSource))

	// Events are best effort; the service runs without a broker.
	var publisher messaging.PublisherInterface
	if cfg.EventsEnabled && cfg.RabbitMQURL != "" {
		p, err := messaging.NewPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, continuing without events", zap.Error(err))
		} else {
			publisher = p
			defer p.Close()
		}
	}

	mindmapService := mindmap.NewService(src, publisher, metrics, logger)
	sessions := mindmap.NewSessions(mindmapService)

	var ready func(context.Context) error
	if database != nil {
		ready = database.PingContext
	}

	handler := httpapi.SetupRouter(httpapi.Deps{
		Verifier:       verifier,
		Perms:          perms,
		MindMap:        mindmap.NewHandler(sessions, logger),
		Patients:       patient.NewHandler(patient.NewService(src, src, metrics), logger),
		Metrics:        metrics,
		Ready:          ready,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server",
			zap.String("address", srv.Addr),
			zap.String("environment", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
}
