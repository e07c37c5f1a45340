package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"safeguard/internal/credential/handler"
	credmetrics "safeguard/internal/credential/metrics"
	"safeguard/internal/credential/report"
	"safeguard/internal/credential/service"
	credstore "safeguard/internal/credential/store"
	"safeguard/internal/jwttoken"
	"safeguard/internal/notify"
	"safeguard/internal/platform/config"
	"safeguard/internal/platform/httpserver"
	"safeguard/internal/platform/logger"
	"safeguard/internal/platform/middleware"
	platformredis "safeguard/internal/platform/redis"
	audit "safeguard/pkg/platform/audit"
	auditmemory "safeguard/pkg/platform/audit/store/memory"
	auditpostgres "safeguard/pkg/platform/audit/store/postgres"
)

const (
	jwtIssuer   = "safeguard"
	jwtAudience = "safeguard-api"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	metrics := credmetrics.New()

	// Stores: PostgreSQL when configured, in-memory for local development.
	var (
		records    credstore.Store
		auditTrail audit.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping database", "error", err)
			os.Exit(1)
		}
		pgRecords := credstore.NewPostgres(db)
		pgAudit := auditpostgres.New(db)
		if err := pgRecords.EnsureSchema(ctx); err != nil {
			log.Error("ensure schema", "error", err)
			os.Exit(1)
		}
		if err := pgAudit.EnsureSchema(ctx); err != nil {
			log.Error("ensure schema", "error", err)
			os.Exit(1)
		}
		records = pgRecords
		auditTrail = pgAudit
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		records = credstore.NewInMemory()
		auditTrail = auditmemory.NewInMemoryStore()
	}

	auditPublisher := audit.NewPublisher(auditTrail,
		audit.WithLogger(log),
		audit.WithMetrics(audit.NewPublisherMetrics()),
	)

	var notifier notify.Notifier = notify.NewLogNotifier(log)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier, err := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	}

	svc := service.New(records,
		service.WithLogger(log),
		service.WithAuditPublisher(auditPublisher),
		service.WithNotifier(notifier),
		service.WithMetrics(metrics),
	)

	sweepOpts := []report.SweepOption{
		report.WithLogger(log),
		report.WithMetrics(metrics),
		report.WithPageSize(cfg.SweepPageSize),
	}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		sweepOpts = append(sweepOpts,
			report.WithCache(report.NewRedisSnapshotCache(redisClient.Client, cfg.SnapshotTTL)))
	}
	sweep := report.NewSweep(records, svc, sweepOpts...)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, jwtIssuer, jwtAudience)

	h := handler.New(svc, sweep, auditTrail, log)
	router := chi.NewRouter()
	router.Use(middleware.RequestID, middleware.RequestTime)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(tokenValidator{jwtService}, log))
		h.Routes(r)
	})

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting safeguard", "addr", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// tokenValidator adapts the JWT service to the middleware's claims shape.
type tokenValidator struct {
	jwt *jwttoken.JWTService
}

func (v tokenValidator) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	claims, err := v.jwt.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.TokenClaims{ActorID: claims.ActorID, OrgID: claims.OrgID}, nil
}
