// main wires the workflow engine: stores, audit log, dispatcher, relay, and
// the HTTP surface. Business logic lives in the internal packages; this file
// only assembles and supervises them.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chrona/internal/auditlog"
	"chrona/internal/auditlog/relay"
	"chrona/internal/identity"
	"chrona/internal/locale"
	"chrona/internal/notification"
	notificationhandler "chrona/internal/notification/handler"
	"chrona/internal/platform/config"
	"chrona/internal/platform/database"
	"chrona/internal/platform/httpserver"
	"chrona/internal/platform/logger"
	platformmetrics "chrona/internal/platform/metrics"
	"chrona/internal/platform/middleware"
	platformredis "chrona/internal/platform/redis"
	workflowhandler "chrona/internal/workflow/handler"
	"chrona/internal/workflow/service"
	"chrona/internal/workflow/store"
	subjectstore "chrona/internal/workflow/store/subject"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	metrics := platformmetrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence. Without DATABASE_URL everything runs in memory, which is
	// enough for development and demos.
	var (
		subjects  service.SubjectStore
		txRunner  service.TxRunner
		auditRepo auditlog.Store
		notifRepo notification.Store
		db        *sql.DB
	)
	if cfg.Postgres.URL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Postgres.URL)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping postgres", "error", err)
			os.Exit(1)
		}
		if err := database.EnsureSchema(ctx, db); err != nil {
			log.Error("ensure schema", "error", err)
			os.Exit(1)
		}

		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			log.Error("open pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		subjects = subjectstore.NewPostgres(db)
		txRunner = store.NewPostgresTx(db)
		auditRepo = auditlog.NewPostgres(db)
		notifRepo = notification.NewPostgres(pool)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		subjects = subjectstore.New()
		txRunner = store.NewShardedTx()
		auditRepo = auditlog.NewInMemoryStore()
		notifRepo = notification.NewInMemoryStore()
	}

	chain, err := auditlog.NewChain([]byte(cfg.Server.ChainKey))
	if err != nil {
		log.Error("build log chain", "error", err)
		os.Exit(1)
	}
	auditLog := auditlog.NewLog(auditRepo, chain)

	// Identity. The roster file backs both the capability lookups and the
	// email address book.
	var (
		provider  identity.Provider
		directory notification.ApproverDirectory
		locales   notification.LocaleDirectory
		addresses notification.AddressBook
	)
	if cfg.Identity.RosterFile != "" {
		roster, book, err := identity.LoadRoster(cfg.Identity.RosterFile)
		if err != nil {
			log.Error("load roster", "error", err)
			os.Exit(1)
		}
		provider = roster
		directory = roster
		locales = roster
		addresses = book
	} else {
		log.Warn("CHRONA_ROSTER_FILE not set, starting with an empty roster")
		roster := identity.NewInMemoryProvider()
		provider = roster
		directory = roster
		locales = roster
		addresses = identity.NewStaticAddressBook()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}

	// Notification pipeline.
	sinks := []notification.Sink{
		notification.NewInAppSink(),
		notification.NewEmailSink(notification.NewLogMailer(log), addresses, log),
	}
	dispatcherOpts := []notification.Option{
		notification.WithQueueSize(cfg.Dispatcher.QueueSize),
		notification.WithRetry(cfg.Dispatcher.MaxAttempts, cfg.Dispatcher.BaseBackoff),
		notification.WithMetrics(metrics),
		notification.WithLocales(locales),
	}
	if redisClient != nil {
		dispatcherOpts = append(dispatcherOpts, notification.WithDeduper(notification.NewRedisDeduper(redisClient)))
	}
	dispatcher := notification.NewDispatcher(
		notification.NewDeriver(directory),
		locale.NewStaticCatalog(),
		notifRepo,
		sinks,
		log,
		dispatcherOpts...,
	)
	go func() {
		if err := dispatcher.Run(ctx, cfg.Dispatcher.Workers); err != nil && ctx.Err() == nil {
			log.Error("dispatcher stopped", "error", err)
		}
	}()

	// Outbox relay. Needs both Postgres and Kafka.
	if db != nil && len(cfg.Kafka.Brokers) > 0 {
		logRelay, err := relay.New(db, cfg.Kafka.Brokers, cfg.Kafka.Topic, log,
			relay.WithMetrics(metrics))
		if err != nil {
			log.Error("build outbox relay", "error", err)
			os.Exit(1)
		}
		defer logRelay.Close()
		if err := logRelay.EnsureTopic(ctx); err != nil {
			log.Error("ensure log topic", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := logRelay.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("outbox relay stopped", "error", err)
			}
		}()
	}

	workflowSvc := service.New(subjects, txRunner, provider, auditLog, dispatcher, log,
		service.WithMetrics(metrics),
		service.WithSecurityLog(auditlog.NewSecurityLog(log)),
	)

	jwtService := identity.NewJWTService(cfg.Server.JWTSigningKey, "chrona")

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.ClientInfo)
	router.Use(middleware.Device)
	router.Use(middleware.Timeout(30 * time.Second))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(jwtService, log))
		r.Use(middleware.ContentTypeJSON)
		workflowhandler.New(workflowSvc, log).Register(r)
		notificationhandler.New(notifRepo, log).Register(r)
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting chrona", "addr", cfg.Server.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
