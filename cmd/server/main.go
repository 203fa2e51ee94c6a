package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	adminHandler "asamblea/internal/admin/handler"
	assemblyService "asamblea/internal/assembly/service"
	assemblyStore "asamblea/internal/assembly/store"
	"asamblea/internal/blobstore"
	"asamblea/internal/changefeed"
	changefeedHandler "asamblea/internal/changefeed/handler"
	httpapi "asamblea/internal/http"
	jwttoken "asamblea/internal/jwt_token"
	"asamblea/internal/platform/config"
	"asamblea/internal/platform/httpserver"
	"asamblea/internal/platform/logger"
	"asamblea/internal/platform/metrics"
	"asamblea/internal/platform/middleware"
	platformMongo "asamblea/internal/platform/mongo"
	"asamblea/internal/platform/postgres"
	platformRedis "asamblea/internal/platform/redis"
	registrationHandler "asamblea/internal/registration/handler"
	registrationMetrics "asamblea/internal/registration/metrics"
	registrationService "asamblea/internal/registration/service"
	attendeeStore "asamblea/internal/registration/store"
	registryModels "asamblea/internal/registry/models"
	registryService "asamblea/internal/registry/service"
	registryStore "asamblea/internal/registry/store"
	"asamblea/internal/session"
	votingHandler "asamblea/internal/voting/handler"
	votingMetrics "asamblea/internal/voting/metrics"
	votingService "asamblea/internal/voting/service"
	questionStore "asamblea/internal/voting/store"
	audit "asamblea/pkg/platform/audit"
	"asamblea/pkg/platform/audit/publisher"
	"asamblea/pkg/platform/audit/publishers/kafka"
	auditMemory "asamblea/pkg/platform/audit/store/memory"
)

const (
	tokenIssuer   = "asamblea"
	tokenAudience = "asamblea-attendees"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

type registryBackend interface {
	registryService.Store
	ListByOwner(ctx context.Context, listID, document string) (registryModels.Registry, error)
	StampIfUnclaimed(ctx context.Context, listID, id string, stamp registryModels.RegistrationStamp) (*registryModels.PropertyRecord, error)
}

type backends struct {
	registry   registryBackend
	assemblies assemblyService.Store
	attendees  registrationService.AttendeeStore
	questions  votingService.QuestionStore
	sessions   registrationService.SessionStore
	feed       changefeed.Feed
	blobs      blobstore.Store
	checks     map[string]httpapi.HealthCheck
	closers    []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	auditPublisher, closeAudit, err := openAudit(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeAudit()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.New(reg)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, tokenIssuer, tokenAudience)

	registrySvc, err := registryService.New(b.registry,
		registryService.WithLogger(log),
		registryService.WithAuditPublisher(auditPublisher),
		registryService.WithChangePublisher(b.feed),
	)
	if err != nil {
		return fmt.Errorf("registry service: %w", err)
	}
	assemblySvc, err := assemblyService.New(b.assemblies,
		assemblyService.WithLogger(log),
		assemblyService.WithAuditPublisher(auditPublisher),
		assemblyService.WithChangePublisher(b.feed),
	)
	if err != nil {
		return fmt.Errorf("assembly service: %w", err)
	}
	registrationSvc, err := registrationService.New(registrationService.Stores{
		Assemblies: b.assemblies,
		Registry:   b.registry,
		Attendees:  b.attendees,
		Sessions:   b.sessions,
		Blobs:      b.blobs,
	}, jwtService,
		registrationService.WithLogger(log),
		registrationService.WithAuditPublisher(auditPublisher),
		registrationService.WithChangePublisher(b.feed),
		registrationService.WithMetrics(registrationMetrics.New(reg)),
		registrationService.WithSessionTTL(cfg.SessionTTL),
	)
	if err != nil {
		return fmt.Errorf("registration service: %w", err)
	}
	votingSvc, err := votingService.New(votingService.Stores{
		Questions:  b.questions,
		Assemblies: b.assemblies,
		Registry:   b.registry,
		Attendees:  b.attendees,
		Sessions:   b.sessions,
	},
		votingService.WithLogger(log),
		votingService.WithAuditPublisher(auditPublisher),
		votingService.WithChangePublisher(b.feed),
		votingService.WithMetrics(votingMetrics.New(reg)),
	)
	if err != nil {
		return fmt.Errorf("voting service: %w", err)
	}

	limiter := middleware.NewClientLimiter(cfg.RateLimit.ResolvePerMinute, cfg.RateLimit.ResolveBurst, httpMetrics)
	router := httpapi.NewRouter(httpapi.Deps{
		Registration: registrationHandler.New(registrationSvc, log),
		Voting:       votingHandler.New(votingSvc, log),
		Admin:        adminHandler.New(registrySvc, assemblySvc, votingSvc, log, adminHandler.WithAuditLog(auditPublisher)),
		Changes:      changefeedHandler.New(b.feed, log, changefeedHandler.WithMetrics(httpMetrics)),
		Tokens:       jwttoken.NewJWTServiceAdapter(jwtService),
		Limiter:      limiter,
		Files:        b.blobs,
		Metrics:      httpMetrics,
		Gatherer:     reg,
		Logger:       log,
		Checks:       b.checks,
		// Attachments travel base64-encoded inside JSON.
		MaxBodyBytes: cfg.Storage.MaxFileSize*4/3 + 64<<10,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		limiter.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info("starting asamblea", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openBackends(ctx context.Context, cfg config.Server, log *slog.Logger) (*backends, error) {
	b := &backends{checks: make(map[string]httpapi.HealthCheck)}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if db != nil {
		log.Info("using postgres stores")
		b.closers = append(b.closers, func() { _ = db.Close() })
		b.checks["postgres"] = db.PingContext
		b.registry = registryStore.NewPostgres(db)
		b.assemblies = assemblyStore.NewPostgres(db)
		b.attendees = attendeeStore.NewPostgres(db)
		b.questions = questionStore.NewPostgres(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		b.registry = registryStore.NewInMemory()
		b.assemblies = assemblyStore.NewInMemory()
		b.attendees = attendeeStore.NewInMemory()
		b.questions = questionStore.NewInMemory()
	}

	if err := b.openQuestionDocuments(ctx, cfg, log); err != nil {
		b.Close()
		return nil, err
	}

	rc, err := platformRedis.New(ctx, cfg.Redis)
	if err != nil {
		b.Close()
		return nil, err
	}
	if rc != nil {
		log.Info("using redis sessions and change feed")
		b.closers = append(b.closers, func() { _ = rc.Close() })
		b.checks["redis"] = rc.Health
		b.sessions = session.NewRedisStore(rc.Client)
		b.feed = changefeed.NewRedis(rc.Client, log)
	} else {
		b.sessions = session.NewInMemoryStore()
		b.feed = changefeed.NewMemory()
	}

	if cfg.Storage.Dir != "" {
		fs, err := blobstore.NewFilesystem(cfg.Storage.Dir, cfg.PublicBaseURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.blobs = fs
	} else {
		log.Warn("STORAGE_DIR not set, uploads are kept in memory")
		b.blobs = blobstore.NewMemory(cfg.PublicBaseURL)
	}
	return b, nil
}

// openQuestionDocuments swaps the question store for the Mongo one when a
// URI is configured.
func (b *backends) openQuestionDocuments(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	mc, err := platformMongo.New(ctx, cfg.Mongo)
	if err != nil || mc == nil {
		return err
	}
	b.closers = append(b.closers, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mc.Close(closeCtx)
	})
	b.checks["mongo"] = mc.Health
	store := questionStore.NewMongo(mc.DB)
	if err := store.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}
	log.Info("using mongo question store", "database", cfg.Mongo.Database)
	b.questions = store
	return nil
}

func openAudit(ctx context.Context, cfg config.Server, log *slog.Logger) (*publisher.Publisher, func(), error) {
	var store audit.Store = auditMemory.NewInMemoryStore()
	closeSink := func() {}
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := kafka.New(ctx, kafka.Config{
			Brokers:           cfg.Kafka.Brokers,
			Topic:             cfg.Kafka.AuditTopic,
			Partitions:        cfg.Kafka.Partitions,
			ReplicationFactor: cfg.Kafka.ReplicationFactor,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("audit sink: %w", err)
		}
		log.Info("shipping audit events to kafka", "topic", cfg.Kafka.AuditTopic)
		store = sink
		closeSink = sink.Close
	}
	p := publisher.NewPublisher(store, publisher.WithAsyncBuffer(cfg.Audit.Buffer), publisher.WithLogger(log))
	return p, func() {
		p.Close()
		closeSink()
	}, nil
}
