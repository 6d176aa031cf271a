// Command server runs the Ideon API.
//
// @title						Ideon API
// @version					1.0
// @description				Startup idea board: feed, idea threads, profiles and email verified accounts.
// @BasePath					/api
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
// @description				Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ideon/internal/auth"
	"ideon/internal/bootstrap"
	"ideon/internal/config"
	"ideon/internal/enhance"
	"ideon/internal/featureflags"
	"ideon/internal/feed"
	"ideon/internal/middleware"
	"ideon/internal/notifications"
	"ideon/internal/observability"
	"ideon/internal/persistence"
	"ideon/internal/repository"
	"ideon/internal/server"
	"ideon/internal/service"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.SetLogger(middleware.NewLogger(os.Stdout, cfg.IsProduction()))

	if err := run(cfg); err != nil {
		observability.GlobalLogger.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "ideon-api",
		ServiceVersion: version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.TracingOTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(tctx)
	}()

	rt, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	var fallback persistence.Fallback
	if cfg.SeedOnEmpty {
		fallback = bootstrap.SeedFallback
	}
	snapshots := persistence.NewStore(rt.KV, fallback)
	snap, report := snapshots.Hydrate(ctx)
	observability.GlobalLogger.Info("state hydrated",
		slog.String("backend", snapshots.Backend()),
		slog.String("users", string(report.Users)),
		slog.String("ideas", string(report.Ideas)),
	)

	users := repository.NewMemoryUserRepository(nil)
	ideas := repository.NewMemoryIdeaRepository(nil)
	state := service.NewState(users, ideas)
	if err := state.Load(ctx, snap); err != nil {
		return err
	}
	flusher := persistence.NewFlusher(snapshots, state, cfg.PersistInterval)
	if report.Users == persistence.OriginStored && report.Ideas == persistence.OriginStored {
		flusher.MarkClean()
	}

	notifier := notifications.NewNotifier(rt.Redis)
	if err := notifier.StartSubscriber(ctx, func(channel, payload string) {
		observability.GlobalLogger.Debug("event received",
			slog.String("channel", channel),
			slog.Int("bytes", len(payload)),
		)
	}); err != nil {
		observability.GlobalLogger.Warn("event subscriber not started", slog.String("error", err.Error()))
	}

	resultCache, err := feed.NewResultCache(cfg.FeedCacheSize)
	if err != nil {
		return err
	}
	flags := featureflags.NewManager(cfg.FeatureFlags)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL)

	store := service.NewStore(ideas, notifier, service.WithSearchDebounce(cfg.SearchDebounce))
	defer store.Shutdown()

	authSvc := service.NewAuthService(users, store, service.AuthServiceConfig{
		Tokens: tokens,
		Sender: auth.NewCodeSender(auth.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}),
		Sessions: snapshots,
	})
	if restored, err := authSvc.RestoreSession(ctx); err != nil {
		observability.GlobalLogger.Warn("stored session not checked", slog.String("error", err.Error()))
	} else if restored != nil {
		observability.GlobalLogger.Info("stored session is valid", slog.String("user_id", restored.ID))
	}

	srv := server.NewServer(server.Deps{
		Config: cfg,
		Redis:  rt.Redis,
		Tokens: tokens,
		Flags:  flags,
		Ideas: service.NewIdeaService(store, users, service.IdeaServiceConfig{
			Enhancer: enhance.New(enhance.GeminiConfig{
				APIKey:  cfg.GeminiAPIKey,
				Model:   cfg.GeminiModel,
				BaseURL: cfg.GeminiBaseURL,
				Timeout: cfg.GeminiTimeout,
			}),
			Flags:   flags,
			Cache:   resultCache,
			BaseURL: cfg.BaseURL,
		}),
		Comments: service.NewCommentService(store, users),
		Users:    service.NewUserService(users, store),
		Auth:     authSvc,
		Backend:  snapshots.Backend(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		observability.GlobalLogger.Info("server starting", slog.String("port", cfg.Port))
		return srv.Listen()
	})
	g.Go(func() error {
		return flusher.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		observability.GlobalLogger.Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
