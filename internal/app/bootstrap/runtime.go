package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/mindhaven/support-core/internal/adapters/cache"
	"github.com/mindhaven/support-core/internal/adapters/collaborators"
	grpcadapter "github.com/mindhaven/support-core/internal/adapters/grpc"
	httpadapter "github.com/mindhaven/support-core/internal/adapters/http"
	"github.com/mindhaven/support-core/internal/adapters/postgres"
	"github.com/mindhaven/support-core/internal/adapters/security"
	"github.com/mindhaven/support-core/internal/adapters/worker"
	"github.com/mindhaven/support-core/internal/application"
	"github.com/mindhaven/support-core/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	sweeper    *worker.SweepWorker
	archiver   *worker.AlertArchiver
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping support core", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("init redis client: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	repos := postgres.NewRepositories(pool)

	tokenSigner, err := security.NewHMACSigner(cfg.SigningSecret, cfg.Issuer)
	if err != nil {
		if !cfg.AllowEphemeralSecret {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init token signer: %w", err)
		}
		logger.Warn("using ephemeral signing secret for local/dev runtime")
		tokenSigner, err = security.NewEphemeralHMACSigner(cfg.Issuer)
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init ephemeral token signer: %w", err)
		}
	}

	var notifier ports.Notifier
	if cfg.EmergencyWebhookURL != "" || cfg.ProfessionalWebhookURL != "" {
		notifier = collaborators.NewWebhookNotifier(logger, map[string]string{
			ports.ChannelEmergency:    cfg.EmergencyWebhookURL,
			ports.ChannelProfessional: cfg.ProfessionalWebhookURL,
		})
	} else {
		logger.Warn("no notification webhooks configured; dispatching to log")
		notifier = collaborators.NewLoggingNotifier(logger)
	}

	var classifier ports.RiskClassifier = collaborators.KeywordRiskClassifier{}
	if cfg.ClassifierURL != "" {
		classifier = collaborators.NewHTTPRiskClassifier(cfg.ClassifierURL)
	}
	var predictor ports.RiskPredictor = collaborators.StaticRiskPredictor{}
	if cfg.PredictorURL != "" {
		predictor = collaborators.NewHTTPRiskPredictor(cfg.PredictorURL)
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			Issuer:               cfg.Issuer,
			DefaultRoles:         cfg.DefaultRoles,
			AccessTokenTTL:       cfg.AccessTokenTTL,
			RefreshTokenTTL:      cfg.RefreshTokenTTL,
			SessionTTL:           cfg.SessionTTL,
			SessionCeiling:       cfg.SessionCeiling,
			FailedLoginThreshold: cfg.FailedLoginThreshold,
			LockoutDuration:      cfg.LockoutDuration,
			AlertRetention:       cfg.AlertRetention,
			TokenSweepGrace:      cfg.TokenSweepGrace,
			ChatCrisisScore:      cfg.ChatCrisisScore,
			ChatCriticalScore:    cfg.ChatCriticalScore,
			PredictionHighRisk:   cfg.PredictionHighRisk,
			PredictionCritical:   cfg.PredictionCritical,
		},
		Principals:    repos.Principals,
		Tokens:        repos.RefreshTokens,
		Sessions:      repos.Sessions,
		LoginAttempts: repos.LoginAttempts,
		Alerts:        repos.Alerts,
		Lockouts:      cacheadapter.NewRedisLockoutStore(redisClient),
		Hasher:        security.NewBcryptHasher(cfg.BcryptCost),
		TokenSigner:   tokenSigner,
		Notifier:      notifier,
		Classifier:    classifier,
		Predictor:     predictor,
	})

	handler := httpadapter.NewHandler(svc)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewAuthInternalServer(svc))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		sweeper:    worker.NewSweepWorker(logger, svc, cfg.SweepInterval),
		archiver:   worker.NewAlertArchiver(logger, svc, cfg.ArchiveInterval),
		cleanupFn: func(ctx context.Context) {
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("maintenance workers started")
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return r.sweeper.Run(groupCtx) })
	group.Go(func() error { return r.archiver.Run(groupCtx) })

	err := group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}
