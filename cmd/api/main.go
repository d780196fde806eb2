package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/contactbook/internal/auth"
	"github.com/abduss/contactbook/internal/config"
	"github.com/abduss/contactbook/internal/contact"
	"github.com/abduss/contactbook/internal/logger"
	"github.com/abduss/contactbook/internal/mail"
	"github.com/abduss/contactbook/internal/metrics"
	"github.com/abduss/contactbook/internal/profile"
	"github.com/abduss/contactbook/internal/ratelimit"
	"github.com/abduss/contactbook/internal/server"
	"github.com/abduss/contactbook/internal/storage"
	"github.com/abduss/contactbook/internal/user"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	zl, err := logger.Init()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(zl); err != nil {
		zl.Fatal("contacts api stopped", zap.Error(err))
	}
}

func run(zl *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := storage.Migrate(ctx, cfg.Postgres.DSN()); err != nil {
		return err
	}

	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	minioClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		return err
	}
	if err := storage.EnsureBucket(ctx, minioClient, cfg.MinIO); err != nil {
		return err
	}

	tokens, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return err
	}

	txManager := storage.NewTxManager(dbPool)
	userRepo := user.NewRepository(dbPool)
	contactRepo := contact.NewRepository(dbPool)

	authService := auth.NewService(userRepo, txManager, auth.NewHasher(cfg.Auth.BcryptCost), tokens,
		auth.WithMailer(mail.New(cfg.Mail, zl), cfg.Mail.PublicBaseURL),
		auth.WithLogger(zl),
	)
	contactService := contact.NewService(contactRepo, txManager)
	profileService := profile.NewService(userRepo, txManager, profile.NewMinIOStore(minioClient),
		cfg.MinIO.Bucket, cfg.MinIO.PresignTTL, cfg.HTTP.MaxAvatarBytes, zl)

	deps := server.Dependencies{
		Config:         cfg,
		Logger:         zl,
		DB:             dbPool,
		ObjectStore:    minioClient,
		AuthService:    authService,
		Resolver:       auth.NewResolver(tokens, userRepo),
		ContactService: contactService,
		ProfileService: profileService,
	}

	if cfg.Redis.Enabled() {
		redisClient, err := storage.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		deps.Redis = redisClient
		deps.ContactsLimiter = ratelimit.NewRedisLimiter(redisClient, "ratelimit:contacts",
			cfg.RateLimit.ContactsRequests, cfg.RateLimit.ContactsWindow)
	} else {
		zl.Info("REDIS_ADDR not set, using in-process rate limiter")
		deps.ContactsLimiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.ContactsRequests, cfg.RateLimit.ContactsWindow)
	}

	metrics.InitMetrics()
	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(deps)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		zl.Info("contacts api listening", zap.String("addr", cfg.Server.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	zl.Info("shutting down gracefully")
	return httpServer.Shutdown(shutdownCtx)
}
