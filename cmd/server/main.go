// Command shop-users-server serves the user account REST API and a gRPC health endpoint.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/and161185/shop-users/internal/authz"
	"github.com/and161185/shop-users/internal/config"
	pkgcrypto "github.com/and161185/shop-users/internal/crypto"
	"github.com/and161185/shop-users/internal/limiter"
	"github.com/and161185/shop-users/internal/migrate"
	"github.com/and161185/shop-users/internal/repository/postgres"
	"github.com/and161185/shop-users/internal/server/health"
	"github.com/and161185/shop-users/internal/server/rest"
	"github.com/and161185/shop-users/internal/service"
	"github.com/and161185/shop-users/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	cfg, err := config.Load(os.Args[1:], envFile)

	logger := newLogger(cfg.Dev)
	defer func() { _ = logger.Sync() }()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("http", cfg.HTTPAddr),
		zap.String("health", cfg.HealthAddr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func newLogger(dev bool) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if dev {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if err := migrate.Up(ctx, cfg.DatabaseDSN); err != nil {
		return err
	}
	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	hasher, err := pkgcrypto.NewHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	codec, err := token.NewCodec([]byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		return err
	}
	var lim limiter.Limiter = limiter.Nop{}
	if cfg.LoginMaxFails > 0 {
		lim = limiter.NewPG(db.Pool, limiter.Config{
			Window:   cfg.LoginWindow,
			MaxFails: cfg.LoginMaxFails,
			BlockFor: cfg.LoginBlockFor,
		})
	}

	userRepo := postgres.NewUserRepo(db)
	authSvc := service.NewAuthService(service.AuthDeps{
		Users:       userRepo,
		Hasher:      hasher,
		Tokens:      codec,
		Limiter:     lim,
		PhoneRegion: cfg.PhoneRegion,
		Log:         logger.Named("auth"),
	})
	userSvc := service.NewUserService(userRepo, cfg.PhoneRegion, logger.Named("users"))
	guard := authz.NewGuard(codec, logger.Named("authz"))

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           rest.NewRouter(rest.NewUserHandler(authSvc, userSvc, logger), guard, logger.Named("http"),
			rest.WithTrustedProxy(cfg.TrustProxy)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var grpcOpts []grpc.ServerOption
	if cfg.TLS() {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return err
		}
		httpSrv.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
		grpcOpts = append(grpcOpts, grpc.Creds(credentials.NewServerTLSFromCert(&cert)))
	}
	healthSrv := health.New(logger.Named("health"), cfg.Dev, grpcOpts...)

	healthLis, err := net.Listen("tcp", cfg.HealthAddr)
	if err != nil {
		return err
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go healthSrv.Watch(watchCtx, db, health.DefaultInterval)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("health listening", zap.String("addr", cfg.HealthAddr))
		errCh <- healthSrv.Serve(healthLis)
	}()
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.Bool("tls", cfg.TLS()))
		var err error
		if cfg.TLS() {
			err = httpSrv.ListenAndServeTLS("", "")
		} else {
			err = httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	stopWatch()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	healthSrv.Shutdown(cfg.ShutdownTimeout)
	return runErr
}
