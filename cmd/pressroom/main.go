package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/pressroom-cms/pressroom/internal/app"
	"github.com/pressroom-cms/pressroom/internal/articles"
	"github.com/pressroom-cms/pressroom/internal/auth"
	"github.com/pressroom-cms/pressroom/internal/graph"
	"github.com/pressroom-cms/pressroom/internal/platform/cache"
	"github.com/pressroom-cms/pressroom/internal/platform/db"
	"github.com/pressroom-cms/pressroom/internal/rbac"
	"github.com/pressroom-cms/pressroom/internal/store"
	"github.com/pressroom-cms/pressroom/internal/uploads"
	"github.com/pressroom-cms/pressroom/internal/users"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	gateway, cleanup, err := newGateway(ctx, cfg)
	if err != nil {
		logger.Error("open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	if err := rbac.EnsureRoles(ctx, gateway); err != nil {
		logger.Error("seed roles", slog.Any("error", err))
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisClient.Close()
	}

	tokens, err := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		logger.Error("init token service", slog.Any("error", err))
		os.Exit(1)
	}

	files, err := uploads.NewStore(cfg.UploadDir)
	if err != nil {
		logger.Error("init upload store", slog.Any("error", err))
		os.Exit(1)
	}

	permissions := rbac.NewStore(gateway, redisClient)
	gate := rbac.Middleware{Store: permissions, Logger: logger}
	authMW := auth.Middleware{Resolver: auth.NewResolver(tokens, gateway), Logger: logger}

	articleService := articles.NewService(gateway, files)
	articleHandler := articles.NewHandler(logger, articleService, files, gate)
	userHandler := users.NewHandler(logger, users.NewService(gateway), gate)
	graphHandler := graph.NewHandler(logger, articleService, gate)

	router := app.NewRouter(app.RouterParams{
		Config:         cfg,
		AuthMiddleware: authMW,
		ArticleHandler: articleHandler,
		UserHandler:    userHandler,
		GraphHandler:   graphHandler,
		RequestLogging: !cfg.IsProduction(),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

// newGateway opens the configured query gateway backend.
func newGateway(ctx context.Context, cfg *app.Config) (store.Gateway, func(), error) {
	if cfg.DBDriver == "postgres" {
		pool, err := db.NewPostgres(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgres(pool), pool.Close, nil
	}
	conn, err := db.NewSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	gateway, err := store.NewSQLite(conn)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return gateway, func() { _ = conn.Close() }, nil
}
