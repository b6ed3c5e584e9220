package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"recipebox/internal/adapters/httpapi"
	"recipebox/internal/adapters/repo"
	"recipebox/internal/adapters/scraper"
	"recipebox/internal/domain"
	"recipebox/internal/infra/cache"
	"recipebox/internal/infra/config"
	"recipebox/internal/infra/db"
	httpinfra "recipebox/internal/infra/http"
	applog "recipebox/internal/infra/log"
	"recipebox/internal/infra/metrics"
	"recipebox/internal/infra/storage"
	"recipebox/internal/usecase/auth"
	"recipebox/internal/usecase/comments"
	"recipebox/internal/usecase/ratings"
	"recipebox/internal/usecase/recipes"
	"recipebox/internal/usecase/scrape"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось применить схему")
	}
	repoAdapter := repo.NewPostgres(pool)

	images, err := storage.NewLocal(cfg.Storage.Dir, cfg.Storage.PublicURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: хранилище изображений недоступно")
	}

	pageCache := recipes.NewPageCache(cacheBackend(ctx, cfg, logger), cfg.Cache.TTL, cfg.Cache.OpTimeout, cfg.Cache.InvalidateTimeout,
		applog.Component(logger, "recipe_cache"))

	tokens, err := auth.NewTokens(jwtSecret(cfg, logger), cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: JWT_SECRET не задан")
	}

	fetcher := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:         cfg.Scrape.Timeout,
		FallbackTimeout: cfg.Scrape.FallbackTimeout,
		MaxBody:         cfg.Scrape.MaxBody,
	}, applog.Component(logger, "fetcher"))
	scrapeService := scrape.NewService(fetcher, scraper.NewExtractor(), cfg.Scrape.AllowedHost,
		applog.Component(logger, "scraper"))

	handler := httpapi.New(httpapi.Deps{
		Auth: auth.NewService(repoAdapter, tokens, 0),
		Recipes: recipes.NewService(repoAdapter, repoAdapter, repoAdapter, images, pageCache,
			cfg.DefaultPerPage, applog.Component(logger, "recipes")),
		Comments:       comments.NewService(repoAdapter, repoAdapter, pageCache),
		Ratings:        ratings.NewService(repoAdapter, repoAdapter, pageCache),
		Scraper:        scrapeService,
		Health:         repoAdapter,
		StorageDir:     images.Dir(),
		DefaultPerPage: cfg.DefaultPerPage,
		Debug:          cfg.Debug(),
		Logger:         applog.Component(logger, "http"),
	})

	srv := httpinfra.NewServer(applog.Component(logger, "http"), httpinfra.Options{
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		RequestTimeout: cfg.Server.RequestTimeout,
		SlowRequest:    time.Second,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
	handler.Mount(srv.Router)

	metrics.StartServer(ctx, applog.Component(logger, "metrics"), cfg.MetricsAddr)

	go func() {
		if err := srv.Start(portAddr(cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("api: сервер остановлен")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: graceful shutdown failed")
	}
}

// cacheBackend выбирает Redis, если задан REDIS_ADDR, иначе кэш в памяти процесса.
func cacheBackend(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) domain.Cache {
	if cfg.Redis.Addr == "" {
		logger.Info().Msg("api: REDIS_ADDR не задан, кэш ленты в памяти")
		return cache.NewMemory()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("api: redis недоступен, лента будет читаться из БД")
	}
	return cache.NewRedis(client)
}

func jwtSecret(cfg config.AppConfig, logger zerolog.Logger) string {
	if cfg.Auth.JWTSecret != "" || cfg.AppEnv != "dev" {
		return cfg.Auth.JWTSecret
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось сгенерировать секрет")
	}
	logger.Warn().Msg("api: JWT_SECRET не задан, используется временный секрет")
	return hex.EncodeToString(buf)
}

func portAddr(port int) string {
	return ":" + strconv.Itoa(port)
}
