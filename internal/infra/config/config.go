package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию API.
type AppConfig struct {
	AppEnv       string `envconfig:"APP_ENV" default:"prod"`
	Port         int    `envconfig:"PORT" default:"8080"`
	MetricsAddr  string `envconfig:"METRICS_ADDR" default:":9090"`
	ExposeErrors bool   `envconfig:"EXPOSE_ERRORS" default:"false"`

	Server struct {
		ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
		ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
		WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"75s"`
		IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
		RequestTimeout  time.Duration `envconfig:"SERVER_REQUEST_TIMEOUT" default:"70s"`
	} `envconfig:""`

	PGDSN      string `envconfig:"PG_DSN"`
	PGMaxConns int32  `envconfig:"PG_MAX_CONNS" default:"10"`

	Redis struct {
		Addr     string `envconfig:"REDIS_ADDR"`
		Password string `envconfig:"REDIS_PASSWORD"`
		DB       int    `envconfig:"REDIS_DB" default:"0"`
	} `envconfig:""`

	Cache struct {
		TTL               time.Duration `envconfig:"CACHE_TTL" default:"1h"`
		OpTimeout         time.Duration `envconfig:"CACHE_OP_TIMEOUT" default:"250ms"`
		InvalidateTimeout time.Duration `envconfig:"CACHE_INVALIDATE_TIMEOUT" default:"5s"`
	} `envconfig:""`

	Auth struct {
		JWTSecret string        `envconfig:"JWT_SECRET"`
		TokenTTL  time.Duration `envconfig:"JWT_TTL" default:"720h"`
	} `envconfig:""`

	Scrape struct {
		AllowedHost     string        `envconfig:"SCRAPE_ALLOWED_HOST" default:"tudogostoso.com.br"`
		Timeout         time.Duration `envconfig:"SCRAPE_TIMEOUT" default:"30s"`
		FallbackTimeout time.Duration `envconfig:"SCRAPE_FALLBACK_TIMEOUT" default:"30s"`
		MaxBody         int64         `envconfig:"SCRAPE_MAX_BODY" default:"5242880"`
	} `envconfig:""`

	Storage struct {
		Dir       string `envconfig:"STORAGE_DIR" default:"./storage"`
		PublicURL string `envconfig:"STORAGE_PUBLIC_URL" default:"http://localhost:8080/storage"`
	} `envconfig:""`

	CORS struct {
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000,http://localhost:8081,http://localhost:19006,http://127.0.0.1:5173,http://127.0.0.1:3000,http://127.0.0.1:8081,http://127.0.0.1:19006"`
	} `envconfig:""`

	DefaultPerPage int `envconfig:"DEFAULT_PER_PAGE" default:"15"`
}

// Debug сообщает, можно ли отдавать клиенту текст внутренних ошибок.
func (c AppConfig) Debug() bool {
	return c.ExposeErrors || c.AppEnv == "dev"
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Parse читает конфиг из окружения и возвращает ошибку вместо завершения процесса.
func Parse() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}
