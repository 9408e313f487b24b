package shared

import (
	"time"

	"github.com/caarlos0/env/v8"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"prod"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	MetricsAddr string `env:"METRICS_ADDR"`

	MySQLDSN string `env:"MYSQL_DSN" envDefault:"root:root@tcp(localhost:3306)/replydesk?parseTime=true&charset=utf8mb4,utf8&loc=UTC"`

	RedisAddr string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string        `env:"REDIS_PASSWORD"`
	RedisDB   int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL  time.Duration `env:"CACHE_TTL" envDefault:"15m"`

	OpenAIKey       string        `env:"OPENAI_API_KEY"`
	OpenAIBase      string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel     string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	GenerateTimeout time.Duration `env:"GENERATE_TIMEOUT" envDefault:"30s"`
	MaxOutputTokens int           `env:"MAX_OUTPUT_TOKENS" envDefault:"512"`

	PlatformBase      string `env:"PLATFORM_BASE_URL" envDefault:"https://mybusiness.googleapis.com/v4"`
	PlatformTokenURL  string `env:"PLATFORM_TOKEN_URL" envDefault:"https://oauth2.googleapis.com/token"`
	PlatformClientID  string `env:"PLATFORM_CLIENT_ID"`
	PlatformClientKey string `env:"PLATFORM_CLIENT_SECRET"`
	PlatformRPS       int    `env:"PLATFORM_RPS" envDefault:"5"`

	SyncWorkers  int `env:"SYNC_WORKERS" envDefault:"8"`
	SyncPageSize int `env:"SYNC_PAGE_SIZE" envDefault:"50"`
}

func Load() Config {
	var c Config
	if err := env.Parse(&c); err != nil {
		log.Fatal().Err(err).Msg("config parse failed")
	}
	if c.OpenAIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY is empty")
	}
	if c.PlatformClientID == "" || c.PlatformClientKey == "" {
		log.Warn().Msg("platform OAuth client credentials are empty")
	}
	return c
}
