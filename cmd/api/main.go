package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"replydesk/internal/adapters/googlebiz"
	server "replydesk/internal/adapters/http_server"
	"replydesk/internal/adapters/observability"
	openaiad "replydesk/internal/adapters/openai"
	redisad "replydesk/internal/adapters/redis"
	"replydesk/internal/app"
	"replydesk/internal/domain"
	"replydesk/internal/shared"
	mysqlrepo "replydesk/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	ai, err := openaiad.New(cfg.OpenAIKey, cfg.OpenAIBase, cfg.OpenAIModel, cfg.MaxOutputTokens, cfg.GenerateTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize AI client")
	}
	platform, err := googlebiz.New(cfg.PlatformBase, cfg.PlatformTokenURL, cfg.PlatformClientID, cfg.PlatformClientKey, cfg.PlatformRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize platform client")
	}

	est, err := app.NewTokenEstimator()
	if err != nil {
		log.Warn().Err(err).Msg("token estimator unavailable, continuing without prompt token counts")
	}

	resolver := app.NewResolver(repo, cache, cfg.CacheTTL, domain.DefaultVoiceProfile())
	responder := app.NewResponderService(repo, ai, resolver, est)
	publisher := app.NewPublishService(repo, platform)
	q := app.NewQueryService(repo, cache, cfg.CacheTTL)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Responder: responder, Publisher: publisher, Q: q})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
