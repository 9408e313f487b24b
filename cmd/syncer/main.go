package main

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"replydesk/internal/adapters/googlebiz"
	"replydesk/internal/adapters/observability"
	redisad "replydesk/internal/adapters/redis"
	"replydesk/internal/app"
	"replydesk/internal/shared"
	mysqlrepo "replydesk/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("base", cfg.PlatformBase).
		Int("workers", cfg.SyncWorkers).
		Int("page_size", cfg.SyncPageSize).
		Msg("syncer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	platform, err := googlebiz.New(cfg.PlatformBase, cfg.PlatformTokenURL, cfg.PlatformClientID, cfg.PlatformClientKey, cfg.PlatformRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize platform client")
	}

	syncer := app.NewSyncService(repo, platform, cache, cfg.SyncPageSize)

	locations, err := repo.ListActiveLocations(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("listing active locations failed")
	}

	sem := semaphore.NewWeighted(int64(cfg.SyncWorkers))
	var wg sync.WaitGroup

	for _, loc := range locations {
		loc := loc

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			if err := syncer.SyncLocation(ctx, loc); err != nil {
				log.Warn().Str("location", loc.ID).Err(err).Msg("sync failed")
			}
		}()
	}

	wg.Wait()
	log.Info().Msg("sync completed")
}
