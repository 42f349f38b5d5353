package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/probelab/polymigrate/conf"
	"github.com/probelab/polymigrate/http"
	"github.com/probelab/polymigrate/migrator"
	"github.com/probelab/polymigrate/polygon"
	"github.com/probelab/polymigrate/problem"
	"github.com/probelab/polymigrate/rediscache"
	"github.com/probelab/polymigrate/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", "error", err)
	}

	c, err := conf.FromEnv()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if len(c.JwtKey) == 0 {
		slog.Error("JWT_KEY is not set")
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, conf.GetPgConnStrFromEnv())
	if err != nil {
		slog.Error("failed to create pg connection pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	defer rdb.Close()

	cache, err := rediscache.New(rdb, c.Tuning.CacheTTLDur())
	if err != nil {
		slog.Error("failed to init cache", "error", err)
		os.Exit(1)
	}

	client := polygon.NewClient(c.PolygonApiUrl, c.PolygonApiKey, c.PolygonApiSecret,
		c.Tuning.RequestTimeoutDur())
	fetcher := polygon.NewFetcher(client, cache,
		c.Tuning.FetchMaxRetries, c.Tuning.FetchConcurrency)

	store, err := storage.NewFromConf(ctx, c)
	if err != nil {
		slog.Error("failed to init storage provider", "error", err)
		os.Exit(1)
	}

	repo := problem.NewPgRepo(pool)
	migrSrvc := migrator.NewSrvc(fetcher, repo, store, rdb, c.Tuning.LockTTLDur())

	httpServer := http.NewHttpServer(migrSrvc, repo, store, c.JwtKey)

	address := ":8080"
	srv := &nethttp.Server{Addr: address, Handler: httpServer}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Starting server on %s", address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-shutdownCtx.Done()
	log.Printf("Shutting down")

	// In-flight migrations get a grace period to finish cleanly.
	drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
}
