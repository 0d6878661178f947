package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"app/internal/config"
	"app/internal/lib/logger"
	"app/internal/middleware"
	"app/internal/revocation"
	"app/internal/server"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn(".env not loaded", slog.String("error", err.Error()))
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.Setup(cfg.GoEnv)

	//失効キャッシュはAuthサービスと同じRedisを見る
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	blacklist := revocation.NewRedisBlacklist(redisClient)

	verifier := middleware.NewRemoteVerifier(cfg.AuthServiceURL, cfg.ServiceCode)

	e, err := server.NewGateway(
		cfg.AuthServiceURL,
		cfg.CentralServiceURL,
		cfg.ServiceCode,
		blacklist,
		verifier,
		log,
	)
	if err != nil {
		log.Error("gateway setup failed", logger.Err(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.Start(":" + cfg.GatewayPort); err != nil {
			log.Info("gateway stopped", logger.Err(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", logger.Err(err))
	}
}
