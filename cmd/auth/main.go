package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/broker"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/lib/logger"
	"app/internal/mailer"
	"app/internal/revocation"
	"app/internal/server"
	"app/internal/token"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	//.envは無ければ無いで良い（コンテナでは環境変数が直接入る）
	if err := godotenv.Load(); err != nil {
		slog.Warn(".env not loaded", slog.String("error", err.Error()))
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := cfg.RequirePostgres(); err != nil {
		slog.Error("config load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.Setup(cfg.GoEnv)

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Error("db connect failed", logger.Err(err))
		os.Exit(1)
	}
	if err := gormDB.AutoMigrate(&model.User{}); err != nil {
		log.Error("migrate failed", logger.Err(err))
		os.Exit(1)
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)

	//失効キャッシュ（Redis）
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	blacklist := revocation.NewRedisBlacklist(redisClient)

	//確認コードメール。SMTP未設定ならログ出力のみ。
	var mail usecase.MailSender
	if cfg.SMTPHost == "" {
		mail = mailer.NewLogSender(log)
	} else {
		mail = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom, log)
	}

	//new-userイベント発行
	events := broker.NewPublisher(cfg.KafkaBrokers, broker.TopicNewUser)
	defer events.Close()

	//Usecase生成
	codec := token.NewCodec(cfg.JWTSecret, usecase.AccessTokenTTL, usecase.RefreshTokenTTL)
	authUC := usecase.NewAuthUsecase(
		userRepo,
		codec,
		blacklist,
		mail,
		events,
		validator.NewAuthValidator(),
		log,
	)

	//Handler生成
	authH := handler.NewAuthHandler(authUC)

	e := server.NewAuthServer(authH, cfg.ServiceCode, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//TTL切れエントリの日次掃除
	go revocation.RunSweeper(ctx, blacklist, 24*time.Hour, log)

	go func() {
		if err := e.Start(":" + cfg.AuthPort); err != nil {
			log.Info("auth server stopped", logger.Err(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", logger.Err(err))
	}
}
