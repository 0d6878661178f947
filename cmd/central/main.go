package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"app/internal/bridge"
	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/broker"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/lib/logger"
	"app/internal/server"
	"app/internal/usecase"

	"github.com/joho/godotenv"
)

// 応答と new-user の両リスナーが属するコンシューマーグループ
const consumerGroup = "core-response"

func main() {
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
	if err := gormDB.AutoMigrate(&model.CoreUser{}, &model.Document{}); err != nil {
		log.Error("migrate failed", logger.Err(err))
		os.Exit(1)
	}

	//Repository（GORM実装）生成
	ownerRepo := infraRepo.NewCoreUserGormRepository(gormDB)
	docRepo := infraRepo.NewDocumentGormRepository(gormDB)

	//worker行きリクエストの発行
	requests := broker.NewPublisher(cfg.KafkaBrokers, broker.TopicTextRequests)
	defer requests.Close()

	br := bridge.New(requests, time.Duration(cfg.ProcessTimeoutSec)*time.Second, log)

	//Usecase生成
	docUC := usecase.NewDocumentUsecase(ownerRepo, docRepo, br, log)

	//Handler生成
	docH := handler.NewDocumentHandler(docUC)
	listener := handler.NewKafkaListener(br, docUC, log)

	e := server.NewCentralServer(docH, cfg.ServiceCode, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//workerからの応答リスナー
	responses := broker.NewConsumer(cfg.KafkaBrokers, broker.TopicTextResponses, consumerGroup, log)
	go func() {
		if err := responses.Run(ctx, listener.HandleTextResponse); err != nil {
			log.Error("response consumer stopped", logger.Err(err))
		}
	}()

	//Authサービスからのnew-userリスナー
	newUsers := broker.NewConsumer(cfg.KafkaBrokers, broker.TopicNewUser, consumerGroup, log)
	go func() {
		if err := newUsers.Run(ctx, listener.HandleNewUser); err != nil {
			log.Error("new-user consumer stopped", logger.Err(err))
		}
	}()

	go func() {
		if err := e.Start(":" + cfg.CentralPort); err != nil {
			log.Info("central server stopped", logger.Err(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", logger.Err(err))
	}
}
