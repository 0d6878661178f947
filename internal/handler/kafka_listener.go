package handler

import (
	"context"
	"encoding/json"
	"log/slog"

	"app/internal/bridge"
	"app/internal/usecase"
)

// workerからの応答メッセージ。
type textResponseMessage struct {
	RequestID     string `json:"requestId"`
	ProcessedText string `json:"processedText"`
}

// new-userトピックのメッセージ。
type newUserMessage struct {
	Email string `json:"email"`
}

// KafkaListenerはコンシューマーループに渡すメッセージハンドラ群。
type KafkaListener struct {
	bridge *bridge.Bridge
	docs   *usecase.DocumentUsecase
	logger *slog.Logger
}

// DI
func NewKafkaListener(b *bridge.Bridge, docs *usecase.DocumentUsecase, logger *slog.Logger) *KafkaListener {
	return &KafkaListener{bridge: b, docs: docs, logger: logger}
}

// HandleTextResponseはworkerの処理結果を待っている呼び出しへ引き渡す。
func (l *KafkaListener) HandleTextResponse(value []byte) {
	var msg textResponseMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		l.logger.Warn("text response unmarshal failed", slog.String("error", err.Error()))
		return
	}
	if msg.RequestID == "" {
		l.logger.Warn("text response without requestId")
		return
	}

	l.bridge.HandleResponse(msg.RequestID, msg.ProcessedText)
}

// HandleNewUserはAuthサービスで確認済みになったユーザーを登録する。
func (l *KafkaListener) HandleNewUser(value []byte) {
	var msg newUserMessage
	if err := json.Unmarshal(value, &msg); err != nil || msg.Email == "" {
		l.logger.Warn("new-user message unmarshal failed")
		return
	}

	if err := l.docs.CreateUser(context.Background(), msg.Email); err != nil {
		l.logger.Error("new-user create failed",
			slog.String("email", msg.Email),
			slog.String("error", err.Error()),
		)
	}
}
