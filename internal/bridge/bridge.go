package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	//期限までに応答が来なかった
	ErrTimeout = errors.New("processing timeout")
	//ブローカーへの発行に失敗した
	ErrPublishFailed = errors.New("publish failed")
)

// リクエストトピックに流すメッセージ
type Request struct {
	RequestID   string `json:"requestId"`
	Instruction string `json:"instruction"`
	Text        string `json:"text"`
}

// レスポンストピックから受け取る結果
type Result struct {
	ProcessedText string `json:"processedText"`
}

// ブローカーへの発行の約束
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// BridgeはKafka越しの計算を同期呼び出しに見せる。
// 相関ID→待機スロットの表を持ち、応答かタイムアウトのどちらか一方だけが
// スロットを解決する（先に表から取り除いた側が勝ち、負けた側は何もしない）。
type Bridge struct {
	publisher Publisher
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]chan Result
}

// DI
func New(publisher Publisher, timeout time.Duration, logger *slog.Logger) *Bridge {
	return &Bridge{
		publisher: publisher,
		timeout:   timeout,
		logger:    logger,
		pending:   map[string]chan Result{},
	}
}

// Submitはリクエストを発行して応答が来るまで待つ。
// 呼び出し元goroutineだけをブロックする（他のリクエストは止めない）。
func (b *Bridge) Submit(ctx context.Context, instruction string, text string) (Result, error) {
	requestID := uuid.NewString()

	//応答側が待たずに書けるようバッファ1
	slot := make(chan Result, 1)

	b.mu.Lock()
	b.pending[requestID] = slot
	b.mu.Unlock()

	payload, err := json.Marshal(Request{
		RequestID:   requestID,
		Instruction: instruction,
		Text:        text,
	})
	if err != nil {
		b.take(requestID)
		return Result{}, ErrPublishFailed
	}

	if err := b.publisher.Publish(ctx, requestID, payload); err != nil {
		//期限を待たずに即失敗させる
		b.take(requestID)
		b.logger.Error("bridge: publish failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return Result{}, ErrPublishFailed
	}

	b.logger.Info("bridge: request published", slog.String("request_id", requestID))

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case res := <-slot:
		return res, nil

	case <-timer.C:
		if _, ok := b.take(requestID); !ok {
			//応答側が先に表から取り除いた＝結果はもうslotに入る
			res := <-slot
			return res, nil
		}
		b.logger.Warn("bridge: request timed out", slog.String("request_id", requestID))
		return Result{}, ErrTimeout

	case <-ctx.Done():
		if _, ok := b.take(requestID); !ok {
			res := <-slot
			return res, nil
		}
		return Result{}, ctx.Err()
	}
}

// HandleResponseはレスポンスリスナーから呼ばれる。
// 既にタイムアウト済み・重複配送なら何もしない（at-least-once前提）。
func (b *Bridge) HandleResponse(requestID string, processedText string) {
	slot, ok := b.take(requestID)
	if !ok {
		b.logger.Info("bridge: late or duplicate response discarded",
			slog.String("request_id", requestID))
		return
	}

	b.logger.Info("bridge: response resolved", slog.String("request_id", requestID))
	slot <- Result{ProcessedText: processedText}
}

// Pendingは未解決スロット数（テスト・監視用）
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// takeはスロットを表から原子的に取り除く。取った側が解決権を持つ。
func (b *Bridge) take(requestID string) (chan Result, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	slot, ok := b.pending[requestID]
	if ok {
		delete(b.pending, requestID)
	}
	return slot, ok
}
