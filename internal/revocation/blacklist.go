package revocation

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Blacklistは失効済みトークンの共有集合。
// エントリの寿命はトークン自身の残り有効期限と揃える（長くも短くもしない）。
type Blacklist interface {
	//再失効は上書き（冪等）
	Add(ctx context.Context, token string, ttl time.Duration) error
	Contains(ctx context.Context, token string) (bool, error)
	//期限切れエントリの掃除。正しさはSweepに依存しない（各エントリが自前で失効する）。
	Sweep(ctx context.Context) (int, error)
}

// MemoryBlacklistは単一ノード・テスト用のインメモリ実装。
type MemoryBlacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time // token → 失効エントリ自体の期限
}

func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{
		entries: map[string]time.Time{},
	}
}

func (b *MemoryBlacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[token] = time.Now().Add(ttl)
	return nil
}

func (b *MemoryBlacklist) Contains(ctx context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	exp, ok := b.entries[token]
	if !ok {
		return false, nil
	}

	//期限切れは「存在しない」扱い（遅延削除）
	if !exp.After(time.Now()) {
		delete(b.entries, token)
		return false, nil
	}

	return true, nil
}

func (b *MemoryBlacklist) Sweep(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	removed := 0
	for token, exp := range b.entries {
		if !exp.After(now) {
			delete(b.entries, token)
			removed++
		}
	}
	return removed, nil
}

// RunSweeperは定期掃除を回す。キャッシュ衛生であって正しさの条件ではない。
func RunSweeper(ctx context.Context, bl Blacklist, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := bl.Sweep(ctx)
			if err != nil {
				logger.Warn("blacklist sweep failed", slog.String("error", err.Error()))
				continue
			}
			logger.Info("blacklist sweep done", slog.Int("removed", removed))
		}
	}
}
