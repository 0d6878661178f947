package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryBlacklist_AddAndContains(t *testing.T) {
	ctx := context.Background()
	bl := NewMemoryBlacklist()

	found, err := bl.Contains(ctx, "token-a")
	assert.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, bl.Add(ctx, "token-a", time.Minute))

	found, err = bl.Contains(ctx, "token-a")
	assert.NoError(t, err)
	assert.True(t, found)

	//別トークンは影響を受けない
	found, err = bl.Contains(ctx, "token-b")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryBlacklist_ExpiredEntryDisappears(t *testing.T) {
	ctx := context.Background()
	bl := NewMemoryBlacklist()

	assert.NoError(t, bl.Add(ctx, "token-a", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	found, err := bl.Contains(ctx, "token-a")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryBlacklist_Sweep(t *testing.T) {
	ctx := context.Background()
	bl := NewMemoryBlacklist()

	assert.NoError(t, bl.Add(ctx, "dead", 10*time.Millisecond))
	assert.NoError(t, bl.Add(ctx, "alive", time.Hour))
	time.Sleep(30 * time.Millisecond)

	removed, err := bl.Sweep(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, removed)

	found, err := bl.Contains(ctx, "alive")
	assert.NoError(t, err)
	assert.True(t, found)
}
