//go:build integration

package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/illmade-knight/go-billing/pkg/billing"
	"github.com/illmade-knight/go-billing/pkg/config"
	"github.com/illmade-knight/go-billing/pkg/helpers/emulators"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSeenStore_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	logger := zerolog.New(zerolog.NewTestWriter(t))

	redisConn := emulators.SetupRedisContainer(t, ctx, emulators.GetDefaultRedisImageContainer())

	store, err := billing.NewRedisSeenStore(ctx, config.RedisConfig{Addr: redisConn.EmulatorAddress}, time.Second, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	first, err := store.MarkSeen(ctx, "bus-1")
	require.NoError(t, err)
	assert.True(t, first)

	first, err = store.MarkSeen(ctx, "bus-1")
	require.NoError(t, err)
	assert.False(t, first)

	require.NoError(t, store.Forget(ctx, "bus-1"))
	first, err = store.MarkSeen(ctx, "bus-1")
	require.NoError(t, err)
	assert.True(t, first)

	// keys carry the ttl
	require.Eventually(t, func() bool {
		first, err := store.MarkSeen(ctx, "bus-1")
		return err == nil && first
	}, 10*time.Second, 250*time.Millisecond)

	_, err = billing.NewRedisSeenStore(ctx, config.RedisConfig{Addr: "127.0.0.1:1"}, time.Second, logger)
	assert.Error(t, err)
}
