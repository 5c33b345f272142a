//go:build integration

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/testhelpers"
)

func TestRedisLocker_OnlyOneInstanceWins(t *testing.T) {
	client := testhelpers.GetRedisClient(t)
	ctx := context.Background()
	key := lockKeyPrefix + "test:" + uuid.NewString()

	first := NewRedisLocker(client)
	second := NewRedisLocker(client)

	ok, err := first.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
