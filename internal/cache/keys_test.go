package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyFormat(t *testing.T) {
	require.Equal(t, "user-service:users::42", Key(DefaultPrefix, ViewUser, 42))
	require.Equal(t, "user-service:usersWithCards::42", Key(DefaultPrefix, ViewUserWithCards, 42))
	require.Equal(t, "user-service:userCards::42", Key(DefaultPrefix, ViewUserCards, 42))

	require.Equal(t, "user-service:users::*", ViewPattern(DefaultPrefix, ViewUser))
	require.Equal(t, "user-service:*", PrefixPattern(DefaultPrefix))
}

func TestParseKey(t *testing.T) {
	view, id, ok := ParseKey(DefaultPrefix, "user-service:userCards::7")
	require.True(t, ok)
	require.Equal(t, ViewUserCards, view)
	require.Equal(t, int64(7), id)

	_, _, ok = ParseKey(DefaultPrefix, "other-service:users::7")
	require.False(t, ok)
	_, _, ok = ParseKey(DefaultPrefix, "user-service:users::abc")
	require.False(t, ok)
}

func TestEvictionSets(t *testing.T) {
	require.ElementsMatch(t,
		[]ViewKind{ViewUser, ViewUserWithCards, ViewUserCards}, UserViews)
	require.ElementsMatch(t,
		[]ViewKind{ViewUserCards, ViewUserWithCards}, CardOwnerViews)
}

func newLocalOnlyManager(t *testing.T) *Manager {
	t.Helper()
	local, err := NewLocalCache(DefaultLocalCacheConfig())
	require.NoError(t, err)
	manager := NewManager(local, nil, &ManagerConfig{
		Prefix:              DefaultPrefix,
		TTL:                 time.Hour,
		EnableLocalCache:    true,
		EnableRedisCache:    false,
		GracefulDegradation: true,
		Name:                "test",
	})
	t.Cleanup(func() { manager.Close() })
	return manager
}

func TestManagerRoundTrip(t *testing.T) {
	manager := newLocalOnlyManager(t)
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}

	var got payload
	err := manager.GetJSON(ctx, ViewUser, 1, &got)
	require.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, manager.PutJSON(ctx, ViewUser, 1, payload{Name: "Ada"}))
	require.NoError(t, manager.GetJSON(ctx, ViewUser, 1, &got))
	require.Equal(t, "Ada", got.Name)

	require.NoError(t, manager.Evict(ctx, ViewUser, 1))
	err = manager.GetJSON(ctx, ViewUser, 1, &got)
	require.ErrorIs(t, err, ErrCacheMiss)

	// evicting an absent entry is not an error
	require.NoError(t, manager.Evict(ctx, ViewUserCards, 99))
}

func TestManagerClear(t *testing.T) {
	manager := newLocalOnlyManager(t)
	ctx := context.Background()

	require.NoError(t, manager.PutJSON(ctx, ViewUser, 1, "a"))
	require.NoError(t, manager.PutJSON(ctx, ViewUserCards, 1, "b"))

	_, err := manager.Clear(ctx)
	require.NoError(t, err)

	var got string
	require.ErrorIs(t, manager.GetJSON(ctx, ViewUser, 1, &got), ErrCacheMiss)
	require.ErrorIs(t, manager.GetJSON(ctx, ViewUserCards, 1, &got), ErrCacheMiss)
}

func TestCorruptEntryBehavesAsMiss(t *testing.T) {
	manager := newLocalOnlyManager(t)
	ctx := context.Background()

	require.NoError(t, manager.local.Set(manager.Key(ViewUser, 5), []byte("not json")))

	var got struct{ Name string }
	require.ErrorIs(t, manager.GetJSON(ctx, ViewUser, 5, &got), ErrCacheMiss)
}
