package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sweeney/greenhouse-controller/internal/logic"
	"github.com/sweeney/greenhouse-controller/internal/store"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *store.Memory, *LatestCache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	mem := store.NewMemory()
	return mr, mem, NewLatestCache(mem, NewRedisKVStore(client), zap.NewNop())
}

func TestAppendWritesThrough(t *testing.T) {
	mr, mem, c := setupTestRedis(t)
	ctx := context.Background()

	r := logic.Reading{Timestamp: t0, TempF: 72, Humidity: 55}
	require.NoError(t, c.Append(ctx, r))

	stored, ok, _ := mem.Latest(ctx)
	require.True(t, ok)
	assert.Equal(t, 72.0, stored.TempF)

	raw := mr.HGet(LatestKey, "value")
	assert.Contains(t, raw, `"temp_f":72`)
	assert.True(t, mr.TTL(LatestKey) > 0)
}

func TestLatestServedFromCache(t *testing.T) {
	_, mem, c := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Append(ctx, logic.Reading{Timestamp: t0, TempF: 72}))
	// Written behind the cache's back.
	require.NoError(t, mem.Append(ctx, logic.Reading{Timestamp: t0.Add(time.Second), TempF: 90}))

	r, ok, err := c.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 72.0, r.TempF)
	assert.True(t, t0.Equal(r.Timestamp))
}

func TestLatestMissLoadsFromStore(t *testing.T) {
	mr, mem, c := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mem.Append(ctx, logic.Reading{Timestamp: t0, TempF: 81}))

	r, ok, err := c.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 81.0, r.TempF)
	assert.True(t, mr.Exists(LatestKey), "miss should populate the cache")
}

func TestLatestEmptyStore(t *testing.T) {
	mr, _, c := setupTestRedis(t)

	_, ok, err := c.Latest(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(LatestKey))
}

func TestAppendOlderReadingKeepsNewerCached(t *testing.T) {
	_, _, c := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Append(ctx, logic.Reading{Timestamp: t0.Add(time.Minute), TempF: 75}))
	require.NoError(t, c.Append(ctx, logic.Reading{Timestamp: t0, TempF: 70}))

	r, _, _ := c.Latest(ctx)
	assert.Equal(t, 75.0, r.TempF)
}

func TestMalformedEntryFallsThrough(t *testing.T) {
	mr, mem, c := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mem.Append(ctx, logic.Reading{Timestamp: t0, TempF: 68}))
	mr.HSet(LatestKey, "value", "not json")

	r, ok, err := c.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 68.0, r.TempF)
}

func TestRedisDownFallsThrough(t *testing.T) {
	mr, mem, c := setupTestRedis(t)
	ctx := context.Background()
	mr.Close()

	require.NoError(t, c.Append(ctx, logic.Reading{Timestamp: t0, TempF: 77}))

	r, ok, err := c.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 77.0, r.TempF)

	stored, _, _ := mem.Latest(ctx)
	assert.Equal(t, 77.0, stored.TempF)
}

func TestRangeDelegates(t *testing.T) {
	_, _, c := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.Append(ctx, logic.Reading{Timestamp: t0, TempF: 70}))

	got, err := c.Range(ctx, t0, t0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// racingStore runs onLatest once, after loading the latest reading and before
// returning it.
type racingStore struct {
	*store.Memory
	onLatest func()
}

func (s *racingStore) Latest(ctx context.Context) (logic.Reading, bool, error) {
	r, ok, err := s.Memory.Latest(ctx)
	if f := s.onLatest; f != nil {
		s.onLatest = nil
		f()
	}
	return r, ok, err
}

func TestMissLoadDoesNotOverwriteConcurrentAppend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	ctx := context.Background()

	rs := &racingStore{Memory: store.NewMemory()}
	require.NoError(t, rs.Memory.Append(ctx, logic.Reading{Timestamp: t0, TempF: 95}))

	c := NewLatestCache(rs, NewRedisKVStore(client), zap.NewNop())
	rs.onLatest = func() {
		require.NoError(t, c.Append(ctx, logic.Reading{Timestamp: t0.Add(time.Second), TempF: 70}))
	}

	r, ok, err := c.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 95.0, r.TempF, "the miss returns what it loaded")

	stored, _, _ := rs.Memory.Latest(ctx)
	r, ok, err = c.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stored.TempF, r.TempF)
	assert.Equal(t, 70.0, r.TempF)
	assert.True(t, t0.Add(time.Second).Equal(r.Timestamp))
}

func TestAppendSameTimestampReplacesCached(t *testing.T) {
	_, _, c := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Append(ctx, logic.Reading{Timestamp: t0, TempF: 70}))
	require.NoError(t, c.Append(ctx, logic.Reading{Timestamp: t0, TempF: 71}))

	r, _, _ := c.Latest(ctx)
	assert.Equal(t, 71.0, r.TempF)
}

func TestSetIfNewer(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	kv := NewRedisKVStore(client)
	ctx := context.Background()

	tests := []struct {
		version string
		value   string
		orEqual bool
		stored  bool
		want    string
	}{
		{"002", "b", false, true, "b"},
		{"001", "a", true, false, "b"},
		{"002", "c", false, false, "b"},
		{"002", "d", true, true, "d"},
		{"010", "e", false, true, "e"},
	}
	for _, tt := range tests {
		ok, err := kv.SetIfNewer(ctx, "k", tt.version, tt.value, tt.orEqual, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, tt.stored, ok, "version %s", tt.version)

		got, err := kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	assert.True(t, mr.TTL("k") > 0)

	_, err := kv.Get(ctx, "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestVersionOrdersLexically(t *testing.T) {
	early := version(t0)
	late := version(t0.Add(time.Nanosecond))
	assert.Len(t, early, 20)
	assert.Less(t, early, late)
	assert.Equal(t, version(t0), version(t0.In(time.FixedZone("X", 3600))))
}
