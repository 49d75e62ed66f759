package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listing struct {
	Items []string `json:"items"`
	Total int      `json:"total"`
}

func newClockedMemory(start time.Time) (*Memory, *time.Time) {
	m := NewMemory()
	now := start
	m.now = func() time.Time { return now }
	return m, &now
}

func TestRememberComputesOnceWithinTTL(t *testing.T) {
	ctx := context.Background()
	m, now := newClockedMemory(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))

	calls := 0
	compute := func() (listing, error) {
		calls++
		return listing{Items: []string{"casa"}, Total: calls}, nil
	}

	first, err := Remember(ctx, m, "k", 5*time.Minute, compute)
	require.NoError(t, err)
	second, err := Remember(ctx, m, "k", 5*time.Minute, compute)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	*now = now.Add(5 * time.Minute)
	third, err := Remember(ctx, m, "k", 5*time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, third.Total)
}

func TestRememberDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("boom")

	_, err := Remember(ctx, m, "k", time.Minute, func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, m.Len())

	v, err := Remember(ctx, m, "k", time.Minute, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestRememberRecomputesUndecodableEntry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "k", []byte("not json"), 0))

	v, err := Remember(ctx, m, "k", time.Minute, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestMemorySweep(t *testing.T) {
	ctx := context.Background()
	m, now := newClockedMemory(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))

	require.NoError(t, m.Set(ctx, "short", []byte("1"), time.Minute))
	require.NoError(t, m.Set(ctx, "long", []byte("2"), time.Hour))
	require.NoError(t, m.Set(ctx, "forever", []byte("3"), 0))

	*now = now.Add(2 * time.Minute)
	_, ok, _ := m.Get(ctx, "short")
	assert.False(t, ok)

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 2, m.Len())
}

func TestMemoryIndex(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.AddToIndex(ctx, "idx", "a", time.Minute))
	require.NoError(t, m.AddToIndex(ctx, "idx", "b", 0))
	require.NoError(t, m.AddToIndex(ctx, "idx", "a", time.Minute))

	members, err := m.IndexMembers(ctx, "idx")
	require.NoError(t, err)
	sort.Strings(members)
	assert.Equal(t, []string{"a", "b"}, members)

	require.NoError(t, m.Delete(ctx, "idx"))
	members, err = m.IndexMembers(ctx, "idx")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestMemorySweepPrunesIndex(t *testing.T) {
	ctx := context.Background()
	m, now := newClockedMemory(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))

	for i := 0; i < 500; i++ {
		key := fmt.Sprintf("filtros:codigo=INM-%04d", i)
		require.NoError(t, m.Set(ctx, key, []byte("{}"), time.Minute))
		require.NoError(t, m.AddToIndex(ctx, "results", key, time.Minute))
	}
	require.NoError(t, m.Set(ctx, "filtros:live", []byte("{}"), time.Hour))
	require.NoError(t, m.AddToIndex(ctx, "results", "filtros:live", time.Hour))
	require.NoError(t, m.AddToIndex(ctx, "results", "filtros:gone", time.Hour))
	assert.Equal(t, 502, m.IndexLen("results"))

	*now = now.Add(2 * time.Minute)
	members, err := m.IndexMembers(ctx, "results")
	require.NoError(t, err)
	sort.Strings(members)
	assert.Equal(t, []string{"filtros:gone", "filtros:live"}, members)

	assert.Equal(t, 500, m.Sweep())
	assert.Equal(t, 1, m.IndexLen("results"))

	members, err = m.IndexMembers(ctx, "results")
	require.NoError(t, err)
	assert.Equal(t, []string{"filtros:live"}, members)
}

func TestMemorySweepDropsEmptyIndex(t *testing.T) {
	ctx := context.Background()
	m, now := newClockedMemory(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))

	require.NoError(t, m.Set(ctx, "k", []byte("1"), time.Second))
	require.NoError(t, m.AddToIndex(ctx, "idx", "k", time.Second))

	*now = now.Add(time.Minute)
	m.Sweep()
	assert.Equal(t, 0, m.IndexLen("idx"))
	assert.Equal(t, 0, m.Len())
}
