package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Memory is an in-process Store for single-instance deployments and tests.
// Expired entries are skipped on read and removed by Sweep.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	indexes map[string]map[string]time.Time
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		indexes: make(map[string]map[string]time.Time),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok || e.expired(m.now()) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

// Delete removes entries. A key naming an index drops the index as well.
func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
		delete(m.indexes, k)
	}
	return nil
}

func (m *Memory) AddToIndex(_ context.Context, index, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.indexes[index]
	if !ok {
		set = make(map[string]time.Time)
		m.indexes[index] = set
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.now().Add(ttl)
	}
	set[key] = expiresAt
	return nil
}

func (m *Memory) IndexMembers(_ context.Context, index string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	members := make([]string, 0, len(m.indexes[index]))
	for k, expiresAt := range m.indexes[index] {
		if (memoryEntry{expiresAt: expiresAt}).expired(now) {
			continue
		}
		members = append(members, k)
	}
	return members, nil
}

// Sweep drops expired entries and returns how many were removed. Index
// members whose entry lapsed or is gone are dropped too, and so are indexes
// left empty.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
			removed++
		}
	}

	for name, set := range m.indexes {
		for k, expiresAt := range set {
			_, live := m.entries[k]
			if !live || (memoryEntry{expiresAt: expiresAt}).expired(now) {
				delete(set, k)
			}
		}
		if len(set) == 0 {
			delete(m.indexes, name)
		}
	}
	return removed
}

// Len reports the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// IndexLen reports the number of members recorded under index, lapsed or not.
func (m *Memory) IndexLen(index string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.indexes[index])
}
