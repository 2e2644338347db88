package cron

import (
	"context"
	"testing"
	"time"

	"github.com/branchpay/checkout-backend/pkg/redis"
)

type memoryStore struct {
	data map[string]string
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redis.ErrNil
	}
	return v, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestRedisLockIsExclusive(t *testing.T) {
	store := &memoryStore{data: map[string]string{}}
	ctx := context.Background()
	first, err := NewRedisLock(store, "bp:maintenance:lock:test", 0)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, _ := NewRedisLock(store, "bp:maintenance:lock:test", 0)

	if ok, _ := first.Acquire(ctx); !ok {
		t.Fatalf("first acquire should succeed")
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatalf("second acquire should fail while held")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release by non-owner: %v", err)
	}
	if _, held := store.data["bp:maintenance:lock:test"]; !held {
		t.Fatalf("non-owner release must not drop the lease")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatalf("acquire after release should succeed")
	}
}

func TestRedisLockReleaseAfterExpiry(t *testing.T) {
	store := &memoryStore{data: map[string]string{}}
	ctx := context.Background()
	lock, _ := NewRedisLock(store, "k", time.Minute)
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatalf("acquire should succeed")
	}
	delete(store.data, "k")
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release of expired lease: %v", err)
	}
}

func TestNewRedisLockValidates(t *testing.T) {
	if _, err := NewRedisLock(nil, "k", 0); err == nil {
		t.Fatalf("expected error without store")
	}
	if _, err := NewRedisLock(&memoryStore{}, "", 0); err == nil {
		t.Fatalf("expected error without key")
	}
}
