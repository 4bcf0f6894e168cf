package sessionstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
)

func TestMemoryRevocationExpires(t *testing.T) {
	m := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	if err := m.Revoke(ctx, "abc", time.Hour); err != nil {
		t.Fatal(err)
	}
	if ok, _ := m.IsRevoked(ctx, "abc"); !ok {
		t.Fatalf("expected revoked")
	}
	if ok, _ := m.IsRevoked(ctx, "other"); ok {
		t.Fatalf("unknown token must not be revoked")
	}
	now = now.Add(2 * time.Hour)
	if ok, _ := m.IsRevoked(ctx, "abc"); ok {
		t.Fatalf("revocation should lapse with the token")
	}
	if err := m.Revoke(ctx, "expired", 0); err != nil {
		t.Fatal(err)
	}
	if ok, _ := m.IsRevoked(ctx, "expired"); ok {
		t.Fatalf("already expired tokens need no record")
	}
}

func TestRedisRevocation(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedis(client)
	ctx := context.Background()

	mock.ExpectSet(keyPrefix+"abc", "1", time.Hour).SetVal("OK")
	if err := store.Revoke(ctx, "abc", time.Hour); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	mock.ExpectGet(keyPrefix + "abc").SetVal("1")
	if ok, err := store.IsRevoked(ctx, "abc"); err != nil || !ok {
		t.Fatalf("expected revoked, got %v %v", ok, err)
	}

	mock.ExpectGet(keyPrefix + "fresh").RedisNil()
	if ok, err := store.IsRevoked(ctx, "fresh"); err != nil || ok {
		t.Fatalf("expected not revoked, got %v %v", ok, err)
	}

	mock.ExpectGet(keyPrefix + "boom").SetErr(errors.New("connection refused"))
	if _, err := store.IsRevoked(ctx, "boom"); err == nil {
		t.Fatalf("expected redis error to surface")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
