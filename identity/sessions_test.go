package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newRedisSessions(t *testing.T) (*RedisSessions, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisSessions(rdb), mr
}

func TestRedisSessions(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisSessions(t)

	sess := Session{ID: "s1", UserID: "u1", Remember: true, ExpiresAt: time.Now().Add(time.Hour)}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if ttl := mr.TTL("session:s1"); ttl <= 59*time.Minute || ttl > time.Hour {
		t.Errorf("TTL = %v, want about 1h", ttl)
	}

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UserID != "u1" || !got.Remember {
		t.Errorf("Get() = %+v", got)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get(expired) = %v, want ErrSessionNotFound", err)
	}
}

func TestRedisSessions_DeleteAndRejectExpired(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisSessions(t)

	if err := store.Save(ctx, Session{ID: "old", UserID: "u1", ExpiresAt: time.Now().Add(-time.Second)}); err == nil {
		t.Error("Save(expired) succeeded, want error")
	}
	if mr.Exists("session:old") {
		t.Error("expired session was stored")
	}

	if err := store.Save(ctx, Session{ID: "s2", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete(ctx, "s2"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "s2"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get(deleted) = %v, want ErrSessionNotFound", err)
	}

	if err := mr.Set("session:bad", "{not json"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "bad"); err == nil || errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(corrupt) = %v, want decode error", err)
	}
}
