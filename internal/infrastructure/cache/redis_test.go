package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"ncd-admin-backend/internal/domain/uow"
)

func TestOpenRedis_Success(t *testing.T) {
	s := miniredis.RunT(t)

	c, err := OpenRedis(s.Addr(), 2)
	if err != nil {
		t.Fatalf("OpenRedis returned error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if got := c.Options().DB; got != 2 {
		t.Fatalf("client DB = %d, want 2", got)
	}
}

func TestOpenRedis_Failure(t *testing.T) {
	if _, err := OpenRedis("not-a-real-host:6379", 0); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func newKV(t *testing.T) (*miniredis.Miniredis, *KV) {
	t.Helper()
	s := miniredis.RunT(t)
	c, err := OpenRedis(s.Addr(), 0)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return s, NewKV(c, "ncd:")
}

func TestKV_GetMissingReturnsNil(t *testing.T) {
	_, kv := newKV(t)
	v, err := kv.Get(context.Background(), "series")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if v != nil {
		t.Fatalf("want nil for missing key, got %q", v)
	}
}

func TestKV_CompareAndSetManyGetDel(t *testing.T) {
	s, kv := newKV(t)
	ctx := context.Background()

	err := kv.CompareAndSetMany(ctx, "revision", 0, map[string][]byte{
		"series":    []byte(`[{"id":1}]`),
		"investors": []byte(`[]`),
	})
	if err != nil {
		t.Fatalf("CompareAndSetMany: %v", err)
	}

	// keys carry the prefix
	raw, err := s.Get("ncd:series")
	if err != nil || raw != `[{"id":1}]` {
		t.Fatalf("raw ncd:series = %q err=%v", raw, err)
	}
	if rev, _ := s.Get("ncd:revision"); rev != "1" {
		t.Fatalf("revision = %q, want 1", rev)
	}

	got, err := kv.Get(ctx, "investors")
	if err != nil || string(got) != `[]` {
		t.Fatalf("Get investors = %q err=%v", got, err)
	}

	if err := kv.Del(ctx, "series", "investors"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if s.Exists("ncd:series") || s.Exists("ncd:investors") {
		t.Fatal("keys survived Del")
	}
}

func TestKV_CompareAndSetMany_StaleRevision(t *testing.T) {
	s, kv := newKV(t)
	ctx := context.Background()

	if err := kv.CompareAndSetMany(ctx, "revision", 0, map[string][]byte{"series": []byte(`["a"]`)}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	// a second writer still holding revision 0 must not overwrite
	err := kv.CompareAndSetMany(ctx, "revision", 0, map[string][]byte{"series": []byte(`["b"]`)})
	if !errors.Is(err, uow.ErrConflict) {
		t.Fatalf("err = %v, want uow.ErrConflict", err)
	}
	if raw, _ := s.Get("ncd:series"); raw != `["a"]` {
		t.Fatalf("series = %q, want first write kept", raw)
	}

	if err := kv.CompareAndSetMany(ctx, "revision", 1, map[string][]byte{"series": []byte(`["c"]`)}); err != nil {
		t.Fatalf("write at current revision: %v", err)
	}
	if rev, _ := s.Get("ncd:revision"); rev != "2" {
		t.Fatalf("revision = %q, want 2", rev)
	}
}

func TestKV_CompareAndSetMany_BadCounter(t *testing.T) {
	s, kv := newKV(t)
	_ = s.Set("ncd:revision", "not-a-number")

	err := kv.CompareAndSetMany(context.Background(), "revision", 0, map[string][]byte{"series": []byte(`[]`)})
	if err == nil || errors.Is(err, uow.ErrConflict) {
		t.Fatalf("err = %v, want a parse error", err)
	}
}

func TestKV_PublishSubscribe(t *testing.T) {
	_, kv := newKV(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub := kv.Subscribe(ctx, "refresh")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil { // subscription confirmation
		t.Fatalf("subscribe: %v", err)
	}

	if err := kv.Publish(ctx, "refresh", []byte(`{"version":1}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	if msg.Channel != "ncd:refresh" || msg.Payload != `{"version":1}` {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestKV_Listen(t *testing.T) {
	_, kv := newKV(t)
	ctx, cancel := context.WithCancel(context.Background())

	got := make(chan string, 8)
	done := make(chan error, 1)
	go func() { done <- kv.Listen(ctx, "refresh", func(p []byte) { got <- string(p) }) }()

	// the listener subscribes asynchronously; publish until it hears one
	deadline := time.After(2 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for received := false; !received; {
		select {
		case p := <-got:
			if p != "ping" {
				t.Fatalf("payload = %q", p)
			}
			received = true
		case <-tick.C:
			_ = kv.Publish(context.Background(), "refresh", []byte("ping"))
		case <-deadline:
			t.Fatal("listener never received a message")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Listen returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not stop on cancel")
	}
}
