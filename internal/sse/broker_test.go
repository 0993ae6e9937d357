package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "note.created", Data: map[string]string{"path": "a.md"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: note.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"path":"a.md"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func drain(ch chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestNotify_WatcherKinds(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Notify("created", "/w/a.md")
	b.Notify("updated", "/w/a.md")
	b.Notify("deleted", "/w/a.md")
	b.Notify("renamed", "/w/a.md")

	msgs := drain(ch)
	want := []string{"event: note.created", "event: note.updated", "event: note.deleted"}
	if len(msgs) != len(want) {
		t.Fatalf("messages = %q, want %d (unknown kind dropped)", msgs, len(want))
	}
	for i, w := range want {
		if !strings.Contains(msgs[i], "\n"+w+"\n") {
			t.Errorf("msg[%d] = %q, want %q", i, msgs[i], w)
		}
	}
	if !strings.Contains(msgs[0], `"path":"/w/a.md"`) {
		t.Errorf("missing path in %q", msgs[0])
	}
}

func TestNotify_CacheInvalidatedThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Notify(TypeCacheInvalidated, "")
	b.Notify(TypeCacheInvalidated, "")
	b.Notify(TypePeriodicCreated, "/w/journal/2025-11-20.md")
	b.Notify(TypeVaultsReloaded, "")

	invalidated, other := 0, 0
	for _, m := range drain(ch) {
		if strings.Contains(m, TypeCacheInvalidated) {
			invalidated++
		} else {
			other++
		}
	}
	if invalidated != 1 {
		t.Errorf("cache.invalidated events = %d, want 1 (throttled)", invalidated)
	}
	if other != 2 {
		t.Errorf("other events = %d, want 2", other)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: "note.updated", Data: map[string]string{"path": "x.md"}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: note.updated") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Overflowing the client buffer must not block the broker; the slow
	// client is disconnected instead.
	for i := 0; i < clientBuffer+6; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	if n := b.ClientCount(); n != 0 {
		t.Errorf("slow client still connected: %d", n)
	}
	got := 0
	for range ch {
		got++
	}
	if got != clientBuffer {
		t.Errorf("buffered messages = %d, want %d", got, clientBuffer)
	}
}

func TestPublish_AssignsIncreasingIDs(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Notify("created", "a.md")
	b.Notify("updated", "a.md")
	msgs := drain(ch)
	if len(msgs) != 2 || !strings.HasPrefix(msgs[0], "id: 1\n") || !strings.HasPrefix(msgs[1], "id: 2\n") {
		t.Errorf("messages = %q", msgs)
	}
}

func TestSubscribeAfter_ReplaysMissedEvents(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	b.Notify("created", "a.md")
	b.Notify("created", "b.md")
	b.Notify("deleted", "a.md")

	ch := b.SubscribeAfter(1)
	defer b.Unsubscribe(ch)
	msgs := drain(ch)
	if len(msgs) != 2 {
		t.Fatalf("replayed = %q, want events 2 and 3", msgs)
	}
	if !strings.Contains(msgs[0], `"path":"b.md"`) || !strings.Contains(msgs[1], TypeNoteDeleted) {
		t.Errorf("replayed = %q", msgs)
	}

	// Caught-up clients get nothing extra.
	up := b.SubscribeAfter(3)
	defer b.Unsubscribe(up)
	if msgs := drain(up); len(msgs) != 0 {
		t.Errorf("caught-up replay = %q", msgs)
	}
}

func TestSubscribeAfter_GapSendsReset(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	for i := 0; i < historySize+10; i++ {
		b.Publish(Event{Type: "test", Data: i})
	}

	for _, last := range []uint64{1, historySize + 100} {
		ch := b.SubscribeAfter(last)
		msgs := drain(ch)
		b.Unsubscribe(ch)
		if len(msgs) != 1 || !strings.Contains(msgs[0], "event: reset") {
			t.Errorf("after %d: messages = %d, want a single reset", last, len(msgs))
		}
	}
}

func TestSSEHandler_LastEventID(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	b.Notify("created", "a.md")
	b.Notify("created", "b.md")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "1")
	w := httptest.NewRecorder()
	b.ServeHTTP(w, req)

	body := w.Body.String()
	if strings.Contains(body, `"path":"a.md"`) || !strings.Contains(body, "id: 2\n") {
		t.Errorf("resumed stream = %q", body)
	}

	bad := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	bad.Header.Set("Last-Event-ID", "abc")
	w = httptest.NewRecorder()
	b.ServeHTTP(w, bad)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid Last-Event-ID = %d, want 400", w.Code)
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: "note.updated", Data: map[string]string{"path": "x.md"}})
	b.Notify("updated", "x.md")
}
