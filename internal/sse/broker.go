// Package sse implements a Server-Sent Events broker that pushes index,
// cache, and vault changes to editor clients.
//
// Every event carries an id. Clients that reconnect with Last-Event-ID get
// the events they missed replayed from a bounded history, so a client that
// falls behind is disconnected rather than silently losing events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Event types sent to clients.
const (
	TypeNoteCreated      = "note.created"
	TypeNoteUpdated      = "note.updated"
	TypeNoteDeleted      = "note.deleted"
	TypeVaultsReloaded   = "vaults.reloaded"
	TypePeriodicCreated  = "periodic.created"
	TypeCacheInvalidated = "cache.invalidated"
)

const (
	heartbeatInterval = 30 * time.Second
	clientBuffer      = 64
	historySize       = 256
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type frame struct {
	id  uint64
	raw []byte
}

// hub is the state owned by the broker loop.
type hub struct {
	clients        map[chan []byte]struct{}
	lastID         uint64
	history        []frame // oldest first, at most historySize
	lastInvalidate time.Time
	invalidateMin  time.Duration
}

// Broker fans events out to SSE clients.
//
// A single goroutine owns the hub; every public method hands it an
// operation over ops, so no mutexes are required.
type Broker struct {
	ops     chan func(*hub)
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. cache.invalidated events closer
// together than invalidateThrottle are dropped.
func NewBroker(invalidateThrottle time.Duration) *Broker {
	if invalidateThrottle <= 0 {
		invalidateThrottle = 2 * time.Second
	}
	b := &Broker{
		ops:     make(chan func(*hub), 256),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	h := &hub{
		clients:       make(map[chan []byte]struct{}),
		invalidateMin: invalidateThrottle,
	}
	go b.run(h)
	return b
}

func (b *Broker) run(h *hub) {
	defer close(b.stopped)
	for {
		select {
		case <-b.stopCh:
			for ch := range h.clients {
				close(ch)
			}
			return
		case op := <-b.ops:
			op(h)
		}
	}
}

// do runs op on the loop. It reports false once the broker is closed.
func (b *Broker) do(op func(*hub)) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case b.ops <- op:
		return true
	case <-b.stopped:
		return false
	}
}

// query runs op on the loop and waits for it to finish.
func (b *Broker) query(op func(*hub)) bool {
	done := make(chan struct{})
	if !b.do(func(h *hub) { op(h); close(done) }) {
		return false
	}
	select {
	case <-done:
		return true
	case <-b.stopped:
		return false
	}
}

func (h *hub) broadcast(event Event) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return
	}
	h.lastID++
	f := frame{
		id:  h.lastID,
		raw: []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", h.lastID, event.Type, payload)),
	}
	if len(h.history) == historySize {
		h.history = h.history[1:]
	}
	h.history = append(h.history, f)

	for ch := range h.clients {
		select {
		case ch <- f.raw:
		default:
			// Too slow; it reconnects with Last-Event-ID and catches up.
			h.drop(ch)
		}
	}
}

func (h *hub) drop(ch chan []byte) {
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

// replay queues history newer than after. It returns false when the gap
// no longer fits in the history or the client buffer.
func (h *hub) replay(ch chan []byte, after uint64) bool {
	if after == h.lastID {
		return true
	}
	// An id from the future belongs to an earlier broker.
	if after > h.lastID || len(h.history) == 0 || h.history[0].id > after+1 {
		return false
	}
	for _, f := range h.history {
		if f.id <= after {
			continue
		}
		select {
		case ch <- f.raw:
		default:
			return false
		}
	}
	return true
}

// eventType maps watcher and service event kinds to SSE event types.
func eventType(kind string) (string, bool) {
	switch kind {
	case "created":
		return TypeNoteCreated, true
	case "updated":
		return TypeNoteUpdated, true
	case "deleted":
		return TypeNoteDeleted, true
	case TypeVaultsReloaded, TypePeriodicCreated, TypeCacheInvalidated:
		return kind, true
	}
	if strings.HasPrefix(kind, "note.") {
		return kind, true
	}
	return "", false
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client that receives events from now on.
func (b *Broker) Subscribe() chan []byte {
	return b.subscribe(0, false)
}

// SubscribeAfter adds a client and first replays the events after lastID.
// When those events are no longer in the history, the client instead gets
// a single "reset" event telling it to refetch its state.
func (b *Broker) SubscribeAfter(lastID uint64) chan []byte {
	return b.subscribe(lastID, true)
}

func (b *Broker) subscribe(lastID uint64, resume bool) chan []byte {
	ch := make(chan []byte, clientBuffer)
	ok := b.query(func(h *hub) {
		if resume && !h.replay(ch, lastID) {
			for len(ch) > 0 {
				<-ch
			}
			ch <- []byte(fmt.Sprintf("id: %d\nevent: reset\ndata: {}\n\n", h.lastID))
		}
		h.clients[ch] = struct{}{}
	})
	if !ok {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel. Channels the broker
// already dropped are ignored.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.query(func(h *hub) { h.drop(ch) })
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	n := 0
	b.query(func(h *hub) { n = len(h.clients) })
	return n
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	b.do(func(h *hub) { h.broadcast(event) })
}

// Notify publishes a watcher kind (created, updated, deleted) or a service
// event type. cache.invalidated is throttled; unknown kinds are dropped.
// Its signature matches the watcher and service callbacks.
func (b *Broker) Notify(kind, path string) {
	typ, ok := eventType(kind)
	if !ok {
		return
	}
	b.do(func(h *hub) {
		if typ == TypeCacheInvalidated {
			now := time.Now()
			if now.Sub(h.lastInvalidate) < h.invalidateMin {
				return
			}
			h.lastInvalidate = now
		}
		data := map[string]string{}
		if path != "" {
			data["path"] = path
		}
		h.broadcast(Event{Type: typ, Data: data})
	})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). A Last-Event-ID
// header resumes after that event.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	var ch chan []byte
	if last := r.Header.Get("Last-Event-ID"); last != "" {
		id, err := strconv.ParseUint(last, 10, 64)
		if err != nil {
			http.Error(w, "invalid Last-Event-ID", http.StatusBadRequest)
			return
		}
		ch = b.SubscribeAfter(id)
	} else {
		ch = b.Subscribe()
	}
	defer b.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
