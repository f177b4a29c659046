// Package sse implements a Server-Sent Events broker for entry and storage
// change notifications.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Event types.
const (
	EventEntryUpdated   = "entry.updated"
	EventEntryDeleted   = "entry.deleted"
	EventStorageChanged = "storage.changed"
)

// clientBuffer is the number of frames a slow client may lag behind before
// frames are dropped for it.
const clientBuffer = 64

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// frame renders e in the text/event-stream wire format.
func (e Event) frame() ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", e.Type, payload), nil
}

type opKind int

const (
	opSubscribe opKind = iota
	opUnsubscribe
	opPublish
	opCount
)

// request is the single message type understood by the broker loop.
type request struct {
	kind   opKind
	client chan []byte
	event  Event
	count  chan int
}

// Broker fans events out to SSE clients. One goroutine owns the client set
// and the storage throttle; every public method is a request to it, so
// events reach clients in the order they were published.
type Broker struct {
	throttle time.Duration

	requests chan request
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewBroker creates a broker that emits at most one storage.changed event
// per throttle interval.
func NewBroker(storageThrottle time.Duration) *Broker {
	if storageThrottle <= 0 {
		storageThrottle = 2 * time.Second
	}
	b := &Broker{
		throttle: storageThrottle,
		requests: make(chan request, 256),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.done)

	clients := map[chan []byte]struct{}{}
	var lastStorage time.Time

	for {
		select {
		case <-b.stop:
			for ch := range clients {
				close(ch)
			}
			return
		case r := <-b.requests:
			switch r.kind {
			case opSubscribe:
				clients[r.client] = struct{}{}
			case opUnsubscribe:
				if _, ok := clients[r.client]; ok {
					delete(clients, r.client)
					close(r.client)
				}
			case opCount:
				r.count <- len(clients)
			case opPublish:
				if r.event.Type == EventStorageChanged {
					now := time.Now()
					if now.Sub(lastStorage) < b.throttle {
						continue
					}
					lastStorage = now
				}
				raw, err := r.event.frame()
				if err != nil {
					continue
				}
				for ch := range clients {
					select {
					case ch <- raw:
					default:
						// Slow client; drop the frame.
					}
				}
			}
		}
	}
}

// send hands r to the loop. It reports false once the broker is closed.
func (b *Broker) send(r request) bool {
	select {
	case <-b.done:
		return false
	default:
	}
	select {
	case b.requests <- r:
		return true
	case <-b.done:
		return false
	}
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	b.stopOnce.Do(func() { close(b.stop) })
	<-b.done
}

// Subscribe registers a client. The channel is closed on Unsubscribe or
// Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if !b.send(request{kind: opSubscribe, client: ch}) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.send(request{kind: opUnsubscribe, client: ch})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	reply := make(chan int, 1)
	if !b.send(request{kind: opCount, count: reply}) {
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-b.done:
		return 0
	}
}

// Publish sends an event to all connected clients. storage.changed events
// are throttled.
func (b *Broker) Publish(event Event) {
	b.send(request{kind: opPublish, event: event})
}

// PublishEntryEvent announces a persisted change to one entry. kind is
// "update" or "delete".
func (b *Broker) PublishEntryEvent(kind, typ, key string) {
	eventType := EventEntryUpdated
	if kind == "delete" {
		eventType = EventEntryDeleted
	}
	b.Publish(Event{Type: eventType, Data: map[string]string{"type": typ, "key": key}})
}

// PublishStorageChange announces a file changed outside the service.
func (b *Broker) PublishStorageChange(path string) {
	b.Publish(Event{Type: EventStorageChanged, Data: map[string]string{"path": path}})
}

// ServeHTTP streams events to one client (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
