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

	b.Publish(Event{Type: "entry.updated", Data: map[string]string{"key": "a"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: entry.updated") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"key":"a"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishStorageChange_Throttle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// The first change is announced, the second falls inside the interval.
	b.PublishStorageChange("data/contacts/a/item.md")
	b.PublishStorageChange("data/contacts/b/item.md")
	b.PublishEntryEvent("update", "contacts", "a")
	b.PublishEntryEvent("delete", "contacts", "b")

	time.Sleep(50 * time.Millisecond)
	storageCount := 0
	var entryEvents []string
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			switch {
			case strings.Contains(s, EventStorageChanged):
				storageCount++
			case strings.Contains(s, EventEntryUpdated):
				entryEvents = append(entryEvents, EventEntryUpdated)
			case strings.Contains(s, EventEntryDeleted):
				entryEvents = append(entryEvents, EventEntryDeleted)
			}
		default:
			break loop
		}
	}

	if len(entryEvents) != 2 {
		t.Errorf("entry events = %v, want 2", entryEvents)
	}
	if storageCount != 1 {
		t.Errorf("storage events = %d, want 1 (throttled)", storageCount)
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

	b.PublishEntryEvent("update", "contacts", "x")
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: entry.updated") {
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

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
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
	b.PublishEntryEvent("delete", "contacts", "x")
	b.PublishStorageChange("x.md")
}

func TestPublishKeepsOrderAcrossKinds(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishEntryEvent("update", "contacts", "a")
	b.PublishStorageChange("data/contacts/a/item.md")
	b.PublishEntryEvent("delete", "contacts", "a")

	want := []string{EventEntryUpdated, EventStorageChanged, EventEntryDeleted}
	for i, w := range want {
		select {
		case msg := <-ch:
			if !strings.HasPrefix(string(msg), "event: "+w+"\n") {
				t.Errorf("frame %d = %q, want %s", i, msg, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for frame %d", i)
		}
	}
}
