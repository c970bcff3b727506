package sse

import (
	"strings"
	"testing"
	"time"
)

func TestSubscribeAndPublish(t *testing.T) {
	b := NewBroker(2 * time.Second)
	defer b.Close()

	ch := b.Subscribe()

	b.Publish(Event{Type: "test", Data: map[string]string{"hello": "world"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: test") {
			t.Errorf("missing event line: %q", s)
		}
		if !strings.Contains(s, `"hello":"world"`) {
			t.Errorf("missing payload: %q", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestClientCount(t *testing.T) {
	b := NewBroker(2 * time.Second)
	defer b.Close()

	if n := b.ClientCount(); n != 0 {
		t.Fatalf("count = %d, want 0", n)
	}

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	if n := b.ClientCount(); n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}

	b.Unsubscribe(ch1)
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("count after unsubscribe = %d, want 1", n)
	}
	b.Unsubscribe(ch2)
}

func TestPublishModeEvent(t *testing.T) {
	b := NewBroker(2 * time.Second)
	defer b.Close()

	ch := b.Subscribe()

	b.PublishModeEvent("created", "plan.chatmode.md")

	var got []string
	deadline := time.After(2 * time.Second)
	// First mode event plus the initial catalog.updated.
	for len(got) < 2 {
		select {
		case msg := <-ch:
			got = append(got, string(msg))
		case <-deadline:
			t.Fatalf("received %d messages, want 2", len(got))
		}
	}

	if !strings.Contains(got[0], "event: mode.created") {
		t.Errorf("got[0] = %q", got[0])
	}
	if !strings.Contains(got[0], "plan.chatmode.md") {
		t.Errorf("missing path in %q", got[0])
	}
	if !strings.Contains(got[1], "event: catalog.updated") {
		t.Errorf("got[1] = %q", got[1])
	}
}

func TestCatalogEventThrottled(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	ch := b.Subscribe()

	b.PublishModeEvent("updated", "a.chatmode.md")
	b.PublishModeEvent("updated", "b.chatmode.md")

	var catalogEvents int
	timeout := time.After(500 * time.Millisecond)
loop:
	for {
		select {
		case msg := <-ch:
			if strings.Contains(string(msg), "event: catalog.updated") {
				catalogEvents++
			}
		case <-timeout:
			break loop
		}
	}

	if catalogEvents != 1 {
		t.Errorf("catalog.updated events = %d, want 1 (throttled)", catalogEvents)
	}
}

func TestCloseShutsDownClients(t *testing.T) {
	b := NewBroker(2 * time.Second)
	ch := b.Subscribe()

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel closed, got message")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client channel not closed on broker close")
	}

	// Operations after close are no-ops, not panics.
	b.Publish(Event{Type: "late"})
	b.PublishModeEvent("created", "x.chatmode.md")
	if n := b.ClientCount(); n != 0 {
		t.Errorf("count after close = %d", n)
	}
	ch2 := b.Subscribe()
	if _, ok := <-ch2; ok {
		t.Error("subscribe after close should return a closed channel")
	}
}
