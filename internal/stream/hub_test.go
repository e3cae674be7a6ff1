package stream

import "testing"

func TestSubscribeReceivesPublished(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe()
	defer h.Unsubscribe(id)

	h.Publish(Event{Domain: "console", Kind: "entry", Payload: "hello"})

	evt := <-ch
	if evt.Domain != "console" || evt.Payload != "hello" {
		t.Fatalf("got %+v", evt)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe()
	h.Unsubscribe(id)

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	if h.ClientCount() != 0 {
		t.Fatalf("ClientCount = %d, want 0", h.ClientCount())
	}
}

func TestSlowConsumerDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe()
	defer h.Unsubscribe(id)

	// Overfill the buffer; Publish must never block.
	for i := 0; i < subscriberBufSize+10; i++ {
		h.Publish(Event{Domain: "network", Kind: "entry", Payload: i})
	}

	if got := len(ch); got != subscriberBufSize {
		t.Fatalf("buffered events = %d, want %d", got, subscriberBufSize)
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	h := NewHub()
	id1, ch1 := h.Subscribe()
	id2, ch2 := h.Subscribe()
	defer h.Unsubscribe(id1)
	defer h.Unsubscribe(id2)

	h.Publish(Event{Domain: "resource", Kind: "entry"})

	if len(ch1) != 1 || len(ch2) != 1 {
		t.Fatalf("delivery counts = %d/%d, want 1/1", len(ch1), len(ch2))
	}
	if h.ClientCount() != 2 {
		t.Fatalf("ClientCount = %d, want 2", h.ClientCount())
	}
}
