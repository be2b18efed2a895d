package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matiasleandrokruk/newsroom/internal/metrics"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	ch := bus.Subscribe("article.ingested")

	bus.Publish("article.ingested", "doc-1")

	select {
	case evt := <-ch:
		if evt.Topic != "article.ingested" {
			t.Errorf("topic = %q", evt.Topic)
		}
		if evt.Payload != "doc-1" {
			t.Errorf("payload = %v", evt.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
}

func TestBus_FanOutToAllSubscribers(t *testing.T) {
	bus := New()
	subs := []<-chan Event{bus.Subscribe("t"), bus.Subscribe("t"), bus.Subscribe("t")}

	bus.Publish("t", 42)

	for i, ch := range subs {
		select {
		case evt := <-ch:
			if evt.Payload != 42 {
				t.Errorf("subscriber %d payload = %v", i, evt.Payload)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d: timeout", i)
		}
	}
}

func TestBus_TopicIsolation(t *testing.T) {
	bus := New()
	chA := bus.Subscribe("topic.a")
	chB := bus.Subscribe("topic.b")

	bus.Publish("topic.a", "for-a")

	select {
	case <-chA:
	case <-time.After(100 * time.Millisecond):
		t.Error("topic.a: timeout waiting for event")
	}

	select {
	case evt := <-chB:
		t.Errorf("topic.b received %v", evt)
	default:
	}
}

func TestBus_FullBufferDropsWithoutBlocking(t *testing.T) {
	bus := NewWithBuffer(2)
	_ = bus.Subscribe("overflow.topic")
	dropped := metrics.EventsDropped.WithLabelValues("overflow.topic")
	before := testutil.ToFloat64(dropped)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			bus.Publish("overflow.topic", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Publish blocked on a full buffer")
	}

	if got := testutil.ToFloat64(dropped) - before; got != 3 {
		t.Errorf("dropped = %v, want 3", got)
	}
}

func TestBus_CloseClosesSubscribers(t *testing.T) {
	bus := New()
	ch := bus.Subscribe("t")

	bus.Close()
	bus.Close()

	if _, ok := <-ch; ok {
		t.Error("expected closed channel after Close")
	}

	bus.Publish("t", "ignored")
	late := bus.Subscribe("t")
	if _, ok := <-late; ok {
		t.Error("Subscribe after Close should return a closed channel")
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := New()
	ch := bus.Subscribe("c")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bus.Publish("c", i)
		}(i)
	}
	wg.Wait()

	if got := len(ch); got != 10 {
		t.Errorf("buffered events = %d, want 10", got)
	}
}

func TestBus_SatisfiesInterface(t *testing.T) {
	var _ EventBus = New()
}
