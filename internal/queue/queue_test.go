package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for message")
	}
	return Message{}
}

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	if err := q.Publish(ctx, Message{Type: "trip.closed", Body: json.RawMessage(`{"trip_id":5}`)}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	ch, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	msg := receive(t, ch)
	if msg.Type != "trip.closed" || string(msg.Body) != `{"trip_id":5}` {
		t.Fatalf("unexpected message %+v", msg)
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected channel to close after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("consumer did not stop")
	}
}

func TestInMemoryPublishHonoursContext(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := q.Publish(ctx, Message{Type: "a"}); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if err := q.Publish(ctx, Message{Type: "b"}); err == nil {
		t.Fatalf("expected full queue to give up when ctx expires")
	}
}

func TestRedisQueueRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewRedisQueue(client, "")
	q.wait = 100 * time.Millisecond
	for _, typ := range []string{"attendance.joined", "attendance.confirmed"} {
		if err := q.Publish(ctx, Message{Type: typ, Body: json.RawMessage(`{}`)}); err != nil {
			t.Fatalf("publish %s: %v", typ, err)
		}
	}
	if n, _ := client.LLen(ctx, "rollcall:journal").Result(); n != 2 {
		t.Fatalf("expected 2 queued items, got %d", n)
	}

	ch, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if msg := receive(t, ch); msg.Type != "attendance.joined" {
		t.Fatalf("expected FIFO order, got %s", msg.Type)
	}
	if msg := receive(t, ch); msg.Type != "attendance.confirmed" {
		t.Fatalf("expected second message, got %s", msg.Type)
	}
}
