package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/bloco/wallethub/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

func TestMemoryDeduperForgetsOldest(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDeduper(2)

	for _, id := range []string{"a", "b"} {
		if first, _ := d.FirstSeen(ctx, id); !first {
			t.Fatalf("%s should be first seen", id)
		}
	}
	if first, _ := d.FirstSeen(ctx, "a"); first {
		t.Fatal("a should be a duplicate")
	}
	if first, _ := d.FirstSeen(ctx, "c"); !first {
		t.Fatal("c should be first seen")
	}
	// a was evicted to make room for c.
	if first, _ := d.FirstSeen(ctx, "a"); !first {
		t.Fatal("a should have been forgotten")
	}
}

type fakeReader struct {
	msgs      []kafka.Message
	committed int
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(context.Context, ...kafka.Message) error {
	r.committed++
	return nil
}

func event(id, topic string) kafka.Message {
	return kafka.Message{
		Topic: topic,
		Key:   []byte("agg-1"),
		Value: []byte(`{}`),
		Headers: []kafka.Header{
			{Key: kafkax.HeaderEventID, Value: []byte(id)},
			{Key: kafkax.HeaderCorrelationID, Value: []byte("corr-1")},
		},
	}
}

func TestTailPrintsRedeliveredEventOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		msgs: []kafka.Message{
			event("e1", "NetworkCreated-out-0"),
			event("e1", "NetworkCreated-out-0"),
			event("e2", "TokenCreated-out-0"),
		},
		cancel: cancel,
	}
	tail(ctx, reader, NewMemoryDeduper(10), logger)

	out := buf.String()
	if got := strings.Count(out, `"event_id":"e1"`); got != 1 {
		t.Fatalf("e1 printed %d times: %s", got, out)
	}
	if !strings.Contains(out, `"event_type":"TokenCreated"`) {
		t.Fatalf("expected TokenCreated derived from topic: %s", out)
	}
	if reader.committed != 3 {
		t.Fatalf("expected every message committed, got %d", reader.committed)
	}
}

type failingDeduper struct{}

func (failingDeduper) FirstSeen(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestHandlePrintsWhenDedupFails(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handle(context.Background(), event("e9", "VaultCreated-out-0"), failingDeduper{}, logger)
	if !strings.Contains(buf.String(), `"msg":"event"`) {
		t.Fatalf("expected event to be printed: %s", buf.String())
	}
}
