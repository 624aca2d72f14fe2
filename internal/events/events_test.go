package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherWritesKeyedJSON(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w)
	evt := Event{
		Type:       TypeInvoiceCreated,
		Key:        "INV-1001",
		Data:       map[string]string{"invoice_number": "INV-1001"},
		OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := p.Publish(context.Background(), evt); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "INV-1001" {
		t.Fatalf("key = %q", msg.Key)
	}
	var decoded map[string]any
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if decoded["type"] != TypeInvoiceCreated {
		t.Fatalf("type = %v", decoded["type"])
	}
	carrier := headerCarrier(msg.Headers)
	if carrier.Get("event_type") != TypeInvoiceCreated {
		t.Fatalf("event_type header missing: %+v", msg.Headers)
	}

	_ = p.Close()
	if !w.closed {
		t.Fatalf("writer not closed")
	}
}

func TestKafkaPublisherWrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewKafkaPublisher(&fakeWriter{err: boom})
	if err := p.Publish(context.Background(), Event{Type: TypeStockUpdate}); !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
}

type recorder struct {
	got []Event
	err error
}

func (r *recorder) Publish(_ context.Context, evt Event) error {
	r.got = append(r.got, evt)
	return r.err
}

func TestMultiPublishesToAll(t *testing.T) {
	boom := errors.New("boom")
	a, b := &recorder{}, &recorder{err: boom}
	err := Multi{a, nil, b, Nop{}}.Publish(context.Background(), Event{Type: TypeStockUpdate})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
	if len(a.got) != 1 || len(b.got) != 1 {
		t.Fatalf("not fanned out: %d %d", len(a.got), len(b.got))
	}
}
