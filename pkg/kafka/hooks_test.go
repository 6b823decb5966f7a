package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestHeaderValue(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{
		{Key: HeaderType, Value: []byte("candles")},
		{Key: HeaderRunID, Value: []byte("run-7")},
	}}
	if got := HeaderValue(msg, HeaderRunID); got != "run-7" {
		t.Fatalf("run id = %q", got)
	}
	if got := HeaderValue(msg, "missing"); got != "" {
		t.Fatalf("missing header = %q", got)
	}
}

func TestPermanent(t *testing.T) {
	cause := errors.New("bad json")
	err := Permanent(cause)
	if !errors.Is(err, ErrPermanent) || !errors.Is(err, cause) {
		t.Fatalf("wrapped error lost its chain: %v", err)
	}
	if Permanent(nil) != nil {
		t.Fatalf("Permanent(nil) should be nil")
	}
}

func TestHookFuncsDefaults(t *testing.T) {
	var h HookFuncs
	ctx := context.Background()
	gotCtx, _, data, err := h.BeforeHandle(ctx, "t", kafka.Message{}, []byte("x"))
	if err != nil || gotCtx != ctx || string(data) != "x" {
		t.Fatalf("nil Before should pass through")
	}
	h.AfterHandle(ctx, "t", kafka.Message{}, nil, nil)
	h.OnError(ctx, "t", kafka.Message{}, nil, errors.New("x"))
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(100*time.Millisecond, time.Second, attempt)
		if d <= 0 || d > time.Second {
			t.Fatalf("attempt %d: backoff %v out of range", attempt, d)
		}
	}
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue(map[string]int{"a": 1})
	if err != nil || string(b) != `{"a":1}` {
		t.Fatalf("json value: %s %v", b, err)
	}
	b, _ = encodeValue("raw")
	if string(b) != "raw" {
		t.Fatalf("string value: %s", b)
	}
}
