package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medipass-api/pkg/messaging"
)

func newBroker(t *testing.T) (messaging.Broker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	b, err := NewRedisBroker(Config{URL: "redis://" + mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b, mr
}

func TestPublishSubscribe(t *testing.T) {
	b, _ := newBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := b.Subscribe(ctx, "events")
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, "events", map[string]int{"id": 7}))

	select {
	case payload := <-msgs:
		var got map[string]int
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, 7, got["id"])
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-msgs
		return !open
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConsumeStopsWithContext(t *testing.T) {
	b, _ := newBroker(t)
	ctx, cancel := context.WithCancel(context.Background())

	got := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- messaging.Consume(ctx, b, "events", func(_ context.Context, p []byte) error {
			select {
			case got <- string(p):
			default:
			}
			return nil
		}, nil)
	}()

	require.Eventually(t, func() bool {
		return b.Publish(context.Background(), "events", "hello") == nil && len(got) == 1
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, `"hello"`, <-got)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consume did not stop")
	}
}

func TestPublishFailsWhenServerIsDown(t *testing.T) {
	b, mr := newBroker(t)
	mr.Close()
	assert.Error(t, b.Publish(context.Background(), "events", "x"))
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) count(s string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Count(b.buf.String(), s)
}

func TestSubscribeBacksOffWhileServerIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	out := &syncBuffer{}
	zl := zerolog.New(out)
	b, err := NewRedisBroker(Config{URL: "redis://" + mr.Addr(), RetryBackoff: 100 * time.Millisecond}, &zl)
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	msgs, err := b.Subscribe(ctx, "events")
	require.NoError(t, err)

	mr.Close()
	time.Sleep(350 * time.Millisecond)
	assert.LessOrEqual(t, out.count("receive failed"), 6)

	cancel()
	select {
	case _, open := <-msgs:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop")
	}
}

func TestNewRedisBrokerRejectsBadURL(t *testing.T) {
	_, err := NewRedisBroker(Config{URL: "://nope"}, nil)
	assert.Error(t, err)
}
