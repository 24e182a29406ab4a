package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidsystems/qr-trackr/pkg/ports"
)

type fakeSink struct {
	mu    sync.Mutex
	calls map[int64]int
	err   error
	delay time.Duration
}

func (f *fakeSink) RecordScan(_ context.Context, qrCodeID int64, _, _, _ string) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[int64]int)
	}
	f.calls[qrCodeID]++
	return f.err
}

func (f *fakeSink) count(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func TestScanQueueDrainsOnClose(t *testing.T) {
	sink := &fakeSink{delay: time.Millisecond}
	q := NewScanQueue(sink, 3, 8)

	for i := 0; i < 50; i++ {
		q.Enqueue(ports.ScanEvent{QRCodeID: 1})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Close(ctx))
	assert.Equal(t, 50, sink.count(1), "full queue must fall back to inline recording, not drop")

	// After Close events are recorded inline.
	q.Enqueue(ports.ScanEvent{QRCodeID: 2})
	assert.Equal(t, 1, sink.count(2))
	assert.NoError(t, q.Close(ctx))
}

func TestScanQueueSynchronous(t *testing.T) {
	sink := &fakeSink{err: errors.New("db down")}
	q := NewScanQueue(sink, 0, 0)

	q.Enqueue(ports.ScanEvent{QRCodeID: 7})
	q.Enqueue(ports.ScanEvent{QRCodeID: 7})
	assert.Equal(t, 2, sink.count(7))
	assert.NoError(t, q.Close(context.Background()))
}

func TestScanQueueCloseTimeout(t *testing.T) {
	sink := &fakeSink{delay: 200 * time.Millisecond}
	q := NewScanQueue(sink, 1, 4)
	q.Enqueue(ports.ScanEvent{QRCodeID: 1})
	q.Enqueue(ports.ScanEvent{QRCodeID: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Close(ctx), context.DeadlineExceeded)
}
