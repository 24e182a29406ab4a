package services

import (
	"context"
	"sync"
	"time"

	"github.com/solidsystems/qr-trackr/pkg/logger"
	"github.com/solidsystems/qr-trackr/pkg/metrics"
	"github.com/solidsystems/qr-trackr/pkg/ports"
)

const recordTimeout = 5 * time.Second

type scanSink interface {
	RecordScan(ctx context.Context, qrCodeID int64, referer, userAgent, ip string) error
}

// ScanQueue records scans on a pool of workers so redirects never wait on
// the database. A full queue degrades to recording on the caller's
// goroutine; hits are never dropped.
type ScanQueue struct {
	sink   scanSink
	events chan ports.ScanEvent
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewScanQueue starts workers goroutines. With workers <= 0 every event is
// recorded synchronously inside Enqueue.
func NewScanQueue(sink scanSink, workers, buffer int) *ScanQueue {
	q := &ScanQueue{sink: sink}
	if workers <= 0 {
		return q
	}
	if buffer < 0 {
		buffer = 0
	}

	q.events = make(chan ports.ScanEvent, buffer)
	logger.Info().Int("workers", workers).Int("buffer", buffer).Msg("starting scan workers")
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

func (q *ScanQueue) Enqueue(event ports.ScanEvent) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed || q.events == nil {
		q.record(event)
		return
	}

	select {
	case q.events <- event:
		metrics.ScanQueueDepth.Inc()
	default:
		logger.Warn().Int64("qr_code_id", event.QRCodeID).Msg("scan queue full, recording inline")
		q.record(event)
	}
}

func (q *ScanQueue) worker() {
	defer q.wg.Done()
	for event := range q.events {
		metrics.ScanQueueDepth.Dec()
		q.record(event)
	}
}

func (q *ScanQueue) record(event ports.ScanEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := q.sink.RecordScan(ctx, event.QRCodeID, event.Referer, event.UserAgent, event.IP); err != nil {
		metrics.ScansRecorded.WithLabelValues("error").Inc()
		logger.Error().Err(err).Int64("qr_code_id", event.QRCodeID).Msg("failed to record scan")
		return
	}
	metrics.ScansRecorded.WithLabelValues("ok").Inc()
}

// Close stops accepting queued events and waits for the workers to drain
// what is already buffered. Enqueue keeps working afterwards, inline.
func (q *ScanQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	if q.events != nil {
		close(q.events)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ ports.ScanRecorder = (*ScanQueue)(nil)
