package services

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/solidsystems/qr-trackr/pkg/logger"
	"github.com/solidsystems/qr-trackr/pkg/metrics"
	"github.com/solidsystems/qr-trackr/pkg/ports"
)

// DestinationTransition is reported when an external destination changes
// reachability between two checks.
type DestinationTransition struct {
	QRCodeID  int64
	ShortCode string
	URL       string
	Reachable bool
}

// DestinationMonitor periodically checks that external URL destinations
// still answer, so printed codes pointing at dead pages get noticed.
type DestinationMonitor struct {
	repo     ports.QRCodeRepository
	interval time.Duration
	client   *http.Client

	mu    sync.Mutex
	known map[int64]bool
}

func NewDestinationMonitor(repo ports.QRCodeRepository, interval time.Duration) *DestinationMonitor {
	return &DestinationMonitor{
		repo:     repo,
		interval: interval,
		client: &http.Client{
			Timeout: 5 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		known: make(map[int64]bool),
	}
}

// Run checks once immediately and then on every tick until ctx is done.
func (m *DestinationMonitor) Run(ctx context.Context) {
	if m.interval <= 0 {
		return
	}
	logger.Info().Dur("interval", m.interval).Msg("starting destination monitor")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if _, err := m.CheckOnce(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("destination check failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// CheckOnce probes every URL destination and returns the ones whose state
// differs from the previous check. The first observation of a code is not
// a transition.
func (m *DestinationMonitor) CheckOnce(ctx context.Context) ([]DestinationTransition, error) {
	qrs, err := m.repo.ListURLDestinations(ctx)
	if err != nil {
		return nil, err
	}

	var transitions []DestinationTransition
	down := 0
	seen := make(map[int64]bool, len(qrs))
	for _, qr := range qrs {
		reachable := m.reachable(ctx, qr.DestinationURL)
		if !reachable {
			down++
		}
		seen[qr.ID] = true

		m.mu.Lock()
		previous, exists := m.known[qr.ID]
		m.known[qr.ID] = reachable
		m.mu.Unlock()

		if exists && previous != reachable {
			t := DestinationTransition{QRCodeID: qr.ID, ShortCode: qr.ShortCode, URL: qr.DestinationURL, Reachable: reachable}
			transitions = append(transitions, t)
			logger.Warn().Str("short_code", qr.ShortCode).Str("url", qr.DestinationURL).
				Bool("reachable", reachable).Msg("destination state changed")
		}
	}

	m.mu.Lock()
	for id := range m.known {
		if !seen[id] {
			delete(m.known, id)
		}
	}
	m.mu.Unlock()

	metrics.DestinationsDown.Set(float64(down))
	return transitions, nil
}

func (m *DestinationMonitor) reachable(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		logger.Debug().Err(err).Str("url", url).Msg("destination unreachable")
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 400
}
