package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidsystems/qr-trackr/pkg/ports"
)

func TestDestinationMonitorTransitions(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	var status atomic.Int32
	status.Store(http.StatusOK)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(int(status.Load()))
	}))
	defer upstream.Close()

	qr, err := svc.Create(ctx, ports.CreateQRCodeInput{DestinationURL: upstream.URL + "/page", ShortCode: "watched"})
	require.NoError(t, err)

	mon := NewDestinationMonitor(repo, 0)

	transitions, err := mon.CheckOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, transitions, "first observation is not a transition")

	status.Store(http.StatusServiceUnavailable)
	transitions, err = mon.CheckOnce(ctx)
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, qr.ID, transitions[0].QRCodeID)
	assert.False(t, transitions[0].Reachable)

	transitions, err = mon.CheckOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, transitions)

	status.Store(http.StatusMovedPermanently)
	transitions, err = mon.CheckOnce(ctx)
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.True(t, transitions[0].Reachable)
}

func TestDestinationMonitorDisabled(t *testing.T) {
	_, repo := newTestService(t)
	mon := NewDestinationMonitor(repo, 0)
	// Returns immediately when the interval is zero.
	mon.Run(context.Background())
}
