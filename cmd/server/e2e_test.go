package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidsystems/qr-trackr/pkg/adapters/handler"
	"github.com/solidsystems/qr-trackr/pkg/adapters/qrimage"
	"github.com/solidsystems/qr-trackr/pkg/adapters/repository/sqlite"
	"github.com/solidsystems/qr-trackr/pkg/config"
	"github.com/solidsystems/qr-trackr/pkg/core/services"
)

func TestIntegration(t *testing.T) {
	// 1. Setup DB
	repo, err := sqlite.NewSQLiteRepository("file:e2e?mode=memory&cache=shared")
	require.NoError(t, err)
	defer repo.Close()

	cfg := &config.Config{
		BaseURL:       "http://qr.test",
		FallbackURL:   "http://site.test/",
		JWTSecret:     "e2e-secret",
		RedirectRate:  100,
		RedirectBurst: 100,
	}

	// 2. Setup Services with real background workers
	qrService := services.NewQRCodeService(repo, cfg.BaseURL, cfg.FallbackURL, "e2e-key")
	scanQueue := services.NewScanQueue(qrService, 2, 16)

	// 3. Setup Router
	mux := handler.NewRouter(cfg, handler.Deps{
		QRCodes: qrService,
		Posts:   services.NewPostService(repo),
		Scans:   scanQueue,
		Images:  qrimage.NewGenerator(nil),
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := server.Client()
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.RegisteredClaims{
		Subject:   "admin@example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)

	// TEST 1: Create QR code
	body, _ := json.Marshal(map[string]any{
		"label":           "Conference badge",
		"destination_url": "https://example.com",
	})
	req, _ := http.NewRequest("POST", server.URL+"/api/v1/qrcodes", bytes.NewReader(body))
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: signed})
	resp, err := client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID          int64  `json:"id"`
		ShortCode   string `json:"short_code"`
		TrackingURL string `json:"tracking_url"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	assert.NotEmpty(t, created.ShortCode)
	assert.Equal(t, "http://qr.test/qr/"+created.ShortCode, created.TrackingURL)

	// TEST 2: Scan it several times
	const hits = 10
	for i := 0; i < hits; i++ {
		resp, err := client.Get(server.URL + "/qr/" + created.ShortCode)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "https://example.com", resp.Header.Get("Location"))
	}

	// TEST 3: Unknown code goes to the fallback
	resp, err = client.Get(server.URL + "/qr/does-not-exist")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "http://site.test/", resp.Header.Get("Location"))

	// TEST 4: Draining the queue makes every hit visible
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, scanQueue.Close(ctx))

	qr, err := qrService.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(hits), qr.Scans)

	// TEST 5: Export (Dump)
	codes, err := repo.Dump(ctx)
	require.NoError(t, err)
	assert.Len(t, codes, 1)
}
