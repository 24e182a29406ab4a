package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/solidsystems/qr-trackr/pkg/adapters/qrimage"
	"github.com/solidsystems/qr-trackr/pkg/config"
	"github.com/solidsystems/qr-trackr/pkg/ports"
)

// Deps groups what the router wires into handlers
type Deps struct {
	QRCodes ports.QRCodeService
	Posts   ports.PostService
	Scans   ports.ScanRecorder
	Images  *qrimage.Generator
}

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	// Initialize Handlers
	h := NewHTTPHandler(deps.QRCodes, deps.Scans, deps.Images, cfg.FallbackURL, cfg.TrustProxy)
	ph := NewPostHandler(deps.Posts)
	authHandler := NewAuthHandler(cfg)

	// Initialize Middleware
	mw := NewMiddleware(cfg)

	var limiter *IPRateLimiter
	if cfg.RedirectRate > 0 {
		limiter = NewIPRateLimiter(rate.Limit(cfg.RedirectRate), cfg.RedirectBurst)
	}

	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	mux.Handle("GET /qr/{short_code}", RateLimit(limiter, cfg.TrustProxy, http.HandlerFunc(h.Redirect)))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /auth/google/login", authHandler.Login)
	mux.HandleFunc("GET /auth/google/callback", authHandler.Callback)
	mux.HandleFunc("GET /auth/logout", authHandler.Logout)

	// Protected Routes
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("POST /api/v1/qrcodes", h.Create)
	protectedMux.HandleFunc("GET /api/v1/qrcodes", h.List)
	protectedMux.HandleFunc("GET /api/v1/qrcodes/{id}", h.Get)
	protectedMux.HandleFunc("PUT /api/v1/qrcodes/{id}", h.Update)
	protectedMux.HandleFunc("DELETE /api/v1/qrcodes/{id}", h.Delete)
	protectedMux.HandleFunc("GET /api/v1/qrcodes/{id}/stats", h.Stats)
	protectedMux.HandleFunc("GET /api/v1/qrcodes/{id}/image", h.Image)
	protectedMux.HandleFunc("GET /api/v1/dashboard", h.Dashboard)

	protectedMux.HandleFunc("POST /api/v1/posts", ph.CreatePost)
	protectedMux.HandleFunc("DELETE /api/v1/posts/{id}", ph.TrashPost)
	protectedMux.HandleFunc("GET /api/v1/posts/search", ph.SearchPosts)

	mux.Handle("/api/v1/", mw.AuthMiddleware(protectedMux))

	return RequestLogger(mux)
}
