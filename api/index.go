package handler

import (
	"net/http"

	"github.com/solidsystems/qr-trackr/pkg/adapters/handler"
	"github.com/solidsystems/qr-trackr/pkg/adapters/qrimage"
	"github.com/solidsystems/qr-trackr/pkg/adapters/repository/sqlite"
	"github.com/solidsystems/qr-trackr/pkg/config"
	"github.com/solidsystems/qr-trackr/pkg/core/services"
	"github.com/solidsystems/qr-trackr/pkg/logger"
)

var mux http.Handler

func init() {
	cfg := config.Load()
	logger.Init(cfg.AppEnv, cfg.LogLevel)

	// Note: On Vercel, db.sqlite is ephemeral unless using a remote SQL/Turso URL in DATABASE_URL
	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		panic(err)
	}

	qrService := services.NewQRCodeService(repo, cfg.BaseURL, cfg.FallbackURL, cfg.IPHashKey)

	// Functions can be frozen after the response, so scans are recorded inline.
	mux = handler.NewRouter(cfg, handler.Deps{
		QRCodes: qrService,
		Posts:   services.NewPostService(repo),
		Scans:   services.NewScanQueue(qrService, 0, 0),
		Images:  qrimage.NewGenerator(nil),
	})
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
