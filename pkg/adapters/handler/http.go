package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/solidsystems/qr-trackr/pkg/adapters/qrimage"
	"github.com/solidsystems/qr-trackr/pkg/core/domain"
	"github.com/solidsystems/qr-trackr/pkg/metrics"
	"github.com/solidsystems/qr-trackr/pkg/ports"
)

type HTTPHandler struct {
	service     ports.QRCodeService
	scans       ports.ScanRecorder
	images      *qrimage.Generator
	fallbackURL string
	trustProxy  bool
}

func NewHTTPHandler(service ports.QRCodeService, scans ports.ScanRecorder, images *qrimage.Generator, fallbackURL string, trustProxy bool) *HTTPHandler {
	return &HTTPHandler{
		service:     service,
		scans:       scans,
		images:      images,
		fallbackURL: fallbackURL,
		trustProxy:  trustProxy,
	}
}

// CreateQRCodeRequest payload
type CreateQRCodeRequest struct {
	Label          string `json:"label" validate:"max=255"`
	PostID         *int64 `json:"post_id,omitempty" validate:"omitempty,gt=0"`
	DestinationURL string `json:"destination_url,omitempty" validate:"omitempty,max=2048"`
	ReferralCode   string `json:"referral_code,omitempty" validate:"max=64"`
	ShortCode      string `json:"short_code,omitempty" validate:"omitempty,min=3,max=32"`
}

// UpdateQRCodeRequest payload, omitted fields are left unchanged
type UpdateQRCodeRequest struct {
	Label          *string `json:"label,omitempty" validate:"omitempty,max=255"`
	PostID         *int64  `json:"post_id,omitempty" validate:"omitempty,gt=0"`
	DestinationURL *string `json:"destination_url,omitempty" validate:"omitempty,max=2048"`
	ReferralCode   *string `json:"referral_code,omitempty" validate:"omitempty,max=64"`
}

// QRCodeResponse adds the URLs an admin needs next to the stored record
type QRCodeResponse struct {
	*domain.QRCode
	TrackingURL string `json:"tracking_url"`
	ImageURL    string `json:"image_url"`
}

func (h *HTTPHandler) present(qr *domain.QRCode) QRCodeResponse {
	return QRCodeResponse{
		QRCode:      qr,
		TrackingURL: h.service.TrackingURL(qr.ShortCode),
		ImageURL:    "/api/v1/qrcodes/" + strconv.FormatInt(qr.ID, 10) + "/image",
	}
}

// Create QR code
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateQRCodeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	qr, err := h.service.Create(r.Context(), ports.CreateQRCodeInput{
		Label:          req.Label,
		PostID:         req.PostID,
		DestinationURL: req.DestinationURL,
		ReferralCode:   req.ReferralCode,
		ShortCode:      req.ShortCode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("short_code", qr.ShortCode).Str("by", UserEmail(r.Context())).Msg("qr code created")
	writeJSON(w, http.StatusCreated, h.present(qr))
}

// Redirect resolves a scanned short code. Unknown codes and unusable
// destinations go to the fallback URL; the visitor never sees an error page.
func (h *HTTPHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("short_code")
	w.Header().Set("Cache-Control", "no-store")

	res, err := h.service.Resolve(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.Redirects.WithLabelValues(metrics.OutcomeUnknown).Inc()
		} else {
			metrics.Redirects.WithLabelValues(metrics.OutcomeError).Inc()
			zerolog.Ctx(r.Context()).Error().Err(err).Str("short_code", code).Msg("resolve failed")
		}
		http.Redirect(w, r, h.fallbackURL, http.StatusFound)
		return
	}

	// Skip tracking when query param "no_stat" is set
	if r.URL.Query().Get("no_stat") == "" {
		h.scans.Enqueue(ports.ScanEvent{
			QRCodeID:  res.QRCode.ID,
			Referer:   r.Header.Get("Referer"),
			UserAgent: r.UserAgent(),
			IP:        clientIP(r, h.trustProxy),
		})
	}

	if res.Fallback {
		metrics.Redirects.WithLabelValues(metrics.OutcomeFallback).Inc()
		zerolog.Ctx(r.Context()).Warn().Str("short_code", code).Msg("destination unavailable, using fallback")
	} else {
		metrics.Redirects.WithLabelValues(metrics.OutcomeDestination).Inc()
	}
	http.Redirect(w, r, res.Location, http.StatusFound)
}

// Get a single QR code
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	qr, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(qr))
}

// List QR codes
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	page, limit = ports.NormalizePage(page, limit)
	filter := ports.QRCodeFilter{
		Search:  q.Get("search"),
		OrderBy: q.Get("orderby"),
	}

	qrs, count, err := h.service.List(r.Context(), page, limit, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data := make([]QRCodeResponse, 0, len(qrs))
	for i := range qrs {
		data = append(data, h.present(&qrs[i]))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  data,
		"total": count,
		"page":  page,
		"limit": limit,
	})
}

// Update QR code
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var req UpdateQRCodeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	qr, err := h.service.Update(r.Context(), id, ports.UpdateQRCodeInput{
		Label:          req.Label,
		PostID:         req.PostID,
		DestinationURL: req.DestinationURL,
		ReferralCode:   req.ReferralCode,
		ChangedBy:      UserEmail(r.Context()),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(qr))
}

// Delete QR code
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	qr, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	h.images.Invalidate(r.Context(), qr.ShortCode)

	zerolog.Ctx(r.Context()).Info().Str("short_code", qr.ShortCode).Str("by", UserEmail(r.Context())).Msg("qr code deleted")
	w.WriteHeader(http.StatusNoContent)
}

// Image renders the QR code PNG
func (h *HTTPHandler) Image(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	qr, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	png, err := h.images.PNG(r.Context(), qr.ShortCode, h.service.TrackingURL(qr.ShortCode), size)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="qr-`+qr.ShortCode+`.png"`)
	}
	_, _ = w.Write(png)
}

// Stats for a QR code
func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	stats, err := h.service.Stats(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Dashboard shows the most scanned codes
func (h *HTTPHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	qrs, total, err := h.service.Dashboard(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	top := make([]QRCodeResponse, 0, len(qrs))
	for i := range qrs {
		top = append(top, h.present(&qrs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"top_codes":   top,
		"total_scans": total,
	})
}
