package domain

import "time"

// Scan represents one resolved hit on a short code
type Scan struct {
	ID        int64     `json:"id"`
	QRCodeID  int64     `json:"qr_code_id"`
	Referer   string    `json:"referer"`
	UserAgent string    `json:"user_agent"`
	IPHash    string    `json:"ip_hash"` // keyed hash, raw IPs are never stored
	CreatedAt time.Time `json:"created_at"`
}

// QRStats represents aggregated statistics for a QR code
type QRStats struct {
	TotalScans int64            `json:"total_scans"`
	Referrers  map[string]int64 `json:"referrers"`   // count by referer
	DailyScans []DailyScan      `json:"daily_scans"` // timeline
}

type DailyScan struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int64  `json:"count"`
}
