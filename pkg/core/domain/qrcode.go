package domain

import (
	"regexp"
	"time"
)

// DestinationType tells where a QR code sends the visitor
type DestinationType string

const (
	DestinationPost DestinationType = "post"
	DestinationURL  DestinationType = "url"
)

var shortCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

// ValidShortCode reports whether code can be used as a short code
func ValidShortCode(code string) bool {
	return shortCodePattern.MatchString(code)
}

// QRCode represents a tracked QR code
type QRCode struct {
	ID              int64           `json:"id" yaml:"id"`
	ShortCode       string          `json:"short_code" yaml:"short_code"`
	Label           string          `json:"label" yaml:"label"`
	DestinationType DestinationType `json:"destination_type" yaml:"destination_type"`
	PostID          *int64          `json:"post_id,omitempty" yaml:"post_id,omitempty"`
	DestinationURL  string          `json:"destination_url,omitempty" yaml:"destination_url,omitempty"`
	ReferralCode    string          `json:"referral_code,omitempty" yaml:"referral_code,omitempty"`
	Scans           int64           `json:"scans" yaml:"scans"`
	Metadata        QRMetadata      `json:"metadata" yaml:"metadata"`
	CreatedAt       time.Time       `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" yaml:"updated_at"`
	LastScannedAt   *time.Time      `json:"last_scanned_at,omitempty" yaml:"last_scanned_at,omitempty"`
}

// QRMetadata is stored as a JSON column next to the record
type QRMetadata struct {
	ReferralHistory []ReferralChange `json:"referral_history,omitempty" yaml:"referral_history,omitempty"`
}

// ReferralChange is one entry of the referral code audit trail
type ReferralChange struct {
	From      string    `json:"from" yaml:"from"`
	To        string    `json:"to" yaml:"to"`
	ChangedAt time.Time `json:"changed_at" yaml:"changed_at"`
	ChangedBy string    `json:"changed_by,omitempty" yaml:"changed_by,omitempty"`
}

// SetReferralCode replaces the referral code and keeps the previous value in
// the metadata history. Setting the same code again is a no-op.
func (q *QRCode) SetReferralCode(code, by string, at time.Time) bool {
	if code == q.ReferralCode {
		return false
	}
	q.Metadata.ReferralHistory = append(q.Metadata.ReferralHistory, ReferralChange{
		From:      q.ReferralCode,
		To:        code,
		ChangedAt: at,
		ChangedBy: by,
	})
	q.ReferralCode = code
	return true
}

// Resolution is the outcome of looking up a short code for a redirect
type Resolution struct {
	QRCode   *QRCode
	Location string
	Fallback bool // destination could not be used, Location is the fallback URL
}
