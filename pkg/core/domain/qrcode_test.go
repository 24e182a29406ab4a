package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidShortCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"abc", true},
		{"Summer_2025-promo", true},
		{"ab", false},
		{"has space", false},
		{"slash/code", false},
		{"", false},
		{"abcdefghijklmnopqrstuvwxyz0123456", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidShortCode(tt.code))
		})
	}
}

func TestSetReferralCode(t *testing.T) {
	q := &QRCode{}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, q.SetReferralCode("SPRING", "admin@example.com", now))
	assert.False(t, q.SetReferralCode("SPRING", "admin@example.com", now), "same code must not add history")
	assert.True(t, q.SetReferralCode("", "admin@example.com", now.Add(time.Hour)))

	assert.Equal(t, "", q.ReferralCode)
	if assert.Len(t, q.Metadata.ReferralHistory, 2) {
		assert.Equal(t, ReferralChange{From: "", To: "SPRING", ChangedAt: now, ChangedBy: "admin@example.com"}, q.Metadata.ReferralHistory[0])
		assert.Equal(t, "SPRING", q.Metadata.ReferralHistory[1].From)
	}
}

func TestPostAvailable(t *testing.T) {
	var nilPost *Post
	assert.False(t, nilPost.Available())
	assert.False(t, (&Post{Status: PostTrashed, Permalink: "https://x"}).Available())
	assert.False(t, (&Post{Status: PostPublished}).Available())
	assert.True(t, (&Post{Status: PostPublished, Permalink: "https://x"}).Available())
}
