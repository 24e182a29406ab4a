package domain

import "time"

type PostStatus string

const (
	PostPublished PostStatus = "publish"
	PostDraft     PostStatus = "draft"
	PostTrashed   PostStatus = "trash"
)

// Post is a piece of internal content a QR code can point at
type Post struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Permalink string     `json:"permalink"`
	Status    PostStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Available reports whether the post can receive redirected visitors
func (p *Post) Available() bool {
	return p != nil && p.Status == PostPublished && p.Permalink != ""
}

// PostSearchResult is the compact shape returned to autocomplete widgets
type PostSearchResult struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Permalink string `json:"permalink"`
}
