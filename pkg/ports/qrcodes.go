package ports

import (
	"context"

	"github.com/solidsystems/qr-trackr/pkg/core/domain"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// NormalizePage returns the page and page size a list query actually uses.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// QRCodeFilter narrows List/Count queries
type QRCodeFilter struct {
	Search  string // matches label, short code or destination URL
	OrderBy string // created_at (default), scans, label
}

// QRCodeRepository defines storage operations for QR codes, their scans and
// the posts they point at.
type QRCodeRepository interface {
	Create(ctx context.Context, qr *domain.QRCode) error
	GetByShortCode(ctx context.Context, code string) (*domain.QRCode, error)
	GetByID(ctx context.Context, id int64) (*domain.QRCode, error)
	Update(ctx context.Context, qr *domain.QRCode) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int, filter QRCodeFilter) ([]domain.QRCode, error)
	Count(ctx context.Context, filter QRCodeFilter) (int64, error)
	ListURLDestinations(ctx context.Context) ([]domain.QRCode, error)
	Dump(ctx context.Context) ([]domain.QRCode, error) // For migration

	// Stats
	RecordScan(ctx context.Context, scan *domain.Scan) error
	GetStats(ctx context.Context, qrCodeID int64) (*domain.QRStats, error)
	GetDashboardStats(ctx context.Context, limit int) ([]domain.QRCode, int64, error)

	// Posts
	CreatePost(ctx context.Context, post *domain.Post) error
	GetPost(ctx context.Context, id int64) (*domain.Post, error)
	UpdatePostStatus(ctx context.Context, id int64, status domain.PostStatus) error
	SearchPosts(ctx context.Context, term string, limit int) ([]domain.Post, error)
}

// CreateQRCodeInput carries the admin creation form
type CreateQRCodeInput struct {
	Label          string
	PostID         *int64
	DestinationURL string
	ReferralCode   string
	ShortCode      string // optional custom code
}

// UpdateQRCodeInput is a partial update; nil fields are left untouched
type UpdateQRCodeInput struct {
	Label          *string
	PostID         *int64
	DestinationURL *string
	ReferralCode   *string
	ChangedBy      string
}

// QRCodeService defines the business logic operations
type QRCodeService interface {
	Create(ctx context.Context, in CreateQRCodeInput) (*domain.QRCode, error)
	Get(ctx context.Context, id int64) (*domain.QRCode, error)
	GetByShortCode(ctx context.Context, code string) (*domain.QRCode, error)
	Update(ctx context.Context, id int64, in UpdateQRCodeInput) (*domain.QRCode, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, page, limit int, filter QRCodeFilter) ([]domain.QRCode, int64, error)
	Resolve(ctx context.Context, code string) (*domain.Resolution, error)
	RecordScan(ctx context.Context, qrCodeID int64, referer, userAgent, ip string) error
	Stats(ctx context.Context, id int64) (*domain.QRStats, error)
	Dashboard(ctx context.Context, limit int) ([]domain.QRCode, int64, error)
	TrackingURL(code string) string
}

// PostService backs the destination picker of the admin UI
type PostService interface {
	Create(ctx context.Context, title, permalink string, status domain.PostStatus) (*domain.Post, error)
	Trash(ctx context.Context, id int64) error
	Search(ctx context.Context, term string, limit int) ([]domain.PostSearchResult, error)
}

// ScanEvent is one redirect hit waiting to be persisted
type ScanEvent struct {
	QRCodeID  int64
	Referer   string
	UserAgent string
	IP        string
}

// ScanRecorder accepts scan events off the request path
type ScanRecorder interface {
	Enqueue(event ScanEvent)
}

// ImageCache stores rendered QR images
type ImageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, png []byte)
	Delete(ctx context.Context, prefix string)
}
