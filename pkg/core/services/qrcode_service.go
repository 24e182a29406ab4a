package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/solidsystems/qr-trackr/pkg/core/domain"
	"github.com/solidsystems/qr-trackr/pkg/ports"
)

const (
	generatedCodeLength  = 8
	maxGenerateAttempts  = 5
	maxUserAgentLength   = 512
	defaultDashboardSize = 10
)

type QRCodeService struct {
	repo        ports.QRCodeRepository
	baseURL     string
	fallbackURL string
	ipHashKey   [32]byte
	now         func() time.Time
}

func NewQRCodeService(repo ports.QRCodeRepository, baseURL, fallbackURL, ipHashKey string) *QRCodeService {
	return &QRCodeService{
		repo:        repo,
		baseURL:     strings.TrimRight(baseURL, "/"),
		fallbackURL: fallbackURL,
		ipHashKey:   blake2b.Sum256([]byte(ipHashKey)),
		now:         time.Now,
	}
}

func (s *QRCodeService) Create(ctx context.Context, in ports.CreateQRCodeInput) (*domain.QRCode, error) {
	now := s.now()
	qr := &domain.QRCode{
		Label:        strings.TrimSpace(in.Label),
		ReferralCode: strings.TrimSpace(in.ReferralCode),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.applyDestination(ctx, qr, in.PostID, in.DestinationURL); err != nil {
		return nil, err
	}

	if in.ShortCode != "" {
		code := strings.TrimSpace(in.ShortCode)
		if !domain.ValidShortCode(code) {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidShortCode, code)
		}
		qr.ShortCode = code
		if err := s.repo.Create(ctx, qr); err != nil {
			return nil, err
		}
		return qr, nil
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := generateShortCode(generatedCodeLength)
		if err != nil {
			return nil, err
		}
		qr.ShortCode = code
		err = s.repo.Create(ctx, qr)
		if err == nil {
			return qr, nil
		}
		if !errors.Is(err, domain.ErrShortCodeTaken) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("generate short code: %w after %d attempts", domain.ErrShortCodeTaken, maxGenerateAttempts)
}

// applyDestination validates and sets exactly one destination on qr.
func (s *QRCodeService) applyDestination(ctx context.Context, qr *domain.QRCode, postID *int64, rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	switch {
	case postID != nil && rawURL != "":
		return fmt.Errorf("%w: set either a post or a URL, not both", domain.ErrInvalidDestination)
	case postID != nil:
		post, err := s.repo.GetPost(ctx, *postID)
		if err != nil {
			return err
		}
		if post == nil {
			return fmt.Errorf("%w: post %d does not exist", domain.ErrInvalidDestination, *postID)
		}
		if !post.Available() {
			return fmt.Errorf("%w: post %d", domain.ErrPostUnavailable, *postID)
		}
		id := post.ID
		qr.DestinationType = domain.DestinationPost
		qr.PostID = &id
		qr.DestinationURL = ""
	case rawURL != "":
		if err := validateDestinationURL(rawURL); err != nil {
			return err
		}
		qr.DestinationType = domain.DestinationURL
		qr.PostID = nil
		qr.DestinationURL = rawURL
	default:
		return fmt.Errorf("%w: a post or a URL is required", domain.ErrInvalidDestination)
	}
	return nil
}

func validateDestinationURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q is not an absolute http(s) URL", domain.ErrInvalidDestination, raw)
	}
	return nil
}

func (s *QRCodeService) Get(ctx context.Context, id int64) (*domain.QRCode, error) {
	qr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if qr == nil {
		return nil, domain.ErrNotFound
	}
	return qr, nil
}

func (s *QRCodeService) GetByShortCode(ctx context.Context, code string) (*domain.QRCode, error) {
	qr, err := s.repo.GetByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if qr == nil {
		return nil, domain.ErrNotFound
	}
	return qr, nil
}

func (s *QRCodeService) Update(ctx context.Context, id int64, in ports.UpdateQRCodeInput) (*domain.QRCode, error) {
	qr, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Label != nil {
		qr.Label = strings.TrimSpace(*in.Label)
	}
	if in.PostID != nil || in.DestinationURL != nil {
		rawURL := ""
		if in.DestinationURL != nil {
			rawURL = *in.DestinationURL
		}
		if err := s.applyDestination(ctx, qr, in.PostID, rawURL); err != nil {
			return nil, err
		}
	}

	now := s.now()
	if in.ReferralCode != nil {
		qr.SetReferralCode(strings.TrimSpace(*in.ReferralCode), in.ChangedBy, now)
	}
	qr.UpdatedAt = now

	if err := s.repo.Update(ctx, qr); err != nil {
		return nil, err
	}
	return qr, nil
}

func (s *QRCodeService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *QRCodeService) List(ctx context.Context, page, limit int, filter ports.QRCodeFilter) ([]domain.QRCode, int64, error) {
	page, limit = ports.NormalizePage(page, limit)
	offset := (page - 1) * limit

	qrs, err := s.repo.List(ctx, limit, offset, filter)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return qrs, count, nil
}

// Resolve maps a scanned short code to the URL the visitor is sent to.
// Unknown codes return ErrNotFound; a post destination that is gone or no
// longer published resolves to the fallback URL.
func (s *QRCodeService) Resolve(ctx context.Context, code string) (*domain.Resolution, error) {
	code = strings.TrimSpace(code)
	if !domain.ValidShortCode(code) {
		return nil, domain.ErrNotFound
	}

	qr, err := s.repo.GetByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if qr == nil {
		return nil, domain.ErrNotFound
	}

	res := &domain.Resolution{QRCode: qr}
	switch qr.DestinationType {
	case domain.DestinationURL:
		res.Location = qr.DestinationURL
	case domain.DestinationPost:
		var post *domain.Post
		if qr.PostID != nil {
			if post, err = s.repo.GetPost(ctx, *qr.PostID); err != nil {
				return nil, err
			}
		}
		if post.Available() {
			res.Location = post.Permalink
		}
	}

	if res.Location == "" {
		res.Location = s.fallbackURL
		res.Fallback = true
		return res, nil
	}

	if qr.ReferralCode != "" {
		res.Location = withReferral(res.Location, qr.ReferralCode)
	}
	return res, nil
}

func withReferral(destination, ref string) string {
	u, err := url.Parse(destination)
	if err != nil {
		return destination
	}
	q := u.Query()
	q.Set("ref", ref)
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *QRCodeService) RecordScan(ctx context.Context, qrCodeID int64, referer, userAgent, ip string) error {
	if len(userAgent) > maxUserAgentLength {
		userAgent = userAgent[:maxUserAgentLength]
	}

	scan := &domain.Scan{
		QRCodeID:  qrCodeID,
		Referer:   referer,
		UserAgent: userAgent,
		IPHash:    s.hashIP(ip),
		CreatedAt: s.now(),
	}
	return s.repo.RecordScan(ctx, scan)
}

func (s *QRCodeService) hashIP(ip string) string {
	if ip == "" {
		return ""
	}
	h, err := blake2b.New256(s.ipHashKey[:])
	if err != nil {
		return ""
	}
	h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil))
}

func (s *QRCodeService) Stats(ctx context.Context, id int64) (*domain.QRStats, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetStats(ctx, id)
}

func (s *QRCodeService) Dashboard(ctx context.Context, limit int) ([]domain.QRCode, int64, error) {
	if limit < 1 {
		limit = defaultDashboardSize
	}
	if limit > ports.MaxPageSize {
		limit = ports.MaxPageSize
	}
	return s.repo.GetDashboardStats(ctx, limit)
}

// TrackingURL is the URL encoded into the printed QR image.
func (s *QRCodeService) TrackingURL(code string) string {
	return s.baseURL + "/qr/" + url.PathEscape(code)
}

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateShortCode(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}

var _ ports.QRCodeService = (*QRCodeService)(nil)
