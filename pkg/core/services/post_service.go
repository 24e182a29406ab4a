package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/solidsystems/qr-trackr/pkg/core/domain"
	"github.com/solidsystems/qr-trackr/pkg/ports"
)

const (
	minSearchTermLength = 2
	maxSearchResults    = 20
)

type PostService struct {
	repo ports.QRCodeRepository
}

func NewPostService(repo ports.QRCodeRepository) *PostService {
	return &PostService{repo: repo}
}

func (s *PostService) Create(ctx context.Context, title, permalink string, status domain.PostStatus) (*domain.Post, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: post title is required", domain.ErrInvalidInput)
	}
	if err := validateDestinationURL(permalink); err != nil {
		return nil, err
	}
	switch status {
	case "":
		status = domain.PostPublished
	case domain.PostPublished, domain.PostDraft, domain.PostTrashed:
	default:
		return nil, fmt.Errorf("%w: unknown post status %q", domain.ErrInvalidInput, status)
	}

	now := time.Now()
	post := &domain.Post{
		Title:     title,
		Permalink: permalink,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Trash hides a post from search and makes QR codes pointing at it fall back.
func (s *PostService) Trash(ctx context.Context, id int64) error {
	return s.repo.UpdatePostStatus(ctx, id, domain.PostTrashed)
}

// Search powers the destination autocomplete. Terms shorter than two
// characters return nothing rather than the whole table.
func (s *PostService) Search(ctx context.Context, term string, limit int) ([]domain.PostSearchResult, error) {
	term = strings.TrimSpace(term)
	results := []domain.PostSearchResult{}
	if utf8.RuneCountInString(term) < minSearchTermLength {
		return results, nil
	}
	if limit < 1 || limit > maxSearchResults {
		limit = maxSearchResults
	}

	posts, err := s.repo.SearchPosts(ctx, term, limit)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		results = append(results, domain.PostSearchResult{ID: p.ID, Title: p.Title, Permalink: p.Permalink})
	}
	return results, nil
}

var _ ports.PostService = (*PostService)(nil)
