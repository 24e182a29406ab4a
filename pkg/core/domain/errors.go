package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrShortCodeTaken     = errors.New("short code already exists")
	ErrInvalidShortCode   = errors.New("invalid short code")
	ErrInvalidDestination = errors.New("invalid destination")
	ErrPostUnavailable    = errors.New("post is not published")
)
