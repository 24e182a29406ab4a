// Package qrimage renders tracking URLs as QR code images.
package qrimage

import (
	"context"
	"fmt"

	"github.com/skip2/go-qrcode"

	"github.com/solidsystems/qr-trackr/pkg/metrics"
	"github.com/solidsystems/qr-trackr/pkg/ports"
)

const (
	DefaultSize = 256
	MinSize     = 64
	MaxSize     = 1024
)

type Generator struct {
	cache ports.ImageCache
	level qrcode.RecoveryLevel
}

// NewGenerator returns a generator using medium error correction. cache may be nil.
func NewGenerator(cache ports.ImageCache) *Generator {
	if cache == nil {
		cache = nopCache{}
	}
	return &Generator{cache: cache, level: qrcode.Medium}
}

// ClampSize maps a requested pixel size into the supported range; zero or
// negative means the default.
func ClampSize(size int) int {
	switch {
	case size <= 0:
		return DefaultSize
	case size < MinSize:
		return MinSize
	case size > MaxSize:
		return MaxSize
	}
	return size
}

func cacheKey(shortCode string, size int) string {
	return fmt.Sprintf("qr:img:%s:%d", shortCode, size)
}

// PNG renders content (the tracking URL of shortCode) as a PNG image.
func (g *Generator) PNG(ctx context.Context, shortCode, content string, size int) ([]byte, error) {
	size = ClampSize(size)
	key := cacheKey(shortCode, size)

	if png, ok := g.cache.Get(ctx, key); ok {
		metrics.ImagesGenerated.WithLabelValues("hit").Inc()
		return png, nil
	}

	png, err := qrcode.Encode(content, g.level, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr for %s: %w", shortCode, err)
	}
	g.cache.Set(ctx, key, png)
	metrics.ImagesGenerated.WithLabelValues("miss").Inc()
	return png, nil
}

// Terminal renders content as block characters for CLI output.
func (g *Generator) Terminal(content string) (string, error) {
	q, err := qrcode.New(content, g.level)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(false), nil
}

// Invalidate drops every cached size of shortCode.
func (g *Generator) Invalidate(ctx context.Context, shortCode string) {
	g.cache.Delete(ctx, fmt.Sprintf("qr:img:%s:", shortCode))
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (nopCache) Set(context.Context, string, []byte) {}
func (nopCache) Delete(context.Context, string) {}
