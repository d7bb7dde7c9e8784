// Package testutil holds in-memory doubles and sample payloads used by
// tests across packages.
package testutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"blogicum/internal/models"

	"gorm.io/gorm"
)

// ImageRepoStub is an in-memory ImageRepository for handler and service
// tests. Records are keyed by content hash, mirroring the dedupe lookup the
// real repository serves.
type ImageRepoStub struct {
	byHash map[string]*models.Image
	lastID uint
}

// NewImageRepoStub returns an empty stub.
func NewImageRepoStub() *ImageRepoStub {
	return &ImageRepoStub{byHash: make(map[string]*models.Image)}
}

// Create assigns an ID and timestamps like the database would.
func (s *ImageRepoStub) Create(_ context.Context, img *models.Image) error {
	if img.ID == 0 {
		s.lastID++
		img.ID = s.lastID
	}
	now := time.Now().UTC()
	img.CreatedAt = now
	s.byHash[img.Hash] = img
	return nil
}

// GetByID scans stored records for the primary key.
func (s *ImageRepoStub) GetByID(_ context.Context, id uint) (*models.Image, error) {
	for _, img := range s.byHash {
		if img.ID == id {
			return img, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// GetByHash serves the dedupe lookup.
func (s *ImageRepoStub) GetByHash(_ context.Context, hash string) (*models.Image, error) {
	img, ok := s.byHash[hash]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return img, nil
}

// TinyPNG renders a small gradient PNG of the requested dimensions. The
// pixel pattern varies per coordinate so re-encoders get nontrivial input.
func TinyPNG(tb testing.TB, w, h int) []byte {
	tb.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7 % 256), G: uint8(y * 11 % 256), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		tb.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
