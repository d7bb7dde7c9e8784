package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"math"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"blogicum/internal/config"
	"blogicum/internal/featureflags"
	"blogicum/internal/models"
	"blogicum/internal/observability"
	"blogicum/internal/repository"

	"github.com/chai2010/webp"
	"go.opentelemetry.io/otel/attribute"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
	"gorm.io/gorm"
)

const (
	DefaultImageUploadDir       = "uploads"
	DefaultImageMaxUploadSizeMB = 10

	// Uploads are normalized to one WebP master no larger than this.
	masterMaxSize = 2048
	webpQuality   = 80
)

type UploadImageInput struct {
	UserID      uint
	Filename    string
	ContentType string
	Content     []byte
}

// ImageService validates uploads, re-encodes them to WebP and records their
// metadata. Identical uploads by the same user resolve to the stored file.
type ImageService struct {
	repo               repository.ImageRepository
	flags              *featureflags.Manager
	uploadDir          string
	maxUploadSizeBytes int64
}

func NewImageService(repo repository.ImageRepository, flags *featureflags.Manager, cfg *config.Config) *ImageService {
	svc := &ImageService{
		repo:               repo,
		flags:              flags,
		uploadDir:          DefaultImageUploadDir,
		maxUploadSizeBytes: int64(DefaultImageMaxUploadSizeMB) << 20,
	}
	if cfg != nil {
		if cfg.ImageUploadDir != "" {
			svc.uploadDir = cfg.ImageUploadDir
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			svc.maxUploadSizeBytes = int64(cfg.ImageMaxUploadSizeMB) << 20
		}
	}
	return svc
}

// UploadDir is the directory uploads are written to, for static serving.
func (s *ImageService) UploadDir() string {
	return s.uploadDir
}

func (s *ImageService) Upload(ctx context.Context, in UploadImageInput) (*models.Image, error) {
	if !s.flags.EnabledOr(featureflags.FlagImageUploads, in.UserID, true) {
		return nil, models.NewForbiddenError("Image uploads are currently disabled")
	}

	decoded, format, err := s.validateUpload(in)
	if err != nil {
		return nil, err
	}

	hash := buildImageHash(in.UserID, in.Content)
	if existing, getErr := s.repo.GetByHash(ctx, hash); getErr == nil {
		return existing, nil
	} else if !errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, models.NewInternalError(getErr)
	}

	master, encoded, err := s.encodeMaster(ctx, decoded, format)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	relPath := hash + ".webp"
	absPath := filepath.Join(s.uploadDir, relPath)
	if err := writeUpload(absPath, encoded); err != nil {
		return nil, models.NewInternalError(err)
	}

	bounds := master.Bounds()
	record := &models.Image{
		Hash:       hash,
		Path:       relPath,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		SizeBytes:  int64(len(encoded)),
		Format:     "webp",
		UploaderID: in.UserID,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		_ = os.Remove(absPath)
		return nil, models.NewInternalError(err)
	}

	observability.ImagesUploaded.WithLabelValues(record.Format).Inc()
	return record, nil
}

// validateUpload runs the cheap rejections first (size, MIME sniff), then
// decodes and cross-checks the declared content type. Returns the decoded
// image and its detected format.
func (s *ImageService) validateUpload(in UploadImageInput) (image.Image, string, error) {
	if in.UserID == 0 {
		return nil, "", models.NewValidationError("Invalid user")
	}
	if len(in.Content) == 0 {
		return nil, "", models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, "", models.NewValidationError(
			fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes>>20))
	}
	if !mimeAllowed(http.DetectContentType(in.Content)) {
		return nil, "", models.NewValidationError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, "", models.NewValidationError("Invalid image file")
	}
	if !knownFormat(format) {
		return nil, "", models.NewValidationError("Unsupported image format")
	}
	if provided := canonicalMIME(in.ContentType); strings.HasPrefix(provided, "image/") &&
		!sameMIME(provided, formatMIME(format)) {
		return nil, "", models.NewValidationError("Image content type mismatch")
	}
	return decoded, format, nil
}

// ImageURL returns the public URL a stored image is served under.
func (s *ImageService) ImageURL(img *models.Image) string {
	return "/uploads/" + img.Path
}

// encodeMaster is the CPU-heavy half of an upload: downscale to the master
// bounds and re-encode as WebP. It runs under its own span because this is
// where upload latency lives.
func (s *ImageService) encodeMaster(ctx context.Context, decoded image.Image, format string) (image.Image, []byte, error) {
	span, _ := observability.NewSpan(ctx, "image.encode_master")
	defer span.End()

	master := fitWithin(decoded, masterMaxSize, masterMaxSize)
	encoded, err := toWebP(master, webpQuality)
	if err != nil {
		span.SetError(err)
		return nil, nil, err
	}

	bounds := master.Bounds()
	span.AddAttributes(
		attribute.String("image.source_format", format),
		attribute.Int("image.master_width", bounds.Dx()),
		attribute.Int("image.master_height", bounds.Dy()),
		attribute.Int("image.webp_bytes", len(encoded)),
	)
	return master, encoded, nil
}

// fitWithin scales src down to fit the bounding box, preserving aspect
// ratio. Images already inside the box come back untouched; upscaling never
// happens.
func fitWithin(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := math.Min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func toWebP(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Formats image.Decode can report for an accepted upload, mapped to the MIME
// type clients declare for them.
var supportedFormats = map[string]string{
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

var allowedUploadMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

func mimeAllowed(contentType string) bool {
	return allowedUploadMIMEs[canonicalMIME(contentType)]
}

// canonicalMIME lowercases a MIME type and strips parameters such as
// "; charset=binary". Unparsable values are normalized as-is.
func canonicalMIME(contentType string) string {
	if contentType == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// sameMIME treats image/jpg and image/jpeg as the same type;
// clients disagree on which one they send.
func sameMIME(provided, detected string) bool {
	p, d := canonicalMIME(provided), canonicalMIME(detected)
	if p == "image/jpg" {
		p = "image/jpeg"
	}
	if d == "image/jpg" {
		d = "image/jpeg"
	}
	return p == d
}

func knownFormat(format string) bool {
	_, ok := supportedFormats[canonicalFormat(format)]
	return ok
}

func formatMIME(format string) string {
	return supportedFormats[canonicalFormat(format)]
}

func canonicalFormat(format string) string {
	return strings.ToLower(strings.TrimSpace(format))
}

// buildImageHash scopes the content hash to the uploader so one user cannot
// squat on another user's future uploads.
func buildImageHash(userID uint, content []byte) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%d:", userID)
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func writeUpload(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
