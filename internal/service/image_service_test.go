package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"blogicum/internal/config"
	"blogicum/internal/featureflags"
	"blogicum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// imageRepoStub is a stub for repository.ImageRepository.
type imageRepoStub struct {
	createFn    func(context.Context, *models.Image) error
	getByIDFn   func(context.Context, uint) (*models.Image, error)
	getByHashFn func(context.Context, string) (*models.Image, error)
}

func (s *imageRepoStub) Create(ctx context.Context, img *models.Image) error {
	return s.createFn(ctx, img)
}
func (s *imageRepoStub) GetByID(ctx context.Context, id uint) (*models.Image, error) {
	return s.getByIDFn(ctx, id)
}
func (s *imageRepoStub) GetByHash(ctx context.Context, hash string) (*models.Image, error) {
	return s.getByHashFn(ctx, hash)
}

func noopImageRepo() *imageRepoStub {
	return &imageRepoStub{
		createFn:  func(_ context.Context, _ *models.Image) error { return nil },
		getByIDFn: func(_ context.Context, _ uint) (*models.Image, error) { return nil, gorm.ErrRecordNotFound },
		getByHashFn: func(_ context.Context, _ string) (*models.Image, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestImageService(t *testing.T, repo *imageRepoStub) *ImageService {
	t.Helper()
	cfg := &config.Config{ImageUploadDir: t.TempDir(), ImageMaxUploadSizeMB: 1}
	return NewImageService(repo, nil, cfg)
}

func TestImageService_Upload_Validation(t *testing.T) {
	t.Parallel()

	svc := newTestImageService(t, noopImageRepo())
	ctx := context.Background()

	t.Run("missing user", func(t *testing.T) {
		_, err := svc.Upload(ctx, UploadImageInput{Content: pngBytes(t, 4, 4)})
		assertValidationError(t, err)
	})

	t.Run("empty body", func(t *testing.T) {
		_, err := svc.Upload(ctx, UploadImageInput{UserID: 1})
		assertValidationError(t, err)
	})

	t.Run("not an image", func(t *testing.T) {
		_, err := svc.Upload(ctx, UploadImageInput{UserID: 1, Content: []byte("plain text, no pixels")})
		assertValidationError(t, err)
	})

	t.Run("content type mismatch", func(t *testing.T) {
		_, err := svc.Upload(ctx, UploadImageInput{
			UserID:      1,
			Content:     pngBytes(t, 4, 4),
			ContentType: "image/gif",
		})
		assertValidationError(t, err)
	})
}

func TestImageService_Upload_FlagOff(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{ImageUploadDir: t.TempDir(), ImageMaxUploadSizeMB: 1}
	flags := featureflags.NewManager("image_uploads=off")
	svc := NewImageService(noopImageRepo(), flags, cfg)

	_, err := svc.Upload(context.Background(), UploadImageInput{UserID: 1, Content: pngBytes(t, 4, 4)})
	assertForbiddenError(t, err)
}

func TestImageService_Upload_StoresWebP(t *testing.T) {
	t.Parallel()

	var created *models.Image
	repo := noopImageRepo()
	repo.createFn = func(_ context.Context, img *models.Image) error {
		img.ID = 1
		created = img
		return nil
	}
	svc := newTestImageService(t, repo)

	img, err := svc.Upload(context.Background(), UploadImageInput{
		UserID:   7,
		Filename: "photo.png",
		Content:  pngBytes(t, 32, 16),
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "webp", img.Format)
	assert.Equal(t, 32, img.Width)
	assert.Equal(t, 16, img.Height)
	assert.Equal(t, uint(7), img.UploaderID)
	assert.Equal(t, img.Hash+".webp", img.Path)

	// The bytes really landed on disk.
	onDisk, err := os.ReadFile(filepath.Join(svc.UploadDir(), img.Path))
	require.NoError(t, err)
	assert.EqualValues(t, img.SizeBytes, len(onDisk))

	assert.Equal(t, "/uploads/"+img.Path, svc.ImageURL(img))
}

func TestImageService_Upload_DedupesByHash(t *testing.T) {
	t.Parallel()

	content := pngBytes(t, 8, 8)
	stored := map[string]*models.Image{}

	repo := noopImageRepo()
	repo.createFn = func(_ context.Context, img *models.Image) error {
		img.ID = uint(len(stored) + 1)
		stored[img.Hash] = img
		return nil
	}
	repo.getByHashFn = func(_ context.Context, hash string) (*models.Image, error) {
		if img, ok := stored[hash]; ok {
			return img, nil
		}
		return nil, gorm.ErrRecordNotFound
	}
	svc := newTestImageService(t, repo)

	first, err := svc.Upload(context.Background(), UploadImageInput{UserID: 1, Content: content})
	require.NoError(t, err)

	second, err := svc.Upload(context.Background(), UploadImageInput{UserID: 1, Content: content})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// A different user uploading identical bytes gets their own record.
	third, err := svc.Upload(context.Background(), UploadImageInput{UserID: 2, Content: content})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestResizeToFit(t *testing.T) {
	t.Parallel()

	t.Run("small images pass through", func(t *testing.T) {
		t.Parallel()
		src := image.NewRGBA(image.Rect(0, 0, 100, 50))
		out := fitWithin(src, 2048, 2048)
		assert.Equal(t, 100, out.Bounds().Dx())
		assert.Equal(t, 50, out.Bounds().Dy())
	})

	t.Run("large images shrink preserving aspect", func(t *testing.T) {
		t.Parallel()
		src := image.NewRGBA(image.Rect(0, 0, 4096, 2048))
		out := fitWithin(src, 2048, 2048)
		assert.Equal(t, 2048, out.Bounds().Dx())
		assert.Equal(t, 1024, out.Bounds().Dy())
	})
}
