package server

import (
	"io"

	"blogicum/internal/models"
	"blogicum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ImageUploadResponse is the API response after attaching an image to a post.
type ImageUploadResponse struct {
	ID        uint   `json:"id"`
	Hash      string `json:"hash"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes int64  `json:"size_bytes"`
	Format    string `json:"format"`
	URL       string `json:"url"`
}

// UploadPostImage handles POST /api/v1/posts/:id/image. Author only; the
// stored image's URL becomes the post's image_url.
func (s *Server) UploadPostImage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postSvc().GetPost(ctx, postID, userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	if post.AuthorID != userID {
		return respondMutationError(c,
			models.NewForbiddenError("You can only attach images to your own posts"), postID)
	}

	file, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}
	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
	}

	img, err := s.imageSvc().Upload(ctx, service.UploadImageInput{
		UserID:      userID,
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		return respondMutationError(c, err, postID)
	}

	// Point the post at the stored file.
	if _, err := s.postSvc().UpdatePost(ctx, service.UpdatePostInput{
		AuthorID: userID,
		PostID:   postID,
		ImageURL: s.imageSvc().ImageURL(img),
	}); err != nil {
		return respondMutationError(c, err, postID)
	}

	return c.Status(fiber.StatusCreated).JSON(ImageUploadResponse{
		ID:        img.ID,
		Hash:      img.Hash,
		Width:     img.Width,
		Height:    img.Height,
		SizeBytes: img.SizeBytes,
		Format:    img.Format,
		URL:       s.imageSvc().ImageURL(img),
	})
}

func (s *Server) imageSvc() *service.ImageService {
	if s.imageService == nil {
		s.imageService = service.NewImageService(s.imageRepo, s.featureFlags, s.config)
	}
	return s.imageService
}
