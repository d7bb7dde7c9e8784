package server

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"blogicum/internal/models"
	"blogicum/internal/observability"
	"blogicum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten signals that a helper already wrote the HTTP response.
// A handler seeing it must return nil, otherwise Fiber's ErrorHandler would
// overwrite what is on the wire.
var errResponseWritten = errors.New("response already written")

// parsePage reads the 1-based `page` query parameter. Values below 1 fall
// back to page 1; pages past the end come back as empty pages from the
// service, never as errors.
func parsePage(c *fiber.Ctx) int {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	return page
}

// decodeBody parses the JSON request body into dst. On malformed input it
// answers 400 itself and hands back errResponseWritten.
func decodeBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// parseID reads a route parameter as a positive uint. When the value is
// missing, non-numeric or < 1 it answers 400 itself, with a message built
// from the parameter name, and hands back errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam turns a route param name into the label used in error
// messages: "id" becomes "ID", "commentId" becomes "comment ID", and names
// without the Id suffix pass through untouched.
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	prefix, found := strings.CutSuffix(param, "Id")
	if !found {
		return param
	}

	var label strings.Builder
	for i, r := range prefix {
		if i > 0 && unicode.IsUpper(r) {
			label.WriteByte(' ')
		}
		label.WriteRune(unicode.ToLower(r))
	}
	return label.String() + " ID"
}

// mapServiceError translates an AppError code into its HTTP status.
// Anything that is not an AppError is a 500.
func mapServiceError(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondServiceError writes the JSON error envelope with the status derived
// from the error's code. Unexpected failures, anything mapping to a 500, are
// additionally recorded on the request's trace span.
func respondServiceError(c *fiber.Ctx, err error) error {
	status := mapServiceError(err)
	if status == fiber.StatusInternalServerError {
		observability.RecordErrorInContext(c.UserContext(), err)
	}
	return models.RespondWithError(c, status, err)
}

// respondMutationError is respondServiceError for post and comment mutations:
// a FORBIDDEN denial additionally names the post detail page as the fallback
// destination for the client to land on.
func respondMutationError(c *fiber.Ctx, err error, postID uint) error {
	if mapServiceError(err) == fiber.StatusForbidden {
		return models.RespondWithFallback(c, fiber.StatusForbidden, err, fmt.Sprintf("/posts/%d", postID))
	}
	return respondServiceError(c, err)
}

// feedEnvelope is the JSON shape of every paginated post feed.
type feedEnvelope struct {
	Results    []*models.Post `json:"results"`
	Count      int64          `json:"count"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

func toFeedEnvelope(page *service.FeedPage) feedEnvelope {
	results := page.Posts
	if results == nil {
		// Out-of-range pages serialize as [] rather than null.
		results = []*models.Post{}
	}
	totalPages := int((page.Total + int64(page.PageSize) - 1) / int64(page.PageSize))
	return feedEnvelope{
		Results:    results,
		Count:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: totalPages,
	}
}

// profileResponse is the owner-facing user payload. User.Email is excluded
// from the public JSON shape, so owner views re-attach it here.
type profileResponse struct {
	*models.User
	Email string `json:"email"`
}

func ownerProfile(u *models.User) profileResponse {
	return profileResponse{User: u, Email: u.Email}
}

// isAdmin checks whether the given user has admin privileges.
func (s *Server) isAdmin(c *fiber.Ctx, userID uint) (bool, error) {
	return s.userSvc().IsAdmin(c.UserContext(), userID)
}
