package service

import (
	"context"
	"errors"
	"time"

	"blogicum/internal/featureflags"
	"blogicum/internal/models"
	"blogicum/internal/repository"
)

// FeedPageSize is the fixed page size of every post feed.
const FeedPageSize = 10

type PostService struct {
	postRepo     repository.PostRepository
	categoryRepo repository.CategoryRepository
	locationRepo repository.LocationRepository
	userRepo     repository.UserRepository
	flags        *featureflags.Manager
}

type CreatePostInput struct {
	AuthorID   uint
	Title      string
	Text       string
	PubDate    *time.Time
	CategoryID *uint
	LocationID *uint
	ImageURL   string
}

type UpdatePostInput struct {
	AuthorID   uint
	PostID     uint
	Title      string
	Text       string
	PubDate    *time.Time
	CategoryID *uint
	LocationID *uint
	ImageURL   string
}

// FeedPage is one page of a feed plus the metadata pagination needs.
type FeedPage struct {
	Posts    []*models.Post
	Total    int64
	Page     int
	PageSize int
}

func NewPostService(postRepo repository.PostRepository, categoryRepo repository.CategoryRepository,
	locationRepo repository.LocationRepository, userRepo repository.UserRepository,
	flags *featureflags.Manager) *PostService {
	return &PostService{
		postRepo:     postRepo,
		categoryRepo: categoryRepo,
		locationRepo: locationRepo,
		userRepo:     userRepo,
		flags:        flags,
	}
}

// Column caps shared by create and update.
const (
	maxPostTitleLen = 256
	maxPostTextLen  = 50000
	maxImageURLLen  = 512
)

// checkPostLimits enforces the column caps. Empty fields pass, so update
// payloads can leave fields untouched.
func checkPostLimits(title, text, imageURL string) error {
	if len(title) > maxPostTitleLen {
		return models.NewValidationError("Title too long (max 256 characters)")
	}
	if len(text) > maxPostTextLen {
		return models.NewValidationError("Text too long (max 50000 characters)")
	}
	if len(imageURL) > maxImageURLLen {
		return models.NewValidationError("Image URL too long (max 512 characters)")
	}
	return nil
}

// checkSchedule rejects future pub dates while the scheduled_posts flag is
// off for this author. Backdating is always allowed.
func (s *PostService) checkSchedule(authorID uint, pubDate time.Time) error {
	if pubDate.After(time.Now()) && !s.flags.EnabledOr(featureflags.FlagScheduledPosts, authorID, true) {
		return models.NewForbiddenError("Scheduled publishing is currently disabled")
	}
	return nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.Title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if in.Text == "" {
		return nil, models.NewValidationError("Text is required")
	}
	if err := checkPostLimits(in.Title, in.Text, in.ImageURL); err != nil {
		return nil, err
	}

	pubDate := time.Now()
	if in.PubDate != nil {
		pubDate = *in.PubDate
	}
	if err := s.checkSchedule(in.AuthorID, pubDate); err != nil {
		return nil, err
	}

	if err := s.checkReferences(ctx, in.CategoryID, in.LocationID); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:       in.Title,
		Text:        in.Text,
		PubDate:     pubDate,
		AuthorID:    in.AuthorID,
		CategoryID:  in.CategoryID,
		LocationID:  in.LocationID,
		ImageURL:    in.ImageURL,
		IsPublished: true,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	return s.postRepo.GetByID(ctx, post.ID, in.AuthorID)
}

// checkReferences rejects category or location ids that do not exist.
// Unpublished ones are accepted: the post simply stays out of public
// feeds until its category is published.
func (s *PostService) checkReferences(ctx context.Context, categoryID, locationID *uint) error {
	if categoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *categoryID); err != nil {
			if isNotFound(err) {
				return models.NewValidationError("Unknown category")
			}
			return err
		}
	}
	if locationID != nil {
		if _, err := s.locationRepo.GetByID(ctx, *locationID); err != nil {
			if isNotFound(err) {
				return models.NewValidationError("Unknown location")
			}
			return err
		}
	}
	return nil
}

func (s *PostService) GetPost(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id, viewerID)
}

// HomeFeed returns one page of publicly visible posts, newest first.
// Pages are 1-based; a page past the end is an empty page, not an error.
func (s *PostService) HomeFeed(ctx context.Context, page int) (*FeedPage, error) {
	limit, offset := pageWindow(page)
	posts, total, err := s.postRepo.ListVisible(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return &FeedPage{Posts: posts, Total: total, Page: normalizePage(page), PageSize: FeedPageSize}, nil
}

// CategoryFeed returns one page of a published category's visible posts.
// Missing and unpublished categories are both a not-found.
func (s *PostService) CategoryFeed(ctx context.Context, slug string, page int) (*models.Category, *FeedPage, error) {
	category, err := s.categoryRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	if !category.IsPublished {
		return nil, nil, models.NewNotFoundMessageError("category not found")
	}

	limit, offset := pageWindow(page)
	posts, total, err := s.postRepo.ListByCategory(ctx, category, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	return category, &FeedPage{Posts: posts, Total: total, Page: normalizePage(page), PageSize: FeedPageSize}, nil
}

// ProfileFeed returns one page of a user's posts. The profile owner sees
// everything they wrote, including drafts and scheduled posts; anyone else
// gets the publicly visible subset.
func (s *PostService) ProfileFeed(ctx context.Context, username string, viewerID uint, page int) (*models.User, *FeedPage, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, models.NewNotFoundMessageError("user not found")
	}

	ownerView := viewerID != 0 && viewerID == user.ID
	limit, offset := pageWindow(page)
	posts, total, err := s.postRepo.ListByAuthor(ctx, user.ID, ownerView, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	return user, &FeedPage{Posts: posts, Total: total, Page: normalizePage(page), PageSize: FeedPageSize}, nil
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.AuthorID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != in.AuthorID {
		// Administrators get no special treatment here: posts belong to
		// their authors alone.
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}

	if err := checkPostLimits(in.Title, in.Text, in.ImageURL); err != nil {
		return nil, err
	}
	if in.Title != "" {
		post.Title = in.Title
	}
	if in.Text != "" {
		post.Text = in.Text
	}
	if in.PubDate != nil {
		if err := s.checkSchedule(in.AuthorID, *in.PubDate); err != nil {
			return nil, err
		}
		post.PubDate = *in.PubDate
	}
	if in.CategoryID != nil || in.LocationID != nil {
		if err := s.checkReferences(ctx, in.CategoryID, in.LocationID); err != nil {
			return nil, err
		}
		if in.CategoryID != nil {
			post.CategoryID = in.CategoryID
			post.Category = nil
		}
		if in.LocationID != nil {
			post.LocationID = in.LocationID
			post.Location = nil
		}
	}
	if in.ImageURL != "" {
		post.ImageURL = in.ImageURL
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, in.PostID, in.AuthorID)
}

func (s *PostService) DeletePost(ctx context.Context, authorID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID, authorID)
	if err != nil {
		return err
	}
	if post.AuthorID != authorID {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	return s.postRepo.Delete(ctx, postID)
}

// pageWindow converts a 1-based page number into a limit/offset pair.
func pageWindow(page int) (limit, offset int) {
	p := normalizePage(page)
	return FeedPageSize, (p - 1) * FeedPageSize
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func isNotFound(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeNotFound
}
