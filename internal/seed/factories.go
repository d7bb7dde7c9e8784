package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"blogicum/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Publication states for seeded posts.
const (
	PostStatePublished = "published"
	PostStateDraft     = "draft"
	PostStateScheduled = "scheduled"
)

// SeedPassword is the password every seeded user gets.
const SeedPassword = "password123"

// Factory fabricates realistic demo rows for the seed presets and tests.
// In DryRun mode nothing touches the database; entities only get synthetic
// IDs so references between them still line up.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	// nextID hands out fake IDs while nothing is persisted.
	nextID uint
}

// NewFactory binds a Factory to db.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	//nolint:gosec // math/rand is fine for demo data
	return &Factory{
		db:     db,
		opts:   opts,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		nextID: 1000,
	}
}

// applyOverrides runs each override on the freshly generated entity.
func applyOverrides[T any](entity *T, overrides []func(*T)) {
	for _, override := range overrides {
		override(entity)
	}
}

// save inserts the entity, or in DryRun mode assigns the next synthetic ID
// and prints dryMsg instead.
func save[T any](f *Factory, entity *T, id *uint, dryMsg string) (*T, error) {
	if f.opts.DryRun {
		f.nextID++
		*id = f.nextID
		if dryMsg != "" {
			log.Printf("[dry-run] %s", dryMsg)
		}
		return entity, nil
	}
	if err := f.db.Create(entity).Error; err != nil {
		return nil, err
	}
	return entity, nil
}

// CreateUser persists a generated user. Overrides run before the save.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username:  fmt.Sprintf("%s%d", strings.ToLower(gofakeit.Username()), gofakeit.Number(100, 999)),
		Email:     gofakeit.Email(),
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		Bio:       gofakeit.Sentence(10),
		IsActive:  true,
	}

	// SkipBcrypt trades real hashes for speed on large dev seeds.
	if f.opts.SkipBcrypt {
		user.PasswordHash = SeedPassword
	} else {
		hashed, _ := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
		user.PasswordHash = string(hashed)
	}

	applyOverrides(user, overrides)
	return save(f, user, &user.ID, fmt.Sprintf("CreateUser: %s <%s>", user.Username, user.Email))
}

// CreateCategory persists a generated category under a unique slug.
func (f *Factory) CreateCategory(overrides ...func(*models.Category)) (*models.Category, error) {
	word := strings.ToLower(gofakeit.Word())
	category := &models.Category{
		Title:       strings.ToUpper(word[:1]) + word[1:],
		Slug:        fmt.Sprintf("%s-%d", word, gofakeit.Number(100, 999)),
		Description: gofakeit.Sentence(12),
		IsPublished: true,
	}

	applyOverrides(category, overrides)
	return save(f, category, &category.ID, "CreateCategory: "+category.Slug)
}

// CreateLocation persists a generated location.
func (f *Factory) CreateLocation(overrides ...func(*models.Location)) (*models.Location, error) {
	location := &models.Location{
		Name:        gofakeit.City(),
		IsPublished: true,
	}

	applyOverrides(location, overrides)
	return save(f, location, &location.ID, "CreateLocation: "+location.Name)
}

// BuildPostWithState constructs a post in the given publication state
// without persisting it. Useful for batching.
func (f *Factory) BuildPostWithState(user *models.User, state string, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		Title:       gofakeit.Sentence(5),
		Text:        gofakeit.Paragraph(2, 4, 8, "\n\n"),
		AuthorID:    user.ID,
		IsPublished: true,
	}

	// Spread pub dates over the recent past so feeds look lived-in.
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	post.PubDate = f.pastInstant(maxDays)

	switch state {
	case PostStateDraft:
		post.IsPublished = false
	case PostStateScheduled:
		// Hidden until the date passes.
		post.PubDate = time.Now().Add(time.Duration(1+f.rng.Intn(maxDays)) * 24 * time.Hour)
	}

	if f.rng.Float32() < 0.4 {
		post.ImageURL = "https://picsum.photos/seed/" + gofakeit.UUID() + "/800/800"
	}

	applyOverrides(post, overrides)
	return post
}

// pastInstant picks a random moment within the last maxDays days.
func (f *Factory) pastInstant(maxDays int) time.Time {
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

// CreatePost constructs and persists a published post for the given user.
func (f *Factory) CreatePost(user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	return f.CreatePostWithState(user, PostStatePublished, overrides...)
}

// CreatePostWithState creates a post for the given user in a specific
// publication state (published, draft, scheduled).
func (f *Factory) CreatePostWithState(user *models.User, state string, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPostWithState(user, state, overrides...)
	return save(f, post, &post.ID, fmt.Sprintf("CreatePost: state=%s author=%d title=%q", state, post.AuthorID, post.Title))
}

// CreatePostsBatch persists multiple posts in chunked inserts.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		log.Printf("[dry-run] CreatePostsBatch: %d posts (no DB write)", len(posts))
		return nil
	}

	batchSize := f.opts.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return f.db.CreateInBatches(&posts, batchSize).Error
}

// CreateComment persists a generated comment by user on post.
func (f *Factory) CreateComment(user *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		Text:     gofakeit.Sentence(8),
		PostID:   post.ID,
		AuthorID: user.ID,
	}

	applyOverrides(comment, overrides)
	return save(f, comment, &comment.ID, "")
}
