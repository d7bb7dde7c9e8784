package service

import (
	"context"
	"log/slog"
	"time"

	"blogicum/internal/models"

	"gorm.io/gorm"
)

// CategoryStatRow is one category's slice of the publication volume.
type CategoryStatRow struct {
	CategoryID uint            `json:"category_id"`
	PostCount  int64           `json:"post_count"`
	LatestPost time.Time       `json:"latest_post"`
	Category   models.Category `json:"category"`
}

// AdminOverview aggregates the numbers shown on the admin dashboard.
// VisiblePosts counts the posts the public can currently read, so the gap
// to Posts is the scheduled/unpublished/hidden-category backlog.
type AdminOverview struct {
	Users         int64             `json:"users"`
	Posts         int64             `json:"posts"`
	VisiblePosts  int64             `json:"visible_posts"`
	Comments      int64             `json:"comments"`
	ByCategory    []CategoryStatRow `json:"by_category"`
	RecentSignups []models.User     `json:"recent_signups"`
	Warnings      []string          `json:"warnings,omitempty"`
}

// StatsService computes admin dashboard aggregates straight from the
// database; these queries are not on any hot path.
type StatsService struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

// GetAdminOverview returns platform-wide counts plus a per-category
// breakdown. Partial failures degrade to warnings rather than failing the
// whole dashboard.
func (s *StatsService) GetAdminOverview(ctx context.Context, categoryLimit int) (*AdminOverview, error) {
	if categoryLimit <= 0 {
		categoryLimit = 20
	}

	overview := &AdminOverview{}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&overview.Users).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Count(&overview.Posts).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Joins("LEFT JOIN categories ON categories.id = posts.category_id").
		Where("posts.is_published = TRUE").
		Where("posts.pub_date <= NOW()").
		Where("posts.category_id IS NULL OR categories.is_published = TRUE").
		Count(&overview.VisiblePosts).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Count(&overview.Comments).Error; err != nil {
		return nil, err
	}

	type rawRow struct {
		CategoryID uint      `json:"category_id"`
		PostCount  int64     `json:"post_count"`
		LatestPost time.Time `json:"latest_post"`
	}

	var rows []rawRow
	if err := s.db.WithContext(ctx).
		Table("posts").
		Select("category_id, COUNT(*) as post_count, MAX(pub_date) as latest_post").
		Where("category_id IS NOT NULL AND deleted_at IS NULL").
		Group("category_id").
		Order("post_count DESC, latest_post DESC").
		Limit(categoryLimit).
		Scan(&rows).Error; err != nil {
		slog.WarnContext(ctx, "failed to aggregate posts by category", "err", err)
		overview.Warnings = append(overview.Warnings, "Partial data: category breakdown could not be loaded.")
	} else if len(rows) > 0 {
		categoryIDs := make([]uint, 0, len(rows))
		for _, row := range rows {
			categoryIDs = append(categoryIDs, row.CategoryID)
		}

		categoriesByID := map[uint]models.Category{}
		var categories []models.Category
		if err := s.db.WithContext(ctx).Where("id IN ?", categoryIDs).Find(&categories).Error; err != nil {
			slog.WarnContext(ctx, "failed to load categories for stats", "err", err)
			overview.Warnings = append(overview.Warnings, "Partial data: category names could not be loaded.")
		}
		for _, category := range categories {
			categoriesByID[category.ID] = category
		}

		overview.ByCategory = make([]CategoryStatRow, 0, len(rows))
		for _, row := range rows {
			overview.ByCategory = append(overview.ByCategory, CategoryStatRow{
				CategoryID: row.CategoryID,
				PostCount:  row.PostCount,
				LatestPost: row.LatestPost,
				Category:   categoriesByID[row.CategoryID],
			})
		}
	}

	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(5).
		Find(&overview.RecentSignups).Error; err != nil {
		slog.WarnContext(ctx, "failed to load recent signups", "err", err)
		overview.Warnings = append(overview.Warnings, "Partial data: recent signups could not be loaded.")
	}

	return overview, nil
}
