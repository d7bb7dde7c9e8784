package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a blog publication. A post is publicly visible only when it is
// published, its pub date is not in the future, and its category (when set)
// is itself published. Authors always see their own posts regardless.
//
// PubDate may be set in the future to schedule publication; the post stays
// hidden from readers until the date passes.
type Post struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Title       string         `gorm:"size:256;not null" json:"title"`
	Text        string         `gorm:"type:text;not null" json:"text"`
	PubDate     time.Time      `gorm:"index;not null" json:"pub_date"`
	AuthorID    uint           `gorm:"index;not null" json:"author_id"`
	Author      User           `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	CategoryID  *uint          `gorm:"index" json:"category_id,omitempty"`
	Category    *Category      `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	LocationID  *uint          `gorm:"index" json:"location_id,omitempty"`
	Location    *Location      `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	ImageURL    string         `gorm:"size:512" json:"image_url,omitempty"`
	IsPublished bool           `gorm:"default:true" json:"is_published"`

	// CommentCount is computed by the repository via subquery; it is never
	// written back to the posts table.
	CommentCount int `gorm:"->" json:"comment_count"`
}

// VisibleTo reports whether the post passes the visibility gate for the
// given viewer. The repository enforces the same rule in SQL; this form
// exists for in-process checks on already-loaded rows.
func (p *Post) VisibleTo(viewerID uint, now time.Time) bool {
	if viewerID != 0 && viewerID == p.AuthorID {
		return true
	}
	if !p.IsPublished || p.PubDate.After(now) {
		return false
	}
	if p.Category != nil && !p.Category.IsPublished {
		return false
	}
	return true
}
