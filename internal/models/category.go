package models

import "time"

// Category groups posts by topic. Slug is the URL identifier for the
// category feed. Unpublished categories hide every post attached to them
// from non-authors. Deleting a category detaches its posts instead of
// removing them.
type Category struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Title       string    `gorm:"size:256;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Slug        string    `gorm:"uniqueIndex;size:64;not null" json:"slug"`
	IsPublished bool      `gorm:"default:true" json:"is_published"`
}
