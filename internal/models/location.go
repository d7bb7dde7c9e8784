package models

import "time"

// Location tags a post with a place. Unlike categories, an unpublished
// location never hides a post; its name is simply withheld from readers
// other than the author.
type Location struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `gorm:"size:256;not null" json:"name"`
	IsPublished bool      `gorm:"default:true" json:"is_published"`
}
