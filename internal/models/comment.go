package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment is a reader's reply under a post. Only the comment's author or
// an admin may edit or remove it.
type Comment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Text      string         `gorm:"type:text;not null" json:"text"`
	PostID    uint           `gorm:"index;not null" json:"post_id"`
	AuthorID  uint           `gorm:"index;not null" json:"author_id"`
	Author    User           `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}
