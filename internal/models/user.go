package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a registered author. Admins additionally moderate comments and
// manage categories and locations. Email never serializes with the user;
// owner-facing handlers add it back explicitly.
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Username     string         `gorm:"uniqueIndex;size:30;not null" json:"username"`
	Email        string         `gorm:"uniqueIndex;size:254;not null" json:"-"`
	PasswordHash string         `gorm:"not null" json:"-"`
	FirstName    string         `gorm:"size:80" json:"first_name"`
	LastName     string         `gorm:"size:80" json:"last_name"`
	Bio          string         `gorm:"type:text" json:"bio"`
	IsAdmin      bool           `gorm:"default:false" json:"is_admin"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
}

// DisplayName prefers the real name when the profile has one.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// PublicProfile is the subset of User safe to expose on profile pages.
type PublicProfile struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Bio       string    `json:"bio"`
	CreatedAt time.Time `json:"created_at"`
}

// Public projects the user onto its public profile shape.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       u.Bio,
		CreatedAt: u.CreatedAt,
	}
}
