package models

import "time"

// Image records an uploaded post illustration. Hash deduplicates uploads:
// a re-upload of identical bytes reuses the stored file.
type Image struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Hash       string    `gorm:"uniqueIndex;size:64;not null" json:"hash"`
	Path       string    `gorm:"size:512;not null" json:"path"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	SizeBytes  int64     `json:"size_bytes"`
	Format     string    `gorm:"size:16" json:"format"`
	UploaderID uint      `gorm:"index" json:"uploader_id"`
}
