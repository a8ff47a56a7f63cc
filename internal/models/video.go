package models

import (
	"time"

	"github.com/google/uuid"
)

// Video is the persisted record of one successfully processed upload.
// Rows are written only after Cloudinary confirms the upload and are never
// updated or deleted afterwards.
type Video struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Title          string    `json:"title" gorm:"not null"`
	Description    string    `json:"description"`
	PublicID       string    `json:"publicId" gorm:"uniqueIndex;not null"` // Cloudinary asset identifier
	OriginalSize   string    `json:"originalSize" gorm:"not null"`         // bytes, as declared by the client
	CompressedSize string    `json:"compressedSize" gorm:"not null"`       // bytes, as reported by Cloudinary
	Duration       float64   `json:"duration" gorm:"default:0"`            // seconds; 0 when not reported
	CreatedAt      time.Time `json:"createdAt" gorm:"autoCreateTime;index"`
}
