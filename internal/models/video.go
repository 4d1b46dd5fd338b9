package models

import (
	"time"

	"github.com/google/uuid"
)

// Video is a catalog entry pointing at an object in the video bucket.
type Video struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	StoragePath     string     `json:"storagePath"`
	RequiredRole    Role       `json:"requiredRole"`
	IsPublished     bool       `json:"isPublished"`
	DurationSeconds *int       `json:"durationSeconds"`
	UploadedByID    *uuid.UUID `json:"uploadedById"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// VisibleTo reports whether a viewer with role may watch v.
// Admins see everything; others only published videos for their exact role.
func (v *Video) VisibleTo(role Role) bool {
	if role == RoleAdmin {
		return true
	}
	return v.IsPublished && v.RequiredRole == role
}

// VideoProgress records whether a user finished a video.
type VideoProgress struct {
	UserID      uuid.UUID  `json:"userId"`
	VideoID     uuid.UUID  `json:"videoId"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
