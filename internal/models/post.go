package models

import (
	"time"

	"github.com/google/uuid"
)

// PostCategory groups board posts.
type PostCategory string

const (
	CategoryNotice   PostCategory = "NOTICE"
	CategoryActivity PostCategory = "ACTIVITY"
)

// Valid reports whether c is a recognized category.
func (c PostCategory) Valid() bool {
	return c == CategoryNotice || c == CategoryActivity
}

// Post is a notice or activity entry with sanitized HTML content.
type Post struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Content     *string      `json:"content"`
	Category    PostCategory `json:"category"`
	IsPublished bool         `json:"isPublished"`
	IsPinned    bool         `json:"isPinned"`
	Views       int          `json:"views"`
	PublishedAt time.Time    `json:"publishedAt"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
