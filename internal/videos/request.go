package videos

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/socionet/backend/internal/models"
)

// Update lists the fields to change on a video. Set flags distinguish
// "absent" from "explicitly null" for nullable columns.
type Update struct {
	Title           *string
	DescriptionSet  bool
	Description     *string
	RequiredRole    *models.Role
	IsPublished     *bool
	DurationSet     bool
	DurationSeconds *int
}

// optionalString records whether the key was present at all.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// optionalNumber is a present-or-absent JSON value coerced to whole seconds.
// Non-numeric values become null.
type optionalNumber struct {
	Set   bool
	Value *int
}

func (o *optionalNumber) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.Value = wholeSeconds(data)
	return nil
}

func wholeSeconds(data []byte) *int {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		var s json.Number
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if f, err = s.Float64(); err != nil {
			return nil
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	v := int(math.Max(0, math.Floor(f)))
	return &v
}

// CreateRequest is the body for POST /admin/videos.
type CreateRequest struct {
	Title           string         `json:"title"`
	Description     *string        `json:"description"`
	StoragePath     string         `json:"storagePath"`
	RequiredRole    string         `json:"requiredRole"`
	IsPublished     bool           `json:"isPublished"`
	DurationSeconds optionalNumber `json:"durationSeconds"`
}

// UpdateRequest is the body for PATCH /admin/videos/:id.
type UpdateRequest struct {
	Title           *string        `json:"title"`
	Description     optionalString `json:"description"`
	RequiredRole    *string        `json:"requiredRole"`
	IsPublished     *bool          `json:"isPublished"`
	DurationSeconds optionalNumber `json:"durationSeconds"`
}

// UploadURLRequest is the body for POST /admin/videos/upload-url.
type UploadURLRequest struct {
	FilePath string `json:"filePath"`
}

// ProgressRequest is the body for PATCH /videos/:id/progress.
type ProgressRequest struct {
	Completed *bool `json:"completed"`
}
