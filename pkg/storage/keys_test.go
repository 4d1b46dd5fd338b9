package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsVideoKey(t *testing.T) {
	cases := map[string]bool{
		"videos/intro.mp4":        true,
		"videos/a/b.mov":          true,
		"videos/":                 false,
		"images/intro.mp4":        false,
		"videos/../secrets.txt":   false,
		"videosX/intro.mp4":       false,
		"":                        false,
	}
	for key, want := range cases {
		assert.Equal(t, want, IsVideoKey(key), key)
	}
}

func TestEncodedKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "videos/encoded-1700000000123-lesson-1.mp4", EncodedKey("videos/lesson-1.mov", now))
	assert.Equal(t, "videos/encoded-1700000000123-raw.mp4", EncodedKey("videos/nested/raw", now))
}

func TestUploadKey(t *testing.T) {
	now := time.UnixMilli(42)
	assert.Equal(t, "videos/42-My-Lesson-.mov", UploadKey("My Lesson!.mov", now))
	assert.Equal(t, "videos/42-clip.mp4", UploadKey("clip", now))
	assert.Equal(t, "videos/42-video.mp4", UploadKey("", now))
}
