package storage

import (
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// FolderVideos is the prefix every video object lives under.
	FolderVideos = "videos"
	// EncodedPrefix marks transcoded derivatives inside FolderVideos.
	EncodedPrefix = "encoded-"
	// VideoContentType is sent on every transcoded upload.
	VideoContentType = "video/mp4"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// IsVideoKey reports whether key is a plausible object under FolderVideos.
func IsVideoKey(key string) bool {
	if !strings.HasPrefix(key, FolderVideos+"/") || len(key) == len(FolderVideos)+1 {
		return false
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}

// EncodedKey derives the destination key of a transcoded derivative:
// videos/encoded-{unix_ms}-{source base name}.mp4.
func EncodedKey(sourceKey string, now time.Time) string {
	base := path.Base(sourceKey)
	base = strings.TrimSuffix(base, path.Ext(base))
	return FolderVideos + "/" + EncodedPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "-" + base + ".mp4"
}

// UploadKey derives the key of a directly uploaded file:
// videos/{unix_ms}-{sanitized name}{ext}, defaulting the extension to .mp4.
func UploadKey(filename string, now time.Time) string {
	base := path.Base(filename)
	if base == "." || base == "/" {
		base = ""
	}
	name := SafeFileName(base)
	ext := path.Ext(name)
	if ext == "" {
		ext = ".mp4"
	}
	stem := strings.TrimSuffix(name, path.Ext(name))
	if stem == "" || stem == "." {
		stem = "video"
	}
	return FolderVideos + "/" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + stem + ext
}

// SafeFileName replaces every character outside [a-zA-Z0-9._-] with '-'.
func SafeFileName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "-")
}
