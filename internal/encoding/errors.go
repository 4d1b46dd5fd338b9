package encoding

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/socionet/backend/internal/media"
	"github.com/socionet/backend/pkg/storage"
)

var (
	// ErrNotConfigured means storage or a media binary is missing; no job is created.
	ErrNotConfigured = errors.New("encoding is not configured")
	// ErrStorageNotConfigured means no video bucket is set.
	ErrStorageNotConfigured = errors.New("storage bucket not configured")
	// ErrSaturated means the dispatch queue is full.
	ErrSaturated = errors.New("encoding queue is full")
	// ErrSourceUnavailable means the source object could not be fetched.
	ErrSourceUnavailable = errors.New("failed to download video")
	// ErrUploadFailed means the encoded derivative could not be stored.
	ErrUploadFailed = errors.New("failed to upload encoded video")
)

var stageErrors = []error{
	ErrSourceUnavailable,
	media.ErrProbeUnavailable,
	media.ErrProbeFailed,
	media.ErrEncodeUnavailable,
	media.ErrEncodeFailed,
	ErrUploadFailed,
}

// publicMessage renders err for the job's message field: the failing stage
// plus the most specific cause, without local paths under workDir.
func publicMessage(err error, workDir string) string {
	var stage string
	for _, s := range stageErrors {
		if errors.Is(err, s) {
			stage = s.Error()
			break
		}
	}

	var detail string
	var procErr *media.ProcessError
	var transferErr *storage.TransferError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		detail = "interrupted"
	case errors.As(err, &procErr):
		detail = lastLine(procErr.Stderr)
	case errors.As(err, &transferErr):
		detail = transferErr.Error()
	}

	var msg string
	switch {
	case stage == "" && detail == "":
		msg = err.Error()
	case stage == "":
		msg = detail
	case detail == "":
		msg = stage
	default:
		msg = stage + ": " + detail
	}
	if workDir != "" {
		msg = strings.ReplaceAll(msg, workDir+string(filepath.Separator), "")
		msg = strings.ReplaceAll(msg, workDir, "")
	}
	if msg = strings.TrimSpace(msg); msg == "" {
		return MessageFailed
	}
	return msg
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
