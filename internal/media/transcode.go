package media

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrEncodeUnavailable means the encoding binary is missing from the environment.
	ErrEncodeUnavailable = errors.New("ffmpeg is not available")
	// ErrEncodeFailed means the encoder ran and failed.
	ErrEncodeFailed = errors.New("encoding failed")
)

// Encoder settings for web playback.
const (
	videoCodec   = "libx264"
	videoPreset  = "ultrafast"
	videoCRF     = "28"
	audioCodec   = "aac"
	audioBitrate = "128k"
)

// TranscodeRequest describes one re-encode.
type TranscodeRequest struct {
	Input        string
	Output       string
	TargetHeight int
	// DurationSeconds of the source; progress is only reported when known.
	DurationSeconds *int
	OnProgress      func(percent int)
}

// Transcoder re-encodes files with ffmpeg.
type Transcoder struct {
	path   string
	runner Runner
}

// NewTranscoder creates a transcoder for the given binary. A nil runner uses ExecRunner.
func NewTranscoder(path string, runner Runner) *Transcoder {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Transcoder{path: path, runner: runner}
}

// Available reports ErrEncodeUnavailable when the binary cannot be resolved.
func (t *Transcoder) Available() error {
	if _, err := lookBinary(t.path); err != nil {
		return fmt.Errorf("%w: %v", ErrEncodeUnavailable, err)
	}
	return nil
}

// Args builds the ffmpeg argument list for req.
func Args(req TranscodeRequest) []string {
	return []string{
		"-y",
		"-i", req.Input,
		"-vf", "scale=-2:" + strconv.Itoa(req.TargetHeight),
		"-c:v", videoCodec,
		"-preset", videoPreset,
		"-crf", videoCRF,
		"-c:a", audioCodec,
		"-b:a", audioBitrate,
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		"-nostats",
		req.Output,
	}
}

// Transcode runs ffmpeg and forwards parsed progress to req.OnProgress.
func (t *Transcoder) Transcode(ctx context.Context, req TranscodeRequest) error {
	if req.TargetHeight <= 0 {
		return fmt.Errorf("%w: invalid target height %d", ErrEncodeFailed, req.TargetHeight)
	}
	parser := NewProgressParser(req.DurationSeconds, req.OnProgress)
	if _, err := t.runner.Run(ctx, t.path, Args(req), parser); err != nil {
		var spawnErr *SpawnError
		if errors.As(err, &spawnErr) {
			return fmt.Errorf("%w: %w", ErrEncodeUnavailable, err)
		}
		return fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}
	return nil
}

// TargetHeight picks the output height. Sources of 720 lines or more are
// encoded at 720, everything else (including unknown height) at 480.
func TargetHeight(sourceHeight int) int {
	if sourceHeight >= 720 {
		return 720
	}
	return 480
}
