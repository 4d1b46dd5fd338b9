package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrProbeUnavailable means the probing binary is missing from the environment.
	ErrProbeUnavailable = errors.New("ffprobe is not available")
	// ErrProbeFailed means the probing binary ran and failed.
	ErrProbeFailed = errors.New("probe failed")
)

// Metadata describes the primary video stream and container of a file.
// Nil fields could not be detected.
type Metadata struct {
	Width           *int `json:"width"`
	Height          *int `json:"height"`
	DurationSeconds *int `json:"durationSeconds"`
}

// HeightOrZero returns the detected height, or 0 when unknown.
func (m Metadata) HeightOrZero() int {
	if m.Height == nil {
		return 0
	}
	return *m.Height
}

type probeOutput struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Prober extracts Metadata with ffprobe.
type Prober struct {
	path   string
	runner Runner
}

// NewProber creates a prober for the given binary. A nil runner uses ExecRunner.
func NewProber(path string, runner Runner) *Prober {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Prober{path: path, runner: runner}
}

// Available reports ErrProbeUnavailable when the binary cannot be resolved.
func (p *Prober) Available() error {
	if _, err := lookBinary(p.path); err != nil {
		return fmt.Errorf("%w: %v", ErrProbeUnavailable, err)
	}
	return nil
}

// Probe reads width, height and duration of file in a single ffprobe call.
func (p *Prober) Probe(ctx context.Context, file string) (Metadata, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-show_entries", "format=duration",
		"-of", "json",
		file,
	}
	res, err := p.runner.Run(ctx, p.path, args, nil)
	if err != nil {
		var spawnErr *SpawnError
		if errors.As(err, &spawnErr) {
			return Metadata{}, fmt.Errorf("%w: %w", ErrProbeUnavailable, err)
		}
		return Metadata{}, fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	return ParseProbeOutput(res.Stdout)
}

// ParseProbeOutput decodes ffprobe JSON. Missing or invalid fields become nil.
func ParseProbeOutput(stdout string) (Metadata, error) {
	raw := strings.TrimSpace(stdout)
	if raw == "" {
		raw = "{}"
	}
	var out probeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Metadata{}, fmt.Errorf("%w: decode ffprobe output: %v", ErrProbeFailed, err)
	}

	var meta Metadata
	if len(out.Streams) > 0 {
		if w := out.Streams[0].Width; w > 0 {
			meta.Width = &w
		}
		if h := out.Streams[0].Height; h > 0 {
			meta.Height = &h
		}
	}
	if out.Format.Duration != "" {
		d, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err == nil && !math.IsInf(d, 0) && !math.IsNaN(d) && d >= 0 {
			secs := int(math.Floor(d))
			meta.DurationSeconds = &secs
		}
	}
	return meta, nil
}
