package media

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgs(t *testing.T) {
	args := Args(TranscodeRequest{Input: "/w/in.mov", Output: "/w/out.mp4", TargetHeight: 720})
	assert.Equal(t, []string{
		"-y",
		"-i", "/w/in.mov",
		"-vf", "scale=-2:720",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-crf", "28",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		"-nostats",
		"/w/out.mp4",
	}, args)
}

func TestTranscode_ForwardsProgress(t *testing.T) {
	runner := &fakeRunner{chunks: []string{"out_time_ms=10000", "000\n", "out_time_ms=30000000\nprogress=end\n"}}
	tr := NewTranscoder("/usr/bin/ffmpeg", runner)

	var got []int
	err := tr.Transcode(context.Background(), TranscodeRequest{
		Input:           "in",
		Output:          "out",
		TargetHeight:    480,
		DurationSeconds: intPtr(60),
		OnProgress:      func(p int) { got = append(got, p) },
	})
	require.NoError(t, err)
	assert.Equal(t, []int{17, 50}, got)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "/usr/bin/ffmpeg", runner.calls[0].name)
}

func TestTranscode_Failures(t *testing.T) {
	tr := NewTranscoder("ffmpeg", &fakeRunner{err: &ProcessError{Command: "ffmpeg", ExitCode: 1, Stderr: "Invalid data found when processing input"}})
	err := tr.Transcode(context.Background(), TranscodeRequest{Input: "in", Output: "out", TargetHeight: 720})
	assert.ErrorIs(t, err, ErrEncodeFailed)
	var procErr *ProcessError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "Invalid data found when processing input", procErr.Stderr)

	tr = NewTranscoder("ffmpeg", &fakeRunner{err: &SpawnError{Command: "ffmpeg", Err: errors.New("no such file")}})
	err = tr.Transcode(context.Background(), TranscodeRequest{Input: "in", Output: "out", TargetHeight: 720})
	assert.ErrorIs(t, err, ErrEncodeUnavailable)

	err = NewTranscoder("ffmpeg", &fakeRunner{}).Transcode(context.Background(), TranscodeRequest{TargetHeight: 0})
	assert.ErrorIs(t, err, ErrEncodeFailed)
}

func TestTranscoder_Available(t *testing.T) {
	assert.ErrorIs(t, NewTranscoder("/nonexistent/ffmpeg", nil).Available(), ErrEncodeUnavailable)
}

func TestTargetHeight(t *testing.T) {
	assert.Equal(t, 720, TargetHeight(1080))
	assert.Equal(t, 720, TargetHeight(720))
	assert.Equal(t, 480, TargetHeight(719))
	assert.Equal(t, 480, TargetHeight(360))
	assert.Equal(t, 480, TargetHeight(0))
}
