package encoding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func progress(v int) *int { return &v }

func TestApply_StageOrder(t *testing.T) {
	now := time.Now()
	j := newJob("a", now)
	assert.Equal(t, StatusQueued, j.Status)
	assert.Equal(t, MessageQueued, j.Message)

	assert.True(t, apply(&j, StagePatch(StatusProcessing, ProgressDownloading, MessageDownloading), now))
	assert.True(t, apply(&j, StagePatch(StatusEncoding, ProgressEncoding, MessageEncoding), now))
	assert.Equal(t, StatusEncoding, j.Status)
	assert.Equal(t, 30, j.Progress)

	// A late processing write must not move the job backwards.
	assert.False(t, apply(&j, StagePatch(StatusProcessing, 5, MessageDownloading), now))
	assert.Equal(t, StatusEncoding, j.Status)
	assert.Equal(t, MessageEncoding, j.Message)
}

func TestApply_ProgressIsAFloor(t *testing.T) {
	now := time.Now()
	j := newJob("a", now)
	apply(&j, StagePatch(StatusEncoding, 95, MessageEncoding), now)
	apply(&j, StagePatch(StatusUploading, ProgressUploading, MessageUploading), now)
	assert.Equal(t, StatusUploading, j.Status)
	assert.Equal(t, 95, j.Progress)

	apply(&j, Patch{Progress: progress(40)}, now)
	assert.Equal(t, 95, j.Progress)
}

func TestApply_BelowHundredUntilDone(t *testing.T) {
	now := time.Now()
	j := newJob("a", now)
	apply(&j, StagePatch(StatusEncoding, 100, MessageEncoding), now)
	assert.Equal(t, 99, j.Progress)

	done := StagePatch(StatusDone, ProgressDone, MessageDone)
	done.VideoID = "v1"
	apply(&j, done, now)
	assert.Equal(t, 100, j.Progress)
	assert.Equal(t, "v1", j.VideoID)
}

func TestApply_TerminalIsFinal(t *testing.T) {
	now := time.Now()
	j := newJob("a", now)
	msg := "boom"
	assert.True(t, apply(&j, Patch{Status: StatusError, Message: &msg}, now))
	assert.Equal(t, StatusError, j.Status)
	assert.Equal(t, 0, j.Progress)

	assert.False(t, apply(&j, StagePatch(StatusDone, ProgressDone, MessageDone), now))
	assert.Equal(t, StatusError, j.Status)
	assert.Equal(t, "boom", j.Message)
}

func TestApply_RefreshesUpdatedAt(t *testing.T) {
	created := time.Unix(100, 0)
	j := newJob("a", created)
	later := created.Add(time.Minute)
	apply(&j, StagePatch(StatusProcessing, 5, MessageDownloading), later)
	assert.Equal(t, created, j.CreatedAt)
	assert.Equal(t, later, j.UpdatedAt)
}
