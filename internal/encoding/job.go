// Package encoding runs the asynchronous transcode-and-publish pipeline and
// tracks each run as a Job.
package encoding

import (
	"errors"
	"time"
)

// Status is a Job's lifecycle state.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusEncoding   Status = "encoding"
	StatusUploading  Status = "uploading"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Status messages shown to the admin console.
const (
	MessageQueued      = "대기중"
	MessageDownloading = "다운로드 중"
	MessageEncoding    = "인코딩 중"
	MessageUploading   = "업로드 중"
	MessageDone        = "완료"
	MessageFailed      = "Encoding failed"
)

// Progress milestones set on stage entry.
const (
	ProgressDownloading = 5
	ProgressEncoding    = 30
	ProgressUploading   = 90
	ProgressDone        = 100
)

var (
	// ErrJobNotFound means the id was never created or has been purged.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobExists is returned by Create for a duplicate id.
	ErrJobExists = errors.New("job already exists")
)

var statusRank = map[Status]int{
	StatusQueued:     0,
	StatusProcessing: 1,
	StatusEncoding:   2,
	StatusUploading:  3,
	StatusDone:       4,
}

// Terminal reports whether s is final.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Job is one transcode-and-publish run.
type Job struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	VideoID   string    `json:"videoId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newJob(id string, now time.Time) Job {
	return Job{
		ID:        id,
		Status:    StatusQueued,
		Progress:  0,
		Message:   MessageQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Patch is a partial update. Zero fields are left unchanged.
type Patch struct {
	Status   Status
	Progress *int
	Message  *string
	VideoID  string
}

// StagePatch moves a job into status at a progress floor with message.
func StagePatch(status Status, progress int, message string) Patch {
	return Patch{Status: status, Progress: &progress, Message: &message}
}

// apply merges p into j and reports whether j changed.
// Terminal jobs are frozen, statuses never move backwards (error is reachable
// from any non-terminal state), and progress never decreases.
func apply(j *Job, p Patch, now time.Time) bool {
	if j.Status.Terminal() {
		return false
	}
	if p.Status != "" && p.Status != j.Status {
		if p.Status != StatusError {
			next, ok := statusRank[p.Status]
			if !ok || next < statusRank[j.Status] {
				return false
			}
		}
		j.Status = p.Status
	}
	if p.Progress != nil && *p.Progress > j.Progress {
		j.Progress = *p.Progress
	}
	switch {
	case j.Status == StatusDone:
		j.Progress = ProgressDone
	case !j.Status.Terminal() && j.Progress >= ProgressDone:
		j.Progress = ProgressDone - 1
	}
	if p.Message != nil {
		j.Message = *p.Message
	}
	if p.VideoID != "" {
		j.VideoID = p.VideoID
	}
	j.UpdatedAt = now
	return true
}
