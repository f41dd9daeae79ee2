package types

import "time"

// JobStatus represents the current status of a download job
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// IsFinished returns true if the job will not change status again
func (s JobStatus) IsFinished() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// DownloadJob represents a wallpaper download in the queue
type DownloadJob struct {
	ID          string     `json:"id"`
	Status      JobStatus  `json:"status"`
	Name        string     `json:"name"`
	IsLivePhoto bool       `json:"isLivePhoto"`
	Progress    int        `json:"progress"` // files fetched
	Total       int        `json:"total"`    // files to fetch
	Bytes       int64      `json:"bytes"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
