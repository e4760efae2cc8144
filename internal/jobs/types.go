package jobs

import (
	"fmt"
	"time"

	"github.com/MimeLyc/chapter-translator/internal/progress"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	// StatusWaiting parks a job until its missing dependency shows up.
	StatusWaiting Status = "waiting"
)

// Active reports whether the job still owns its dedupe key.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusRunning || s == StatusWaiting
}

type EnqueueRequest struct {
	Source    string
	DedupeKey string
	Payload   ChapterPayload
}

// ChapterPayload identifies the chapter a job translates.
type ChapterPayload struct {
	ChapterID   int64  `json:"chapter_id"`
	NovelID     int64  `json:"novel_id"`
	PluginID    string `json:"plugin_id"`
	ChapterName string `json:"chapter_name"`
	NovelName   string `json:"novel_name"`
}

// DedupeKey is the chapter identity; at most one active job exists per key.
func (p ChapterPayload) DedupeKey() string {
	return fmt.Sprintf("%s|%d|%d", p.PluginID, p.NovelID, p.ChapterID)
}

type TranslationJob struct {
	ID        string                `json:"id"`
	Source    string                `json:"source"`
	DedupeKey string                `json:"dedupe_key"`
	Payload   ChapterPayload        `json:"payload"`
	Status    Status                `json:"status"`
	Error     string                `json:"error,omitempty"`
	Progress  progress.TaskProgress `json:"progress"`
	Attempts  int                   `json:"attempts"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}
