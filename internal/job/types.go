package job

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Type is the kind of work a job carries.
type Type string

const (
	TypeBurn Type = "burn"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ErrCancelled marks a handler return that means "stopped on request".
// The queue records the job as cancelled, not failed.
var ErrCancelled = errors.New("job cancelled")

// Job is a queued burn task.
type Job struct {
	ID          string          `json:"id"`
	Type        Type            `json:"type"`
	Status      Status          `json:"status"`
	FilePath    string          `json:"file_path"`
	Params      json.RawMessage `json:"params"`
	Progress    float64         `json:"progress"` // 0-100
	Stage       string          `json:"stage,omitempty"`
	Message     string          `json:"message,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// BurnParams configure a subtitle burn job.
type BurnParams struct {
	SubtitlePath   string `json:"subtitle_path"`
	Quality        string `json:"quality"`          // fast|balanced|high
	Threads        int    `json:"threads"`          // 0 = auto
	MemoryBudgetMB int    `json:"memory_budget_mb"` // advisory
	FontSize       int    `json:"font_size,omitempty"`
	MarginBottom   int    `json:"margin_bottom,omitempty"`
}

// BurnResult is the output record of a completed burn.
type BurnResult struct {
	OutputPath string  `json:"output_path"`
	Entries    int     `json:"entries"`  // overlays burned in
	Filtered   int     `json:"filtered"` // entries dropped by the duration filter
	Seconds    float64 `json:"seconds"`  // wall-clock processing time
}

// Progress is a handler's progress report back into the queue.
type Progress struct {
	Percent float64
	Stage   string
	Message string
}

// Handler processes one job. A ErrCancelled (or context.Canceled) return
// marks the job cancelled; any other error marks it failed. The returned
// result, if non-nil, is persisted as JSON.
type Handler func(ctx context.Context, j *Job, report func(Progress)) (any, error)
