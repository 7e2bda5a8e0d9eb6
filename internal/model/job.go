package model

import "time"

// Task status
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Terminal reports whether no further transitions may leave this status.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// ItemResult records the outcome of one (task, preset) generation attempt.
// Success is true exactly when ArtifactPath is set.
type ItemResult struct {
	Index        int        `json:"index"` // 1-based, in preset order
	Title        string     `json:"title"`
	Success      bool       `json:"success"`
	ArtifactPath *string    `json:"path"`
	Error        *string    `json:"error,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

// GenerationTask is one batch request to produce a sticker per preset from a
// fixed mother/anchor image pair. It is mutated only by the scheduler's
// worker loop while running; handlers read copies via Snapshot.
type GenerationTask struct {
	ID          string       `json:"id"`
	Status      TaskStatus   `json:"status"`
	Items       []Preset     `json:"-"`
	Total       int          `json:"total"`
	Progress    int          `json:"progress"`
	CurrentItem string       `json:"currentSticker,omitempty"`
	Results     []ItemResult `json:"results"`
	Error       *string      `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	StartedAt   *time.Time   `json:"startedAt,omitempty"`
	EndedAt     *time.Time   `json:"endedAt,omitempty"`
}

// NewGenerationTask creates a pending task over a fixed, ordered preset list.
func NewGenerationTask(id string, items []Preset) *GenerationTask {
	return &GenerationTask{
		ID:        id,
		Status:    TaskStatusPending,
		Items:     items,
		Total:     len(items),
		Results:   []ItemResult{},
		CreatedAt: time.Now(),
	}
}

// Start transitions pending → running and stamps StartedAt once.
func (t *GenerationTask) Start() {
	if t.Status != TaskStatusPending {
		return
	}
	t.Status = TaskStatusRunning
	now := time.Now()
	t.StartedAt = &now
}

// BeginItem marks which item the worker is about to attempt. It does not
// advance Progress; only a recorded result does.
func (t *GenerationTask) BeginItem(title string) {
	if t.Status != TaskStatusRunning {
		return
	}
	t.CurrentItem = title
}

// RecordResult appends one item outcome in order and advances Progress.
// Results are append-only; entries are never rewritten.
func (t *GenerationTask) RecordResult(res ItemResult) {
	if t.Status != TaskStatusRunning {
		return
	}
	t.Results = append(t.Results, res)
	t.Progress = len(t.Results)
}

// Complete transitions running → completed. A task completes once every item
// has been attempted, regardless of how many individual items failed.
func (t *GenerationTask) Complete() {
	if t.Status != TaskStatusRunning {
		return
	}
	t.Status = TaskStatusCompleted
	t.CurrentItem = ""
	now := time.Now()
	t.EndedAt = &now
}

// Fail marks the whole task failed. Reserved for faults outside per-item
// isolation, e.g. the remote session could not be established at all.
func (t *GenerationTask) Fail(msg string) {
	if t.Status.Terminal() {
		return
	}
	t.Status = TaskStatusFailed
	t.Error = &msg
	t.CurrentItem = ""
	now := time.Now()
	t.EndedAt = &now
}

// SuccessCount returns how many recorded items produced an artifact.
func (t *GenerationTask) SuccessCount() int {
	n := 0
	for _, r := range t.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// Snapshot returns a copy safe to serialize outside the scheduler's lock.
func (t *GenerationTask) Snapshot() GenerationTask {
	cp := *t
	cp.Results = make([]ItemResult, len(t.Results))
	copy(cp.Results, t.Results)
	return cp
}
