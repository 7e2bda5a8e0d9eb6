package model

import "time"

// GenerateStartRequest starts a batch generation task. Paths are the stored
// paths returned by the upload endpoint. An empty preset selection means the
// whole library.
type GenerateStartRequest struct {
	MotherImagePath string `json:"motherImagePath" validate:"required"`
	AnchorImagePath string `json:"anchorImagePath" validate:"required"`
	SelectedPresets []int  `json:"selectedPresets" validate:"omitempty,dive,min=0"`
	CustomPrompt    string `json:"customPrompt" validate:"omitempty,max=10000"`
}

// GenerateStartResponse acknowledges an enqueued task.
type GenerateStartResponse struct {
	TaskID    string     `json:"taskId"`
	Status    TaskStatus `json:"status"`
	Total     int        `json:"total"`
	CreatedAt time.Time  `json:"createdAt"`
}

// GenerateStatusResponse is a point-in-time snapshot of a task.
type GenerateStatusResponse struct {
	TaskID      string       `json:"taskId"`
	Status      TaskStatus   `json:"status"`
	Progress    int          `json:"progress"`
	Total       int          `json:"total"`
	CurrentItem string       `json:"currentSticker,omitempty"`
	Results     []ItemResult `json:"results"`
	Error       *string      `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	StartedAt   *time.Time   `json:"startedAt,omitempty"`
	EndedAt     *time.Time   `json:"endedAt,omitempty"`
}

// GenerateSummary aggregates a finished task.
type GenerateSummary struct {
	Total     int        `json:"total"`
	Success   int        `json:"success"`
	Failed    int        `json:"failed"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

// GenerateResultsResponse is returned once a task has completed.
type GenerateResultsResponse struct {
	TaskID  string          `json:"taskId"`
	Results []ItemResult    `json:"results"`
	Summary GenerateSummary `json:"summary"`
}

// GenerationReport is the report.json written into each task's output
// directory alongside the artifacts.
type GenerationReport struct {
	TaskID      string          `json:"taskId"`
	Summary     GenerateSummary `json:"summary"`
	Results     []ItemResult    `json:"results"`
	GeneratedAt time.Time       `json:"generatedAt"`
}
