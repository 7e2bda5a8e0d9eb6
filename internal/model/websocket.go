package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
)

// WSProgressMessage is pushed while a task is running.
type WSProgressMessage struct {
	Type        string     `json:"type"`
	TaskID      string     `json:"taskId"`
	Progress    int        `json:"progress"`
	Total       int        `json:"total"`
	Status      TaskStatus `json:"status"`
	CurrentItem string     `json:"currentSticker,omitempty"`
}

// WSCompleteMessage is pushed when a task reaches completed.
type WSCompleteMessage struct {
	Type    string          `json:"type"`
	TaskID  string          `json:"taskId"`
	Summary GenerateSummary `json:"summary"`
}

// WSErrorMessage is pushed when a task fails as a whole.
type WSErrorMessage struct {
	Type   string `json:"type"`
	TaskID string `json:"taskId"`
	Error  string `json:"error"`
}
