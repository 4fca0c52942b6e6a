package model

// WebSocket message types
const (
	WSMessageTypeStatus   = "status"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSStatusMessage represents a job state transition
type WSStatusMessage struct {
	Type     string    `json:"type"`
	RenderID string    `json:"renderId"`
	Status   JobStatus `json:"status"`
}

// WSCompleteMessage represents job completion
type WSCompleteMessage struct {
	Type     string     `json:"type"`
	RenderID string     `json:"renderId"`
	Result   *RenderJob `json:"result"`
}

// WSErrorMessage represents a failed job
type WSErrorMessage struct {
	Type     string  `json:"type"`
	RenderID string  `json:"renderId"`
	Error    WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
