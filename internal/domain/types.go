package domain

import "time"

type AskRequest struct {
	RequestID string `json:"request_id,omitempty"`
	Query     string `json:"query"`
	Token     string `json:"token,omitempty"`
}

type AskResponse struct {
	RequestID string `json:"request_id"`
	Reply     string `json:"reply"`
	Action    string `json:"action,omitempty"`
	Backend   string `json:"backend,omitempty"`
	// Fallback is set when the reply is the model's raw text rather than a backend result.
	Fallback bool `json:"fallback,omitempty"`
}

// ExecuteRequest names a tool directly and skips the model call.
type ExecuteRequest struct {
	RequestID string         `json:"request_id,omitempty"`
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"args,omitempty"`
	Token     string         `json:"token,omitempty"`
}

type ErrorResponse struct {
	RequestID string         `json:"request_id,omitempty"`
	Error     string         `json:"error"`
	ErrorKind string         `json:"error_kind"`
	Details   map[string]any `json:"details,omitempty"`
}

type CapabilitiesResponse struct {
	Available []CapabilityID `json:"available"`
}

type Message struct {
	Role    string
	Content string
}

type LLMRequest struct {
	Model          string
	System         string
	Messages       []Message
	Temperature    float64
	CandidateCount int
	MaxTokens      int
}

type LLMResponse struct {
	Content string
}

// Outcome is the write-only record of one handled request.
type Outcome struct {
	RequestID  string        `json:"request_id"`
	Query      string        `json:"query"`
	Action     string        `json:"action,omitempty"`
	Backend    string        `json:"backend,omitempty"`
	Result     string        `json:"result"`
	ErrorKind  string        `json:"error_kind,omitempty"`
	Available  []string      `json:"available"`
	Duration   time.Duration `json:"duration_ns"`
	OccurredAt time.Time     `json:"occurred_at"`
}

const (
	OutcomeDispatched = "dispatched"
	OutcomeRawReply   = "raw_reply"
	OutcomeFailed     = "failed"
)

// CapabilitySnapshot is a point-in-time probe result published for observers.
type CapabilitySnapshot struct {
	Available []string  `json:"available"`
	ProbedAt  time.Time `json:"probed_at"`
}
