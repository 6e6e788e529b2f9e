package intent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"intentgate/internal/domain"
	"intentgate/internal/llm"
)

// DefaultTemperature keeps the model on its most likely structured answer.
const DefaultTemperature = 0.1

type RequesterConfig struct {
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Requester asks the generative model for a structured intent.
type Requester struct {
	provider    llm.Provider
	model       string
	temperature float64
	timeout     time.Duration
}

func NewRequester(cfg RequesterConfig, provider llm.Provider) *Requester {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Requester{
		provider:    provider,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
}

// Request returns the model's raw text. Any provider error is returned as-is
// and is fatal for the calling request.
func (r *Requester) Request(ctx context.Context, userText string, available domain.CapabilitySet) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.provider.Complete(reqCtx, domain.LLMRequest{
		Model:          r.model,
		Messages:       []domain.Message{{Role: "user", Content: BuildPrompt(userText, available)}},
		Temperature:    r.temperature,
		CandidateCount: 1,
	})
	if err != nil {
		return "", fmt.Errorf("model request: %w", err)
	}
	return resp.Content, nil
}

// BuildPrompt renders the grounding prompt. Output depends only on its inputs.
func BuildPrompt(userText string, available domain.CapabilitySet) string {
	servers := "None"
	if available.Len() > 0 {
		servers = strings.Join(available.Strings(), ", ")
	}

	actions := make([]string, 0, len(domain.KnownActions()))
	for _, a := range domain.KnownActions() {
		actions = append(actions, a.String())
	}
	params := make([]string, 0, len(domain.CanonicalParams()))
	for _, p := range domain.CanonicalParams() {
		params = append(params, string(p))
	}

	var sb strings.Builder
	sb.WriteString("You are a capability orchestrator.\n")
	sb.WriteString("Available servers: ")
	sb.WriteString(servers)
	sb.WriteString(".\n")
	sb.WriteString("User said: \"")
	sb.WriteString(userText)
	sb.WriteString("\".\n")
	sb.WriteString("Respond ONLY in JSON format like:\n")
	sb.WriteString("{\n  \"action\": \"<actionName>\",\n  \"parameters\": { ... }\n}\n")
	sb.WriteString("Where actionName is exactly one of: ")
	sb.WriteString(strings.Join(actions, ", "))
	sb.WriteString(".\n")
	sb.WriteString("Use these parameter names where they apply: ")
	sb.WriteString(strings.Join(params, ", "))
	sb.WriteString(".\n")
	sb.WriteString("If no action fits the request, answer in plain text without JSON.\n")
	return sb.String()
}
