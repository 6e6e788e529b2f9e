package router

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"intentgate/internal/config"
	"intentgate/internal/credential"
	"intentgate/internal/domain"
	apperrors "intentgate/internal/errors"
	"intentgate/internal/intent"
	"intentgate/internal/metrics"
	"intentgate/internal/reply"
)

// ErrNoRoute means the intent has no owning backend; callers answer with
// the model's raw text instead.
var ErrNoRoute = stderrors.New("no route for action")

// owners is the static action to backend table. It is never written after init.
var owners = map[domain.ActionKind]domain.CapabilityID{
	domain.ActionListRepos:   domain.SourceControl,
	domain.ActionCreateRepo:  domain.SourceControl,
	domain.ActionCloneRepo:   domain.SourceControl,
	domain.ActionDockerRun:   domain.ContainerRuntime,
	domain.ActionDockerBuild: domain.ContainerRuntime,
}

// Owner returns the backend that serves the action.
func Owner(action domain.ActionKind) (domain.CapabilityID, bool) {
	id, ok := owners[action]
	return id, ok
}

type Config struct {
	Backends        []config.BackendConfig
	CloneDefaultDir string
	DispatchTimeout time.Duration
}

// Router turns resolved intents into backend calls. It is safe for
// concurrent use; nothing is mutated after New.
type Router struct {
	backends   map[domain.CapabilityID]config.BackendConfig
	cloneDir   string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Router {
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = 60 * time.Second
	}
	if cfg.CloneDefaultDir == "" {
		cfg.CloneDefaultDir = "./repos"
	}
	backends := make(map[domain.CapabilityID]config.BackendConfig, len(cfg.Backends))
	for _, b := range cfg.Backends {
		backends[domain.CapabilityID(b.ID)] = b
	}
	return &Router{
		backends:   backends,
		cloneDir:   cfg.CloneDefaultDir,
		timeout:    cfg.DispatchTimeout,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Route builds the request for one intent. The decision's backend is always
// a member of available.
func (r *Router) Route(in domain.ResolvedIntent, available domain.CapabilitySet, cred credential.Credential) (domain.RoutingDecision, error) {
	owner, ok := Owner(in.Action)
	if !ok {
		return domain.RoutingDecision{}, ErrNoRoute
	}
	if !available.Has(owner) {
		return domain.RoutingDecision{}, apperrors.NewCapabilityUnavailable(owner.String())
	}
	if missing := intent.MissingParameters(in.Action, in.Parameters); len(missing) > 0 {
		return domain.RoutingDecision{}, apperrors.NewMissingParameter(in.Action.String(), missing)
	}
	if owner == domain.SourceControl && !cred.Present() {
		return domain.RoutingDecision{}, apperrors.NewMissingCredential()
	}

	backend, ok := r.backends[owner]
	if !ok {
		return domain.RoutingDecision{}, apperrors.NewInternal(fmt.Errorf("backend %s is not configured", owner))
	}
	endpoint, ok := backend.EndpointURL(in.Action.String())
	if !ok {
		return domain.RoutingDecision{}, apperrors.NewInternal(fmt.Errorf("backend %s has no endpoint for %s", owner, in.Action))
	}

	return domain.RoutingDecision{
		Backend:  owner,
		Action:   in.Action,
		Endpoint: endpoint,
		Payload:  r.payload(in, cred),
	}, nil
}

func (r *Router) payload(in domain.ResolvedIntent, cred credential.Credential) map[string]any {
	p := in.Parameters
	switch in.Action {
	case domain.ActionListRepos:
		return map[string]any{"token": cred.String()}
	case domain.ActionCreateRepo:
		return map[string]any{
			"token":       cred.String(),
			"name":        p[domain.ParamName],
			"description": valueOr(p[domain.ParamDescription], ""),
			"privateRepo": valueOr(p[domain.ParamIsPrivate], false),
		}
	case domain.ActionCloneRepo:
		return map[string]any{
			"token":     cred.String(),
			"repoUrl":   p[domain.ParamRepoURL],
			"directory": valueOr(p[domain.ParamDirectory], r.cloneDir),
		}
	default:
		out := make(map[string]any, len(p)+1)
		for k, v := range p {
			out[string(k)] = v
		}
		// Container backends never see the source-control token.
		delete(out, "token")
		out["command"] = in.Action.String()
		return out
	}
}

// Dispatch performs exactly one POST. Transport errors and error payloads
// both come back as BACKEND_CALL_FAILED; nothing is retried.
func (r *Router) Dispatch(ctx context.Context, d domain.RoutingDecision) (domain.BackendResponse, error) {
	started := time.Now()
	defer func() {
		metrics.DispatchDuration.WithLabelValues(d.Backend.String(), d.Action.String()).Observe(time.Since(started).Seconds())
	}()

	body, err := json.Marshal(d.Payload)
	if err != nil {
		return domain.BackendResponse{}, apperrors.NewInternal(err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, d.Endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.BackendResponse{}, apperrors.NewInternal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Error("backend call failed", "backend", d.Backend, "action", d.Action, "error", err)
		return domain.BackendResponse{}, apperrors.NewBackendCallFailed(d.Backend.String(), "", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.BackendResponse{}, apperrors.NewBackendCallFailed(d.Backend.String(), "", err)
	}

	if msg, failed := reply.Failure(resp.StatusCode, respBody); failed {
		r.logger.Warn("backend returned error", "backend", d.Backend, "action", d.Action, "status", resp.StatusCode, "message", msg)
		return domain.BackendResponse{}, apperrors.NewBackendCallFailed(d.Backend.String(), msg, nil)
	}

	r.logger.Info("backend call done", "backend", d.Backend, "action", d.Action, "status", resp.StatusCode, "duration_ms", time.Since(started).Milliseconds())
	return domain.BackendResponse{
		Backend:    d.Backend,
		StatusCode: resp.StatusCode,
		Body:       respBody,
	}, nil
}

func valueOr(v any, fallback any) any {
	if v == nil {
		return fallback
	}
	return v
}
