package orchestrator

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"intentgate/internal/credential"
	"intentgate/internal/domain"
	apperrors "intentgate/internal/errors"
	"intentgate/internal/intent"
	"intentgate/internal/metrics"
	"intentgate/internal/reply"
	"intentgate/internal/router"
)

type CapabilityProber interface {
	Probe(ctx context.Context) domain.CapabilitySet
}

type IntentRequester interface {
	Request(ctx context.Context, userText string, available domain.CapabilitySet) (string, error)
}

type Dispatcher interface {
	Route(in domain.ResolvedIntent, available domain.CapabilitySet, cred credential.Credential) (domain.RoutingDecision, error)
	Dispatch(ctx context.Context, d domain.RoutingDecision) (domain.BackendResponse, error)
}

// OutcomeRecorder observes finished requests. Failures are logged and never
// change the response.
type OutcomeRecorder interface {
	Record(ctx context.Context, outcome domain.Outcome) error
}

type Service struct {
	prober     CapabilityProber
	requester  IntentRequester
	dispatcher Dispatcher
	recorders  []OutcomeRecorder
	logger     *slog.Logger

	// publisher is optional; see RunCapabilityPublisher.
	publisher CapabilityPublisher
}

func New(prober CapabilityProber, requester IntentRequester, dispatcher Dispatcher, logger *slog.Logger, recorders ...OutcomeRecorder) *Service {
	s := &Service{
		prober:     prober,
		requester:  requester,
		dispatcher: dispatcher,
		logger:     logger,
	}
	for _, r := range recorders {
		if r == nil {
			continue
		}
		s.recorders = append(s.recorders, r)
		if p, ok := r.(CapabilityPublisher); ok && s.publisher == nil {
			s.publisher = p
		}
	}
	return s
}

// Capabilities probes the backends without touching the model.
func (s *Service) Capabilities(ctx context.Context) domain.CapabilitiesResponse {
	return domain.CapabilitiesResponse{Available: s.prober.Probe(ctx).IDs()}
}

// HandleAsk runs one natural-language request to completion. Exactly one of
// the response or the error is meaningful; unparseable model output and
// unknown actions degrade to the model's raw text.
func (s *Service) HandleAsk(ctx context.Context, req domain.AskRequest, cred credential.Credential) (domain.AskResponse, error) {
	started := time.Now()
	requestID := ensureRequestID(req.RequestID)
	outcome := domain.Outcome{RequestID: requestID, Query: req.Query}
	var probeDur, modelDur, dispatchDur time.Duration

	resp, err := func() (domain.AskResponse, error) {
		query := strings.TrimSpace(req.Query)
		if query == "" {
			return domain.AskResponse{}, apperrors.NewInvalidRequest("query is required")
		}
		if !cred.Present() {
			return domain.AskResponse{}, apperrors.NewMissingCredential()
		}

		probeStart := time.Now()
		available := s.prober.Probe(ctx)
		probeDur = time.Since(probeStart)
		outcome.Available = available.Strings()

		modelStart := time.Now()
		raw, err := s.requester.Request(ctx, query, available)
		modelDur = time.Since(modelStart)
		metrics.ModelLatency.Observe(modelDur.Seconds())
		if err != nil {
			s.logger.Error("model call failed", "request_id", requestID, "error", err)
			return domain.AskResponse{}, apperrors.NewModelCallFailed(err)
		}

		candidate, ok := intent.Extract(raw)
		if !ok {
			s.logger.Info("no structured intent, replying with raw text", "request_id", requestID)
			return rawReply(requestID, raw), nil
		}

		action := intent.NormalizeAction(candidate.ActionName)
		resolved := domain.ResolvedIntent{
			Action:     action,
			RawAction:  candidate.ActionName,
			Parameters: intent.NormalizeParameters(candidate.Parameters, action, query),
		}
		outcome.Action = action.String()
		if !action.IsKnown() {
			s.logger.Info("unknown action, replying with raw text", "request_id", requestID, "raw_action", candidate.ActionName)
			return rawReply(requestID, raw), nil
		}

		dispatchStart := time.Now()
		out, err := s.routeAndDispatch(ctx, requestID, resolved, available, cred, &outcome)
		dispatchDur = time.Since(dispatchStart)
		if stderrors.Is(err, router.ErrNoRoute) {
			return rawReply(requestID, raw), nil
		}
		return out, err
	}()

	s.finish(ctx, &outcome, started, resp, err)
	s.logger.Info("ask timing",
		"request_id", requestID,
		"action", outcome.Action,
		"backend", outcome.Backend,
		"result", outcome.Result,
		"credential", cred.Redacted(),
		"probe_ms", probeDur.Milliseconds(),
		"model_ms", modelDur.Milliseconds(),
		"dispatch_ms", dispatchDur.Milliseconds(),
		"total_ms", time.Since(started).Milliseconds(),
	)
	return resp, err
}

// HandleExecute dispatches a named tool directly. The model is never called,
// but the tool name and arguments go through the same normalization and
// capability gate as HandleAsk.
func (s *Service) HandleExecute(ctx context.Context, req domain.ExecuteRequest, cred credential.Credential) (domain.AskResponse, error) {
	started := time.Now()
	requestID := ensureRequestID(req.RequestID)
	outcome := domain.Outcome{RequestID: requestID, Query: req.Tool}

	resp, err := func() (domain.AskResponse, error) {
		if strings.TrimSpace(req.Tool) == "" {
			return domain.AskResponse{}, apperrors.NewInvalidRequest("tool is required")
		}
		if !cred.Present() {
			return domain.AskResponse{}, apperrors.NewMissingCredential()
		}

		action := intent.NormalizeAction(req.Tool)
		outcome.Action = action.String()
		if !action.IsKnown() {
			return domain.AskResponse{}, apperrors.NewInvalidRequest("unknown tool: " + req.Tool)
		}

		args := req.Args
		if args == nil {
			args = map[string]any{}
		}
		available := s.prober.Probe(ctx)
		outcome.Available = available.Strings()

		resolved := domain.ResolvedIntent{
			Action:     action,
			RawAction:  req.Tool,
			Parameters: intent.NormalizeParameters(args, action, ""),
		}
		return s.routeAndDispatch(ctx, requestID, resolved, available, cred, &outcome)
	}()

	s.finish(ctx, &outcome, started, resp, err)
	s.logger.Info("execute timing",
		"request_id", requestID,
		"tool", req.Tool,
		"result", outcome.Result,
		"credential", cred.Redacted(),
		"total_ms", time.Since(started).Milliseconds(),
	)
	return resp, err
}

func (s *Service) routeAndDispatch(ctx context.Context, requestID string, in domain.ResolvedIntent, available domain.CapabilitySet, cred credential.Credential, outcome *domain.Outcome) (domain.AskResponse, error) {
	decision, err := s.dispatcher.Route(in, available, cred)
	if err != nil {
		if owner, ok := router.Owner(in.Action); ok {
			outcome.Backend = owner.String()
		}
		return domain.AskResponse{}, err
	}
	outcome.Backend = decision.Backend.String()

	resp, err := s.dispatcher.Dispatch(ctx, decision)
	if err != nil {
		return domain.AskResponse{}, err
	}
	return domain.AskResponse{
		RequestID: requestID,
		Reply:     reply.Reduce(resp.Body),
		Action:    decision.Action.String(),
		Backend:   decision.Backend.String(),
	}, nil
}

func (s *Service) finish(ctx context.Context, outcome *domain.Outcome, started time.Time, resp domain.AskResponse, err error) {
	outcome.Duration = time.Since(started)
	outcome.OccurredAt = time.Now().UTC()
	switch {
	case err != nil:
		outcome.Result = domain.OutcomeFailed
		outcome.ErrorKind = string(apperrors.ErrInternal)
		if appErr, ok := apperrors.As(err); ok {
			outcome.ErrorKind = string(appErr.Code)
		}
	case resp.Fallback:
		outcome.Result = domain.OutcomeRawReply
	default:
		outcome.Result = domain.OutcomeDispatched
	}
	metrics.AskRequests.WithLabelValues(outcome.Result).Inc()

	// Recorders run even when the caller has gone away.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	for _, r := range s.recorders {
		if recErr := r.Record(recordCtx, *outcome); recErr != nil {
			s.logger.Warn("record outcome failed", "request_id", outcome.RequestID, "error", recErr)
		}
	}
}

func rawReply(requestID, raw string) domain.AskResponse {
	return domain.AskResponse{RequestID: requestID, Reply: raw, Fallback: true}
}

func ensureRequestID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return uuid.NewString()
	}
	return id
}
