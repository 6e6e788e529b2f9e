package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"intentgate/internal/config"
	"intentgate/internal/domain"
	apperrors "intentgate/internal/errors"
	"intentgate/internal/intent"
	"intentgate/internal/router"
)

type fakeProber struct {
	set   domain.CapabilitySet
	calls int
}

func (f *fakeProber) Probe(context.Context) domain.CapabilitySet {
	f.calls++
	return f.set
}

type fakeRequester struct {
	raw   string
	err   error
	calls int
	query string
}

func (f *fakeRequester) Request(_ context.Context, userText string, _ domain.CapabilitySet) (string, error) {
	f.calls++
	f.query = userText
	return f.raw, f.err
}

type memoryRecorder struct {
	mu       sync.Mutex
	outcomes []domain.Outcome
	err      error
}

func (m *memoryRecorder) Record(_ context.Context, o domain.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, o)
	return m.err
}

type backendCall struct {
	path    string
	payload map[string]any
}

// fakeBackend serves both backends from one server and records every call.
type fakeBackend struct {
	mu    sync.Mutex
	calls []backendCall
	srv   *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	fb.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		fb.mu.Lock()
		fb.calls = append(fb.calls, backendCall{path: r.URL.Path, payload: payload})
		fb.mu.Unlock()

		switch r.URL.Path {
		case "/listRepos":
			_, _ = io.WriteString(w, `{"role":"assistant","content":[{"type":"text","text":"Here are your repositories (1 total):\n\n1. demo"}],"success":true}`)
		case "/createRepo":
			_, _ = io.WriteString(w, `{"success":true,"message":"Repository 'myrepo' created successfully!"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"not found"}`)
		}
	}))
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBackend) Calls() []backendCall {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]backendCall{}, fb.calls...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	svc       *Service
	prober    *fakeProber
	requester *fakeRequester
	backend   *fakeBackend
	recorder  *memoryRecorder
}

func newHarness(t *testing.T, raw string, available ...domain.CapabilityID) *harness {
	t.Helper()
	fb := newFakeBackend(t)
	h := &harness{
		prober:    &fakeProber{set: domain.NewCapabilitySet(available...)},
		requester: &fakeRequester{raw: raw},
		backend:   fb,
		recorder:  &memoryRecorder{},
	}
	rt := router.New(router.Config{
		Backends:        config.DefaultBackends(fb.srv.URL, fb.srv.URL),
		DispatchTimeout: 2 * time.Second,
	}, testLogger())
	h.svc = New(h.prober, h.requester, rt, testLogger(), h.recorder)
	return h
}

func TestAskListsRepos(t *testing.T) {
	h := newHarness(t, `{"action":"git.list_repos","parameters":{}}`, domain.SourceControl)

	resp, err := h.svc.HandleAsk(context.Background(), domain.AskRequest{Query: "list my repos"}, "tok")
	require.NoError(t, err)
	require.Equal(t, "Here are your repositories (1 total):\n\n1. demo", resp.Reply)
	require.Equal(t, "listRepos", resp.Action)
	require.Equal(t, "source-control", resp.Backend)
	require.False(t, resp.Fallback)
	require.NotEmpty(t, resp.RequestID)

	calls := h.backend.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "/listRepos", calls[0].path)
	require.Equal(t, "tok", calls[0].payload["token"])

	require.Len(t, h.recorder.outcomes, 1)
	require.Equal(t, domain.OutcomeDispatched, h.recorder.outcomes[0].Result)
	require.Equal(t, []string{"source-control"}, h.recorder.outcomes[0].Available)
}

func TestAskSingleTokenBecomesRepoName(t *testing.T) {
	h := newHarness(t, `{"action":"create_repo","parameters":{}}`, domain.SourceControl)

	resp, err := h.svc.HandleAsk(context.Background(), domain.AskRequest{Query: "myrepo"}, "tok")
	require.NoError(t, err)
	require.Equal(t, "Repository 'myrepo' created successfully!", resp.Reply)

	calls := h.backend.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "/createRepo", calls[0].path)
	require.Equal(t, "myrepo", calls[0].payload["name"])
	require.Equal(t, false, calls[0].payload["privateRepo"])
	require.Equal(t, "tok", calls[0].payload["token"])
}

func TestAskContainerBackendDown(t *testing.T) {
	h := newHarness(t, `{"action":"docker_run","parameters":{"image":"nginx"}}`, domain.SourceControl)

	_, err := h.svc.HandleAsk(context.Background(), domain.AskRequest{Query: "run container"}, "tok")
	require.True(t, apperrors.Is(err, apperrors.ErrCapabilityUnavailable))
	appErr, _ := apperrors.As(err)
	require.Equal(t, "container-runtime", appErr.Details["backend"])
	require.Empty(t, h.backend.Calls())

	require.Len(t, h.recorder.outcomes, 1)
	require.Equal(t, domain.OutcomeFailed, h.recorder.outcomes[0].Result)
	require.Equal(t, "CAPABILITY_UNAVAILABLE", h.recorder.outcomes[0].ErrorKind)
	require.Equal(t, "container-runtime", h.recorder.outcomes[0].Backend)
}

func TestAskProseRepliesVerbatim(t *testing.T) {
	prose := "I can help you manage repositories and containers. What would you like to do?"
	h := newHarness(t, prose, domain.SourceControl, domain.ContainerRuntime)

	resp, err := h.svc.HandleAsk(context.Background(), domain.AskRequest{Query: "hello there"}, "tok")
	require.NoError(t, err)
	require.Equal(t, prose, resp.Reply)
	require.True(t, resp.Fallback)
	require.Empty(t, h.backend.Calls())
	require.Equal(t, domain.OutcomeRawReply, h.recorder.outcomes[0].Result)
}

func TestAskUnknownActionRepliesVerbatim(t *testing.T) {
	raw := `{"action":"deleteEverything","parameters":{}}`
	h := newHarness(t, raw, domain.SourceControl)

	resp, err := h.svc.HandleAsk(context.Background(), domain.AskRequest{Query: "wipe it"}, "tok")
	require.NoError(t, err)
	require.Equal(t, raw, resp.Reply)
	require.True(t, resp.Fallback)
	require.Empty(t, h.backend.Calls())
}

func TestAskWithoutCredentialMakesNoCalls(t *testing.T) {
	h := newHarness(t, `{"action":"listRepos"}`, domain.SourceControl)

	_, err := h.svc.HandleAsk(context.Background(), domain.AskRequest{Query: "list my repos"}, "")
	require.True(t, apperrors.Is(err, apperrors.ErrMissingCredential))
	require.Zero(t, h.requester.calls)
	require.Zero(t, h.prober.calls)
	require.Empty(t, h.backend.Calls())
	require.Equal(t, "MISSING_CREDENTIAL", h.recorder.outcomes[0].ErrorKind)
}

func TestAskModelFailure(t *testing.T) {
	h := newHarness(t, "", domain.SourceControl)
	h.requester.err = errors.New("deadline exceeded")

	_, err := h.svc.HandleAsk(context.Background(), domain.AskRequest{Query: "list my repos"}, "tok")
	require.True(t, apperrors.Is(err, apperrors.ErrModelCallFailed))
	appErr, _ := apperrors.As(err)
	require.Equal(t, "orchestrator failed", appErr.Message)
	require.Empty(t, h.backend.Calls())
}

type stalledModel struct{}

func (stalledModel) Complete(ctx context.Context, _ domain.LLMRequest) (domain.LLMResponse, error) {
	<-ctx.Done()
	return domain.LLMResponse{}, ctx.Err()
}

func TestAskModelTimeout(t *testing.T) {
	h := newHarness(t, "", domain.SourceControl)
	requester := intent.NewRequester(intent.RequesterConfig{Model: "m", Timeout: 50 * time.Millisecond}, stalledModel{})
	rt := router.New(router.Config{Backends: config.DefaultBackends(h.backend.srv.URL, h.backend.srv.URL)}, testLogger())
	svc := New(h.prober, requester, rt, testLogger(), h.recorder)

	started := time.Now()
	_, err := svc.HandleAsk(context.Background(), domain.AskRequest{Query: "list my repos"}, "tok")
	require.True(t, apperrors.Is(err, apperrors.ErrModelCallFailed))
	require.Less(t, time.Since(started), 2*time.Second)
	require.Empty(t, h.backend.Calls())
	require.Equal(t, "MODEL_CALL_FAILED", h.recorder.outcomes[0].ErrorKind)
}

func TestLogsRedactCredential(t *testing.T) {
	h := newHarness(t, `{"action":"listRepos"}`, domain.SourceControl)
	var buf bytes.Buffer
	rt := router.New(router.Config{Backends: config.DefaultBackends(h.backend.srv.URL, h.backend.srv.URL)}, testLogger())
	svc := New(h.prober, h.requester, rt, slog.New(slog.NewTextHandler(&buf, nil)))

	_, err := svc.HandleAsk(context.Background(), domain.AskRequest{Query: "list my repos"}, "ghp_supersecret")
	require.NoError(t, err)
	_, err = svc.HandleExecute(context.Background(), domain.ExecuteRequest{Tool: "listRepos"}, "ghp_supersecret")
	require.NoError(t, err)

	require.Contains(t, buf.String(), "credential=ghp_****")
	require.NotContains(t, buf.String(), "supersecret")
}

func TestAskEmptyQuery(t *testing.T) {
	h := newHarness(t, "", domain.SourceControl)
	_, err := h.svc.HandleAsk(context.Background(), domain.AskRequest{Query: "  "}, "tok")
	require.True(t, apperrors.Is(err, apperrors.ErrInvalidRequest))
	require.Zero(t, h.requester.calls)
}

func TestAskMissingParameter(t *testing.T) {
	h := newHarness(t, `{"action":"createRepo","parameters":{}}`, domain.SourceControl)

	_, err := h.svc.HandleAsk(context.Background(), domain.AskRequest{Query: "create a repo"}, "tok")
	require.True(t, apperrors.Is(err, apperrors.ErrMissingParameter))
	require.Empty(t, h.backend.Calls())
}

func TestAskKeepsRequestID(t *testing.T) {
	h := newHarness(t, "plain", domain.SourceControl)
	resp, err := h.svc.HandleAsk(context.Background(), domain.AskRequest{RequestID: "req-1", Query: "hi"}, "tok")
	require.NoError(t, err)
	require.Equal(t, "req-1", resp.RequestID)
	require.Equal(t, "req-1", h.recorder.outcomes[0].RequestID)
}

func TestRecorderFailureDoesNotChangeResponse(t *testing.T) {
	h := newHarness(t, "plain", domain.SourceControl)
	h.recorder.err = errors.New("db down")

	resp, err := h.svc.HandleAsk(context.Background(), domain.AskRequest{Query: "hi"}, "tok")
	require.NoError(t, err)
	require.Equal(t, "plain", resp.Reply)
}

func TestExecuteSkipsModel(t *testing.T) {
	h := newHarness(t, "", domain.SourceControl)

	resp, err := h.svc.HandleExecute(context.Background(), domain.ExecuteRequest{
		Tool: "createRepo",
		Args: map[string]any{"repoName": "myrepo", "private": true},
	}, "tok")
	require.NoError(t, err)
	require.Equal(t, "Repository 'myrepo' created successfully!", resp.Reply)
	require.Zero(t, h.requester.calls)

	calls := h.backend.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "myrepo", calls[0].payload["name"])
	require.Equal(t, true, calls[0].payload["privateRepo"])
}

func TestExecuteRejects(t *testing.T) {
	h := newHarness(t, "", domain.SourceControl)

	_, err := h.svc.HandleExecute(context.Background(), domain.ExecuteRequest{Tool: "listRepos"}, "")
	require.True(t, apperrors.Is(err, apperrors.ErrMissingCredential))

	_, err = h.svc.HandleExecute(context.Background(), domain.ExecuteRequest{Tool: "format_disk"}, "tok")
	require.True(t, apperrors.Is(err, apperrors.ErrInvalidRequest))

	_, err = h.svc.HandleExecute(context.Background(), domain.ExecuteRequest{Tool: ""}, "tok")
	require.True(t, apperrors.Is(err, apperrors.ErrInvalidRequest))

	_, err = h.svc.HandleExecute(context.Background(), domain.ExecuteRequest{Tool: "dockerBuild"}, "tok")
	require.True(t, apperrors.Is(err, apperrors.ErrCapabilityUnavailable))
	require.Empty(t, h.backend.Calls())
}

func TestCapabilities(t *testing.T) {
	h := newHarness(t, "", domain.SourceControl, domain.ContainerRuntime)
	got := h.svc.Capabilities(context.Background())
	require.Equal(t, []domain.CapabilityID{domain.ContainerRuntime, domain.SourceControl}, got.Available)
	require.Zero(t, h.requester.calls)
}
