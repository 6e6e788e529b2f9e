package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"intentgate/internal/credential"
	"intentgate/internal/domain"
	apperrors "intentgate/internal/errors"
)

const maxBodyBytes = 1 << 20

type Service interface {
	HandleAsk(ctx context.Context, req domain.AskRequest, cred credential.Credential) (domain.AskResponse, error)
	HandleExecute(ctx context.Context, req domain.ExecuteRequest, cred credential.Credential) (domain.AskResponse, error)
	Capabilities(ctx context.Context) domain.CapabilitiesResponse
}

type Config struct {
	AllowedOrigin string
}

func NewRouter(cfg Config, svc Service, logger *slog.Logger) http.Handler {
	h := &handlers{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	// An empty origin leaves CORS off.
	if origin := strings.TrimRight(strings.TrimSpace(cfg.AllowedOrigin), "/"); origin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:       []string{origin},
			AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders:       []string{"Content-Type", "Authorization"},
			AllowCredentials:     true,
			OptionsSuccessStatus: http.StatusNoContent,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/test", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Server is running"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/v1/capabilities", h.capabilities)
	r.Post("/ask", h.ask)
	r.Post("/v1/execute", h.execute)
	return r
}

type handlers struct {
	svc    Service
	logger *slog.Logger
}

func (h *handlers) ask(w http.ResponseWriter, req *http.Request) {
	var askReq domain.AskRequest
	if err := decodeJSON(w, req, &askReq); err != nil {
		writeError(w, "", apperrors.NewInvalidRequest("invalid json"))
		return
	}
	askReq.RequestID = requestID(askReq.RequestID)

	resp, err := h.svc.HandleAsk(req.Context(), askReq, credential.Resolve(askReq.Token, req))
	if err != nil {
		h.logger.Error("ask failed", "request_id", askReq.RequestID, "error", err)
		writeError(w, askReq.RequestID, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) execute(w http.ResponseWriter, req *http.Request) {
	var execReq domain.ExecuteRequest
	if err := decodeJSON(w, req, &execReq); err != nil {
		writeError(w, "", apperrors.NewInvalidRequest("invalid json"))
		return
	}
	execReq.RequestID = requestID(execReq.RequestID)

	resp, err := h.svc.HandleExecute(req.Context(), execReq, credential.Resolve(execReq.Token, req))
	if err != nil {
		h.logger.Error("execute failed", "request_id", execReq.RequestID, "tool", execReq.Tool, "error", err)
		writeError(w, execReq.RequestID, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) capabilities(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Capabilities(req.Context()))
}

func decodeJSON(w http.ResponseWriter, req *http.Request, dst any) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	return json.NewDecoder(req.Body).Decode(dst)
}

func requestID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return uuid.NewString()
}

func writeError(w http.ResponseWriter, requestID string, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.NewInternal(err)
	}
	writeJSON(w, appErr.Status, domain.ErrorResponse{
		RequestID: requestID,
		Error:     appErr.Message,
		ErrorKind: string(appErr.Code),
		Details:   appErr.Details,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
