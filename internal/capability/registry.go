package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"intentgate/internal/config"
	"intentgate/internal/domain"
	"intentgate/internal/metrics"
)

const runningStatus = "running"

// Registry probes the configured backends. It holds no per-request state;
// every Probe call builds a fresh CapabilitySet.
type Registry struct {
	backends []config.BackendConfig
	client   *http.Client
	timeout  time.Duration
	logger   *slog.Logger
}

func NewRegistry(backends []config.BackendConfig, timeout time.Duration, logger *slog.Logger) *Registry {
	if timeout <= 0 {
		timeout = 1500 * time.Millisecond
	}
	return &Registry{
		backends: append([]config.BackendConfig{}, backends...),
		client:   &http.Client{},
		timeout:  timeout,
		logger:   logger,
	}
}

// Probe checks every backend concurrently and returns the ones reporting
// status "running". Probe failures only drop the backend from the set.
func (r *Registry) Probe(ctx context.Context) domain.CapabilitySet {
	up := make([]bool, len(r.backends))

	var g errgroup.Group
	for i, b := range r.backends {
		g.Go(func() error {
			err := r.probeOne(ctx, b)
			if err != nil {
				r.logger.Warn("backend not available", "backend", b.ID, "error", err)
				metrics.ProbeResults.WithLabelValues(b.ID, "down").Inc()
				return nil
			}
			metrics.ProbeResults.WithLabelValues(b.ID, "up").Inc()
			up[i] = true
			return nil
		})
	}
	_ = g.Wait()

	ids := make([]domain.CapabilityID, 0, len(r.backends))
	for i, b := range r.backends {
		if up[i] {
			ids = append(ids, domain.CapabilityID(b.ID))
		}
	}
	return domain.NewCapabilitySet(ids...)
}

func (r *Registry) probeOne(ctx context.Context, b config.BackendConfig) error {
	probeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, b.StatusURL(), nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}

	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	if status.Status != runningStatus {
		return fmt.Errorf("status=%q", status.Status)
	}
	return nil
}
