package orchestrator

import (
	"context"
	"slices"
	"time"

	"intentgate/internal/domain"
)

// CapabilityPublisher broadcasts probe snapshots for dashboards. It is
// picked up from the recorders passed to New.
type CapabilityPublisher interface {
	PublishCapabilities(ctx context.Context, snapshot domain.CapabilitySnapshot) error
}

// RunCapabilityPublisher probes on a fixed interval and publishes a snapshot
// whenever the available set changes. Request handling never reads these
// snapshots; every request still probes for itself.
func (s *Service) RunCapabilityPublisher(ctx context.Context, interval time.Duration) {
	if s == nil || s.publisher == nil {
		return
	}
	if interval < 5*time.Second {
		interval = 5 * time.Second
	}
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("capability publisher started", "interval", interval)

	var last []string
	last = s.publishCapabilityTick(ctx, last, time.Now().UTC())
	for {
		select {
		case <-ctx.Done():
			return
		case tickAt := <-ticker.C:
			last = s.publishCapabilityTick(ctx, last, tickAt.UTC())
		}
	}
}

func (s *Service) publishCapabilityTick(ctx context.Context, last []string, now time.Time) []string {
	available := s.prober.Probe(ctx).Strings()
	if last != nil && slices.Equal(last, available) {
		return last
	}
	snapshot := domain.CapabilitySnapshot{Available: available, ProbedAt: now}
	if err := s.publisher.PublishCapabilities(ctx, snapshot); err != nil {
		s.logger.Warn("capability tick: publish failed", "error", err)
		return last
	}
	s.logger.Info("capabilities changed", "available", available)
	return available
}
