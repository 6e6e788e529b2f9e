package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"intentgate/internal/domain"
)

type publishingRecorder struct {
	memoryRecorder
	snapshots []domain.CapabilitySnapshot
	err       error
}

func (p *publishingRecorder) PublishCapabilities(_ context.Context, s domain.CapabilitySnapshot) error {
	if p.err != nil {
		return p.err
	}
	p.snapshots = append(p.snapshots, s)
	return nil
}

func TestPublishCapabilityTickOnlyOnChange(t *testing.T) {
	prober := &fakeProber{set: domain.NewCapabilitySet(domain.SourceControl)}
	pub := &publishingRecorder{}
	svc := New(prober, &fakeRequester{}, nil, testLogger(), pub)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	last := svc.publishCapabilityTick(context.Background(), nil, now)
	require.Equal(t, []string{"source-control"}, last)
	require.Len(t, pub.snapshots, 1)
	require.Equal(t, now, pub.snapshots[0].ProbedAt)

	last = svc.publishCapabilityTick(context.Background(), last, now)
	require.Len(t, pub.snapshots, 1)

	prober.set = domain.NewCapabilitySet()
	last = svc.publishCapabilityTick(context.Background(), last, now)
	require.Len(t, pub.snapshots, 2)
	require.Empty(t, pub.snapshots[1].Available)
	require.NotNil(t, last)
}

func TestPublishCapabilityTickRetriesAfterError(t *testing.T) {
	prober := &fakeProber{set: domain.NewCapabilitySet(domain.ContainerRuntime)}
	pub := &publishingRecorder{err: errors.New("broker down")}
	svc := New(prober, &fakeRequester{}, nil, testLogger(), pub)

	last := svc.publishCapabilityTick(context.Background(), nil, time.Now())
	require.Nil(t, last)

	pub.err = nil
	last = svc.publishCapabilityTick(context.Background(), last, time.Now())
	require.Equal(t, []string{"container-runtime"}, last)
	require.Len(t, pub.snapshots, 1)
}

func TestRunCapabilityPublisherWithoutPublisher(t *testing.T) {
	svc := New(&fakeProber{}, &fakeRequester{}, nil, testLogger())
	done := make(chan struct{})
	go func() {
		svc.RunCapabilityPublisher(context.Background(), time.Second)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher without sink should return immediately")
	}
}
