package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"intentgate/internal/domain"
)

func TestNullIfEmpty(t *testing.T) {
	require.Nil(t, nullIfEmpty(""))
	require.Equal(t, "x", nullIfEmpty("x"))
}

// Runs against a real database when INTENTGATE_TEST_DSN is set.
func TestStoreRecord(t *testing.T) {
	dsn := os.Getenv("INTENTGATE_TEST_DSN")
	if dsn == "" {
		t.Skip("INTENTGATE_TEST_DSN not set")
	}
	ctx := context.Background()
	store, err := New(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Migrate(ctx))

	err = store.Record(ctx, domain.Outcome{
		RequestID:  "test-" + time.Now().Format("150405.000000"),
		Query:      "list my repos",
		Action:     "listRepos",
		Backend:    "source-control",
		Result:     domain.OutcomeDispatched,
		Duration:   120 * time.Millisecond,
		OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}
