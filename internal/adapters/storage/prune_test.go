package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/quantpro/internal/domain"
)

func TestPruneOld_DeletesRunsOlderThanAYear(t *testing.T) {
	s, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	_, err = s.SaveReport(ctx, domain.Report{GeneratedAt: now.AddDate(-2, 0, 0), Threshold: 0.3})
	require.NoError(t, err)
	_, err = s.SaveReport(ctx, domain.Report{GeneratedAt: now.AddDate(0, -1, 0), Threshold: 0.3})
	require.NoError(t, err)

	n, err := s.pruneOld(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	runs, err := s.GetRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].GeneratedAt.Equal(now.AddDate(0, -1, 0)))
}

func TestPruneOld_ReportsExecError(t *testing.T) {
	s, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.pruneOld(context.Background(), time.Now())
	assert.ErrorContains(t, err, "storage.pruneOld")
}
