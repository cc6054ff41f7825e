package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/plant-harvester/pkg/types"
)

// --- test helpers ---

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "state", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func pinClock(t *testing.T, start time.Time) {
	t.Helper()
	orig := now
	tick := start
	now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	t.Cleanup(func() { now = orig })
}

// --- tests ---

func TestRecordAndQuery(t *testing.T) {
	pinClock(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	j := openTestJournal(t)
	ctx := context.Background()

	cfg := types.DefaultHarvestConfig()
	run, err := j.Begin(ctx, cfg, 3)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	outcomes := []types.SymbolOutcome{
		{Symbol: "AAAA", Identifier: "1", State: types.StateComplete,
			Fetched: []string{"profile", "wetland"}, ImagesDownloaded: 4},
		{Symbol: "BBBB", State: types.StateFailed, Err: "identifier resolution failed"},
		{Symbol: "CCCC", Identifier: "3", State: types.StateComplete,
			Fetched: []string{"profile"}, Missing: []string{"wetland"}, ImagesFailed: 1},
	}
	for _, o := range outcomes {
		require.NoError(t, run.Record(ctx, o))
	}
	require.NoError(t, run.Finish(ctx, 2, 1))

	all, err := j.Outcomes(ctx, run.ID, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "AAAA", all[0].Symbol)
	assert.Equal(t, []string{"profile", "wetland"}, all[0].Fetched)
	assert.Equal(t, 4, all[0].ImagesDownloaded)
	assert.Equal(t, []string{"wetland"}, all[2].Missing)
	assert.Equal(t, run.ID, all[2].RunID)
	assert.False(t, all[2].RecordedAt.IsZero())

	failed, err := j.Failures(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "BBBB", failed[0].Symbol)
	assert.Equal(t, types.StateFailed, failed[0].State)
	assert.Equal(t, "identifier resolution failed", failed[0].Err)
}

func TestLatestRun(t *testing.T) {
	pinClock(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	j := openTestJournal(t)
	ctx := context.Background()

	_, err := j.LatestRun(ctx)
	assert.True(t, errors.Is(err, ErrNoRuns))

	first, err := j.Begin(ctx, types.DefaultHarvestConfig(), 1)
	require.NoError(t, err)
	second, err := j.Begin(ctx, types.DefaultHarvestConfig(), 1)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	latest, err := j.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest)
}

func TestOutcomesRejectsCorruptLists(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	run, err := j.Begin(ctx, types.DefaultHarvestConfig(), 1)
	require.NoError(t, err)
	require.NoError(t, run.Record(ctx, types.SymbolOutcome{Symbol: "AAAA", State: types.StateComplete}))

	_, err = j.db.ExecContext(ctx, `UPDATE outcomes SET missing = ? WHERE symbol = ?`, "wetland,images", "AAAA")
	require.NoError(t, err)

	_, err = j.Outcomes(ctx, run.ID, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scanning outcome AAAA")
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j1, err := Open(path)
	require.NoError(t, err)
	run, err := j1.Begin(ctx, types.DefaultHarvestConfig(), 1)
	require.NoError(t, err)
	require.NoError(t, run.Record(ctx, types.SymbolOutcome{Symbol: "AAAA", State: types.StateComplete}))
	require.NoError(t, j1.Close())

	j2, err := Open(path)
	require.NoError(t, err)
	defer j2.Close()

	entries, err := j2.Outcomes(ctx, run.ID, false)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
