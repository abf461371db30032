package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/banshee-data/gtdb/internal/gtdb"
	"github.com/banshee-data/gtdb/internal/timeutil"
)

func openTestCatalog(t *testing.T) (*Catalog, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	c, err := Open(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, path
}

func score(v float64) *float64 { return &v }

func testIndex() gtdb.Index {
	return gtdb.Index{
		"car": {
			{Name: "car", Path: "db/car/0_car_0.bin", ImageIdx: "0", GTIdx: 0, Box3DLidar: []float64{1, 2, 0, 4, 2, 1.5, 0.1, 3, 0}, NumPointsInGT: 120, GroupID: 0},
			{Name: "car", Path: "db/car/1_car_2.bin", ImageIdx: "1", GTIdx: 2, Box3DLidar: []float64{5, 2, 0, 4, 2, 1.5, 0.2}, NumPointsInGT: 4, Difficulty: -1, GroupID: 3},
		},
		"pedestrian": {
			{Name: "pedestrian", Path: "db/pedestrian/1_pedestrian_0.bin", ImageIdx: "1", GTIdx: 0, Box3DLidar: []float64{9, 1, 0, 0.6, 0.6, 1.8, 0}, NumPointsInGT: 30, GroupID: 1, Score: score(0.75)},
		},
	}
}

func TestOpen_MigratesSchema(t *testing.T) {
	c, path := openTestCatalog(t)

	version, dirty, err := c.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Reopening an up-to-date catalog is a no-op.
	again, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestRecordBuild_RoundTrip(t *testing.T) {
	c, _ := openTestCatalog(t)
	ctx := context.Background()
	created := time.Unix(1700000000, 0)

	run := Run{
		RunID:     "run-1",
		Family:    "NUSC",
		DataRoot:  "/data",
		DBPath:    "/data/db",
		IndexPath: "/data/dbinfos.json",
		Workers:   4,
		Frames:    2,
		Duration:  1500 * time.Millisecond,
		CreatedAt: created,
	}
	require.NoError(t, c.RecordBuild(ctx, run, testIndex()))

	latest, err := c.LatestRun(ctx)
	require.NoError(t, err)
	run.Entries = 3
	if diff := cmp.Diff(run, latest); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}

	got, err := c.Query(ctx, Filter{RunID: "run-1"})
	require.NoError(t, err)
	idx := testIndex()
	want := append(append([]gtdb.Entry{}, idx["car"]...), idx["pedestrian"]...)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	counts, err := c.ClassCounts(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"car": 2, "pedestrian": 1}, counts)
}

func TestQuery_Filters(t *testing.T) {
	c, _ := openTestCatalog(t)
	ctx := context.Background()
	require.NoError(t, c.RecordBuild(ctx, Run{RunID: "a", CreatedAt: time.Unix(1, 0)}, testIndex()))
	require.NoError(t, c.RecordBuild(ctx, Run{RunID: "b", CreatedAt: time.Unix(2, 0)}, testIndex()))

	all, err := c.Query(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 6)

	cars, err := c.Query(ctx, Filter{RunID: "b", Class: "car", MinPoints: 10})
	require.NoError(t, err)
	require.Len(t, cars, 1)
	assert.Equal(t, 120, cars[0].NumPointsInGT)

	easy, err := c.Query(ctx, Filter{RunID: "a", Difficulties: []int{-1}})
	require.NoError(t, err)
	assert.Len(t, easy, 2)

	limited, err := c.Query(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	runs, err := c.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].RunID)
}

func TestRecordBuild_Errors(t *testing.T) {
	c, _ := openTestCatalog(t)
	ctx := context.Background()

	assert.Error(t, c.RecordBuild(ctx, Run{}, testIndex()))

	require.NoError(t, c.RecordBuild(ctx, Run{RunID: "dup"}, testIndex()))
	assert.Error(t, c.RecordBuild(ctx, Run{RunID: "dup"}, testIndex()))

	// The failed duplicate left no extra entries behind.
	entries, err := c.Query(ctx, Filter{RunID: "dup"})
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestRecordBuild_DefaultsCreatedAtFromClock(t *testing.T) {
	c, _ := openTestCatalog(t)
	now := time.Unix(1760000000, 0)
	c.clock = timeutil.NewMockClock(now)

	require.NoError(t, c.RecordBuild(context.Background(), Run{RunID: "clocked"}, testIndex()))
	latest, err := c.LatestRun(context.Background())
	require.NoError(t, err)
	assert.True(t, now.Equal(latest.CreatedAt))
}

func TestLatestRun_Empty(t *testing.T) {
	c, _ := openTestCatalog(t)
	_, err := c.LatestRun(context.Background())
	assert.ErrorIs(t, err, ErrNoRuns)
}

func TestRunFromBuild(t *testing.T) {
	started := time.Unix(42, 0)
	res := &gtdb.BuildResult{
		RunID:     "r",
		Family:    "WAYMO",
		DataRoot:  "/w",
		DBPath:    "/w/db",
		IndexPath: "/w/idx.json",
		Workers:   8,
		Frames:    100,
		Index:     testIndex(),
		Started:   started,
		Duration:  time.Second,
	}
	run := RunFromBuild(res)
	assert.Equal(t, 3, run.Entries)
	assert.Equal(t, started, run.CreatedAt)
	assert.Equal(t, 8, run.Workers)
}

func TestIsSQLiteBusy(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "database is locked", err: errors.New("database is locked (5) (SQLITE_BUSY)"), expected: true},
		{name: "SQLITE_BUSY", err: errors.New("SQLITE_BUSY"), expected: true},
		{name: "other error", err: errors.New("some other error"), expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSQLiteBusy(tt.err); got != tt.expected {
				t.Errorf("isSQLiteBusy(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestRetryOnBusy(t *testing.T) {
	t.Run("success after retry", func(t *testing.T) {
		calls := 0
		clock := timeutil.NewMockClock(time.Unix(0, 0))
		err := retryOnBusy(clock, func() error {
			calls++
			if calls < 3 {
				return errors.New("database is locked (5) (SQLITE_BUSY)")
			}
			return nil
		})
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
		assert.Equal(t, []time.Duration{busyBaseDelay, 2 * busyBaseDelay}, clock.Sleeps())
	})

	t.Run("non-busy error fails immediately", func(t *testing.T) {
		calls := 0
		testErr := errors.New("some other error")
		err := retryOnBusy(timeutil.NewMockClock(time.Unix(0, 0)), func() error {
			calls++
			return testErr
		})
		if err != testErr {
			t.Errorf("expected error %v, got %v", testErr, err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		calls := 0
		clock := timeutil.NewMockClock(time.Unix(0, 0))
		err := retryOnBusy(clock, func() error {
			calls++
			return errors.New("SQLITE_BUSY")
		})
		if err == nil {
			t.Error("expected error, got nil")
		}
		if calls != maxBusyAttempts {
			t.Errorf("expected %d calls, got %d", maxBusyAttempts, calls)
		}
		assert.Len(t, clock.Sleeps(), maxBusyAttempts-1)
	})
}
