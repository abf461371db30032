// Package catalog records ground-truth database builds and their entries in
// a sqlite database so runs can be listed and entries queried without
// loading the index files.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/gtdb/internal/gtdb"
	"github.com/banshee-data/gtdb/internal/logging"
	"github.com/banshee-data/gtdb/internal/timeutil"
)

// ErrNoRuns is returned by LatestRun on an empty catalog.
var ErrNoRuns = errors.New("catalog has no runs")

// Run is one recorded build.
type Run struct {
	RunID     string        `json:"run_id"`
	Family    string        `json:"family"`
	DataRoot  string        `json:"data_root"`
	DBPath    string        `json:"db_path"`
	IndexPath string        `json:"index_path"`
	Workers   int           `json:"workers"`
	Frames    int           `json:"frames"`
	Entries   int           `json:"entries"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// RunFromBuild describes a build result as a catalog run.
func RunFromBuild(res *gtdb.BuildResult) Run {
	return Run{
		RunID:     res.RunID,
		Family:    res.Family,
		DataRoot:  res.DataRoot,
		DBPath:    res.DBPath,
		IndexPath: res.IndexPath,
		Workers:   res.Workers,
		Frames:    res.Frames,
		Entries:   res.Index.Len(),
		Duration:  res.Duration,
		CreatedAt: res.Started,
	}
}

// Filter selects catalog entries. Zero fields do not filter.
type Filter struct {
	RunID     string
	Class     string
	MinPoints int
	// Difficulties lists the difficulty levels to exclude.
	Difficulties []int
	Limit        int
}

// Catalog is a sqlite-backed build catalog.
type Catalog struct {
	db    *sql.DB
	log   *zap.Logger
	clock timeutil.Clock
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// Open opens or creates the catalog at path and migrates it to the latest
// schema.
func Open(path string, logger *zap.Logger) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	c := &Catalog{db: db, log: logging.OrNop(logger), clock: timeutil.RealClock{}}
	if err := c.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// RecordBuild stores run and every entry of idx in one transaction.
func (c *Catalog) RecordBuild(ctx context.Context, run Run, idx gtdb.Index) error {
	if run.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = c.clock.Now()
	}
	run.Entries = idx.Len()

	err := retryOnBusy(c.clock, func() error {
		return c.recordBuild(ctx, run, idx)
	})
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.RunID, err)
	}
	c.log.Info("recorded build", zap.String("run_id", run.RunID), zap.Int("entries", run.Entries))
	return nil
}

func (c *Catalog) recordBuild(ctx context.Context, run Run, idx gtdb.Index) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO gt_runs (
			run_id, family, data_root, db_path, index_path,
			workers, frames, entries, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Family, run.DataRoot, run.DBPath, run.IndexPath,
		run.Workers, run.Frames, run.Entries, run.Duration.Milliseconds(), run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO gt_entries (
			run_id, class, seq, path, image_idx, gt_idx,
			num_points, difficulty, group_id, score, box_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, class := range idx.Classes() {
		for seq, e := range idx[class] {
			box, err := json.Marshal(e.Box3DLidar)
			if err != nil {
				return err
			}
			var score sql.NullFloat64
			if e.Score != nil {
				score = sql.NullFloat64{Float64: *e.Score, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx,
				run.RunID, class, seq, e.Path, e.ImageIdx, e.GTIdx,
				e.NumPointsInGT, e.Difficulty, e.GroupID, score, string(box),
			); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

const runColumns = `run_id, family, data_root, db_path, index_path,
	workers, frames, entries, duration_ms, created_at`

// Runs lists recorded runs, newest first.
func (c *Catalog) Runs(ctx context.Context) ([]Run, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+runColumns+` FROM gt_runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LatestRun returns the most recent run.
func (c *Catalog) LatestRun(ctx context.Context) (Run, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM gt_runs ORDER BY created_at DESC LIMIT 1`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNoRuns
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r          Run
		durationMS int64
		createdAt  int64
	)
	err := s.Scan(&r.RunID, &r.Family, &r.DataRoot, &r.DBPath, &r.IndexPath,
		&r.Workers, &r.Frames, &r.Entries, &durationMS, &createdAt)
	if err != nil {
		return Run{}, err
	}
	r.Duration = time.Duration(durationMS) * time.Millisecond
	r.CreatedAt = time.Unix(0, createdAt)
	return r, nil
}

// Query returns the entries matching f, ordered by run, class and position
// in the index.
func (c *Catalog) Query(ctx context.Context, f Filter) ([]gtdb.Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.Class != "" {
		where = append(where, "class = ?")
		args = append(args, f.Class)
	}
	if f.MinPoints > 0 {
		where = append(where, "num_points >= ?")
		args = append(args, f.MinPoints)
	}
	if len(f.Difficulties) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(f.Difficulties)), ", ")
		where = append(where, "difficulty NOT IN ("+marks+")")
		for _, d := range f.Difficulties {
			args = append(args, d)
		}
	}

	q := `SELECT class, path, image_idx, gt_idx, num_points, difficulty, group_id, score, box_json
		FROM gt_entries`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY run_id, class, seq"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []gtdb.Entry
	for rows.Next() {
		var (
			e     gtdb.Entry
			score sql.NullFloat64
			box   string
		)
		if err := rows.Scan(&e.Name, &e.Path, &e.ImageIdx, &e.GTIdx, &e.NumPointsInGT,
			&e.Difficulty, &e.GroupID, &score, &box); err != nil {
			return nil, err
		}
		if score.Valid {
			s := score.Float64
			e.Score = &s
		}
		if err := json.Unmarshal([]byte(box), &e.Box3DLidar); err != nil {
			return nil, fmt.Errorf("decode box of %s entry %d: %w", e.Name, e.GTIdx, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ClassCounts returns the number of entries per class of a run.
func (c *Catalog) ClassCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT class, COUNT(*) FROM gt_entries WHERE run_id = ? GROUP BY class`, runID)
	if err != nil {
		return nil, fmt.Errorf("query class counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			class string
			n     int
		)
		if err := rows.Scan(&class, &n); err != nil {
			return nil, err
		}
		counts[class] = n
	}
	return counts, rows.Err()
}
