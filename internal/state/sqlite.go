package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sourceplane/liteiac/internal/model"
)

// DefaultPath is where the state database lives relative to the working directory
const DefaultPath = ".liteiac/state.sqlite"

// SQLite is a Store backed by a single SQLite file
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (and creates if needed) the state database at path
func OpenSQLite(path string) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &SQLite{db: db, path: absPath}
	if err := s.initSchema(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the absolute database path
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) initSchema(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
		`
CREATE TABLE IF NOT EXISTS liteiac_outputs (
  stack TEXT NOT NULL,
  node_id TEXT NOT NULL,
  resource_id TEXT NOT NULL,
  attributes_json TEXT NOT NULL,
  recorded_at_ns INTEGER NOT NULL,
  PRIMARY KEY (stack, node_id)
);`,
		`
CREATE TABLE IF NOT EXISTS liteiac_runs (
  run_id TEXT PRIMARY KEY,
  stack TEXT NOT NULL,
  status TEXT NOT NULL,
  started_at_ns INTEGER NOT NULL,
  finished_at_ns INTEGER NOT NULL DEFAULT 0
);`,
		`
CREATE TABLE IF NOT EXISTS liteiac_run_events (
  run_id TEXT NOT NULL,
  seq INTEGER NOT NULL,
  node_id TEXT NOT NULL,
  state TEXT NOT NULL,
  message TEXT NOT NULL,
  at_ns INTEGER NOT NULL,
  PRIMARY KEY (run_id, seq)
);`,
		`CREATE INDEX IF NOT EXISTS liteiac_runs_stack_started ON liteiac_runs(stack, started_at_ns);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init sqlite schema: %w", err)
		}
	}
	return nil
}

func (s *SQLite) Outputs(ctx context.Context, stack string) (map[string]model.Output, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT node_id, resource_id, attributes_json FROM liteiac_outputs WHERE stack = ? ORDER BY node_id`, stack)
	if err != nil {
		return nil, fmt.Errorf("query outputs: %w", err)
	}
	defer rows.Close()

	outputs := make(map[string]model.Output)
	for rows.Next() {
		var nodeID, resourceID, attrsJSON string
		if err := rows.Scan(&nodeID, &resourceID, &attrsJSON); err != nil {
			return nil, fmt.Errorf("scan output: %w", err)
		}
		out := model.Output{ID: resourceID}
		if attrsJSON != "" && attrsJSON != "null" {
			if err := json.Unmarshal([]byte(attrsJSON), &out.Attributes); err != nil {
				return nil, fmt.Errorf("decode attributes of %s: %w", nodeID, err)
			}
		}
		outputs[nodeID] = out
	}
	return outputs, rows.Err()
}

func (s *SQLite) Record(ctx context.Context, stack, nodeID string, out model.Output) error {
	attrs, err := json.Marshal(out.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes of %s: %w", nodeID, err)
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO liteiac_outputs (stack, node_id, resource_id, attributes_json, recorded_at_ns)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(stack, node_id) DO NOTHING`,
		stack, nodeID, out.ID, string(attrs), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("record output of %s: %w", nodeID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s/%s: %w", stack, nodeID, ErrAlreadyRecorded)
	}
	return nil
}

func (s *SQLite) Forget(ctx context.Context, stack, nodeID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM liteiac_outputs WHERE stack = ? AND node_id = ?`, stack, nodeID)
	if err != nil {
		return fmt.Errorf("forget output of %s: %w", nodeID, err)
	}
	return nil
}

func (s *SQLite) StartRun(ctx context.Context, stack string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO liteiac_runs (run_id, stack, status, started_at_ns) VALUES (?, ?, ?, ?)`,
		id, stack, RunRunning, time.Now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

func (s *SQLite) AppendEvent(ctx context.Context, runID string, ev Event) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO liteiac_run_events (run_id, seq, node_id, state, message, at_ns)
VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM liteiac_run_events WHERE run_id = ?), ?, ?, ?, ?)`,
		runID, runID, ev.NodeID, ev.State, ev.Message, at.UnixNano())
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (s *SQLite) FinishRun(ctx context.Context, runID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE liteiac_runs SET status = ?, finished_at_ns = ? WHERE run_id = ?`,
		status, time.Now().UnixNano(), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("unknown run %s", runID)
	}
	return nil
}

func (s *SQLite) ListRuns(ctx context.Context, stack string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT r.run_id, r.stack, r.status, r.started_at_ns, r.finished_at_ns,
       (SELECT COUNT(*) FROM liteiac_run_events e WHERE e.run_id = r.run_id)
FROM liteiac_runs r
WHERE (? = '' OR r.stack = ?)
ORDER BY r.started_at_ns DESC
LIMIT ?`, stack, stack, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		if err := rows.Scan(&r.ID, &r.Stack, &r.Status, &started, &finished, &r.Events); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(0, started).UTC()
		if finished > 0 {
			r.FinishedAt = time.Unix(0, finished).UTC()
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
