package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"vrptw/internal/model"
)

// tsLayout is fixed width so stored timestamps sort as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// SQL stores runs in Postgres (pgx) or SQLite (modernc). Queries are written
// with ? placeholders and rebound for Postgres.
type SQL struct {
	db     *sql.DB
	driver string
}

// Open picks the driver from the DSN: postgres:// and postgresql:// URLs use
// pgx; sqlite:<path> and file:<path> use SQLite.
func Open(dsn string) (*SQL, error) {
	var driver, source string
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		driver, source = "pgx", dsn
	case strings.HasPrefix(dsn, "sqlite:"):
		driver, source = "sqlite", strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite:"), "//")
	case strings.HasPrefix(dsn, "file:"):
		driver, source = "sqlite", dsn
	default:
		return nil, fmt.Errorf("store: unsupported DATABASE_URL scheme in %q", dsn)
	}
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// a single writer avoids SQLITE_BUSY under concurrent runs
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, err
		}
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", driver, err)
	}
	return &SQL{db: db, driver: driver}, nil
}

func (s *SQL) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQL) Close() error { return s.db.Close() }

// Driver is "pgx" or "sqlite".
func (s *SQL) Driver() string { return s.driver }

// rebind turns ? placeholders into $1, $2, ... for Postgres.
func (s *SQL) rebind(q string) string {
	if s.driver != "pgx" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MigrateDir applies every *.sql file in dir, in name order, that has not been
// applied yet. Applied names are kept in schema_migrations.
func (s *SQL) MigrateDir(dir string) error {
	ctx := context.Background()
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (name TEXT PRIMARY KEY, applied_at TEXT NOT NULL)`); err != nil {
		return err
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	slices.Sort(files)
	for _, f := range files {
		name := filepath.Base(f)
		var seen string
		err := s.db.QueryRowContext(ctx, s.rebind(`SELECT name FROM schema_migrations WHERE name = ?`), name).Scan(&seen)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		body, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`), name, formatTS(time.Now())); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func formatTS(t time.Time) string { return t.UTC().Format(tsLayout) }

func (s *SQL) SaveRun(ctx context.Context, run model.Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.UpdatedAt.IsZero() {
		run.UpdatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(run)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO runs (id, instance, status, created_at, updated_at, body) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET instance = excluded.instance, status = excluded.status, updated_at = excluded.updated_at, body = excluded.body`),
		run.ID, run.Instance, run.Status, formatTS(run.CreatedAt), formatTS(run.UpdatedAt), string(body))
	return err
}

func (s *SQL) GetRun(ctx context.Context, id string) (model.Run, error) {
	var body string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT body FROM runs WHERE id = ?`), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, ErrNotFound
	}
	if err != nil {
		return model.Run{}, err
	}
	var run model.Run
	if err := json.Unmarshal([]byte(body), &run); err != nil {
		return model.Run{}, fmt.Errorf("store: run %s: %w", id, err)
	}
	return run, nil
}

func (s *SQL) ListRuns(ctx context.Context, instance, cursor string, limit int) ([]model.Run, string, error) {
	limit = clampLimit(limit)
	q := `SELECT id, body FROM runs WHERE 1 = 1`
	var args []any
	if instance != "" {
		q += ` AND instance = ?`
		args = append(args, instance)
	}
	if cursor != "" {
		var created string
		err := s.db.QueryRowContext(ctx, s.rebind(`SELECT created_at FROM runs WHERE id = ?`), cursor).Scan(&created)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, "", err
		}
		if err == nil {
			q += ` AND (created_at > ? OR (created_at = ? AND id > ?))`
			args = append(args, created, created, cursor)
		}
	}
	q += ` ORDER BY created_at, id LIMIT ?`
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	var out []model.Run
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, "", err
		}
		var run model.Run
		if err := json.Unmarshal([]byte(body), &run); err != nil {
			return nil, "", fmt.Errorf("store: run %s: %w", id, err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, nil
}

func (s *SQL) SaveRunMetrics(ctx context.Context, m model.RunMetrics) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(m.Metrics)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO run_metrics (id, run_id, instance, algo, created_at, body) VALUES (?, ?, ?, ?, ?, ?)`),
		uuid.New().String(), m.RunID, m.Instance, m.Algo, formatTS(m.CreatedAt), string(body))
	return err
}

func (s *SQL) ListRunMetrics(ctx context.Context, instance, algo string) ([]model.RunMetrics, error) {
	q := `SELECT run_id, instance, algo, created_at, body FROM run_metrics WHERE 1 = 1`
	var args []any
	if instance != "" {
		q += ` AND instance = ?`
		args = append(args, instance)
	}
	if algo != "" {
		q += ` AND algo = ?`
		args = append(args, algo)
	}
	q += ` ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RunMetrics
	for rows.Next() {
		var rm model.RunMetrics
		var created, body string
		if err := rows.Scan(&rm.RunID, &rm.Instance, &rm.Algo, &created, &body); err != nil {
			return nil, err
		}
		if rm.CreatedAt, err = time.Parse(tsLayout, created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(body), &rm.Metrics); err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}
