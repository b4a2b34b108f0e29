package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"textifier/internal/config"
)

// Store manages job history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const entryColumns = "id, kind, source, outputs_json, device, status, error_kind, error_message, cue_count, created_at, finished_at"

// Open initializes or connects to the history database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.HistoryPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	ctx := context.Background()
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := store.MarkInterrupted(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Begin records a running job and returns its entry. An empty ID is replaced
// with a new UUID.
func (s *Store) Begin(ctx context.Context, id string, kind Kind, source, device string) (*Entry, error) {
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}
	entry := &Entry{
		ID:        id,
		Kind:      kind,
		Source:    source,
		Device:    device,
		Status:    StatusRunning,
		CreatedAt: time.Now().UTC(),
	}
	err := s.execWithoutResultRetry(ctx,
		`INSERT INTO jobs (id, kind, source, device, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Kind, entry.Source, nullableString(entry.Device), entry.Status,
		entry.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return entry, nil
}

// Finish records the outcome of a job started with Begin.
func (s *Store) Finish(ctx context.Context, id string, c Completion) error {
	if c.Status == "" || c.Status == StatusRunning {
		return fmt.Errorf("finish job %s: invalid status %q", id, c.Status)
	}
	outputs, err := json.Marshal(c.Outputs)
	if err != nil {
		return fmt.Errorf("marshal outputs: %w", err)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs
         SET status = ?, outputs_json = ?, device = COALESCE(?, device), error_kind = ?,
             error_message = ?, cue_count = ?, finished_at = ?
         WHERE id = ?`,
		c.Status, string(outputs), nullableString(c.Device), nullableString(c.ErrorKind),
		nullableString(c.ErrorMessage), c.Cues, time.Now().UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish job %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// Get fetches one entry. A missing id returns nil, nil.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM jobs WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return entry, nil
}

// ListOptions filters List.
type ListOptions struct {
	Statuses []Status
	Kinds    []Kind
	// Limit <= 0 returns every row.
	Limit int
}

// List returns entries newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM jobs`
	var (
		clauses []string
		args    []any
	)
	if len(opts.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+placeholders(len(opts.Statuses))+")")
		for _, status := range opts.Statuses {
			args = append(args, status)
		}
	}
	if len(opts.Kinds) > 0 {
		clauses = append(clauses, "kind IN ("+placeholders(len(opts.Kinds))+")")
		for _, kind := range opts.Kinds {
			args = append(args, kind)
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Stats returns a count of entries grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// MarkInterrupted flags rows left running by a previous process.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, finished_at = ? WHERE status = ?`,
		StatusInterrupted, time.Now().UTC().Format(timeLayout), StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted jobs: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes finished entries, or every entry when all is set.
func (s *Store) Clear(ctx context.Context, all bool) (int64, error) {
	query := `DELETE FROM jobs WHERE status != ?`
	args := []any{StatusRunning}
	if all {
		query, args = `DELETE FROM jobs`, nil
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return res.RowsAffected()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
