package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is RFC 3339 with fixed nanosecond width, so that stored
// timestamps compare lexicographically in time order (ORDER BY
// created_at relies on it).
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(dsn string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Reasonable pragmas for an app server
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteRepo{db: db}, nil
}

func (r *SQLiteRepo) Close() error { return r.db.Close() }

// ApplyMigrations ensures the schema exists. Safe to run repeatedly.
func (r *SQLiteRepo) ApplyMigrations(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	details TEXT,
	done INTEGER NOT NULL DEFAULT 0,
	priority INTEGER NOT NULL DEFAULT 1,
	due_date TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT
);
	`)
	return err
}

func (r *SQLiteRepo) Create(ctx context.Context, t NewTask) (Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return Task{}, ErrTitleRequired
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (title, details, done, priority, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL)
	`, t.Title, nullString(t.Details), t.Done, t.Priority, nullString(t.DueDate), now.Format(timeLayout))
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Task{}, err
	}
	return Task{
		ID:        id,
		Title:     t.Title,
		Details:   copyString(t.Details),
		Done:      t.Done,
		Priority:  t.Priority,
		DueDate:   copyString(t.DueDate),
		CreatedAt: now,
	}, nil
}

const taskColumns = `id, title, details, done, priority, due_date, created_at, updated_at`

func (r *SQLiteRepo) Get(ctx context.Context, id int64) (Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = ?
	`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

func (r *SQLiteRepo) List(ctx context.Context, f ListFilter) ([]Task, error) {
	var (
		where []string
		args  []any
	)
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		where = append(where, `(instr(lower(title), ?) > 0 OR (details IS NOT NULL AND instr(lower(details), ?) > 0))`)
		args = append(args, q, q)
	}
	if f.Done != nil {
		where = append(where, `done = ?`)
		args = append(args, *f.Done)
	}
	if f.Priority != nil {
		where = append(where, `priority = ?`)
		args = append(args, *f.Priority)
	}
	if f.DueBefore != "" {
		where = append(where, `due_date <= ?`)
		args = append(args, f.DueBefore)
	}
	if f.DueAfter != "" {
		where = append(where, `due_date >= ?`)
		args = append(args, f.DueAfter)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY ` + sortColumn(f.Sort) + ` ` + sortDirection(f.Order) + `, id ASC`
	switch {
	case f.Limit > 0:
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	case f.Offset > 0:
		// LIMIT -1 is SQLite for "no limit"; OFFSET needs a LIMIT clause.
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) Update(ctx context.Context, id int64, p TaskPatch) (Task, error) {
	t, err := r.Get(ctx, id)
	if err != nil {
		return Task{}, err
	}

	if p.Title != nil {
		t.Title = *p.Title
	}
	switch {
	case p.ClearDetails:
		t.Details = nil
	case p.Details != nil:
		t.Details = copyString(p.Details)
	}
	if p.Done != nil {
		t.Done = *p.Done
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	switch {
	case p.ClearDueDate:
		t.DueDate = nil
	case p.DueDate != nil:
		t.DueDate = copyString(p.DueDate)
	}
	now := time.Now().UTC()
	t.UpdatedAt = &now

	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, details = ?, done = ?, priority = ?, due_date = ?, updated_at = ?
		WHERE id = ?
	`, t.Title, nullString(t.Details), t.Done, t.Priority, nullString(t.DueDate), now.Format(timeLayout), id)
	if err != nil {
		return Task{}, fmt.Errorf("update task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Task{}, err
	}
	if n == 0 {
		// Deleted between the read and the write.
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (r *SQLiteRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var (
		t       Task
		details sql.NullString
		due     sql.NullString
		created string
		updated sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Title, &details, &t.Done, &t.Priority, &due, &created, &updated); err != nil {
		return Task{}, err
	}
	if details.Valid {
		t.Details = &details.String
	}
	if due.Valid {
		t.DueDate = &due.String
	}
	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Task{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	t.CreatedAt = ts
	if updated.Valid {
		ts, err := time.Parse(time.RFC3339Nano, updated.String)
		if err != nil {
			return Task{}, fmt.Errorf("parse updated_at %q: %w", updated.String, err)
		}
		t.UpdatedAt = &ts
	}
	return t, nil
}

func sortColumn(sort string) string {
	switch sort {
	case SortDueDate:
		return "due_date"
	case SortPriority:
		return "priority"
	default:
		return "created_at"
	}
}

func sortDirection(order string) string {
	if order == OrderDesc {
		return "DESC"
	}
	return "ASC"
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// SQLiteFileDSN builds a DSN like file:/absolute/path?_pragma=busy_timeout(5000),
// creating the parent directory so the file can live on a fresh volume.
func SQLiteFileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.ToSlash(abs) + "?_pragma=busy_timeout(5000)", nil
}
