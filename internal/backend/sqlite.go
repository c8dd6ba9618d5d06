package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dohr-michael/taskdeck/internal/tasks"
)

const currentVersion = 1

// timeLayout is fixed-width UTC so that text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

const taskColumns = `id, title, completed, starred, archived, priority, tags, due_date, estimated_time, created_at, updated_at`

// SQLiteRepo stores tasks in a SQLite database.
type SQLiteRepo struct {
	db    *sql.DB
	clock *clock
}

// OpenSQLite opens (or creates) the database at path and runs migrations.
func OpenSQLite(path string) (*SQLiteRepo, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	r := &SQLiteRepo{db: db, clock: newClock()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

// OpenSQLiteMemory creates an in-memory repository for tests.
func OpenSQLiteMemory() (*SQLiteRepo, error) {
	return OpenSQLite(":memory:")
}

func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepo) migrate() error {
	var version int
	if err := r.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		const ddl = `
		CREATE TABLE IF NOT EXISTS tasks (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			title          TEXT NOT NULL,
			completed      INTEGER NOT NULL DEFAULT 0,
			starred        INTEGER NOT NULL DEFAULT 0,
			archived       INTEGER NOT NULL DEFAULT 0,
			priority       TEXT NOT NULL DEFAULT 'medium',
			tags           TEXT NOT NULL DEFAULT '[]',
			due_date       TEXT,
			estimated_time INTEGER,
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_archived ON tasks(archived);
		CREATE INDEX IF NOT EXISTS idx_tasks_due      ON tasks(due_date);
		`
		if _, err := r.db.Exec(ddl); err != nil {
			return err
		}
	}

	_, err := r.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (r *SQLiteRepo) List(ctx context.Context, f Filter) ([]tasks.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE archived = ?`
	args := []any{boolInt(f.Archived)}
	if f.Starred != nil {
		query += ` AND starred = ?`
		args = append(args, boolInt(*f.Starred))
	}
	if f.Priority != nil {
		query += ` AND priority = ?`
		args = append(args, string(*f.Priority))
	}
	query += ` ORDER BY due_date IS NULL, due_date, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	list := []tasks.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *SQLiteRepo) Get(ctx context.Context, id string) (tasks.Task, error) {
	return getTask(ctx, r.db, id)
}

// rowQuerier is satisfied by both *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTask(ctx context.Context, q rowQuerier, id string) (tasks.Task, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return tasks.Task{}, ErrNotFound
	}
	row := q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, n)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tasks.Task{}, ErrNotFound
	}
	if err != nil {
		return tasks.Task{}, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

func (r *SQLiteRepo) Create(ctx context.Context, nt tasks.NewTask) (tasks.Task, error) {
	now := r.clock.Now()
	t := tasks.Task{
		Title:         nt.Title,
		Completed:     nt.Completed,
		Starred:       nt.Starred,
		Archived:      nt.Archived,
		Priority:      nt.Priority,
		Tags:          nt.Tags,
		DueDate:       nt.DueDate,
		EstimatedTime: nt.EstimatedTime,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	cols, err := columnValues(t)
	if err != nil {
		return tasks.Task{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (title, completed, starred, archived, priority, tags, due_date, estimated_time, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cols...,
	)
	if err != nil {
		return tasks.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return tasks.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return r.Get(ctx, strconv.FormatInt(id, 10))
}

// Update reads, merges and writes the task in one transaction so concurrent
// patches on the same id never overwrite each other's fields.
func (r *SQLiteRepo) Update(ctx context.Context, id string, u Update) (tasks.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return tasks.Task{}, fmt.Errorf("begin update %s: %w", id, err)
	}
	defer tx.Rollback()

	t, err := getTask(ctx, tx, id)
	if err != nil {
		return tasks.Task{}, err
	}
	u.Apply(&t)
	t.UpdatedAt = r.clock.Now()

	cols, err := columnValues(t)
	if err != nil {
		return tasks.Task{}, err
	}
	n, _ := strconv.ParseInt(t.ID, 10, 64)
	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET title = ?, completed = ?, starred = ?, archived = ?, priority = ?, tags = ?,
		 due_date = ?, estimated_time = ?, created_at = ?, updated_at = ? WHERE id = ?`,
		append(cols, n)...,
	)
	if err != nil {
		return tasks.Task{}, fmt.Errorf("update task %s: %w", id, err)
	}

	updated, err := getTask(ctx, tx, id)
	if err != nil {
		return tasks.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return tasks.Task{}, fmt.Errorf("commit update %s: %w", id, err)
	}
	return updated, nil
}

func (r *SQLiteRepo) Delete(ctx context.Context, id string) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, n)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (tasks.Task, error) {
	var (
		t                            tasks.Task
		id                           int64
		completed, starred, archived int
		priority, tags               string
		due                          sql.NullString
		estimate                     sql.NullInt64
		createdAt, updatedAt         string
	)
	if err := row.Scan(&id, &t.Title, &completed, &starred, &archived, &priority, &tags,
		&due, &estimate, &createdAt, &updatedAt); err != nil {
		return tasks.Task{}, err
	}

	t.ID = strconv.FormatInt(id, 10)
	t.Completed = completed == 1
	t.Starred = starred == 1
	t.Archived = archived == 1
	t.Priority = tasks.Priority(priority)
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil || t.Tags == nil {
		t.Tags = []string{}
	}
	if due.Valid {
		if d, err := time.Parse(timeLayout, due.String); err == nil {
			t.DueDate = &d
		}
	}
	if estimate.Valid {
		e := int(estimate.Int64)
		t.EstimatedTime = &e
	}
	t.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	t.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return t, nil
}

// columnValues returns the insert/update values of t in column order (without id).
func columnValues(t tasks.Task) ([]any, error) {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}

	var due, estimate any
	if t.DueDate != nil {
		due = formatTime(*t.DueDate)
	}
	if t.EstimatedTime != nil {
		estimate = *t.EstimatedTime
	}
	return []any{
		t.Title,
		boolInt(t.Completed),
		boolInt(t.Starred),
		boolInt(t.Archived),
		string(t.Priority),
		string(tagsJSON),
		due,
		estimate,
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
