package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tgienger/yuflow/internal/models"
	"github.com/tgienger/yuflow/internal/query"
	"github.com/tgienger/yuflow/internal/storage"
)

const taskColumns = "id, title, description, completed, priority, category_id, due_date, created_at, updated_at"

func scanTask(row scanner) (models.Task, error) {
	var (
		t                models.Task
		categoryID       sql.NullInt64
		due              sql.NullString
		created, updated string
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Completed, &t.Priority, &categoryID, &due, &created, &updated); err != nil {
		return t, err
	}
	if categoryID.Valid {
		id := categoryID.Int64
		t.CategoryID = &id
	}
	if due.Valid {
		d, err := parseTime(due.String)
		if err != nil {
			return t, err
		}
		t.DueDate = &d
	}
	var err error
	if t.CreatedAt, err = parseTime(created); err != nil {
		return t, err
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return t, err
	}
	return t, nil
}

// ListTasks returns the tasks matching f, newest first. A nil f returns every task.
// The search term is matched in Go; SQLite's LOWER only folds ASCII.
func (db *DB) ListTasks(ctx context.Context, f *models.TaskFilters) ([]models.Task, error) {
	if err := storage.ValidateFilters(f); err != nil {
		return nil, err
	}
	where, args := db.taskWhere(f)
	q := "SELECT " + taskColumns + " FROM tasks"
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY created_at DESC, id DESC"

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		if f != nil && !query.MatchSearch(t, f.Search) {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// taskWhere builds the conjunctive WHERE clause for f
func (db *DB) taskWhere(f *models.TaskFilters) (string, []any) {
	if f == nil {
		return "", nil
	}
	var (
		conds []string
		args  []any
	)
	if f.Completed != nil {
		conds = append(conds, "completed = ?")
		args = append(args, *f.Completed)
	}
	if f.Priority != "" {
		conds = append(conds, "priority = ?")
		args = append(args, string(f.Priority))
	}
	if f.CategoryID != nil {
		conds = append(conds, "category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if start, end, ok := query.Window(f.DateRange, db.now()); ok {
		conds = append(conds, "due_date IS NOT NULL AND due_date >= ? AND due_date < ?")
		args = append(args, formatTime(start), formatTime(end))
	}
	return strings.Join(conds, " AND "), args
}

// GetTask retrieves a task by ID, nil when it does not exist
func (db *DB) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	t, err := scanTask(db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask creates a new task
func (db *DB) CreateTask(ctx context.Context, in models.CreateTaskInput) (*models.Task, error) {
	in, err := storage.NormalizeTask(in)
	if err != nil {
		return nil, err
	}

	var id int64
	err = db.inTx(ctx, func(tx *sql.Tx) error {
		if err := categoryExists(ctx, tx, in.CategoryID); err != nil {
			return err
		}
		now := db.stamp()
		result, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (title, description, completed, priority, category_id, due_date, created_at, updated_at)
			VALUES (?, ?, 0, ?, ?, ?, ?, ?)
		`, in.Title, in.Description, string(in.Priority), nullInt(in.CategoryID), nullTime(in.DueDate), now, now)
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return db.GetTask(ctx, id)
}

// UpdateTask merges in onto the stored task and refreshes updated_at
func (db *DB) UpdateTask(ctx context.Context, in models.UpdateTaskInput) (*models.Task, error) {
	in, err := storage.NormalizeTaskUpdate(in)
	if err != nil {
		return nil, err
	}

	err = db.inTx(ctx, func(tx *sql.Tx) error {
		t, err := scanTask(tx.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", in.ID))
		if errors.Is(err, sql.ErrNoRows) {
			return storage.NotFound("task", in.ID)
		}
		if err != nil {
			return err
		}
		if err := categoryExists(ctx, tx, in.CategoryID); err != nil {
			return err
		}
		in.Apply(&t)
		_, err = tx.ExecContext(ctx, `
			UPDATE tasks
			SET title = ?, description = ?, completed = ?, priority = ?, category_id = ?, due_date = ?, updated_at = ?
			WHERE id = ?
		`, t.Title, t.Description, t.Completed, string(t.Priority), nullInt(t.CategoryID), nullTime(t.DueDate), db.stamp(), t.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return db.GetTask(ctx, in.ID)
}

// DeleteTask deletes a task and its tag links. Deleting a missing task is not an error.
func (db *DB) DeleteTask(ctx context.Context, id int64) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM task_tags WHERE task_id = ?", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
		return err
	})
}

func categoryExists(ctx context.Context, tx *sql.Tx, id *int64) error {
	if id == nil {
		return nil
	}
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM categories WHERE id = ?", *id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("category %d does not exist: %w", *id, storage.ErrValidation)
	}
	return err
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*v), Valid: true}
}
