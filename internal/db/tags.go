package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tgienger/yuflow/internal/models"
	"github.com/tgienger/yuflow/internal/storage"
)

func scanTag(row scanner) (models.Tag, error) {
	var t models.Tag
	var created string
	if err := row.Scan(&t.ID, &t.Name, &created); err != nil {
		return t, err
	}
	var err error
	t.CreatedAt, err = parseTime(created)
	return t, err
}

func (db *DB) queryTags(ctx context.Context, q string, args ...any) ([]models.Tag, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// CreateTag creates a new tag
func (db *DB) CreateTag(ctx context.Context, in models.CreateTagInput) (*models.Tag, error) {
	if err := storage.ValidateTag(in); err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx, "INSERT INTO tags (name, created_at) VALUES (?, ?)", in.Name, db.stamp())
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	t, err := scanTag(db.QueryRowContext(ctx, "SELECT id, name, created_at FROM tags WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTags returns all tags ordered by name
func (db *DB) ListTags(ctx context.Context) ([]models.Tag, error) {
	return db.queryTags(ctx, "SELECT id, name, created_at FROM tags ORDER BY name, id")
}

// DeleteTag deletes a tag and removes it from every task
func (db *DB) DeleteTag(ctx context.Context, id int64) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM task_tags WHERE tag_id = ?", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM tags WHERE id = ?", id)
		return err
	})
}

// GetTaskTags returns all tags for a task ordered by name
func (db *DB) GetTaskTags(ctx context.Context, taskID int64) ([]models.Tag, error) {
	return db.queryTags(ctx, `
		SELECT t.id, t.name, t.created_at
		FROM tags t
		JOIN task_tags tt ON t.id = tt.tag_id
		WHERE tt.task_id = ?
		ORDER BY t.name, t.id
	`, taskID)
}

// AddTagToTask adds a tag to a task. Adding an existing link is a no-op.
func (db *DB) AddTagToTask(ctx context.Context, taskID, tagID int64) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		if err := rowExists(ctx, tx, "tasks", "task", taskID); err != nil {
			return err
		}
		if err := rowExists(ctx, tx, "tags", "tag", tagID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO task_tags (task_id, tag_id) VALUES (?, ?)", taskID, tagID)
		return err
	})
}

// RemoveTagFromTask removes a tag from a task
func (db *DB) RemoveTagFromTask(ctx context.Context, taskID, tagID int64) error {
	_, err := db.ExecContext(ctx, "DELETE FROM task_tags WHERE task_id = ? AND tag_id = ?", taskID, tagID)
	return err
}

// ListTaskTags returns every task/tag link ordered by task then tag
func (db *DB) ListTaskTags(ctx context.Context) ([]models.TaskTag, error) {
	rows, err := db.QueryContext(ctx, "SELECT task_id, tag_id FROM task_tags ORDER BY task_id, tag_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []models.TaskTag{}
	for rows.Next() {
		var l models.TaskTag
		if err := rows.Scan(&l.TaskID, &l.TagID); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func rowExists(ctx context.Context, tx *sql.Tx, table, entity string, id int64) error {
	var one int
	err := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", table), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.NotFound(entity, id)
	}
	return err
}
