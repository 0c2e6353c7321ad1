package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tgienger/yuflow/internal/models"
	"github.com/tgienger/yuflow/internal/storage"
)

func scanCategory(row scanner) (models.Category, error) {
	var c models.Category
	var created string
	if err := row.Scan(&c.ID, &c.Name, &c.Color, &created); err != nil {
		return c, err
	}
	var err error
	c.CreatedAt, err = parseTime(created)
	return c, err
}

// CreateCategory creates a new category
func (db *DB) CreateCategory(ctx context.Context, in models.CreateCategoryInput) (*models.Category, error) {
	in, err := storage.NormalizeCategory(in)
	if err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO categories (name, color, created_at) VALUES (?, ?, ?)
	`, in.Name, in.Color, db.stamp())
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetCategory(ctx, id)
}

// GetCategory retrieves a category by ID, nil when it does not exist
func (db *DB) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	c, err := scanCategory(db.QueryRowContext(ctx, `
		SELECT id, name, color, created_at FROM categories WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCategories returns all categories ordered by name
func (db *DB) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, color, created_at FROM categories ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateCategory merges in onto the stored category
func (db *DB) UpdateCategory(ctx context.Context, id int64, in models.UpdateCategoryInput) (*models.Category, error) {
	if err := storage.ValidateCategoryUpdate(in); err != nil {
		return nil, err
	}

	err := db.inTx(ctx, func(tx *sql.Tx) error {
		c, err := scanCategory(tx.QueryRowContext(ctx, `
			SELECT id, name, color, created_at FROM categories WHERE id = ?
		`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return storage.NotFound("category", id)
		}
		if err != nil {
			return err
		}
		in.Apply(&c)
		_, err = tx.ExecContext(ctx, "UPDATE categories SET name = ?, color = ? WHERE id = ?", c.Name, c.Color, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return db.GetCategory(ctx, id)
}

// DeleteCategory deletes a category. Its tasks are kept with no category.
func (db *DB) DeleteCategory(ctx context.Context, id int64) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE tasks SET category_id = NULL WHERE category_id = ?", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
		return err
	})
}
