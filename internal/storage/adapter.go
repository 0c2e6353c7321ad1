// Package storage defines the adapter contract shared by every persistence backend.
package storage

import (
	"context"

	"github.com/tgienger/yuflow/internal/models"
)

// Adapter is the capability set every backend satisfies identically.
//
// Initialize must be called once before any other method. Lookups of a single
// item return nil (and no error) when the id or key is absent. Deletes and
// RemoveTagFromTask are idempotent. Updates of a missing id fail with ErrNotFound.
type Adapter interface {
	Initialize(ctx context.Context) error
	// Close releases backend resources. It is a no-op on an adapter that was
	// never initialized; a closed adapter must not be reused.
	Close(ctx context.Context) error

	// Tasks
	GetTasks(ctx context.Context, filters *models.TaskFilters) ([]models.Task, error)
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	CreateTask(ctx context.Context, in models.CreateTaskInput) (*models.Task, error)
	UpdateTask(ctx context.Context, in models.UpdateTaskInput) (*models.Task, error)
	DeleteTask(ctx context.Context, id int64) error

	// Categories
	GetCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	CreateCategory(ctx context.Context, in models.CreateCategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, id int64, in models.UpdateCategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	// Tags
	GetTags(ctx context.Context) ([]models.Tag, error)
	CreateTag(ctx context.Context, in models.CreateTagInput) (*models.Tag, error)
	DeleteTag(ctx context.Context, id int64) error
	GetTaskTags(ctx context.Context, taskID int64) ([]models.Tag, error)
	// GetAllTaskTags returns every task/tag link ordered by task then tag.
	GetAllTaskTags(ctx context.Context) ([]models.TaskTag, error)
	AddTagToTask(ctx context.Context, taskID, tagID int64) error
	RemoveTagFromTask(ctx context.Context, taskID, tagID int64) error

	// Settings
	GetSetting(ctx context.Context, key string) (*string, error)
	SetSetting(ctx context.Context, key, value string) error
	GetSettings(ctx context.Context) ([]models.Setting, error)

	// ClearAll removes every task, link, tag, category and setting.
	ClearAll(ctx context.Context) error
}
