// Package desktop implements storage.Adapter by forwarding every operation to the
// native command layer.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tgienger/yuflow/internal/models"
	"github.com/tgienger/yuflow/internal/native"
	"github.com/tgienger/yuflow/internal/storage"
)

// Adapter is the native-backed storage adapter
type Adapter struct {
	invoker native.Invoker
}

var _ storage.Adapter = (*Adapter)(nil)

// New creates an adapter that sends commands through inv
func New(inv native.Invoker) *Adapter {
	return &Adapter{invoker: inv}
}

func (a *Adapter) call(ctx context.Context, command string, args, out any) error {
	err := a.invoker.Invoke(ctx, command, args, out)
	if err == nil {
		return nil
	}
	var ce *native.CommandError
	if errors.As(err, &ce) {
		switch ce.Kind {
		case native.KindNotFound:
			return fmt.Errorf("%s: %w", ce.Message, storage.ErrNotFound)
		case native.KindValidation:
			return fmt.Errorf("%s: %w", ce.Message, storage.ErrValidation)
		}
	}
	return err
}

func (a *Adapter) Initialize(ctx context.Context) error {
	if err := a.invoker.Invoke(ctx, native.CmdInitDatabase, nil, nil); err != nil {
		return &storage.InitializationError{Backend: "desktop", Err: err}
	}
	return nil
}

// Close closes the invoker when it holds resources
func (a *Adapter) Close(ctx context.Context) error {
	if c, ok := a.invoker.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (a *Adapter) GetTasks(ctx context.Context, filters *models.TaskFilters) ([]models.Task, error) {
	var tasks []models.Task
	if err := a.call(ctx, native.CmdGetTasks, native.FiltersArgs{Filters: filters}, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

func (a *Adapter) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	var task *models.Task
	if err := a.call(ctx, native.CmdGetTask, native.IDArgs{ID: id}, &task); err != nil {
		return nil, err
	}
	return task, nil
}

func (a *Adapter) CreateTask(ctx context.Context, in models.CreateTaskInput) (*models.Task, error) {
	var task models.Task
	if err := a.call(ctx, native.CmdCreateTask, native.CreateTaskArgs{Task: in}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (a *Adapter) UpdateTask(ctx context.Context, in models.UpdateTaskInput) (*models.Task, error) {
	var task models.Task
	if err := a.call(ctx, native.CmdUpdateTask, native.UpdateTaskArgs{Task: in}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (a *Adapter) DeleteTask(ctx context.Context, id int64) error {
	return a.call(ctx, native.CmdDeleteTask, native.IDArgs{ID: id}, nil)
}

func (a *Adapter) GetCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := a.call(ctx, native.CmdGetCategories, nil, &categories); err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

func (a *Adapter) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	var category *models.Category
	if err := a.call(ctx, native.CmdGetCategory, native.IDArgs{ID: id}, &category); err != nil {
		return nil, err
	}
	return category, nil
}

func (a *Adapter) CreateCategory(ctx context.Context, in models.CreateCategoryInput) (*models.Category, error) {
	var category models.Category
	if err := a.call(ctx, native.CmdCreateCategory, native.CreateCategoryArgs{Category: in}, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (a *Adapter) UpdateCategory(ctx context.Context, id int64, in models.UpdateCategoryInput) (*models.Category, error) {
	var category models.Category
	if err := a.call(ctx, native.CmdUpdateCategory, native.UpdateCategoryArgs{ID: id, Updates: in}, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (a *Adapter) DeleteCategory(ctx context.Context, id int64) error {
	return a.call(ctx, native.CmdDeleteCategory, native.IDArgs{ID: id}, nil)
}

func (a *Adapter) GetTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := a.call(ctx, native.CmdGetTags, nil, &tags); err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	return tags, nil
}

func (a *Adapter) CreateTag(ctx context.Context, in models.CreateTagInput) (*models.Tag, error) {
	var tag models.Tag
	if err := a.call(ctx, native.CmdCreateTag, native.CreateTagArgs{Tag: in}, &tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

func (a *Adapter) DeleteTag(ctx context.Context, id int64) error {
	return a.call(ctx, native.CmdDeleteTag, native.IDArgs{ID: id}, nil)
}

func (a *Adapter) GetTaskTags(ctx context.Context, taskID int64) ([]models.Tag, error) {
	var tags []models.Tag
	if err := a.call(ctx, native.CmdGetTaskTags, native.TaskIDArgs{TaskID: taskID}, &tags); err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	return tags, nil
}

func (a *Adapter) GetAllTaskTags(ctx context.Context) ([]models.TaskTag, error) {
	var links []models.TaskTag
	if err := a.call(ctx, native.CmdGetAllTaskTags, nil, &links); err != nil {
		return nil, err
	}
	if links == nil {
		links = []models.TaskTag{}
	}
	return links, nil
}

func (a *Adapter) AddTagToTask(ctx context.Context, taskID, tagID int64) error {
	return a.call(ctx, native.CmdAddTagToTask, native.TaskTagArgs{TaskID: taskID, TagID: tagID}, nil)
}

func (a *Adapter) RemoveTagFromTask(ctx context.Context, taskID, tagID int64) error {
	return a.call(ctx, native.CmdRemoveTagFromTask, native.TaskTagArgs{TaskID: taskID, TagID: tagID}, nil)
}

func (a *Adapter) GetSetting(ctx context.Context, key string) (*string, error) {
	var value *string
	if err := a.call(ctx, native.CmdGetSetting, native.KeyArgs{Key: key}, &value); err != nil {
		return nil, err
	}
	return value, nil
}

func (a *Adapter) SetSetting(ctx context.Context, key, value string) error {
	return a.call(ctx, native.CmdSetSetting, native.SettingArgs{Key: key, Value: value}, nil)
}

func (a *Adapter) GetSettings(ctx context.Context) ([]models.Setting, error) {
	var settings []models.Setting
	if err := a.call(ctx, native.CmdGetAllSettings, nil, &settings); err != nil {
		return nil, err
	}
	if settings == nil {
		settings = []models.Setting{}
	}
	return settings, nil
}

func (a *Adapter) ClearAll(ctx context.Context) error {
	return a.call(ctx, native.CmdClearData, nil, nil)
}
