// Package web implements storage.Adapter on the embedded document store. Filtering
// and sorting run in process over the stored documents.
package web

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tgienger/yuflow/internal/docstore"
	"github.com/tgienger/yuflow/internal/models"
	"github.com/tgienger/yuflow/internal/query"
	"github.com/tgienger/yuflow/internal/storage"
)

// Option configures an Adapter
type Option func(*Adapter)

// WithClock sets the time source used for timestamps and date filters
func WithClock(clock func() time.Time) Option {
	return func(a *Adapter) {
		a.clock = clock
	}
}

// WithLogger sets the logger for lifecycle events
func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// Adapter is the document-store-backed storage adapter
type Adapter struct {
	store      *docstore.Store
	path       string
	clock      func() time.Time
	logger     *zap.Logger
	tasks      *docstore.Collection[int64, models.Task]
	categories *docstore.Collection[int64, models.Category]
	tags       *docstore.Collection[int64, models.Tag]
	taskTags   *docstore.Collection[models.TaskTag, models.TaskTag]
	settings   *docstore.Collection[string, models.Setting]
}

var _ storage.Adapter = (*Adapter)(nil)

// New creates an adapter persisting to path. An empty path keeps everything in memory.
func New(path string, opts ...Option) *Adapter {
	s := docstore.New(path)
	a := &Adapter{
		store:  s,
		path:   path,
		clock:  time.Now,
		logger: zap.NewNop(),
		tasks: docstore.NewCollection(s, "tasks",
			func(t models.Task) int64 { return t.ID },
			cmp.Compare[int64],
			docstore.AutoIncrement(seq, func(t *models.Task, n int64) { t.ID = n }),
			docstore.Index[int64, models.Task]("title", func(t models.Task) (any, bool) { return t.Title, true }),
			docstore.Index[int64, models.Task]("completed", func(t models.Task) (any, bool) { return t.Completed, true }),
			docstore.Index[int64, models.Task]("priority", func(t models.Task) (any, bool) { return t.Priority, true }),
			docstore.Index[int64, models.Task]("category_id", func(t models.Task) (any, bool) {
				if t.CategoryID == nil {
					return nil, false
				}
				return *t.CategoryID, true
			}),
			docstore.Index[int64, models.Task]("due_date", func(t models.Task) (any, bool) {
				if t.DueDate == nil {
					return nil, false
				}
				return t.DueDate.UnixNano(), true
			}),
			docstore.Index[int64, models.Task]("created_at", func(t models.Task) (any, bool) { return t.CreatedAt.UnixNano(), true }),
			docstore.Index[int64, models.Task]("updated_at", func(t models.Task) (any, bool) { return t.UpdatedAt.UnixNano(), true }),
		),
		categories: docstore.NewCollection(s, "categories",
			func(c models.Category) int64 { return c.ID },
			cmp.Compare[int64],
			docstore.AutoIncrement(seq, func(c *models.Category, n int64) { c.ID = n }),
			docstore.Index[int64, models.Category]("name", func(c models.Category) (any, bool) { return c.Name, true }),
			docstore.Index[int64, models.Category]("color", func(c models.Category) (any, bool) { return c.Color, true }),
			docstore.Index[int64, models.Category]("created_at", func(c models.Category) (any, bool) { return c.CreatedAt.UnixNano(), true }),
		),
		tags: docstore.NewCollection(s, "tags",
			func(t models.Tag) int64 { return t.ID },
			cmp.Compare[int64],
			docstore.AutoIncrement(seq, func(t *models.Tag, n int64) { t.ID = n }),
			docstore.Index[int64, models.Tag]("name", func(t models.Tag) (any, bool) { return t.Name, true }),
			docstore.Index[int64, models.Tag]("created_at", func(t models.Tag) (any, bool) { return t.CreatedAt.UnixNano(), true }),
		),
		taskTags: docstore.NewCollection(s, "task_tags",
			func(l models.TaskTag) models.TaskTag { return l },
			compareLinks,
			docstore.Index[models.TaskTag, models.TaskTag]("task_id", func(l models.TaskTag) (any, bool) { return l.TaskID, true }),
			docstore.Index[models.TaskTag, models.TaskTag]("tag_id", func(l models.TaskTag) (any, bool) { return l.TagID, true }),
		),
		settings: docstore.NewCollection(s, "settings",
			func(st models.Setting) string { return st.Key },
			strings.Compare,
		),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func seq(id int64) int64 { return id }

func compareLinks(a, b models.TaskTag) int {
	if c := cmp.Compare(a.TaskID, b.TaskID); c != 0 {
		return c
	}
	return cmp.Compare(a.TagID, b.TagID)
}

func (a *Adapter) now() time.Time {
	return a.clock().UTC()
}

// Initialize opens the store and seeds the default category on first run
func (a *Adapter) Initialize(ctx context.Context) error {
	if err := a.store.Open(); err != nil {
		a.logger.Error("open document store", zap.String("path", a.path), zap.Error(err))
		return &storage.InitializationError{Backend: "web", Err: err}
	}
	seeded := false
	err := a.store.Update(func(tx *docstore.Tx) error {
		if a.categories.Count(tx) > 0 {
			return nil
		}
		_, err := a.categories.Add(tx, models.Category{
			ID:        1,
			Name:      models.DefaultCategoryName,
			Color:     models.DefaultCategoryColor,
			CreatedAt: a.now(),
		})
		seeded = err == nil
		return err
	})
	if err != nil {
		a.logger.Error("seed default category", zap.Error(err))
		return &storage.InitializationError{Backend: "web", Err: err}
	}
	if seeded {
		a.logger.Info("seeded default category", zap.String("name", models.DefaultCategoryName))
	}
	a.logger.Debug("document store open", zap.String("path", a.path))
	return nil
}

// Close persists and releases the data file
func (a *Adapter) Close(ctx context.Context) error {
	if err := a.store.Close(); err != nil {
		a.logger.Error("close document store", zap.String("path", a.path), zap.Error(err))
		return err
	}
	return nil
}

func (a *Adapter) GetTasks(ctx context.Context, filters *models.TaskFilters) ([]models.Task, error) {
	if err := storage.ValidateFilters(filters); err != nil {
		return nil, err
	}
	var tasks []models.Task
	err := a.store.View(func(tx *docstore.Tx) error {
		candidates, err := a.candidates(tx, filters)
		if err != nil {
			return err
		}
		tasks = query.Filter(candidates, filters, a.clock())
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(tasks, func(x, y models.Task) int {
		if c := y.CreatedAt.Compare(x.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(y.ID, x.ID)
	})
	for i := range tasks {
		tasks[i] = cloneTask(tasks[i])
	}
	return tasks, nil
}

// candidates narrows the scan with an index when an equality filter allows it
func (a *Adapter) candidates(tx *docstore.Tx, f *models.TaskFilters) ([]models.Task, error) {
	switch {
	case f == nil:
		return a.tasks.All(tx), nil
	case f.CategoryID != nil:
		return a.tasks.Where(tx, "category_id", *f.CategoryID)
	case f.Priority != "":
		return a.tasks.Where(tx, "priority", f.Priority)
	case f.Completed != nil:
		return a.tasks.Where(tx, "completed", *f.Completed)
	}
	return a.tasks.All(tx), nil
}

func (a *Adapter) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	var task *models.Task
	err := a.store.View(func(tx *docstore.Tx) error {
		if t, ok := a.tasks.Get(tx, id); ok {
			t = cloneTask(t)
			task = &t
		}
		return nil
	})
	return task, err
}

func (a *Adapter) CreateTask(ctx context.Context, in models.CreateTaskInput) (*models.Task, error) {
	in, err := storage.NormalizeTask(in)
	if err != nil {
		return nil, err
	}

	now := a.now()
	task := cloneTask(models.Task{
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		CategoryID:  in.CategoryID,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	err = a.store.Update(func(tx *docstore.Tx) error {
		if err := a.categoryExists(tx, task.CategoryID); err != nil {
			return err
		}
		id, err := a.tasks.Add(tx, task)
		task.ID = id
		return err
	})
	if err != nil {
		return nil, err
	}
	out := cloneTask(task)
	return &out, nil
}

func (a *Adapter) UpdateTask(ctx context.Context, in models.UpdateTaskInput) (*models.Task, error) {
	in, err := storage.NormalizeTaskUpdate(in)
	if err != nil {
		return nil, err
	}

	var task models.Task
	err = a.store.Update(func(tx *docstore.Tx) error {
		t, ok := a.tasks.Get(tx, in.ID)
		if !ok {
			return storage.NotFound("task", in.ID)
		}
		if err := a.categoryExists(tx, in.CategoryID); err != nil {
			return err
		}
		task = cloneTask(t)
		in.Apply(&task)
		task.UpdatedAt = a.now()
		_, err := a.tasks.Put(tx, task)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := cloneTask(task)
	return &out, nil
}

// DeleteTask removes the task's tag links, then the task
func (a *Adapter) DeleteTask(ctx context.Context, id int64) error {
	return a.store.Update(func(tx *docstore.Tx) error {
		if _, err := a.taskTags.DeleteWhere(tx, "task_id", id); err != nil {
			return err
		}
		return a.tasks.Delete(tx, id)
	})
}

func (a *Adapter) categoryExists(tx *docstore.Tx, id *int64) error {
	if id == nil {
		return nil
	}
	if _, ok := a.categories.Get(tx, *id); !ok {
		return fmt.Errorf("category %d does not exist: %w", *id, storage.ErrValidation)
	}
	return nil
}

func cloneTask(t models.Task) models.Task {
	if t.CategoryID != nil {
		id := *t.CategoryID
		t.CategoryID = &id
	}
	if t.DueDate != nil {
		due := *t.DueDate
		t.DueDate = &due
	}
	return t
}
