// Package backup writes and restores JSON snapshots of everything an adapter stores.
package backup

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tgienger/yuflow/internal/models"
	"github.com/tgienger/yuflow/internal/storage"
)

const (
	FormatVersion = "1.0.0"
	filePrefix    = "yuflow_backup_"
	fileSuffix    = ".json"
	stampLayout   = "20060102_150405"
)

var ErrInvalidName = errors.New("invalid backup file name")

// Data is the on-disk backup document
type Data struct {
	Version    string            `json:"version"`
	CreatedAt  time.Time         `json:"created_at"`
	Tasks      []models.Task     `json:"tasks"`
	Categories []models.Category `json:"categories"`
	Tags       []models.Tag      `json:"tags"`
	TaskTags   []models.TaskTag  `json:"task_tags"`
	Settings   []models.Setting  `json:"settings"`
}

// Metadata describes one backup file
type Metadata struct {
	Filename      string    `json:"filename"`
	CreatedAt     time.Time `json:"created_at"`
	SizeBytes     int64     `json:"size_bytes"`
	TaskCount     int       `json:"task_count"`
	CategoryCount int       `json:"category_count"`
}

// Manager keeps backups in one directory
type Manager struct {
	dir    string
	logger *zap.Logger

	// Clock names new backups; defaults to time.Now
	Clock func() time.Time
}

// NewManager creates a manager for dir
func NewManager(dir string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{dir: dir, logger: logger, Clock: time.Now}
}

// Dir returns the backup directory
func (m *Manager) Dir() string {
	return m.dir
}

// Create snapshots everything in a and writes it to a new backup file
func (m *Manager) Create(ctx context.Context, a storage.Adapter) (*Metadata, error) {
	now := m.Clock().UTC()
	data := Data{Version: FormatVersion, CreatedAt: now}

	var err error
	if data.Tasks, err = a.GetTasks(ctx, nil); err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}
	if data.Categories, err = a.GetCategories(ctx); err != nil {
		return nil, fmt.Errorf("read categories: %w", err)
	}
	if data.Tags, err = a.GetTags(ctx); err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}
	if data.TaskTags, err = a.GetAllTaskTags(ctx); err != nil {
		return nil, fmt.Errorf("read task tags: %w", err)
	}
	if data.Settings, err = a.GetSettings(ctx); err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, err
	}

	name := filePrefix + now.Format(stampLayout) + fileSuffix
	path := filepath.Join(m.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	m.logger.Info("backup created",
		zap.String("file", name),
		zap.Int("tasks", len(data.Tasks)),
		zap.Int("categories", len(data.Categories)),
	)
	return &Metadata{
		Filename:      name,
		CreatedAt:     now,
		SizeBytes:     int64(len(raw)),
		TaskCount:     len(data.Tasks),
		CategoryCount: len(data.Categories),
	}, nil
}

// Restore replaces everything in a with the contents of the named backup.
// Entities get new ids; references between them are remapped.
func (m *Manager) Restore(ctx context.Context, a storage.Adapter, filename string) error {
	path, err := m.path(filename)
	if err != nil {
		return err
	}
	data, err := read(path)
	if err != nil {
		return err
	}
	if err := validate(data); err != nil {
		return fmt.Errorf("backup %s: %w", filename, err)
	}

	// Not atomic: a storage failure past this point leaves a partial restore.
	if err := a.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear data: %w", err)
	}

	categoryIDs := make(map[int64]int64, len(data.Categories))
	slices.SortFunc(data.Categories, func(x, y models.Category) int { return cmp.Compare(x.ID, y.ID) })
	for _, c := range data.Categories {
		created, err := a.CreateCategory(ctx, models.CreateCategoryInput{Name: c.Name, Color: c.Color})
		if err != nil {
			return fmt.Errorf("restore category %q: %w", c.Name, err)
		}
		categoryIDs[c.ID] = created.ID
	}

	tagIDs := make(map[int64]int64, len(data.Tags))
	slices.SortFunc(data.Tags, func(x, y models.Tag) int { return cmp.Compare(x.ID, y.ID) })
	for _, t := range data.Tags {
		created, err := a.CreateTag(ctx, models.CreateTagInput{Name: t.Name})
		if err != nil {
			return fmt.Errorf("restore tag %q: %w", t.Name, err)
		}
		tagIDs[t.ID] = created.ID
	}

	// oldest first so the restored tasks keep their relative order
	slices.SortFunc(data.Tasks, func(x, y models.Task) int {
		if c := x.CreatedAt.Compare(y.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})
	taskIDs := make(map[int64]int64, len(data.Tasks))
	for _, t := range data.Tasks {
		in := models.CreateTaskInput{
			Title:       t.Title,
			Description: t.Description,
			Priority:    t.Priority,
			DueDate:     t.DueDate,
		}
		if t.CategoryID != nil {
			if id, ok := categoryIDs[*t.CategoryID]; ok {
				in.CategoryID = &id
			}
		}
		created, err := a.CreateTask(ctx, in)
		if err != nil {
			return fmt.Errorf("restore task %q: %w", t.Title, err)
		}
		taskIDs[t.ID] = created.ID

		if t.Completed {
			done := true
			if _, err := a.UpdateTask(ctx, models.UpdateTaskInput{ID: created.ID, Completed: &done}); err != nil {
				return fmt.Errorf("restore task %q: %w", t.Title, err)
			}
		}
	}

	for _, l := range data.TaskTags {
		taskID, ok := taskIDs[l.TaskID]
		if !ok {
			continue
		}
		tagID, ok := tagIDs[l.TagID]
		if !ok {
			continue
		}
		if err := a.AddTagToTask(ctx, taskID, tagID); err != nil {
			return fmt.Errorf("restore tag link: %w", err)
		}
	}

	for _, s := range data.Settings {
		if err := a.SetSetting(ctx, s.Key, s.Value); err != nil {
			return fmt.Errorf("restore setting %q: %w", s.Key, err)
		}
	}

	m.logger.Info("backup restored", zap.String("file", filename), zap.Int("tasks", len(data.Tasks)))
	return nil
}

// validate checks every entry the way the adapters will, so a bad file is
// rejected before anything is cleared
func validate(data *Data) error {
	for _, c := range data.Categories {
		if _, err := storage.NormalizeCategory(models.CreateCategoryInput{Name: c.Name, Color: c.Color}); err != nil {
			return fmt.Errorf("category %d: %w", c.ID, err)
		}
	}
	for _, t := range data.Tags {
		if err := storage.ValidateTag(models.CreateTagInput{Name: t.Name}); err != nil {
			return fmt.Errorf("tag %d: %w", t.ID, err)
		}
	}
	for _, t := range data.Tasks {
		if _, err := storage.NormalizeTask(models.CreateTaskInput{Title: t.Title, Priority: t.Priority}); err != nil {
			return fmt.Errorf("task %d: %w", t.ID, err)
		}
	}
	for _, st := range data.Settings {
		if st.Key == "" {
			return fmt.Errorf("setting with empty key: %w", storage.ErrValidation)
		}
	}
	return nil
}

// List returns the backups in the directory, newest first. Files that cannot
// be parsed are listed with zero counts.
func (m *Manager) List() ([]Metadata, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Metadata{}, nil
	}
	if err != nil {
		return nil, err
	}

	backups := []Metadata{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}

		md := Metadata{Filename: name, SizeBytes: info.Size(), CreatedAt: info.ModTime().UTC()}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		if t, err := time.Parse(stampLayout, stamp); err == nil {
			md.CreatedAt = t
		}
		if data, err := read(filepath.Join(m.dir, name)); err == nil {
			md.TaskCount = len(data.Tasks)
			md.CategoryCount = len(data.Categories)
		}
		backups = append(backups, md)
	}

	slices.SortFunc(backups, func(x, y Metadata) int {
		if c := y.CreatedAt.Compare(x.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(y.Filename, x.Filename)
	})
	return backups, nil
}

// Delete removes the named backup
func (m *Manager) Delete(filename string) error {
	path, err := m.path(filename)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

func (m *Manager) path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.ContainsAny(filename, `/\`) || filename == ".." {
		return "", fmt.Errorf("%q: %w", filename, ErrInvalidName)
	}
	return filepath.Join(m.dir, filename), nil
}

func read(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &data, nil
}
