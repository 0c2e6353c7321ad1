// Package native is the command layer in front of the SQLite store. Callers send a
// named command with a JSON payload and get a JSON result back, the same contract a
// desktop shell would expose to its frontend.
package native

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/tgienger/yuflow/internal/db"
	"github.com/tgienger/yuflow/internal/models"
)

// Command names
const (
	CmdInitDatabase      = "init_database"
	CmdGetTasks          = "get_tasks"
	CmdGetTask           = "get_task"
	CmdCreateTask        = "create_task"
	CmdUpdateTask        = "update_task"
	CmdDeleteTask        = "delete_task"
	CmdGetCategories     = "get_categories"
	CmdGetCategory       = "get_category"
	CmdCreateCategory    = "create_category"
	CmdUpdateCategory    = "update_category"
	CmdDeleteCategory    = "delete_category"
	CmdGetTags           = "get_tags"
	CmdCreateTag         = "create_tag"
	CmdDeleteTag         = "delete_tag"
	CmdGetTaskTags       = "get_task_tags"
	CmdGetAllTaskTags    = "get_all_task_tags"
	CmdAddTagToTask      = "add_tag_to_task"
	CmdRemoveTagFromTask = "remove_tag_from_task"
	CmdGetSetting        = "get_setting"
	CmdSetSetting        = "set_setting"
	CmdGetAllSettings    = "get_all_settings"
	CmdClearData         = "clear_data"
)

var errNotInitialized = errors.New("database not initialized")

// Payloads, named the way the frontend sends them
type (
	FiltersArgs struct {
		Filters *models.TaskFilters `json:"filters"`
	}
	IDArgs struct {
		ID int64 `json:"id"`
	}
	CreateTaskArgs struct {
		Task models.CreateTaskInput `json:"task"`
	}
	UpdateTaskArgs struct {
		Task models.UpdateTaskInput `json:"task"`
	}
	CreateCategoryArgs struct {
		Category models.CreateCategoryInput `json:"category"`
	}
	UpdateCategoryArgs struct {
		ID      int64                      `json:"id"`
		Updates models.UpdateCategoryInput `json:"updates"`
	}
	CreateTagArgs struct {
		Tag models.CreateTagInput `json:"tag"`
	}
	TaskIDArgs struct {
		TaskID int64 `json:"taskId"`
	}
	TaskTagArgs struct {
		TaskID int64 `json:"taskId"`
		TagID  int64 `json:"tagId"`
	}
	KeyArgs struct {
		Key string `json:"key"`
	}
	SettingArgs struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
)

// OpenFunc opens the database when init_database runs
type OpenFunc func(ctx context.Context) (*db.DB, error)

// Handler executes commands against the database
type Handler struct {
	mu   sync.Mutex
	open OpenFunc
	db   *db.DB
}

// NewHandler creates a handler. The database is opened by the first init_database.
func NewHandler(open OpenFunc) *Handler {
	return &Handler{open: open}
}

// Dispatch runs command with payload and returns the JSON encoded result.
// Failures are always *CommandError.
func (h *Handler) Dispatch(ctx context.Context, command string, payload json.RawMessage) (json.RawMessage, error) {
	result, err := h.dispatch(ctx, command, payload)
	if err != nil {
		return nil, commandError(command, err)
	}
	out, err := json.Marshal(result)
	if err != nil {
		return nil, commandError(command, err)
	}
	return out, nil
}

func (h *Handler) dispatch(ctx context.Context, command string, payload json.RawMessage) (any, error) {
	if command == CmdInitDatabase {
		return nil, h.initialize(ctx)
	}

	conn, err := h.conn()
	if err != nil {
		return nil, err
	}

	switch command {
	case CmdGetTasks:
		var args FiltersArgs
		if err := decode(payload, &args); err != nil {
			return nil, err
		}
		return conn.ListTasks(ctx, args.Filters)
	case CmdGetTask:
		var args IDArgs
		if err := decode(payload, &args); err != nil {
			return nil, err
		}
		return conn.GetTask(ctx, args.ID)
	case CmdCreateTask:
		var args CreateTaskArgs
		if err := decode(payload, &args); err != nil {
			return nil, err
		}
		return conn.CreateTask(ctx, args.Task)
	case CmdUpdateTask:
		var args UpdateTaskArgs
		if err := decode(payload, &args); err != nil {
			return nil, err
		}
		return conn.UpdateTask(ctx, args.Task)
	case CmdDeleteTask:
		var args IDArgs
		if err := decode(payload, &args); err != nil {
			return nil, err
		}
		return nil, conn.DeleteTask(ctx, args.ID)

	case CmdGetCategories:
		return conn.ListCategories(ctx)
	case CmdGetCategory:
		var args IDArgs
		if err := decode(payload, &args); err != nil {
			return nil, err
		}
		return conn.GetCategory(ctx, args.ID)
	case CmdCreateCategory:
		var args CreateCategoryArgs
		if err := decode(payload, &args); err != nil {
			return nil, err
		}
		return conn.CreateCategory(ctx, args.Category)
	case CmdUpdateCategory:
		var args UpdateCategoryArgs
		if err := decode(payload, &args); err != nil {
			return nil, err
		}
		return conn.UpdateCategory(ctx, args.ID, args.Updates)
	case CmdDeleteCategory:
		var args IDArgs
		if err := decode(payload, &args); err != nil {
			return nil, err
		}
		return nil, conn.DeleteCategory(ctx, args.ID)

	case CmdGetTags:
		return conn.ListTags(ctx)
	case CmdCreateTag:
		var args CreateTagArgs
		if err := decode(payload, &args); err != nil {
			return nil, err
		}
		return conn.CreateTag(ctx, args.Tag)
	case CmdDeleteTag:
		var args IDArgs
		if err := decode(payload, &args); err != nil {
			return nil, err
		}
		return nil, conn.DeleteTag(ctx, args.ID)
	case CmdGetTaskTags:
		var args TaskIDArgs
		if err := decode(payload, &args); err != nil {
			return nil, err
		}
		return conn.GetTaskTags(ctx, args.TaskID)
	case CmdGetAllTaskTags:
		return conn.ListTaskTags(ctx)
	case CmdAddTagToTask:
		var args TaskTagArgs
		if err := decode(payload, &args); err != nil {
			return nil, err
		}
		return nil, conn.AddTagToTask(ctx, args.TaskID, args.TagID)
	case CmdRemoveTagFromTask:
		var args TaskTagArgs
		if err := decode(payload, &args); err != nil {
			return nil, err
		}
		return nil, conn.RemoveTagFromTask(ctx, args.TaskID, args.TagID)

	case CmdGetSetting:
		var args KeyArgs
		if err := decode(payload, &args); err != nil {
			return nil, err
		}
		return conn.GetSetting(ctx, args.Key)
	case CmdSetSetting:
		var args SettingArgs
		if err := decode(payload, &args); err != nil {
			return nil, err
		}
		return nil, conn.SetSetting(ctx, args.Key, args.Value)
	case CmdGetAllSettings:
		return conn.ListSettings(ctx)
	case CmdClearData:
		return nil, conn.ClearAll(ctx)
	}
	return nil, fmt.Errorf("unknown command %q", command)
}

func (h *Handler) initialize(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.db != nil {
		return nil
	}
	conn, err := h.open(ctx)
	if err != nil {
		return err
	}
	h.db = conn
	return nil
}

func (h *Handler) conn() (*db.DB, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.db == nil {
		return nil, errNotInitialized
	}
	return h.db, nil
}

// Close closes the database. Commands other than init_database fail afterwards.
func (h *Handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}

func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
