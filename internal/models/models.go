package models

import "time"

// DefaultCategoryColor is used when a category is created without a color
const DefaultCategoryColor = "#F97316"

// DefaultCategoryName is the category seeded on first run
const DefaultCategoryName = "General"

// Priority of a task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank orders priorities: high > medium > low > unknown
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Task represents a single task
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority"`
	CategoryID  *int64     `json:"category_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Category groups tasks. A task belongs to at most one category.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// Tag represents a tag that can be applied to tasks
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskTag links a task to a tag
type TaskTag struct {
	TaskID int64 `json:"task_id"`
	TagID  int64 `json:"tag_id"`
}

// Setting is a persisted key/value pair
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateTaskInput holds the caller-supplied fields of a new task.
// An empty Priority means medium.
type CreateTaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	CategoryID  *int64     `json:"category_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// UpdateTaskInput merges onto an existing task; nil fields are left unchanged
type UpdateTaskInput struct {
	ID          int64      `json:"id"`
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	CategoryID  *int64     `json:"category_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// Apply merges the set fields of in onto t. ID and timestamps are not touched.
func (in UpdateTaskInput) Apply(t *Task) {
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Completed != nil {
		t.Completed = *in.Completed
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.CategoryID != nil {
		id := *in.CategoryID
		t.CategoryID = &id
	}
	if in.DueDate != nil {
		due := *in.DueDate
		t.DueDate = &due
	}
}

// CreateCategoryInput holds the fields of a new category. An empty Color means DefaultCategoryColor.
type CreateCategoryInput struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// UpdateCategoryInput merges onto an existing category
type UpdateCategoryInput struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// Apply merges the set fields of in onto c
func (in UpdateCategoryInput) Apply(c *Category) {
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Color != nil {
		c.Color = *in.Color
	}
}

// CreateTagInput holds the fields of a new tag
type CreateTagInput struct {
	Name string `json:"name"`
}
