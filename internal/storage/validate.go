package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/tgienger/yuflow/internal/models"
)

// NormalizeTask validates a create input and fills its defaults
func NormalizeTask(in models.CreateTaskInput) (models.CreateTaskInput, error) {
	if strings.TrimSpace(in.Title) == "" {
		return in, fmt.Errorf("task title is empty: %w", ErrValidation)
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !in.Priority.Valid() {
		return in, fmt.Errorf("unknown priority %q: %w", in.Priority, ErrValidation)
	}
	in.DueDate = utc(in.DueDate)
	return in, nil
}

// NormalizeTaskUpdate rejects updates that would leave a task invalid
func NormalizeTaskUpdate(in models.UpdateTaskInput) (models.UpdateTaskInput, error) {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return in, fmt.Errorf("task title is empty: %w", ErrValidation)
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return in, fmt.Errorf("unknown priority %q: %w", *in.Priority, ErrValidation)
	}
	in.DueDate = utc(in.DueDate)
	return in, nil
}

// Due dates are kept in UTC so every backend returns them identically
func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// ValidateFilters rejects filter values no backend understands
func ValidateFilters(f *models.TaskFilters) error {
	if f == nil {
		return nil
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return fmt.Errorf("unknown priority %q: %w", f.Priority, ErrValidation)
	}
	if !f.DateRange.Valid() {
		return fmt.Errorf("unknown date range %q: %w", f.DateRange, ErrValidation)
	}
	return nil
}

// NormalizeCategory validates a create input and fills its defaults
func NormalizeCategory(in models.CreateCategoryInput) (models.CreateCategoryInput, error) {
	if strings.TrimSpace(in.Name) == "" {
		return in, fmt.Errorf("category name is empty: %w", ErrValidation)
	}
	if in.Color == "" {
		in.Color = models.DefaultCategoryColor
	}
	return in, nil
}

// ValidateCategoryUpdate rejects updates that would blank a category name
func ValidateCategoryUpdate(in models.UpdateCategoryInput) error {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return fmt.Errorf("category name is empty: %w", ErrValidation)
	}
	return nil
}

// ValidateTag rejects blank tag names
func ValidateTag(in models.CreateTagInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("tag name is empty: %w", ErrValidation)
	}
	return nil
}
