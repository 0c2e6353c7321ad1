package query

import (
	"cmp"
	"slices"
	"strings"

	"github.com/tgienger/yuflow/internal/models"
)

// SortKey names one of the task orders
type SortKey string

const (
	SortPriority SortKey = "priority"
	SortDueDate  SortKey = "due_date"
	SortCreated  SortKey = "created"
	SortTitle    SortKey = "title"
)

// SortKeys lists the orders in the sequence the UI cycles through them
var SortKeys = []SortKey{SortCreated, SortPriority, SortDueDate, SortTitle}

// Sort returns tasks ordered by key. Unknown keys return an unchanged copy.
func Sort(tasks []models.Task, key SortKey) []models.Task {
	switch key {
	case SortPriority:
		return SortByPriority(tasks)
	case SortDueDate:
		return SortByDueDate(tasks)
	case SortCreated:
		return SortByCreated(tasks)
	case SortTitle:
		return SortAlphabetical(tasks)
	}
	return slices.Clone(tasks)
}

// SortByPriority orders high, medium, low. Equal priorities keep their input order.
func SortByPriority(tasks []models.Task) []models.Task {
	return sorted(tasks, func(a, b models.Task) int {
		return cmp.Compare(b.Priority.Rank(), a.Priority.Rank())
	})
}

// SortByDueDate orders by ascending due date; tasks without one go last
func SortByDueDate(tasks []models.Task) []models.Task {
	return sorted(tasks, func(a, b models.Task) int {
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0
		case a.DueDate == nil:
			return 1
		case b.DueDate == nil:
			return -1
		}
		return a.DueDate.Compare(*b.DueDate)
	})
}

// SortByCreated orders newest first
func SortByCreated(tasks []models.Task) []models.Task {
	return sorted(tasks, func(a, b models.Task) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// SortAlphabetical orders by title ignoring case. Titles that differ only in case
// fall back to byte order; identical titles keep their input order.
func SortAlphabetical(tasks []models.Task) []models.Task {
	return sorted(tasks, func(a, b models.Task) int {
		if c := strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
			return c
		}
		return strings.Compare(a.Title, b.Title)
	})
}

func sorted(tasks []models.Task, fn func(a, b models.Task) int) []models.Task {
	out := slices.Clone(tasks)
	slices.SortStableFunc(out, fn)
	return out
}
