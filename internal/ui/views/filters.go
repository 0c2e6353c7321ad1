package views

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tgienger/yuflow/internal/models"
	"github.com/tgienger/yuflow/internal/query"
)

// StatusFilter selects tasks by completion
type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusActive    StatusFilter = "active"
	StatusCompleted StatusFilter = "completed"
)

var statusCycle = []StatusFilter{StatusAll, StatusActive, StatusCompleted}

// completed maps the status onto TaskFilters.Completed
func (s StatusFilter) completed() *bool {
	var v bool
	switch s {
	case StatusActive:
		v = false
	case StatusCompleted:
		v = true
	default:
		return nil
	}
	return &v
}

var priorityCycle = []models.Priority{"", models.PriorityHigh, models.PriorityMedium, models.PriorityLow}

var dateRangeCycle = []models.DateRange{
	models.DateRangeAny,
	models.DateRangeToday,
	models.DateRangeWeek,
	models.DateRangeMonth,
}

// next returns the element after cur in cycle, wrapping around. A value not in
// cycle restarts it.
func next[T comparable](cycle []T, cur T) T {
	i := slices.Index(cycle, cur)
	return cycle[(i+1)%len(cycle)]
}

// TaskListOptions seeds the filter and sort state of a task list
type TaskListOptions struct {
	Status StatusFilter
	Sort   query.SortKey
}

func (o TaskListOptions) normalized() TaskListOptions {
	if !slices.Contains(statusCycle, o.Status) {
		o.Status = StatusAll
	}
	if !slices.Contains(query.SortKeys, o.Sort) {
		o.Sort = query.SortCreated
	}
	return o
}

const dueLayout = "2006-01-02"

// parseDue reads a YYYY-MM-DD due date as midnight in loc. Blank input means no date.
func parseDue(s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dueLayout, s, loc)
	if err != nil {
		return nil, fmt.Errorf("due date %q is not YYYY-MM-DD", s)
	}
	return &t, nil
}

// formatDue renders a due date in loc, "" when unset
func formatDue(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(dueLayout)
}

// overdue reports whether an open task's due day is before today
func overdue(t models.Task, now time.Time) bool {
	if t.Completed || t.DueDate == nil {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return t.DueDate.Before(today)
}

// parsePriority accepts a priority name or its first letter. Blank input means medium.
func parsePriority(s string) (models.Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "m", "medium":
		return models.PriorityMedium, nil
	case "h", "high":
		return models.PriorityHigh, nil
	case "l", "low":
		return models.PriorityLow, nil
	}
	return "", fmt.Errorf("priority %q is not low, medium or high", s)
}

// groupLinks indexes tags by the tasks they are linked to
func groupLinks(tags []models.Tag, links []models.TaskTag) map[int64][]models.Tag {
	byID := make(map[int64]models.Tag, len(tags))
	for _, t := range tags {
		byID[t.ID] = t
	}
	out := make(map[int64][]models.Tag)
	for _, l := range links {
		if t, ok := byID[l.TagID]; ok {
			out[l.TaskID] = append(out[l.TaskID], t)
		}
	}
	return out
}

// withTag keeps the tasks linked to tagID
func withTag(tasks []models.Task, tagsByTask map[int64][]models.Tag, tagID int64) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if slices.ContainsFunc(tagsByTask[t.ID], func(tag models.Tag) bool { return tag.ID == tagID }) {
			out = append(out, t)
		}
	}
	return out
}

func dateRangeLabel(r models.DateRange) string {
	switch r {
	case models.DateRangeToday:
		return "Today"
	case models.DateRangeWeek:
		return "This week"
	case models.DateRangeMonth:
		return "This month"
	}
	return "Any date"
}

func priorityLabel(p models.Priority) string {
	if p == "" {
		return "Any priority"
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}
