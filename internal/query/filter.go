// Package query holds the client-side filter and sort logic for task collections.
package query

import (
	"strings"
	"time"

	"github.com/tgienger/yuflow/internal/models"
)

// Window returns the half-open due-date interval [start, end) selected by r,
// computed in now's location. ok is false when r does not narrow by date.
// Weeks start on Sunday.
func Window(r models.DateRange, now time.Time) (start, end time.Time, ok bool) {
	y, m, d := now.Date()
	loc := now.Location()
	switch r {
	case models.DateRangeToday:
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 0, 1), true
	case models.DateRangeWeek:
		start = time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 0, 7), true
	case models.DateRangeMonth:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0), true
	}
	return time.Time{}, time.Time{}, false
}

// Match reports whether t satisfies every filter that is set in f
func Match(t models.Task, f models.TaskFilters, now time.Time) bool {
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *f.CategoryID) {
		return false
	}
	if !MatchSearch(t, f.Search) {
		return false
	}
	if start, end, ok := Window(f.DateRange, now); ok {
		if t.DueDate == nil {
			return false
		}
		if t.DueDate.Before(start) || !t.DueDate.Before(end) {
			return false
		}
	}
	return true
}

// MatchSearch reports whether the trimmed search term is a case-insensitive
// substring of the title or description. Case folding is Unicode-aware.
func MatchSearch(t models.Task, search string) bool {
	q := strings.ToLower(strings.TrimSpace(search))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(t.Title), q) {
		return true
	}
	return t.Description != "" && strings.Contains(strings.ToLower(t.Description), q)
}

// Filter returns the tasks matching f, in input order. A nil f matches everything.
func Filter(tasks []models.Task, f *models.TaskFilters, now time.Time) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if f == nil || Match(t, *f, now) {
			out = append(out, t)
		}
	}
	return out
}
