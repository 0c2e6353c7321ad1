package models

// DateRange narrows tasks by due date relative to now
type DateRange string

const (
	// DateRangeAny applies no date narrowing.
	DateRangeAny   DateRange = ""
	DateRangeToday DateRange = "today"
	DateRangeWeek  DateRange = "week"
	DateRangeMonth DateRange = "month"
	DateRangeAll   DateRange = "all"
)

func (r DateRange) Valid() bool {
	switch r {
	case DateRangeAny, DateRangeToday, DateRangeWeek, DateRangeMonth, DateRangeAll:
		return true
	}
	return false
}

// TaskFilters narrows a task query. Every field is optional and the zero value of
// each one is a no-op; a task must satisfy every field that is set.
//
//   - Completed: nil matches both states.
//   - Priority: "" matches every priority.
//   - CategoryID: nil matches every category, including none.
//   - Search: "" (after trimming) matches everything; otherwise a case-insensitive
//     substring of the title or the description.
//   - DateRange: "" and "all" match everything; today/week/month only match tasks
//     whose due date falls inside the window. Any other value is rejected.
type TaskFilters struct {
	Completed  *bool     `json:"completed,omitempty"`
	Priority   Priority  `json:"priority,omitempty"`
	CategoryID *int64    `json:"category_id,omitempty"`
	Search     string    `json:"search,omitempty"`
	DateRange  DateRange `json:"dateRange,omitempty"`
}
