package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tgienger/yuflow/internal/models"
)

func ids(tasks []models.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestSortByPriority_Stable(t *testing.T) {
	tasks := []models.Task{
		{ID: 1, Priority: models.PriorityMedium},
		{ID: 2, Priority: models.PriorityHigh},
		{ID: 3, Priority: models.PriorityMedium},
	}

	got := SortByPriority(tasks)

	assert.Equal(t, []int64{2, 1, 3}, ids(got))
	assert.Equal(t, []int64{1, 2, 3}, ids(tasks), "input must not be reordered")
}

func TestSortByPriority_AllLevels(t *testing.T) {
	tasks := []models.Task{
		{ID: 1, Priority: models.PriorityLow},
		{ID: 2, Priority: models.PriorityMedium},
		{ID: 3, Priority: models.PriorityHigh},
		{ID: 4, Priority: models.PriorityLow},
	}

	assert.Equal(t, []int64{3, 2, 1, 4}, ids(SortByPriority(tasks)))
}

func TestSortByDueDate_NilsLast(t *testing.T) {
	tasks := []models.Task{
		{ID: 1},
		{ID: 2, DueDate: at(2026, 10, 25, 0, 0, 0)},
		{ID: 3},
		{ID: 4, DueDate: at(2026, 10, 20, 0, 0, 0)},
	}

	assert.Equal(t, []int64{4, 2, 1, 3}, ids(SortByDueDate(tasks)))
}

func TestSortByCreated_NewestFirst(t *testing.T) {
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	tasks := []models.Task{
		{ID: 1, CreatedAt: base},
		{ID: 2, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 3, CreatedAt: base.Add(time.Hour)},
	}

	assert.Equal(t, []int64{2, 3, 1}, ids(SortByCreated(tasks)))
}

func TestSortAlphabetical(t *testing.T) {
	tasks := []models.Task{
		{ID: 1, Title: "banana"},
		{ID: 2, Title: "Apple"},
		{ID: 3, Title: "apple"},
		{ID: 4, Title: "Cherry"},
		{ID: 5, Title: "Apple"},
	}

	// "Apple" < "apple" in byte order; the two "Apple"s keep input order
	assert.Equal(t, []int64{2, 5, 3, 1, 4}, ids(SortAlphabetical(tasks)))
}

func TestSort_Dispatch(t *testing.T) {
	tasks := []models.Task{
		{ID: 1, Title: "b", Priority: models.PriorityLow},
		{ID: 2, Title: "a", Priority: models.PriorityHigh},
	}

	assert.Equal(t, []int64{2, 1}, ids(Sort(tasks, SortPriority)))
	assert.Equal(t, []int64{2, 1}, ids(Sort(tasks, SortTitle)))
	assert.Equal(t, []int64{1, 2}, ids(Sort(tasks, SortKey("bogus"))))
}
