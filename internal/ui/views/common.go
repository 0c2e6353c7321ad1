package views

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Storage calls made from a view give up after this long
const opTimeout = 5 * time.Second

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// ErrMsg carries a failed storage call back into the view that issued it
type ErrMsg struct {
	Op  string
	Err error
}

func (e ErrMsg) Error() string { return e.Op + ": " + e.Err.Error() }

func failed(op string, err error) tea.Msg {
	return ErrMsg{Op: op, Err: err}
}
