package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name       string
		env        string
		preference string
		want       Platform
	}{
		{"defaults to desktop", "", "", Desktop},
		{"auto is desktop", "", "auto", Desktop},
		{"configured web", "", "web", Web},
		{"env wins", "desktop", "web", Desktop},
		{"env is case-insensitive", " WEB ", "desktop", Web},
		{"unknown env falls back to preference", "mainframe", "web", Web},
		{"unknown everything", "mainframe", "phone", Desktop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(key string) string {
				if key == Env {
					return tt.env
				}
				return ""
			}
			assert.Equal(t, tt.want, Detect(tt.preference, getenv))
		})
	}
	assert.Equal(t, Web, Detect("web", nil))
}
