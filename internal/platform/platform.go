// Package platform decides which storage backend the process runs on.
package platform

import "strings"

// Platform names a storage backend
type Platform string

const (
	Desktop Platform = "desktop"
	Web     Platform = "web"
)

// Env is the environment variable that overrides the configured platform
const Env = "YUFLOW_PLATFORM"

// Detect resolves the platform. The environment variable wins over preference;
// "auto", empty and unknown values resolve to Desktop since the native store is
// always built in.
func Detect(preference string, getenv func(string) string) Platform {
	if getenv != nil {
		if p, ok := parse(getenv(Env)); ok {
			return p
		}
	}
	if p, ok := parse(preference); ok {
		return p
	}
	return Desktop
}

func parse(s string) (Platform, bool) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case Desktop:
		return Desktop, true
	case Web:
		return Web, true
	}
	return "", false
}
