package featureflags

import (
	"os"
	"sort"
	"strings"
)

// Known flags
const (
	// DisableRegistration closes POST /api/auth/register; operators are then
	// seeded with ADMIN_EMAIL or created directly in the store
	DisableRegistration = "disable_registration"
)

var known = []string{DisableRegistration}

const envPrefix = "FLAG_"

// Enabled reports whether FLAG_<NAME> is set to true, 1, yes or on (any case)
func Enabled(name string) bool {
	return truthy(os.Getenv(envKey(name)))
}

// Active lists the known flags that are currently on, sorted
func Active() []string {
	var on []string
	for _, name := range known {
		if Enabled(name) {
			on = append(on, name)
		}
	}
	sort.Strings(on)
	return on
}

func envKey(name string) string {
	return envPrefix + strings.ToUpper(name)
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
