// Package env reads process settings that must be known before config.Load
// runs, such as the log format used while bootstrapping.
package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of key, or fallback when it is unset or blank.
// Each key is tried with and without the NSTC_ prefix, prefixed first.
func Get(key, fallback string) string {
	for _, candidate := range []string{"NSTC_" + key, key} {
		if val := strings.TrimSpace(os.Getenv(candidate)); val != "" {
			return val
		}
	}
	return fallback
}
