// Package paths provides path resolution utilities.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// Expand resolves a user-supplied path: environment variables are
// substituted and a leading "~" becomes the home directory. An empty path
// stays empty.
//
//   - "~/traces/run.jsonl" -> "/home/me/traces/run.jsonl"
//   - "$TMPDIR/metrics.prom" -> "/tmp/metrics.prom"
func Expand(path string) string {
	if path == "" {
		return ""
	}
	path = os.ExpandEnv(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Clean(path)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Clean(path)
}

// UserConfigDir returns ~/.config/pflow, or "" when the home directory is
// unknown.
func UserConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "pflow")
}
