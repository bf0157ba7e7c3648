package compose

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// versionTimeout bounds the informational "version" query.
const versionTimeout = 4 * time.Second

// versionPrefix starts the first line of "docker-compose version"
// output, e.g. "docker-compose version 1.29.2, build unknown".
const versionPrefix = "docker-compose version "

// Version queries the installed docker-compose version. It is purely
// informational: callers log it once per run and otherwise ignore it.
// Use something like sync.OnceValues to hold the query-at-most-once
// discipline; this function itself caches nothing.
func Version(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "docker-compose", "version").Output()
	if err != nil {
		return "", err
	}
	return parseVersionOutput(string(out)), nil
}

// parseVersionOutput extracts the version string from the first line of
// "docker-compose version" output by stripping its fixed-length prefix.
func parseVersionOutput(out string) string {
	line, _, _ := strings.Cut(out, "\n")
	if len(line) > len(versionPrefix) {
		return line[len(versionPrefix):]
	}
	return line
}
