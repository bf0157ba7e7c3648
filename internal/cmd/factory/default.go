// Package factory wires the real implementations behind cmdutil.Factory.
package factory

import (
	"context"
	"os"
	"sync"

	"github.com/informaticsmatters/jote/internal/cmdutil"
	"github.com/informaticsmatters/jote/internal/compose"
	"github.com/informaticsmatters/jote/internal/config"
	"github.com/informaticsmatters/jote/internal/iostreams"
)

// New creates a Factory with default (real) implementations.
func New(version string) *cmdutil.Factory {
	workDir, err := os.Getwd()
	if err != nil {
		workDir = "."
	}

	settings := sync.OnceValues(func() (*config.Settings, error) {
		return config.NewLoader(workDir).Load()
	})

	// Query-at-most-once: the version is informational and process
	// scoped, so the memoization lives here rather than in package
	// state inside compose.
	var (
		versionOnce sync.Once
		versionStr  string
		versionErr  error
	)
	composeVersion := func(ctx context.Context) (string, error) {
		versionOnce.Do(func() {
			versionStr, versionErr = compose.Version(ctx)
		})
		return versionStr, versionErr
	}

	return &cmdutil.Factory{
		WorkDir:        workDir,
		Version:        version,
		IOStreams:      iostreams.NewIOStreams(),
		Settings:       settings,
		ComposeVersion: composeVersion,
	}
}
