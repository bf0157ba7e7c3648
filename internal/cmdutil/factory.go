// Package cmdutil provides shared plumbing for jote commands.
package cmdutil

import (
	"context"

	"github.com/informaticsmatters/jote/internal/config"
	"github.com/informaticsmatters/jote/internal/iostreams"
)

// Factory provides shared dependencies for CLI commands. It is a
// dependency injection container: closure fields are wired by
// internal/cmd/factory and use lazy initialization internally.
type Factory struct {
	// WorkDir is where settings and definitions are resolved from.
	WorkDir string

	// Version info (set at build time via ldflags)
	Version string

	// IOStreams for input/output (for testability)
	IOStreams *iostreams.IOStreams

	// Settings loads runtime settings, cached after the first call.
	Settings func() (*config.Settings, error)

	// ComposeVersion queries the orchestration CLI version. The wiring
	// guarantees the underlying query runs at most once per process.
	ComposeVersion func(context.Context) (string, error)
}
