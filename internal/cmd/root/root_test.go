package root

import (
	"context"
	"testing"
	"time"

	"github.com/informaticsmatters/jote/internal/cmdutil"
	"github.com/informaticsmatters/jote/internal/config"
	"github.com/informaticsmatters/jote/internal/iostreams"
)

func testFactory() (*cmdutil.Factory, *iostreams.TestIOStreams) {
	tio := iostreams.NewTestIOStreams()
	f := &cmdutil.Factory{
		IOStreams: tio.IOStreams,
		Settings: func() (*config.Settings, error) {
			return &config.Settings{
				DefinitionDirectory: config.DefaultDefinitionDirectory,
				DataDirectory:       config.DefaultDataDirectory,
				RunTimeout:          config.DefaultRunTimeout,
			}, nil
		},
		ComposeVersion: func(context.Context) (string, error) { return "test", nil },
	}
	return f, tio
}

func TestNewCmdRootDefaults(t *testing.T) {
	f, tio := testFactory()

	var gotOpts *RunOptions
	cmd := NewCmdRoot(f, func(_ context.Context, opts *RunOptions) error {
		gotOpts = opts
		return nil
	})

	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotOpts == nil {
		t.Fatal("expected runF to be called")
	}
	if gotOpts.IOStreams != tio.IOStreams {
		t.Error("expected IOStreams to be set from factory")
	}
	if gotOpts.Collection != "" || gotOpts.Job != "" || gotOpts.Test != "" {
		t.Error("expected selectors to default to empty")
	}
	if gotOpts.DryRun || gotOpts.KeepResults || gotOpts.Verbose || gotOpts.ExitOnFailure {
		t.Error("expected boolean flags to default to false")
	}
	if gotOpts.RunTimeout != 0 {
		t.Error("expected RunTimeout to default to zero (settings decide)")
	}
}

func TestNewCmdRootFlags(t *testing.T) {
	f, _ := testFactory()

	var gotOpts *RunOptions
	cmd := NewCmdRoot(f, func(_ context.Context, opts *RunOptions) error {
		gotOpts = opts
		return nil
	})

	cmd.SetArgs([]string{
		"-c", "dm-jobs", "-j", "concat", "-t", "simple",
		"-d", "-v", "-x", "--run-timeout", "5m",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotOpts == nil {
		t.Fatal("expected runF to be called")
	}
	if gotOpts.Collection != "dm-jobs" || gotOpts.Job != "concat" || gotOpts.Test != "simple" {
		t.Errorf("unexpected selectors: %+v", gotOpts)
	}
	if !gotOpts.DryRun || !gotOpts.Verbose || !gotOpts.ExitOnFailure {
		t.Error("expected boolean flags to be set")
	}
	if gotOpts.RunTimeout != 5*time.Minute {
		t.Errorf("expected RunTimeout 5m, got %s", gotOpts.RunTimeout)
	}
}

func TestNewCmdRootFlagDependencies(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"test requires job", []string{"-t", "simple"}},
		{"job requires collection", []string{"-j", "concat"}},
		{"dry-run conflicts with keep-results", []string{"-d", "-k"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := testFactory()
			called := false
			cmd := NewCmdRoot(f, func(_ context.Context, _ *RunOptions) error {
				called = true
				return nil
			})
			cmd.SetArgs(tt.args)
			if err := cmd.Execute(); err == nil {
				t.Fatal("expected an error")
			}
			if called {
				t.Error("expected runF not to be called")
			}
		})
	}
}
