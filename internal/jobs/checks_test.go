package jobs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/informaticsmatters/jote/internal/iostreams"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func TestCheckOutputs(t *testing.T) {
	projectPath := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(projectPath, "out.txt"), []byte("a\nb\nc\n"), 0o644))

	tests := []struct {
		name    string
		outputs []OutputCheck
		wantErr string
	}{
		{
			name: "exists passes",
			outputs: []OutputCheck{{
				Name:   "out.txt",
				Checks: []FileCheck{{Exists: boolPtr(true)}},
			}},
		},
		{
			name: "exists fails for missing file",
			outputs: []OutputCheck{{
				Name:   "missing.txt",
				Checks: []FileCheck{{Exists: boolPtr(true)}},
			}},
			wantErr: "expected to exist",
		},
		{
			name: "not-exists passes for missing file",
			outputs: []OutputCheck{{
				Name:   "missing.txt",
				Checks: []FileCheck{{Exists: boolPtr(false)}},
			}},
		},
		{
			name: "not-exists fails for present file",
			outputs: []OutputCheck{{
				Name:   "out.txt",
				Checks: []FileCheck{{Exists: boolPtr(false)}},
			}},
			wantErr: "expected to not exist",
		},
		{
			name: "line count passes",
			outputs: []OutputCheck{{
				Name:   "out.txt",
				Checks: []FileCheck{{LineCount: intPtr(3)}},
			}},
		},
		{
			name: "line count mismatch",
			outputs: []OutputCheck{{
				Name:   "out.txt",
				Checks: []FileCheck{{LineCount: intPtr(5)}},
			}},
			wantErr: "found 3 lines, expected 5",
		},
		{
			name: "unknown check type",
			outputs: []OutputCheck{{
				Name:   "out.txt",
				Checks: []FileCheck{{}},
			}},
			wantErr: "unknown check type",
		},
		{
			name: "multiple checks stop at first failure",
			outputs: []OutputCheck{{
				Name: "out.txt",
				Checks: []FileCheck{
					{Exists: boolPtr(true)},
					{LineCount: intPtr(1)},
				},
			}},
			wantErr: "found 3 lines, expected 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ios := iostreams.NewTestIOStreams()
			err := CheckOutputs(ios.IOStreams, projectPath, tt.outputs)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCheckLineCountLongLines(t *testing.T) {
	projectPath := t.TempDir()

	// A single record can be far larger than any default token buffer.
	long := strings.Repeat("C", 256*1024)
	content := long + "\n" + "CCO\n"
	require.NoError(t, os.WriteFile(
		filepath.Join(projectPath, "long.smi"), []byte(content), 0o644))

	ios := iostreams.NewTestIOStreams()
	outputs := []OutputCheck{{
		Name:   "long.smi",
		Checks: []FileCheck{{LineCount: intPtr(2)}},
	}}
	require.NoError(t, CheckOutputs(ios.IOStreams, projectPath, outputs))
}

func TestCheckLineCountUnterminatedFinalLine(t *testing.T) {
	projectPath := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(projectPath, "out.txt"), []byte("a\nb"), 0o644))

	ios := iostreams.NewTestIOStreams()
	outputs := []OutputCheck{{
		Name:   "out.txt",
		Checks: []FileCheck{{LineCount: intPtr(2)}},
	}}
	require.NoError(t, CheckOutputs(ios.IOStreams, projectPath, outputs))
}
