package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCommand(t *testing.T) {
	tests := []struct {
		name    string
		command string
		test    Test
		want    string
		wantErr string
	}{
		{
			name:    "no variables",
			command: "echo hi",
			want:    "echo hi",
		},
		{
			name:    "option variable",
			command: "echo {{.greeting}}",
			test:    Test{Options: map[string]any{"greeting": "hi"}},
			want:    "echo hi",
		},
		{
			name:    "input variable",
			command: "concat {{.inputFile}}",
			test:    Test{Inputs: map[string]string{"inputFile": "a.txt"}},
			want:    "concat a.txt",
		},
		{
			name:    "options and inputs together",
			command: "split -n {{.chunks}} {{.inputFile}}",
			test: Test{
				Options: map[string]any{"chunks": 3},
				Inputs:  map[string]string{"inputFile": "a.txt"},
			},
			want: "split -n 3 a.txt",
		},
		{
			name:    "missing variable",
			command: "echo {{.nope}}",
			wantErr: "failed to render command",
		},
		{
			name:    "malformed template",
			command: "echo {{.oops",
			wantErr: "failed to parse command template",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderCommand(tt.command, tt.test)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
