package jobs

import (
	"fmt"
	"strings"
	"text/template"
)

// RenderCommand renders a job command template against the variables
// collected from a test's options and inputs. A reference to a missing
// variable is an error, not an empty substitution: a silently truncated
// command would otherwise run and fail in a confusing way.
func RenderCommand(command string, test Test) (string, error) {
	variables := make(map[string]any, len(test.Options)+len(test.Inputs))
	for name, value := range test.Options {
		variables[name] = value
	}
	for name, value := range test.Inputs {
		variables[name] = value
	}

	tmpl, err := template.New("command").Option("missingkey=error").Parse(command)
	if err != nil {
		return "", fmt.Errorf("failed to parse command template: %w", err)
	}

	var rendered strings.Builder
	if err := tmpl.Execute(&rendered, variables); err != nil {
		return "", fmt.Errorf("failed to render command: %w", err)
	}
	return rendered.String(), nil
}
