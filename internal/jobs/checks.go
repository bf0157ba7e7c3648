package jobs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/informaticsmatters/jote/internal/iostreams"
)

// CheckOutputs runs the declared output checks against the test project
// directory. The returned error describes the first failed check; it is
// a test failure for the caller to report, not a harness fault.
func CheckOutputs(ios *iostreams.IOStreams, projectPath string, outputs []OutputCheck) error {
	fmt.Fprintln(ios.ErrOut, "# Checking...")

	for _, output := range outputs {
		fmt.Fprintf(ios.ErrOut, "# - %s\n", output.Name)
		path := filepath.Join(projectPath, output.Name)

		for _, check := range output.Checks {
			switch {
			case check.Exists != nil:
				if err := checkExists(path, *check.Exists); err != nil {
					return fmt.Errorf("output %q: %w", output.Name, err)
				}
				fmt.Fprintf(ios.ErrOut, "#   exists (%t) [OK]\n", *check.Exists)
			case check.LineCount != nil:
				if err := checkLineCount(path, *check.LineCount); err != nil {
					return fmt.Errorf("output %q: %w", output.Name, err)
				}
				fmt.Fprintf(ios.ErrOut, "#   lineCount (%d) [OK]\n", *check.LineCount)
			default:
				return fmt.Errorf("output %q: unknown check type", output.Name)
			}
		}
	}

	fmt.Fprintln(ios.ErrOut, "# Checked")

	return nil
}

func checkExists(path string, expected bool) error {
	_, err := os.Stat(path)
	exists := err == nil
	if expected && !exists {
		return fmt.Errorf("expected to exist, does not")
	}
	if !expected && exists {
		return fmt.Errorf("expected to not exist, does")
	}
	return nil
}

func checkLineCount(path string, expected int) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	// Lines can be arbitrarily long (SMILES files with huge records),
	// so read line by line rather than through a token scanner with a
	// fixed limit. A trailing line without a newline still counts.
	lines := 0
	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			lines++
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
	}

	if lines != expected {
		return fmt.Errorf("found %d lines, expected %d", lines, expected)
	}
	return nil
}
