package jobs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/informaticsmatters/jote/internal/iostreams"
)

// CopyInputs stages a test's input files from the repository data
// directory into the test project directory. A missing input file is a
// test failure.
func CopyInputs(ios *iostreams.IOStreams, dataDir string, inputs map[string]string, projectPath string) error {
	fmt.Fprintln(ios.ErrOut, "# Copying inputs...")

	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		src := filepath.Join(dataDir, inputs[name])
		fmt.Fprintf(ios.ErrOut, "# + %s (%s)\n", src, name)

		info, err := os.Stat(src)
		if err != nil || info.IsDir() {
			return fmt.Errorf("missing input file %s (%s)", src, name)
		}

		if err := copyFile(src, filepath.Join(projectPath, filepath.Base(src))); err != nil {
			return fmt.Errorf("failed to copy input %s: %w", src, err)
		}
	}

	fmt.Fprintln(ios.ErrOut, "# Copied")

	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
