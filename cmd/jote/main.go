// Jote is the Data Manager Job Tester: it runs the tests declared in
// Data Manager job definitions, one containerized Job at a time.
package main

import (
	"fmt"
	"os"

	"github.com/informaticsmatters/jote/internal/cmd/factory"
	"github.com/informaticsmatters/jote/internal/cmd/root"
	"github.com/informaticsmatters/jote/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	defer logger.CloseFileWriter()

	f := factory.New(version)
	rootCmd := root.NewCmdRoot(f, nil)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
