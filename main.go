// The main package for the cdxq executable.
package main

import (
	"github.com/openwebindex/cdxq/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
