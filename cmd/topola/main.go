// Command topola is the CLI driver (A5): it loads a board description,
// replays a command stream against it, writes a session snapshot, and
// exits with the code spec.md §6 assigns. Structured as a thin main.go
// delegating to cmd's cobra tree, the same split OpenTraceJTAG's
// cmd/jtag/main.go and cmd/jtag/cmd package use.
package main

import (
	"os"

	"topola/cmd/topola/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
