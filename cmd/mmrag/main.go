// cmd/mmrag/main.go
package main

import (
	cmd "github.com/mwiater/mmrag/internal/commands"
)

// Set by the release build through -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// main starts the mmrag CLI application by delegating to the
// cobra root command defined in the commands package.
func main() {
	cmd.SetVersionInfo(version, commit, date)
	cmd.Execute()
}
