// Command freshguard runs the expiry engine: the HTTP API, the scheduled
// notification and archive jobs, and the schema migrations.
package main

import (
	"os"

	_ "time/tzdata"

	"github.com/turtacn/FreshGuard/internal/interfaces/cli"
)

// Set via -ldflags "-X main.version=...".
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
