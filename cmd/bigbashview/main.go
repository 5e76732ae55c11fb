// bigbashview CLI - loopback page server for shell-script driven HTML apps
package main

import (
	"github.com/biglinux/bigbashview/pkg/cli"
)

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cli.Version = Version
	cli.Commit = Commit
	cli.BuildDate = BuildDate
	cli.Execute()
}
