// Package version carries build metadata injected with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/MrSnakeDoc/toonshare/internal/version.Version=v0.3.0"
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
	GoVersion = runtime.Version()
)

// String renders the metadata on one line for logs and the CLI.
func String() string {
	return fmt.Sprintf("toonshare %s (commit=%s, built=%s, go=%s)", Version, Commit, BuildDate, GoVersion)
}
