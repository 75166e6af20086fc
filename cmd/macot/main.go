package main

import (
	"os"

	"github.com/marcus/macot/internal/cli"
)

// version is set at build time via -ldflags, the way
// cmd/sidecar/main.go's Version var is injected.
var version = ""

func main() {
	if version != "" {
		cli.SetVersion(version)
	}
	os.Exit(cli.Execute())
}
