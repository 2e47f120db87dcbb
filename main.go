package main

import "github.com/dotcommander/autonomy/cmd"

// version is overridden with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cmd.Version = version
	cmd.Execute()
}
