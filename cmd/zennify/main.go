// Package main is the single-binary entrypoint for Zennify.
package main

import "github.com/zennify/zennify/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
