package main

import "github.com/fatih/color"

// Version information. Overridable at build time via -ldflags.

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)

	// version is the semantic version of the CLI.
	version = versionMajorColor.Sprint("0") + "." + versionMinorColor.Sprint("1") + ".0-dev"
)
