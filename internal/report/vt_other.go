//go:build !windows

package report

// ANSI sequences work on every other supported terminal.
func enableVT() {}

// EnableVT prepares the console for the interactive browser in explain.
func EnableVT() {}
