//go:build windows

package report

import (
	"os"

	"golang.org/x/sys/windows"
)

// enableVT turns on escape sequence handling for the console: colour codes
// written to stdout, and arrow keys read from stdin in raw mode. Streams that
// are not consoles are left alone.
func enableVT() {
	addConsoleMode(os.Stdin, windows.ENABLE_VIRTUAL_TERMINAL_INPUT)
	addConsoleMode(os.Stdout, windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING)
}

func addConsoleMode(f *os.File, flag uint32) {
	h := windows.Handle(f.Fd())
	var mode uint32
	if err := windows.GetConsoleMode(h, &mode); err != nil {
		return
	}
	_ = windows.SetConsoleMode(h, mode|flag)
}

// EnableVT prepares the console for the interactive browser in explain.
func EnableVT() { enableVT() }
