package main

import (
	"bufio"
	"fmt"
	"os"

	"golang.org/x/term"

	"catastro/internal/report"
)

// interactiveSelect lets the user move through lines with arrow keys and press
// Enter to run show on the selected index. It returns when the user quits.
func interactiveSelect(lines []string, show func(i int)) {
	if len(lines) == 0 {
		return
	}

	report.EnableVT()

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Println("(interactive selection not supported on this terminal)")
		return
	}
	defer func() { term.Restore(fd, oldState) }()

	reader := bufio.NewReader(os.Stdin)

	selected := 0
	top := 0
	_, height, err := term.GetSize(fd)
	if err != nil || height < 5 {
		height = 25
	}
	page := height - 2

	redraw := func() {
		if selected < top {
			top = selected
		}
		if selected >= top+page {
			top = selected - page + 1
		}
		// Clear screen (ANSI reset to top + clear screen)
		fmt.Print("\033[H\033[2J")
		for i := top; i < len(lines) && i < top+page; i++ {
			prefix := "  "
			if i == selected {
				prefix = "> "
			}
			fmt.Print(prefix + lines[i] + "\r\n")
		}
		fmt.Print("(↑/↓ para moverse, Enter para ver cambios, Esc para salir)\r\n")
	}

	open := func() bool {
		term.Restore(fd, oldState) // cooked mode while showing details
		fmt.Println()
		show(selected)

		fmt.Print("\n(Enter para volver)")
		_, _ = bufio.NewReader(os.Stdin).ReadBytes('\n')

		oldState, err = term.MakeRaw(fd)
		if err != nil {
			return false
		}
		reader = bufio.NewReader(os.Stdin)
		redraw()
		return true
	}

	up := func() {
		if selected > 0 {
			selected--
			redraw()
		}
	}
	down := func() {
		if selected < len(lines)-1 {
			selected++
			redraw()
		}
	}

	redraw()

	for {
		b1, err := reader.ReadByte()
		if err != nil {
			return
		}
		// Handle Windows console arrow sequences (0 or 224, then code)
		if b1 == 0 || b1 == 224 {
			b2, _ := reader.ReadByte()
			switch b2 {
			case 72:
				up()
			case 80:
				down()
			case 13:
				if !open() {
					return
				}
			}
			continue
		}

		switch b1 {
		case 27: // ESC or ANSI sequence
			if reader.Buffered() == 0 {
				fmt.Print("\r\n")
				return
			}
			b2, _ := reader.ReadByte()
			if b2 != '[' || reader.Buffered() == 0 {
				continue
			}
			b3, _ := reader.ReadByte()
			switch b3 {
			case 'A':
				up()
			case 'B':
				down()
			}
		case '\r', '\n':
			if !open() {
				return
			}
		case 3: // Ctrl-C
			fmt.Print("\r\n")
			return
		}
	}
}
