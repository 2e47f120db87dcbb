package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// frameDelay scales the unlock animation; tests set it to zero.
var frameDelay = 100 * time.Millisecond

// isTTY returns true if stdout is a terminal
func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// printCelebration shows a sparkle animation for a badge unlock.
func printCelebration(w io.Writer, msg string) {
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	bold := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)

	frames := []struct {
		text  string
		delay time.Duration
	}{
		{green.Render(msg), 2 * frameDelay},
		{yellow.Render("✨ " + msg + " ✨"), 3 * frameDelay},
		{bold.Render("🎉 " + msg + " 🎉"), 4 * frameDelay},
		{yellow.Render("✨ " + msg + " ✨"), 3 * frameDelay},
		{green.Render(msg), 0},
	}

	for i, frame := range frames {
		if i > 0 {
			fmt.Fprint(w, "\r\033[K")
		}
		fmt.Fprint(w, frame.text)
		if frame.delay > 0 {
			time.Sleep(frame.delay)
		}
	}
	fmt.Fprintln(w)
}
