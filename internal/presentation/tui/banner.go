package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the orchestra banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"   ___           _               _             ", "#818cf8"},
		{"  / _ \\ _ __ ___| |__   ___  ___| |_ _ __ __ _ ", "#a78bfa"},
		{" | | | | '__/ __| '_ \\ / _ \\/ __| __| '__/ _` |", "#c084fc"},
		{" | |_| | | | (__| | | |  __/\\__ \\ |_| | | (_| |", "#e879f9"},
		{"  \\___/|_|  \\___|_| |_|\\___||___/\\__|_|  \\__,_|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// StepLabel colours an agent step name for progress output.
func StepLabel(step string, failed bool) string {
	p := termenv.ColorProfile()
	color := "#a78bfa"
	if failed {
		color = "#fb7185"
	}
	return termenv.String(step).Foreground(p.Color(color)).Bold().String()
}
