package display

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ab604/pi-sunrise-timelapse/internal/term"
)

var (
	summaryTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("114")).
				Bold(true)

	summaryBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1)

	summaryFailStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("203")).
				Bold(true)
)

// Summary is the end-of-run report rendered after cleanup.
type Summary struct {
	Outcome     string // "success", or "failed at <stage>"
	Succeeded   bool
	SunriseAt   string
	VideoPath   string
	VideoSize   int64
	Description string
	PostURI     string
	PostLink    string
	SweptFiles  int
	Elapsed     string
}

// PrintSummary renders the end-of-run block. With colors enabled it draws a
// bordered box; otherwise it falls back to plain indented lines so cron
// emails stay readable.
func PrintSummary(s Summary) {
	lines := []string{"Run: " + s.Outcome}
	if s.SunriseAt != "" {
		lines = append(lines, "Sunrise:     "+s.SunriseAt)
	}
	if s.VideoPath != "" {
		lines = append(lines, "Video:       "+s.VideoPath+" ("+FormatMB(s.VideoSize)+")")
	}
	if s.Description != "" {
		lines = append(lines, "Description: "+s.Description)
	}
	if s.PostURI != "" {
		lines = append(lines, "Post:        "+s.PostURI)
	}
	if s.PostLink != "" {
		lines = append(lines, "Link:        "+s.PostLink)
	}
	lines = append(lines, fmt.Sprintf("Swept:       %d old file(s)", s.SweptFiles))
	if s.Elapsed != "" {
		lines = append(lines, "Elapsed:     "+s.Elapsed)
	}

	if !term.Enabled() {
		for _, l := range lines {
			fmt.Fprintln(os.Stdout, "  "+l)
		}
		return
	}

	title := summaryTitleStyle.Render(lines[0])
	if !s.Succeeded {
		title = summaryFailStyle.Render(lines[0])
	}
	body := strings.Join(append([]string{title}, lines[1:]...), "\n")
	fmt.Fprintln(os.Stdout, summaryBoxStyle.Render(body))
}
