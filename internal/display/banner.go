// Package display provides the startup banner, human-readable value
// formatting, and the end-of-run summary block.
package display

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/ab604/pi-sunrise-timelapse/internal/term"
)

var bannerStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("213")).
	Bold(true)

// PrintBanner prints the ASCII art banner, styled when colors are enabled.
func PrintBanner() {
	art := `  ___ _   _ _ __  _ __(_)___  ___
 / __| | | | '_ \| '__| / __|/ _ \
 \__ \ |_| | | | | |  | \__ \  __/
 |___/\__,_|_| |_|_|  |_|___/\___|  timelapse
`
	if term.Enabled() {
		fmt.Fprintln(os.Stdout, bannerStyle.Render(art))
		return
	}
	fmt.Fprint(os.Stdout, art)
}
