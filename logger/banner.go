package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var bannerArt = []string{
	"████████╗ █████╗ ██╗  ██╗███████╗██████╗ ",
	"╚══██╔══╝██╔══██╗██║ ██╔╝██╔════╝██╔══██╗",
	"   ██║   ███████║█████╔╝ █████╗  ██████╔╝",
	"   ██║   ██╔══██║██╔═██╗ ██╔══╝  ██╔══██╗",
	"   ██║   ██║  ██║██║  ██╗███████╗██║  ██║",
	"   ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝",
}

var bannerPalette = []color.Attribute{
	color.FgRed,
	color.FgGreen,
	color.FgBlue,
	color.FgMagenta,
	color.FgYellow,
	color.FgCyan,
}

const bannerTagline = "✦ Light Mining Auto Farming ✦"

// Banner writes the startup banner to w.
func Banner(w io.Writer) {
	width := 0
	for _, line := range bannerArt {
		if n := len([]rune(line)); n > width {
			width = n
		}
	}

	fmt.Fprintln(w)
	for i, line := range bannerArt {
		fmt.Fprintln(w, color.New(bannerPalette[i%len(bannerPalette)]).Sprint(line))
	}

	pad := (width - len([]rune(bannerTagline))) / 2
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintln(w, strings.Repeat(" ", pad)+color.YellowString(bannerTagline))
	fmt.Fprintln(w)
}
