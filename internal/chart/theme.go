// Package chart turns price series and indicator overlays into chart
// documents: a plotly-compatible figure for the browser and PNG images.
package chart

import (
	"strings"

	"github.com/vicanso/go-charts/v2"
)

// Theme selects light or dark styling.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme maps user input to a Theme, defaulting to light.
func ParseTheme(s string) Theme {
	if strings.EqualFold(strings.TrimSpace(s), string(ThemeDark)) {
		return ThemeDark
	}
	return ThemeLight
}

type palette struct {
	paper, plot, font, grid string
}

func (t Theme) palette() palette {
	if t == ThemeDark {
		return palette{paper: "#0e1117", plot: "#0e1117", font: "#fafafa", grid: "#262730"}
	}
	return palette{paper: "#ffffff", plot: "#ffffff", font: "#262730", grid: "#e6e6e6"}
}

func (t Theme) goCharts() string {
	if t == ThemeDark {
		return charts.ThemeDark
	}
	return charts.ThemeLight
}
