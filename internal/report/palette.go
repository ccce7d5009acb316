package report

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tollsimy/rapid/internal/record"
)

// Palette keys besides classes and event kinds.
const (
	KeySDC     = "SDC"
	KeyClean   = "clean"
	KeyMissing = "missing"
	KeyUnknown = "unknown"
	KeyOther   = "other"
	KeyAll     = "all"
)

// Palette maps report categories to colors. Values are never modified in
// place; With returns an extended copy.
type Palette struct {
	colors map[string]lipgloss.Color
}

// DefaultPalette returns the standard category colors.
func DefaultPalette() Palette {
	return Palette{colors: map[string]lipgloss.Color{
		string(record.ClassPassed):      "#2ecc71",
		string(record.ClassFailed):      "#e74c3c",
		string(record.ClassOutlier):     "#3498db",
		string(record.EventTrap):        "#9b59b6",
		string(record.EventHalt):        "#f39c12",
		string(record.EventCommFailure): "#34495e",
		string(record.EventExecFailure): "#7f8c8d",
		string(record.EventHWReset):     "#c0392b",
		KeySDC:                          "#e67e22",
		KeyClean:                        "#a9dfbf",
		KeyMissing:                      "#95a5a6",
		KeyUnknown:                      "#7f8c8d",
		KeyOther:                        "#95a5a6",
		KeyAll:                          "#85c1e9",
	}}
}

// With returns a copy of p with key set to color.
func (p Palette) With(key, color string) Palette {
	colors := make(map[string]lipgloss.Color, len(p.colors)+1)
	for k, v := range p.colors {
		colors[k] = v
	}
	colors[key] = lipgloss.Color(color)
	return Palette{colors: colors}
}

// Color returns the color of key.
func (p Palette) Color(key string) (lipgloss.Color, bool) {
	c, ok := p.colors[key]
	return c, ok
}
