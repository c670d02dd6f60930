package render

import (
	"image/color"
	"sort"
)

// ColorAssignment maps class labels to display colors.
type ColorAssignment map[string]color.NRGBA

// palette is the fixed color table overlays draw from. Colors repeat once
// the table is exhausted.
var palette = []color.NRGBA{
	{230, 25, 75, 255},   // red
	{60, 180, 75, 255},   // green
	{255, 225, 25, 255},  // yellow
	{0, 130, 200, 255},   // blue
	{245, 130, 48, 255},  // orange
	{145, 30, 180, 255},  // purple
	{70, 240, 240, 255},  // cyan
	{240, 50, 230, 255},  // magenta
	{210, 245, 60, 255},  // lime
	{250, 190, 212, 255}, // pink
	{0, 128, 128, 255},   // teal
	{220, 190, 255, 255}, // lavender
}

// AssignColors maps each distinct label to a palette color. Labels are
// sorted ascending before assignment, so the same label set always yields
// the same mapping regardless of prediction insertion order.
func AssignColors(labels []string) ColorAssignment {
	distinct := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		distinct = append(distinct, label)
	}
	sort.Strings(distinct)

	colors := make(ColorAssignment, len(distinct))
	for i, label := range distinct {
		colors[label] = palette[i%len(palette)]
	}
	return colors
}
