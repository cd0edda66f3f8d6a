// Package export renders stored load paths for use outside the terminal.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/equilib/internal/loadstep"
)

// LoadPathSVG draws reaction against displacement, from the unloaded
// origin through every recorded step, as a single SVG path.
func LoadPathSVG(h *loadstep.History, width, height int, strokeColor string) string {
	if len(h.Steps) == 0 {
		return ""
	}
	xs := append([]float64{0}, h.Displacements()...)
	ys := append([]float64{0}, h.Reactions()...)
	return PathSVG(xs, ys, width, height, strokeColor)
}

// PathSVG joins (xs[i], ys[i]) into a polyline scaled to width x height
// with a 10% margin around the data bounds.
func PathSVG(xs, ys []float64, width, height int, strokeColor string) string {
	n := min(len(xs), len(ys))
	if n < 2 {
		return ""
	}

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := 0; i < n; i++ {
		minX, maxX = min(minX, xs[i]), max(maxX, xs[i])
		minY, maxY = min(minY, ys[i]), max(maxY, ys[i])
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder

	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	// axes through the origin when it is in view
	if minX <= 0 && 0 <= maxX {
		x := -minX / rangeX * float64(width)
		fmt.Fprintf(&sb, `<line x1="%.1f" y1="0" x2="%.1f" y2="%d" stroke="#444466"/>
`, x, x, height)
	}
	if minY <= 0 && 0 <= maxY {
		y := float64(height) + minY/rangeY*float64(height)
		fmt.Fprintf(&sb, `<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#444466"/>
`, y, width, y)
	}

	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor)
	for i := 0; i < n; i++ {
		x := (xs[i] - minX) / rangeX * float64(width)
		y := float64(height) - (ys[i]-minY)/rangeY*float64(height)

		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>
`)
	return sb.String()
}

// WriteLoadPathSVG writes LoadPathSVG to w.
func WriteLoadPathSVG(w io.Writer, h *loadstep.History, width, height int, strokeColor string) error {
	svg := LoadPathSVG(h, width, height, strokeColor)
	if svg == "" {
		return fmt.Errorf("no data to export")
	}
	_, err := io.WriteString(w, svg)
	return err
}
