package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/equilib/internal/loadstep"
)

// Series plots values against their index.
func Series(values []float64, caption string, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// LoadPath draws reaction against displacement for the recorded steps,
// starting from the unloaded origin, so load cycles show as loops.
func LoadPath(h *loadstep.History, width, height int) string {
	if len(h.Steps) == 0 {
		return ""
	}
	us := append([]float64{0}, h.Displacements()...)
	rs := append([]float64{0}, h.Reactions()...)
	return XYPlot(us, rs, "displacement", "reaction", width, height)
}

// XYPlot joins the points (xs[i], ys[i]) with lines on a braille canvas
// of width x height cells framed by the data bounds.
func XYPlot(xs, ys []float64, xLabel, yLabel string, width, height int) string {
	n := min(len(xs), len(ys))
	if n == 0 || width < 1 || height < 1 {
		return ""
	}

	xMin, xMax := bounds(xs[:n])
	yMin, yMax := bounds(ys[:n])
	dotsX, dotsY := 2*width-1, 4*height-1
	px := func(x float64) int { return int(math.Round(float64(dotsX) * (x - xMin) / (xMax - xMin))) }
	py := func(y float64) int { return dotsY - int(math.Round(float64(dotsY)*(y-yMin)/(yMax-yMin))) }

	c := NewCanvas(width, height)
	x0, y0 := px(xs[0]), py(ys[0])
	c.Set(x0, y0)
	for i := 1; i < n; i++ {
		x1, y1 := px(xs[i]), py(ys[i])
		c.DrawLine(x0, y0, x1, y1)
		x0, y0 = x1, y1
	}

	top := fmt.Sprintf("%.4g", yMax)
	bottom := fmt.Sprintf("%.4g", yMin)
	pad := max(len(top), len(bottom))

	var b strings.Builder
	b.WriteString(Subtle.Render(yLabel) + "\n")
	for i, row := range c.Rows() {
		label := ""
		switch i {
		case 0:
			label = top
		case height - 1:
			label = bottom
		}
		fmt.Fprintf(&b, "%*s ┤%s\n", pad, label, row)
	}
	left := fmt.Sprintf("%.4g", xMin)
	right := fmt.Sprintf("%.4g", xMax)
	gap := max(1, width-len(left)-len(right))
	fmt.Fprintf(&b, "%*s  %s%s%s\n", pad, "", left, strings.Repeat(" ", gap), right)
	fmt.Fprintf(&b, "%*s  %s\n", pad, "", Subtle.Render(xLabel))
	return b.String()
}

// bounds returns the range of vs, widened when it is degenerate.
func bounds(vs []float64) (lo, hi float64) {
	lo, hi = vs[0], vs[0]
	for _, v := range vs {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi == lo {
		lo, hi = lo-0.5, hi+0.5
	}
	return lo, hi
}
