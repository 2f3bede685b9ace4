package flamegraph

import (
	"bufio"
	"fmt"
	"html"
	"io"
)

// SVGOptions configures the flame graph SVG output.
type SVGOptions struct {
	Canvas   Canvas
	FontSize int
}

// DefaultSVGOptions returns sensible defaults.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		Canvas:   DefaultCanvas(),
		FontSize: 12,
	}
}

// GenerateSVG lays out the tree and writes it as an SVG document. It returns
// the number of rectangles drawn.
func GenerateSVG(t *Tree, svg io.Writer, opts SVGOptions) (int, error) {
	if opts.Canvas == (Canvas{}) {
		opts.Canvas = DefaultCanvas()
	}
	prims := Layout(t, opts.Canvas)
	return len(prims), WriteSVG(svg, prims, opts)
}

// WriteSVG writes a white canvas followed by one rectangle and optional
// label per primitive.
func WriteSVG(svg io.Writer, prims []Primitive, opts SVGOptions) error {
	if opts.FontSize == 0 {
		opts.FontSize = 12
	}
	c := opts.Canvas
	w := bufio.NewWriter(svg)

	fmt.Fprintf(w, `<?xml version="1.0" standalone="no"?>
<svg version="1.1" width="%d" height="%d" viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg">
<rect x="0" y="0" width="%d" height="%d" fill="#ffffff"/>
`,
		c.Width, c.Height, c.Width, c.Height,
		c.Width, c.Height)

	for _, p := range prims {
		fmt.Fprintf(w, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s" stroke="#000000" stroke-width="1"/>
`, p.Rect.X, p.Rect.Y, p.Rect.Width, p.Rect.Height, p.Fill.Hex())

		if p.Label != nil {
			fmt.Fprintf(w, `<text x="%d" y="%d" font-size="%d" fill="#000000">%s</text>
`, p.Label.X, p.Label.Y, opts.FontSize, html.EscapeString(p.Label.Text))
		}
	}

	fmt.Fprintln(w, "</svg>")
	return w.Flush()
}
