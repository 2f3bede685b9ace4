package flamegraph

import (
	"fmt"
	"math/bits"
)

// Canvas fixes the drawing area and row height for a run.
type Canvas struct {
	Width     int
	Height    int
	RowHeight int
}

// DefaultCanvas returns the 1200x800 canvas with 20-unit rows.
func DefaultCanvas() Canvas {
	return Canvas{
		Width:     1200,
		Height:    800,
		RowHeight: 20,
	}
}

// MaxDepth is the number of rows that fit on the canvas.
func (c Canvas) MaxDepth() int {
	if c.RowHeight <= 0 {
		return 0
	}
	return c.Height / c.RowHeight
}

// Minimum rectangle width that gets a label, and the label's offset from the
// rectangle's top-left corner.
const (
	labelMinWidth = 50
	labelInsetX   = 5
	labelInsetY   = 5
)

// Color is an RGB fill.
type Color struct {
	R, G, B uint8
}

// Hex returns the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// NameColor derives a stable color from a function name.
func NameColor(name string) Color {
	var h uint32
	for i := 0; i < len(name); i++ {
		h = h*31 + uint32(name[i])
	}
	return Color{
		R: uint8(h >> 16),
		G: uint8(h >> 8),
		B: uint8(h),
	}
}

// Rect is an axis-aligned rectangle in canvas units.
type Rect struct {
	X, Y, Width, Height int
}

// Label is text anchored at its baseline start.
type Label struct {
	X, Y int
	Text string
}

// Primitive is one drawn node.
type Primitive struct {
	Rect  Rect
	Fill  Color
	Label *Label
	Name  string
	Depth int // row index, 0 for the root's children
}

// Layout computes the primitives for the whole tree, left to right and top
// to bottom, in child insertion order.
func Layout(t *Tree, c Canvas) []Primitive {
	var out []Primitive
	layoutNode(&out, t.Root, 0, 0, c.Width, c.RowHeight, 0, c.MaxDepth())
	return out
}

// layoutNode draws n's children on row depth and recurses into each drawn
// child. Recursion is bounded by maxDepth.
func layoutNode(out *[]Primitive, n *Node, x, y, width, rowHeight, depth, maxDepth int) {
	if depth >= maxDepth || len(n.children) == 0 {
		return
	}
	total := n.Duration()
	if total == 0 || width <= 0 {
		return
	}

	cur := x
	for _, child := range n.children {
		w := scaleWidth(child.Duration(), total, width)
		// Overlapping sibling spans can add up to more than the parent;
		// never draw past the parent's right edge.
		if remaining := x + width - cur; w > remaining {
			w = remaining
		}
		if w <= 0 {
			continue
		}

		p := Primitive{
			Rect:  Rect{X: cur, Y: y, Width: w, Height: rowHeight},
			Fill:  NameColor(child.Name),
			Name:  child.Name,
			Depth: depth,
		}
		if w > labelMinWidth {
			p.Label = &Label{
				X:    cur + labelInsetX,
				Y:    y + rowHeight - labelInsetY,
				Text: child.Name,
			}
		}
		*out = append(*out, p)

		layoutNode(out, child, cur, y+rowHeight, w, rowHeight, depth+1, maxDepth)
		cur += w
	}
}

// scaleWidth returns floor(d / total * width) without floating point or
// overflow.
func scaleWidth(d, total uint64, width int) int {
	hi, lo := bits.Mul64(d, uint64(width))
	if hi >= total {
		return width
	}
	q, _ := bits.Div64(hi, lo, total)
	if q > uint64(width) {
		return width
	}
	return int(q)
}
