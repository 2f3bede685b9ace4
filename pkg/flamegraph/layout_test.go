package flamegraph

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byName(prims []Primitive) map[string]Primitive {
	m := make(map[string]Primitive, len(prims))
	for _, p := range prims {
		m[p.Name] = p
	}
	return m
}

func TestLayoutProportionalWidths(t *testing.T) {
	tree := NewTree()
	tree.Insert([]string{"main", "a"}, 0, 60)
	tree.Insert([]string{"main", "b"}, 60, 100)
	tree.Insert([]string{"idle"}, 100, 200)

	prims := Layout(tree, DefaultCanvas())
	got := byName(prims)
	require.Len(t, got, 4)

	assert.Equal(t, Rect{X: 0, Y: 0, Width: 600, Height: 20}, got["main"].Rect)
	assert.Equal(t, Rect{X: 600, Y: 0, Width: 600, Height: 20}, got["idle"].Rect)
	assert.Equal(t, Rect{X: 0, Y: 20, Width: 360, Height: 20}, got["a"].Rect)
	assert.Equal(t, Rect{X: 360, Y: 20, Width: 240, Height: 20}, got["b"].Rect)

	// Depth-one rectangles cover exactly what the root was given.
	var top int
	for _, p := range prims {
		if p.Depth == 0 {
			top += p.Rect.Width
		}
	}
	assert.Equal(t, 1200, top)
}

func TestLayoutChildrenStayInsideParent(t *testing.T) {
	tree := NewTree()
	for i := 0; i < 7; i++ {
		start := uint64(i * 13)
		tree.Insert([]string{"root", fmt.Sprintf("c%d", i)}, start, start+11)
		tree.Insert([]string{"root", fmt.Sprintf("c%d", i), "leaf"}, start+1, start+4)
	}
	// Overlaps every other child.
	tree.Insert([]string{"root", "wide"}, 0, 91)

	prims := Layout(tree, DefaultCanvas())
	for _, parent := range prims {
		var sum int
		for _, child := range prims {
			if child.Depth != parent.Depth+1 {
				continue
			}
			if child.Rect.X < parent.Rect.X || child.Rect.X >= parent.Rect.X+parent.Rect.Width {
				continue
			}
			assert.LessOrEqual(t, child.Rect.X+child.Rect.Width, parent.Rect.X+parent.Rect.Width)
			sum += child.Rect.Width
		}
		assert.LessOrEqual(t, sum, parent.Rect.Width, "children of %s", parent.Name)
	}
}

func TestLayoutDepthClip(t *testing.T) {
	c := DefaultCanvas()
	require.Equal(t, 40, c.MaxDepth())

	names := make([]string, c.MaxDepth()+5)
	for i := range names {
		names[i] = fmt.Sprintf("f%d", i)
	}
	tree := NewTree()
	tree.Insert(names, 0, 100)

	prims := Layout(tree, c)
	require.Len(t, prims, c.MaxDepth())
	for _, p := range prims {
		assert.Less(t, p.Depth, c.MaxDepth())
		assert.LessOrEqual(t, p.Rect.Y+p.Rect.Height, c.Height)
	}
}

func TestLayoutSkipsZeroWidthSubtree(t *testing.T) {
	tree := NewTree()
	tree.Insert([]string{"tiny", "tinychild"}, 0, 5)
	tree.Insert([]string{"big"}, 0, 10000)

	got := byName(Layout(tree, DefaultCanvas()))
	assert.NotContains(t, got, "tiny")
	assert.NotContains(t, got, "tinychild")
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 1200, Height: 20}, got["big"].Rect)
}

func TestLayoutZeroDuration(t *testing.T) {
	tree := NewTree()
	tree.Insert([]string{"a", "b"}, 5, 5)

	assert.Empty(t, Layout(tree, DefaultCanvas()))
}

func TestLayoutEmptyTree(t *testing.T) {
	assert.Empty(t, Layout(NewTree(), DefaultCanvas()))
}

func TestLayoutLabels(t *testing.T) {
	tree := NewTree()
	tree.Insert([]string{"w50"}, 0, 50)
	tree.Insert([]string{"w51"}, 50, 101)
	tree.Insert([]string{"rest"}, 101, 1200)

	got := byName(Layout(tree, DefaultCanvas()))
	assert.Equal(t, 50, got["w50"].Rect.Width)
	assert.Nil(t, got["w50"].Label)

	require.Equal(t, 51, got["w51"].Rect.Width)
	require.NotNil(t, got["w51"].Label)
	assert.Equal(t, Label{X: 55, Y: 15, Text: "w51"}, *got["w51"].Label)
}

func TestLayoutDeterministicOrder(t *testing.T) {
	tree := NewTree()
	tree.Insert([]string{"second"}, 0, 10)
	tree.Insert([]string{"first"}, 10, 20)

	prims := Layout(tree, DefaultCanvas())
	require.Len(t, prims, 2)
	assert.Equal(t, "second", prims[0].Name)
	assert.Equal(t, 0, prims[0].Rect.X)
	assert.Equal(t, "first", prims[1].Name)
	assert.Equal(t, 600, prims[1].Rect.X)
}

func TestNameColor(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", "#000000"},
		{"a", "#000061"},
		{"ab", "#000c21"},
		{"main", "#3305b9"},
		{"do_sys_open", "#3869b0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NameColor(tt.name).Hex(), tt.name)
	}
}

func TestScaleWidth(t *testing.T) {
	assert.Equal(t, 0, scaleWidth(5, 10000, 1200))
	assert.Equal(t, 1, scaleWidth(9, 10000, 1200))
	assert.Equal(t, 600, scaleWidth(1, 2, 1200))
	assert.Equal(t, 1200, scaleWidth(math.MaxUint64, math.MaxUint64, 1200))
	assert.Equal(t, 1200, scaleWidth(1<<62, 1<<61, 1200))
}
