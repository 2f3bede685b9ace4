package flamegraph

// Node is one call-path prefix in the aggregated tree. Its span is the union
// of every occurrence of the path it represents.
type Node struct {
	Name  string
	Start uint64
	End   uint64

	hasSpan  bool
	children []*Node
	index    map[string]int
}

func newNode(name string) *Node {
	return &Node{Name: name}
}

// Duration returns End - Start.
func (n *Node) Duration() uint64 {
	return n.End - n.Start
}

// Children returns the callees in first-seen order.
func (n *Node) Children() []*Node {
	return n.children
}

// Child returns the callee with the given name, or nil.
func (n *Node) Child(name string) *Node {
	if i, ok := n.index[name]; ok {
		return n.children[i]
	}
	return nil
}

func (n *Node) child(name string) *Node {
	if c := n.Child(name); c != nil {
		return c
	}
	if n.index == nil {
		n.index = make(map[string]int)
	}
	c := newNode(name)
	n.index[name] = len(n.children)
	n.children = append(n.children, c)
	return c
}

func (n *Node) widen(start, end uint64) {
	if !n.hasSpan {
		n.Start, n.End, n.hasSpan = start, end, true
		return
	}
	n.Start = min(n.Start, start)
	n.End = max(n.End, end)
}

// Tree aggregates completed call paths under an unnamed root.
type Tree struct {
	Root    *Node
	inserts int
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{Root: newNode("")}
}

// Insert merges one completed call path, names in root-to-leaf order. Every
// node along the path, the root included, is widened to cover
// [start, end], so a child's span never leaves its parent's. A record whose
// end precedes its start is treated as zero-length at start.
func (t *Tree) Insert(names []string, start, end uint64) {
	if len(names) == 0 {
		return
	}
	if end < start {
		end = start
	}

	t.inserts++
	n := t.Root
	n.widen(start, end)
	for _, name := range names {
		n = n.child(name)
		n.widen(start, end)
	}
}

// Inserts returns how many non-empty paths were merged.
func (t *Tree) Inserts() int {
	return t.inserts
}

// Walk visits every node below the root depth-first in child order; depth
// is 1 for the root's children. Returning false skips the node's subtree.
func (t *Tree) Walk(fn func(path []string, n *Node, depth int) bool) {
	type frame struct {
		n     *Node
		depth int
	}
	var path []string
	stack := make([]frame, 0, len(t.Root.children))
	for i := len(t.Root.children) - 1; i >= 0; i-- {
		stack = append(stack, frame{t.Root.children[i], 1})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		path = append(path[:f.depth-1], f.n.Name)
		if !fn(path, f.n, f.depth) {
			continue
		}
		for i := len(f.n.children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.n.children[i], f.depth + 1})
		}
	}
}

// Size returns the number of nodes below the root and the deepest level.
func (t *Tree) Size() (nodes, depth int) {
	t.Walk(func(_ []string, _ *Node, d int) bool {
		nodes++
		depth = max(depth, d)
		return true
	})
	return nodes, depth
}

// SelfTime returns the part of n's span not covered by its children's
// durations, floored at zero.
func SelfTime(n *Node) uint64 {
	var covered uint64
	for _, c := range n.children {
		covered += c.Duration()
	}
	if covered >= n.Duration() {
		return 0
	}
	return n.Duration() - covered
}
