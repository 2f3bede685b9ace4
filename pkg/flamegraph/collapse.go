package flamegraph

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// CollapseTree flattens the tree into folded stacks: one "a;b;c" key per
// node with positive self time, valued in nanoseconds.
func CollapseTree(t *Tree) map[string]uint64 {
	stacks := make(map[string]uint64)
	t.Walk(func(path []string, n *Node, _ int) bool {
		if self := SelfTime(n); self > 0 {
			stacks[strings.Join(path, ";")] += self
		}
		return true
	})
	return stacks
}

// WriteFolded writes the tree in folded stack format, "func1;func2 value\n",
// sorted by stack.
func WriteFolded(w io.Writer, t *Tree) error {
	bw := bufio.NewWriter(w)
	writeCollapsed(bw, CollapseTree(t))
	return bw.Flush()
}

func writeCollapsed(w io.Writer, stacks map[string]uint64) {
	// Sort for deterministic output
	keys := make([]string, 0, len(stacks))
	for k := range stacks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(w, "%s %d\n", k, stacks[k])
	}
}
