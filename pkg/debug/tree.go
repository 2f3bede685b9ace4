package debug

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/danpilch/pidflame/pkg/flamegraph"
)

// DumpTree prints the aggregated call tree with each node's span, indented
// by depth. Levels deeper than maxDepth are elided; maxDepth <= 0 prints
// everything.
func DumpTree(w io.Writer, t *flamegraph.Tree, maxDepth int) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, debugTitle.Render("Call Tree Dump"))
	fmt.Fprintln(w, debugDim.Render(strings.Repeat("═", 85)))
	fmt.Fprintf(w, "  %s %s %s\n",
		debugHeader.Render("FUNCTION                                "),
		debugHeader.Render("DURATION      "),
		debugHeader.Render("SPAN                    "))
	fmt.Fprintln(w, "  "+debugDim.Render(strings.Repeat("─", 85)))

	elided := 0
	t.Walk(func(_ []string, n *flamegraph.Node, depth int) bool {
		if maxDepth > 0 && depth > maxDepth {
			elided++
			return false
		}
		name := strings.Repeat("  ", depth-1) + n.Name
		fmt.Fprintf(w, "  %-42s %-16v %s\n",
			name, time.Duration(n.Duration()), debugDim.Render(fmt.Sprintf("[%d, %d]", n.Start, n.End)))
		return true
	})
	if elided > 0 {
		fmt.Fprintln(w, "  "+debugDim.Render(fmt.Sprintf("… %d subtrees below depth %d not shown", elided, maxDepth)))
	}
}
