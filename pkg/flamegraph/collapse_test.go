package flamegraph

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFolded(t *testing.T) {
	tree := NewTree()
	tree.Insert([]string{"main", "parse"}, 0, 30)
	tree.Insert([]string{"main", "eval"}, 30, 70)
	tree.Insert([]string{"main"}, 0, 100)
	tree.Insert([]string{"gc"}, 100, 110)

	var buf bytes.Buffer
	require.NoError(t, WriteFolded(&buf, tree))

	assert.Equal(t, "gc 10\nmain 30\nmain;eval 40\nmain;parse 30\n", buf.String())
}

func TestCollapseTreeSkipsCoveredNodes(t *testing.T) {
	tree := NewTree()
	tree.Insert([]string{"a", "b"}, 0, 10)

	// a is fully covered by b.
	assert.Equal(t, map[string]uint64{"a;b": 10}, CollapseTree(tree))
}
