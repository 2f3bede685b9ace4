package flamegraph

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSVG(t *testing.T) {
	tree := NewTree()
	tree.Insert([]string{"main", "a<b>&c"}, 0, 10000)
	tree.Insert([]string{"tiny"}, 10000, 10001)

	var buf bytes.Buffer
	n, err := GenerateSVG(tree, &buf, DefaultSVGOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	out := buf.String()
	assert.Contains(t, out, `width="1200" height="800"`)
	assert.Contains(t, out, `<rect x="0" y="0" width="1200" height="800" fill="#ffffff"/>`)
	assert.Contains(t, out, `<rect x="0" y="0" width="1199" height="20" fill="#3305b9" stroke="#000000" stroke-width="1"/>`)
	assert.Contains(t, out, `<text x="5" y="15" font-size="12" fill="#000000">main</text>`)
	assert.Contains(t, out, "a&lt;b&gt;&amp;c")
	assert.NotContains(t, out, "tiny")
	assert.True(t, strings.HasSuffix(out, "</svg>\n"))
}

func TestGenerateSVGEmptyTree(t *testing.T) {
	var buf bytes.Buffer
	n, err := GenerateSVG(NewTree(), &buf, SVGOptions{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, strings.Count(buf.String(), "<rect"))
	assert.NotContains(t, buf.String(), "<text")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriteSVGSurfacesWriteErrors(t *testing.T) {
	err := WriteSVG(failingWriter{}, nil, DefaultSVGOptions())
	assert.EqualError(t, err, "disk full")
}
