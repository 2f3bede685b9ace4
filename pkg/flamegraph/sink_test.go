package flamegraph

import (
	"errors"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/out", 0755))

	err := WriteFileAtomic(fs, "/out/flamegraph.svg", func(w io.Writer) error {
		_, err := io.WriteString(w, "<svg/>")
		return err
	})
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/out/flamegraph.svg")
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(data))

	entries, err := afero.ReadDir(fs, "/out")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFileAtomicFailureLeavesTargetUntouched(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/flamegraph.svg", []byte("previous"), 0644))

	boom := errors.New("boom")
	err := WriteFileAtomic(fs, "/out/flamegraph.svg", func(w io.Writer) error {
		_, _ = io.WriteString(w, "<svg")
		return boom
	})
	require.ErrorIs(t, err, boom)

	data, err := afero.ReadFile(fs, "/out/flamegraph.svg")
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))

	entries, err := afero.ReadDir(fs, "/out")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must be removed")
}

func TestWriteFileAtomicMissingDirectory(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())

	err := WriteFileAtomic(fs, "/nowhere/flamegraph.svg", func(io.Writer) error { return nil })
	assert.Error(t, err)

	exists, _ := afero.Exists(fs, "/nowhere/flamegraph.svg")
	assert.False(t, exists)
}
