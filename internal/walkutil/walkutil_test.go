package walkutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestWalkAssignsDirectoryLabelsRelativeToRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"))
	writeFile(t, filepath.Join(root, "sub", "b.txt"))

	descriptors, err := Walk(root, "", DefaultIgnore)
	require.NoError(t, err)
	require.Len(t, descriptors, 2)

	byName := make(map[string]string)
	for _, d := range descriptors {
		byName[d.DisplayName] = d.DirectoryLabel
	}
	require.Equal(t, "", byName["a.txt"])
	require.Equal(t, "sub", byName["b.txt"])
}

func TestWalkAppliesRootLabelPrefix(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sub", "b.txt"))

	descriptors, err := Walk(root, "prefix", DefaultIgnore)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	require.Equal(t, "prefix/sub", descriptors[0].DirectoryLabel)
}

func TestWalkSkipsIgnoredFilesAndDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".hidden"))
	writeFile(t, filepath.Join(root, ".git", "config"))
	writeFile(t, filepath.Join(root, "visible.txt"))

	descriptors, err := Walk(root, "", DefaultIgnore)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	require.Equal(t, "visible.txt", descriptors[0].DisplayName)
}

func TestWalkCustomIgnorePattern(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.csv"))
	writeFile(t, filepath.Join(root, "skip.tmp"))

	descriptors, err := Walk(root, "", []string{`\.tmp$`})
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	require.Equal(t, "keep.csv", descriptors[0].DisplayName)
}

func TestWalkInvalidPatternErrors(t *testing.T) {
	_, err := Walk(t.TempDir(), "", []string{"("})
	require.Error(t, err)
}
