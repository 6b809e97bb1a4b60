package pkgr

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gdcc/dvuploader-go/filedesc"
)

func descOfSize(t *testing.T, dir, name string, size int) *filedesc.Descriptor {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))

	d := filedesc.New(path)
	require.NoError(t, d.Prepare())
	return d
}

func TestDistributeFilesPacksUnderLimit(t *testing.T) {
	dir := t.TempDir()
	a := descOfSize(t, dir, "a.bin", 10)
	b := descOfSize(t, dir, "b.bin", 10)
	c := descOfSize(t, dir, "c.bin", 10)

	packages := DistributeFiles([]*filedesc.Descriptor{a, b, c}, 25)

	require.Len(t, packages, 2)
	require.Equal(t, []*filedesc.Descriptor{a, b}, packages[0].Members)
	require.Equal(t, []*filedesc.Descriptor{c}, packages[1].Members)
}

func TestDistributeFilesOversizedMemberGetsOwnPackage(t *testing.T) {
	dir := t.TempDir()
	small := descOfSize(t, dir, "small.bin", 5)
	huge := descOfSize(t, dir, "huge.bin", 100)

	packages := DistributeFiles([]*filedesc.Descriptor{small, huge}, 10)

	require.Len(t, packages, 2)
	require.True(t, packages[0].Singleton())
	require.Equal(t, small, packages[0].Members[0])
	require.True(t, packages[1].Singleton())
	require.Equal(t, huge, packages[1].Members[0])
}

func TestDistributeForNativeUploadKeepsReplaceDescriptorsSingleton(t *testing.T) {
	dir := t.TempDir()
	newA := descOfSize(t, dir, "new-a.bin", 5)
	newB := descOfSize(t, dir, "new-b.bin", 5)
	replaced := descOfSize(t, dir, "replaced.bin", 5)
	replaced.ToReplace = true
	replaced.FileID = "9"

	packages := DistributeForNativeUpload([]*filedesc.Descriptor{newA, replaced, newB}, 1024)

	require.Len(t, packages, 2)
	require.True(t, packages[0].Singleton())
	require.Equal(t, replaced, packages[0].Members[0])
	require.Equal(t, []*filedesc.Descriptor{newA, newB}, packages[1].Members)

	for i, pkg := range packages {
		require.Equal(t, i, pkg.Index)
	}
}

func TestDistributeForNativeUploadGivesEachReplaceItsOwnPackage(t *testing.T) {
	dir := t.TempDir()
	r1 := descOfSize(t, dir, "r1.bin", 5)
	r1.ToReplace = true
	r2 := descOfSize(t, dir, "r2.bin", 5)
	r2.ToReplace = true

	packages := DistributeForNativeUpload([]*filedesc.Descriptor{r1, r2}, 1024)

	require.Len(t, packages, 2)
	for _, pkg := range packages {
		require.True(t, pkg.Singleton())
	}
}

func TestPackageSize(t *testing.T) {
	dir := t.TempDir()
	a := descOfSize(t, dir, "a.bin", 7)
	b := descOfSize(t, dir, "b.bin", 3)

	pkg := &Package{Members: []*filedesc.Descriptor{a, b}}
	require.Equal(t, int64(10), pkg.Size())
}

func TestZipPackageWritesAllMembersWithDirectoryLabel(t *testing.T) {
	dir := t.TempDir()
	a := descOfSize(t, dir, "a.bin", 4)
	a.DirectoryLabel = "data"
	b := descOfSize(t, dir, "b.bin", 6)

	pkg := &Package{Index: 1, Members: []*filedesc.Descriptor{a, b}}

	archivePath, err := ZipPackage(pkg, t.TempDir())
	require.NoError(t, err)
	require.True(t, a.InsideZip)
	require.True(t, b.InsideZip)

	r, err := zip.OpenReader(archivePath)
	require.NoError(t, err)
	defer r.Close()

	names := make(map[string]bool)
	for _, f := range r.File {
		names[f.Name] = true
	}
	require.True(t, names["data/a.bin"])
	require.True(t, names["b.bin"])
}
