// Package pkgr groups file descriptors into size-bounded archive packages
// for native uploads.
package pkgr

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/gdcc/dvuploader-go/filedesc"
)

// Package is a bounded-size group of descriptors assembled for the native
// path, optionally archived as a single zip.
type Package struct {
	Index   int
	Members []*filedesc.Descriptor
}

// Singleton reports whether the package holds exactly one descriptor.
// Singleton packages are uploaded directly, not zipped.
func (p *Package) Singleton() bool { return len(p.Members) == 1 }

// Size returns the sum of member sizes.
func (p *Package) Size() int64 {
	var total int64
	for _, m := range p.Members {
		total += m.Size
	}
	return total
}

// DistributeFiles groups descriptors into packages whose member-size sums
// are each at most maxPackageSize, except singleton packages whose sole
// member exceeds that limit. Input order is preserved
// across the returned packages; descriptors are assigned to the first
// package that can hold them, with no packing optimization attempted.
func DistributeFiles(descriptors []*filedesc.Descriptor, maxPackageSize int64) []*Package {
	var packages []*Package
	var current []*filedesc.Descriptor
	var currentSize int64
	index := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		packages = append(packages, &Package{Index: index, Members: current})
		index++
		current = nil
		currentSize = 0
	}

	for _, d := range descriptors {
		if d.Size > maxPackageSize {
			flush()
			packages = append(packages, &Package{Index: index, Members: []*filedesc.Descriptor{d}})
			index++
			continue
		}

		if currentSize+d.Size > maxPackageSize {
			flush()
		}

		current = append(current, d)
		currentSize += d.Size
	}
	flush()

	return packages
}

// ZipPackage writes a deflate archive in dir containing every member of
// the package, with entry names join(directory_label, display_name). Each
// member's InsideZip flag is set. Singleton packages should not be passed
// here; callers upload them directly instead.
func ZipPackage(p *Package, dir string) (archivePath string, err error) {
	name := filepath.Join(dir, archiveName(p.Index))
	out, err := os.Create(name)
	if err != nil {
		return "", errors.Wrapf(err, "creating archive %s", name)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, member := range p.Members {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   arcname(member),
			Method: zip.Deflate,
		})
		if err != nil {
			zw.Close()
			return "", errors.Wrapf(err, "adding %s to archive", member.DisplayName)
		}

		handle, err := member.OpenHandle()
		if err != nil {
			zw.Close()
			return "", err
		}
		if _, err := io.Copy(w, handle); err != nil {
			if closer, ok := handle.(io.Closer); ok {
				closer.Close()
			}
			zw.Close()
			return "", errors.Wrapf(err, "writing %s into archive", member.DisplayName)
		}
		if closer, ok := handle.(io.Closer); ok {
			closer.Close()
		}

		member.InsideZip = true
	}

	if err := zw.Close(); err != nil {
		return "", errors.Wrap(err, "closing archive")
	}

	return name, nil
}

// DistributeForNativeUpload partitions descriptors before packaging: the
// native replace endpoint is scoped to one known file id and has no
// zip-archive form, so a to-replace descriptor must never end up sharing a
// package with anything else. Each to-replace descriptor gets its own
// singleton package; the rest are grouped by size via DistributeFiles as
// usual. Package.Index is renumbered across the combined result.
func DistributeForNativeUpload(descriptors []*filedesc.Descriptor, maxPackageSize int64) []*Package {
	var toReplace, fresh []*filedesc.Descriptor
	for _, d := range descriptors {
		if d.ToReplace {
			toReplace = append(toReplace, d)
		} else {
			fresh = append(fresh, d)
		}
	}

	var packages []*Package
	for _, d := range toReplace {
		packages = append(packages, &Package{Members: []*filedesc.Descriptor{d}})
	}
	packages = append(packages, DistributeFiles(fresh, maxPackageSize)...)

	for i, pkg := range packages {
		pkg.Index = i
	}
	return packages
}

func archiveName(index int) string {
	return fmt.Sprintf("package_%d.zip", index)
}

func arcname(d *filedesc.Descriptor) string {
	if d.DirectoryLabel == "" {
		return d.DisplayName
	}
	return filepath.ToSlash(filepath.Join(d.DirectoryLabel, d.DisplayName))
}
