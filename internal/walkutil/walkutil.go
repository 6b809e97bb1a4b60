// Package walkutil discovers files under a directory tree and turns them
// into upload descriptors, skipping whatever matches an ignore pattern.
package walkutil

import (
	"io/fs"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"

	"github.com/gdcc/dvuploader-go/filedesc"
)

// DefaultIgnore skips dotfiles and dot-directories (.git, .DS_Store, ...),
// matching every path component rather than just the leaf name.
var DefaultIgnore = []string{`^\.`}

// Walk descends root and returns one Descriptor per regular file found,
// with DisplayName set to the file name and DirectoryLabel set to the file's path relative to root (joined with
// rootLabel, if any) and slash-separated regardless of host OS. A path
// component matching any ignore pattern — file name or any containing
// directory name — excludes that file from the result.
func Walk(root string, rootLabel string, ignore []string) ([]*filedesc.Descriptor, error) {
	patterns, err := compile(ignore)
	if err != nil {
		return nil, err
	}

	var descriptors []*filedesc.Descriptor

	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != root && matchesAny(entry.Name(), patterns) {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		if matchesAny(entry.Name(), patterns) {
			return nil
		}

		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return errors.Wrapf(err, "relativizing %s", path)
		}
		if rel == "." {
			rel = ""
		}

		d := filedesc.New(path)
		d.DisplayName = entry.Name()
		d.DirectoryLabel = filepath.ToSlash(filepath.Join(rootLabel, rel))
		descriptors = append(descriptors, d)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walking %s", root)
	}

	return descriptors, nil
}

func compile(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "compiling ignore pattern %q", p)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func matchesAny(name string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
