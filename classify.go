package dvuploader

import (
	"context"
	"fmt"
	"strings"

	"github.com/gdcc/dvuploader-go/filedesc"
	"github.com/gdcc/dvuploader-go/internal/repo"
)

// classifyBlockSize is the chunk size used when verifying a replacement
// candidate's checksum against the inventory.
const classifyBlockSize = 4 * 1024 * 1024

const tabSuffix = ".tab"

// classify fetches one inventory snapshot and matches each descriptor
// against it by key. A match sets ToReplace and FileID.
// If replaceExisting is false, matched descriptors are dropped instead and
// reported as skipped. If replaceExisting is true and the match's size and
// checksum agree, UnchangedData is set so the descriptor skips the data
// transfer entirely and only goes through metadata reconciliation.
func (u *Uploader) classify(ctx context.Context, descriptors []*filedesc.Descriptor, replaceExisting bool) ([]*filedesc.Descriptor, []string, error) {
	files, err := u.client.FetchInventory(ctx, u.persistentID)
	if err != nil {
		return nil, nil, err
	}

	byPath := make(map[string]repo.InventoryFile, len(files))
	byTabPath := make(map[string]repo.InventoryFile, len(files))
	for _, f := range files {
		key := joinLabel(f.DirectoryLabel, f.Label)
		byPath[key] = f
		byTabPath[strings.TrimSuffix(key, tabSuffix)] = f
	}

	var classified []*filedesc.Descriptor
	var skipped []string

	for _, d := range descriptors {
		key := d.Key()
		match, ok := byPath[key]
		if !ok {
			match, ok = byTabPath[key]
		}

		if !ok {
			classified = append(classified, d)
			continue
		}

		if !replaceExisting {
			skipped = append(skipped, key)
			continue
		}

		d.ToReplace = true
		d.FileID = fmt.Sprintf("%v", match.DataFile.ID)

		if err := u.verifyUnchanged(d, match); err != nil {
			return nil, nil, err
		}

		classified = append(classified, d)
	}

	return classified, skipped, nil
}

// verifyUnchanged decides whether a replacement candidate's local bytes
// match the inventory's recorded copy. A size mismatch is conclusive; a
// size match is confirmed only when the inventory checksum's algorithm
// matches the descriptor's and the digests agree. A recognized-but-differing
// checksum is ordinary drift, not an error: UnchangedData is simply false.
func (u *Uploader) verifyUnchanged(d *filedesc.Descriptor, match repo.InventoryFile) error {
	if match.DataFile.Filesize != d.Size {
		d.UnchangedData = false
		return nil
	}

	if match.DataFile.Checksum.Type != string(d.ChecksumAlgo) || match.DataFile.Checksum.Value == "" {
		d.UnchangedData = false
		return nil
	}

	if err := d.UpdateChecksumChunked(classifyBlockSize); err != nil {
		return err
	}
	d.ApplyChecksum()

	d.UnchangedData = d.ChecksumValue == match.DataFile.Checksum.Value
	if !d.UnchangedData {
		// The comparison finalized the checksum state; the transfer that
		// follows needs a fresh one to tee its bytes through.
		return d.Prepare()
	}
	return nil
}

func joinLabel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
