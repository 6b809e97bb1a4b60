// Package filedesc implements the file descriptor data model: what to
// upload, and how its bytes and checksum are produced.
package filedesc

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/gdcc/dvuploader-go/checksum"
)

// Descriptor holds everything needed to upload one file, or to update the
// metadata of one existing dataset file.
type Descriptor struct {
	// Filepath locates the source on disk. Not transmitted as such.
	Filepath string

	// Handle is an optional caller-provided stream. If set, it wins over
	// Filepath and Size is taken from its length when Prepare runs.
	Handle io.ReadSeeker

	Size int64

	DisplayName    string
	DirectoryLabel string
	MimeType       string
	Categories     []string
	Restrict       bool
	Description    string

	// TabIngest requests the server attempt tabular ingest. Defaults true.
	TabIngest bool

	ChecksumAlgo  checksum.Algo
	ChecksumValue string

	StorageIdentifier string

	ToReplace     bool
	FileID        string
	UnchangedData bool

	InsideZip             bool
	EnforceMetadataUpdate bool

	checksumState *checksum.State
	ownHandle     bool
}

// New creates a Descriptor for a file on disk with sensible defaults.
func New(path string) *Descriptor {
	return &Descriptor{
		Filepath:     path,
		MimeType:     "application/octet-stream",
		Categories:   []string{"DATA"},
		TabIngest:    true,
		ChecksumAlgo: checksum.MD5,
	}
}

// Prepare validates the descriptor's source, fills in Size and DisplayName,
// and initializes a fresh checksum state. No checksum bytes are consumed
// yet; that happens lazily as the upload streams.
func (d *Descriptor) Prepare() error {
	if d.Handle == nil {
		info, err := os.Stat(d.Filepath)
		if err != nil {
			return errors.Wrapf(err, "prepare %s", d.Filepath)
		}
		if info.IsDir() {
			return errors.Errorf("%s is a directory, not a file", d.Filepath)
		}
		if !info.Mode().IsRegular() {
			return errors.Errorf("%s is not a regular file", d.Filepath)
		}
		d.Size = info.Size()
	} else {
		size, err := d.Handle.Seek(0, io.SeekEnd)
		if err != nil {
			return errors.Wrap(err, "measuring handle length")
		}
		if _, err := d.Handle.Seek(0, io.SeekStart); err != nil {
			return errors.Wrap(err, "rewinding handle")
		}
		d.Size = size
	}

	if d.DisplayName == "" {
		d.DisplayName = filepath.Base(d.Filepath)
	}

	if d.ChecksumAlgo == "" {
		d.ChecksumAlgo = checksum.MD5
	}
	state, err := checksum.New(d.ChecksumAlgo)
	if err != nil {
		return err
	}
	d.checksumState = state

	return nil
}

// OpenHandle returns the caller-provided handle if any, otherwise opens the
// source file read-only.
func (d *Descriptor) OpenHandle() (io.ReadSeeker, error) {
	if d.Handle != nil {
		d.ownHandle = false
		return d.Handle, nil
	}
	f, err := os.Open(d.Filepath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", d.Filepath)
	}
	d.ownHandle = true
	return f, nil
}

// UpdateChecksumChunked reads the entire handle in blocksize chunks,
// feeding bytes into the checksum state. It restores the handle's position
// to the start if the handle was caller-provided, otherwise closes the
// handle it opened itself.
func (d *Descriptor) UpdateChecksumChunked(blocksize int) error {
	if d.checksumState == nil {
		return errors.New("checksum state not initialized; call Prepare first")
	}

	handle, err := d.OpenHandle()
	if err != nil {
		return err
	}
	opened := d.ownHandle

	defer func() {
		if opened {
			if closer, ok := handle.(io.Closer); ok {
				closer.Close()
			}
		} else {
			handle.Seek(0, io.SeekStart)
		}
	}()

	buf := make([]byte, blocksize)
	for {
		n, err := handle.Read(buf)
		if n > 0 {
			d.checksumState.Update(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "reading %s", d.DisplayName)
		}
	}

	return nil
}

// ApplyChecksum finalizes the checksum state into ChecksumValue. One-shot;
// panics if the state does not exist (Prepare was never called).
func (d *Descriptor) ApplyChecksum() {
	if d.checksumState == nil {
		panic("filedesc: ApplyChecksum called before Prepare")
	}
	d.ChecksumValue = d.checksumState.Finalize()
}

// ChecksumWriter exposes the running checksum state as an io.Writer so
// drivers can tee the exact bytes they transmit through it. The checksum
// must always be fed from the same stream that produces the transmitted
// bytes, never a separate read pass.
func (d *Descriptor) ChecksumWriter() io.Writer {
	return d.checksumState
}

// HasChecksum reports whether the descriptor's checksum has been finalized.
func (d *Descriptor) HasChecksum() bool {
	return d.checksumState != nil && d.checksumState.Finalized()
}

// Key is the directory_label/display_name identity used throughout
// classification, registration lookups, and metadata reconciliation.
func (d *Descriptor) Key() string {
	if d.DirectoryLabel == "" {
		return d.DisplayName
	}
	return filepath.ToSlash(filepath.Join(d.DirectoryLabel, d.DisplayName))
}

// Validate checks the descriptor's cross-field invariants.
func (d *Descriptor) Validate() error {
	if d.DisplayName == "" {
		return errors.New("display name must be set before upload")
	}
	if d.ToReplace && d.FileID == "" {
		return errors.New("to_replace requires file_id")
	}
	if d.UnchangedData && !d.ToReplace {
		return errors.New("unchanged_data requires to_replace")
	}
	return nil
}

// IsInMemory reports whether the descriptor's bytes come from a
// caller-provided handle rather than a filesystem path. In-memory
// descriptors may not use multipart direct upload, since there is no
// independent file handle to reopen per part.
func (d *Descriptor) IsInMemory() bool {
	return d.Handle != nil
}
