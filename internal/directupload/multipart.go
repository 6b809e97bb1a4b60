package directupload

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/gdcc/dvuploader-go/filedesc"
	"github.com/gdcc/dvuploader-go/internal/dverrors"
	"github.com/gdcc/dvuploader-go/internal/repo"
)

// orderedPartKeys returns the ticket's part keys ("1", "2", ...) sorted in
// ascending numeric order. Parts are uploaded in this order and the
// Complete payload's part numbers are 1-based.
func orderedPartKeys(urls map[string]string) []string {
	keys := make([]string, 0, len(urls))
	for k := range urls {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, erri := strconv.Atoi(keys[i])
		nj, errj := strconv.Atoi(keys[j])
		if erri != nil || errj != nil {
			return keys[i] < keys[j]
		}
		return ni < nj
	})
	return keys
}

// uploadMultipart uploads parts in order, one at a time: each part's body is
// teed through desc's single running checksum as it streams, so parts
// cannot be fanned out concurrently without interleaving writes into that
// one hash.Hash and corrupting the digest.
func (d *Driver) uploadMultipart(ctx context.Context, desc *filedesc.Descriptor, ticket repo.Ticket) error {
	if desc.IsInMemory() {
		return &dverrors.TicketError{
			Message: "multipart direct upload requires a file-backed descriptor; got an in-memory one",
		}
	}

	start := time.Now()
	keys := orderedPartKeys(ticket.URLs)

	etags := make([]string, 0, len(keys))
	var offset int64

	for _, key := range keys {
		partSize := ticket.PartSize
		remaining := desc.Size - offset
		if remaining < partSize {
			partSize = remaining
		}
		if partSize <= 0 {
			break
		}

		etag, err := d.uploadPart(ctx, desc, ticket.URLs[key], offset, partSize)
		if err != nil {
			d.abort(ctx, ticket.Abort)
			return err
		}
		etags = append(etags, etag)
		offset += partSize
	}

	if err := d.complete(ctx, ticket.Complete, etags); err != nil {
		return err
	}

	desc.StorageIdentifier = ticket.StorageIdentifier
	desc.ApplyChecksum()
	d.Logger.Transferred(desc.DisplayName, desc.Size, time.Since(start))
	return nil
}

func (d *Driver) uploadPart(ctx context.Context, desc *filedesc.Descriptor, url string, offset, size int64) (string, error) {
	f, err := os.Open(desc.Filepath)
	if err != nil {
		return "", errors.Wrapf(err, "opening %s for part upload", desc.Filepath)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return "", errors.Wrap(err, "seeking to part offset")
	}

	tee := io.TeeReader(io.LimitReader(f, size), desc.ChecksumWriter())

	req, err := d.Client.NewServerRequest(ctx, http.MethodPut, url, tee)
	if err != nil {
		return "", errors.WithStack(err)
	}
	req.ContentLength = size

	resp, err := d.Client.Do(req)
	if err != nil {
		return "", &dverrors.TransportError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", dverrors.ClassifyStatus(resp.StatusCode, "part PUT failed")
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		return "", &dverrors.TransportError{Message: "part PUT response missing required ETag header"}
	}
	return etag, nil
}

func (d *Driver) complete(ctx context.Context, completeURL string, etags []string) error {
	payload := make(map[string]string, len(etags))
	for i, etag := range etags {
		payload[strconv.Itoa(i+1)] = etag
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.WithStack(err)
	}

	req, err := d.Client.NewServerRequest(ctx, http.MethodPut, completeURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.Client.Do(req)
	if err != nil {
		return &dverrors.TransportError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return dverrors.ClassifyStatus(resp.StatusCode, "complete failed")
	}
	return nil
}

func (d *Driver) abort(ctx context.Context, abortURL string) {
	req, err := d.Client.NewServerRequest(ctx, http.MethodDelete, abortURL, nil)
	if err != nil {
		return
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
