package directupload

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/gdcc/dvuploader-go/filedesc"
	"github.com/gdcc/dvuploader-go/internal/dverrors"
	"github.com/gdcc/dvuploader-go/internal/repo"
)

// HeaderObjectTagging marks freshly-PUT objects as temporary until
// registration confirms them.
const HeaderObjectTagging = "x-amz-tagging"

// ObjectTagTemp is the value used while an object awaits registration.
const ObjectTagTemp = "dv-state=temp"

func (d *Driver) uploadSinglePart(ctx context.Context, desc *filedesc.Descriptor, ticket repo.Ticket) error {
	start := time.Now()
	handle, err := desc.OpenHandle()
	if err != nil {
		return err
	}
	defer func() {
		if closer, ok := handle.(io.Closer); ok {
			closer.Close()
		}
	}()

	// Feed every streamed byte through the checksum state as it goes out,
	// never a separate read pass.
	tee := io.TeeReader(io.LimitReader(handle, desc.Size), desc.ChecksumWriter())

	req, err := d.Client.NewServerRequest(ctx, http.MethodPut, ticket.URL, tee)
	if err != nil {
		return errors.WithStack(err)
	}
	req.ContentLength = desc.Size
	req.Header.Set("Content-Length", strconv.FormatInt(desc.Size, 10))
	req.Header.Set(HeaderObjectTagging, ObjectTagTemp)

	resp, err := d.Client.Do(req)
	if err != nil {
		return &dverrors.TransportError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return dverrors.ClassifyStatus(resp.StatusCode, "single-part PUT failed")
	}

	desc.StorageIdentifier = ticket.StorageIdentifier
	desc.ApplyChecksum()
	d.Logger.Transferred(desc.DisplayName, desc.Size, time.Since(start))
	return nil
}
