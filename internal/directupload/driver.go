// Package directupload implements the direct-upload protocol driver:
// ticket request, single-part or multipart PUT to the object store,
// complete/abort, and the grouped registration call.
package directupload

import (
	"context"

	"github.com/gdcc/dvuploader-go/filedesc"
	"github.com/gdcc/dvuploader-go/internal/dvlog"
	"github.com/gdcc/dvuploader-go/internal/repo"
)

// Driver drives the per-descriptor direct-upload state machine for one
// dataset.
type Driver struct {
	Client       *repo.Client
	PersistentID string
	Logger       *dvlog.Logger
}

// New creates a direct-upload driver.
func New(client *repo.Client, persistentID string) *Driver {
	return &Driver{Client: client, PersistentID: persistentID, Logger: dvlog.Default}
}

// UploadDescriptor drives one descriptor through ticket request and the
// object-store phase. On success, the descriptor's StorageIdentifier and
// ChecksumValue are set. Failure at any stage skips just this descriptor;
// multipart failures additionally issue Abort before returning.
func (d *Driver) UploadDescriptor(ctx context.Context, desc *filedesc.Descriptor) error {
	ticket, err := d.Client.RequestTicket(ctx, d.PersistentID, desc.Size)
	if err != nil {
		return err
	}

	if ticket.IsMultipart() {
		return d.uploadMultipart(ctx, desc, ticket)
	}
	return d.uploadSinglePart(ctx, desc, ticket)
}
