package directupload

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/gdcc/dvuploader-go/filedesc"
	"github.com/gdcc/dvuploader-go/internal/bufpool"
	"github.com/gdcc/dvuploader-go/internal/dverrors"
	"github.com/gdcc/dvuploader-go/internal/lock"
	"github.com/gdcc/dvuploader-go/internal/repo"
)

// Register waits for the dataset lock to clear, then submits the grouped
// registration calls for descriptors that completed the object-store
// phase. Descriptors are partitioned into new and replace groups; only
// non-empty groups are POSTed.
func (d *Driver) Register(
	ctx context.Context,
	uploaded []*filedesc.Descriptor,
	pollInterval, timeout time.Duration,
) error {
	datasetID, err := d.Client.ResolveDatasetID(ctx, d.PersistentID)
	if err != nil {
		return err
	}

	waiter := &lock.Waiter{Client: d.Client}
	if err := waiter.WaitForUnlock(ctx, d.PersistentID, datasetID, pollInterval, timeout); err != nil {
		return err
	}

	var newFiles, replaceFiles []*filedesc.Descriptor
	for _, desc := range uploaded {
		if desc.ToReplace {
			replaceFiles = append(replaceFiles, desc)
		} else {
			newFiles = append(newFiles, desc)
		}
	}

	if len(newFiles) > 0 {
		if err := d.registerGroup(ctx, repo.EndpointAddFiles, newFiles); err != nil {
			return errors.Wrap(err, "registering new files")
		}
	}
	if len(replaceFiles) > 0 {
		if err := d.registerGroup(ctx, repo.EndpointReplaceFiles, replaceFiles); err != nil {
			return errors.Wrap(err, "registering replacement files")
		}
	}
	return nil
}

func (d *Driver) registerGroup(ctx context.Context, endpoint string, descs []*filedesc.Descriptor) error {
	records := make([]filedesc.Record, 0, len(descs))
	for _, desc := range descs {
		records = append(records, desc.RegistrationRecord())
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return errors.WithStack(err)
	}

	buf := bufpool.Get()
	defer bufpool.Put(buf)
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormField("jsonData")
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := part.Write(payload); err != nil {
		return errors.WithStack(err)
	}
	if err := mw.Close(); err != nil {
		return errors.WithStack(err)
	}

	query := url.Values{"persistentId": {d.PersistentID}}
	req, err := d.Client.NewPlainRequest(ctx, http.MethodPost, endpoint, query, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := d.Client.Do(req)
	if err != nil {
		return &dverrors.TransportError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return dverrors.ClassifyStatus(resp.StatusCode, "registration failed")
	}
	return nil
}
