package nativeupload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/gdcc/dvuploader-go/filedesc"
	"github.com/gdcc/dvuploader-go/internal/bufpool"
	"github.com/gdcc/dvuploader-go/internal/dverrors"
	"github.com/gdcc/dvuploader-go/internal/repo"
)

// tabSuffix is appended to a descriptor's key when the server has rewritten
// an ingested tabular file.
const tabSuffix = ".tab"

// Reconcile fetches the updated dataset inventory and, for each descriptor
// in candidates that should receive a metadata update, POSTs
// /api/files/{file_id}/metadata. Descriptors consumed into a
// zip archive are skipped unless EnforceMetadataUpdate is set; descriptors
// whose display name ends in .zip are always skipped, since the server
// unpacks them.
func (d *Driver) Reconcile(ctx context.Context, candidates []*filedesc.Descriptor) error {
	files, err := d.Client.FetchInventory(ctx, d.PersistentID)
	if err != nil {
		return err
	}

	byPath := make(map[string]string, len(files))
	byTabPath := make(map[string]string, len(files))
	for _, f := range files {
		key := joinLabel(f.DirectoryLabel, f.Label)
		id := fmt.Sprintf("%v", f.DataFile.ID)
		byPath[key] = id
		byTabPath[strings.TrimSuffix(key, tabSuffix)] = id
	}

	for _, desc := range candidates {
		if desc.InsideZip && !desc.EnforceMetadataUpdate {
			continue
		}
		if strings.HasSuffix(desc.DisplayName, ".zip") {
			continue
		}

		key := desc.Key()
		fileID, ok := byPath[key]
		if !ok {
			fileID, ok = byTabPath[key]
		}
		if !ok {
			d.Logger.Skip(key, "no matching file in updated inventory")
			continue
		}

		endpoint := fmt.Sprintf(repo.EndpointFileMetaFmt, fileID)
		form := desc.MetadataForm()
		if err := d.postMetadataWithRetry(ctx, endpoint, form, desc.DisplayName); err != nil {
			return errors.Wrapf(err, "updating metadata for %s", key)
		}
	}

	return nil
}

func joinLabel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func (d *Driver) postMetadataWithRetry(ctx context.Context, endpoint string, form filedesc.MetadataJSON, label string) error {
	var lastErr error
	for attempt := 0; attempt < d.Retry.MaxAttempts; attempt++ {
		err := d.postMetadataOnce(ctx, endpoint, form)
		if err == nil {
			return nil
		}
		if !dverrors.Retryable(err) {
			return err
		}
		lastErr = err
		d.Logger.Retry(label, attempt, d.Retry.Wait(attempt).String(), err)
		sleep(ctx, d.Retry.Wait(attempt))
	}
	return errors.Wrapf(lastErr, "exhausted %d attempts updating metadata for %s", d.Retry.MaxAttempts, label)
}

func (d *Driver) postMetadataOnce(ctx context.Context, endpoint string, form filedesc.MetadataJSON) error {
	payload, err := json.Marshal(form)
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

	req, err := d.Client.NewPlainRequest(ctx, http.MethodPost, endpoint, url.Values{}, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := d.Client.Do(req)
	if err != nil {
		return &dverrors.TransportError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	body := new(bytes.Buffer)
	body.ReadFrom(resp.Body)
	return dverrors.ClassifyStatus(resp.StatusCode, body.String())
}
