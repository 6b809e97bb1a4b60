package nativeupload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/gdcc/dvuploader-go/filedesc"
	"github.com/gdcc/dvuploader-go/internal/bufpool"
	"github.com/gdcc/dvuploader-go/internal/config"
	"github.com/gdcc/dvuploader-go/internal/dverrors"
	"github.com/gdcc/dvuploader-go/internal/repo"
	"github.com/gdcc/dvuploader-go/pkgr"
)

// UploadPackage drives one package through the native-upload form POST,
// with retry. Singleton packages upload their sole member directly; larger
// packages are zipped first. Packages should come from
// pkgr.DistributeForNativeUpload so a to-replace descriptor is never mixed
// into a multi-member package.
func (d *Driver) UploadPackage(ctx context.Context, pkg *pkgr.Package) error {
	if pkg.Singleton() {
		return d.uploadMember(ctx, pkg.Members[0])
	}

	archivePath, err := pkgr.ZipPackage(pkg, d.TempDir)
	if err != nil {
		return err
	}
	return d.uploadArchive(ctx, archivePath, pkg)
}

func (d *Driver) uploadMember(ctx context.Context, desc *filedesc.Descriptor) error {
	endpoint, query := d.endpointFor(desc)
	form := desc.NativeForm()
	return d.postWithRetry(ctx, endpoint, query, form, desc.DisplayName, desc.MimeType, desc.Size, func() (io.ReadCloser, error) {
		f, err := desc.OpenHandle()
		if err != nil {
			return nil, err
		}
		if rc, ok := f.(io.ReadCloser); ok {
			return rc, nil
		}
		return io.NopCloser(f), nil
	})
}

// uploadArchive POSTs a multi-member zip to the add endpoint. Callers must
// only pass packages built by pkgr.DistributeForNativeUpload, which never
// places a to-replace descriptor in a non-singleton package: the replace
// endpoint is scoped to one file id and has no zip form.
func (d *Driver) uploadArchive(ctx context.Context, archivePath string, pkg *pkgr.Package) error {
	form := filedesc.NativeJSON{
		Categories:   []string{"DATA"},
		ForceReplace: true,
	}
	query := url.Values{"persistentId": {d.PersistentID}}
	name := fmt.Sprintf("package_%d.zip", pkg.Index)

	return d.postWithRetry(ctx, repo.EndpointNativeAdd, query, form, name, "application/zip", pkg.Size(), func() (io.ReadCloser, error) {
		return os.Open(archivePath)
	})
}

func (d *Driver) endpointFor(desc *filedesc.Descriptor) (string, url.Values) {
	if desc.ToReplace {
		return fmt.Sprintf(repo.EndpointFileReplaceFmt, desc.FileID), url.Values{}
	}
	return repo.EndpointNativeAdd, url.Values{"persistentId": {d.PersistentID}}
}

// postWithRetry submits the multipart form, retrying with exponential
// backoff on transport errors and HTTP 429; it returns immediately on an
// HTTP 400 zip-limit response (never retried) or any other non-retryable
// error.
func (d *Driver) postWithRetry(
	ctx context.Context,
	endpoint string,
	query url.Values,
	jsonData interface{},
	fileName, mimeType string,
	size int64,
	open func() (io.ReadCloser, error),
) error {
	var lastErr error
	start := time.Now()

	for attempt := 0; attempt < d.Retry.MaxAttempts; attempt++ {
		err := d.postOnce(ctx, endpoint, query, jsonData, fileName, mimeType, open)
		if err == nil {
			sleep(ctx, config.NativeSuccessPause)
			d.Logger.Transferred(fileName, size, time.Since(start))
			return nil
		}

		if dverrors.IsZipLimit(err) {
			return err
		}
		if !dverrors.Retryable(err) {
			return err
		}

		lastErr = err
		d.Logger.Retry(fileName, attempt, d.Retry.Wait(attempt).String(), err)
		sleep(ctx, config.NativeFailurePause)
		sleep(ctx, d.Retry.Wait(attempt))
	}

	return errors.Wrapf(lastErr, "exhausted %d attempts uploading %s", d.Retry.MaxAttempts, fileName)
}

func (d *Driver) postOnce(
	ctx context.Context,
	endpoint string,
	query url.Values,
	jsonData interface{},
	fileName, mimeType string,
	open func() (io.ReadCloser, error),
) error {
	payload, err := json.Marshal(jsonData)
	if err != nil {
		return errors.WithStack(err)
	}

	handle, err := open()
	if err != nil {
		return &dverrors.IOError{Path: fileName, Message: err.Error()}
	}
	defer handle.Close()

	buf := bufpool.Get()
	defer bufpool.Put(buf)
	mw := multipart.NewWriter(buf)

	jsonPart, err := mw.CreateFormField("jsonData")
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := jsonPart.Write(payload); err != nil {
		return errors.WithStack(err)
	}

	filePart, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := io.Copy(filePart, handle); err != nil {
		return errors.WithStack(err)
	}
	if err := mw.Close(); err != nil {
		return errors.WithStack(err)
	}

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

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	body := new(bytes.Buffer)
	body.ReadFrom(resp.Body)
	return dverrors.ClassifyStatus(resp.StatusCode, body.String())
}
