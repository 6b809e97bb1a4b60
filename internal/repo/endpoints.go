package repo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/gdcc/dvuploader-go/internal/dverrors"
)

// RequestTicket issues GET /api/datasets/:persistentId/uploadurls, the
// first step of the direct-upload path.
func (c *Client) RequestTicket(ctx context.Context, persistentID string, size int64) (Ticket, error) {
	query := url.Values{
		"persistentId": {persistentID},
		"size":         {strconv.FormatInt(size, 10)},
	}

	var env ticketEnvelope
	if err := c.GetJSON(ctx, EndpointUploadURLs, query, &env); err != nil {
		return Ticket{}, &dverrors.TicketError{Message: err.Error()}
	}
	if env.Data.IsMultipart() {
		if env.Data.Abort == "" || env.Data.Complete == "" || env.Data.PartSize == 0 || env.Data.StorageIdentifier == "" {
			return Ticket{}, &dverrors.TicketError{Message: "multipart ticket missing required fields"}
		}
	} else if env.Data.URL == "" {
		return Ticket{}, &dverrors.TicketError{Message: "single-part ticket missing url"}
	}
	return env.Data, nil
}

// ProbeDirectUpload issues GET /uploadurls?size=1024 and reports whether
// the direct-upload capability is supported: a 404 means unsupported, any
// 2xx means supported, anything else is a CapabilityError.
func (c *Client) ProbeDirectUpload(ctx context.Context, persistentID string) (bool, error) {
	query := url.Values{"persistentId": {persistentID}, "size": {"1024"}}
	req, err := c.NewPlainRequest(ctx, http.MethodGet, EndpointUploadURLs, query, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.Do(req)
	if err != nil {
		return false, errors.WithStack(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	default:
		return false, &dverrors.CapabilityError{StatusCode: resp.StatusCode}
	}
}

// FetchInventory issues GET /api/datasets/:persistentId/?persistentId=...
// and returns the dataset's current file listing.
func (c *Client) FetchInventory(ctx context.Context, persistentID string) ([]InventoryFile, error) {
	query := url.Values{"persistentId": {persistentID}}
	var env datasetEnvelope
	if err := c.GetJSON(ctx, EndpointDatasetByPID, query, &env); err != nil {
		return nil, err
	}
	return env.Data.LatestVersion.Files, nil
}

// ResolveDatasetID resolves a persistent identifier to the repository's
// numeric dataset id, used to address the dataset-locks endpoint.
func (c *Client) ResolveDatasetID(ctx context.Context, persistentID string) (string, error) {
	query := url.Values{"persistentId": {persistentID}}
	var env datasetEnvelope
	if err := c.GetJSON(ctx, EndpointDatasetByPID, query, &env); err != nil {
		return "", err
	}
	return fmt.Sprintf("%v", env.Data.ID), nil
}

// FetchLocks issues GET /api/datasets/{id}/locks.
func (c *Client) FetchLocks(ctx context.Context, datasetID string) ([]Lock, error) {
	var locks []Lock
	if err := c.GetJSON(ctx, fmt.Sprintf(EndpointDatasetLocks, datasetID), nil, &locks); err != nil {
		return nil, err
	}
	return locks, nil
}

// DeleteLock issues DELETE /api/datasets/{id}/locks (optionally scoped by
// lockType).
func (c *Client) DeleteLock(ctx context.Context, datasetID, lockType string) error {
	query := url.Values{}
	if lockType != "" {
		query.Set("type", lockType)
	}
	status, body, err := c.StatusOnly(ctx, http.MethodDelete, fmt.Sprintf(EndpointDatasetLocks, datasetID), query, nil)
	if err != nil {
		return err
	}
	if status >= 400 {
		return dverrors.ClassifyStatus(status, string(body))
	}
	return nil
}
