package nativeupload

import (
	"context"
	"fmt"

	"github.com/gdcc/dvuploader-go/filedesc"
	"github.com/gdcc/dvuploader-go/internal/repo"
)

// UpdateMetadataByID updates the metadata of a descriptor whose file_id is
// already known, skipping the inventory round-trip Reconcile needs for
// freshly uploaded files: a descriptor classified unchanged_data already
// carries its file_id from the inventory match.
func (d *Driver) UpdateMetadataByID(ctx context.Context, desc *filedesc.Descriptor) error {
	endpoint := fmt.Sprintf(repo.EndpointFileMetaFmt, desc.FileID)
	return d.postMetadataWithRetry(ctx, endpoint, desc.MetadataForm(), desc.DisplayName)
}
