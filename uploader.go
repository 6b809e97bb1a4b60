// Package dvuploader is the end-to-end upload orchestrator: it decides the
// upload path, deduplicates against the existing dataset, computes
// checksums in lockstep with streaming, drives bounded concurrency, and
// finalizes by registering or updating metadata.
package dvuploader

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/gdcc/dvuploader-go/filedesc"
	"github.com/gdcc/dvuploader-go/internal/asyncutil"
	"github.com/gdcc/dvuploader-go/internal/directupload"
	"github.com/gdcc/dvuploader-go/internal/nativeupload"
	"github.com/gdcc/dvuploader-go/internal/repo"
	"github.com/gdcc/dvuploader-go/pkgr"
)

// Uploader orchestrates uploads of a collection of FileDescriptors into one
// dataset.
type Uploader struct {
	client       *repo.Client
	persistentID string
}

// New creates an Uploader for the given repository address, API token, and
// target dataset persistent identifier.
func New(address, apiToken, persistentID string) (*Uploader, error) {
	client, err := repo.New(address, apiToken)
	if err != nil {
		return nil, err
	}
	return &Uploader{client: client, persistentID: persistentID}, nil
}

// Upload drives descriptors through the full pipeline: prepare, classify
// against the current inventory, sort by size, probe direct-upload
// capability, dispatch, and report.
func (u *Uploader) Upload(ctx context.Context, descriptors []*filedesc.Descriptor, opts ...Option) (*BatchResult, error) {
	options := buildOptions(opts...)
	result := &BatchResult{Outcomes: make(map[string]error)}

	// Step 1: Prepare. No checksum is computed yet.
	for _, d := range descriptors {
		if err := d.Prepare(); err != nil {
			return nil, errors.Wrap(err, "preparing descriptors")
		}
	}

	// Step 2: Classify against one inventory snapshot.
	classified, skipped, err := u.classify(ctx, descriptors, options.ReplaceExisting)
	if err != nil {
		return nil, errors.Wrap(err, "classifying descriptors")
	}
	result.Skipped = skipped

	if len(classified) == 0 {
		return result, nil
	}

	// Step 3: sort by size ascending.
	sort.SliceStable(classified, func(i, j int) bool {
		return classified[i].Size < classified[j].Size
	})

	var toUpload, metadataOnly []*filedesc.Descriptor
	for _, d := range classified {
		if d.UnchangedData {
			metadataOnly = append(metadataOnly, d)
		} else {
			toUpload = append(toUpload, d)
		}
	}

	// Metadata-only descriptors always go through the native path's
	// reconciliation stage, using the file_id already known from
	// classification.
	if len(metadataOnly) > 0 {
		nd, err := nativeupload.New(u.client, u.persistentID, options.Config.Retry, "")
		if err != nil {
			return nil, err
		}
		defer nd.Close()

		for _, d := range metadataOnly {
			err := nd.UpdateMetadataByID(ctx, d)
			result.Outcomes[d.Key()] = err
		}
	}

	if len(toUpload) == 0 {
		return result, nil
	}

	// Step 4: capability probe.
	directSupported := false
	if !options.ForceNative {
		directSupported, err = u.client.ProbeDirectUpload(ctx, u.persistentID)
		if err != nil {
			return nil, errors.Wrap(err, "probing direct-upload capability")
		}
	}

	concurrency := options.Config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	// Step 5: dispatch.
	if directSupported {
		if err := u.dispatchDirect(ctx, toUpload, result, concurrency, options); err != nil {
			return result, err
		}
	} else {
		if err := u.dispatchNative(ctx, toUpload, result, concurrency, options); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (u *Uploader) dispatchDirect(
	ctx context.Context,
	descriptors []*filedesc.Descriptor,
	result *BatchResult,
	concurrency int,
	options UploadOptions,
) error {
	driver := directupload.New(u.client, u.persistentID)

	limiter := asyncutil.NewLimiter(concurrency)
	outcomes := asyncutil.NewOutcomes()

	for _, d := range descriptors {
		d := d
		limiter.Go(func() {
			err := driver.UploadDescriptor(ctx, d)
			outcomes.Set(d.Key(), err)
		})
	}
	limiter.Wait()

	var uploaded []*filedesc.Descriptor
	for _, d := range descriptors {
		err, _ := outcomes.Get(d.Key())
		result.Outcomes[d.Key()] = err
		if err == nil {
			uploaded = append(uploaded, d)
		}
	}

	if len(uploaded) == 0 {
		return nil
	}

	if err := driver.Register(ctx, uploaded, options.Config.LockWaitTime, options.Config.LockTimeout); err != nil {
		return &PartitionError{Partition: "direct-upload registration", Err: err}
	}
	return nil
}

func (u *Uploader) dispatchNative(
	ctx context.Context,
	descriptors []*filedesc.Descriptor,
	result *BatchResult,
	concurrency int,
	options UploadOptions,
) error {
	driver, err := nativeupload.New(u.client, u.persistentID, options.Config.Retry, "")
	if err != nil {
		return err
	}
	defer driver.Close()

	// Replace descriptors are partitioned off before packaging: the native
	// replace endpoint is scoped to one file id and has no zip form, so
	// they must never share a package with anything else.
	packages := pkgr.DistributeForNativeUpload(descriptors, options.Config.MaxPackageSize)

	var g errgroup.Group
	g.SetLimit(concurrency)
	outcomes := asyncutil.NewOutcomes()

	for _, pkg := range packages {
		pkg := pkg
		g.Go(func() error {
			err := driver.UploadPackage(ctx, pkg)
			for _, member := range pkg.Members {
				outcomes.Set(member.Key(), err)
			}
			return nil
		})
	}
	g.Wait()

	var reconcileCandidates []*filedesc.Descriptor
	for _, d := range descriptors {
		err, _ := outcomes.Get(d.Key())
		result.Outcomes[d.Key()] = err
		if err == nil && !d.ToReplace {
			reconcileCandidates = append(reconcileCandidates, d)
		}
	}

	if len(reconcileCandidates) == 0 {
		return nil
	}

	if err := driver.Reconcile(ctx, reconcileCandidates); err != nil {
		return &PartitionError{Partition: "native-upload metadata reconciliation", Err: err}
	}
	return nil
}
