// Package version implements the save-callback commit pipeline: it turns a
// "ready to persist" notification from the document server into a new
// immutable document version and advances the resource's current-version
// pointer.
package version

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"deal-service/internal/domain/resource"
	"deal-service/internal/editor"
	apperrors "deal-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const provisionalPathFmt = "pending/%s"

// storagePathFmt lays out committed objects as
// {projectID}/underwriting-docs/{resourceID}/v{n}_{creator}_{name}.
const storagePathFmt = "%s/underwriting-docs/%s/v%d_%s_%s"

type ResourceStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*resource.Resource, error)
	SetCurrentVersion(ctx context.Context, resourceID, versionID uuid.UUID, expectedPrior *uuid.UUID) error
	WithResourceLock(ctx context.Context, resourceID uuid.UUID, fn func(ctx context.Context) error) error
}

type VersionStore interface {
	CreateProvisional(ctx context.Context, input resource.CreateVersionInput) (*resource.Version, error)
	GetActive(ctx context.Context, resourceID uuid.UUID) (*resource.Version, error)
	SupersedeOthers(ctx context.Context, resourceID, keepID uuid.UUID) error
	Finalize(ctx context.Context, id uuid.UUID, input resource.FinalizeVersionInput) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ObjectStore interface {
	UploadObject(ctx context.Context, bucketName, objectKey, contentType string, body []byte) error
	DeleteObject(ctx context.Context, bucketName, objectKey string) error
}

type ContentFetcher interface {
	Fetch(ctx context.Context, contentURL string) (*editor.FetchResult, error)
}

type Committer struct {
	resources ResourceStore
	versions  VersionStore
	storage   ObjectStore
	fetcher   ContentFetcher
	log       zerolog.Logger
}

func NewCommitter(resources ResourceStore, versions VersionStore, storage ObjectStore, fetcher ContentFetcher, log zerolog.Logger) *Committer {
	return &Committer{
		resources: resources,
		versions:  versions,
		storage:   storage,
		fetcher:   fetcher,
		log:       log.With().Str("component", "version-committer").Logger(),
	}
}

type CommitInput struct {
	ResourceID uuid.UUID
	// ActorID is the editing user from the verified capability token.
	// Persistence without an acting user is a hard failure upstream of here.
	ActorID    uuid.UUID
	ContentURL string
	ChangesURL *string
}

type CommitResult struct {
	Version *resource.Version
	// Duplicate is set when the fetched bytes match the active version's
	// content hash; no new version is committed.
	Duplicate bool
}

// Commit runs the version-commit pipeline under the resource's lock, so
// concurrent save callbacks for the same resource serialize. On any failure
// after the provisional row exists, the row is deleted (best effort) before
// the error is returned; prior versions are only superseded once the new
// bytes are durable, so the active-version invariant holds at every step.
func (c *Committer) Commit(ctx context.Context, input CommitInput) (*CommitResult, error) {
	var result *CommitResult

	err := c.resources.WithResourceLock(ctx, input.ResourceID, func(ctx context.Context) error {
		res, err := c.resources.GetByID(ctx, input.ResourceID)
		if err != nil {
			return err
		}

		r, err := c.commitLocked(ctx, res, input)
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Committer) commitLocked(ctx context.Context, res *resource.Resource, input CommitInput) (*CommitResult, error) {
	expectedPrior := res.CurrentVersionID

	// The prior active version is read before the provisional row exists, so
	// the dedup check below compares against a single unambiguous row.
	prior, err := c.versions.GetActive(ctx, res.ID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	provisional, err := c.versions.CreateProvisional(ctx, resource.CreateVersionInput{
		ResourceID:  res.ID,
		CreatedBy:   input.ActorID,
		StoragePath: fmt.Sprintf(provisionalPathFmt, uuid.New()),
		ChangesURL:  input.ChangesURL,
	})
	if err != nil {
		return nil, err
	}

	version, duplicate, err := c.finishCommit(ctx, res, provisional, prior, input, expectedPrior)
	if err != nil {
		c.compensate(ctx, provisional.ID)
		return nil, err
	}

	return &CommitResult{Version: version, Duplicate: duplicate}, nil
}

func (c *Committer) finishCommit(ctx context.Context, res *resource.Resource, provisional, prior *resource.Version, input CommitInput, expectedPrior *uuid.UUID) (*resource.Version, bool, error) {
	storagePath := fmt.Sprintf(storagePathFmt,
		res.ProjectID, res.ID, provisional.VersionNumber, input.ActorID, res.Name)

	fetched, err := c.fetcher.Fetch(ctx, input.ContentURL)
	if err != nil {
		return nil, false, err
	}

	contentHash := hashContent(fetched.Body)

	// A retried callback for an already-committed save carries the same
	// bytes; drop it instead of minting a duplicate version.
	if prior != nil && prior.Metadata.ContentHash != "" && prior.Metadata.ContentHash == contentHash {
		c.log.Info().
			Str("resource_id", res.ID.String()).
			Int("version_number", prior.VersionNumber).
			Msg("duplicate save callback, content unchanged")
		if err := c.versions.Delete(ctx, provisional.ID); err != nil {
			return nil, false, err
		}
		return prior, true, nil
	}

	if err := c.storage.UploadObject(ctx, res.OrgID.String(), storagePath, fetched.ContentType, fetched.Body); err != nil {
		return nil, false, err
	}

	version, err := c.publishVersion(ctx, res, provisional, storagePath, fetched, contentHash, expectedPrior)
	if err != nil {
		// The bytes are already in the bucket but no row will ever
		// reference them.
		c.discardObject(ctx, res.OrgID.String(), storagePath)
		return nil, false, err
	}

	return version, false, nil
}

// publishVersion makes the uploaded bytes the resource's current version:
// finalize the row, supersede the rest, advance the pointer.
func (c *Committer) publishVersion(ctx context.Context, res *resource.Resource, provisional *resource.Version, storagePath string, fetched *editor.FetchResult, contentHash string, expectedPrior *uuid.UUID) (*resource.Version, error) {
	if err := c.versions.Finalize(ctx, provisional.ID, resource.FinalizeVersionInput{
		StoragePath: storagePath,
		Metadata: resource.VersionMetadata{
			SizeBytes:    fetched.SizeBytes,
			MimeType:     fetched.ContentType,
			ContentHash:  contentHash,
			DownloadedAt: fetched.FetchedAt,
		},
	}); err != nil {
		return nil, err
	}

	if err := c.versions.SupersedeOthers(ctx, res.ID, provisional.ID); err != nil {
		return nil, err
	}

	if err := c.resources.SetCurrentVersion(ctx, res.ID, provisional.ID, expectedPrior); err != nil {
		return nil, err
	}

	version, err := c.reload(ctx, res.ID, provisional)
	if err != nil {
		return nil, err
	}

	c.log.Info().
		Str("resource_id", res.ID.String()).
		Str("version_id", version.ID.String()).
		Int("version_number", version.VersionNumber).
		Int64("size_bytes", fetched.SizeBytes).
		Msg("committed document version")

	return version, nil
}

// discardObject removes uploaded bytes that lost their commit. Best effort,
// same as compensate: the pipeline error is the one that must surface.
func (c *Committer) discardObject(ctx context.Context, bucket, objectKey string) {
	if err := c.storage.DeleteObject(context.WithoutCancel(ctx), bucket, objectKey); err != nil {
		c.log.Error().
			Err(err).
			Str("bucket", bucket).
			Str("object_key", objectKey).
			Msg("failed to delete uploaded object after commit failure")
	}
}

// compensate deletes the provisional row so no orphan survives a failed
// commit. Errors are logged, not returned: the caller's pipeline error is the
// one the document server must see.
func (c *Committer) compensate(ctx context.Context, versionID uuid.UUID) {
	if err := c.versions.Delete(context.WithoutCancel(ctx), versionID); err != nil {
		c.log.Error().
			Err(err).
			Str("version_id", versionID.String()).
			Msg("failed to delete provisional version after commit failure")
	}
}

func (c *Committer) reload(ctx context.Context, resourceID uuid.UUID, provisional *resource.Version) (*resource.Version, error) {
	active, err := c.versions.GetActive(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if active.ID != provisional.ID {
		return provisional, nil
	}
	return active, nil
}

func hashContent(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
