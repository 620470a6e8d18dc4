package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"deal-service/internal/domain/resource"
	apperrors "deal-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ResourceRepository struct {
	db *DB
}

func NewResourceRepository(db *DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

const resourceColumns = `id, org_id, project_id, name, current_version_id, created_at, updated_at`

func (r *ResourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*resource.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1`

	res := &resource.Resource{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&res.ID, &res.OrgID, &res.ProjectID, &res.Name, &res.CurrentVersionID, &res.CreatedAt, &res.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound(errResourceNotFound)
		}
		return nil, errFailedGetResource(err)
	}

	return res, nil
}

// SetCurrentVersion advances the resource's current-version pointer with an
// optimistic check against the pointer value read at commit start. A
// concurrent commit that moved the pointer first makes the check fail.
func (r *ResourceRepository) SetCurrentVersion(ctx context.Context, resourceID, versionID uuid.UUID, expectedPrior *uuid.UUID) error {
	query := `
		UPDATE resources SET current_version_id = $2, updated_at = now()
		WHERE id = $1 AND current_version_id IS NOT DISTINCT FROM $3
	`

	tag, err := r.db.Pool.Exec(ctx, query, resourceID, versionID, expectedPrior)
	if err != nil {
		return errFailedSetCurrentVersion(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Conflict(fmt.Sprintf(errCurrentVersionChangedFmt, resourceID))
	}

	return nil
}

// WithResourceLock serializes version commits for one resource.
func (r *ResourceRepository) WithResourceLock(ctx context.Context, resourceID uuid.UUID, fn func(ctx context.Context) error) error {
	return r.db.WithResourceLock(ctx, "resource:"+resourceID.String(), fn)
}

type VersionRepository struct {
	db *DB
}

func NewVersionRepository(db *DB) *VersionRepository {
	return &VersionRepository{db: db}
}

const versionColumns = `id, resource_id, version_number, created_by, storage_path, status, changes_url, metadata, created_at, updated_at`

// CreateProvisional inserts a version row in provisional state. The
// version_number is assigned by a trigger; the returned row carries it.
func (r *VersionRepository) CreateProvisional(ctx context.Context, input resource.CreateVersionInput) (*resource.Version, error) {
	query := `
		INSERT INTO document_versions (resource_id, created_by, storage_path, status, changes_url, metadata)
		VALUES ($1, $2, $3, $4, $5, '{}'::jsonb)
		RETURNING ` + versionColumns

	return r.scanVersion(r.db.Pool.QueryRow(ctx, query,
		input.ResourceID, input.CreatedBy, input.StoragePath, resource.VersionActive, input.ChangesURL,
	), errFailedCreateVersion)
}

func (r *VersionRepository) GetByID(ctx context.Context, id uuid.UUID) (*resource.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM document_versions WHERE id = $1`
	return r.scanVersion(r.db.Pool.QueryRow(ctx, query, id), errFailedGetVersion)
}

// GetByStoragePath resolves a stored object path back to its version row.
func (r *VersionRepository) GetByStoragePath(ctx context.Context, storagePath string) (*resource.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM document_versions WHERE storage_path = $1`
	return r.scanVersion(r.db.Pool.QueryRow(ctx, query, storagePath), errFailedGetVersion)
}

// GetActive returns the resource's active version, or NotFound if the
// resource has no versions yet.
func (r *VersionRepository) GetActive(ctx context.Context, resourceID uuid.UUID) (*resource.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM document_versions WHERE resource_id = $1 AND status = $2`
	return r.scanVersion(r.db.Pool.QueryRow(ctx, query, resourceID, resource.VersionActive), errFailedGetVersion)
}

// SupersedeOthers marks every version of the resource except keepID as
// superseded.
func (r *VersionRepository) SupersedeOthers(ctx context.Context, resourceID, keepID uuid.UUID) error {
	query := `
		UPDATE document_versions SET status = $3, updated_at = now()
		WHERE resource_id = $1 AND id <> $2 AND status <> $3
	`

	if _, err := r.db.Pool.Exec(ctx, query, resourceID, keepID, resource.VersionSuperseded); err != nil {
		return errFailedSupersedeVersions(err)
	}

	return nil
}

// Finalize replaces the placeholder storage path and attaches the download
// metadata once bytes are durably stored. Finalized rows are never mutated
// again.
func (r *VersionRepository) Finalize(ctx context.Context, id uuid.UUID, input resource.FinalizeVersionInput) error {
	metadata, err := json.Marshal(input.Metadata)
	if err != nil {
		return errFailedEncodeMetadata(err)
	}

	query := `
		UPDATE document_versions SET storage_path = $2, metadata = $3, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, input.StoragePath, metadata)
	if err != nil {
		// Partial unique index on (resource_id, metadata->>'content_hash')
		// backstops the pre-upload dedup check.
		if isUniqueViolation(err) {
			return apperrors.Conflict(errDuplicateVersionContent)
		}
		return errFailedFinalizeVersion(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound(errVersionNotFound)
	}

	return nil
}

// Delete removes a provisional version row. Used as the compensating action
// when a commit fails mid-pipeline.
func (r *VersionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM document_versions WHERE id = $1`, id); err != nil {
		return errFailedDeleteVersion(err)
	}
	return nil
}

func (r *VersionRepository) scanVersion(row pgx.Row, wrap func(error) error) (*resource.Version, error) {
	v := &resource.Version{}
	var metadata []byte

	err := row.Scan(
		&v.ID, &v.ResourceID, &v.VersionNumber, &v.CreatedBy, &v.StoragePath,
		&v.Status, &v.ChangesURL, &metadata, &v.CreatedAt, &v.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound(errVersionNotFound)
		}
		return nil, wrap(err)
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &v.Metadata); err != nil {
			return nil, errFailedDecodeMetadata(err)
		}
	}

	return v, nil
}
