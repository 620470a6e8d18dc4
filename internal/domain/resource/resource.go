package resource

import (
	"time"

	"github.com/google/uuid"
)

// VersionStatus is the lifecycle state of a document version. Exactly one
// version per resource is active once any version exists.
type VersionStatus string

const (
	VersionActive     VersionStatus = "active"
	VersionSuperseded VersionStatus = "superseded"
)

// Resource is a logical named document belonging to a project. It owns a
// pointer to its current version, nil until the first save lands.
type Resource struct {
	ID               uuid.UUID
	OrgID            uuid.UUID
	ProjectID        uuid.UUID
	Name             string
	CurrentVersionID *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Version is an immutable snapshot of a resource's bytes. The version number
// is assigned by a database trigger on insert, never by the application.
type Version struct {
	ID            uuid.UUID
	ResourceID    uuid.UUID
	VersionNumber int
	CreatedBy     uuid.UUID
	StoragePath   string
	Status        VersionStatus
	ChangesURL    *string
	Metadata      VersionMetadata
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// VersionMetadata is stored as jsonb alongside the version row.
type VersionMetadata struct {
	SizeBytes    int64     `json:"size_bytes,omitempty"`
	MimeType     string    `json:"mime_type,omitempty"`
	ContentHash  string    `json:"content_hash,omitempty"`
	DownloadedAt time.Time `json:"downloaded_at,omitempty"`
}

type CreateVersionInput struct {
	ResourceID  uuid.UUID
	CreatedBy   uuid.UUID
	StoragePath string
	ChangesURL  *string
}

type FinalizeVersionInput struct {
	StoragePath string
	Metadata    VersionMetadata
}
