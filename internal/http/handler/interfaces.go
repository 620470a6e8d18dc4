package handler

import (
	"context"

	"deal-service/internal/domain/calendar"
	"deal-service/internal/domain/meeting"
	"deal-service/internal/domain/resource"
	"deal-service/internal/editor"
	"deal-service/internal/version"

	"github.com/google/uuid"
)

// Consumer-side interfaces defined by handlers.
// Each interface contains only the methods needed by the specific handler.

// EditorHandler interfaces
type ResourceGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*resource.Resource, error)
}

type VersionResolver interface {
	GetByStoragePath(ctx context.Context, storagePath string) (*resource.Version, error)
}

type ContentURLMinter interface {
	GeneratePresignedDownloadURL(ctx context.Context, bucketName, objectKey string) (string, error)
}

type CapabilityBuilder interface {
	Build(in editor.BuildInput) (*editor.SignedConfig, error)
}

type CapabilityVerifier interface {
	Verify(tokenString string) (*editor.Config, error)
}

type VersionCommitter interface {
	Commit(ctx context.Context, input version.CommitInput) (*version.CommitResult, error)
}

// CalendarHandler interfaces
type CalendarSyncer interface {
	ResolveConnection(ctx context.Context, channelID, resourceID string) (*calendar.Connection, error)
	Reconcile(ctx context.Context, conn *calendar.Connection) error
	RegisterWatch(ctx context.Context, conn *calendar.Connection) error
	Disconnect(ctx context.Context, conn *calendar.Connection) error
}

type ConnectionGetter interface {
	GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*calendar.Connection, error)
}

// MeetingHandler interfaces
type MeetingRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*meeting.Meeting, error)
	GetParticipants(ctx context.Context, meetingID uuid.UUID) ([]*meeting.Participant, error)
	Reschedule(ctx context.Context, id uuid.UUID, input meeting.RescheduleInput) error
	ResetNonOrganizerResponses(ctx context.Context, meetingID, organizerID uuid.UUID) error
}

type ResponsePusher interface {
	PushResponse(ctx context.Context, meetingID, userID uuid.UUID, userEmail string, status meeting.ResponseStatus) (bool, error)
}
