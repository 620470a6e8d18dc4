// Package calendarsync keeps local meeting participant responses consistent
// with the user's external calendar: watch-channel lifecycle, webhook-driven
// reconciliation of attendee responses, and push-out of locally made
// responses.
package calendarsync

import (
	"context"
	"time"

	"deal-service/internal/domain/calendar"
	"deal-service/internal/domain/meeting"
	"deal-service/internal/gcal"
	apperrors "deal-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// primaryCalendarID addresses the user's own calendar; event access runs
// under the user's token, so "primary" always resolves correctly.
const primaryCalendarID = "primary"

type Provider interface {
	Watch(ctx context.Context, conn *calendar.Connection) (*gcal.WatchResult, error)
	StopWatch(ctx context.Context, conn *calendar.Connection) error
	GetEvent(ctx context.Context, conn *calendar.Connection, calendarID, eventID string) (*gcal.Event, error)
	SetAttendeeResponse(ctx context.Context, conn *calendar.Connection, calendarID, eventID, attendeeEmail, responseStatus string) error
}

type ConnectionStore interface {
	GetByWatchChannel(ctx context.Context, channelID, resourceID string) (*calendar.Connection, error)
	GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*calendar.Connection, error)
	UpdateWatch(ctx context.Context, id uuid.UUID, input calendar.UpdateWatchInput) error
	ClearWatch(ctx context.Context, id uuid.UUID) error
	ListExpiringWatches(ctx context.Context, threshold time.Time) ([]*calendar.Connection, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type MeetingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*meeting.Meeting, error)
	ListWithEventRefsByParticipant(ctx context.Context, userID uuid.UUID) ([]*meeting.Meeting, error)
	UpdateResponse(ctx context.Context, meetingID, userID uuid.UUID, status meeting.ResponseStatus, respondedAt time.Time) (bool, error)
}

type Service struct {
	provider    Provider
	connections ConnectionStore
	meetings    MeetingStore
	log         zerolog.Logger
}

func NewService(provider Provider, connections ConnectionStore, meetings MeetingStore, log zerolog.Logger) *Service {
	return &Service{
		provider:    provider,
		connections: connections,
		meetings:    meetings,
		log:         log.With().Str("component", "calendarsync").Logger(),
	}
}

// RegisterWatch sets up a push-notification channel for the connection and
// persists the provider-assigned identifiers used to route webhooks back.
func (s *Service) RegisterWatch(ctx context.Context, conn *calendar.Connection) error {
	result, err := s.provider.Watch(ctx, conn)
	if err != nil {
		return err
	}

	return s.connections.UpdateWatch(ctx, conn.ID, calendar.UpdateWatchInput{
		ChannelID:  result.ChannelID,
		ResourceID: result.ResourceID,
		Expiration: result.Expiration,
	})
}

// Disconnect tears down the watch channel and deletes the connection.
// Teardown failure never blocks deletion; it is returned as a warning-class
// error alongside the completed delete.
func (s *Service) Disconnect(ctx context.Context, conn *calendar.Connection) error {
	var warning error
	if err := s.provider.StopWatch(ctx, conn); err != nil {
		s.log.Warn().
			Err(err).
			Str("connection_id", conn.ID.String()).
			Msg("watch teardown failed, deleting connection anyway")
		warning = err
	}

	if err := s.connections.Delete(ctx, conn.ID); err != nil {
		return err
	}

	if warning != nil {
		return apperrors.WatchTeardown(warning)
	}
	return nil
}

// ResolveConnection routes an inbound webhook notification to its
// connection.
func (s *Service) ResolveConnection(ctx context.Context, channelID, resourceID string) (*calendar.Connection, error) {
	return s.connections.GetByWatchChannel(ctx, channelID, resourceID)
}

// Reconcile pulls the provider's current view of the connection's referenced
// events and folds attendee responses into local participant rows. Only
// response status is written from this path, never meeting timing. Per-event
// failures are logged and skipped; the webhook caller already got its ack.
func (s *Service) Reconcile(ctx context.Context, conn *calendar.Connection) error {
	meetings, err := s.meetings.ListWithEventRefsByParticipant(ctx, conn.UserID)
	if err != nil {
		return err
	}

	for _, m := range meetings {
		for _, ref := range m.EventRefs {
			if ref.EventID == "" {
				continue
			}
			if ref.UserID != uuid.Nil && ref.UserID != conn.UserID {
				continue
			}
			s.reconcileEvent(ctx, conn, m, ref.EventID)
		}
	}

	return nil
}

func (s *Service) reconcileEvent(ctx context.Context, conn *calendar.Connection, m *meeting.Meeting, eventID string) {
	event, err := s.provider.GetEvent(ctx, conn, primaryCalendarID, eventID)
	if err != nil {
		s.log.Error().
			Err(err).
			Str("meeting_id", m.ID.String()).
			Str("event_id", eventID).
			Msg("failed to fetch event during reconciliation")
		return
	}

	for _, attendee := range event.Attendees {
		if attendee.Email != conn.ProviderEmail {
			continue
		}

		status := meeting.FromProvider(attendee.ResponseStatus)
		changed, err := s.meetings.UpdateResponse(ctx, m.ID, conn.UserID, status, time.Now().UTC())
		if err != nil {
			s.log.Error().
				Err(err).
				Str("meeting_id", m.ID.String()).
				Msg("failed to update participant response")
			return
		}
		if changed {
			s.log.Info().
				Str("meeting_id", m.ID.String()).
				Str("user_id", conn.UserID.String()).
				Str("status", string(status)).
				Msg("participant response reconciled")
		}
		return
	}
}

// PushResponse writes a locally made response and mirrors it onto each of
// the meeting's external events. Returns whether the external sync ran; a
// missing connection degrades to a local-only update.
func (s *Service) PushResponse(ctx context.Context, meetingID, userID uuid.UUID, userEmail string, status meeting.ResponseStatus) (bool, error) {
	if !status.Valid() {
		return false, apperrors.Validation("invalid response status: " + string(status))
	}

	if _, err := s.meetings.UpdateResponse(ctx, meetingID, userID, status, time.Now().UTC()); err != nil {
		return false, err
	}

	m, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return false, err
	}

	conn, err := s.connections.GetByUserAndProvider(ctx, userID, calendar.ProviderGoogle)
	if err != nil {
		// No connection means nothing to sync; the local write stands.
		return false, nil
	}

	synced := 0
	for _, ref := range m.EventRefs {
		if ref.EventID == "" {
			continue
		}
		if err := s.provider.SetAttendeeResponse(ctx, conn, primaryCalendarID, ref.EventID, userEmail, status.ToProvider()); err != nil {
			s.log.Error().
				Err(err).
				Str("meeting_id", meetingID.String()).
				Str("event_id", ref.EventID).
				Msg("failed to push response to calendar event")
			continue
		}
		synced++
	}

	s.log.Info().
		Str("meeting_id", meetingID.String()).
		Int("synced_events", synced).
		Msg("calendar response update completed")

	return true, nil
}

// RenewExpiring re-registers every watch expiring before the threshold.
// Each connection is handled independently; a failure moves on to the next.
func (s *Service) RenewExpiring(ctx context.Context, threshold time.Time, dryRun bool) (renewed, failed int, err error) {
	connections, err := s.connections.ListExpiringWatches(ctx, threshold)
	if err != nil {
		return 0, 0, err
	}

	for _, conn := range connections {
		if dryRun {
			s.log.Info().
				Str("connection_id", conn.ID.String()).
				Msg("dry run: would renew watch")
			renewed++
			continue
		}

		if err := s.renewOne(ctx, conn); err != nil {
			failed++
			s.log.Error().
				Err(err).
				Str("connection_id", conn.ID.String()).
				Msg("failed to renew watch")
			continue
		}
		renewed++
	}

	return renewed, failed, nil
}

func (s *Service) renewOne(ctx context.Context, conn *calendar.Connection) error {
	// Stop the old channel first; a failure here is tolerable, the channel
	// is about to expire anyway.
	if err := s.provider.StopWatch(ctx, conn); err != nil {
		s.log.Warn().
			Err(err).
			Str("connection_id", conn.ID.String()).
			Msg("failed to stop expiring watch, continuing with renewal")
	}

	// Clear the stored identifiers before re-registering. If registration
	// fails, the stopped channel must not keep routing webhooks.
	if err := s.connections.ClearWatch(ctx, conn.ID); err != nil {
		return err
	}

	return s.RegisterWatch(ctx, conn)
}
