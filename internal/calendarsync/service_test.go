package calendarsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"deal-service/internal/domain/calendar"
	"deal-service/internal/domain/meeting"
	"deal-service/internal/gcal"
	apperrors "deal-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pushedResponse struct {
	eventID       string
	attendeeEmail string
	status        string
}

type fakeProvider struct {
	watchResult *gcal.WatchResult
	watchErr    error
	stopErr     error
	events      map[string]*gcal.Event
	eventErr    error
	setErr      error

	watchCalls int
	stopCalls  int
	pushed     []pushedResponse
}

func (f *fakeProvider) Watch(ctx context.Context, conn *calendar.Connection) (*gcal.WatchResult, error) {
	f.watchCalls++
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	return f.watchResult, nil
}

func (f *fakeProvider) StopWatch(ctx context.Context, conn *calendar.Connection) error {
	f.stopCalls++
	return f.stopErr
}

func (f *fakeProvider) GetEvent(ctx context.Context, conn *calendar.Connection, calendarID, eventID string) (*gcal.Event, error) {
	if f.eventErr != nil {
		return nil, f.eventErr
	}
	event, ok := f.events[eventID]
	if !ok {
		return nil, apperrors.NotFound("event not found")
	}
	return event, nil
}

func (f *fakeProvider) SetAttendeeResponse(ctx context.Context, conn *calendar.Connection, calendarID, eventID, attendeeEmail, responseStatus string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.pushed = append(f.pushed, pushedResponse{eventID, attendeeEmail, responseStatus})
	return nil
}

type watchUpdate struct {
	connID uuid.UUID
	input  calendar.UpdateWatchInput
}

type fakeConnections struct {
	byChannel map[string]*calendar.Connection
	byUser    map[uuid.UUID]*calendar.Connection
	expiring  []*calendar.Connection

	watchUpdates []watchUpdate
	cleared      []uuid.UUID
	deleted      []uuid.UUID
	deleteErr    error
}

func newFakeConnections() *fakeConnections {
	return &fakeConnections{
		byChannel: make(map[string]*calendar.Connection),
		byUser:    make(map[uuid.UUID]*calendar.Connection),
	}
}

func (f *fakeConnections) GetByWatchChannel(ctx context.Context, channelID, resourceID string) (*calendar.Connection, error) {
	conn, ok := f.byChannel[channelID+"/"+resourceID]
	if !ok {
		return nil, apperrors.NotFound("no matching connection")
	}
	return conn, nil
}

func (f *fakeConnections) GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*calendar.Connection, error) {
	conn, ok := f.byUser[userID]
	if !ok {
		return nil, apperrors.NotFound("no calendar connection")
	}
	return conn, nil
}

func (f *fakeConnections) UpdateWatch(ctx context.Context, id uuid.UUID, input calendar.UpdateWatchInput) error {
	f.watchUpdates = append(f.watchUpdates, watchUpdate{id, input})
	return nil
}

func (f *fakeConnections) ClearWatch(ctx context.Context, id uuid.UUID) error {
	f.cleared = append(f.cleared, id)
	return nil
}

func (f *fakeConnections) ListExpiringWatches(ctx context.Context, threshold time.Time) ([]*calendar.Connection, error) {
	return f.expiring, nil
}

func (f *fakeConnections) Delete(ctx context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type responseUpdate struct {
	meetingID uuid.UUID
	userID    uuid.UUID
	status    meeting.ResponseStatus
}

type fakeMeetings struct {
	meetings map[uuid.UUID]*meeting.Meeting

	updates   []responseUpdate
	updateErr error
	// unchanged makes UpdateResponse report that the row already carried
	// the written status.
	unchanged bool
}

func newFakeMeetings() *fakeMeetings {
	return &fakeMeetings{meetings: make(map[uuid.UUID]*meeting.Meeting)}
}

func (f *fakeMeetings) GetByID(ctx context.Context, id uuid.UUID) (*meeting.Meeting, error) {
	m, ok := f.meetings[id]
	if !ok {
		return nil, apperrors.NotFound("meeting not found")
	}
	return m, nil
}

func (f *fakeMeetings) ListWithEventRefsByParticipant(ctx context.Context, userID uuid.UUID) ([]*meeting.Meeting, error) {
	var out []*meeting.Meeting
	for _, m := range f.meetings {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeMeetings) UpdateResponse(ctx context.Context, meetingID, userID uuid.UUID, status meeting.ResponseStatus, respondedAt time.Time) (bool, error) {
	if f.updateErr != nil {
		return false, f.updateErr
	}
	f.updates = append(f.updates, responseUpdate{meetingID, userID, status})
	return !f.unchanged, nil
}

func newConnection(userID uuid.UUID) *calendar.Connection {
	return &calendar.Connection{
		ID:            uuid.New(),
		UserID:        userID,
		Provider:      calendar.ProviderGoogle,
		ProviderEmail: "user@example.com",
	}
}

func TestRegisterWatch_PersistsChannelIdentifiers(t *testing.T) {
	userID := uuid.New()
	conn := newConnection(userID)
	expiration := time.Now().Add(7 * 24 * time.Hour)
	provider := &fakeProvider{watchResult: &gcal.WatchResult{
		ChannelID:  "chan-new",
		ResourceID: "res-new",
		Expiration: expiration,
	}}
	connections := newFakeConnections()

	s := NewService(provider, connections, newFakeMeetings(), zerolog.Nop())

	require.NoError(t, s.RegisterWatch(context.Background(), conn))
	require.Len(t, connections.watchUpdates, 1)
	assert.Equal(t, conn.ID, connections.watchUpdates[0].connID)
	assert.Equal(t, "chan-new", connections.watchUpdates[0].input.ChannelID)
	assert.Equal(t, "res-new", connections.watchUpdates[0].input.ResourceID)
}

func TestDisconnect_TeardownFailureStillDeletes(t *testing.T) {
	conn := newConnection(uuid.New())
	provider := &fakeProvider{stopErr: errors.New("channel already gone")}
	connections := newFakeConnections()

	s := NewService(provider, connections, newFakeMeetings(), zerolog.Nop())

	err := s.Disconnect(context.Background(), conn)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrWatchTeardown)
	assert.Equal(t, []uuid.UUID{conn.ID}, connections.deleted)
}

func TestDisconnect_CleanTeardown(t *testing.T) {
	conn := newConnection(uuid.New())
	provider := &fakeProvider{}
	connections := newFakeConnections()

	s := NewService(provider, connections, newFakeMeetings(), zerolog.Nop())

	require.NoError(t, s.Disconnect(context.Background(), conn))
	assert.Equal(t, 1, provider.stopCalls)
	assert.Equal(t, []uuid.UUID{conn.ID}, connections.deleted)
}

func TestDisconnect_DeleteFailureSurfaces(t *testing.T) {
	conn := newConnection(uuid.New())
	connections := newFakeConnections()
	connections.deleteErr = errors.New("database down")

	s := NewService(&fakeProvider{}, connections, newFakeMeetings(), zerolog.Nop())

	err := s.Disconnect(context.Background(), conn)
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrWatchTeardown))
}

func TestReconcile_UpdatesMatchingAttendee(t *testing.T) {
	userID := uuid.New()
	conn := newConnection(userID)
	m := &meeting.Meeting{
		ID:        uuid.New(),
		EventRefs: []meeting.EventRef{{EventID: "evt-1", UserID: userID}},
	}
	meetings := newFakeMeetings()
	meetings.meetings[m.ID] = m

	provider := &fakeProvider{events: map[string]*gcal.Event{
		"evt-1": {ID: "evt-1", Attendees: []gcal.Attendee{
			{Email: "someone-else@example.com", ResponseStatus: "declined"},
			{Email: conn.ProviderEmail, ResponseStatus: "accepted"},
		}},
	}}

	s := NewService(provider, newFakeConnections(), meetings, zerolog.Nop())

	require.NoError(t, s.Reconcile(context.Background(), conn))
	require.Len(t, meetings.updates, 1)
	assert.Equal(t, m.ID, meetings.updates[0].meetingID)
	assert.Equal(t, userID, meetings.updates[0].userID)
	assert.Equal(t, meeting.ResponseAccepted, meetings.updates[0].status)
}

func TestReconcile_SkipsOtherUsersEventRefs(t *testing.T) {
	userID := uuid.New()
	conn := newConnection(userID)
	m := &meeting.Meeting{
		ID: uuid.New(),
		EventRefs: []meeting.EventRef{
			{EventID: "evt-other", UserID: uuid.New()},
			{EventID: ""},
		},
	}
	meetings := newFakeMeetings()
	meetings.meetings[m.ID] = m

	provider := &fakeProvider{events: map[string]*gcal.Event{}}

	s := NewService(provider, newFakeConnections(), meetings, zerolog.Nop())

	require.NoError(t, s.Reconcile(context.Background(), conn))
	assert.Empty(t, meetings.updates)
}

func TestReconcile_LegacyRefWithoutUserStillProcessed(t *testing.T) {
	userID := uuid.New()
	conn := newConnection(userID)
	// Older rows stored bare event ids; those deserialize with a nil UserID
	// and are attributed to the notifying connection's user.
	m := &meeting.Meeting{
		ID:        uuid.New(),
		EventRefs: []meeting.EventRef{{EventID: "evt-legacy"}},
	}
	meetings := newFakeMeetings()
	meetings.meetings[m.ID] = m

	provider := &fakeProvider{events: map[string]*gcal.Event{
		"evt-legacy": {ID: "evt-legacy", Attendees: []gcal.Attendee{
			{Email: conn.ProviderEmail, ResponseStatus: "tentative"},
		}},
	}}

	s := NewService(provider, newFakeConnections(), meetings, zerolog.Nop())

	require.NoError(t, s.Reconcile(context.Background(), conn))
	require.Len(t, meetings.updates, 1)
	assert.Equal(t, meeting.ResponseTentative, meetings.updates[0].status)
}

func TestReconcile_EventFetchFailureSkipsEvent(t *testing.T) {
	userID := uuid.New()
	conn := newConnection(userID)
	m := &meeting.Meeting{
		ID:        uuid.New(),
		EventRefs: []meeting.EventRef{{EventID: "evt-gone", UserID: userID}},
	}
	meetings := newFakeMeetings()
	meetings.meetings[m.ID] = m

	provider := &fakeProvider{events: map[string]*gcal.Event{}}

	s := NewService(provider, newFakeConnections(), meetings, zerolog.Nop())

	// Per-event failures never fail the reconciliation pass.
	require.NoError(t, s.Reconcile(context.Background(), conn))
	assert.Empty(t, meetings.updates)
}

func TestPushResponse_SyncsEveryEventRef(t *testing.T) {
	userID := uuid.New()
	conn := newConnection(userID)
	m := &meeting.Meeting{
		ID: uuid.New(),
		EventRefs: []meeting.EventRef{
			{EventID: "evt-1", UserID: userID},
			{EventID: "evt-2", UserID: uuid.New()},
		},
	}
	meetings := newFakeMeetings()
	meetings.meetings[m.ID] = m
	connections := newFakeConnections()
	connections.byUser[userID] = conn
	provider := &fakeProvider{}

	s := NewService(provider, connections, meetings, zerolog.Nop())

	synced, err := s.PushResponse(context.Background(), m.ID, userID, "user@example.com", meeting.ResponseDeclined)
	require.NoError(t, err)
	assert.True(t, synced)

	// Local write happens before any provider call.
	require.Len(t, meetings.updates, 1)
	assert.Equal(t, meeting.ResponseDeclined, meetings.updates[0].status)

	require.Len(t, provider.pushed, 2)
	assert.Equal(t, "declined", provider.pushed[0].status)
	assert.Equal(t, "user@example.com", provider.pushed[0].attendeeEmail)
}

func TestPushResponse_LocalOnlyWithoutConnection(t *testing.T) {
	userID := uuid.New()
	m := &meeting.Meeting{
		ID:        uuid.New(),
		EventRefs: []meeting.EventRef{{EventID: "evt-1", UserID: userID}},
	}
	meetings := newFakeMeetings()
	meetings.meetings[m.ID] = m
	provider := &fakeProvider{}

	s := NewService(provider, newFakeConnections(), meetings, zerolog.Nop())

	synced, err := s.PushResponse(context.Background(), m.ID, userID, "user@example.com", meeting.ResponseAccepted)
	require.NoError(t, err)
	assert.False(t, synced)
	assert.Len(t, meetings.updates, 1)
	assert.Empty(t, provider.pushed)
}

func TestPushResponse_PendingMapsToNeedsAction(t *testing.T) {
	userID := uuid.New()
	conn := newConnection(userID)
	m := &meeting.Meeting{
		ID:        uuid.New(),
		EventRefs: []meeting.EventRef{{EventID: "evt-1", UserID: userID}},
	}
	meetings := newFakeMeetings()
	meetings.meetings[m.ID] = m
	connections := newFakeConnections()
	connections.byUser[userID] = conn
	provider := &fakeProvider{}

	s := NewService(provider, connections, meetings, zerolog.Nop())

	_, err := s.PushResponse(context.Background(), m.ID, userID, "user@example.com", meeting.ResponsePending)
	require.NoError(t, err)
	require.Len(t, provider.pushed, 1)
	assert.Equal(t, "needsAction", provider.pushed[0].status)
}

func TestPushResponse_InvalidStatus(t *testing.T) {
	s := NewService(&fakeProvider{}, newFakeConnections(), newFakeMeetings(), zerolog.Nop())

	_, err := s.PushResponse(context.Background(), uuid.New(), uuid.New(), "user@example.com", "maybe")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestPushResponse_ProviderFailureStillReportsSynced(t *testing.T) {
	userID := uuid.New()
	conn := newConnection(userID)
	m := &meeting.Meeting{
		ID:        uuid.New(),
		EventRefs: []meeting.EventRef{{EventID: "evt-1", UserID: userID}},
	}
	meetings := newFakeMeetings()
	meetings.meetings[m.ID] = m
	connections := newFakeConnections()
	connections.byUser[userID] = conn
	provider := &fakeProvider{setErr: errors.New("provider timeout")}

	s := NewService(provider, connections, meetings, zerolog.Nop())

	// Push-out is best effort per event; the local write already landed.
	synced, err := s.PushResponse(context.Background(), m.ID, userID, "user@example.com", meeting.ResponseAccepted)
	require.NoError(t, err)
	assert.True(t, synced)
}

func TestRenewExpiring_CountsRenewedAndFailed(t *testing.T) {
	good := newConnection(uuid.New())
	connections := newFakeConnections()
	connections.expiring = []*calendar.Connection{good}

	provider := &fakeProvider{watchResult: &gcal.WatchResult{
		ChannelID:  "chan-renewed",
		ResourceID: "res-renewed",
		Expiration: time.Now().Add(7 * 24 * time.Hour),
	}}

	s := NewService(provider, connections, newFakeMeetings(), zerolog.Nop())

	renewed, failed, err := s.RenewExpiring(context.Background(), time.Now().Add(24*time.Hour), false)
	require.NoError(t, err)
	assert.Equal(t, 1, renewed)
	assert.Equal(t, 0, failed)
	assert.Len(t, connections.watchUpdates, 1)
}

func TestRenewExpiring_ClearsIdentifiersBeforeReRegistering(t *testing.T) {
	conn := newConnection(uuid.New())
	connections := newFakeConnections()
	connections.expiring = []*calendar.Connection{conn}
	provider := &fakeProvider{watchErr: errors.New("quota exceeded")}

	s := NewService(provider, connections, newFakeMeetings(), zerolog.Nop())

	renewed, failed, err := s.RenewExpiring(context.Background(), time.Now().Add(24*time.Hour), false)
	require.NoError(t, err)
	assert.Equal(t, 0, renewed)
	assert.Equal(t, 1, failed)

	// Even though re-registration failed, the stopped channel's identifiers
	// are gone, so its notifications can no longer resolve a connection.
	assert.Equal(t, []uuid.UUID{conn.ID}, connections.cleared)
	assert.Empty(t, connections.watchUpdates)
}

func TestRenewExpiring_WatchFailureCounted(t *testing.T) {
	connections := newFakeConnections()
	connections.expiring = []*calendar.Connection{
		newConnection(uuid.New()),
		newConnection(uuid.New()),
	}
	provider := &fakeProvider{watchErr: errors.New("quota exceeded")}

	s := NewService(provider, connections, newFakeMeetings(), zerolog.Nop())

	renewed, failed, err := s.RenewExpiring(context.Background(), time.Now().Add(24*time.Hour), false)
	require.NoError(t, err)
	assert.Equal(t, 0, renewed)
	assert.Equal(t, 2, failed)
}

func TestRenewExpiring_StopFailureDoesNotBlockRenewal(t *testing.T) {
	connections := newFakeConnections()
	connections.expiring = []*calendar.Connection{newConnection(uuid.New())}
	provider := &fakeProvider{
		stopErr: errors.New("channel not found"),
		watchResult: &gcal.WatchResult{
			ChannelID:  "chan-renewed",
			ResourceID: "res-renewed",
			Expiration: time.Now().Add(7 * 24 * time.Hour),
		},
	}

	s := NewService(provider, connections, newFakeMeetings(), zerolog.Nop())

	renewed, failed, err := s.RenewExpiring(context.Background(), time.Now().Add(24*time.Hour), false)
	require.NoError(t, err)
	assert.Equal(t, 1, renewed)
	assert.Equal(t, 0, failed)
}

func TestRenewExpiring_DryRunTouchesNothing(t *testing.T) {
	connections := newFakeConnections()
	connections.expiring = []*calendar.Connection{newConnection(uuid.New())}
	provider := &fakeProvider{}

	s := NewService(provider, connections, newFakeMeetings(), zerolog.Nop())

	renewed, failed, err := s.RenewExpiring(context.Background(), time.Now().Add(24*time.Hour), true)
	require.NoError(t, err)
	assert.Equal(t, 1, renewed)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 0, provider.watchCalls)
	assert.Equal(t, 0, provider.stopCalls)
	assert.Empty(t, connections.watchUpdates)
}
