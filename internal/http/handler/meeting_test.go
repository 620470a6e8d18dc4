package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"deal-service/internal/auth"
	"deal-service/internal/domain/meeting"
	apperrors "deal-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMeetingRepo struct {
	meeting      *meeting.Meeting
	participants []*meeting.Participant

	rescheduleCalls []meeting.RescheduleInput
	resetCalls      int
	rescheduleErr   error
}

func (f *fakeMeetingRepo) GetByID(ctx context.Context, id uuid.UUID) (*meeting.Meeting, error) {
	if f.meeting == nil || f.meeting.ID != id {
		return nil, apperrors.NotFound(msgMeetingNotFound)
	}
	return f.meeting, nil
}

func (f *fakeMeetingRepo) GetParticipants(ctx context.Context, meetingID uuid.UUID) ([]*meeting.Participant, error) {
	if f.meeting == nil || f.meeting.ID != meetingID {
		return nil, apperrors.NotFound(msgMeetingNotFound)
	}
	return f.participants, nil
}

func (f *fakeMeetingRepo) Reschedule(ctx context.Context, id uuid.UUID, input meeting.RescheduleInput) error {
	if f.rescheduleErr != nil {
		return f.rescheduleErr
	}
	f.rescheduleCalls = append(f.rescheduleCalls, input)
	return nil
}

func (f *fakeMeetingRepo) ResetNonOrganizerResponses(ctx context.Context, meetingID, organizerID uuid.UUID) error {
	f.resetCalls++
	return nil
}

type fakePusher struct {
	synced bool
	err    error
	calls  int
	status meeting.ResponseStatus
}

func (f *fakePusher) PushResponse(ctx context.Context, meetingID, userID uuid.UUID, userEmail string, status meeting.ResponseStatus) (bool, error) {
	f.calls++
	f.status = status
	if f.err != nil {
		return false, f.err
	}
	return f.synced, nil
}

type meetingFixture struct {
	handler     *MeetingHandler
	repo        *fakeMeetingRepo
	pusher      *fakePusher
	meeting     *meeting.Meeting
	organizerID uuid.UUID
	attendeeID  uuid.UUID
}

func newMeetingFixture() *meetingFixture {
	organizerID := uuid.New()
	attendeeID := uuid.New()
	m := &meeting.Meeting{
		ID:          uuid.New(),
		OrganizerID: organizerID,
		Title:       "Site visit",
		StartTime:   time.Now().Add(24 * time.Hour),
		EndTime:     time.Now().Add(25 * time.Hour),
	}
	repo := &fakeMeetingRepo{
		meeting: m,
		participants: []*meeting.Participant{
			{MeetingID: m.ID, UserID: organizerID, ResponseStatus: meeting.ResponseAccepted},
			{MeetingID: m.ID, UserID: attendeeID, ResponseStatus: meeting.ResponsePending},
		},
	}
	pusher := &fakePusher{synced: true}
	return &meetingFixture{
		handler:     NewMeetingHandler(repo, pusher, zerolog.Nop()),
		repo:        repo,
		pusher:      pusher,
		meeting:     m,
		organizerID: organizerID,
		attendeeID:  attendeeID,
	}
}

func meetingJSONContext(userID uuid.UUID, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(auth.ContextKeyUserID, userID)
	c.Set(auth.ContextKeyUserEmail, "attendee@example.com")
	return c, rec
}

func TestUpdateResponse_SyncedToCalendar(t *testing.T) {
	f := newMeetingFixture()
	body := fmt.Sprintf(`{"meeting_id":%q,"status":"accepted"}`, f.meeting.ID)
	c, rec := meetingJSONContext(f.attendeeID, http.MethodPost, "/api/calendar/update-response", body)

	require.NoError(t, f.handler.UpdateResponse(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp UpdateResponseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Synced)
	assert.Equal(t, msgResponseSynced, resp.Message)
	assert.Equal(t, meeting.ResponseAccepted, f.pusher.status)
}

func TestUpdateResponse_LocalOnlyWithoutConnection(t *testing.T) {
	f := newMeetingFixture()
	f.pusher.synced = false
	body := fmt.Sprintf(`{"meeting_id":%q,"status":"declined"}`, f.meeting.ID)
	c, rec := meetingJSONContext(f.attendeeID, http.MethodPost, "/api/calendar/update-response", body)

	require.NoError(t, f.handler.UpdateResponse(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp UpdateResponseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Synced)
	assert.Equal(t, msgResponseLocalOnly, resp.Message)
}

func TestUpdateResponse_InvalidStatus(t *testing.T) {
	f := newMeetingFixture()
	body := fmt.Sprintf(`{"meeting_id":%q,"status":"maybe"}`, f.meeting.ID)
	c, rec := meetingJSONContext(f.attendeeID, http.MethodPost, "/api/calendar/update-response", body)

	require.NoError(t, f.handler.UpdateResponse(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), msgInvalidResponseStatus)
	assert.Equal(t, 0, f.pusher.calls)
}

func TestUpdateResponse_MalformedBodyIsValidationError(t *testing.T) {
	f := newMeetingFixture()
	for name, body := range map[string]string{
		"truncated json": `{"meeting_id":`,
		"unknown field":  `{"meeting_id":"x","status":"accepted","extra":true}`,
		"trailing data":  `{"meeting_id":"x","status":"accepted"}{}`,
	} {
		c, _ := meetingJSONContext(f.attendeeID, http.MethodPost, "/api/calendar/update-response", body)

		err := f.handler.UpdateResponse(c)
		require.Error(t, err, name)
		assert.ErrorIs(t, err, apperrors.ErrValidation, name)
		assert.Equal(t, 0, f.pusher.calls, name)
	}
}

func TestUpdateResponse_NonJSONContentType(t *testing.T) {
	f := newMeetingFixture()
	c, _ := meetingJSONContext(f.attendeeID, http.MethodPost, "/api/calendar/update-response", "meeting_id=x")
	c.Request().Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)

	err := f.handler.UpdateResponse(c)
	require.Error(t, err)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnsupportedMediaType, httpErr.Code)
}

func TestUpdateResponse_InvalidMeetingID(t *testing.T) {
	f := newMeetingFixture()
	c, rec := meetingJSONContext(f.attendeeID, http.MethodPost, "/api/calendar/update-response",
		`{"meeting_id":"nope","status":"accepted"}`)

	require.NoError(t, f.handler.UpdateResponse(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), msgInvalidMeetingID)
}

func TestUpdateResponse_NonParticipantForbidden(t *testing.T) {
	f := newMeetingFixture()
	outsider := uuid.New()
	body := fmt.Sprintf(`{"meeting_id":%q,"status":"accepted"}`, f.meeting.ID)
	c, rec := meetingJSONContext(outsider, http.MethodPost, "/api/calendar/update-response", body)

	require.NoError(t, f.handler.UpdateResponse(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), msgNotParticipant)
	assert.Equal(t, 0, f.pusher.calls)
}

func TestUpdateResponse_UnknownMeeting(t *testing.T) {
	f := newMeetingFixture()
	body := fmt.Sprintf(`{"meeting_id":%q,"status":"accepted"}`, uuid.New())
	c, rec := meetingJSONContext(f.attendeeID, http.MethodPost, "/api/calendar/update-response", body)

	require.NoError(t, f.handler.UpdateResponse(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), msgMeetingNotFound)
}

func rescheduleContext(userID uuid.UUID, meetingID, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/api/meetings/"+meetingID+"/reschedule", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames(paramMeetingID)
	c.SetParamValues(meetingID)
	c.Set(auth.ContextKeyUserID, userID)
	return c, rec
}

func rescheduleBody(start, end time.Time) string {
	return fmt.Sprintf(`{"start_time":%q,"end_time":%q}`,
		start.Format(time.RFC3339), end.Format(time.RFC3339))
}

func TestReschedule_ResetsParticipantResponses(t *testing.T) {
	f := newMeetingFixture()
	start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	c, rec := rescheduleContext(f.organizerID, f.meeting.ID.String(),
		rescheduleBody(start, start.Add(time.Hour)))

	require.NoError(t, f.handler.Reschedule(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgMeetingRescheduled)

	require.Len(t, f.repo.rescheduleCalls, 1)
	assert.True(t, start.Equal(f.repo.rescheduleCalls[0].StartTime))
	assert.Equal(t, 1, f.repo.resetCalls)
}

func TestReschedule_NonOrganizerForbidden(t *testing.T) {
	f := newMeetingFixture()
	start := time.Now().Add(48 * time.Hour)
	c, rec := rescheduleContext(f.attendeeID, f.meeting.ID.String(),
		rescheduleBody(start, start.Add(time.Hour)))

	require.NoError(t, f.handler.Reschedule(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), msgNotOrganizer)
	assert.Empty(t, f.repo.rescheduleCalls)
	assert.Equal(t, 0, f.repo.resetCalls)
}

func TestReschedule_InvalidTimeWindow(t *testing.T) {
	f := newMeetingFixture()
	start := time.Now().Add(48 * time.Hour)
	c, rec := rescheduleContext(f.organizerID, f.meeting.ID.String(),
		rescheduleBody(start, start))

	require.NoError(t, f.handler.Reschedule(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), msgInvalidTimeWindow)
	assert.Empty(t, f.repo.rescheduleCalls)
}

func TestReschedule_UnknownMeeting(t *testing.T) {
	f := newMeetingFixture()
	start := time.Now().Add(48 * time.Hour)
	c, rec := rescheduleContext(f.organizerID, uuid.NewString(),
		rescheduleBody(start, start.Add(time.Hour)))

	require.NoError(t, f.handler.Reschedule(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), msgMeetingNotFound)
}
