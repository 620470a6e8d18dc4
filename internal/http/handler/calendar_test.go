package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"deal-service/internal/auth"
	"deal-service/internal/domain/calendar"
	apperrors "deal-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCalendarSyncer struct {
	conn          *calendar.Connection
	resolveErr    error
	reconcileErr  error
	registerErr   error
	disconnectErr error

	resolveCalls    int
	reconcileCalls  int
	registerCalls   int
	disconnectCalls int
}

func (f *fakeCalendarSyncer) ResolveConnection(ctx context.Context, channelID, resourceID string) (*calendar.Connection, error) {
	f.resolveCalls++
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.conn, nil
}

func (f *fakeCalendarSyncer) Reconcile(ctx context.Context, conn *calendar.Connection) error {
	f.reconcileCalls++
	return f.reconcileErr
}

func (f *fakeCalendarSyncer) RegisterWatch(ctx context.Context, conn *calendar.Connection) error {
	f.registerCalls++
	return f.registerErr
}

func (f *fakeCalendarSyncer) Disconnect(ctx context.Context, conn *calendar.Connection) error {
	f.disconnectCalls++
	return f.disconnectErr
}

type fakeConnectionGetter struct {
	conn *calendar.Connection
	err  error
}

func (f *fakeConnectionGetter) GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*calendar.Connection, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.conn, nil
}

func webhookContext(headers map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/calendar/webhook", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func notificationHeaders(state string) map[string]string {
	return map[string]string{
		headerGoogChannelID:     "chan-123",
		headerGoogResourceID:    "res-456",
		headerGoogResourceState: state,
	}
}

func TestWebhook_MissingHeaders(t *testing.T) {
	sync := &fakeCalendarSyncer{}
	h := NewCalendarHandler(sync, &fakeConnectionGetter{}, zerolog.Nop())

	c, rec := webhookContext(map[string]string{headerGoogChannelID: "chan-123"})

	require.NoError(t, h.Webhook(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), msgMissingWebhookHeaders)
	assert.Equal(t, 0, sync.resolveCalls)
}

func TestWebhook_SyncStateAckedWithoutLookup(t *testing.T) {
	sync := &fakeCalendarSyncer{}
	h := NewCalendarHandler(sync, &fakeConnectionGetter{}, zerolog.Nop())

	c, rec := webhookContext(notificationHeaders(resourceStateSync))

	require.NoError(t, h.Webhook(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgSyncAcknowledged)
	assert.Equal(t, 0, sync.resolveCalls)
	assert.Equal(t, 0, sync.reconcileCalls)
}

func TestWebhook_KnownChannelTriggersReconcile(t *testing.T) {
	conn := &calendar.Connection{ID: uuid.New(), UserID: uuid.New()}
	sync := &fakeCalendarSyncer{conn: conn}
	h := NewCalendarHandler(sync, &fakeConnectionGetter{}, zerolog.Nop())

	c, rec := webhookContext(notificationHeaders("exists"))

	require.NoError(t, h.Webhook(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sync.reconcileCalls)
}

func TestWebhook_UnknownChannelStillAcked(t *testing.T) {
	sync := &fakeCalendarSyncer{resolveErr: apperrors.NotFound("no matching connection")}
	h := NewCalendarHandler(sync, &fakeConnectionGetter{}, zerolog.Nop())

	c, rec := webhookContext(notificationHeaders("exists"))

	require.NoError(t, h.Webhook(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, sync.reconcileCalls)
}

func TestWebhook_ReconcileFailureStillAcked(t *testing.T) {
	conn := &calendar.Connection{ID: uuid.New()}
	sync := &fakeCalendarSyncer{conn: conn, reconcileErr: errors.New("provider timeout")}
	h := NewCalendarHandler(sync, &fakeConnectionGetter{}, zerolog.Nop())

	c, rec := webhookContext(notificationHeaders("exists"))

	require.NoError(t, h.Webhook(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func authedContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(auth.ContextKeyUserID, uuid.New())
	return c, rec
}

func TestRegisterWatch_NoConnection(t *testing.T) {
	sync := &fakeCalendarSyncer{}
	connections := &fakeConnectionGetter{err: apperrors.NotFound("no calendar connection")}
	h := NewCalendarHandler(sync, connections, zerolog.Nop())

	c, rec := authedContext(http.MethodPost, "/api/calendar/watch")

	require.NoError(t, h.RegisterWatch(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), msgNoCalendarConnection)
	assert.Equal(t, 0, sync.registerCalls)
}

func TestRegisterWatch_Success(t *testing.T) {
	conn := &calendar.Connection{ID: uuid.New()}
	sync := &fakeCalendarSyncer{}
	h := NewCalendarHandler(sync, &fakeConnectionGetter{conn: conn}, zerolog.Nop())

	c, rec := authedContext(http.MethodPost, "/api/calendar/watch")

	require.NoError(t, h.RegisterWatch(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgWatchRegistered)
	assert.Equal(t, 1, sync.registerCalls)
}

func TestDisconnect_Success(t *testing.T) {
	conn := &calendar.Connection{ID: uuid.New()}
	sync := &fakeCalendarSyncer{}
	h := NewCalendarHandler(sync, &fakeConnectionGetter{conn: conn}, zerolog.Nop())

	c, rec := authedContext(http.MethodDelete, "/api/calendar/connection")

	require.NoError(t, h.Disconnect(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgConnectionRemoved)
	assert.Equal(t, 1, sync.disconnectCalls)
}

func TestDisconnect_TeardownFailureReturnsWarning(t *testing.T) {
	conn := &calendar.Connection{ID: uuid.New()}
	sync := &fakeCalendarSyncer{
		conn:          conn,
		disconnectErr: apperrors.WatchTeardown(errors.New("stop channel failed")),
	}
	h := NewCalendarHandler(sync, &fakeConnectionGetter{conn: conn}, zerolog.Nop())

	c, rec := authedContext(http.MethodDelete, "/api/calendar/connection")

	require.NoError(t, h.Disconnect(c))
	// The connection is gone either way; the caller just learns the channel
	// may linger until it expires.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgWatchTeardownWarning)
	assert.Contains(t, rec.Body.String(), "warning")
}

func TestDisconnect_OtherErrorPropagates(t *testing.T) {
	conn := &calendar.Connection{ID: uuid.New()}
	sync := &fakeCalendarSyncer{conn: conn, disconnectErr: errors.New("database down")}
	h := NewCalendarHandler(sync, &fakeConnectionGetter{conn: conn}, zerolog.Nop())

	c, _ := authedContext(http.MethodDelete, "/api/calendar/connection")

	err := h.Disconnect(c)
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrWatchTeardown))
}
