package handler

import (
	"errors"
	"net/http"

	"deal-service/internal/auth"
	"deal-service/internal/domain/calendar"
	apperrors "deal-service/pkg/errors"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type CalendarHandler struct {
	sync        CalendarSyncer
	connections ConnectionGetter
	log         zerolog.Logger
}

func NewCalendarHandler(sync CalendarSyncer, connections ConnectionGetter, log zerolog.Logger) *CalendarHandler {
	return &CalendarHandler{
		sync:        sync,
		connections: connections,
		log:         log.With().Str("component", "calendar_handler").Logger(),
	}
}

// Webhook ingests push notifications from the calendar provider. The
// provider disables endpoints that return errors, so everything past header
// validation acknowledges with 200 regardless of outcome.
func (h *CalendarHandler) Webhook(c echo.Context) error {
	channelID := c.Request().Header.Get(headerGoogChannelID)
	resourceID := c.Request().Header.Get(headerGoogResourceID)
	state := c.Request().Header.Get(headerGoogResourceState)

	if channelID == "" || resourceID == "" || state == "" {
		return respondError(c, http.StatusBadRequest, msgMissingWebhookHeaders)
	}

	// The initial handshake notification carries no content change.
	if state == resourceStateSync {
		return respondMessage(c, http.StatusOK, msgSyncAcknowledged)
	}

	ctx := c.Request().Context()

	conn, err := h.sync.ResolveConnection(ctx, channelID, resourceID)
	if err != nil {
		// Unmatched channels happen after disconnects and channel
		// expiry; acknowledging keeps the provider from disabling us.
		h.log.Warn().
			Str("channel_id", channelID).
			Str("resource_id", resourceID).
			Msg("notification for unknown watch channel")
		return respondMessage(c, http.StatusOK, msgNotificationAccepted)
	}

	if err := h.sync.Reconcile(ctx, conn); err != nil {
		h.log.Error().
			Err(err).
			Str("connection_id", conn.ID.String()).
			Msg("attendee reconciliation failed")
	}

	return respondMessage(c, http.StatusOK, msgNotificationAccepted)
}

// RegisterWatch sets up provider push notifications for the caller's
// calendar connection.
func (h *CalendarHandler) RegisterWatch(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()

	conn, err := h.connections.GetByUserAndProvider(ctx, userID, calendar.ProviderGoogle)
	if err != nil {
		return respondError(c, http.StatusNotFound, msgNoCalendarConnection)
	}

	if err := h.sync.RegisterWatch(ctx, conn); err != nil {
		return err
	}

	return respondMessage(c, http.StatusOK, msgWatchRegistered)
}

// Disconnect tears down the watch and removes the connection. A failed
// teardown still removes the connection; the response says so.
func (h *CalendarHandler) Disconnect(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()

	conn, err := h.connections.GetByUserAndProvider(ctx, userID, calendar.ProviderGoogle)
	if err != nil {
		return respondError(c, http.StatusNotFound, msgNoCalendarConnection)
	}

	if err := h.sync.Disconnect(ctx, conn); err != nil {
		if errors.Is(err, apperrors.ErrWatchTeardown) {
			return c.JSON(http.StatusOK, map[string]string{
				jsonKeyMessage: msgWatchTeardownWarning,
				"warning":      err.Error(),
			})
		}
		return err
	}

	return respondMessage(c, http.StatusOK, msgConnectionRemoved)
}
