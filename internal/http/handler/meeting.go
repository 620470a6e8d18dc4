package handler

import (
	"net/http"
	"time"

	"deal-service/internal/auth"
	"deal-service/internal/domain/meeting"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type MeetingHandler struct {
	meetings MeetingRepository
	pusher   ResponsePusher
	log      zerolog.Logger
}

func NewMeetingHandler(meetings MeetingRepository, pusher ResponsePusher, log zerolog.Logger) *MeetingHandler {
	return &MeetingHandler{
		meetings: meetings,
		pusher:   pusher,
		log:      log.With().Str("component", "meeting_handler").Logger(),
	}
}

type UpdateResponseRequest struct {
	MeetingID string `json:"meeting_id"`
	Status    string `json:"status"`
}

type UpdateResponseResponse struct {
	Message string `json:"message"`
	Synced  bool   `json:"synced"`
}

// UpdateResponse records the caller's reply to a meeting invitation and
// mirrors it onto their external calendar when a connection exists.
func (h *MeetingHandler) UpdateResponse(c echo.Context) error {
	var req UpdateResponseRequest
	if err := decodeStrictJSON(c, &req); err != nil {
		return err
	}

	meetingID, err := uuid.Parse(req.MeetingID)
	if err != nil {
		return respondError(c, http.StatusBadRequest, msgInvalidMeetingID)
	}

	status := meeting.ResponseStatus(req.Status)
	if !status.Valid() {
		return respondError(c, http.StatusBadRequest, msgInvalidResponseStatus)
	}

	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()

	participants, err := h.meetings.GetParticipants(ctx, meetingID)
	if err != nil {
		return respondError(c, http.StatusNotFound, msgMeetingNotFound)
	}

	isParticipant := false
	for _, p := range participants {
		if p.UserID == userID {
			isParticipant = true
			break
		}
	}
	if !isParticipant {
		return respondError(c, http.StatusForbidden, msgNotParticipant)
	}

	synced, err := h.pusher.PushResponse(ctx, meetingID, userID, auth.GetUserEmail(c), status)
	if err != nil {
		return err
	}

	message := msgResponseLocalOnly
	if synced {
		message = msgResponseSynced
	}

	return c.JSON(http.StatusOK, UpdateResponseResponse{
		Message: message,
		Synced:  synced,
	})
}

type RescheduleRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Reschedule moves a meeting's time window and resets every non-organizer
// participant back to pending, since prior responses no longer apply.
func (h *MeetingHandler) Reschedule(c echo.Context) error {
	meetingID, err := uuid.Parse(c.Param(paramMeetingID))
	if err != nil {
		return respondError(c, http.StatusBadRequest, msgInvalidMeetingID)
	}

	var req RescheduleRequest
	if err := decodeStrictJSON(c, &req); err != nil {
		return err
	}
	if !req.EndTime.After(req.StartTime) {
		return respondError(c, http.StatusBadRequest, msgInvalidTimeWindow)
	}

	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()

	m, err := h.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return respondError(c, http.StatusNotFound, msgMeetingNotFound)
	}
	if m.OrganizerID != userID {
		return respondError(c, http.StatusForbidden, msgNotOrganizer)
	}

	if err := h.meetings.Reschedule(ctx, meetingID, meeting.RescheduleInput{
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}); err != nil {
		return err
	}

	if err := h.meetings.ResetNonOrganizerResponses(ctx, meetingID, m.OrganizerID); err != nil {
		return err
	}

	h.log.Info().
		Str("meeting_id", meetingID.String()).
		Time("start_time", req.StartTime).
		Time("end_time", req.EndTime).
		Msg("meeting rescheduled")

	return respondMessage(c, http.StatusOK, msgMeetingRescheduled)
}
