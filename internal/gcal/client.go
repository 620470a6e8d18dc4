// Package gcal wraps the Google Calendar v3 API for watch-channel management
// and attendee-response sync, with per-connection OAuth token refresh.
package gcal

import (
	"context"
	"fmt"
	"time"

	"deal-service/internal/config"
	"deal-service/internal/domain/calendar"
	apperrors "deal-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	gcalendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	channelType     = "web_hook"
	channelIDPrefix = "capmatch"
	webhookPath     = "/api/calendar/webhook"
)

type ConnectionStore interface {
	UpdateTokens(ctx context.Context, id uuid.UUID, input calendar.UpdateTokensInput) error
}

type Client struct {
	cfg         *config.GoogleConfig
	siteURL     string
	connections ConnectionStore
	log         zerolog.Logger
}

func NewClient(cfg *config.GoogleConfig, siteURL string, connections ConnectionStore, log zerolog.Logger) *Client {
	return &Client{
		cfg:         cfg,
		siteURL:     siteURL,
		connections: connections,
		log:         log.With().Str("component", "gcal").Logger(),
	}
}

func (c *Client) service(ctx context.Context, accessToken string) (*gcalendar.Service, error) {
	svc, err := gcalendar.NewService(ctx, option.WithTokenSource(
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}),
	))
	if err != nil {
		return nil, apperrors.Upstream("failed to create calendar service", err)
	}
	return svc, nil
}

// WatchResult carries the provider-assigned identifiers for a registered
// push-notification channel.
type WatchResult struct {
	ChannelID  string
	ResourceID string
	Expiration time.Time
}

// Watch registers a push-notification channel on the connection's watch
// calendar. The channel id is unique per registration so a renewed watch
// never collides with the channel it replaces.
func (c *Client) Watch(ctx context.Context, conn *calendar.Connection) (*WatchResult, error) {
	accessToken, err := c.EnsureValidToken(ctx, conn)
	if err != nil {
		return nil, err
	}

	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	channelID := fmt.Sprintf("%s-%s-%d", channelIDPrefix, conn.ID, time.Now().UnixMilli())
	expiration := time.Now().Add(c.cfg.WatchTTL)

	channel, err := svc.Events.Watch(conn.WatchCalendarID(), &gcalendar.Channel{
		Id:         channelID,
		Type:       channelType,
		Address:    c.siteURL + webhookPath,
		Expiration: expiration.UnixMilli(),
	}).Context(ctx).Do()
	if err != nil {
		return nil, apperrors.Upstream("failed to set up calendar watch", err)
	}

	result := &WatchResult{
		ChannelID:  channelID,
		ResourceID: channel.ResourceId,
		Expiration: expiration,
	}
	if channel.Expiration > 0 {
		result.Expiration = time.UnixMilli(channel.Expiration)
	}

	c.log.Info().
		Str("connection_id", conn.ID.String()).
		Str("channel_id", result.ChannelID).
		Time("expiration", result.Expiration).
		Msg("calendar watch registered")

	return result, nil
}

// StopWatch tears down the connection's active channel. Returns a
// warning-class error on failure so callers can proceed (disconnect must not
// be blocked by a dead channel) while still surfacing the problem.
func (c *Client) StopWatch(ctx context.Context, conn *calendar.Connection) error {
	if conn.WatchChannelID == nil || conn.WatchResourceID == nil {
		return nil
	}

	accessToken, err := c.EnsureValidToken(ctx, conn)
	if err != nil {
		return apperrors.WatchTeardown(err)
	}

	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return apperrors.WatchTeardown(err)
	}

	err = svc.Channels.Stop(&gcalendar.Channel{
		Id:         *conn.WatchChannelID,
		ResourceId: *conn.WatchResourceID,
	}).Context(ctx).Do()
	if err != nil {
		return apperrors.WatchTeardown(err)
	}

	c.log.Info().
		Str("connection_id", conn.ID.String()).
		Str("channel_id", *conn.WatchChannelID).
		Msg("calendar watch stopped")

	return nil
}

// Event is the provider-neutral slice of a calendar event the sync layer
// consumes.
type Event struct {
	ID        string
	Attendees []Attendee
}

type Attendee struct {
	Email          string
	ResponseStatus string
}

func (c *Client) GetEvent(ctx context.Context, conn *calendar.Connection, calendarID, eventID string) (*Event, error) {
	accessToken, err := c.EnsureValidToken(ctx, conn)
	if err != nil {
		return nil, err
	}

	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	event, err := svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, apperrors.Upstream(fmt.Sprintf("failed to fetch event %s", eventID), err)
	}

	out := &Event{ID: event.Id}
	for _, attendee := range event.Attendees {
		out.Attendees = append(out.Attendees, Attendee{
			Email:          attendee.Email,
			ResponseStatus: attendee.ResponseStatus,
		})
	}

	return out, nil
}

// SetAttendeeResponse patches the attendee's responseStatus on the event,
// leaving every other attendee untouched.
func (c *Client) SetAttendeeResponse(ctx context.Context, conn *calendar.Connection, calendarID, eventID, attendeeEmail, responseStatus string) error {
	accessToken, err := c.EnsureValidToken(ctx, conn)
	if err != nil {
		return err
	}

	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return err
	}

	event, err := svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return apperrors.Upstream(fmt.Sprintf("failed to fetch event %s", eventID), err)
	}
	if len(event.Attendees) == 0 {
		return nil
	}

	found := false
	for _, attendee := range event.Attendees {
		if attendee.Email == attendeeEmail {
			attendee.ResponseStatus = responseStatus
			found = true
		}
	}
	if !found {
		return nil
	}

	_, err = svc.Events.Patch(calendarID, eventID, &gcalendar.Event{
		Attendees: event.Attendees,
	}).Context(ctx).Do()
	if err != nil {
		return apperrors.Upstream(fmt.Sprintf("failed to patch event %s", eventID), err)
	}

	return nil
}
