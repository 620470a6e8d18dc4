// Package reminder emails meeting participants shortly before their meetings
// start. It runs from a scheduled job, not from the request path.
package reminder

import (
	"context"
	"time"

	"deal-service/internal/domain/meeting"
	"deal-service/pkg/mailer"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TypeThirtyMinutes is the only reminder type currently scheduled. The
// sent-record table keys on it, so adding a second lead time needs no schema
// change.
const TypeThirtyMinutes = "30min"

type MeetingStore interface {
	ListNeedingReminders(ctx context.Context, leadTime time.Duration, reminderType string) ([]*meeting.ReminderCandidate, error)
	MarkReminderSent(ctx context.Context, meetingID, userID uuid.UUID, reminderType string) error
}

type Mailer interface {
	Send(ctx context.Context, msg *mailer.Message) (*mailer.SendResult, error)
}

type Service struct {
	meetings MeetingStore
	mail     Mailer
	template *mailer.Template[reminderContext]
	log      zerolog.Logger
}

func NewService(meetings MeetingStore, mail Mailer, log zerolog.Logger) (*Service, error) {
	tmpl, err := newReminderTemplate()
	if err != nil {
		return nil, err
	}

	return &Service{
		meetings: meetings,
		mail:     mail,
		template: tmpl,
		log:      log.With().Str("component", "reminder").Logger(),
	}, nil
}

// Run sends one reminder email to every participant of a meeting starting
// within leadTime who has not already been reminded. Participants are
// handled independently; a failure moves on to the next.
func (s *Service) Run(ctx context.Context, leadTime time.Duration, dryRun bool) (sent, failed int, err error) {
	candidates, err := s.meetings.ListNeedingReminders(ctx, leadTime, TypeThirtyMinutes)
	if err != nil {
		return 0, 0, err
	}

	if len(candidates) == 0 {
		s.log.Info().Msg("no meetings need reminders")
		return 0, 0, nil
	}

	for _, c := range candidates {
		if dryRun {
			s.log.Info().
				Str("meeting_id", c.MeetingID.String()).
				Str("user_id", c.UserID.String()).
				Msg("dry run: would send reminder")
			sent++
			continue
		}

		if err := s.remindOne(ctx, c); err != nil {
			failed++
			s.log.Error().
				Err(err).
				Str("meeting_id", c.MeetingID.String()).
				Str("user_id", c.UserID.String()).
				Msg("failed to send reminder")
			continue
		}
		sent++
	}

	return sent, failed, nil
}

func (s *Service) remindOne(ctx context.Context, c *meeting.ReminderCandidate) error {
	minutes := int(time.Until(c.StartTime).Round(time.Minute).Minutes())
	html, text, err := s.template.Render(reminderContext{
		RecipientName: c.FullName,
		MeetingTitle:  c.Title,
		StartTime:     c.StartTime.Format("Mon, 2 Jan 2006 15:04 MST"),
		MinutesBefore: minutes,
	})
	if err != nil {
		return err
	}

	if _, err := s.mail.Send(ctx, &mailer.Message{
		To:      []string{c.Email},
		Subject: reminderSubject(c.Title, c.StartTime),
		HTML:    html,
		Text:    text,
	}); err != nil {
		return err
	}

	// The email went out; a failed sent-record means at worst one duplicate
	// reminder on the next run.
	if err := s.meetings.MarkReminderSent(ctx, c.MeetingID, c.UserID, TypeThirtyMinutes); err != nil {
		s.log.Warn().
			Err(err).
			Str("meeting_id", c.MeetingID.String()).
			Str("user_id", c.UserID.String()).
			Msg("failed to record sent reminder")
	}

	return nil
}
