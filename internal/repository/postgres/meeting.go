package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"deal-service/internal/domain/meeting"
	apperrors "deal-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type MeetingRepository struct {
	db *DB
}

func NewMeetingRepository(db *DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

const meetingColumns = `id, organizer_id, title, start_time, end_time, calendar_event_ids, created_at, updated_at`

func (r *MeetingRepository) GetByID(ctx context.Context, id uuid.UUID) (*meeting.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1`
	return scanMeeting(r.db.Pool.QueryRow(ctx, query, id))
}

// ListWithEventRefsByParticipant returns upcoming meetings the user
// participates in that carry external calendar event references. This is the
// reconciliation working set for one connection.
func (r *MeetingRepository) ListWithEventRefsByParticipant(ctx context.Context, userID uuid.UUID) ([]*meeting.Meeting, error) {
	query := `
		SELECT ` + meetingColumns + ` FROM meetings m
		WHERE m.calendar_event_ids <> '[]'::jsonb
		  AND m.end_time >= now()
		  AND EXISTS (
			SELECT 1 FROM meeting_participants p
			WHERE p.meeting_id = m.id AND p.user_id = $1
		  )
		ORDER BY m.start_time
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, errFailedListMeetings(err)
	}
	defer rows.Close()

	var meetings []*meeting.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, errFailedScanMeeting(err)
		}
		meetings = append(meetings, m)
	}

	return meetings, rows.Err()
}

func (r *MeetingRepository) GetParticipants(ctx context.Context, meetingID uuid.UUID) ([]*meeting.Participant, error) {
	query := `
		SELECT p.meeting_id, p.user_id, u.email, p.response_status, p.responded_at
		FROM meeting_participants p
		JOIN profiles u ON u.id = p.user_id
		WHERE p.meeting_id = $1
	`

	rows, err := r.db.Pool.Query(ctx, query, meetingID)
	if err != nil {
		return nil, errFailedGetParticipants(err)
	}
	defer rows.Close()

	var participants []*meeting.Participant
	for rows.Next() {
		p := &meeting.Participant{}
		if err := rows.Scan(&p.MeetingID, &p.UserID, &p.Email, &p.ResponseStatus, &p.RespondedAt); err != nil {
			return nil, errFailedScanParticipant(err)
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// UpdateResponse writes a participant's response status. The write is a no-op
// when the status is already current, so duplicate or out-of-order webhook
// reconciliations do not churn responded_at. Returns whether a row changed.
func (r *MeetingRepository) UpdateResponse(ctx context.Context, meetingID, userID uuid.UUID, status meeting.ResponseStatus, respondedAt time.Time) (bool, error) {
	query := `
		UPDATE meeting_participants
		SET response_status = $3, responded_at = $4
		WHERE meeting_id = $1 AND user_id = $2 AND response_status <> $3
	`

	tag, err := r.db.Pool.Exec(ctx, query, meetingID, userID, status, respondedAt)
	if err != nil {
		return false, errFailedUpdateResponse(err)
	}

	return tag.RowsAffected() > 0, nil
}

// ResetNonOrganizerResponses puts every participant except the organizer back
// to pending. Called when the organizer changes the meeting's time window.
func (r *MeetingRepository) ResetNonOrganizerResponses(ctx context.Context, meetingID, organizerID uuid.UUID) error {
	query := `
		UPDATE meeting_participants
		SET response_status = $3, responded_at = NULL
		WHERE meeting_id = $1 AND user_id <> $2
	`

	if _, err := r.db.Pool.Exec(ctx, query, meetingID, organizerID, meeting.ResponsePending); err != nil {
		return errFailedResetResponses(err)
	}

	return nil
}

// ListNeedingReminders returns participants of meetings starting within
// leadTime who have no reminder of the given type recorded yet. Declined
// participants are skipped.
func (r *MeetingRepository) ListNeedingReminders(ctx context.Context, leadTime time.Duration, reminderType string) ([]*meeting.ReminderCandidate, error) {
	query := `
		SELECT m.id, p.user_id, u.email, u.full_name, m.title, m.start_time
		FROM meetings m
		JOIN meeting_participants p ON p.meeting_id = m.id
		JOIN profiles u ON u.id = p.user_id
		WHERE m.start_time > now()
		  AND m.start_time <= now() + make_interval(secs => $1)
		  AND p.response_status <> $2
		  AND NOT EXISTS (
			SELECT 1 FROM meeting_reminders_sent s
			WHERE s.meeting_id = m.id AND s.user_id = p.user_id AND s.reminder_type = $3
		  )
		ORDER BY m.start_time
	`

	rows, err := r.db.Pool.Query(ctx, query, leadTime.Seconds(), meeting.ResponseDeclined, reminderType)
	if err != nil {
		return nil, errFailedListReminders(err)
	}
	defer rows.Close()

	var candidates []*meeting.ReminderCandidate
	for rows.Next() {
		c := &meeting.ReminderCandidate{}
		if err := rows.Scan(&c.MeetingID, &c.UserID, &c.Email, &c.FullName, &c.Title, &c.StartTime); err != nil {
			return nil, errFailedScanReminder(err)
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

// MarkReminderSent records that the participant was reminded. A repeated mark
// for the same (meeting, user, type) is a no-op.
func (r *MeetingRepository) MarkReminderSent(ctx context.Context, meetingID, userID uuid.UUID, reminderType string) error {
	query := `
		INSERT INTO meeting_reminders_sent (meeting_id, user_id, reminder_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (meeting_id, user_id, reminder_type) DO NOTHING
	`

	if _, err := r.db.Pool.Exec(ctx, query, meetingID, userID, reminderType); err != nil {
		return errFailedMarkReminder(err)
	}

	return nil
}

func (r *MeetingRepository) Reschedule(ctx context.Context, id uuid.UUID, input meeting.RescheduleInput) error {
	query := `
		UPDATE meetings SET start_time = $2, end_time = $3, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, input.StartTime, input.EndTime)
	if err != nil {
		return errFailedRescheduleMeeting(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound(errMeetingNotFound)
	}

	return nil
}

func scanMeeting(row pgx.Row) (*meeting.Meeting, error) {
	m := &meeting.Meeting{}
	var eventRefs []byte

	err := row.Scan(
		&m.ID, &m.OrganizerID, &m.Title, &m.StartTime, &m.EndTime, &eventRefs, &m.CreatedAt, &m.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound(errMeetingNotFound)
		}
		return nil, errFailedGetMeeting(err)
	}

	if len(eventRefs) > 0 {
		if err := json.Unmarshal(eventRefs, &m.EventRefs); err != nil {
			return nil, errFailedDecodeEventRefs(err)
		}
	}

	return m, nil
}
