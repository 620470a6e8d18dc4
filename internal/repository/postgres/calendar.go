package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"deal-service/internal/domain/calendar"
	apperrors "deal-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CalendarRepository struct {
	db *DB
}

func NewCalendarRepository(db *DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

const connectionColumns = `id, user_id, provider, provider_email, calendar_list, sync_enabled,
		access_token, refresh_token, token_expires_at,
		watch_channel_id, watch_resource_id, watch_expiration, created_at, updated_at`

func (r *CalendarRepository) GetByID(ctx context.Context, id uuid.UUID) (*calendar.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM calendar_connections WHERE id = $1`
	return scanConnection(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *CalendarRepository) GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*calendar.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM calendar_connections WHERE user_id = $1 AND provider = $2`
	return scanConnection(r.db.Pool.QueryRow(ctx, query, userID, provider))
}

// GetByWatchChannel routes an inbound webhook notification back to its
// connection by the (channel id, resource id) pair.
func (r *CalendarRepository) GetByWatchChannel(ctx context.Context, channelID, resourceID string) (*calendar.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM calendar_connections
		WHERE watch_channel_id = $1 AND watch_resource_id = $2`
	return scanConnection(r.db.Pool.QueryRow(ctx, query, channelID, resourceID))
}

// ListExpiringWatches returns connections whose watch channel expires before
// the threshold. Used by the renewal job.
func (r *CalendarRepository) ListExpiringWatches(ctx context.Context, threshold time.Time) ([]*calendar.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM calendar_connections
		WHERE watch_channel_id IS NOT NULL AND watch_expiration <= $1`

	rows, err := r.db.Pool.Query(ctx, query, threshold)
	if err != nil {
		return nil, errFailedListConnections(err)
	}
	defer rows.Close()

	var connections []*calendar.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, errFailedScanConnection(err)
		}
		connections = append(connections, conn)
	}

	return connections, rows.Err()
}

func (r *CalendarRepository) UpdateWatch(ctx context.Context, id uuid.UUID, input calendar.UpdateWatchInput) error {
	query := `
		UPDATE calendar_connections
		SET watch_channel_id = $2, watch_resource_id = $3, watch_expiration = $4, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, input.ChannelID, input.ResourceID, input.Expiration)
	if err != nil {
		return errFailedUpdateWatch(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound(errConnectionNotFound)
	}

	return nil
}

func (r *CalendarRepository) ClearWatch(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE calendar_connections
		SET watch_channel_id = NULL, watch_resource_id = NULL, watch_expiration = NULL, updated_at = now()
		WHERE id = $1
	`

	if _, err := r.db.Pool.Exec(ctx, query, id); err != nil {
		return errFailedClearWatch(err)
	}

	return nil
}

func (r *CalendarRepository) UpdateTokens(ctx context.Context, id uuid.UUID, input calendar.UpdateTokensInput) error {
	query := `
		UPDATE calendar_connections
		SET access_token = $2,
		    refresh_token = COALESCE($3, refresh_token),
		    token_expires_at = $4,
		    updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, input.AccessToken, input.RefreshToken, input.TokenExpiresAt)
	if err != nil {
		return errFailedUpdateTokens(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound(errConnectionNotFound)
	}

	return nil
}

func (r *CalendarRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM calendar_connections WHERE id = $1`, id); err != nil {
		return errFailedDeleteConnection(err)
	}
	return nil
}

func scanConnection(row pgx.Row) (*calendar.Connection, error) {
	conn := &calendar.Connection{}
	var calendarList []byte

	err := row.Scan(
		&conn.ID, &conn.UserID, &conn.Provider, &conn.ProviderEmail, &calendarList, &conn.SyncEnabled,
		&conn.AccessToken, &conn.RefreshToken, &conn.TokenExpiresAt,
		&conn.WatchChannelID, &conn.WatchResourceID, &conn.WatchExpiration, &conn.CreatedAt, &conn.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound(errConnectionNotFound)
		}
		return nil, errFailedGetConnection(err)
	}

	if len(calendarList) > 0 {
		if err := json.Unmarshal(calendarList, &conn.CalendarList); err != nil {
			return nil, errFailedDecodeCalendarList(err)
		}
	}

	return conn, nil
}
