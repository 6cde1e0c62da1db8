package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"clipflow/errors"
	"clipflow/models"
)

const (
	userByUsernameQuery = `
        SELECT id, username, pin_hash, created_at
        FROM users WHERE username = ?
    `

	userByIDQuery = `
        SELECT id, username, pin_hash, created_at
        FROM users WHERE id = ?
    `

	allUsersQuery = `
        SELECT id, username, pin_hash, created_at
        FROM users ORDER BY username
    `

	settingsQuery = `
        SELECT user_id, videos_per_day, prompt_template
        FROM user_settings WHERE user_id = ?
    `

	upsertSettingsQuery = `
        INSERT INTO user_settings (user_id, videos_per_day, prompt_template)
        VALUES (?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET
            videos_per_day = excluded.videos_per_day,
            prompt_template = excluded.prompt_template
    `

	userChannelsQuery = `
        SELECT id, user_id, channel_url, min_duration_seconds,
               reference_audio_url, created_at
        FROM source_channels
        WHERE user_id = ?
        ORDER BY created_at
    `

	upsertChannelQuery = `
        INSERT INTO source_channels
            (id, user_id, channel_url, min_duration_seconds, reference_audio_url, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            channel_url = excluded.channel_url,
            min_duration_seconds = excluded.min_duration_seconds,
            reference_audio_url = excluded.reference_audio_url
    `

	deleteChannelQuery = `
        DELETE FROM source_channels WHERE id = ? AND user_id = ?
    `
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "UserRepository.FindByUsername"
	return r.scanUser(r.db.QueryRowContext(ctx, userByUsernameQuery, username), op)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const op = "UserRepository.FindByID"
	return r.scanUser(r.db.QueryRowContext(ctx, userByIDQuery, id), op)
}

func (r *UserRepository) scanUser(row *sql.Row, op string) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.PinHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(op, nil, "User not found")
	}
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query user")
	}
	return user, nil
}

func (r *UserRepository) AllUsers(ctx context.Context) ([]models.User, error) {
	const op = "UserRepository.AllUsers"

	rows, err := r.db.QueryContext(ctx, allUsersQuery)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query users")
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PinHash, &u.CreatedAt); err != nil {
			return nil, errors.Internal(op, err, "Failed to scan user row")
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(op, err, "Failed to iterate user rows")
	}
	return users, nil
}

func (r *UserRepository) Settings(ctx context.Context, userID string) (*models.UserSettings, error) {
	const op = "UserRepository.Settings"

	settings := &models.UserSettings{}
	err := r.db.QueryRowContext(ctx, settingsQuery, userID).Scan(
		&settings.UserID,
		&settings.VideosPerDay,
		&settings.PromptTemplate,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(op, nil, "Settings not found")
	}
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query settings")
	}
	return settings, nil
}

func (r *UserRepository) SaveSettings(ctx context.Context, settings *models.UserSettings) error {
	const op = "UserRepository.SaveSettings"

	_, err := r.db.ExecContext(ctx, upsertSettingsQuery,
		settings.UserID,
		settings.VideosPerDay,
		settings.PromptTemplate,
	)
	if err != nil {
		return errors.Internal(op, err, "Failed to save settings")
	}
	return nil
}

func (r *UserRepository) UserChannels(ctx context.Context, userID string) ([]models.SourceChannel, error) {
	const op = "UserRepository.UserChannels"

	rows, err := r.db.QueryContext(ctx, userChannelsQuery, userID)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query channels")
	}
	defer rows.Close()

	var channels []models.SourceChannel
	for rows.Next() {
		var c models.SourceChannel
		if err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.ChannelURL,
			&c.MinDurationSeconds,
			&c.ReferenceAudioURL,
			&c.CreatedAt,
		); err != nil {
			return nil, errors.Internal(op, err, "Failed to scan channel row")
		}
		channels = append(channels, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(op, err, "Failed to iterate channel rows")
	}
	return channels, nil
}

func (r *UserRepository) SaveChannel(ctx context.Context, channel *models.SourceChannel) error {
	const op = "UserRepository.SaveChannel"

	if channel.ID == "" {
		channel.ID = uuid.New().String()
		channel.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, upsertChannelQuery,
		channel.ID,
		channel.UserID,
		channel.ChannelURL,
		channel.MinDurationSeconds,
		channel.ReferenceAudioURL,
		channel.CreatedAt,
	)
	if err != nil {
		return errors.Internal(op, err, "Failed to save channel")
	}
	return nil
}

func (r *UserRepository) DeleteChannel(ctx context.Context, userID, channelID string) error {
	const op = "UserRepository.DeleteChannel"

	result, err := r.db.ExecContext(ctx, deleteChannelQuery, channelID, userID)
	if err != nil {
		return errors.Internal(op, err, "Failed to delete channel")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Internal(op, err, "Failed to check delete result")
	}
	if affected == 0 {
		return errors.NotFound(op, nil, "Channel not found")
	}
	return nil
}
