package sqlite

import (
	"context"
	"database/sql"
	"time"

	"clipflow/errors"
	"clipflow/models"

	"github.com/google/uuid"
)

const (
	upsertVideoQuery = `
        INSERT INTO videos (
            id, channel_id, video_id, title, views,
            duration_seconds, thumbnail_url, fetched_at, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(video_id) DO UPDATE SET
            title = excluded.title,
            views = excluded.views,
            duration_seconds = excluded.duration_seconds,
            thumbnail_url = excluded.thumbnail_url,
            fetched_at = excluded.fetched_at
    `

	userVideosQuery = `
        SELECT v.id, v.channel_id, v.video_id, v.title, v.views,
               v.duration_seconds, v.thumbnail_url, v.fetched_at, v.created_at
        FROM videos v
        JOIN source_channels c ON c.id = v.channel_id
        WHERE c.user_id = ?
        ORDER BY v.views DESC
    `

	channelVideosQuery = `
        SELECT id, channel_id, video_id, title, views,
               duration_seconds, thumbnail_url, fetched_at, created_at
        FROM videos
        WHERE channel_id = ?
        ORDER BY views DESC
    `
)

type VideoRepository struct {
	db *sql.DB
}

func NewVideoRepository(db *sql.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

func (r *VideoRepository) SaveVideos(ctx context.Context, channelID string, videos []models.Video) error {
	const op = "VideoRepository.SaveVideos"

	now := time.Now()
	err := WithTransaction(ctx, r.db, func(tx Executor) error {
		for _, v := range videos {
			id := v.ID
			if id == "" {
				id = uuid.New().String()
			}
			if _, err := tx.ExecContext(ctx, upsertVideoQuery,
				id,
				channelID,
				v.VideoID,
				v.Title,
				v.Views,
				v.DurationSeconds,
				v.ThumbnailURL,
				now,
				now,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Internal(op, err, "Failed to save videos")
	}
	return nil
}

func (r *VideoRepository) UserVideos(ctx context.Context, userID string) ([]models.Video, error) {
	const op = "VideoRepository.UserVideos"

	rows, err := r.db.QueryContext(ctx, userVideosQuery, userID)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query user videos")
	}
	defer rows.Close()

	return scanVideos(rows, op)
}

func (r *VideoRepository) ChannelVideos(ctx context.Context, channelID string) ([]models.Video, error) {
	const op = "VideoRepository.ChannelVideos"

	rows, err := r.db.QueryContext(ctx, channelVideosQuery, channelID)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query channel videos")
	}
	defer rows.Close()

	return scanVideos(rows, op)
}

func scanVideos(rows *sql.Rows, op string) ([]models.Video, error) {
	var videos []models.Video
	for rows.Next() {
		var v models.Video
		var thumbnail sql.NullString
		if err := rows.Scan(
			&v.ID,
			&v.ChannelID,
			&v.VideoID,
			&v.Title,
			&v.Views,
			&v.DurationSeconds,
			&thumbnail,
			&v.FetchedAt,
			&v.CreatedAt,
		); err != nil {
			return nil, errors.Internal(op, err, "Failed to scan video row")
		}
		v.ThumbnailURL = thumbnail.String
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(op, err, "Failed to iterate video rows")
	}
	return videos, nil
}
