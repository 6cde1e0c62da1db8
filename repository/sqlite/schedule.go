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
	scheduleExistsQuery = `
        SELECT COUNT(id) FROM daily_schedule
        WHERE user_id = ? AND scheduled_date = ?
    `

	insertScheduleQuery = `
        INSERT INTO daily_schedule (
            id, user_id, video_id, scheduled_date, position, status, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
    `

	recentVideoIDsQuery = `
        SELECT DISTINCT video_id FROM daily_schedule
        WHERE user_id = ? AND scheduled_date >= ?
    `

	entriesForDateQuery = `
        SELECT s.id, s.user_id, s.video_id, s.scheduled_date, s.position,
               s.status, s.transcript, s.transcript_chars,
               s.processed_script, s.processed_chars, s.created_at,
               v.id, v.channel_id, v.video_id, v.title, v.views,
               v.duration_seconds, v.thumbnail_url, v.fetched_at, v.created_at
        FROM daily_schedule s
        JOIN videos v ON v.id = s.video_id
        WHERE s.user_id = ? AND s.scheduled_date = ?
        ORDER BY s.position
    `

	updateEntryQuery = `
        UPDATE daily_schedule SET
            status = ?,
            transcript = ?,
            transcript_chars = ?,
            processed_script = ?,
            processed_chars = ?
        WHERE id = ?
    `
)

type ScheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) ExistsForDate(ctx context.Context, userID, date string) (bool, error) {
	const op = "ScheduleRepository.ExistsForDate"

	var count int
	err := r.db.QueryRowContext(ctx, scheduleExistsQuery, userID, date).Scan(&count)
	if err != nil {
		return false, errors.Internal(op, err, "Failed to check schedule existence")
	}
	return count > 0, nil
}

// CommitDay writes one day's selection as a single transaction so a partial
// day is never persisted. Positions follow slice order starting at 0.
func (r *ScheduleRepository) CommitDay(ctx context.Context, userID string, videoIDs []string, date string) error {
	const op = "ScheduleRepository.CommitDay"

	now := time.Now()
	err := WithTransaction(ctx, r.db, func(tx Executor) error {
		for position, videoID := range videoIDs {
			if _, err := tx.ExecContext(ctx, insertScheduleQuery,
				uuid.New().String(),
				userID,
				videoID,
				date,
				position,
				string(models.StatusPending),
				now,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Internal(op, err, "Failed to commit daily schedule")
	}
	return nil
}

func (r *ScheduleRepository) RecentlyScheduledVideoIDs(ctx context.Context, userID string, lookbackDays int) (map[string]bool, error) {
	const op = "ScheduleRepository.RecentlyScheduledVideoIDs"

	cutoff := time.Now().AddDate(0, 0, -lookbackDays).Format("2006-01-02")

	rows, err := r.db.QueryContext(ctx, recentVideoIDsQuery, userID, cutoff)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query recent schedule")
	}
	defer rows.Close()

	recent := make(map[string]bool)
	for rows.Next() {
		var videoID string
		if err := rows.Scan(&videoID); err != nil {
			return nil, errors.Internal(op, err, "Failed to scan video id")
		}
		recent[videoID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(op, err, "Failed to iterate recent rows")
	}
	return recent, nil
}

func (r *ScheduleRepository) EntriesForDate(ctx context.Context, userID, date string) ([]models.ScheduleEntry, error) {
	const op = "ScheduleRepository.EntriesForDate"

	rows, err := r.db.QueryContext(ctx, entriesForDateQuery, userID, date)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query schedule entries")
	}
	defer rows.Close()

	var entries []models.ScheduleEntry
	for rows.Next() {
		var e models.ScheduleEntry
		var v models.Video
		var status string
		var transcript, processed, thumbnail sql.NullString
		var transcriptChars, processedChars sql.NullInt64

		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.VideoID,
			&e.ScheduledDate,
			&e.Position,
			&status,
			&transcript,
			&transcriptChars,
			&processed,
			&processedChars,
			&e.CreatedAt,
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
			return nil, errors.Internal(op, err, "Failed to scan schedule row")
		}

		e.Status = models.Status(status)
		e.Transcript = transcript.String
		e.TranscriptChars = int(transcriptChars.Int64)
		e.ProcessedScript = processed.String
		e.ProcessedChars = int(processedChars.Int64)
		v.ThumbnailURL = thumbnail.String
		e.Video = &v
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(op, err, "Failed to iterate schedule rows")
	}
	return entries, nil
}

func (r *ScheduleRepository) UpdateEntry(ctx context.Context, entry *models.ScheduleEntry) error {
	const op = "ScheduleRepository.UpdateEntry"

	for i := 0; i < 3; i++ {
		_, err := r.db.ExecContext(ctx, updateEntryQuery,
			string(entry.Status),
			entry.Transcript,
			entry.TranscriptChars,
			entry.ProcessedScript,
			entry.ProcessedChars,
			entry.ID,
		)
		if err == nil {
			return nil
		}
		if !isLockError(err) {
			return errors.Internal(op, err, "Failed to update schedule entry")
		}
		time.Sleep(time.Second * time.Duration(i+1))
	}
	return errors.Internal(op, nil, "Failed after retries")
}
