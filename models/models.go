package models

import (
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
)

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	PinHash   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type UserSettings struct {
	UserID         string `json:"user_id"`
	VideosPerDay   int    `json:"videos_per_day"`
	PromptTemplate string `json:"prompt_template"`
}

type SharedSetting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SupadataKey is one transcript API key in the rotation pool. Keys are
// consumed in priority order and marked inactive once exhausted.
type SupadataKey struct {
	ID       string `json:"id"`
	APIKey   string `json:"api_key"`
	IsActive bool   `json:"is_active"`
	Priority int    `json:"priority"`
}

type SourceChannel struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	ChannelURL         string    `json:"channel_url"`
	MinDurationSeconds int       `json:"min_duration_seconds"`
	ReferenceAudioURL  string    `json:"reference_audio_url"`
	CreatedAt          time.Time `json:"created_at"`
}

type Video struct {
	ID              string    `json:"id"`
	ChannelID       string    `json:"channel_id"`
	VideoID         string    `json:"video_id"`
	Title           string    `json:"title"`
	Views           int64     `json:"views"`
	DurationSeconds int       `json:"duration_seconds"`
	ThumbnailURL    string    `json:"thumbnail_url,omitempty"`
	FetchedAt       time.Time `json:"fetched_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// ScheduleEntry assigns one video to one user on one calendar date. Position
// is the 0-based slot within that day and is preserved verbatim from the
// selection order.
type ScheduleEntry struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	VideoID         string    `json:"video_id"`
	ScheduledDate   string    `json:"scheduled_date"`
	Position        int       `json:"position"`
	Status          Status    `json:"status"`
	Transcript      string    `json:"transcript,omitempty"`
	TranscriptChars int       `json:"transcript_chars,omitempty"`
	ProcessedScript string    `json:"processed_script,omitempty"`
	ProcessedChars  int       `json:"processed_chars,omitempty"`
	CreatedAt       time.Time `json:"created_at"`

	Video *Video `json:"video,omitempty"`
}

func (e *ScheduleEntry) IsPending() bool    { return e.Status == StatusPending }
func (e *ScheduleEntry) IsProcessing() bool { return e.Status == StatusProcessing }
func (e *ScheduleEntry) IsCompleted() bool  { return e.Status == StatusCompleted }
