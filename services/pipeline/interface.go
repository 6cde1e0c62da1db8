package pipeline

import (
	"context"
	"time"

	"clipflow/models"
)

// Service turns one day's scheduled videos into processed scripts and
// delivers them.
type Service interface {
	// ProcessDay runs every pending entry on the date through the
	// transcript and rewrite steps, then delivers the completed scripts.
	ProcessDay(ctx context.Context, userID, date string) (*models.ProcessDayResult, error)

	Close()
}

// TranscriptFetcher pulls a video's transcript. Implementations signal an
// exhausted API key with supadata.ErrKeyExhausted.
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, videoID, apiKey string) (string, error)
}

// ScriptProcessor rewrites a transcript with the user's prompt template.
type ScriptProcessor interface {
	ProcessTranscript(ctx context.Context, transcript, promptTemplate string, chunkTargetLen int) (string, error)
}

// Deliverer pushes finished scripts to the user's chat.
type Deliverer interface {
	SendMessage(ctx context.Context, chatID, text string) error
	SendScripts(ctx context.Context, chatID string, scripts []string) (sent, failed int)
}

// Archiver keeps a durable copy of each processed script.
type Archiver interface {
	SaveScript(ctx context.Context, userID, date, videoID, title, transcript, script string) error
}

type Config struct {
	WorkerCount    int
	QueueSize      int
	EntryTimeout   time.Duration
	ChunkTargetLen int

	// DefaultPromptTemplate is used when the user has not saved one.
	DefaultPromptTemplate string
}
