package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"clipflow/clients/supadata"
	"clipflow/errors"
	"clipflow/models"
	"clipflow/repository"
)

const chatIDSettingKey = "telegram_chat_id"

type service struct {
	schedules   repository.ScheduleRepository
	users       repository.UserRepository
	settings    repository.SettingsRepository
	transcripts TranscriptFetcher
	scripts     ScriptProcessor
	deliverer   Deliverer
	archiver    Archiver
	queue       *EntryQueue
	config      Config
	logger      *logrus.Logger
}

// NewService wires the processing pipeline. deliverer and archiver may be
// nil; completed scripts then stay in the database only.
func NewService(
	schedules repository.ScheduleRepository,
	users repository.UserRepository,
	settings repository.SettingsRepository,
	transcripts TranscriptFetcher,
	scripts ScriptProcessor,
	deliverer Deliverer,
	archiver Archiver,
	config Config,
) Service {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 2
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}

	s := &service{
		schedules:   schedules,
		users:       users,
		settings:    settings,
		transcripts: transcripts,
		scripts:     scripts,
		deliverer:   deliverer,
		archiver:    archiver,
		queue:       NewEntryQueue(config.WorkerCount, config.QueueSize),
		config:      config,
		logger:      logrus.StandardLogger(),
	}
	s.queue.Start(s.processEntry)
	return s
}

func (s *service) Close() {
	s.queue.Close()
}

func (s *service) ProcessDay(ctx context.Context, userID, date string) (*models.ProcessDayResult, error) {
	const op = "PipelineService.ProcessDay"
	logger := s.logger.WithFields(logrus.Fields{"user_id": userID, "date": date})

	if userID == "" {
		return nil, errors.InvalidInput(op, nil, "User ID is required")
	}
	if date == "" {
		return nil, errors.InvalidInput(op, nil, "Date is required")
	}

	entries, err := s.schedules.EntriesForDate(ctx, userID, date)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to load schedule entries")
	}
	if len(entries) == 0 {
		return nil, errors.NotFound(op, nil, "No schedule found for this date")
	}

	result := &models.ProcessDayResult{Date: date}

	pending := make([]*models.ScheduleEntry, 0, len(entries))
	for i := range entries {
		if entries[i].IsPending() {
			pending = append(pending, &entries[i])
		}
	}
	logger.WithField("pending", len(pending)).Info("Processing day")

	results := make([]<-chan error, 0, len(pending))
	for _, entry := range pending {
		ch, err := s.queue.Submit(ctx, entry)
		if err != nil {
			logger.WithError(err).WithField("entry_id", entry.ID).Error("Failed to queue entry")
			result.Failed++
			continue
		}
		results = append(results, ch)
	}
	for _, ch := range results {
		if err := <-ch; err != nil {
			result.Failed++
		} else {
			result.Processed++
		}
	}

	result.Delivered = s.deliverDay(ctx, userID, date, logger)
	return result, nil
}

// processEntry runs one entry through transcript fetch and rewrite. On any
// failure the entry reverts to pending so a later run can retry it.
func (s *service) processEntry(ctx context.Context, entry *models.ScheduleEntry) error {
	if s.config.EntryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.EntryTimeout)
		defer cancel()
	}

	entry.Status = models.StatusProcessing
	if err := s.schedules.UpdateEntry(ctx, entry); err != nil {
		entry.Status = models.StatusPending
		return fmt.Errorf("failed to mark entry processing: %w", err)
	}

	transcript, err := s.fetchTranscript(ctx, entry.Video.VideoID)
	if err != nil {
		s.revertToPending(ctx, entry)
		return err
	}

	script, err := s.scripts.ProcessTranscript(ctx, transcript, s.promptTemplate(ctx, entry.UserID), s.config.ChunkTargetLen)
	if err != nil {
		s.revertToPending(ctx, entry)
		return err
	}

	entry.Transcript = transcript
	entry.TranscriptChars = len(transcript)
	entry.ProcessedScript = script
	entry.ProcessedChars = len(script)
	entry.Status = models.StatusCompleted
	if err := s.schedules.UpdateEntry(ctx, entry); err != nil {
		s.revertToPending(ctx, entry)
		return fmt.Errorf("failed to store processed entry: %w", err)
	}

	if s.archiver != nil {
		if err := s.archiver.SaveScript(ctx, entry.UserID, entry.ScheduledDate, entry.Video.VideoID, entry.Video.Title, transcript, script); err != nil {
			s.logger.WithError(err).WithField("entry_id", entry.ID).Warn("Failed to archive script")
		}
	}

	return nil
}

// fetchTranscript walks the key pool in priority order, retiring exhausted
// keys as it goes.
func (s *service) fetchTranscript(ctx context.Context, videoID string) (string, error) {
	keys, err := s.settings.ActiveSupadataKeys(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load transcript API keys: %w", err)
	}
	if len(keys) == 0 {
		return "", fmt.Errorf("no active transcript API keys configured")
	}

	for _, key := range keys {
		transcript, err := s.transcripts.FetchTranscript(ctx, videoID, key.APIKey)
		if err == nil {
			return transcript, nil
		}
		if !stderrors.Is(err, supadata.ErrKeyExhausted) {
			return "", err
		}

		s.logger.WithField("key_id", key.ID).Warn("Transcript API key exhausted, rotating")
		if markErr := s.settings.MarkKeyExhausted(ctx, key.ID); markErr != nil {
			s.logger.WithError(markErr).WithField("key_id", key.ID).Error("Failed to retire key")
		}
	}

	return "", fmt.Errorf("all transcript API keys exhausted")
}

func (s *service) revertToPending(ctx context.Context, entry *models.ScheduleEntry) {
	entry.Status = models.StatusPending
	if err := s.schedules.UpdateEntry(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("entry_id", entry.ID).Error("Failed to revert entry to pending")
	}
}

func (s *service) promptTemplate(ctx context.Context, userID string) string {
	settings, err := s.users.Settings(ctx, userID)
	if err == nil && settings != nil && settings.PromptTemplate != "" {
		return settings.PromptTemplate
	}
	return s.config.DefaultPromptTemplate
}

// deliverDay sends the day's completed scripts as numbered documents,
// preceded by the source channel's reference audio link when one is set.
func (s *service) deliverDay(ctx context.Context, userID, date string, logger *logrus.Entry) int {
	if s.deliverer == nil {
		return 0
	}

	chatID, err := s.settings.SharedSetting(ctx, chatIDSettingKey)
	if err != nil || chatID == "" {
		logger.Debug("No delivery chat configured, skipping delivery")
		return 0
	}

	entries, err := s.schedules.EntriesForDate(ctx, userID, date)
	if err != nil {
		logger.WithError(err).Error("Failed to reload entries for delivery")
		return 0
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Position < entries[j].Position })

	scripts := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsCompleted() && entry.ProcessedScript != "" {
			scripts = append(scripts, entry.ProcessedScript)
		}
	}
	if len(scripts) == 0 {
		return 0
	}

	if audioURL := s.referenceAudioURL(ctx, userID, entries); audioURL != "" {
		if err := s.deliverer.SendMessage(ctx, chatID, fmt.Sprintf("Reference audio: %s", audioURL)); err != nil {
			logger.WithError(err).Warn("Failed to send reference audio link")
		}
	}

	sent, failed := s.deliverer.SendScripts(ctx, chatID, scripts)
	logger.WithFields(logrus.Fields{"sent": sent, "failed": failed}).Info("Delivered scripts")
	return sent
}

func (s *service) referenceAudioURL(ctx context.Context, userID string, entries []models.ScheduleEntry) string {
	channels, err := s.users.UserChannels(ctx, userID)
	if err != nil {
		return ""
	}

	byID := make(map[string]string, len(channels))
	for _, channel := range channels {
		byID[channel.ID] = channel.ReferenceAudioURL
	}

	for _, entry := range entries {
		if entry.Video == nil {
			continue
		}
		if url := byID[entry.Video.ChannelID]; url != "" {
			return url
		}
	}
	return ""
}
