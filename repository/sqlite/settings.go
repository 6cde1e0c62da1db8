package sqlite

import (
	"context"
	"database/sql"

	"clipflow/errors"
	"clipflow/models"
)

const (
	sharedSettingQuery = `
        SELECT value FROM shared_settings WHERE key = ?
    `

	upsertSharedSettingQuery = `
        INSERT INTO shared_settings (key, value) VALUES (?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value
    `

	activeKeysQuery = `
        SELECT id, api_key, is_active, priority
        FROM supadata_api_keys
        WHERE is_active = 1
        ORDER BY priority
    `

	markKeyExhaustedQuery = `
        UPDATE supadata_api_keys SET is_active = 0 WHERE id = ?
    `
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) SharedSetting(ctx context.Context, key string) (string, error) {
	const op = "SettingsRepository.SharedSetting"

	var value string
	err := r.db.QueryRowContext(ctx, sharedSettingQuery, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", errors.NotFound(op, nil, "Setting not found")
	}
	if err != nil {
		return "", errors.Internal(op, err, "Failed to query setting")
	}
	return value, nil
}

func (r *SettingsRepository) SetSharedSetting(ctx context.Context, key, value string) error {
	const op = "SettingsRepository.SetSharedSetting"

	if _, err := r.db.ExecContext(ctx, upsertSharedSettingQuery, key, value); err != nil {
		return errors.Internal(op, err, "Failed to save setting")
	}
	return nil
}

func (r *SettingsRepository) ActiveSupadataKeys(ctx context.Context) ([]models.SupadataKey, error) {
	const op = "SettingsRepository.ActiveSupadataKeys"

	rows, err := r.db.QueryContext(ctx, activeKeysQuery)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query API keys")
	}
	defer rows.Close()

	var keys []models.SupadataKey
	for rows.Next() {
		var k models.SupadataKey
		if err := rows.Scan(&k.ID, &k.APIKey, &k.IsActive, &k.Priority); err != nil {
			return nil, errors.Internal(op, err, "Failed to scan API key row")
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(op, err, "Failed to iterate API key rows")
	}
	return keys, nil
}

func (r *SettingsRepository) MarkKeyExhausted(ctx context.Context, id string) error {
	const op = "SettingsRepository.MarkKeyExhausted"

	if _, err := r.db.ExecContext(ctx, markKeyExhaustedQuery, id); err != nil {
		return errors.Internal(op, err, "Failed to mark API key exhausted")
	}
	return nil
}
