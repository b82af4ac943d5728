package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
)

// GetSettings loads a user's stored settings. Returns (nil, nil) when the
// user has never saved; the caller supplies the default shape.
func (s *Store) GetSettings(ctx context.Context, userID string) (*models.SupervisorSettings, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT settings_json FROM supervisor_settings WHERE user_id = ?`, userID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out models.SupervisorSettings
	if err := json.Unmarshal([]byte(blob), &out); err != nil {
		return nil, fmt.Errorf("decoding settings for %s: %w", userID, err)
	}
	return &out, nil
}

// PutSettings stores (or replaces) a user's settings blob.
func (s *Store) PutSettings(ctx context.Context, userID string, set models.SupervisorSettings) error {
	blob, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO supervisor_settings (user_id, settings_json, updated_at)
		VALUES (?,?,?)
		ON CONFLICT(user_id) DO UPDATE SET settings_json = excluded.settings_json, updated_at = excluded.updated_at`,
		userID, string(blob), time.Now().UTC())
	return err
}
