package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
)

// ErrConfigNotFound is returned by SetActiveConfig for an unknown row.
var ErrConfigNotFound = errors.New("pbx config not found")

// ActiveConfig returns the active config for a vendor, or (nil, nil) when
// none is active. Implements pbx.ConfigSource.
func (s *Store) ActiveConfig(ctx context.Context, vendor models.PBXVendor) (*models.PBXConnectionConfig, error) {
	row := s.db.QueryRowContext(ctx, `SELECT vendor, server_url, api_key, extension, port, verify_tls, enabled, active
		FROM pbx_configs WHERE vendor = ? AND active = 1`, vendor)
	cfg, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ListConfigs returns every stored config.
func (s *Store) ListConfigs(ctx context.Context) ([]models.PBXConnectionConfig, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT vendor, server_url, api_key, extension, port, verify_tls, enabled, active
		FROM pbx_configs ORDER BY vendor, server_url`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.PBXConnectionConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

// UpsertConfig inserts or updates a config row, keyed by (vendor, url).
// Activation is handled separately by SetActiveConfig so an upsert can
// never accidentally create a second active row.
func (s *Store) UpsertConfig(ctx context.Context, cfg models.PBXConnectionConfig) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO pbx_configs
		(vendor, server_url, api_key, extension, port, verify_tls, enabled, active, updated_at)
		VALUES (?,?,?,?,?,?,?,0,?)
		ON CONFLICT(vendor, server_url) DO UPDATE SET
			api_key = excluded.api_key, extension = excluded.extension, port = excluded.port,
			verify_tls = excluded.verify_tls, enabled = excluded.enabled, updated_at = excluded.updated_at`,
		cfg.Vendor, cfg.ServerURL, cfg.APIKey, cfg.Extension, cfg.Port,
		boolInt(cfg.VerifyTLS), boolInt(cfg.Enabled), time.Now().UTC())
	return err
}

// SetActiveConfig makes one config the single active row for its vendor,
// clearing any previously active row in the same transaction.
func (s *Store) SetActiveConfig(ctx context.Context, vendor models.PBXVendor, serverURL string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE pbx_configs SET active = 0 WHERE vendor = ?`, vendor); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE pbx_configs SET active = 1 WHERE vendor = ? AND server_url = ?`, vendor, serverURL)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConfigNotFound
	}
	return tx.Commit()
}

func scanConfig(r rowScanner) (models.PBXConnectionConfig, error) {
	var (
		cfg     models.PBXConnectionConfig
		ext     sql.NullString
		verify  int
		enabled int
		active  int
	)
	err := r.Scan(&cfg.Vendor, &cfg.ServerURL, &cfg.APIKey, &ext, &cfg.Port, &verify, &enabled, &active)
	if err != nil {
		return models.PBXConnectionConfig{}, err
	}
	cfg.Extension = ext.String
	cfg.VerifyTLS = verify != 0
	cfg.Enabled = enabled != 0
	cfg.Active = active != 0
	return cfg, nil
}
