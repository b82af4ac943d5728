package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
)

// maxAlertRows caps alert retrieval to the most recent records.
const maxAlertRows = 100

// ErrAlertNotFound is returned when an alert id does not exist.
var ErrAlertNotFound = errors.New("alert not found")

// AlertFilter narrows ListAlerts. Zero fields match everything.
type AlertFilter struct {
	Type         models.AlertType
	Priority     models.AlertPriority
	Acknowledged *bool
}

// InsertAlert persists a new alert row.
func (s *Store) InsertAlert(ctx context.Context, a models.Alert) error {
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("encoding alert metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO alerts
		(id, type, title, message, priority, acknowledged, acknowledged_by, acknowledged_at, agent_id, agent_name, metadata_json, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.Type, a.Title, a.Message, a.Priority,
		boolInt(a.Acknowledged), nullStr(a.AcknowledgedBy), a.AcknowledgedAt,
		nullStr(a.AgentID), nullStr(a.AgentName), string(meta), a.CreatedAt.UTC())
	return err
}

// ListAlerts returns the newest alerts matching f, capped at maxAlertRows.
func (s *Store) ListAlerts(ctx context.Context, f AlertFilter) ([]models.Alert, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, f.Priority)
	}
	if f.Acknowledged != nil {
		where = append(where, "acknowledged = ?")
		args = append(args, boolInt(*f.Acknowledged))
	}
	query := `SELECT id, type, title, message, priority, acknowledged, acknowledged_by, acknowledged_at, agent_id, agent_name, metadata_json, created_at FROM alerts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", maxAlertRows)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAlert loads one alert by id.
func (s *Store) GetAlert(ctx context.Context, id string) (models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, type, title, message, priority, acknowledged, acknowledged_by, acknowledged_at, agent_id, agent_name, metadata_json, created_at FROM alerts WHERE id = ?`, id)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Alert{}, ErrAlertNotFound
	}
	return a, err
}

// AcknowledgeAlert marks an alert acknowledged. The transition is one-way:
// an already-acknowledged alert keeps its original acknowledged_by/at, the
// repeated call just returns the stored record.
func (s *Store) AcknowledgeAlert(ctx context.Context, id, by string, at time.Time) (models.Alert, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET acknowledged = 1, acknowledged_by = ?, acknowledged_at = ? WHERE id = ? AND acknowledged = 0`,
		by, at.UTC(), id)
	if err != nil {
		return models.Alert{}, err
	}
	// Zero rows affected means missing or already acknowledged; GetAlert
	// disambiguates and returns the stored record with its original audit
	// fields intact.
	return s.GetAlert(ctx, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(r rowScanner) (models.Alert, error) {
	var (
		a       models.Alert
		acked   int
		by      sql.NullString
		at      sql.NullTime
		agentID sql.NullString
		agentNm sql.NullString
		meta    sql.NullString
	)
	err := r.Scan(&a.ID, &a.Type, &a.Title, &a.Message, &a.Priority, &acked, &by, &at, &agentID, &agentNm, &meta, &a.CreatedAt)
	if err != nil {
		return models.Alert{}, err
	}
	a.Acknowledged = acked != 0
	a.AcknowledgedBy = by.String
	if at.Valid {
		t := at.Time
		a.AcknowledgedAt = &t
	}
	a.AgentID = agentID.String
	a.AgentName = agentNm.String
	if meta.Valid && meta.String != "" && meta.String != "null" {
		if err := json.Unmarshal([]byte(meta.String), &a.Metadata); err != nil {
			return models.Alert{}, fmt.Errorf("decoding alert metadata: %w", err)
		}
	}
	return a, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
