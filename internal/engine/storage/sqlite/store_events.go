package sqlite

import (
	"context"
	"fmt"

	"github.com/polargamesbr/rpg-sub006/internal/engine/storage"
)

// AppendEngineEvent writes one audit record.
func (s *Store) AppendEngineEvent(ctx context.Context, event storage.EngineEvent) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO engine_events (session_uid, battle_uid, severity, name, detail_json, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		event.SessionUID,
		event.BattleUID,
		event.Severity,
		event.Name,
		string(event.DetailJSON),
		toMillis(event.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert engine event: %w", err)
	}
	return nil
}

// ListEngineEvents returns the audit records for a session, oldest first.
func (s *Store) ListEngineEvents(ctx context.Context, sessionUID string) ([]storage.EngineEvent, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT session_uid, battle_uid, severity, name, detail_json, created_at
FROM engine_events
WHERE session_uid = ?
ORDER BY created_at ASC, id ASC`, sessionUID)
	if err != nil {
		return nil, fmt.Errorf("query engine events: %w", err)
	}
	defer rows.Close()

	var events []storage.EngineEvent
	for rows.Next() {
		var (
			event      storage.EngineEvent
			detailJSON string
			createdAt  int64
		)
		if err := rows.Scan(
			&event.SessionUID,
			&event.BattleUID,
			&event.Severity,
			&event.Name,
			&detailJSON,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan engine event: %w", err)
		}
		event.DetailJSON = []byte(detailJSON)
		event.CreatedAt = fromMillis(createdAt)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate engine events: %w", err)
	}
	return events, nil
}
