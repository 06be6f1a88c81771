package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/polargamesbr/rpg-sub006/internal/engine/domain"
	"github.com/polargamesbr/rpg-sub006/internal/engine/storage"
)

const questSessionColumns = "session_uid, user_id, character_id, quest_id, status, state_json, state_version, started_at, updated_at, completed_at"

// CreateQuestSession inserts a new quest session row. The partial unique
// index on (user_id, quest_id) rejects a second active session.
func (s *Store) CreateQuestSession(ctx context.Context, session domain.QuestSession) error {
	var completedAt sql.NullInt64
	if session.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: toMillis(*session.CompletedAt), Valid: true}
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO quest_sessions (`+questSessionColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.SessionUID,
		session.UserID,
		session.CharacterID,
		session.QuestID,
		session.Status.String(),
		string(session.StateJSON),
		session.StateVersion,
		toMillis(session.StartedAt),
		toMillis(session.UpdatedAt),
		completedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrActiveSessionExists
		}
		return fmt.Errorf("insert quest session: %w", err)
	}
	return nil
}

// GetQuestSession loads a quest session by its public UID.
func (s *Store) GetQuestSession(ctx context.Context, sessionUID string) (domain.QuestSession, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+questSessionColumns+`
FROM quest_sessions
WHERE session_uid = ?`, sessionUID)
	return scanQuestSession(row)
}

// GetActiveQuestSession loads the single active session for a user and quest.
func (s *Store) GetActiveQuestSession(ctx context.Context, userID int64, questID string) (domain.QuestSession, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+questSessionColumns+`
FROM quest_sessions
WHERE user_id = ? AND quest_id = ? AND status = 'active'`, userID, questID)
	return scanQuestSession(row)
}

// UpdateQuestState replaces the state blob when the stored version still
// matches expectedVersion, bumping the version in the same statement.
func (s *Store) UpdateQuestState(ctx context.Context, sessionUID string, stateJSON []byte, expectedVersion uint64, updatedAt time.Time) error {
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE quest_sessions
SET state_json = ?, state_version = state_version + 1, updated_at = ?
WHERE session_uid = ? AND status = 'active' AND state_version = ?`,
		string(stateJSON),
		toMillis(updatedAt),
		sessionUID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update quest state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update quest state rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	return s.explainQuestWriteMiss(ctx, sessionUID)
}

// CloseQuestSession moves the session to a terminal status. When finalState
// is non-nil the blob is replaced in the same statement as the transition.
func (s *Store) CloseQuestSession(ctx context.Context, sessionUID string, status domain.SessionStatus, finalState []byte, closedAt time.Time) error {
	if !status.Terminal() {
		return fmt.Errorf("close quest session: status %q is not terminal", status)
	}

	closedMillis := toMillis(closedAt)
	var (
		result sql.Result
		err    error
	)
	if finalState != nil {
		result, err = s.sqlDB.ExecContext(ctx, `
UPDATE quest_sessions
SET status = ?, state_json = ?, state_version = state_version + 1, updated_at = ?, completed_at = ?
WHERE session_uid = ? AND status = 'active'`,
			status.String(), string(finalState), closedMillis, closedMillis, sessionUID)
	} else {
		result, err = s.sqlDB.ExecContext(ctx, `
UPDATE quest_sessions
SET status = ?, updated_at = ?, completed_at = ?
WHERE session_uid = ? AND status = 'active'`,
			status.String(), closedMillis, closedMillis, sessionUID)
	}
	if err != nil {
		return fmt.Errorf("close quest session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("close quest session rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	err = s.explainQuestWriteMiss(ctx, sessionUID)
	if errors.Is(err, storage.ErrVersionConflict) {
		// Cannot happen for closes; the guarded column is status only.
		return storage.ErrSessionNotActive
	}
	return err
}

// explainQuestWriteMiss disambiguates a zero-row UPDATE into not-found,
// not-active, or version-conflict.
func (s *Store) explainQuestWriteMiss(ctx context.Context, sessionUID string) error {
	var statusValue string
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT status FROM quest_sessions WHERE session_uid = ?", sessionUID)
	if err := row.Scan(&statusValue); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("inspect quest session: %w", err)
	}

	status, err := domain.ParseSessionStatus(statusValue)
	if err != nil {
		return fmt.Errorf("inspect quest session: %w", err)
	}
	if status != domain.SessionStatusActive {
		return storage.ErrSessionNotActive
	}
	return storage.ErrVersionConflict
}

func scanQuestSession(row *sql.Row) (domain.QuestSession, error) {
	var (
		session     domain.QuestSession
		statusValue string
		stateJSON   string
		startedAt   int64
		updatedAt   int64
		completedAt sql.NullInt64
	)
	err := row.Scan(
		&session.SessionUID,
		&session.UserID,
		&session.CharacterID,
		&session.QuestID,
		&statusValue,
		&stateJSON,
		&session.StateVersion,
		&startedAt,
		&updatedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.QuestSession{}, storage.ErrNotFound
		}
		return domain.QuestSession{}, fmt.Errorf("scan quest session: %w", err)
	}

	session.Status, err = domain.ParseSessionStatus(statusValue)
	if err != nil {
		return domain.QuestSession{}, fmt.Errorf("scan quest session: %w", err)
	}
	session.StateJSON = []byte(stateJSON)
	session.StartedAt = fromMillis(startedAt)
	session.UpdatedAt = fromMillis(updatedAt)
	if completedAt.Valid {
		completed := fromMillis(completedAt.Int64)
		session.CompletedAt = &completed
	}
	return session, nil
}
