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

const battleSessionColumns = "battle_uid, quest_session_uid, status, state_json, state_version, started_at, updated_at, completed_at"

// CreateBattleSession inserts a new battle row. The partial unique index on
// quest_session_uid rejects a second active battle for the same quest run.
func (s *Store) CreateBattleSession(ctx context.Context, battle domain.BattleSession) error {
	var completedAt sql.NullInt64
	if battle.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: toMillis(*battle.CompletedAt), Valid: true}
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO battle_sessions (`+battleSessionColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		battle.BattleUID,
		battle.QuestSessionUID,
		battle.Status.String(),
		string(battle.StateJSON),
		battle.StateVersion,
		toMillis(battle.StartedAt),
		toMillis(battle.UpdatedAt),
		completedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrActiveSessionExists
		}
		return fmt.Errorf("insert battle session: %w", err)
	}
	return nil
}

// GetBattleSession loads a battle session by its public UID.
func (s *Store) GetBattleSession(ctx context.Context, battleUID string) (domain.BattleSession, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+battleSessionColumns+`
FROM battle_sessions
WHERE battle_uid = ?`, battleUID)
	return scanBattleSession(row)
}

// GetActiveBattleSession loads the active battle for a quest session.
func (s *Store) GetActiveBattleSession(ctx context.Context, questSessionUID string) (domain.BattleSession, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+battleSessionColumns+`
FROM battle_sessions
WHERE quest_session_uid = ? AND status = 'active'`, questSessionUID)
	return scanBattleSession(row)
}

// UpdateBattleState replaces the battle state blob when the stored version
// still matches expectedVersion.
func (s *Store) UpdateBattleState(ctx context.Context, battleUID string, stateJSON []byte, expectedVersion uint64, updatedAt time.Time) error {
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE battle_sessions
SET state_json = ?, state_version = state_version + 1, updated_at = ?
WHERE battle_uid = ? AND status = 'active' AND state_version = ?`,
		string(stateJSON),
		toMillis(updatedAt),
		battleUID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update battle state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update battle state rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	return s.explainBattleWriteMiss(ctx, battleUID)
}

// CloseBattleSession moves the battle to a terminal status, optionally
// replacing the final state blob in the same statement.
func (s *Store) CloseBattleSession(ctx context.Context, battleUID string, status domain.SessionStatus, finalState []byte, closedAt time.Time) error {
	if !status.Terminal() {
		return fmt.Errorf("close battle session: status %q is not terminal", status)
	}

	closedMillis := toMillis(closedAt)
	var (
		result sql.Result
		err    error
	)
	if finalState != nil {
		result, err = s.sqlDB.ExecContext(ctx, `
UPDATE battle_sessions
SET status = ?, state_json = ?, state_version = state_version + 1, updated_at = ?, completed_at = ?
WHERE battle_uid = ? AND status = 'active'`,
			status.String(), string(finalState), closedMillis, closedMillis, battleUID)
	} else {
		result, err = s.sqlDB.ExecContext(ctx, `
UPDATE battle_sessions
SET status = ?, updated_at = ?, completed_at = ?
WHERE battle_uid = ? AND status = 'active'`,
			status.String(), closedMillis, closedMillis, battleUID)
	}
	if err != nil {
		return fmt.Errorf("close battle session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("close battle session rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	err = s.explainBattleWriteMiss(ctx, battleUID)
	if errors.Is(err, storage.ErrVersionConflict) {
		return storage.ErrSessionNotActive
	}
	return err
}

func (s *Store) explainBattleWriteMiss(ctx context.Context, battleUID string) error {
	var statusValue string
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT status FROM battle_sessions WHERE battle_uid = ?", battleUID)
	if err := row.Scan(&statusValue); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("inspect battle session: %w", err)
	}

	status, err := domain.ParseSessionStatus(statusValue)
	if err != nil {
		return fmt.Errorf("inspect battle session: %w", err)
	}
	if status != domain.SessionStatusActive {
		return storage.ErrSessionNotActive
	}
	return storage.ErrVersionConflict
}

func scanBattleSession(row *sql.Row) (domain.BattleSession, error) {
	var (
		battle      domain.BattleSession
		statusValue string
		stateJSON   string
		startedAt   int64
		updatedAt   int64
		completedAt sql.NullInt64
	)
	err := row.Scan(
		&battle.BattleUID,
		&battle.QuestSessionUID,
		&statusValue,
		&stateJSON,
		&battle.StateVersion,
		&startedAt,
		&updatedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.BattleSession{}, storage.ErrNotFound
		}
		return domain.BattleSession{}, fmt.Errorf("scan battle session: %w", err)
	}

	battle.Status, err = domain.ParseSessionStatus(statusValue)
	if err != nil {
		return domain.BattleSession{}, fmt.Errorf("scan battle session: %w", err)
	}
	battle.StateJSON = []byte(stateJSON)
	battle.StartedAt = fromMillis(startedAt)
	battle.UpdatedAt = fromMillis(updatedAt)
	if completedAt.Valid {
		completed := fromMillis(completedAt.Int64)
		battle.CompletedAt = &completed
	}
	return battle, nil
}
