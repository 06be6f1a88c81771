// Package storage defines the persistence boundary of the session engine.
package storage

import (
	"context"
	"time"

	"github.com/polargamesbr/rpg-sub006/internal/engine/domain"
	apperrors "github.com/polargamesbr/rpg-sub006/internal/errors"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")
	// ErrActiveSessionExists indicates a conflicting active session.
	ErrActiveSessionExists = apperrors.New(apperrors.CodeActiveSessionExists, "active session exists")
	// ErrSessionNotActive indicates a write against a terminal session.
	ErrSessionNotActive = apperrors.New(apperrors.CodeSessionNotActive, "session is not active")
	// ErrVersionConflict indicates a concurrent write landed first.
	ErrVersionConflict = apperrors.New(apperrors.CodeVersionConflict, "state version conflict")
	// ErrCharacterNotFound indicates a missing character baseline row.
	ErrCharacterNotFound = apperrors.New(apperrors.CodeCharacterNotFound, "character not found")
)

// QuestSessionStore persists quest session rows keyed by their public UID.
type QuestSessionStore interface {
	// CreateQuestSession inserts a new active session. Fails with
	// ErrActiveSessionExists while another session is active for the same
	// (user, quest) pair.
	CreateQuestSession(ctx context.Context, session domain.QuestSession) error

	// GetQuestSession loads a session by public UID.
	GetQuestSession(ctx context.Context, sessionUID string) (domain.QuestSession, error)

	// GetActiveQuestSession loads the active session for a user and quest.
	GetActiveQuestSession(ctx context.Context, userID int64, questID string) (domain.QuestSession, error)

	// UpdateQuestState overwrites the state blob if the stored version still
	// matches expectedVersion. Fails with ErrSessionNotActive on terminal
	// sessions and ErrVersionConflict when a concurrent write landed first.
	UpdateQuestState(ctx context.Context, sessionUID string, stateJSON []byte, expectedVersion uint64, updatedAt time.Time) error

	// CloseQuestSession transitions the session to a terminal status and
	// stamps the terminal timestamp. A non-nil finalState is persisted in
	// the same transaction as the status change.
	CloseQuestSession(ctx context.Context, sessionUID string, status domain.SessionStatus, finalState []byte, closedAt time.Time) error
}

// BattleSessionStore persists battle sub-sessions scoped to a quest session.
type BattleSessionStore interface {
	CreateBattleSession(ctx context.Context, battle domain.BattleSession) error
	GetBattleSession(ctx context.Context, battleUID string) (domain.BattleSession, error)
	GetActiveBattleSession(ctx context.Context, questSessionUID string) (domain.BattleSession, error)
	UpdateBattleState(ctx context.Context, battleUID string, stateJSON []byte, expectedVersion uint64, updatedAt time.Time) error
	CloseBattleSession(ctx context.Context, battleUID string, status domain.SessionStatus, finalState []byte, closedAt time.Time) error
}

// CharacterStore provides the trusted stat baselines. Rows are written by
// the character management side of the application; the engine only reads.
type CharacterStore interface {
	GetCharacterBaseline(ctx context.Context, characterID int64) (domain.CharacterBaseline, error)
}

// EngineEvent is one audit record: a rejected update, a lifecycle
// transition, or anything else worth keeping for cheat forensics.
type EngineEvent struct {
	SessionUID string
	BattleUID  string
	Severity   string
	Name       string
	DetailJSON []byte
	CreatedAt  time.Time
}

// Event severities.
const (
	SeverityInfo = "INFO"
	SeverityWarn = "WARN"
)

// EngineEventStore appends audit events.
type EngineEventStore interface {
	AppendEngineEvent(ctx context.Context, event EngineEvent) error
}
