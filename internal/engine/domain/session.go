package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/polargamesbr/rpg-sub006/internal/errors"
	"github.com/polargamesbr/rpg-sub006/internal/platform/id"
)

// SessionStatus describes the lifecycle state of a quest or battle session.
type SessionStatus int

const (
	// SessionStatusUnspecified represents an invalid session status value.
	SessionStatusUnspecified SessionStatus = iota
	// SessionStatusActive indicates the session accepts state updates.
	SessionStatusActive
	// SessionStatusCompleted indicates the session finished successfully.
	SessionStatusCompleted
	// SessionStatusAbandoned indicates the session was given up.
	SessionStatusAbandoned
)

// String returns the storage representation of the status.
func (s SessionStatus) String() string {
	switch s {
	case SessionStatusActive:
		return "active"
	case SessionStatusCompleted:
		return "completed"
	case SessionStatusAbandoned:
		return "abandoned"
	default:
		return "unspecified"
	}
}

// ParseSessionStatus maps a storage value back to a SessionStatus.
func ParseSessionStatus(value string) (SessionStatus, error) {
	switch value {
	case "active":
		return SessionStatusActive, nil
	case "completed":
		return SessionStatusCompleted, nil
	case "abandoned":
		return SessionStatusAbandoned, nil
	default:
		return SessionStatusUnspecified, fmt.Errorf("unknown session status %q", value)
	}
}

// Terminal reports whether the status accepts no further state updates.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusAbandoned
}

var (
	// ErrEmptyQuestID indicates a missing quest ID.
	ErrEmptyQuestID = apperrors.New(apperrors.CodeInvalidArgument, "quest id is required")
	// ErrInvalidUserID indicates a missing or invalid user ID.
	ErrInvalidUserID = apperrors.New(apperrors.CodeInvalidArgument, "user id is required")
	// ErrInvalidCharacterID indicates a missing or invalid character ID.
	ErrInvalidCharacterID = apperrors.New(apperrors.CodeInvalidArgument, "character id is required")
	// ErrEmptyQuestSessionUID indicates a missing parent session UID.
	ErrEmptyQuestSessionUID = apperrors.New(apperrors.CodeInvalidArgument, "quest session uid is required")
)

// QuestSession is the persistent record of one quest run.
type QuestSession struct {
	SessionUID   string
	UserID       int64
	CharacterID  int64
	QuestID      string
	Status       SessionStatus
	StateJSON    []byte
	StateVersion uint64
	StartedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time // nil while the session is active
}

// BattleSession is an optional sub-session bound to a quest session.
type BattleSession struct {
	BattleUID       string
	QuestSessionUID string
	Status          SessionStatus
	StateJSON       []byte
	StateVersion    uint64
	StartedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

// CreateQuestSessionInput describes the identities owning a new quest session.
type CreateQuestSessionInput struct {
	UserID      int64
	CharacterID int64
	QuestID     string
	StateJSON   []byte
}

// CreateQuestSession builds a new active quest session with a generated UID
// and timestamps.
func CreateQuestSession(input CreateQuestSessionInput, now func() time.Time, idGenerator func() (string, error)) (QuestSession, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	input.QuestID = strings.TrimSpace(input.QuestID)
	if input.QuestID == "" {
		return QuestSession{}, ErrEmptyQuestID
	}
	if input.UserID <= 0 {
		return QuestSession{}, ErrInvalidUserID
	}
	if input.CharacterID <= 0 {
		return QuestSession{}, ErrInvalidCharacterID
	}

	sessionUID, err := idGenerator()
	if err != nil {
		return QuestSession{}, fmt.Errorf("generate session uid: %w", err)
	}

	createdAt := now().UTC()
	return QuestSession{
		SessionUID:   sessionUID,
		UserID:       input.UserID,
		CharacterID:  input.CharacterID,
		QuestID:      input.QuestID,
		Status:       SessionStatusActive,
		StateJSON:    input.StateJSON,
		StateVersion: 1,
		StartedAt:    createdAt,
		UpdatedAt:    createdAt,
		CompletedAt:  nil,
	}, nil
}

// CreateBattleSession builds a new active battle session bound to a parent
// quest session.
func CreateBattleSession(questSessionUID string, stateJSON []byte, now func() time.Time, idGenerator func() (string, error)) (BattleSession, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	questSessionUID = strings.TrimSpace(questSessionUID)
	if questSessionUID == "" {
		return BattleSession{}, ErrEmptyQuestSessionUID
	}

	battleUID, err := idGenerator()
	if err != nil {
		return BattleSession{}, fmt.Errorf("generate battle uid: %w", err)
	}

	createdAt := now().UTC()
	return BattleSession{
		BattleUID:       battleUID,
		QuestSessionUID: questSessionUID,
		Status:          SessionStatusActive,
		StateJSON:       stateJSON,
		StateVersion:    1,
		StartedAt:       createdAt,
		UpdatedAt:       createdAt,
		CompletedAt:     nil,
	}, nil
}
