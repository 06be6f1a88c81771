package domain

import (
	"errors"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
}

func fixedID() (string, error) {
	return "abcdefghijklmnopqrstuvwxyz", nil
}

func TestCreateQuestSession(t *testing.T) {
	session, err := CreateQuestSession(CreateQuestSessionInput{
		UserID:      42,
		CharacterID: 7,
		QuestID:     "  quest-ruins  ",
		StateJSON:   []byte(`{"turn":0}`),
	}, fixedNow, fixedID)
	if err != nil {
		t.Fatalf("CreateQuestSession() error = %v", err)
	}

	if session.SessionUID != "abcdefghijklmnopqrstuvwxyz" {
		t.Errorf("SessionUID = %q", session.SessionUID)
	}
	if session.QuestID != "quest-ruins" {
		t.Errorf("QuestID = %q, want trimmed", session.QuestID)
	}
	if session.Status != SessionStatusActive {
		t.Errorf("Status = %v, want active", session.Status)
	}
	if session.StateVersion != 1 {
		t.Errorf("StateVersion = %d, want 1", session.StateVersion)
	}
	if !session.StartedAt.Equal(fixedNow()) || !session.UpdatedAt.Equal(fixedNow()) {
		t.Errorf("timestamps = %v/%v, want %v", session.StartedAt, session.UpdatedAt, fixedNow())
	}
	if session.CompletedAt != nil {
		t.Errorf("CompletedAt = %v, want nil", session.CompletedAt)
	}
}

func TestCreateQuestSessionValidation(t *testing.T) {
	tests := []struct {
		name  string
		input CreateQuestSessionInput
		want  error
	}{
		{"empty quest", CreateQuestSessionInput{UserID: 42, CharacterID: 7}, ErrEmptyQuestID},
		{"blank quest", CreateQuestSessionInput{UserID: 42, CharacterID: 7, QuestID: "   "}, ErrEmptyQuestID},
		{"zero user", CreateQuestSessionInput{CharacterID: 7, QuestID: "q"}, ErrInvalidUserID},
		{"negative user", CreateQuestSessionInput{UserID: -1, CharacterID: 7, QuestID: "q"}, ErrInvalidUserID},
		{"zero character", CreateQuestSessionInput{UserID: 42, QuestID: "q"}, ErrInvalidCharacterID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateQuestSession(tt.input, fixedNow, fixedID)
			if !errors.Is(err, tt.want) {
				t.Fatalf("CreateQuestSession() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateBattleSession(t *testing.T) {
	battle, err := CreateBattleSession("parent-uid", []byte(`{"turn":0}`), fixedNow, fixedID)
	if err != nil {
		t.Fatalf("CreateBattleSession() error = %v", err)
	}
	if battle.QuestSessionUID != "parent-uid" {
		t.Errorf("QuestSessionUID = %q", battle.QuestSessionUID)
	}
	if battle.Status != SessionStatusActive || battle.StateVersion != 1 {
		t.Errorf("Status/Version = %v/%d, want active/1", battle.Status, battle.StateVersion)
	}

	_, err = CreateBattleSession("  ", nil, fixedNow, fixedID)
	if !errors.Is(err, ErrEmptyQuestSessionUID) {
		t.Fatalf("CreateBattleSession(blank parent) error = %v, want ErrEmptyQuestSessionUID", err)
	}
}

func TestSessionStatusRoundTrip(t *testing.T) {
	for _, status := range []SessionStatus{SessionStatusActive, SessionStatusCompleted, SessionStatusAbandoned} {
		parsed, err := ParseSessionStatus(status.String())
		if err != nil {
			t.Fatalf("ParseSessionStatus(%q) error = %v", status, err)
		}
		if parsed != status {
			t.Errorf("round trip %v -> %v", status, parsed)
		}
	}

	if _, err := ParseSessionStatus("bogus"); err == nil {
		t.Fatal("ParseSessionStatus(bogus) error = nil, want error")
	}
}

func TestSessionStatusTerminal(t *testing.T) {
	if SessionStatusActive.Terminal() {
		t.Error("active reported terminal")
	}
	if !SessionStatusCompleted.Terminal() || !SessionStatusAbandoned.Terminal() {
		t.Error("completed/abandoned not reported terminal")
	}
}
