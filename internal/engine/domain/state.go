package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Phase identifies whose half of the combat round is in progress.
type Phase string

const (
	// PhasePlayer is the player's half of a round.
	PhasePlayer Phase = "player"
	// PhaseEnemy is the enemy half of a round.
	PhaseEnemy Phase = "enemy"
)

// Valid reports whether the phase is a known value.
func (p Phase) Valid() bool {
	return p == PhasePlayer || p == PhaseEnemy
}

// Unit is a single combatant inside a combat state payload.
//
// SP is optional: not every unit has a mana pool, and a missing field must be
// distinguishable from a zeroed one.
type Unit struct {
	ID          string `json:"id"`
	EntityID    string `json:"entityId"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	HP          int    `json:"hp"`
	SP          *int   `json:"sp,omitempty"`
	HasMoved    bool   `json:"hasMoved"`
	FacingRight bool   `json:"facingRight"`
}

// CombatState is the authoritative JSON payload for one quest or battle
// session. Unknown fields are ignored on decode for forward compatibility.
type CombatState struct {
	Player     Unit     `json:"player"`
	Allies     []Unit   `json:"allies"`
	Enemies    []Unit   `json:"enemies"`
	Turn       int      `json:"turn"`
	Phase      Phase    `json:"phase"`
	UnitsActed []string `json:"unitsActed"`
}

// CharacterBaseline carries the trusted stat ceiling for a character,
// loaded server-side and never taken from the client payload.
type CharacterBaseline struct {
	CharacterID int64
	Name        string
	MaxHP       int
	MaxMana     int
	MoveRange   int
}

// DecodeCombatState parses a raw state payload.
func DecodeCombatState(raw []byte) (CombatState, error) {
	var state CombatState
	if len(bytes.TrimSpace(raw)) == 0 {
		return CombatState{}, fmt.Errorf("empty combat state payload")
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return CombatState{}, fmt.Errorf("decode combat state: %w", err)
	}
	return state, nil
}

// EncodeCombatState renders the state as canonical JSON for persistence.
func EncodeCombatState(state CombatState) ([]byte, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode combat state: %w", err)
	}
	return raw, nil
}

// NewInitialCombatState seeds the state a fresh session starts from: the
// player at the origin with full pools, no allies or enemies placed yet.
func NewInitialCombatState(playerID string, baseline CharacterBaseline) CombatState {
	sp := baseline.MaxMana
	return CombatState{
		Player: Unit{
			ID:          playerID,
			EntityID:    playerID,
			X:           0,
			Y:           0,
			HP:          baseline.MaxHP,
			SP:          &sp,
			FacingRight: true,
		},
		Allies:     []Unit{},
		Enemies:    []Unit{},
		Turn:       0,
		Phase:      PhasePlayer,
		UnitsActed: []string{},
	}
}

// Units returns every combatant in the state, player first.
func (s CombatState) Units() []Unit {
	units := make([]Unit, 0, 1+len(s.Allies)+len(s.Enemies))
	units = append(units, s.Player)
	units = append(units, s.Allies...)
	units = append(units, s.Enemies...)
	return units
}
