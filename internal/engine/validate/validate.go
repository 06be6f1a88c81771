// Package validate checks proposed combat states against the previous
// authoritative state and the character's trusted baseline.
//
// Validation is the real anti-cheat boundary of the engine: the transport
// cipher only obfuscates payloads, so every mutation a client reports must
// pass these checks before it is persisted. Validate is a pure function over
// its inputs and never short-circuits; all violated rules are reported
// together so a client probing one field at a time learns nothing extra.
package validate

import (
	"fmt"

	"github.com/polargamesbr/rpg-sub006/internal/engine/domain"
)

// StatOverflowTolerance bounds transient buff stacking: a stat may exceed its
// baseline maximum by this factor, never more.
const StatOverflowTolerance = 3.0

// MaxTurnAdvance is the largest turn increment a single request may carry.
const MaxTurnAdvance = 1

// ReasonCode identifies one violated validation rule.
type ReasonCode string

const (
	ReasonMissingPlayerID    ReasonCode = "MISSING_PLAYER_ID"
	ReasonMissingUnitID      ReasonCode = "MISSING_UNIT_ID"
	ReasonDuplicateUnitID    ReasonCode = "DUPLICATE_UNIT_ID"
	ReasonInvalidPhase       ReasonCode = "INVALID_PHASE"
	ReasonNegativeTurn       ReasonCode = "NEGATIVE_TURN"
	ReasonHPBelowZero        ReasonCode = "HP_BELOW_ZERO"
	ReasonHPExceedsTolerance ReasonCode = "HP_EXCEEDS_TOLERANCE"
	ReasonSPBelowZero        ReasonCode = "SP_BELOW_ZERO"
	ReasonSPExceedsTolerance ReasonCode = "SP_EXCEEDS_TOLERANCE"
	ReasonTurnRegressed      ReasonCode = "TURN_REGRESSED"
	ReasonTurnSkipped        ReasonCode = "TURN_SKIPPED"
	ReasonPhaseIllegal       ReasonCode = "PHASE_TRANSITION_ILLEGAL"
	ReasonMoveTooFar         ReasonCode = "MOVE_EXCEEDS_RANGE"
	ReasonUnknownActedUnit   ReasonCode = "UNKNOWN_ACTED_UNIT"
	ReasonActedSetShrunk     ReasonCode = "ACTED_SET_SHRUNK"
)

// Reason is one violated rule with a human-readable message.
type Reason struct {
	Code    ReasonCode `json:"code"`
	Message string     `json:"message"`
}

// Result carries every violation found in a proposed state.
type Result struct {
	Reasons []Reason
}

// OK reports whether the proposed state passed every check.
func (r Result) OK() bool {
	return len(r.Reasons) == 0
}

// Messages flattens the reasons for wire responses.
func (r Result) Messages() []string {
	if len(r.Reasons) == 0 {
		return nil
	}
	out := make([]string, 0, len(r.Reasons))
	for _, reason := range r.Reasons {
		out = append(out, fmt.Sprintf("%s: %s", reason.Code, reason.Message))
	}
	return out
}

// Validate checks a proposed combat state against the previous state and the
// character baseline. It accumulates every violation instead of stopping at
// the first.
func Validate(prev, proposed domain.CombatState, baseline domain.CharacterBaseline) Result {
	var result Result
	add := func(code ReasonCode, format string, args ...any) {
		result.Reasons = append(result.Reasons, Reason{Code: code, Message: fmt.Sprintf(format, args...)})
	}

	checkStructure(proposed, add)
	checkStats(proposed, baseline, add)
	checkTurn(prev, proposed, add)
	checkMovement(prev, proposed, baseline, add)
	checkUnitsActed(prev, proposed, add)

	return result
}

type addFunc func(code ReasonCode, format string, args ...any)

func checkStructure(proposed domain.CombatState, add addFunc) {
	if proposed.Player.ID == "" {
		add(ReasonMissingPlayerID, "player unit id is required")
	}
	if !proposed.Phase.Valid() {
		add(ReasonInvalidPhase, "phase %q is not a known phase", proposed.Phase)
	}
	if proposed.Turn < 0 {
		add(ReasonNegativeTurn, "turn %d is negative", proposed.Turn)
	}

	for _, unit := range proposed.Allies {
		if unit.ID == "" {
			add(ReasonMissingUnitID, "ally unit id is required")
		}
	}
	for _, unit := range proposed.Enemies {
		if unit.ID == "" {
			add(ReasonMissingUnitID, "enemy unit id is required")
		}
	}

	seen := make(map[string]struct{}, 1+len(proposed.Allies)+len(proposed.Enemies))
	for _, unit := range proposed.Units() {
		if unit.ID == "" {
			continue
		}
		if _, dup := seen[unit.ID]; dup {
			add(ReasonDuplicateUnitID, "unit id %q appears more than once", unit.ID)
			continue
		}
		seen[unit.ID] = struct{}{}
	}
}

func checkStats(proposed domain.CombatState, baseline domain.CharacterBaseline, add addFunc) {
	for _, unit := range proposed.Units() {
		if unit.HP < 0 {
			add(ReasonHPBelowZero, "unit %q hp %d is negative", unit.ID, unit.HP)
		}
		if unit.SP != nil && *unit.SP < 0 {
			add(ReasonSPBelowZero, "unit %q sp %d is negative", unit.ID, *unit.SP)
		}
	}

	maxHP := int(float64(baseline.MaxHP) * StatOverflowTolerance)
	if proposed.Player.HP > maxHP {
		add(ReasonHPExceedsTolerance, "player hp %d exceeds %d (max %d with tolerance %.1fx)",
			proposed.Player.HP, maxHP, baseline.MaxHP, StatOverflowTolerance)
	}
	if proposed.Player.SP != nil {
		maxSP := int(float64(baseline.MaxMana) * StatOverflowTolerance)
		if *proposed.Player.SP > maxSP {
			add(ReasonSPExceedsTolerance, "player sp %d exceeds %d (max %d with tolerance %.1fx)",
				*proposed.Player.SP, maxSP, baseline.MaxMana, StatOverflowTolerance)
		}
	}
}

func checkTurn(prev, proposed domain.CombatState, add addFunc) {
	advance := proposed.Turn - prev.Turn
	if advance < 0 {
		add(ReasonTurnRegressed, "turn %d regressed below %d", proposed.Turn, prev.Turn)
		return
	}
	if advance > MaxTurnAdvance {
		add(ReasonTurnSkipped, "turn advanced by %d, at most %d allowed per request", advance, MaxTurnAdvance)
		return
	}

	if !prev.Phase.Valid() || !proposed.Phase.Valid() {
		// Invalid phases are reported by the structural check.
		return
	}

	// The cycle is player -> enemy within a turn, enemy -> player advancing it.
	switch advance {
	case 0:
		samePhase := proposed.Phase == prev.Phase
		playerToEnemy := prev.Phase == domain.PhasePlayer && proposed.Phase == domain.PhaseEnemy
		if !samePhase && !playerToEnemy {
			add(ReasonPhaseIllegal, "phase %s -> %s is not legal within turn %d",
				prev.Phase, proposed.Phase, prev.Turn)
		}
	case MaxTurnAdvance:
		if prev.Phase != domain.PhaseEnemy || proposed.Phase != domain.PhasePlayer {
			add(ReasonPhaseIllegal, "turn may only advance on the enemy -> player transition, got %s -> %s",
				prev.Phase, proposed.Phase)
		}
	}
}

func checkMovement(prev, proposed domain.CombatState, baseline domain.CharacterBaseline, add addFunc) {
	if baseline.MoveRange <= 0 {
		return
	}

	previous := make(map[string]domain.Unit)
	for _, unit := range prev.Units() {
		if unit.ID != "" {
			previous[unit.ID] = unit
		}
	}

	for _, unit := range proposed.Units() {
		before, known := previous[unit.ID]
		if !known {
			continue
		}
		dx := abs(unit.X - before.X)
		dy := abs(unit.Y - before.Y)
		if max(dx, dy) > baseline.MoveRange {
			add(ReasonMoveTooFar, "unit %q moved (%d,%d) -> (%d,%d), beyond range %d",
				unit.ID, before.X, before.Y, unit.X, unit.Y, baseline.MoveRange)
		}
	}
}

func checkUnitsActed(prev, proposed domain.CombatState, add addFunc) {
	known := make(map[string]struct{})
	for _, unit := range proposed.Units() {
		if unit.ID != "" {
			known[unit.ID] = struct{}{}
		}
	}

	acted := make(map[string]struct{}, len(proposed.UnitsActed))
	for _, unitID := range proposed.UnitsActed {
		if _, ok := known[unitID]; !ok {
			add(ReasonUnknownActedUnit, "acted unit %q is not part of the state", unitID)
		}
		acted[unitID] = struct{}{}
	}

	// Within the same turn a unit cannot un-act.
	if proposed.Turn == prev.Turn && proposed.Phase == prev.Phase {
		for _, unitID := range prev.UnitsActed {
			if _, ok := acted[unitID]; !ok {
				add(ReasonActedSetShrunk, "unit %q acted this turn but is missing from the proposed set", unitID)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
