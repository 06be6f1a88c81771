package validate

import (
	"reflect"
	"testing"

	"github.com/polargamesbr/rpg-sub006/internal/engine/domain"
)

func intPtr(v int) *int { return &v }

func baseline() domain.CharacterBaseline {
	return domain.CharacterBaseline{
		CharacterID: 7,
		Name:        "Test Hero",
		MaxHP:       300,
		MaxMana:     100,
		MoveRange:   3,
	}
}

func legalState() domain.CombatState {
	return domain.CombatState{
		Player: domain.Unit{
			ID:       "player-1",
			EntityID: "hero",
			X:        2,
			Y:        2,
			HP:       300,
			SP:       intPtr(100),
		},
		Enemies: []domain.Unit{
			{ID: "enemy-1", EntityID: "slime", X: 6, Y: 2, HP: 40},
		},
		Turn:       5,
		Phase:      domain.PhasePlayer,
		UnitsActed: []string{},
	}
}

func hasReason(t *testing.T, result Result, code ReasonCode) bool {
	t.Helper()
	for _, reason := range result.Reasons {
		if reason.Code == code {
			return true
		}
	}
	return false
}

func TestValidateLegalMoveAccepted(t *testing.T) {
	prev := legalState()
	proposed := legalState()
	proposed.Player.X = prev.Player.X + 1
	proposed.Player.HP = 280
	proposed.Player.HasMoved = true
	proposed.UnitsActed = []string{"player-1"}

	result := Validate(prev, proposed, baseline())
	if !result.OK() {
		t.Fatalf("expected legal move to pass, got reasons %v", result.Reasons)
	}
}

func TestValidateHPInflationRejected(t *testing.T) {
	prev := legalState()
	proposed := legalState()
	proposed.Player.HP = 99999

	result := Validate(prev, proposed, baseline())
	if result.OK() {
		t.Fatal("expected hp inflation to be rejected")
	}
	if !hasReason(t, result, ReasonHPExceedsTolerance) {
		t.Fatalf("expected %s reason, got %v", ReasonHPExceedsTolerance, result.Reasons)
	}
}

func TestValidateHPWithinToleranceAccepted(t *testing.T) {
	// Buffed hp up to 3x the baseline maximum is legitimate.
	prev := legalState()
	proposed := legalState()
	proposed.Player.HP = 900

	result := Validate(prev, proposed, baseline())
	if hasReason(t, result, ReasonHPExceedsTolerance) {
		t.Fatalf("hp at the tolerance ceiling must pass, got %v", result.Reasons)
	}
}

func TestValidateNegativeHPRejectedForAnyUnit(t *testing.T) {
	prev := legalState()
	proposed := legalState()
	proposed.Enemies[0].HP = -5

	result := Validate(prev, proposed, baseline())
	if !hasReason(t, result, ReasonHPBelowZero) {
		t.Fatalf("expected %s reason, got %v", ReasonHPBelowZero, result.Reasons)
	}
}

func TestValidateSPBounds(t *testing.T) {
	tests := []struct {
		name string
		sp   int
		want ReasonCode
	}{
		{name: "negative sp", sp: -1, want: ReasonSPBelowZero},
		{name: "inflated sp", sp: 301, want: ReasonSPExceedsTolerance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := legalState()
			proposed := legalState()
			proposed.Player.SP = intPtr(tt.sp)

			result := Validate(prev, proposed, baseline())
			if !hasReason(t, result, tt.want) {
				t.Fatalf("expected %s reason, got %v", tt.want, result.Reasons)
			}
		})
	}
}

func TestValidateMissingSPIsLegal(t *testing.T) {
	prev := legalState()
	proposed := legalState()
	proposed.Player.SP = nil

	result := Validate(prev, proposed, baseline())
	if !result.OK() {
		t.Fatalf("unit without a mana pool must pass, got %v", result.Reasons)
	}
}

func TestValidateTurnRegressionAlwaysRejected(t *testing.T) {
	prev := legalState()
	proposed := legalState()
	proposed.Turn = prev.Turn - 1

	result := Validate(prev, proposed, baseline())
	if !hasReason(t, result, ReasonTurnRegressed) {
		t.Fatalf("expected %s reason, got %v", ReasonTurnRegressed, result.Reasons)
	}
}

func TestValidateTurnJumpRejected(t *testing.T) {
	prev := legalState()
	proposed := legalState()
	proposed.Turn = prev.Turn + 2
	proposed.Phase = domain.PhasePlayer

	result := Validate(prev, proposed, baseline())
	if !hasReason(t, result, ReasonTurnSkipped) {
		t.Fatalf("expected %s reason, got %v", ReasonTurnSkipped, result.Reasons)
	}
}

func TestValidatePhaseCycle(t *testing.T) {
	tests := []struct {
		name      string
		prevPhase domain.Phase
		newPhase  domain.Phase
		advance   int
		legal     bool
	}{
		{name: "same player phase", prevPhase: domain.PhasePlayer, newPhase: domain.PhasePlayer, advance: 0, legal: true},
		{name: "player to enemy", prevPhase: domain.PhasePlayer, newPhase: domain.PhaseEnemy, advance: 0, legal: true},
		{name: "enemy to player next turn", prevPhase: domain.PhaseEnemy, newPhase: domain.PhasePlayer, advance: 1, legal: true},
		{name: "enemy to player same turn", prevPhase: domain.PhaseEnemy, newPhase: domain.PhasePlayer, advance: 0, legal: false},
		{name: "turn advance without wrap", prevPhase: domain.PhasePlayer, newPhase: domain.PhasePlayer, advance: 1, legal: false},
		{name: "player to enemy with advance", prevPhase: domain.PhasePlayer, newPhase: domain.PhaseEnemy, advance: 1, legal: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := legalState()
			prev.Phase = tt.prevPhase
			proposed := legalState()
			proposed.Phase = tt.newPhase
			proposed.Turn = prev.Turn + tt.advance

			result := Validate(prev, proposed, baseline())
			if tt.legal && hasReason(t, result, ReasonPhaseIllegal) {
				t.Fatalf("expected legal transition, got %v", result.Reasons)
			}
			if !tt.legal && !hasReason(t, result, ReasonPhaseIllegal) {
				t.Fatalf("expected %s reason, got %v", ReasonPhaseIllegal, result.Reasons)
			}
		})
	}
}

func TestValidateTeleportRejected(t *testing.T) {
	prev := legalState()
	proposed := legalState()
	proposed.Player.X = prev.Player.X + 20

	result := Validate(prev, proposed, baseline())
	if !hasReason(t, result, ReasonMoveTooFar) {
		t.Fatalf("expected %s reason, got %v", ReasonMoveTooFar, result.Reasons)
	}
}

func TestValidateEnemyTeleportRejected(t *testing.T) {
	prev := legalState()
	proposed := legalState()
	proposed.Enemies[0].Y = prev.Enemies[0].Y - 15

	result := Validate(prev, proposed, baseline())
	if !hasReason(t, result, ReasonMoveTooFar) {
		t.Fatalf("expected %s reason for enemy teleport, got %v", ReasonMoveTooFar, result.Reasons)
	}
}

func TestValidateNewUnitPositionUnconstrained(t *testing.T) {
	// Units that were not in the previous state may spawn anywhere.
	prev := legalState()
	proposed := legalState()
	proposed.Enemies = append(proposed.Enemies, domain.Unit{ID: "enemy-2", EntityID: "bat", X: 40, Y: 40, HP: 10})

	result := Validate(prev, proposed, baseline())
	if hasReason(t, result, ReasonMoveTooFar) {
		t.Fatalf("spawned unit must not trip the movement check, got %v", result.Reasons)
	}
}

func TestValidateStructuralViolations(t *testing.T) {
	prev := legalState()
	proposed := legalState()
	proposed.Player.ID = ""
	proposed.Phase = "midnight"
	proposed.Enemies = append(proposed.Enemies, domain.Unit{ID: "enemy-1", HP: 10})

	result := Validate(prev, proposed, baseline())
	for _, code := range []ReasonCode{ReasonMissingPlayerID, ReasonInvalidPhase, ReasonDuplicateUnitID} {
		if !hasReason(t, result, code) {
			t.Fatalf("expected %s reason, got %v", code, result.Reasons)
		}
	}
}

func TestValidateUnitsActedRules(t *testing.T) {
	prev := legalState()
	prev.UnitsActed = []string{"player-1"}

	proposed := legalState()
	proposed.UnitsActed = []string{"ghost-unit"}

	result := Validate(prev, proposed, baseline())
	if !hasReason(t, result, ReasonUnknownActedUnit) {
		t.Fatalf("expected %s reason, got %v", ReasonUnknownActedUnit, result.Reasons)
	}
	if !hasReason(t, result, ReasonActedSetShrunk) {
		t.Fatalf("expected %s reason, got %v", ReasonActedSetShrunk, result.Reasons)
	}
}

func TestValidateAccumulatesAllViolations(t *testing.T) {
	prev := legalState()
	proposed := legalState()
	proposed.Player.HP = -10
	proposed.Turn = prev.Turn - 2
	proposed.Player.X = prev.Player.X + 30

	result := Validate(prev, proposed, baseline())
	if len(result.Reasons) < 3 {
		t.Fatalf("expected at least 3 accumulated reasons, got %v", result.Reasons)
	}
}

func TestValidateIsPure(t *testing.T) {
	prev := legalState()
	proposed := legalState()
	proposed.Player.HP = 5000
	proposed.Turn = prev.Turn - 1

	first := Validate(prev, proposed, baseline())
	second := Validate(prev, proposed, baseline())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical verdicts, got %v and %v", first, second)
	}
}

func TestResultMessages(t *testing.T) {
	prev := legalState()
	proposed := legalState()
	proposed.Player.HP = -1

	result := Validate(prev, proposed, baseline())
	messages := result.Messages()
	if len(messages) != len(result.Reasons) {
		t.Fatalf("expected %d messages, got %d", len(result.Reasons), len(messages))
	}

	if got := (Result{}).Messages(); got != nil {
		t.Fatalf("expected nil messages for clean result, got %v", got)
	}
}
