package domain

import (
	"testing"
)

func TestDecodeCombatState(t *testing.T) {
	raw := []byte(`{
		"player": {"id":"char-7","entityId":"char-7","x":1,"y":2,"hp":80,"sp":10,"hasMoved":true,"facingRight":false},
		"allies": [{"id":"ally-1","entityId":"npc-3","x":0,"y":0,"hp":40}],
		"enemies": [{"id":"enemy-1","entityId":"mob-9","x":5,"y":5,"hp":30}],
		"turn": 3,
		"phase": "enemy",
		"unitsActed": ["char-7"],
		"futureField": {"ignored": true}
	}`)

	state, err := DecodeCombatState(raw)
	if err != nil {
		t.Fatalf("DecodeCombatState() error = %v", err)
	}
	if state.Player.ID != "char-7" || state.Player.HP != 80 {
		t.Errorf("player = %+v", state.Player)
	}
	if state.Player.SP == nil || *state.Player.SP != 10 {
		t.Errorf("player SP = %v, want 10", state.Player.SP)
	}
	// Missing sp stays nil; a unit without a mana pool is not a zeroed one.
	if state.Allies[0].SP != nil {
		t.Errorf("ally SP = %v, want nil", state.Allies[0].SP)
	}
	if state.Turn != 3 || state.Phase != PhaseEnemy {
		t.Errorf("turn/phase = %d/%s", state.Turn, state.Phase)
	}
	if len(state.UnitsActed) != 1 || state.UnitsActed[0] != "char-7" {
		t.Errorf("UnitsActed = %v", state.UnitsActed)
	}
}

func TestDecodeCombatStateEmpty(t *testing.T) {
	for _, raw := range [][]byte{nil, {}, []byte("   ")} {
		if _, err := DecodeCombatState(raw); err == nil {
			t.Fatalf("DecodeCombatState(%q) error = nil, want error", raw)
		}
	}
}

func TestDecodeCombatStateMalformed(t *testing.T) {
	if _, err := DecodeCombatState([]byte(`{"player":`)); err == nil {
		t.Fatal("DecodeCombatState(truncated) error = nil, want error")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sp := 15
	state := CombatState{
		Player:     Unit{ID: "char-7", EntityID: "char-7", X: 3, Y: 4, HP: 77, SP: &sp, HasMoved: true, FacingRight: true},
		Allies:     []Unit{},
		Enemies:    []Unit{{ID: "enemy-1", EntityID: "mob-9", X: 9, Y: 9, HP: 12}},
		Turn:       2,
		Phase:      PhasePlayer,
		UnitsActed: []string{"char-7"},
	}

	raw, err := EncodeCombatState(state)
	if err != nil {
		t.Fatalf("EncodeCombatState() error = %v", err)
	}
	decoded, err := DecodeCombatState(raw)
	if err != nil {
		t.Fatalf("DecodeCombatState() error = %v", err)
	}
	if decoded.Player.ID != "char-7" || decoded.Player.X != 3 || decoded.Player.HP != 77 {
		t.Errorf("player round trip = %+v", decoded.Player)
	}
	if decoded.Player.SP == nil || *decoded.Player.SP != sp {
		t.Errorf("player SP round trip = %v, want %d", decoded.Player.SP, sp)
	}
	if decoded.Turn != 2 || decoded.Phase != PhasePlayer {
		t.Errorf("turn/phase round trip = %d/%s", decoded.Turn, decoded.Phase)
	}
}

func TestNewInitialCombatState(t *testing.T) {
	baseline := CharacterBaseline{CharacterID: 7, MaxHP: 120, MaxMana: 40, MoveRange: 3}
	state := NewInitialCombatState("char-7", baseline)

	if state.Player.HP != 120 {
		t.Errorf("HP = %d, want 120", state.Player.HP)
	}
	if state.Player.SP == nil || *state.Player.SP != 40 {
		t.Errorf("SP = %v, want 40", state.Player.SP)
	}
	if state.Turn != 0 || state.Phase != PhasePlayer {
		t.Errorf("turn/phase = %d/%s, want 0/player", state.Turn, state.Phase)
	}
	if len(state.Allies) != 0 || len(state.Enemies) != 0 || len(state.UnitsActed) != 0 {
		t.Error("initial state is not empty of extras")
	}
}

func TestUnitsIncludesEveryCombatant(t *testing.T) {
	state := CombatState{
		Player:  Unit{ID: "p"},
		Allies:  []Unit{{ID: "a1"}, {ID: "a2"}},
		Enemies: []Unit{{ID: "e1"}},
	}
	units := state.Units()
	if len(units) != 4 {
		t.Fatalf("Units() len = %d, want 4", len(units))
	}
	if units[0].ID != "p" {
		t.Errorf("Units()[0] = %q, want player first", units[0].ID)
	}
}

func TestPhaseValid(t *testing.T) {
	if !PhasePlayer.Valid() || !PhaseEnemy.Valid() {
		t.Error("known phases reported invalid")
	}
	if Phase("midnight").Valid() {
		t.Error("unknown phase reported valid")
	}
}
