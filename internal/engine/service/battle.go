package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/polargamesbr/rpg-sub006/internal/engine/cipher"
	"github.com/polargamesbr/rpg-sub006/internal/engine/domain"
	"github.com/polargamesbr/rpg-sub006/internal/engine/storage"
	"github.com/polargamesbr/rpg-sub006/internal/engine/validate"
	apperrors "github.com/polargamesbr/rpg-sub006/internal/errors"
)

// StartBattleResult is the created battle plus its sealed initial state.
type StartBattleResult struct {
	Battle   domain.BattleSession
	Envelope cipher.Envelope
}

// StartBattle opens a battle sub-session under an active quest session.
// Battle payloads travel under the parent quest session's key; no new key is
// exchanged.
func (s *Service) StartBattle(ctx context.Context, questSessionUID, sessionToken string) (StartBattleResult, error) {
	ctx, span := s.startSpan(ctx, "StartBattle", questSessionUID)
	defer span.End()

	if err := s.signer.Verify(sessionToken, questSessionUID); err != nil {
		return StartBattleResult{}, err
	}

	quest, err := s.quests.GetQuestSession(ctx, questSessionUID)
	if err != nil {
		return StartBattleResult{}, err
	}
	if quest.Status != domain.SessionStatusActive {
		return StartBattleResult{}, storage.ErrSessionNotActive
	}
	sessionKey, err := s.keys.Get(questSessionUID)
	if err != nil {
		return StartBattleResult{}, err
	}

	baseline, err := s.characters.GetCharacterBaseline(ctx, quest.CharacterID)
	if err != nil {
		return StartBattleResult{}, err
	}
	playerUnitID := fmt.Sprintf("char-%d", quest.CharacterID)
	initial := domain.NewInitialCombatState(playerUnitID, baseline)
	stateJSON, err := domain.EncodeCombatState(initial)
	if err != nil {
		return StartBattleResult{}, err
	}

	battle, err := domain.CreateBattleSession(questSessionUID, stateJSON, s.now, s.idGenerator)
	if err != nil {
		return StartBattleResult{}, err
	}
	if err := s.battles.CreateBattleSession(ctx, battle); err != nil {
		return StartBattleResult{}, err
	}

	envelope, err := cipher.Encrypt(sessionKey.Key, stateJSON)
	if err != nil {
		return StartBattleResult{}, err
	}

	if err := s.emitter.Emit(ctx, storage.EngineEvent{
		SessionUID: questSessionUID,
		BattleUID:  battle.BattleUID,
		Severity:   storage.SeverityInfo,
		Name:       "battle.started",
	}); err != nil {
		log.Printf("msg=emit_event_failed event=battle.started battle=%s err=%v", battle.BattleUID, err)
	}

	return StartBattleResult{Battle: battle, Envelope: envelope}, nil
}

// SubmitBattleAction runs the engine pipeline for one battle update. The
// session token and envelope key are the parent quest session's.
func (s *Service) SubmitBattleAction(ctx context.Context, battleUID, sessionToken string, envelope cipher.Envelope) (ActionResult, error) {
	ctx, span := s.startSpan(ctx, "SubmitBattleAction", battleUID)
	defer span.End()

	battle, err := s.battles.GetBattleSession(ctx, battleUID)
	if err != nil {
		return ActionResult{}, err
	}
	if err := s.signer.Verify(sessionToken, battle.QuestSessionUID); err != nil {
		return ActionResult{}, err
	}
	if battle.Status != domain.SessionStatusActive {
		return ActionResult{}, storage.ErrSessionNotActive
	}

	sessionKey, err := s.keys.Get(battle.QuestSessionUID)
	if err != nil {
		return ActionResult{}, err
	}
	plaintext, err := cipher.Decrypt(sessionKey.Key, envelope)
	if err != nil {
		return ActionResult{}, err
	}
	payload, err := decodeActionPayload(plaintext)
	if err != nil {
		return ActionResult{}, err
	}

	prev, err := domain.DecodeCombatState(battle.StateJSON)
	if err != nil {
		return ActionResult{}, apperrors.Wrap(apperrors.CodeStorageFailure, "stored state is unreadable", err)
	}

	quest, err := s.quests.GetQuestSession(ctx, battle.QuestSessionUID)
	if err != nil {
		return ActionResult{}, err
	}
	baseline, err := s.characters.GetCharacterBaseline(ctx, quest.CharacterID)
	if err != nil {
		return ActionResult{}, err
	}

	result := validate.Validate(prev, payload.State, baseline)
	if !result.OK() {
		return s.rejectBattleAction(ctx, battle, sessionKey.Key, payload.Action, prev, result.Messages())
	}

	stateJSON, err := domain.EncodeCombatState(payload.State)
	if err != nil {
		return ActionResult{}, err
	}
	err = s.battles.UpdateBattleState(ctx, battle.BattleUID, stateJSON, battle.StateVersion, s.now().UTC())
	if errors.Is(err, storage.ErrVersionConflict) {
		fresh, loadErr := s.battles.GetBattleSession(ctx, battle.BattleUID)
		if loadErr != nil {
			return ActionResult{}, loadErr
		}
		freshState, decodeErr := domain.DecodeCombatState(fresh.StateJSON)
		if decodeErr != nil {
			return ActionResult{}, apperrors.Wrap(apperrors.CodeStorageFailure, "stored state is unreadable", decodeErr)
		}
		return s.rejectBattleAction(ctx, battle, sessionKey.Key, payload.Action, freshState, []string{ReasonVersionConflict})
	}
	if err != nil {
		return ActionResult{}, err
	}

	sealed, err := cipher.Encrypt(sessionKey.Key, stateJSON)
	if err != nil {
		return ActionResult{}, err
	}
	return ActionResult{Envelope: sealed, Accepted: true}, nil
}

func (s *Service) rejectBattleAction(ctx context.Context, battle domain.BattleSession, key []byte, action string, authoritative domain.CombatState, reasons []string) (ActionResult, error) {
	if err := s.emitter.Emit(ctx, storage.EngineEvent{
		SessionUID: battle.QuestSessionUID,
		BattleUID:  battle.BattleUID,
		Severity:   storage.SeverityWarn,
		Name:       "action.rejected",
		DetailJSON: rejectionDetail(action, reasons),
	}); err != nil {
		log.Printf("msg=emit_event_failed event=action.rejected battle=%s err=%v", battle.BattleUID, err)
	}
	log.Printf("msg=action_rejected battle=%s reasons=%d", battle.BattleUID, len(reasons))

	sealed, err := sealState(key, authoritative)
	if err != nil {
		return ActionResult{}, err
	}
	return ActionResult{Envelope: sealed, Accepted: false, Reasons: reasons}, nil
}

// CompleteBattle closes a battle as completed, optionally persisting a
// validated final state with the transition.
func (s *Service) CompleteBattle(ctx context.Context, battleUID, sessionToken string, finalEnvelope *cipher.Envelope) (ActionResult, error) {
	return s.closeBattle(ctx, battleUID, sessionToken, finalEnvelope, domain.SessionStatusCompleted)
}

// AbandonBattle closes a battle as abandoned.
func (s *Service) AbandonBattle(ctx context.Context, battleUID, sessionToken string) (ActionResult, error) {
	return s.closeBattle(ctx, battleUID, sessionToken, nil, domain.SessionStatusAbandoned)
}

func (s *Service) closeBattle(ctx context.Context, battleUID, sessionToken string, finalEnvelope *cipher.Envelope, status domain.SessionStatus) (ActionResult, error) {
	ctx, span := s.startSpan(ctx, "CloseBattle", battleUID)
	defer span.End()

	battle, err := s.battles.GetBattleSession(ctx, battleUID)
	if err != nil {
		return ActionResult{}, err
	}
	if err := s.signer.Verify(sessionToken, battle.QuestSessionUID); err != nil {
		return ActionResult{}, err
	}
	if battle.Status != domain.SessionStatusActive {
		return ActionResult{}, storage.ErrSessionNotActive
	}

	var finalState []byte
	if finalEnvelope != nil {
		sessionKey, err := s.keys.Get(battle.QuestSessionUID)
		if err != nil {
			return ActionResult{}, err
		}
		plaintext, err := cipher.Decrypt(sessionKey.Key, *finalEnvelope)
		if err != nil {
			return ActionResult{}, err
		}
		payload, err := decodeActionPayload(plaintext)
		if err != nil {
			return ActionResult{}, err
		}
		prev, err := domain.DecodeCombatState(battle.StateJSON)
		if err != nil {
			return ActionResult{}, apperrors.Wrap(apperrors.CodeStorageFailure, "stored state is unreadable", err)
		}
		quest, err := s.quests.GetQuestSession(ctx, battle.QuestSessionUID)
		if err != nil {
			return ActionResult{}, err
		}
		baseline, err := s.characters.GetCharacterBaseline(ctx, quest.CharacterID)
		if err != nil {
			return ActionResult{}, err
		}
		if result := validate.Validate(prev, payload.State, baseline); !result.OK() {
			return s.rejectBattleAction(ctx, battle, sessionKey.Key, payload.Action, prev, result.Messages())
		}
		finalState, err = domain.EncodeCombatState(payload.State)
		if err != nil {
			return ActionResult{}, err
		}
	}

	if err := s.battles.CloseBattleSession(ctx, battleUID, status, finalState, s.now().UTC()); err != nil {
		return ActionResult{}, err
	}
	// The envelope key belongs to the parent quest session and outlives the
	// battle.

	if err := s.emitter.Emit(ctx, storage.EngineEvent{
		SessionUID: battle.QuestSessionUID,
		BattleUID:  battleUID,
		Severity:   storage.SeverityInfo,
		Name:       "battle." + status.String(),
	}); err != nil {
		log.Printf("msg=emit_event_failed event=battle.%s battle=%s err=%v", status, battleUID, err)
	}
	return ActionResult{Accepted: true}, nil
}
