package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/polargamesbr/rpg-sub006/internal/engine/cipher"
	"github.com/polargamesbr/rpg-sub006/internal/engine/domain"
	"github.com/polargamesbr/rpg-sub006/internal/engine/keyring"
	"github.com/polargamesbr/rpg-sub006/internal/engine/storage"
	"github.com/polargamesbr/rpg-sub006/internal/engine/validate"
	apperrors "github.com/polargamesbr/rpg-sub006/internal/errors"
)

// StartQuestInput identifies the owner of a new quest session.
type StartQuestInput struct {
	UserID      int64
	CharacterID int64
	QuestID     string
}

// StartQuestResult is the created session plus its sealed initial state.
type StartQuestResult struct {
	Session  domain.QuestSession
	Envelope cipher.Envelope
}

// StartQuest creates an active quest session seeded from the character's
// trusted baseline and returns the initial state sealed under a fresh
// session key.
func (s *Service) StartQuest(ctx context.Context, input StartQuestInput) (StartQuestResult, error) {
	ctx, span := s.startSpan(ctx, "StartQuest", "")
	defer span.End()

	baseline, err := s.characters.GetCharacterBaseline(ctx, input.CharacterID)
	if err != nil {
		return StartQuestResult{}, err
	}

	playerUnitID := fmt.Sprintf("char-%d", input.CharacterID)
	initial := domain.NewInitialCombatState(playerUnitID, baseline)
	stateJSON, err := domain.EncodeCombatState(initial)
	if err != nil {
		return StartQuestResult{}, err
	}

	session, err := domain.CreateQuestSession(domain.CreateQuestSessionInput{
		UserID:      input.UserID,
		CharacterID: input.CharacterID,
		QuestID:     input.QuestID,
		StateJSON:   stateJSON,
	}, s.now, s.idGenerator)
	if err != nil {
		return StartQuestResult{}, err
	}

	if err := s.quests.CreateQuestSession(ctx, session); err != nil {
		return StartQuestResult{}, err
	}

	sessionKey, err := s.keys.Generate(session.SessionUID)
	if err != nil {
		return StartQuestResult{}, err
	}
	envelope, err := cipher.Encrypt(sessionKey.Key, stateJSON)
	if err != nil {
		return StartQuestResult{}, err
	}

	if err := s.emitter.Emit(ctx, storage.EngineEvent{
		SessionUID: session.SessionUID,
		Severity:   storage.SeverityInfo,
		Name:       "quest.started",
		DetailJSON: []byte(fmt.Sprintf(`{"questId":%q}`, session.QuestID)),
	}); err != nil {
		log.Printf("msg=emit_event_failed event=quest.started session=%s err=%v", session.SessionUID, err)
	}

	return StartQuestResult{Session: session, Envelope: envelope}, nil
}

// SessionKeyExchange returns the symmetric key and token for an active quest
// session, generating them on the first call.
func (s *Service) SessionKeyExchange(ctx context.Context, sessionUID string) (keyring.SessionKey, error) {
	ctx, span := s.startSpan(ctx, "SessionKeyExchange", sessionUID)
	defer span.End()

	session, err := s.quests.GetQuestSession(ctx, sessionUID)
	if err != nil {
		return keyring.SessionKey{}, err
	}
	if session.Status != domain.SessionStatusActive {
		return keyring.SessionKey{}, storage.ErrSessionNotActive
	}
	return s.keys.Generate(session.SessionUID)
}

// SubmitAction runs the engine pipeline for one quest session update:
// decrypt, validate against the stored state, persist on acceptance, and
// seal the authoritative state for the response. Rejections persist nothing
// and return the previous state with the violated rules.
func (s *Service) SubmitAction(ctx context.Context, sessionUID, sessionToken string, envelope cipher.Envelope) (ActionResult, error) {
	ctx, span := s.startSpan(ctx, "SubmitAction", sessionUID)
	defer span.End()

	if err := s.signer.Verify(sessionToken, sessionUID); err != nil {
		return ActionResult{}, err
	}
	sessionKey, err := s.keys.Get(sessionUID)
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

	session, err := s.quests.GetQuestSession(ctx, sessionUID)
	if err != nil {
		return ActionResult{}, err
	}
	if session.Status != domain.SessionStatusActive {
		return ActionResult{}, storage.ErrSessionNotActive
	}

	prev, err := domain.DecodeCombatState(session.StateJSON)
	if err != nil {
		return ActionResult{}, apperrors.Wrap(apperrors.CodeStorageFailure, "stored state is unreadable", err)
	}
	baseline, err := s.characters.GetCharacterBaseline(ctx, session.CharacterID)
	if err != nil {
		return ActionResult{}, err
	}

	result := validate.Validate(prev, payload.State, baseline)
	if !result.OK() {
		return s.rejectQuestAction(ctx, session, sessionKey.Key, payload.Action, prev, result.Messages())
	}

	stateJSON, err := domain.EncodeCombatState(payload.State)
	if err != nil {
		return ActionResult{}, err
	}
	err = s.quests.UpdateQuestState(ctx, session.SessionUID, stateJSON, session.StateVersion, s.now().UTC())
	if errors.Is(err, storage.ErrVersionConflict) {
		// Another writer won; hand the fresh state back as a retryable rejection.
		fresh, loadErr := s.quests.GetQuestSession(ctx, session.SessionUID)
		if loadErr != nil {
			return ActionResult{}, loadErr
		}
		freshState, decodeErr := domain.DecodeCombatState(fresh.StateJSON)
		if decodeErr != nil {
			return ActionResult{}, apperrors.Wrap(apperrors.CodeStorageFailure, "stored state is unreadable", decodeErr)
		}
		return s.rejectQuestAction(ctx, session, sessionKey.Key, payload.Action, freshState, []string{ReasonVersionConflict})
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

// rejectQuestAction seals the authoritative state for a rejected update and
// records the violation for forensics.
func (s *Service) rejectQuestAction(ctx context.Context, session domain.QuestSession, key []byte, action string, authoritative domain.CombatState, reasons []string) (ActionResult, error) {
	if err := s.emitter.Emit(ctx, storage.EngineEvent{
		SessionUID: session.SessionUID,
		Severity:   storage.SeverityWarn,
		Name:       "action.rejected",
		DetailJSON: rejectionDetail(action, reasons),
	}); err != nil {
		log.Printf("msg=emit_event_failed event=action.rejected session=%s err=%v", session.SessionUID, err)
	}
	log.Printf("msg=action_rejected session=%s reasons=%d", session.SessionUID, len(reasons))

	sealed, err := sealState(key, authoritative)
	if err != nil {
		return ActionResult{}, err
	}
	return ActionResult{Envelope: sealed, Accepted: false, Reasons: reasons}, nil
}

// CompleteQuest closes a quest session as completed. A final envelope, when
// provided, is decrypted and validated before it is persisted with the
// transition; an invalid final state leaves the session open.
func (s *Service) CompleteQuest(ctx context.Context, sessionUID, sessionToken string, finalEnvelope *cipher.Envelope) (ActionResult, error) {
	return s.closeQuest(ctx, sessionUID, sessionToken, finalEnvelope, domain.SessionStatusCompleted)
}

// AbandonQuest closes a quest session as abandoned. No final state is taken:
// an abandoning client has nothing authoritative to contribute.
func (s *Service) AbandonQuest(ctx context.Context, sessionUID, sessionToken string) (ActionResult, error) {
	return s.closeQuest(ctx, sessionUID, sessionToken, nil, domain.SessionStatusAbandoned)
}

func (s *Service) closeQuest(ctx context.Context, sessionUID, sessionToken string, finalEnvelope *cipher.Envelope, status domain.SessionStatus) (ActionResult, error) {
	ctx, span := s.startSpan(ctx, "CloseQuest", sessionUID)
	defer span.End()

	if err := s.signer.Verify(sessionToken, sessionUID); err != nil {
		return ActionResult{}, err
	}

	session, err := s.quests.GetQuestSession(ctx, sessionUID)
	if err != nil {
		return ActionResult{}, err
	}
	if session.Status != domain.SessionStatusActive {
		return ActionResult{}, storage.ErrSessionNotActive
	}

	var finalState []byte
	if finalEnvelope != nil {
		sessionKey, err := s.keys.Get(sessionUID)
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
		prev, err := domain.DecodeCombatState(session.StateJSON)
		if err != nil {
			return ActionResult{}, apperrors.Wrap(apperrors.CodeStorageFailure, "stored state is unreadable", err)
		}
		baseline, err := s.characters.GetCharacterBaseline(ctx, session.CharacterID)
		if err != nil {
			return ActionResult{}, err
		}
		if result := validate.Validate(prev, payload.State, baseline); !result.OK() {
			return s.rejectQuestAction(ctx, session, sessionKey.Key, payload.Action, prev, result.Messages())
		}
		finalState, err = domain.EncodeCombatState(payload.State)
		if err != nil {
			return ActionResult{}, err
		}
	}

	if err := s.quests.CloseQuestSession(ctx, sessionUID, status, finalState, s.now().UTC()); err != nil {
		return ActionResult{}, err
	}
	s.keys.Remove(sessionUID)

	if err := s.emitter.Emit(ctx, storage.EngineEvent{
		SessionUID: sessionUID,
		Severity:   storage.SeverityInfo,
		Name:       "quest." + status.String(),
	}); err != nil {
		log.Printf("msg=emit_event_failed event=quest.%s session=%s err=%v", status, sessionUID, err)
	}
	return ActionResult{Accepted: true}, nil
}
