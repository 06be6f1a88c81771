// Package service orchestrates the session engine: it owns the
// decrypt, validate, persist, re-encrypt pipeline and the session
// lifecycle around it.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/polargamesbr/rpg-sub006/internal/engine/cipher"
	"github.com/polargamesbr/rpg-sub006/internal/engine/domain"
	"github.com/polargamesbr/rpg-sub006/internal/engine/keyring"
	"github.com/polargamesbr/rpg-sub006/internal/engine/storage"
	"github.com/polargamesbr/rpg-sub006/internal/engine/telemetry"
	"github.com/polargamesbr/rpg-sub006/internal/engine/token"
	apperrors "github.com/polargamesbr/rpg-sub006/internal/errors"
	"github.com/polargamesbr/rpg-sub006/internal/platform/id"
)

const tracerName = "engine/service"

// ReasonVersionConflict is returned as a retryable rejection when a
// concurrent write landed first. The response carries the freshly loaded
// state so the client can rebase and resubmit.
const ReasonVersionConflict = "STATE_VERSION_CONFLICT: a concurrent update was accepted first; retry from the returned state"

// Service runs the session engine pipeline over injected stores and keys.
type Service struct {
	quests     storage.QuestSessionStore
	battles    storage.BattleSessionStore
	characters storage.CharacterStore
	keys       *keyring.Manager
	signer     *token.Signer
	emitter    *telemetry.Emitter
	tracer     trace.Tracer

	now         func() time.Time
	idGenerator func() (string, error)
}

// Config collects the dependencies of a Service.
type Config struct {
	Quests     storage.QuestSessionStore
	Battles    storage.BattleSessionStore
	Characters storage.CharacterStore
	Keys       *keyring.Manager
	Signer     *token.Signer
	Emitter    *telemetry.Emitter

	// Now and IDGenerator are injectable for tests; nil uses the defaults.
	Now         func() time.Time
	IDGenerator func() (string, error)
}

// New builds a Service from its dependencies.
func New(cfg Config) (*Service, error) {
	if cfg.Quests == nil {
		return nil, fmt.Errorf("quest session store is required")
	}
	if cfg.Battles == nil {
		return nil, fmt.Errorf("battle session store is required")
	}
	if cfg.Characters == nil {
		return nil, fmt.Errorf("character store is required")
	}
	if cfg.Keys == nil {
		return nil, fmt.Errorf("key manager is required")
	}
	if cfg.Signer == nil {
		return nil, fmt.Errorf("token signer is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = id.NewID
	}
	return &Service{
		quests:      cfg.Quests,
		battles:     cfg.Battles,
		characters:  cfg.Characters,
		keys:        cfg.Keys,
		signer:      cfg.Signer,
		emitter:     cfg.Emitter,
		tracer:      otel.Tracer(tracerName),
		now:         cfg.Now,
		idGenerator: cfg.IDGenerator,
	}, nil
}

// ActionPayload is the plaintext carried inside a request envelope.
type ActionPayload struct {
	Action string             `json:"action"`
	State  domain.CombatState `json:"state"`
}

// ActionResult is the outcome of one submitted action. The envelope always
// carries the authoritative state: the new one when accepted, the previous
// one when rejected.
type ActionResult struct {
	Envelope cipher.Envelope
	Accepted bool
	Reasons  []string
}

// decodeActionPayload parses a decrypted request plaintext. Failures here
// are transport errors, not validation rejections.
func decodeActionPayload(plaintext []byte) (ActionPayload, error) {
	var payload ActionPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return ActionPayload{}, apperrors.Wrap(apperrors.CodeInvalidArgument, "malformed action payload", err)
	}
	return payload, nil
}

// sealState encrypts a combat state under a session key.
func sealState(key []byte, state domain.CombatState) (cipher.Envelope, error) {
	raw, err := domain.EncodeCombatState(state)
	if err != nil {
		return cipher.Envelope{}, err
	}
	return cipher.Encrypt(key, raw)
}

// rejectionDetail renders the audit payload for a rejected update.
func rejectionDetail(action string, reasons []string) []byte {
	detail, err := json.Marshal(struct {
		Action  string   `json:"action,omitempty"`
		Reasons []string `json:"reasons"`
	}{Action: action, Reasons: reasons})
	if err != nil {
		return nil
	}
	return detail
}

func (s *Service) startSpan(ctx context.Context, name, sessionUID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("engine.session_uid", sessionUID),
	))
}
