// Package api exposes the session engine over HTTP JSON.
package api

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/polargamesbr/rpg-sub006/internal/engine/cipher"
	"github.com/polargamesbr/rpg-sub006/internal/engine/service"
	apperrors "github.com/polargamesbr/rpg-sub006/internal/errors"
)

// maxBodyBytes caps request bodies; combat states are small.
const maxBodyBytes = 1 << 20

// Handler serves the engine API routes.
type Handler struct {
	service *service.Service
}

// NewHandler builds the API handler around the orchestrator.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// Routes registers every API route on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("POST /api/v1/quests", h.handleStartQuest)
	mux.HandleFunc("POST /api/v1/sessions/{uid}/key", h.handleKeyExchange)
	mux.HandleFunc("POST /api/v1/sessions/{uid}/actions", h.handleQuestAction)
	mux.HandleFunc("POST /api/v1/sessions/{uid}/complete", h.handleQuestComplete)
	mux.HandleFunc("POST /api/v1/sessions/{uid}/abandon", h.handleQuestAbandon)
	mux.HandleFunc("POST /api/v1/sessions/{uid}/battles", h.handleStartBattle)
	mux.HandleFunc("POST /api/v1/battles/{uid}/actions", h.handleBattleAction)
	mux.HandleFunc("POST /api/v1/battles/{uid}/complete", h.handleBattleComplete)
	mux.HandleFunc("POST /api/v1/battles/{uid}/abandon", h.handleBattleAbandon)
	return mux
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (h *Handler) handleStartQuest(w http.ResponseWriter, r *http.Request) {
	var req startQuestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.CodeInvalidArgument, "malformed request body", err))
		return
	}
	if req.UserID <= 0 || req.CharacterID <= 0 || req.QuestID == "" {
		writeError(w, r, apperrors.New(apperrors.CodeInvalidArgument, "user_id, character_id and quest_id are required"))
		return
	}

	result, err := h.service.StartQuest(r.Context(), service.StartQuestInput{
		UserID:      req.UserID,
		CharacterID: req.CharacterID,
		QuestID:     req.QuestID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, startQuestResponse{
		Success:    true,
		SessionUID: result.Session.SessionUID,
		State:      &result.Envelope,
	})
}

func (h *Handler) handleKeyExchange(w http.ResponseWriter, r *http.Request) {
	sessionKey, err := h.service.SessionKeyExchange(r.Context(), r.PathValue("uid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, keyExchangeResponse{
		Success: true,
		Key:     hex.EncodeToString(sessionKey.Key),
		Token:   sessionKey.Token,
	})
}

func (h *Handler) handleQuestAction(w http.ResponseWriter, r *http.Request) {
	envelope, err := decodeEnvelope(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.service.SubmitAction(r.Context(), r.PathValue("uid"), r.Header.Get(sessionTokenHeader), envelope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeActionResult(w, result)
}

func (h *Handler) handleQuestComplete(w http.ResponseWriter, r *http.Request) {
	finalEnvelope, err := decodeOptionalEnvelope(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.service.CompleteQuest(r.Context(), r.PathValue("uid"), r.Header.Get(sessionTokenHeader), finalEnvelope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeActionResult(w, result)
}

func (h *Handler) handleQuestAbandon(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.AbandonQuest(r.Context(), r.PathValue("uid"), r.Header.Get(sessionTokenHeader))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeActionResult(w, result)
}

func (h *Handler) handleStartBattle(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.StartBattle(r.Context(), r.PathValue("uid"), r.Header.Get(sessionTokenHeader))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, startBattleResponse{
		Success:   true,
		BattleUID: result.Battle.BattleUID,
		State:     &result.Envelope,
	})
}

func (h *Handler) handleBattleAction(w http.ResponseWriter, r *http.Request) {
	envelope, err := decodeEnvelope(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.service.SubmitBattleAction(r.Context(), r.PathValue("uid"), r.Header.Get(sessionTokenHeader), envelope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeActionResult(w, result)
}

func (h *Handler) handleBattleComplete(w http.ResponseWriter, r *http.Request) {
	finalEnvelope, err := decodeOptionalEnvelope(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.service.CompleteBattle(r.Context(), r.PathValue("uid"), r.Header.Get(sessionTokenHeader), finalEnvelope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeActionResult(w, result)
}

func (h *Handler) handleBattleAbandon(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.AbandonBattle(r.Context(), r.PathValue("uid"), r.Header.Get(sessionTokenHeader))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeActionResult(w, result)
}

func decodeJSON(r *http.Request, target any) error {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(target)
}

func decodeEnvelope(r *http.Request) (cipher.Envelope, error) {
	var envelope cipher.Envelope
	if err := decodeJSON(r, &envelope); err != nil {
		return cipher.Envelope{}, apperrors.Wrap(apperrors.CodeInvalidArgument, "malformed request body", err)
	}
	if envelope.Encrypted == "" || envelope.IV == "" || envelope.Tag == "" {
		return cipher.Envelope{}, apperrors.New(apperrors.CodeInvalidArgument, "encrypted, iv and tag are required")
	}
	return envelope, nil
}

// decodeOptionalEnvelope reads an envelope when the body carries one. An
// empty body is fine: lifecycle transitions may omit the final state.
func decodeOptionalEnvelope(r *http.Request) (*cipher.Envelope, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "malformed request body", err)
	}
	if len(body) == 0 {
		return nil, nil
	}
	var envelope cipher.Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "malformed request body", err)
	}
	if envelope.Encrypted == "" && envelope.IV == "" && envelope.Tag == "" {
		return nil, nil
	}
	if envelope.Encrypted == "" || envelope.IV == "" || envelope.Tag == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "encrypted, iv and tag are required")
	}
	return &envelope, nil
}

func writeActionResult(w http.ResponseWriter, result service.ActionResult) {
	response := actionResponse{
		Success:  true,
		Accepted: result.Accepted,
		Reasons:  result.Reasons,
	}
	if result.Envelope.Encrypted != "" {
		envelope := result.Envelope
		response.State = &envelope
	}
	// Validation rejections are a valid outcome, never an HTTP error.
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("msg=encode_response_failed err=%v", err)
	}
}

// writeError maps a pipeline error to its HTTP status with an opaque
// message. Internal detail stays in the logs.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.GetCode(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Printf("msg=request_failed method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, errorResponse{Success: false, Error: publicMessage(code)})
}

func publicMessage(code apperrors.Code) string {
	switch code {
	case apperrors.CodeInvalidArgument, apperrors.CodeDecryptFailed, apperrors.CodeKeyNotFound:
		// One message for every transport failure; no decryption oracle.
		return "malformed request"
	case apperrors.CodeTokenInvalid:
		return "invalid session token"
	case apperrors.CodeNotFound:
		return "session not found"
	case apperrors.CodeCharacterNotFound:
		return "character not found"
	case apperrors.CodeActiveSessionExists:
		return "an active session already exists"
	case apperrors.CodeSessionNotActive:
		return "session is not active"
	case apperrors.CodeVersionConflict:
		return "state version conflict"
	default:
		return "internal error"
	}
}
