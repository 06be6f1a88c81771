package api

import "github.com/polargamesbr/rpg-sub006/internal/engine/cipher"

// sessionTokenHeader carries the token issued at key exchange.
const sessionTokenHeader = "X-Session-Token"

type startQuestRequest struct {
	UserID      int64  `json:"user_id"`
	CharacterID int64  `json:"character_id"`
	QuestID     string `json:"quest_id"`
}

type startQuestResponse struct {
	Success    bool             `json:"success"`
	SessionUID string           `json:"session_uid"`
	State      *cipher.Envelope `json:"state"`
}

type keyExchangeResponse struct {
	Success bool   `json:"success"`
	Key     string `json:"key"` // hex-encoded
	Token   string `json:"token"`
}

type actionResponse struct {
	Success  bool             `json:"success"`
	Accepted bool             `json:"accepted"`
	Reasons  []string         `json:"reasons,omitempty"`
	State    *cipher.Envelope `json:"state,omitempty"`
}

type startBattleResponse struct {
	Success   bool             `json:"success"`
	BattleUID string           `json:"battle_uid"`
	State     *cipher.Envelope `json:"state"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
