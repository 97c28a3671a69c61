package nakama

import (
	"triad/internal/app"
	"triad/internal/domain"
	"triad/internal/ports"
	"triad/internal/settle"
)

// Client request payloads. All byte fields travel base64-encoded in JSON.

type CommitHandRequest struct {
	CardIDs  [domain.HandSize]domain.CardID `json:"card_ids"`
	Blinding []byte                         `json:"blinding"`
}

type PlaceCardRequest struct {
	HandIndex          int    `json:"hand_index"`
	Row                int    `json:"row"`
	Col                int    `json:"col"`
	MoveNumber         int    `json:"move_number"`
	EncryptedNullifier []byte `json:"encrypted_nullifier"`
}

type SubmitHandProofRequest struct {
	Proof ports.ProofArtifact `json:"proof"`
}

type SubmitMoveProofRequest struct {
	MoveIndex int                 `json:"move_index"`
	Proof     ports.ProofArtifact `json:"proof"`
}

type RequestSettlementRequest struct {
	PrizeCardID domain.CardID `json:"prize_card_id"`
}

// Server payloads without an app-layer event behind them.

type SettlementReadyPayload struct {
	GameID      string         `json:"game_id"`
	Ticket      string         `json:"ticket"`
	BundleSha   string         `json:"bundle_sha"`
	Winner      domain.Slot    `json:"winner"`
	PrizeCardID domain.CardID  `json:"prize_card_id"`
	Bundle      *settle.Bundle `json:"bundle"`
}

type StatusSnapshotPayload struct {
	GameID   string         `json:"game_id"`
	State    *app.StateView `json:"state,omitempty"` // nil until both hands are committed
	Progress string         `json:"progress"`
	Tainted  bool           `json:"tainted"`
}

type GameErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
