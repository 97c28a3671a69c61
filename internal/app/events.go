package app

import (
	"triad/internal/domain"
	"triad/internal/ports"
)

// EventKind identifies emitted coordinator events for adapter dispatch.
type EventKind string

const (
	EventGameCreated          EventKind = "game_created"
	EventGameJoined           EventKind = "game_joined"
	EventGameStart            EventKind = "game_start"
	EventGameState            EventKind = "game_state"
	EventMoveApplied          EventKind = "move_applied"
	EventGameOver             EventKind = "game_over"
	EventHandProofRelayed     EventKind = "hand_proof_relayed"
	EventMoveProofRelayed     EventKind = "move_proof_relayed"
	EventChainFault           EventKind = "chain_fault"
	EventOpponentDisconnected EventKind = "opponent_disconnected"
	EventOpponentReconnected  EventKind = "opponent_reconnected"
)

// Event is a coordinator event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast to both peers
}

type GameCreatedPayload struct {
	GameID string      `json:"game_id"`
	Slot   domain.Slot `json:"slot"`
}

type GameJoinedPayload struct {
	GameID string      `json:"game_id"`
	Slot   domain.Slot `json:"slot"`
	State  StateView   `json:"state"`
}

type GameStartPayload struct {
	GameID string    `json:"game_id"`
	State  StateView `json:"state"`
}

type GameStatePayload struct {
	State    StateView        `json:"state"`
	Captures []domain.CellRef `json:"captures"`
}

type MoveAppliedPayload struct {
	State     StateView        `json:"state"`
	Captures  []domain.CellRef `json:"captures"`
	MoveIndex int              `json:"move_index"`
	Slot      domain.Slot      `json:"slot"`
}

type GameOverPayload struct {
	State  StateView     `json:"state"`
	Winner domain.Winner `json:"winner"`
}

type HandProofRelayedPayload struct {
	Proof    ports.ProofArtifact `json:"proof"`
	FromSlot domain.Slot         `json:"from_slot"`
}

type MoveProofRelayedPayload struct {
	Proof     ports.ProofArtifact `json:"proof"`
	MoveIndex int                 `json:"move_index"`
	FromSlot  domain.Slot         `json:"from_slot"`
}

type ChainFaultPayload struct {
	GameID    string `json:"game_id"`
	MoveIndex int    `json:"move_index"` // -1 for hand proofs
	Reason    string `json:"reason"`
}

type OpponentDisconnectedPayload struct {
	GameID string      `json:"game_id"`
	Slot   domain.Slot `json:"slot"`
}

type OpponentReconnectedPayload struct {
	GameID string      `json:"game_id"`
	Slot   domain.Slot `json:"slot"`
}

// StateView is the relayed snapshot of a match: each peer's local view is a
// read-mostly mirror updated only via these deltas.
type StateView struct {
	Board  domain.Board  `json:"board"`
	Hands  [2]int        `json:"hand_counts"`
	Turn   domain.Slot   `json:"turn"`
	Scores [2]int        `json:"scores"`
	Status domain.Status `json:"status"`
	Winner domain.Winner `json:"winner"`
}

// NewStateView snapshots a match for relay. Hand contents are not exposed;
// peers only learn counts.
func NewStateView(m *domain.Match) StateView {
	return StateView{
		Board:  m.Board,
		Hands:  [2]int{len(m.Hands[domain.SlotA]), len(m.Hands[domain.SlotB])},
		Turn:   m.Turn,
		Scores: m.Scores,
		Status: m.Status,
		Winner: m.Winner,
	}
}
