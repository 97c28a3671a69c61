package app

import (
	"fmt"

	"triad/internal/domain"
	"triad/internal/ports"
)

// HandCommitment is fixed once per match and never mutated after the match
// transitions to active.
type HandCommitment struct {
	Slot       domain.Slot
	CardIDs    [domain.HandSize]domain.CardID
	Blinding   []byte
	Commitment []byte
}

// MoveRecord captures one applied placement together with the hash-chain
// values a move proof must reproduce. Proof stays nil until a matching
// artifact is accepted: the match state advances optimistically on placement
// while proofs catch up in the background.
type MoveRecord struct {
	MoveIndex          int
	Slot               domain.Slot
	CardID             domain.CardID
	Row, Col           int
	BoardBefore        domain.Board
	BoardAfter         domain.Board
	StartStateHash     []byte
	EndStateHash       []byte
	EncryptedNullifier []byte
	Proof              *ports.ProofArtifact
}

// Session is the authoritative per-match record owned by the coordinator.
// It carries no lock of its own: all access must be serialized by the owner
// (the relay runtime runs one match loop per game).
type Session struct {
	GameID    string
	PlayerIDs [2]string
	Live      [2]bool

	Status      domain.Status
	Match       *domain.Match
	Commitments [2]*HandCommitment
	MoveLog     []*MoveRecord
	HandProofs  [2]*ports.ProofArtifact

	// provenPairs dedupes move proof submissions by their hash transition;
	// peers legitimately relay proofs redundantly on reconnect.
	provenPairs map[string]int
	// nullifiers maps each seen encrypted nullifier to its move index for
	// duplicate-use detection.
	nullifiers map[string]int

	ProvenCount int

	Tainted     bool
	TaintReason string
}

// Slot returns the slot occupied by userID, or false.
func (s *Session) Slot(userID string) (domain.Slot, bool) {
	for slot, id := range s.PlayerIDs {
		if id != "" && id == userID {
			return domain.Slot(slot), true
		}
	}
	return 0, false
}

func pairKey(start, end []byte) string {
	return string(start) + "|" + string(end)
}

// Progress describes how close a session is to settlement eligibility.
type Progress struct {
	Commitments int  `json:"commitments"`
	HandProofs  int  `json:"hand_proofs"`
	MovesPlayed int  `json:"moves_played"`
	MoveProofs  int  `json:"move_proofs"`
	Tainted     bool `json:"tainted"`
}

func (p Progress) String() string {
	return fmt.Sprintf("%d/2 commitments, %d/2 hand proofs, %d/9 move proofs (%d moves played)",
		p.Commitments, p.HandProofs, p.MoveProofs, p.MovesPlayed)
}
