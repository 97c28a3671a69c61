package ports

import (
	"context"

	"triad/internal/domain"
)

// ProofArtifact is the opaque output of the external proving engine plus its
// ordered declared public outputs. The core never inspects the proof bytes;
// it validates only that the declared outputs equal its own locally computed
// commitment, state-hash and nullifier values.
type ProofArtifact struct {
	Proof         []byte   `json:"proof"`
	PublicOutputs [][]byte `json:"public_outputs"`
}

// Declared public output slots for hand proofs, in order.
const (
	HandOutCommitment = iota
	HandOutSlot
	HandOutGameTag
	HandOutCardCount
	HandOutVersion
	HandOutCount
)

// Declared public output slots for move proofs, in order.
const (
	MoveOutStartHash = iota
	MoveOutEndHash
	MoveOutNullifier
	MoveOutIndex
	MoveOutRow
	MoveOutCol
	MoveOutSlot
	MoveOutCount
)

// HandWitness is the private input for a hand proof.
type HandWitness struct {
	GameID     string
	Slot       domain.Slot
	CardIDs    [domain.HandSize]domain.CardID
	Blinding   []byte
	Commitment []byte
}

// MoveWitness is the private input for a move proof.
type MoveWitness struct {
	GameID             string
	Slot               domain.Slot
	MoveIndex          int
	CardID             domain.CardID
	Row, Col           int
	BoardBefore        domain.Board
	BoardAfter         domain.Board
	StartStateHash     []byte
	EndStateHash       []byte
	EncryptedNullifier []byte
}

// Prover is the external proving engine contract. Implementations are
// heavyweight, stateful and CPU-bound; callers must serialize access per
// player. A call may take tens of seconds and honors ctx cancellation.
type Prover interface {
	ProveHand(ctx context.Context, w HandWitness) (ProofArtifact, error)
	ProveMove(ctx context.Context, w MoveWitness) (ProofArtifact, error)
}
