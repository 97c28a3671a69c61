// Package commit implements the cryptographic chaining scheme for a match:
// hand commitments, per-move state hashes and encrypted nullifiers. It
// depends only on the rules engine's state encoding; every hash here must be
// bit-for-bit reproducible by the external proving engine.
package commit

import (
	"crypto/rand"
	"encoding/binary"
	"errors"

	"go.dedis.ch/kyber/v4/suites"

	"triad/internal/domain"
)

var suite suites.Suite = suites.MustFind("Ed25519")

// Domain separation tags. Changing any of these is a breaking change for
// every verifier and circuit that reproduces the hashes.
const (
	handCommitTag = "triad/hand-commit/v1"
	stateHashTag  = "triad/state-hash/v1"
	nullifierTag  = "triad/nullifier-mask/v1"
	gameTagTag    = "triad/game-tag/v1"
)

// BlindingSize is the required length of a hand commitment blinding factor.
const BlindingSize = 32

var ErrBadBlinding = errors.New("blinding factor must be 32 bytes")

// NewBlinding returns a fresh high-entropy blinding factor.
func NewBlinding() ([]byte, error) {
	b := make([]byte, BlindingSize)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// CommitHand computes the binding commitment to a hand: a suite hash over the
// five card identifiers and the blinding factor. The same inputs always yield
// the same hash; without the blinding factor the card identities are hidden.
func CommitHand(cardIDs [domain.HandSize]domain.CardID, blinding []byte) ([]byte, error) {
	if len(blinding) != BlindingSize {
		return nil, ErrBadBlinding
	}
	h := suite.Hash()
	h.Write([]byte(handCommitTag))
	for _, id := range cardIDs {
		h.Write(EncodeUint32(uint32(id)))
	}
	h.Write(blinding)
	return h.Sum(nil), nil
}

// StateHash computes the deterministic hash of a game state: the flattened
// board (per cell: card id then owner code, row-major), both scores and the
// turn indicator, every field fixed-width big-endian.
func StateHash(board *domain.Board, scores [2]int, turn domain.Slot) []byte {
	h := suite.Hash()
	h.Write([]byte(stateHashTag))
	for r := 0; r < domain.BoardSize; r++ {
		for c := 0; c < domain.BoardSize; c++ {
			cell := board[r][c]
			h.Write(EncodeUint32(uint32(cell.CardID)))
			h.Write([]byte{byte(cell.Owner)})
		}
	}
	h.Write(EncodeUint32(uint32(scores[domain.SlotA])))
	h.Write(EncodeUint32(uint32(scores[domain.SlotB])))
	h.Write([]byte{byte(turn)})
	return h.Sum(nil)
}

// MatchStateHash is StateHash applied to a live match value.
func MatchStateHash(m *domain.Match) []byte {
	return StateHash(&m.Board, m.Scores, m.Turn)
}

// GameTag derives the public per-match tag bound into hand proofs, so an
// artifact produced for one match cannot be replayed into another.
func GameTag(gameID string) []byte {
	h := suite.Hash()
	h.Write([]byte(gameTagTag))
	h.Write([]byte(gameID))
	return h.Sum(nil)
}

// EncodeUint32 returns v as 4 big-endian bytes. Shared by the hash inputs
// and the declared public outputs of proof artifacts.
func EncodeUint32(v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return buf[:]
}

// DecodeUint32 reads a 4-byte big-endian value, or false if b has the wrong
// length.
func DecodeUint32(b []byte) (uint32, bool) {
	if len(b) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(b), true
}
