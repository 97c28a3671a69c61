// Package settle validates the completeness and chain integrity of a
// finished match's collected proofs and produces the immutable bundle handed
// to the external settlement client. Submission mechanics (addresses, fees,
// ledger calls) live outside this module.
package settle

import (
	"bytes"
	"fmt"

	"triad/internal/app"
	"triad/internal/domain"
	"triad/internal/ports"
)

// MoveCount is the number of move proofs a complete bundle carries.
const MoveCount = domain.BoardSize * domain.BoardSize

// AssemblyErrorKind names the specific check a settlement attempt failed.
type AssemblyErrorKind string

const (
	KindTainted           AssemblyErrorKind = "tainted"
	KindMissingCommitment AssemblyErrorKind = "missing_commitment"
	KindIncompleteMoves   AssemblyErrorKind = "incomplete_moves"
	KindBrokenChain       AssemblyErrorKind = "broken_chain"
	KindMissingHandProof  AssemblyErrorKind = "missing_hand_proof"
	KindUnprovenMoves     AssemblyErrorKind = "unproven_moves"
	KindNotFinished       AssemblyErrorKind = "not_finished"
	KindDrawnMatch        AssemblyErrorKind = "drawn_match"
	KindInvalidPrizeCard  AssemblyErrorKind = "invalid_prize_card"
)

// AssemblyError explains why settlement is not yet (or never) possible.
type AssemblyError struct {
	Kind   AssemblyErrorKind
	Detail string
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("bundle assembly failed (%s): %s", e.Kind, e.Detail)
}

func fail(kind AssemblyErrorKind, format string, args ...any) error {
	return &AssemblyError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// BundleCommitment is the published form of a hand commitment: the blinding
// factor stays out of the bundle, disclosure happens through the hand proof.
type BundleCommitment struct {
	Slot       domain.Slot         `json:"slot"`
	Commitment []byte              `json:"commitment"`
	Proof      ports.ProofArtifact `json:"proof"`
}

// BundleMove is one fully proven move record.
type BundleMove struct {
	MoveIndex          int                 `json:"move_index"`
	Slot               domain.Slot         `json:"slot"`
	CardID             domain.CardID       `json:"card_id"`
	Row                int                 `json:"row"`
	Col                int                 `json:"col"`
	StartStateHash     []byte              `json:"start_state_hash"`
	EndStateHash       []byte              `json:"end_state_hash"`
	EncryptedNullifier []byte              `json:"encrypted_nullifier"`
	Proof              ports.ProofArtifact `json:"proof"`
}

// Bundle is the complete settlement artifact. Immutable once produced.
type Bundle struct {
	GameID          string                `json:"game_id"`
	HandCommitments [2]BundleCommitment   `json:"hand_commitments"`
	MoveRecords     [MoveCount]BundleMove `json:"move_records"`
	Winner          domain.Slot           `json:"winner"`
	PrizeCardID     domain.CardID         `json:"prize_card_id"`
}

// TryAssemble checks a session's collected state in order and either returns
// the settlement bundle or a specific AssemblyError naming the failing check.
// Drawn matches are ineligible: settlement requires a determined winner.
func TryAssemble(sess *app.Session, prizeCardID domain.CardID) (*Bundle, error) {
	if sess.Tainted {
		return nil, fail(KindTainted, "chain integrity fault: %s", sess.TaintReason)
	}

	for slot, c := range sess.Commitments {
		if c == nil {
			return nil, fail(KindMissingCommitment, "no hand commitment for slot %d", slot)
		}
	}

	if len(sess.MoveLog) != MoveCount {
		return nil, fail(KindIncompleteMoves, "%d/%d moves recorded", len(sess.MoveLog), MoveCount)
	}
	for i, record := range sess.MoveLog {
		if record.MoveIndex != i {
			return nil, fail(KindBrokenChain, "move record %d carries index %d", i, record.MoveIndex)
		}
		if i > 0 && !bytes.Equal(sess.MoveLog[i-1].EndStateHash, record.StartStateHash) {
			return nil, fail(KindBrokenChain, "state hash chain breaks between moves %d and %d", i-1, i)
		}
	}

	handProofs := 0
	for _, hp := range sess.HandProofs {
		if hp != nil {
			handProofs++
		}
	}
	if handProofs != 2 {
		return nil, fail(KindMissingHandProof, "%d/2 hand proofs collected", handProofs)
	}
	if sess.ProvenCount != MoveCount {
		return nil, fail(KindUnprovenMoves, "%d/%d move proofs collected", sess.ProvenCount, MoveCount)
	}

	match := sess.Match
	if match == nil || match.Status != domain.StatusFinished {
		return nil, fail(KindNotFinished, "match is not finished")
	}

	var winner domain.Slot
	switch match.Winner {
	case domain.WinnerA:
		winner = domain.SlotA
	case domain.WinnerB:
		winner = domain.SlotB
	case domain.WinnerDraw:
		return nil, fail(KindDrawnMatch, "drawn matches cannot be settled")
	default:
		return nil, fail(KindNotFinished, "match has no winner")
	}

	loser := winner.Opponent()
	inPool := false
	for _, id := range match.RemainingPool(loser) {
		if id == prizeCardID {
			inPool = true
			break
		}
	}
	if !inPool {
		return nil, fail(KindInvalidPrizeCard, "card %d is not in the loser's remaining pool", prizeCardID)
	}

	bundle := &Bundle{
		GameID:      sess.GameID,
		Winner:      winner,
		PrizeCardID: prizeCardID,
	}
	for slot, c := range sess.Commitments {
		bundle.HandCommitments[slot] = BundleCommitment{
			Slot:       c.Slot,
			Commitment: append([]byte(nil), c.Commitment...),
			Proof:      *sess.HandProofs[slot],
		}
	}
	for i, record := range sess.MoveLog {
		bundle.MoveRecords[i] = BundleMove{
			MoveIndex:          record.MoveIndex,
			Slot:               record.Slot,
			CardID:             record.CardID,
			Row:                record.Row,
			Col:                record.Col,
			StartStateHash:     append([]byte(nil), record.StartStateHash...),
			EndStateHash:       append([]byte(nil), record.EndStateHash...),
			EncryptedNullifier: append([]byte(nil), record.EncryptedNullifier...),
			Proof:              *record.Proof,
		}
	}
	return bundle, nil
}
