package app

import (
	"errors"
	"fmt"
)

// Protocol errors: surfaced to the caller at the connection boundary, never
// mutating state. Safe to retry with a corrected request.
var (
	ErrGameFull          = errors.New("game already has two players")
	ErrUnknownPlayer     = errors.New("player is not in this game")
	ErrAlreadyCommitted  = errors.New("hand commitment already registered")
	ErrNotActive         = errors.New("game is not active")
	ErrOutOfOrder        = errors.New("move number does not match occupied cell count")
	ErrUnknownMove       = errors.New("no move recorded at that index")
	ErrMalformedArtifact = errors.New("artifact declares the wrong number of public outputs")
	ErrTainted           = errors.New("match is ineligible for settlement after a chain integrity fault")
)

// ChainIntegrityError reports an artifact whose declared public outputs
// disagree with the locally computed commitment, state-hash or nullifier
// values, or a duplicate nullifier. Fatal to the match's settlement
// eligibility; never silently dropped.
type ChainIntegrityError struct {
	GameID    string
	MoveIndex int // -1 for hand proofs
	Reason    string
}

func (e *ChainIntegrityError) Error() string {
	if e.MoveIndex < 0 {
		return fmt.Sprintf("chain integrity fault in game %s (hand proof): %s", e.GameID, e.Reason)
	}
	return fmt.Sprintf("chain integrity fault in game %s at move %d: %s", e.GameID, e.MoveIndex, e.Reason)
}
