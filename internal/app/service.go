package app

import (
	"bytes"
	"fmt"

	"triad/internal/commit"
	"triad/internal/domain"
	"triad/internal/ports"
)

// Service contains the coordinator use-cases operating on session state.
// Methods validate fully before mutating; callers are responsible for
// serializing calls per session (one match loop per game).
type Service struct {
	policy domain.CapturePolicy
}

// NewService constructs a Service with the provided capture policy or the
// standard orthogonal rule as default.
func NewService(policy domain.CapturePolicy) *Service {
	if policy == nil {
		policy = domain.OrthogonalCapture
	}
	return &Service{policy: policy}
}

// CreateGame allocates the authoritative session record and registers the
// creator as slot A. The match itself is not created until the opponent's
// hand is registered.
func (s *Service) CreateGame(gameID, userID string, cardIDs [domain.HandSize]domain.CardID, blinding []byte) (*Session, []Event, error) {
	commitment, err := commit.CommitHand(cardIDs, blinding)
	if err != nil {
		return nil, nil, err
	}
	for _, id := range cardIDs {
		if _, ok := domain.CardByID(id); !ok {
			return nil, nil, domain.ErrUnknownCard
		}
	}

	sess := &Session{
		GameID:      gameID,
		Status:      domain.StatusWaiting,
		provenPairs: make(map[string]int),
		nullifiers:  make(map[string]int),
	}
	sess.PlayerIDs[domain.SlotA] = userID
	sess.Live[domain.SlotA] = true
	sess.Commitments[domain.SlotA] = &HandCommitment{
		Slot:       domain.SlotA,
		CardIDs:    cardIDs,
		Blinding:   append([]byte(nil), blinding...),
		Commitment: commitment,
	}

	events := []Event{{
		Kind:       EventGameCreated,
		Payload:    GameCreatedPayload{GameID: gameID, Slot: domain.SlotA},
		Recipients: []string{userID},
	}}
	return sess, events, nil
}

// JoinGame registers the opponent as slot B, deals both committed hands into
// a fresh match and broadcasts the start to both peers.
func (s *Service) JoinGame(sess *Session, userID string, cardIDs [domain.HandSize]domain.CardID, blinding []byte) ([]Event, error) {
	if sess.Status != domain.StatusWaiting {
		return nil, ErrGameFull
	}
	if sess.PlayerIDs[domain.SlotA] == userID {
		return nil, ErrAlreadyCommitted
	}
	commitment, err := commit.CommitHand(cardIDs, blinding)
	if err != nil {
		return nil, err
	}

	match, err := domain.NewMatch(sess.Commitments[domain.SlotA].CardIDs, cardIDs)
	if err != nil {
		return nil, err
	}

	sess.PlayerIDs[domain.SlotB] = userID
	sess.Live[domain.SlotB] = true
	sess.Commitments[domain.SlotB] = &HandCommitment{
		Slot:       domain.SlotB,
		CardIDs:    cardIDs,
		Blinding:   append([]byte(nil), blinding...),
		Commitment: commitment,
	}
	sess.Match = match
	sess.Status = domain.StatusActive

	view := NewStateView(match)
	events := []Event{
		{
			Kind:       EventGameJoined,
			Payload:    GameJoinedPayload{GameID: sess.GameID, Slot: domain.SlotB, State: view},
			Recipients: []string{userID},
		},
		{
			Kind:    EventGameStart,
			Payload: GameStartPayload{GameID: sess.GameID, State: view},
		},
	}
	return events, nil
}

// PlaceCard validates and applies one placement. The move number must equal
// the coordinator's own count of occupied cells before the move; the
// encrypted nullifier must be fresh for this match. The new state is sent to
// the mover and a companion notification to the opponent.
func (s *Service) PlaceCard(sess *Session, userID string, handIndex, row, col, moveNumber int, encryptedNullifier []byte) ([]Event, error) {
	slot, ok := sess.Slot(userID)
	if !ok {
		return nil, ErrUnknownPlayer
	}
	if sess.Status != domain.StatusActive || sess.Match == nil {
		return nil, ErrNotActive
	}
	if sess.Tainted {
		return nil, ErrTainted
	}
	if moveNumber != sess.Match.OccupiedCells() {
		return nil, ErrOutOfOrder
	}
	if len(encryptedNullifier) == 0 {
		return nil, ErrMalformedArtifact
	}
	if prior, seen := sess.nullifiers[string(encryptedNullifier)]; seen {
		return s.taint(sess, moveNumber, "encrypted nullifier already used by move %d", prior)
	}

	before := sess.Match
	startHash := commit.MatchStateHash(before)

	next, captured, err := domain.PlaceCardWith(before, slot, handIndex, row, col, s.policy)
	if err != nil {
		return nil, err
	}
	endHash := commit.MatchStateHash(next)

	record := &MoveRecord{
		MoveIndex:          moveNumber,
		Slot:               slot,
		CardID:             next.Board[row][col].CardID,
		Row:                row,
		Col:                col,
		BoardBefore:        before.Board,
		BoardAfter:         next.Board,
		StartStateHash:     startHash,
		EndStateHash:       endHash,
		EncryptedNullifier: append([]byte(nil), encryptedNullifier...),
	}
	sess.Match = next
	sess.MoveLog = append(sess.MoveLog, record)
	sess.nullifiers[string(encryptedNullifier)] = moveNumber
	if next.Status == domain.StatusFinished {
		sess.Status = domain.StatusFinished
	}

	view := NewStateView(next)
	events := []Event{
		{
			Kind:       EventGameState,
			Payload:    GameStatePayload{State: view, Captures: captured},
			Recipients: []string{userID},
		},
		{
			Kind:       EventMoveApplied,
			Payload:    MoveAppliedPayload{State: view, Captures: captured, MoveIndex: moveNumber, Slot: slot},
			Recipients: []string{sess.PlayerIDs[slot.Opponent()]},
		},
	}
	if next.Status == domain.StatusFinished {
		events = append(events, Event{
			Kind:    EventGameOver,
			Payload: GameOverPayload{State: view, Winner: next.Winner},
		})
	}
	return events, nil
}

// SubmitHandProof relays a hand proof artifact to the other peer after
// verifying its declared public outputs against the locally computed
// commitment. Resubmission for an already-proven slot is a no-op.
func (s *Service) SubmitHandProof(sess *Session, userID string, artifact ports.ProofArtifact) ([]Event, error) {
	slot, ok := sess.Slot(userID)
	if !ok {
		return nil, ErrUnknownPlayer
	}
	if sess.Tainted {
		return nil, ErrTainted
	}
	if sess.Commitments[slot] == nil {
		return nil, ErrNotActive
	}
	if sess.HandProofs[slot] != nil {
		return nil, nil
	}
	if len(artifact.PublicOutputs) != ports.HandOutCount {
		return nil, ErrMalformedArtifact
	}

	outs := artifact.PublicOutputs
	switch {
	case !bytes.Equal(outs[ports.HandOutCommitment], sess.Commitments[slot].Commitment):
		return s.taint(sess, -1, "declared commitment does not match slot %d registration", slot)
	case !bytes.Equal(outs[ports.HandOutSlot], commit.EncodeUint32(uint32(slot))):
		return s.taint(sess, -1, "declared slot does not match submitter")
	case !bytes.Equal(outs[ports.HandOutGameTag], commit.GameTag(sess.GameID)):
		return s.taint(sess, -1, "declared game tag does not match this match")
	case !bytes.Equal(outs[ports.HandOutCardCount], commit.EncodeUint32(domain.HandSize)):
		return s.taint(sess, -1, "declared card count is not %d", domain.HandSize)
	}

	stored := artifact
	sess.HandProofs[slot] = &stored

	events := []Event{{
		Kind:       EventHandProofRelayed,
		Payload:    HandProofRelayedPayload{Proof: artifact, FromSlot: slot},
		Recipients: []string{sess.PlayerIDs[slot.Opponent()]},
	}}
	return events, nil
}

// SubmitMoveProof relays a move proof artifact after verifying its declared
// hashes and nullifier against the locally recorded transition for that
// index. Submissions are keyed by (startStateHash, endStateHash): a
// resubmission of an accepted pair never increases the collected count.
func (s *Service) SubmitMoveProof(sess *Session, userID string, moveIndex int, artifact ports.ProofArtifact) ([]Event, error) {
	slot, ok := sess.Slot(userID)
	if !ok {
		return nil, ErrUnknownPlayer
	}
	if sess.Tainted {
		return nil, ErrTainted
	}
	if moveIndex < 0 || moveIndex >= len(sess.MoveLog) {
		return nil, ErrUnknownMove
	}
	if len(artifact.PublicOutputs) != ports.MoveOutCount {
		return nil, ErrMalformedArtifact
	}

	record := sess.MoveLog[moveIndex]
	outs := artifact.PublicOutputs
	if _, accepted := sess.provenPairs[pairKey(outs[ports.MoveOutStartHash], outs[ports.MoveOutEndHash])]; accepted {
		return nil, nil
	}

	switch {
	case !bytes.Equal(outs[ports.MoveOutStartHash], record.StartStateHash):
		return s.taint(sess, moveIndex, "declared start state hash does not match recorded transition")
	case !bytes.Equal(outs[ports.MoveOutEndHash], record.EndStateHash):
		return s.taint(sess, moveIndex, "declared end state hash does not match recorded transition")
	case !bytes.Equal(outs[ports.MoveOutNullifier], record.EncryptedNullifier):
		return s.taint(sess, moveIndex, "declared nullifier does not match the placement disclosure")
	case !bytes.Equal(outs[ports.MoveOutIndex], commit.EncodeUint32(uint32(moveIndex))):
		return s.taint(sess, moveIndex, "declared move index does not match submission")
	case !bytes.Equal(outs[ports.MoveOutRow], commit.EncodeUint32(uint32(record.Row))),
		!bytes.Equal(outs[ports.MoveOutCol], commit.EncodeUint32(uint32(record.Col))):
		return s.taint(sess, moveIndex, "declared cell does not match recorded placement")
	case !bytes.Equal(outs[ports.MoveOutSlot], commit.EncodeUint32(uint32(record.Slot))):
		return s.taint(sess, moveIndex, "declared slot does not match recorded mover")
	}

	stored := artifact
	record.Proof = &stored
	sess.provenPairs[pairKey(record.StartStateHash, record.EndStateHash)] = moveIndex
	sess.ProvenCount++

	events := []Event{{
		Kind:       EventMoveProofRelayed,
		Payload:    MoveProofRelayedPayload{Proof: artifact, MoveIndex: moveIndex, FromSlot: slot},
		Recipients: []string{sess.PlayerIDs[slot.Opponent()]},
	}}
	return events, nil
}

// Disconnect marks a peer's liveness false and notifies the opponent. No
// state is discarded: the session degrades to paused.
func (s *Service) Disconnect(sess *Session, userID string) []Event {
	slot, ok := sess.Slot(userID)
	if !ok {
		return nil
	}
	sess.Live[slot] = false
	opponent := sess.PlayerIDs[slot.Opponent()]
	if opponent == "" {
		return nil
	}
	return []Event{{
		Kind:       EventOpponentDisconnected,
		Payload:    OpponentDisconnectedPayload{GameID: sess.GameID, Slot: slot},
		Recipients: []string{opponent},
	}}
}

// Reconnect restores liveness and sends the rejoining peer a fresh snapshot.
func (s *Service) Reconnect(sess *Session, userID string) []Event {
	slot, ok := sess.Slot(userID)
	if !ok {
		return nil
	}
	sess.Live[slot] = true

	var events []Event
	if sess.Match != nil {
		events = append(events, Event{
			Kind:       EventGameState,
			Payload:    GameStatePayload{State: NewStateView(sess.Match)},
			Recipients: []string{userID},
		})
	}
	if opponent := sess.PlayerIDs[slot.Opponent()]; opponent != "" {
		events = append(events, Event{
			Kind:       EventOpponentReconnected,
			Payload:    OpponentReconnectedPayload{GameID: sess.GameID, Slot: slot},
			Recipients: []string{opponent},
		})
	}
	return events
}

// Progress reports how close the session is to settlement eligibility.
func (s *Service) Progress(sess *Session) Progress {
	p := Progress{
		MovesPlayed: len(sess.MoveLog),
		MoveProofs:  sess.ProvenCount,
		Tainted:     sess.Tainted,
	}
	for _, c := range sess.Commitments {
		if c != nil {
			p.Commitments++
		}
	}
	for _, hp := range sess.HandProofs {
		if hp != nil {
			p.HandProofs++
		}
	}
	return p
}

// taint marks the session permanently ineligible for settlement and returns
// the fault as both a loud broadcast event and an error.
func (s *Service) taint(sess *Session, moveIndex int, format string, args ...any) ([]Event, error) {
	err := &ChainIntegrityError{
		GameID:    sess.GameID,
		MoveIndex: moveIndex,
		Reason:    fmt.Sprintf(format, args...),
	}
	sess.Tainted = true
	sess.TaintReason = err.Reason

	events := []Event{{
		Kind:    EventChainFault,
		Payload: ChainFaultPayload{GameID: sess.GameID, MoveIndex: moveIndex, Reason: err.Reason},
	}}
	return events, err
}
