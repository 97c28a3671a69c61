package app

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"triad/internal/commit"
	"triad/internal/domain"
	"triad/internal/ports"
)

const (
	gameID  = "match-7f3a"
	userAnn = "ann"
	userBob = "bob"
)

var (
	handAnn = [domain.HandSize]domain.CardID{1, 2, 3, 4, 5}
	handBob = [domain.HandSize]domain.CardID{6, 7, 8, 9, 10}
)

func newBlinding(t *testing.T) []byte {
	t.Helper()
	b, err := commit.NewBlinding()
	require.NoError(t, err)
	return b
}

// activeSession creates a two-player session ready for play.
func activeSession(t *testing.T, svc *Service) *Session {
	t.Helper()
	sess, events, err := svc.CreateGame(gameID, userAnn, handAnn, newBlinding(t))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, EventGameCreated, events[0].Kind)
	require.Equal(t, domain.StatusWaiting, sess.Status)

	events, err = svc.JoinGame(sess, userBob, handBob, newBlinding(t))
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, sess.Status)
	require.Len(t, events, 2)
	require.Equal(t, EventGameJoined, events[0].Kind)
	require.Equal(t, []string{userBob}, events[0].Recipients)
	require.Equal(t, EventGameStart, events[1].Kind)
	require.Empty(t, events[1].Recipients, "game start is broadcast")
	return sess
}

func nullifier(i int) []byte {
	return []byte(fmt.Sprintf("nullifier-%02d", i))
}

// referenceMoves is the 9-move sequence finishing 4-6 with slot B winning.
var referenceMoves = []struct {
	user      string
	handIndex int
	row, col  int
}{
	{userAnn, 0, 0, 0},
	{userBob, 4, 1, 1},
	{userAnn, 0, 2, 2},
	{userBob, 0, 0, 2},
	{userAnn, 0, 2, 0},
	{userBob, 0, 1, 0},
	{userAnn, 0, 0, 1},
	{userBob, 0, 1, 2},
	{userAnn, 0, 2, 1},
}

func playFullGame(t *testing.T, svc *Service, sess *Session) {
	t.Helper()
	for i, mv := range referenceMoves {
		_, err := svc.PlaceCard(sess, mv.user, mv.handIndex, mv.row, mv.col, i, nullifier(i))
		require.NoError(t, err, "move %d", i)
	}
}

// handArtifact builds the declared outputs an honest prover would produce.
func handArtifact(sess *Session, slot domain.Slot) ports.ProofArtifact {
	return ports.ProofArtifact{
		Proof: []byte("opaque-hand-proof"),
		PublicOutputs: [][]byte{
			ports.HandOutCommitment: sess.Commitments[slot].Commitment,
			ports.HandOutSlot:       commit.EncodeUint32(uint32(slot)),
			ports.HandOutGameTag:    commit.GameTag(sess.GameID),
			ports.HandOutCardCount:  commit.EncodeUint32(domain.HandSize),
			ports.HandOutVersion:    commit.EncodeUint32(1),
		},
	}
}

func moveArtifact(record *MoveRecord) ports.ProofArtifact {
	return ports.ProofArtifact{
		Proof: []byte("opaque-move-proof"),
		PublicOutputs: [][]byte{
			ports.MoveOutStartHash: record.StartStateHash,
			ports.MoveOutEndHash:   record.EndStateHash,
			ports.MoveOutNullifier: record.EncryptedNullifier,
			ports.MoveOutIndex:     commit.EncodeUint32(uint32(record.MoveIndex)),
			ports.MoveOutRow:       commit.EncodeUint32(uint32(record.Row)),
			ports.MoveOutCol:       commit.EncodeUint32(uint32(record.Col)),
			ports.MoveOutSlot:      commit.EncodeUint32(uint32(record.Slot)),
		},
	}
}

func TestJoinGameRejectsThirdPlayer(t *testing.T) {
	svc := NewService(nil)
	sess := activeSession(t, svc)

	_, err := svc.JoinGame(sess, "carol", [domain.HandSize]domain.CardID{11, 12, 13, 14, 15}, newBlinding(t))
	require.ErrorIs(t, err, ErrGameFull)
}

func TestPlaceCardEventsAndOrdering(t *testing.T) {
	svc := NewService(nil)
	sess := activeSession(t, svc)

	events, err := svc.PlaceCard(sess, userAnn, 0, 0, 0, 0, nullifier(0))
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, EventGameState, events[0].Kind)
	require.Equal(t, []string{userAnn}, events[0].Recipients)
	require.Equal(t, EventMoveApplied, events[1].Kind)
	require.Equal(t, []string{userBob}, events[1].Recipients)

	record := sess.MoveLog[0]
	require.Equal(t, 0, record.MoveIndex)
	require.NotEqual(t, record.StartStateHash, record.EndStateHash)
	require.Nil(t, record.Proof, "proof is pending until an artifact is accepted")

	// Stale move number is rejected before any mutation.
	_, err = svc.PlaceCard(sess, userBob, 0, 1, 1, 0, nullifier(1))
	require.ErrorIs(t, err, ErrOutOfOrder)
	require.Len(t, sess.MoveLog, 1)

	// Domain validation errors pass through.
	_, err = svc.PlaceCard(sess, userAnn, 0, 1, 1, 1, nullifier(1))
	require.ErrorIs(t, err, domain.ErrNotYourTurn)

	_, err = svc.PlaceCard(sess, "mallory", 0, 1, 1, 1, nullifier(1))
	require.ErrorIs(t, err, ErrUnknownPlayer)
}

func TestDuplicateNullifierTaintsMatch(t *testing.T) {
	svc := NewService(nil)
	sess := activeSession(t, svc)

	_, err := svc.PlaceCard(sess, userAnn, 0, 0, 0, 0, nullifier(0))
	require.NoError(t, err)

	events, err := svc.PlaceCard(sess, userBob, 0, 1, 1, 1, nullifier(0))
	var fault *ChainIntegrityError
	require.ErrorAs(t, err, &fault)
	require.True(t, sess.Tainted)
	require.Len(t, events, 1)
	require.Equal(t, EventChainFault, events[0].Kind)
	require.Empty(t, events[0].Recipients, "chain faults are surfaced to both peers")
}

func TestGameOverBroadcast(t *testing.T) {
	svc := NewService(nil)
	sess := activeSession(t, svc)

	for i, mv := range referenceMoves[:8] {
		_, err := svc.PlaceCard(sess, mv.user, mv.handIndex, mv.row, mv.col, i, nullifier(i))
		require.NoError(t, err)
	}
	last := referenceMoves[8]
	events, err := svc.PlaceCard(sess, last.user, last.handIndex, last.row, last.col, 8, nullifier(8))
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, EventGameOver, events[2].Kind)
	payload := events[2].Payload.(GameOverPayload)
	require.Equal(t, domain.WinnerB, payload.Winner)
	require.Equal(t, domain.StatusFinished, sess.Status)

	// Chain continuity across the full move log.
	for i := 1; i < len(sess.MoveLog); i++ {
		require.Equal(t, sess.MoveLog[i-1].EndStateHash, sess.MoveLog[i].StartStateHash,
			"end hash of move %d must equal start hash of move %d", i-1, i)
	}
}

func TestSubmitHandProof(t *testing.T) {
	svc := NewService(nil)
	sess := activeSession(t, svc)

	events, err := svc.SubmitHandProof(sess, userAnn, handArtifact(sess, domain.SlotA))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, EventHandProofRelayed, events[0].Kind)
	require.Equal(t, []string{userBob}, events[0].Recipients)
	require.Equal(t, 1, svc.Progress(sess).HandProofs)

	// Resubmission is a no-op.
	events, err = svc.SubmitHandProof(sess, userAnn, handArtifact(sess, domain.SlotA))
	require.NoError(t, err)
	require.Empty(t, events)
	require.Equal(t, 1, svc.Progress(sess).HandProofs)
}

func TestSubmitHandProofMismatchTaints(t *testing.T) {
	svc := NewService(nil)
	sess := activeSession(t, svc)

	bad := handArtifact(sess, domain.SlotA)
	bad.PublicOutputs[ports.HandOutCommitment] = []byte("forged")
	events, err := svc.SubmitHandProof(sess, userAnn, bad)
	var fault *ChainIntegrityError
	require.ErrorAs(t, err, &fault)
	require.Equal(t, -1, fault.MoveIndex)
	require.True(t, sess.Tainted)
	require.Len(t, events, 1)
	require.Equal(t, EventChainFault, events[0].Kind)

	// A tainted match refuses further proof traffic.
	_, err = svc.SubmitHandProof(sess, userBob, handArtifact(sess, domain.SlotB))
	require.ErrorIs(t, err, ErrTainted)
}

func TestSubmitMoveProofIdempotent(t *testing.T) {
	svc := NewService(nil)
	sess := activeSession(t, svc)
	playFullGame(t, svc, sess)

	record := sess.MoveLog[3]
	events, err := svc.SubmitMoveProof(sess, userBob, 3, moveArtifact(record))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, EventMoveProofRelayed, events[0].Kind)
	require.Equal(t, []string{userAnn}, events[0].Recipients)
	require.Equal(t, 1, sess.ProvenCount)
	require.NotNil(t, record.Proof)

	// Submitting the identical (start, end) pair again never increases the
	// collected count beyond the true number of distinct moves.
	for i := 0; i < 3; i++ {
		events, err = svc.SubmitMoveProof(sess, userAnn, 3, moveArtifact(record))
		require.NoError(t, err)
		require.Empty(t, events)
	}
	require.Equal(t, 1, sess.ProvenCount)
}

func TestSubmitMoveProofChecksDeclaredOutputs(t *testing.T) {
	svc := NewService(nil)
	sess := activeSession(t, svc)
	playFullGame(t, svc, sess)

	_, err := svc.SubmitMoveProof(sess, userAnn, 42, moveArtifact(sess.MoveLog[0]))
	require.ErrorIs(t, err, ErrUnknownMove)

	short := ports.ProofArtifact{PublicOutputs: [][]byte{[]byte("x")}}
	_, err = svc.SubmitMoveProof(sess, userAnn, 0, short)
	require.ErrorIs(t, err, ErrMalformedArtifact)

	bad := moveArtifact(sess.MoveLog[0])
	bad.PublicOutputs[ports.MoveOutEndHash] = []byte("forged")
	_, err = svc.SubmitMoveProof(sess, userAnn, 0, bad)
	var fault *ChainIntegrityError
	require.ErrorAs(t, err, &fault)
	require.Equal(t, 0, fault.MoveIndex)
	require.True(t, sess.Tainted)
}

func TestDisconnectRetainsState(t *testing.T) {
	svc := NewService(nil)
	sess := activeSession(t, svc)
	_, err := svc.PlaceCard(sess, userAnn, 0, 0, 0, 0, nullifier(0))
	require.NoError(t, err)

	events := svc.Disconnect(sess, userAnn)
	require.Len(t, events, 1)
	require.Equal(t, EventOpponentDisconnected, events[0].Kind)
	require.Equal(t, []string{userBob}, events[0].Recipients)
	require.False(t, sess.Live[domain.SlotA])
	require.Len(t, sess.MoveLog, 1, "no state is discarded on disconnect")
	require.Equal(t, domain.StatusActive, sess.Status)

	events = svc.Reconnect(sess, userAnn)
	require.Len(t, events, 2)
	require.Equal(t, EventGameState, events[0].Kind)
	require.Equal(t, []string{userAnn}, events[0].Recipients)
	require.Equal(t, EventOpponentReconnected, events[1].Kind)
	require.True(t, sess.Live[domain.SlotA])
}

func TestProgressString(t *testing.T) {
	svc := NewService(nil)
	sess := activeSession(t, svc)
	playFullGame(t, svc, sess)

	p := svc.Progress(sess)
	require.Equal(t, 2, p.Commitments)
	require.Equal(t, 9, p.MovesPlayed)
	require.Equal(t, "2/2 commitments, 0/2 hand proofs, 0/9 move proofs (9 moves played)", p.String())
}
