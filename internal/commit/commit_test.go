package commit

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"triad/internal/domain"
)

var testHand = [domain.HandSize]domain.CardID{1, 2, 3, 4, 5}

func TestCommitHandDeterministic(t *testing.T) {
	blinding, err := NewBlinding()
	require.NoError(t, err)

	first, err := CommitHand(testHand, blinding)
	require.NoError(t, err)
	second, err := CommitHand(testHand, blinding)
	require.NoError(t, err)
	require.Equal(t, first, second, "same inputs must yield the same commitment")
}

func TestCommitHandBlindingSensitivity(t *testing.T) {
	b1, err := NewBlinding()
	require.NoError(t, err)
	b2, err := NewBlinding()
	require.NoError(t, err)

	c1, err := CommitHand(testHand, b1)
	require.NoError(t, err)
	c2, err := CommitHand(testHand, b2)
	require.NoError(t, err)
	require.False(t, bytes.Equal(c1, c2), "changing only the blinding must change the commitment")
}

func TestCommitHandCardSensitivity(t *testing.T) {
	blinding, err := NewBlinding()
	require.NoError(t, err)

	c1, err := CommitHand(testHand, blinding)
	require.NoError(t, err)
	c2, err := CommitHand([domain.HandSize]domain.CardID{1, 2, 3, 4, 6}, blinding)
	require.NoError(t, err)
	require.False(t, bytes.Equal(c1, c2))
}

func TestCommitHandRejectsShortBlinding(t *testing.T) {
	_, err := CommitHand(testHand, []byte("short"))
	require.ErrorIs(t, err, ErrBadBlinding)
}

func TestStateHashTracksTransitions(t *testing.T) {
	m, err := domain.NewMatch(testHand, [domain.HandSize]domain.CardID{6, 7, 8, 9, 10})
	require.NoError(t, err)

	initial := MatchStateHash(m)
	require.Equal(t, initial, MatchStateHash(m), "state hash must be reproducible")

	next, _, err := domain.PlaceCard(m, domain.SlotA, 0, 0, 0)
	require.NoError(t, err)
	require.NotEqual(t, initial, MatchStateHash(next), "placement must change the state hash")

	// The pre-move state hashes identically even after the move was derived.
	require.Equal(t, initial, MatchStateHash(m))
}

func TestStateHashCoversScoresAndTurn(t *testing.T) {
	var board domain.Board
	base := StateHash(&board, [2]int{5, 5}, domain.SlotA)

	require.NotEqual(t, base, StateHash(&board, [2]int{6, 4}, domain.SlotA))
	require.NotEqual(t, base, StateHash(&board, [2]int{5, 5}, domain.SlotB))
}

func TestEncryptNullifierUnlinkableAcrossMoves(t *testing.T) {
	local := NewKeyPair()
	remote := NewKeyPair()
	secret := NewNullifierSecret()

	n0, err := EncryptNullifier(local.Private, remote.Public, secret, 0)
	require.NoError(t, err)
	n1, err := EncryptNullifier(local.Private, remote.Public, secret, 1)
	require.NoError(t, err)
	require.False(t, n0.Equal(n1), "different move indices must yield distinct nullifiers")

	again, err := EncryptNullifier(local.Private, remote.Public, secret, 0)
	require.NoError(t, err)
	require.True(t, n0.Equal(again), "same inputs must yield the same nullifier")
}

func TestRecoverNullifierIsSymmetric(t *testing.T) {
	local := NewKeyPair()
	remote := NewKeyPair()
	secret := NewNullifierSecret()

	encrypted, err := EncryptNullifier(local.Private, remote.Public, secret, 3)
	require.NoError(t, err)

	// The counterparty derives the same shared value from its own private
	// scalar and the sender's public point.
	recovered, err := RecoverNullifier(remote.Private, local.Public, encrypted, 3)
	require.NoError(t, err)
	require.True(t, secret.Equal(recovered))

	// A different move index does not unmask.
	wrong, err := RecoverNullifier(remote.Private, local.Public, encrypted, 4)
	require.NoError(t, err)
	require.False(t, secret.Equal(wrong))
}

func TestUint32Roundtrip(t *testing.T) {
	v, ok := DecodeUint32(EncodeUint32(90210))
	require.True(t, ok)
	require.Equal(t, uint32(90210), v)

	_, ok = DecodeUint32([]byte{1, 2, 3})
	require.False(t, ok)
}
