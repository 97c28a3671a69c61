package commit

import (
	"go.dedis.ch/kyber/v4"
)

// KeyPair is a per-session Ed25519 keypair used to derive the shared secret
// that masks nullifier disclosures. Constructed once per match and passed
// explicitly; there is no process-wide key state.
type KeyPair struct {
	Private kyber.Scalar
	Public  kyber.Point
}

// NewKeyPair picks a fresh keypair from the suite's random stream.
func NewKeyPair() KeyPair {
	private := suite.Scalar().Pick(suite.RandomStream())
	return KeyPair{
		Private: private,
		Public:  suite.Point().Mul(private, nil),
	}
}

// NewNullifierSecret picks a fresh one-time nullifier secret.
func NewNullifierSecret() kyber.Scalar {
	return suite.Scalar().Pick(suite.RandomStream())
}

// nullifierMask derives the one-time mask for a move: the counterparty's
// public point is multiplied by the local private scalar, and the resulting
// shared value is hashed together with the move index into the scalar field.
func nullifierMask(private kyber.Scalar, counterparty kyber.Point, moveIndex int) (kyber.Scalar, error) {
	shared := suite.Point().Mul(private, counterparty)
	sharedBytes, err := shared.MarshalBinary()
	if err != nil {
		return nil, err
	}
	h := suite.Hash()
	h.Write([]byte(nullifierTag))
	h.Write(sharedBytes)
	h.Write(EncodeUint32(uint32(moveIndex)))
	return suite.Scalar().SetBytes(h.Sum(nil)), nil
}

// EncryptNullifier adds the move-specific mask to the nullifier secret modulo
// the field order. Two different move indices from the same keypair yield
// unlinkable outputs, which hides which committed card is being revealed and
// binds the disclosure to one specific move of one specific match.
func EncryptNullifier(private kyber.Scalar, counterparty kyber.Point, secret kyber.Scalar, moveIndex int) (kyber.Scalar, error) {
	mask, err := nullifierMask(private, counterparty, moveIndex)
	if err != nil {
		return nil, err
	}
	return suite.Scalar().Add(secret, mask), nil
}

// RecoverNullifier strips the mask from an encrypted nullifier. The
// counterparty can compute the same mask via the symmetric shared secret,
// which is how a verifier marks the underlying commitment as used.
func RecoverNullifier(private kyber.Scalar, counterparty kyber.Point, encrypted kyber.Scalar, moveIndex int) (kyber.Scalar, error) {
	mask, err := nullifierMask(private, counterparty, moveIndex)
	if err != nil {
		return nil, err
	}
	return suite.Scalar().Sub(encrypted, mask), nil
}

// NullifierBytes is the canonical wire form of an encrypted nullifier.
func NullifierBytes(s kyber.Scalar) ([]byte, error) {
	return s.MarshalBinary()
}
