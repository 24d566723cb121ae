package crypto

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// SharedKey derives the symmetric key this trustee uses to encrypt a DKG
// share for, or decrypt one from, the trustee whose verification key is
// peerVerifyKey. It is a static Diffie-Hellman exchange over the session's
// identity keys: both sides compute the same group element (k.private *
// peerPublic == peerPrivate * k.public) and hash it down to a secretbox
// key. Reusing the signing identity for DH rather than a dedicated
// encryption keypair is a simplification; it is sound
// here because the only thing ever encrypted under it is one Feldman
// share per session, not a long-lived channel.
func (k KeyPair) SharedKey(peerVerifyKey []byte) ([32]byte, error) {
	peerPub, err := k.suite.UnmarshalPoint(peerVerifyKey)
	if err != nil {
		return [32]byte{}, errors.Wrap(err, "crypto: unmarshal peer verify key")
	}
	shared := k.suite.Point().Mul(k.private, peerPub)
	b, err := MarshalPoint(shared)
	if err != nil {
		return [32]byte{}, errors.Wrap(err, "crypto: marshal shared point")
	}
	return blake2b.Sum256(b), nil
}
