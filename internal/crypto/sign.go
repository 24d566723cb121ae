package crypto

import (
	"github.com/pkg/errors"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"golang.org/x/crypto/blake2b"

	"github.com/braidnet/trustee/pkg/wire"
)

// KeyPair is a Schnorr signing identity: a private scalar and its public
// point, matching the sender identity every message carries (§3.3).
type KeyPair struct {
	suite   Suite
	private kyber.Scalar
	public  kyber.Point
}

// GenerateKeyPair creates a fresh signing identity in the given suite.
func GenerateKeyPair(s Suite) KeyPair {
	priv := s.RandomScalar()
	return KeyPair{suite: s, private: priv, public: s.Point().Mul(priv, nil)}
}

// LoadKeyPair reconstructs a signing identity from a marshaled private
// scalar, e.g. one persisted to the trustee's local store at startup.
func LoadKeyPair(s Suite, priv []byte) (KeyPair, error) {
	x, err := s.UnmarshalScalar(priv)
	if err != nil {
		return KeyPair{}, errors.Wrap(err, "crypto: unmarshal private key")
	}
	return KeyPair{suite: s, private: x, public: s.Point().Mul(x, nil)}, nil
}

// MarshalPrivate serializes the private scalar for persistence.
func (k KeyPair) MarshalPrivate() ([]byte, error) { return MarshalScalar(k.private) }

// VerifyKey returns the marshaled public point, satisfying wire.Signer.
func (k KeyPair) VerifyKey() []byte {
	b, err := MarshalPoint(k.public)
	if err != nil {
		// Points produced by this package always marshal; a failure here
		// indicates suite corruption, not a recoverable runtime condition.
		panic(errors.Wrap(err, "crypto: marshal verify key"))
	}
	return b
}

// DealingSeed derives the deterministic seed for this identity's DKG
// dealing under context (the session's configuration hash). Deriving from
// the private key keeps the polynomial secret while making it
// reconstructible after a restart — the same derandomization trick
// deterministic-nonce signature schemes use — so the dealing itself never
// needs to be persisted (§3.5).
func (k KeyPair) DealingSeed(context []byte) []byte {
	priv, err := MarshalScalar(k.private)
	if err != nil {
		// Scalars produced by this package always marshal; see VerifyKey.
		panic(errors.Wrap(err, "crypto: marshal private key for dealing seed"))
	}
	t := newTranscript()
	t.writeBytes([]byte("dkg_dealing"))
	t.writeBytes(priv)
	t.writeBytes(context)
	sum := blake2b.Sum512(t.bytes())
	return sum[:]
}

// Sign produces a Schnorr signature over message, satisfying wire.Signer.
func (k KeyPair) Sign(message []byte) ([]byte, error) {
	sig, err := schnorr.Sign(k.suite, k.private, message)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: schnorr sign")
	}
	return sig, nil
}

var _ wire.Signer = KeyPair{}

// VerifySignature checks a Schnorr signature over message under the
// marshaled public key verifyKey.
func VerifySignature(s Suite, verifyKey, message, signature []byte) error {
	pub, err := s.UnmarshalPoint(verifyKey)
	if err != nil {
		return errors.Wrap(err, "crypto: unmarshal verify key")
	}
	if err := schnorr.Verify(s, pub, message, signature); err != nil {
		return errors.Wrap(err, "crypto: schnorr verify")
	}
	return nil
}

// VerifyMessage checks that msg's signature verifies under its declared
// sender key. It does not check the sender's position against the key the
// configuration assigns to that position.
func VerifyMessage(s Suite, msg wire.Message) error {
	return VerifySignature(s, msg.Sender.VerifyKey, msg.SigningBytes(), msg.Signature)
}
