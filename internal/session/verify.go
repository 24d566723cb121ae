package session

import (
	"bytes"

	"github.com/braidnet/trustee/internal/crypto"
	"github.com/braidnet/trustee/internal/trustee"
	"github.com/braidnet/trustee/pkg/wire"
)

// Verifier implements the ingest-time check §4.2 requires: "a message is
// accepted into the predicate set iff its signature verifies under the
// signer's declared verification key, which MUST be the key for the
// trustee position declared by its statement, OR the protocol-manager key
// for PROTOCOL_MANAGER_INDEX." A message failing either half is rejected
// (§7: SignatureInvalid -> skip, log, never crash the step) rather than
// stored or indexed.
type Verifier struct {
	Suite crypto.Suite
	PMKey []byte
	tr    *trustee.Trustee
}

// NewVerifier returns a Verifier that resolves per-position trustee keys
// from tr's own Configuration index, which the ingest loop keeps current
// as it verifies and indexes messages in board order.
func NewVerifier(suite crypto.Suite, pmKey []byte, tr *trustee.Trustee) *Verifier {
	return &Verifier{Suite: suite, PMKey: pmKey, tr: tr}
}

// Verify reports whether m is well-formed and properly signed. A Channel
// message is exempt: it carries no predicate-relevant content and §6.1
// treats it as ephemeral, never persisted by the engine.
func (v *Verifier) Verify(m wire.Message) bool {
	if m.Statement.Kind == wire.KindChannel {
		return true
	}
	if err := crypto.VerifySignature(v.Suite, m.Sender.VerifyKey, m.SigningBytes(), m.Signature); err != nil {
		return false
	}

	switch m.Statement.Kind {
	case wire.KindConfiguration:
		if m.Sender.Position != wire.ProtocolManagerIndex || !bytes.Equal(m.Sender.VerifyKey, v.PMKey) {
			return false
		}
		cfg, ok := m.Artifact.(wire.Configuration)
		if !ok {
			return false
		}
		return wire.ConfigurationHash(wire.HashArtifact(cfg)) == m.Statement.ConfigurationHash
	case wire.KindBallots:
		return m.Sender.Position == wire.ProtocolManagerIndex && bytes.Equal(m.Sender.VerifyKey, v.PMKey)
	default:
		pos := m.Sender.Position
		if pos != m.Statement.SignerT {
			return false
		}
		cfg, err := v.tr.GetConfiguration(m.Statement.ConfigurationHash)
		if err != nil {
			// The configuration this message is scoped to hasn't been
			// indexed yet on this trustee. Per §7 NotFound handling this
			// is "do nothing this cycle": the message is dropped from
			// this fetch, and since the session cursor advances past
			// every fetched id, it is not fetched again. In practice
			// every board orders Configuration
			// before any dependent message, so this only fires on a
			// misbehaving or out-of-order sender.
			return false
		}
		if int(pos) < 1 || int(pos) > cfg.NTrustees() {
			return false
		}
		return bytes.Equal(m.Sender.VerifyKey, cfg.TrusteePublics[pos-1])
	}
}
