package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/braidnet/trustee/internal/crypto"
	"github.com/braidnet/trustee/internal/store"
	"github.com/braidnet/trustee/internal/trustee"
	"github.com/braidnet/trustee/pkg/wire"
)

func verifierFixture(t *testing.T) (*Verifier, wire.Configuration, wire.ConfigurationHash, crypto.KeyPair, []crypto.KeyPair) {
	t.Helper()
	suite := crypto.NewSuite()
	pm := crypto.GenerateKeyPair(suite)
	keys := []crypto.KeyPair{crypto.GenerateKeyPair(suite), crypto.GenerateKeyPair(suite)}

	cfg := wire.Configuration{
		SessionID:             "verify",
		GroupID:               "edwards25519",
		ProtocolManagerPublic: pm.VerifyKey(),
		TrusteePublics:        [][]byte{keys[0].VerifyKey(), keys[1].VerifyKey()},
		Threshold:             2,
	}

	tr := trustee.New(1, keys[0], suite, store.NewMemory())
	v := NewVerifier(suite, pm.VerifyKey(), tr)

	boot, err := wire.BootstrapMessage(pm, cfg)
	require.NoError(t, err)
	require.True(t, v.Verify(boot), "the protocol manager's own bootstrap must verify")
	_, err = tr.Store().Add(boot)
	require.NoError(t, err)
	tr.IndexOne(boot)

	return v, cfg, boot.Statement.ConfigurationHash, pm, keys
}

func TestVerifyAcceptsHonestTrusteeMessage(t *testing.T) {
	v, _, cfgH, _, keys := verifierFixture(t)

	m, err := wire.ConfigurationSignedMessage(keys[1], 2, cfgH)
	require.NoError(t, err)
	require.True(t, v.Verify(m))
}

func TestVerifyRejectsPositionKeyMismatch(t *testing.T) {
	v, _, cfgH, _, keys := verifierFixture(t)

	// Trustee 2's key claiming trustee 1's position.
	m, err := wire.ConfigurationSignedMessage(keys[1], 1, cfgH)
	require.NoError(t, err)
	require.False(t, v.Verify(m), "a key that is not the configured key for the claimed position must be rejected")
}

func TestVerifyRejectsSenderStatementMismatch(t *testing.T) {
	v, _, cfgH, _, keys := verifierFixture(t)

	m, err := wire.ConfigurationSignedMessage(keys[1], 2, cfgH)
	require.NoError(t, err)
	m.Sender.Position = 1 // sender claims a different position than the statement
	require.False(t, v.Verify(m))
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	v, _, cfgH, _, keys := verifierFixture(t)

	m, err := wire.ConfigurationSignedMessage(keys[1], 2, cfgH)
	require.NoError(t, err)
	m.Signature = append([]byte(nil), m.Signature...)
	m.Signature[0] ^= 0x01
	require.False(t, v.Verify(m))
}

func TestVerifyRejectsOutOfRangePosition(t *testing.T) {
	v, _, cfgH, _, keys := verifierFixture(t)

	m, err := wire.ConfigurationSignedMessage(keys[1], 7, cfgH)
	require.NoError(t, err)
	require.False(t, v.Verify(m), "a position outside 1..n must be rejected")
}

func TestVerifyRejectsConfigurationFromNonManager(t *testing.T) {
	v, cfg, _, _, keys := verifierFixture(t)

	forged, err := wire.BootstrapMessage(keys[0], cfg)
	require.NoError(t, err)
	require.False(t, v.Verify(forged), "only the protocol manager key may bootstrap a configuration")
}

func TestVerifyRejectsBallotsFromNonManager(t *testing.T) {
	v, _, cfgH, _, keys := verifierFixture(t)

	m, err := wire.BallotsMessage(keys[0], cfgH, 1, wire.Ballots{}, wire.PublicKeyHash{}, wire.NewTrusteeSet(1, 2))
	require.NoError(t, err)
	require.False(t, v.Verify(m))
}

func TestVerifyRejectsConfigurationHashMismatch(t *testing.T) {
	v, cfg, _, pm, _ := verifierFixture(t)

	boot, err := wire.BootstrapMessage(pm, cfg)
	require.NoError(t, err)
	// The declared hash no longer matches the carried artifact; the
	// signature still covers the altered statement, so re-sign it.
	boot.Statement.ConfigurationHash = wire.ConfigurationHash{0xFF}
	sig, err := pm.Sign(boot.SigningBytes())
	require.NoError(t, err)
	boot.Signature = sig
	require.False(t, v.Verify(boot), "a configuration whose statement hash does not match its artifact must be rejected")
}

func TestVerifyExemptsChannelMessages(t *testing.T) {
	v, _, _, _, _ := verifierFixture(t)
	m := wire.Message{Statement: wire.Statement{Kind: wire.KindChannel, ChannelTopic: "refresh"}}
	require.True(t, v.Verify(m), "Channel messages are ephemeral and exempt from the ingest check")
}
