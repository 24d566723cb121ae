package action

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3"

	"github.com/braidnet/trustee/internal/crypto"
	"github.com/braidnet/trustee/internal/store"
	"github.com/braidnet/trustee/internal/trustee"
	"github.com/braidnet/trustee/pkg/wire"
)

// After a restart the combined-share cache is empty, but every input to it
// is durable: the own dealing re-derives from the signing key, and the
// peers' encrypted shares sit in the message store. combinedShareFor must
// rebuild the same scalar a pre-restart process held.
func TestCombinedShareReconstructsAfterRestart(t *testing.T) {
	suite := crypto.NewSuite()
	pm := crypto.GenerateKeyPair(suite)
	keysA := crypto.GenerateKeyPair(suite)
	keysB := crypto.GenerateKeyPair(suite)

	cfg := wire.Configuration{
		SessionID:             "restart",
		GroupID:               "edwards25519",
		ProtocolManagerPublic: pm.VerifyKey(),
		TrusteePublics:        [][]byte{keysA.VerifyKey(), keysB.VerifyKey()},
		Threshold:             2,
	}
	boot, err := wire.BootstrapMessage(pm, cfg)
	require.NoError(t, err)
	cfgH := boot.Statement.ConfigurationHash

	// Trustee B deals and posts its encrypted shares, as its PostShares
	// handler would.
	trB := trustee.New(2, keysB, suite, store.NewMemory())
	dealingB := trB.EnsureDealing(cfgH, 2, 2)
	keyBA, err := keysB.SharedKey(keysA.VerifyKey())
	require.NoError(t, err)
	keyBB, err := keysB.SharedKey(keysB.VerifyKey())
	require.NoError(t, err)
	encForA, err := crypto.EncryptShareFor(keyBA, dealingB.Shares[0])
	require.NoError(t, err)
	encForB, err := crypto.EncryptShareFor(keyBB, dealingB.Shares[1])
	require.NoError(t, err)
	sharesMsg, err := wire.SharesMessage(keysB, 2, cfgH, wire.Shares{
		Signer:          2,
		EncryptedShares: [][]byte{encForA, encForB},
	})
	require.NoError(t, err)

	// "Restarted" trustee A: same key, fresh process state, durable
	// message history only.
	trA := trustee.New(1, keysA, suite, store.NewMemory())
	for _, m := range []wire.Message{boot, sharesMsg} {
		_, err := trA.Store().Add(m)
		require.NoError(t, err)
	}
	require.NoError(t, trA.Refresh())

	share, err := combinedShareFor(trA, cfgH)
	require.NoError(t, err)

	dealingA := trA.EnsureDealing(cfgH, 2, 2)
	expected := crypto.CombinedShare(suite, []kyber.Scalar{dealingA.Shares[0], dealingB.Shares[0]})
	require.True(t, share.Equal(expected), "reconstructed combined share must match the dealt shares")

	// And it must stand behind the publicly recomputable share.
	polys := [][]kyber.Point{dealingA.Commitments, dealingB.Commitments}
	fromPublic := crypto.CombinedPublicShareAt(suite, polys, 1)
	fromSecret := suite.Point().Mul(share, nil)
	require.True(t, fromSecret.Equal(fromPublic))

	// The cache is now warm: a second call returns the same scalar.
	again, err := combinedShareFor(trA, cfgH)
	require.NoError(t, err)
	require.True(t, again.Equal(share))
}
