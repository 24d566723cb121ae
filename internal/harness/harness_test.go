package harness_test

import (
	"context"
	"crypto/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/braidnet/trustee/internal/board"
	"github.com/braidnet/trustee/internal/crypto"
	"github.com/braidnet/trustee/internal/harness"
	"github.com/braidnet/trustee/pkg/wire"
)

func randomPlaintexts(t *testing.T, n, size int) [][]byte {
	t.Helper()
	out := make([][]byte, n)
	for i := range out {
		b := make([]byte, size)
		_, err := rand.Read(b)
		require.NoError(t, err)
		out[i] = b
	}
	return out
}

func assertSameMultiset(t *testing.T, want, got [][]byte) {
	t.Helper()
	require.Len(t, got, len(want))
	ws := make([]string, len(want))
	gs := make([]string, len(got))
	for i := range want {
		ws[i] = string(want[i])
	}
	for i := range got {
		gs[i] = string(got[i])
	}
	sort.Strings(ws)
	sort.Strings(gs)
	require.Equal(t, ws, gs)
}

// S1: T=2, t=2, batches=1. Small ciphertext count stands in for the
// scenario's 1000 (encryption/shuffle cost scales linearly; the group-law
// correctness this exercises does not depend on batch size).
func TestS1SmallSessionSingleBatch(t *testing.T) {
	ctx := context.Background()
	registry := board.NewRegistry()
	h, err := harness.New(registry, "s1", 2, 2)
	require.NoError(t, err)

	require.NoError(t, h.RunDKG(ctx, 50))

	plaintexts := randomPlaintexts(t, 20, 16)
	ballotsH, err := h.PostBallots(ctx, 1, plaintexts)
	require.NoError(t, err)

	z, err := h.RunToZ(ctx, 50, 1, ballotsH)
	require.NoError(t, err)

	decoded, err := h.Plaintexts(ctx, z)
	require.NoError(t, err)
	assertSameMultiset(t, plaintexts, decoded)
}

// S2: T=12, t=12, batches=3. Each batch terminates independently in the
// same session.
func TestS2LargeSessionMultipleBatches(t *testing.T) {
	ctx := context.Background()
	registry := board.NewRegistry()
	h, err := harness.New(registry, "s2", 12, 12)
	require.NoError(t, err)

	require.NoError(t, h.RunDKG(ctx, 80))

	for batch := wire.BatchNumber(1); batch <= 3; batch++ {
		plaintexts := randomPlaintexts(t, 10, 16)
		ballotsH, err := h.PostBallots(ctx, batch, plaintexts)
		require.NoError(t, err)

		z, err := h.RunToZ(ctx, 120, batch, ballotsH)
		require.NoError(t, err)

		decoded, err := h.Plaintexts(ctx, z)
		require.NoError(t, err)
		assertSameMultiset(t, plaintexts, decoded)
	}
}

// S3: T=5, t=3 with an explicit selected subset. The designated decryptor
// is selected[0], not position 1.
func TestS3SelectedSubset(t *testing.T) {
	ctx := context.Background()
	registry := board.NewRegistry()
	h, err := harness.New(registry, "s3", 5, 3)
	require.NoError(t, err)

	require.NoError(t, h.RunDKG(ctx, 60))

	pk, pkH, err := h.PublicKey(ctx)
	require.NoError(t, err)

	plaintexts := randomPlaintexts(t, 8, 16)
	ciphertexts := make([]wire.ElGamalCiphertext, len(plaintexts))
	for i, pt := range plaintexts {
		m, err := crypto.EncodePlaintext(h.Suite, pt)
		require.NoError(t, err)
		ciphertexts[i], err = crypto.Encrypt(h.Suite, pk, m)
		require.NoError(t, err)
	}
	selected := wire.NewTrusteeSet(2, 4, 5)
	msg, err := wire.BallotsMessage(h.PM, h.CfgH, 1, wire.Ballots{Ciphertexts: ciphertexts}, pkH, selected)
	require.NoError(t, err)
	require.NoError(t, h.Post(ctx, msg))
	ballotsH := msg.Statement.BallotsHash

	z, err := h.RunToZ(ctx, 120, 1, ballotsH)
	require.NoError(t, err)

	decoded, err := h.Plaintexts(ctx, z)
	require.NoError(t, err)
	assertSameMultiset(t, plaintexts, decoded)
}

// S4: a trustee that stops participating after posting commitments but
// before posting shares stalls the session permanently: PublicKeySignedAll
// (and therefore Z) must never be reached.
func TestS4MinorityAbstainStallsDKG(t *testing.T) {
	ctx := context.Background()
	registry := board.NewRegistry()
	h, err := harness.New(registry, "s4", 3, 2)
	require.NoError(t, err)

	crashed := wire.TrusteePosition(2)

	// Let every trustee, including the one that will crash, sign the
	// configuration and post its own commitments.
	for i := 0; i < 4; i++ {
		require.NoError(t, h.Step(ctx))
	}

	msgsBeforeCrash, err := h.Messages(ctx)
	require.NoError(t, err)
	sawCommitments := false
	for _, m := range msgsBeforeCrash {
		if m.Statement.Kind == wire.KindCommitments && m.Sender.Position == crashed {
			sawCommitments = true
		}
	}
	require.True(t, sawCommitments, "trustee 2 should have posted commitments before crashing")

	// From here on, trustee 2 never steps again: it posts no Shares.
	for i := 0; i < 40; i++ {
		require.NoError(t, h.StepExcept(ctx, crashed))
	}

	set, err := h.Predicates(ctx)
	require.NoError(t, err)
	require.Empty(t, set.PublicKeySignedAll, "DKG must not complete without every trustee's shares")
	require.Empty(t, set.Z, "no batch can terminate without a completed DKG")
}

// S6: an empty batch still reaches Z, with an empty plaintexts artifact
// and every intermediate mix a null mix over zero ciphertexts.
func TestS6EmptyBatch(t *testing.T) {
	ctx := context.Background()
	registry := board.NewRegistry()
	h, err := harness.New(registry, "s6", 3, 2)
	require.NoError(t, err)

	require.NoError(t, h.RunDKG(ctx, 50))

	ballotsH, err := h.PostBallots(ctx, 1, nil)
	require.NoError(t, err)

	z, err := h.RunToZ(ctx, 60, 1, ballotsH)
	require.NoError(t, err)

	decoded, err := h.Plaintexts(ctx, z)
	require.NoError(t, err)
	require.Empty(t, decoded)
}

// Testable property 3: a message whose signature doesn't verify under its
// declared signer's key never enters the predicate set, and its absence
// doesn't change anything else that was already derived.
func TestSignatureEnforcement(t *testing.T) {
	ctx := context.Background()
	registry := board.NewRegistry()
	h, err := harness.New(registry, "sig", 3, 2)
	require.NoError(t, err)

	require.NoError(t, h.Step(ctx))

	before, err := h.Predicates(ctx)
	require.NoError(t, err)

	// A second, distinct Configuration purportedly from the same protocol
	// manager key, but with a signature that was never produced by it.
	forgedCfg := h.Config
	forgedCfg.GroupID = "forged-group"
	forgedStmt := wire.Statement{
		Kind:              wire.KindConfiguration,
		ConfigurationHash: wire.ConfigurationHash(wire.HashArtifact(forgedCfg)),
		SignerT:           wire.ProtocolManagerIndex,
	}
	forged := wire.Message{
		Statement: forgedStmt,
		Artifact:  forgedCfg,
		Sender:    wire.Sender{Position: wire.ProtocolManagerIndex, VerifyKey: h.PMKey},
		Signature: []byte("not a valid signature"),
	}

	require.NoError(t, h.Post(ctx, forged))
	require.NoError(t, h.Step(ctx))

	after, err := h.Predicates(ctx)
	require.NoError(t, err)
	require.Equal(t, len(before.Configuration), len(after.Configuration),
		"a message with an invalid signature must never enter the predicate set")
	require.Equal(t, len(before.ConfigurationSignedBy), len(after.ConfigurationSignedBy))
}
