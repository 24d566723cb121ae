package trustee

import (
	"testing"

	"github.com/braidnet/trustee/internal/crypto"
	"github.com/braidnet/trustee/internal/store"
	"github.com/braidnet/trustee/pkg/wire"
)

// A restarted trustee (same signing key, fresh process state) must come
// back with the exact dealing it posted commitments for before the
// restart; a fresh polynomial would make its shares inconsistent with
// those commitments and stall the session's DKG.
func TestEnsureDealingSurvivesRestart(t *testing.T) {
	suite := crypto.NewSuite()
	keys := crypto.GenerateKeyPair(suite)
	cfgH := wire.ConfigurationHash{1, 2, 3}

	before := New(1, keys, suite, store.NewMemory()).EnsureDealing(cfgH, 2, 3)
	after := New(1, keys, suite, store.NewMemory()).EnsureDealing(cfgH, 2, 3)

	for i := range before.Commitments {
		if !before.Commitments[i].Equal(after.Commitments[i]) {
			t.Fatalf("commitment %d changed across a restart", i)
		}
	}
	for i := range before.Shares {
		if !before.Shares[i].Equal(after.Shares[i]) {
			t.Fatalf("share %d changed across a restart", i)
		}
	}
}

// Distinct sessions get distinct dealings from the same identity.
func TestEnsureDealingIsPerConfiguration(t *testing.T) {
	suite := crypto.NewSuite()
	tr := New(1, crypto.GenerateKeyPair(suite), suite, store.NewMemory())

	a := tr.EnsureDealing(wire.ConfigurationHash{1}, 2, 3)
	b := tr.EnsureDealing(wire.ConfigurationHash{2}, 2, 3)
	if a.Commitments[0].Equal(b.Commitments[0]) {
		t.Fatal("two configurations must not share a dealing")
	}
}
