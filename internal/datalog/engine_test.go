package datalog

import (
	"reflect"
	"testing"

	"github.com/braidnet/trustee/internal/action"
	"github.com/braidnet/trustee/internal/predicate"
	"github.com/braidnet/trustee/pkg/wire"
)

func baseSet(n int) *predicate.Set {
	set := predicate.NewSet()
	cfgH := wire.ConfigurationHash(hashN(1))
	set.AddConfiguration(predicate.Configuration{CfgH: cfgH, SelfT: 1, NTrustees: n, Threshold: wire.Threshold(n)})
	return set
}

func TestCfgPhaseRequiresSelfSignature(t *testing.T) {
	set := baseSet(3)
	acts, errs := Run(set, 1)
	if len(errs) != 0 {
		t.Fatalf("unexpected datalog errors: %v", errs)
	}

	cfgH := wire.ConfigurationHash(hashN(1))
	want := action.Action{Kind: action.SignConfiguration, CfgH: cfgH}
	if _, ok := acts[want]; !ok {
		t.Fatalf("an unsigned configuration must require SignConfiguration, got %v", acts.Slice())
	}
	if len(set.ConfigurationSignedAll) != 0 {
		t.Fatal("ConfigurationSignedAll must not be derived before every trustee signed")
	}
}

func TestCfgPhaseDerivesSignedAll(t *testing.T) {
	set := baseSet(3)
	cfgH := wire.ConfigurationHash(hashN(1))
	for pos := wire.TrusteePosition(1); pos <= 3; pos++ {
		set.AddConfigurationSignedBy(predicate.ConfigurationSignedBy{CfgH: cfgH, SignerT: pos})
	}

	acts, _ := Run(set, 1)
	if len(set.ConfigurationSignedAll) != 1 {
		t.Fatalf("expected ConfigurationSignedAll, got %d", len(set.ConfigurationSignedAll))
	}
	if _, ok := acts[action.Action{Kind: action.SignConfiguration, CfgH: cfgH}]; ok {
		t.Fatal("a trustee that already signed must not be asked to sign again")
	}
	// DKG is now unlocked: this trustee owes its commitments.
	if _, ok := acts[action.Action{Kind: action.PostCommitments, CfgH: cfgH}]; !ok {
		t.Fatalf("ConfigurationSignedAll must unlock PostCommitments, got %v", acts.Slice())
	}
}

func TestDkgGatesSharesOnAllCommitments(t *testing.T) {
	set := baseSet(2)
	cfgH := wire.ConfigurationHash(hashN(1))
	for pos := wire.TrusteePosition(1); pos <= 2; pos++ {
		set.AddConfigurationSignedBy(predicate.ConfigurationSignedBy{CfgH: cfgH, SignerT: pos})
	}
	set.AddCommitments(predicate.Commitments{CfgH: cfgH, CommitmentsH: wire.CommitmentsHash(hashN(10)), SignerT: 1})

	acts, _ := Run(set, 1)
	for a := range acts {
		if a.Kind == action.PostShares {
			t.Fatal("PostShares must not be dispatched before every trustee's commitments are present")
		}
	}

	set.AddCommitments(predicate.Commitments{CfgH: cfgH, CommitmentsH: wire.CommitmentsHash(hashN(11)), SignerT: 2})
	acts, _ = Run(set, 1)
	found := false
	for a := range acts {
		if a.Kind == action.PostShares && a.CfgH == cfgH {
			found = true
			// Commitment hashes are carried in ascending signer order (the
			// §4.4.2 sorted-by-signer-position tie-break).
			if wire.THashes(a.CommitmentsHashes)[0] != hashN(10) || wire.THashes(a.CommitmentsHashes)[1] != hashN(11) {
				t.Fatalf("commitments hashes not in signer order: %v", a.CommitmentsHashes)
			}
		}
	}
	if !found {
		t.Fatal("all commitments present must dispatch PostShares")
	}
	if len(set.CommitmentsAllSignedAll) != 1 {
		t.Fatalf("expected CommitmentsAllSignedAll, got %d", len(set.CommitmentsAllSignedAll))
	}
}

// Testable property 1: identical inputs produce identical actions and
// identical derived predicates, run after independent run.
func TestRunIsDeterministic(t *testing.T) {
	build := func() *predicate.Set {
		set := baseSet(3)
		cfgH := wire.ConfigurationHash(hashN(1))
		for pos := wire.TrusteePosition(1); pos <= 3; pos++ {
			set.AddConfigurationSignedBy(predicate.ConfigurationSignedBy{CfgH: cfgH, SignerT: pos})
			set.AddCommitments(predicate.Commitments{CfgH: cfgH, CommitmentsH: wire.CommitmentsHash(hashN(byte(10 + pos))), SignerT: pos})
			set.AddShares(predicate.Shares{CfgH: cfgH, SharesH: wire.SharesHash(hashN(byte(20 + pos))), SignerT: pos})
		}
		set.AddPublicKey(predicate.PublicKey{
			CfgH:         cfgH,
			PKH:          wire.PublicKeyHash(hashN(30)),
			SharesHashes: wire.SharesHashes(wire.NewTHashes(hashN(21), hashN(22), hashN(23))),
		})
		return set
	}

	setA, setB := build(), build()
	actsA, errsA := Run(setA, 2)
	actsB, errsB := Run(setB, 2)

	if len(errsA) != 0 || len(errsB) != 0 {
		t.Fatalf("unexpected datalog errors: %v / %v", errsA, errsB)
	}
	if !reflect.DeepEqual(actsA, actsB) {
		t.Fatalf("identical inputs produced different action sets:\n%v\n%v", actsA.Slice(), actsB.Slice())
	}
	if !reflect.DeepEqual(setA, setB) {
		t.Fatal("identical inputs produced different derived predicate sets")
	}
}

// Testable property 2 at the engine level: adding a message's predicates
// never removes a previously derived predicate.
func TestRunIsMonotone(t *testing.T) {
	set := baseSet(2)
	cfgH := wire.ConfigurationHash(hashN(1))
	set.AddConfigurationSignedBy(predicate.ConfigurationSignedBy{CfgH: cfgH, SignerT: 1})
	set.AddConfigurationSignedBy(predicate.ConfigurationSignedBy{CfgH: cfgH, SignerT: 2})

	Run(set, 1)
	before := len(set.ConfigurationSignedAll)
	if before != 1 {
		t.Fatalf("expected ConfigurationSignedAll after both signatures, got %d", before)
	}

	set.AddCommitments(predicate.Commitments{CfgH: cfgH, CommitmentsH: wire.CommitmentsHash(hashN(9)), SignerT: 1})
	Run(set, 1)
	if len(set.ConfigurationSignedAll) < before {
		t.Fatal("derived predicates must never shrink as inputs grow")
	}
}

// A MixRepeat aborts only its own batch: the shuffle phase keeps
// dispatching actions for a sibling batch of the same session in the same
// run (§4.4.5, §7, scenario S5's engine-level core).
func TestMixRepeatIsBatchScoped(t *testing.T) {
	set := baseSet(2)
	cfgH := wire.ConfigurationHash(hashN(1))
	pkH := wire.PublicKeyHash(hashN(30))
	for pos := wire.TrusteePosition(1); pos <= 2; pos++ {
		set.AddConfigurationSignedBy(predicate.ConfigurationSignedBy{CfgH: cfgH, SignerT: pos})
	}
	set.AddPublicKeySignedAll(predicate.PublicKeySignedAll{CfgH: cfgH, PKH: pkH})

	ballots1 := wire.CiphertextsHash(hashN(40))
	ballots2 := wire.CiphertextsHash(hashN(41))
	selected := wire.NewTrusteeSet(1, 2)
	set.AddBallots(predicate.Ballots{CfgH: cfgH, Batch: 1, BallotsH: ballots1, PKH: pkH, SelectedTrustees: selected})
	set.AddBallots(predicate.Ballots{CfgH: cfgH, Batch: 2, BallotsH: ballots2, PKH: pkH, SelectedTrustees: selected})

	// Batch 1: trustee 1 signed two distinct mixes at position 1.
	set.AddMixSigned(predicate.MixSigned{CfgH: cfgH, Batch: 1, SourceH: ballots1, TargetH: wire.CiphertextsHash(hashN(50)), SignerT: 1})
	set.AddMixSigned(predicate.MixSigned{CfgH: cfgH, Batch: 1, SourceH: ballots1, TargetH: wire.CiphertextsHash(hashN(51)), SignerT: 1})

	acts, errs := Run(set, 1)

	if len(errs) != 1 {
		t.Fatalf("expected exactly one MixRepeat error, got %v", errs)
	}
	if errs[0].Kind != ErrMixRepeat || errs[0].Batch != 1 {
		t.Fatalf("error must name batch 1's MixRepeat, got %+v", errs[0])
	}
	if len(set.MixRepeat) != 1 {
		t.Fatalf("expected one MixRepeat predicate, got %d", len(set.MixRepeat))
	}

	batch1Actions, batch2Actions := 0, 0
	for a := range acts {
		switch a.Kind {
		case action.Mix, action.SignMix, action.PostDecryptionFactors, action.PostPlaintexts, action.SignPlaintexts:
			switch a.Batch {
			case 1:
				batch1Actions++
			case 2:
				batch2Actions++
			}
		}
	}
	if batch1Actions != 0 {
		t.Fatalf("an aborted batch must emit no further mix/decrypt actions, got %d", batch1Actions)
	}
	if batch2Actions == 0 {
		t.Fatal("a sibling batch must keep progressing: expected a Mix action for batch 2")
	}
}
