package datalog

import (
	"github.com/braidnet/trustee/internal/action"
	"github.com/braidnet/trustee/internal/predicate"
	"github.com/braidnet/trustee/pkg/wire"
)

// batchKey names one (configuration, batch) pair — the granularity at
// which a MixRepeat error aborts processing (§4.4.5, §7: "Abort the
// affected batch; continue other batches").
type batchKey struct {
	cfgH  wire.ConfigurationHash
	batch wire.BatchNumber
}

// runShuffle implements the Shuffle phase (§4.4.3): build the mix chain of
// length t, dispatch Mix to the one selected trustee per position,
// dispatch SignMix to every verifying trustee, and derive MixVerifiedUpto
// one link at a time (the outer engine loop re-runs this phase to chase
// the chain to its end, so this function only needs to make local
// progress per pass). Batches named in repeated are skipped entirely —
// every other batch under this and every other configuration still runs
// to completion in the same pass.
func runShuffle(set *predicate.Set, self wire.TrusteePosition, acts action.Set, repeated map[batchKey]*Error) {
	cfgReady := map[wire.ConfigurationHash]struct{}{}
	for c := range set.ConfigurationSignedAll {
		cfgReady[c.CfgH] = struct{}{}
	}
	pkReady := map[wire.ConfigurationHash]struct{}{}
	pkHByCfg := map[wire.ConfigurationHash]wire.PublicKeyHash{}
	for pk := range set.PublicKeySignedAll {
		pkReady[pk.CfgH] = struct{}{}
		pkHByCfg[pk.CfgH] = pk.PKH
	}

	for b := range set.Ballots {
		if _, ok := repeated[batchKey{b.CfgH, b.Batch}]; ok {
			continue // MixRepeat: this batch is aborted, others proceed normally
		}
		if _, ok := cfgReady[b.CfgH]; !ok {
			continue
		}
		if _, ok := pkReady[b.CfgH]; !ok {
			continue
		}
		t := b.SelectedTrustees.Count()
		selected := b.SelectedTrustees.Slice()

		// sourceH starts at the ballot batch; each successful
		// MixVerifiedUpto(sourceH, n) extends it for position n+1.
		sourceH := b.BallotsH
		for n := 1; n <= t; n++ {
			mixer := selected[n-1]

			pkH := pkHByCfg[b.CfgH]
			if n == 1 {
				dispatchMixActions(set, acts, self, mixer, b.CfgH, b.Batch, wire.MixNumber(n), sourceH, pkH)
				advanceVerifiedUpto(set, b.CfgH, b.Batch, wire.MixNumber(n), sourceH)
			} else {
				prevVerified, targetOfPrev, ok := verifiedTarget(set, b.CfgH, b.Batch, wire.MixNumber(n-1))
				if !ok || !prevVerified {
					break // chain hasn't reached this link yet; next engine pass will
				}
				sourceH = targetOfPrev
				dispatchMixActions(set, acts, self, mixer, b.CfgH, b.Batch, wire.MixNumber(n), sourceH, pkH)
				advanceVerifiedUpto(set, b.CfgH, b.Batch, wire.MixNumber(n), sourceH)
			}
		}
	}
}

// dispatchMixActions emits Mix (for the designated mixer) and SignMix (for
// every other trustee) against any Mix predicate already posted from
// sourceH at position mixNo.
func dispatchMixActions(set *predicate.Set, acts action.Set, self, mixer wire.TrusteePosition, cfgH wire.ConfigurationHash, batch wire.BatchNumber, mixNo wire.MixNumber, sourceH wire.CiphertextsHash, pkH wire.PublicKeyHash) {
	var posted *predicate.Mix
	for m := range set.Mix {
		if m.CfgH == cfgH && m.Batch == batch && m.MixNo == mixNo && m.SourceH == sourceH {
			mm := m
			posted = &mm
			break
		}
	}

	if posted == nil {
		if self == mixer {
			acts.Add(action.Action{Kind: action.Mix, CfgH: cfgH, Batch: batch, SourceH: sourceH, MixNo: mixNo, PKH: pkH})
		}
		return
	}

	alreadySigned := false
	for ms := range set.MixSigned {
		if ms.CfgH == cfgH && ms.Batch == batch && ms.SourceH == sourceH && ms.TargetH == posted.TargetH && ms.SignerT == self {
			alreadySigned = true
			break
		}
	}
	if !alreadySigned {
		acts.Add(action.Action{Kind: action.SignMix, CfgH: cfgH, Batch: batch, SourceH: sourceH, TargetH: posted.TargetH, MixNo: mixNo, PKH: pkH})
	}
}

// advanceVerifiedUpto emits MixVerifiedUpto(cfgH,batch,targetH,mixNo) once
// every trustee has signed the mix from sourceH (§4.4.3 base/step rule).
func advanceVerifiedUpto(set *predicate.Set, cfgH wire.ConfigurationHash, batch wire.BatchNumber, mixNo wire.MixNumber, sourceH wire.CiphertextsHash) {
	nTrustees := 0
	for c := range set.ConfigurationSignedAll {
		if c.CfgH == cfgH {
			nTrustees = c.NTrustees
			break
		}
	}

	byTarget := map[wire.CiphertextsHash]map[wire.TrusteePosition]struct{}{}
	for ms := range set.MixSigned {
		if ms.CfgH != cfgH || ms.Batch != batch || ms.SourceH != sourceH {
			continue
		}
		if byTarget[ms.TargetH] == nil {
			byTarget[ms.TargetH] = map[wire.TrusteePosition]struct{}{}
		}
		byTarget[ms.TargetH][ms.SignerT] = struct{}{}
	}
	for targetH, signers := range byTarget {
		if len(signers) >= nTrustees {
			set.AddMixVerifiedUpto(predicate.MixVerifiedUpto{CfgH: cfgH, Batch: batch, TargetH: targetH, N: mixNo})
		}
	}
}

// verifiedTarget reports whether mix position n is verified for this
// batch, and if so, its target hash.
func verifiedTarget(set *predicate.Set, cfgH wire.ConfigurationHash, batch wire.BatchNumber, n wire.MixNumber) (verified bool, targetH wire.CiphertextsHash, ok bool) {
	for v := range set.MixVerifiedUpto {
		if v.CfgH == cfgH && v.Batch == batch && v.N == n {
			return true, v.TargetH, true
		}
	}
	return false, wire.CiphertextsHash{}, false
}

// detectMixRepeat implements the repeated-mix error rule (§4.4.5): two
// distinct signed mixes at the same position (the same source hash) by the
// same trustee. It scans the full predicate set rather than stopping at the
// first conflict found, so a repeat in one batch never hides — or gets
// confused with — a repeat in another: each conflicting (cfg, batch) pair
// gets its own MixRepeat predicate and its own entry in the returned map,
// and every other batch is left untouched (§7: batch-scoped abort, not a
// session-wide one).
func detectMixRepeat(set *predicate.Set) map[batchKey]*Error {
	type key struct {
		cfgH    wire.ConfigurationHash
		batch   wire.BatchNumber
		sourceH wire.CiphertextsHash
		signer  wire.TrusteePosition
	}
	targets := map[key]wire.CiphertextsHash{}
	repeated := map[batchKey]*Error{}
	for ms := range set.MixSigned {
		k := key{ms.CfgH, ms.Batch, ms.SourceH, ms.SignerT}
		if existing, ok := targets[k]; ok && existing != ms.TargetH {
			bk := batchKey{ms.CfgH, ms.Batch}
			if _, already := repeated[bk]; !already {
				set.AddMixRepeat(predicate.MixRepeat{CfgH: ms.CfgH, Batch: ms.Batch})
				repeated[bk] = &Error{Kind: ErrMixRepeat, CfgH: ms.CfgH, Batch: ms.Batch}
			}
			continue
		}
		targets[k] = ms.TargetH
	}
	return repeated
}
