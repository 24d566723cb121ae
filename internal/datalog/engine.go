// Package datalog runs the fixed-point inference over a trustee's
// predicate set and produces the set of actions required to make
// progress (§4.3, §4.4). Implementation is bottom-up semi-naive: each
// pass re-runs every phase in dependency order and stops once a pass adds
// no new predicate, which is always reached in a bounded number of passes
// because MAX_TRUSTEES (and therefore the mix chain length) is bounded.
package datalog

import (
	"github.com/braidnet/trustee/internal/action"
	"github.com/braidnet/trustee/internal/predicate"
	"github.com/braidnet/trustee/pkg/wire"
)

// maxPasses bounds the fixed-point loop. The longest possible dependency
// chain in one run is the mix chain (length <= MAX_TRUSTEES), so this
// comfortably exceeds any legitimate fixpoint distance.
const maxPasses = wire.MaxTrustees + 8

// Run evaluates all four phases against set (built from the trustee's
// full local message store, per §4.6) to a fixed point, returning the
// deduplicated set of actions required this step plus any batch-scoped
// datalog errors observed along the way. set is mutated in place with
// every derived predicate.
//
// A MixRepeat (§4.4.5, §7) aborts processing only for its own (cfg, batch)
// pair: the returned actions still include everything inferred for every
// other batch in the same pass, and the caller is expected to treat each
// returned *Error as "log this batch's failure and move on", never as a
// reason to discard the rest of acts.
func Run(set *predicate.Set, self wire.TrusteePosition) (action.Set, []*Error) {
	acts := action.NewSet()

	for pass := 0; pass < maxPasses; pass++ {
		before := size(set)

		runCfg(set, self, acts)
		runDkg(set, self, acts)
		repeated := detectMixRepeat(set)
		runShuffle(set, self, acts, repeated)
		runDecrypt(set, self, acts, repeated)

		if size(set) == before {
			break
		}
	}
	return acts, collectErrors(set)
}

// collectErrors reports one *Error per distinct MixRepeat predicate
// present at the fixed point, for the session loop to audit-log.
func collectErrors(set *predicate.Set) []*Error {
	var errs []*Error
	for r := range set.MixRepeat {
		errs = append(errs, &Error{Kind: ErrMixRepeat, CfgH: r.CfgH, Batch: r.Batch})
	}
	return errs
}

// size returns a cheap progress signal: the total predicate count across
// every family. Monotonicity (§4.3) guarantees this only grows within a
// run, so equality across passes means a fixed point was reached.
func size(set *predicate.Set) int {
	return len(set.Configuration) + len(set.ConfigurationSignedBy) + len(set.ConfigurationSignedAll) +
		len(set.Commitments) + len(set.CommitmentsAllSignedAll) +
		len(set.Shares) + len(set.SharesSignedAll) +
		len(set.PublicKey) + len(set.PublicKeySignedBy) + len(set.PublicKeySignedAll) +
		len(set.Ballots) + len(set.Mix) + len(set.MixSigned) + len(set.MixVerifiedUpto) +
		len(set.DecryptionFactors) + len(set.DecryptionFactorsSignedAll) +
		len(set.Plaintexts) + len(set.PlaintextsSigned) +
		len(set.Z) + len(set.MixRepeat)
}
