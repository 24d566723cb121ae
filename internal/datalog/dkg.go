package datalog

import (
	"sort"

	"github.com/braidnet/trustee/internal/action"
	"github.com/braidnet/trustee/internal/predicate"
	"github.com/braidnet/trustee/pkg/wire"
)

// runDkg implements the Dkg phase (§4.4.2): commitments, then shares, then
// the combined public key, each gated on the previous round being fully
// present, with the final PublicKey countersigned by every trustee.
func runDkg(set *predicate.Set, self wire.TrusteePosition, acts action.Set) {
	nTrustees := map[wire.ConfigurationHash]int{}
	for c := range set.ConfigurationSignedAll {
		nTrustees[c.CfgH] = c.NTrustees
	}

	runCommitmentsRound(set, self, acts, nTrustees)
	runSharesRound(set, self, acts, nTrustees)
	runPublicKeyRound(set, self, acts, nTrustees)
}

func runCommitmentsRound(set *predicate.Set, self wire.TrusteePosition, acts action.Set, nTrustees map[wire.ConfigurationHash]int) {
	bySigner := map[wire.ConfigurationHash]map[wire.TrusteePosition]wire.CommitmentsHash{}
	for c := range set.Commitments {
		if _, ok := nTrustees[c.CfgH]; !ok {
			continue // configuration not yet fully signed; DKG phase not unlocked
		}
		if bySigner[c.CfgH] == nil {
			bySigner[c.CfgH] = map[wire.TrusteePosition]wire.CommitmentsHash{}
		}
		bySigner[c.CfgH][c.SignerT] = c.CommitmentsH
	}

	for cfgH, n := range nTrustees {
		signers := bySigner[cfgH]
		if signers[self] == (wire.CommitmentsHash{}) {
			acts.Add(action.Action{Kind: action.PostCommitments, CfgH: cfgH})
		}
		if len(signers) < n {
			continue
		}
		set.AddCommitmentsAllSignedAll(predicate.CommitmentsAllSignedAll{
			CfgH:              cfgH,
			CommitmentsHashes: sortedCommitmentsHashes(signers),
		})
	}
}

func runSharesRound(set *predicate.Set, self wire.TrusteePosition, acts action.Set, nTrustees map[wire.ConfigurationHash]int) {
	unlocked := map[wire.ConfigurationHash]wire.CommitmentsHashes{}
	for c := range set.CommitmentsAllSignedAll {
		unlocked[c.CfgH] = c.CommitmentsHashes
	}

	bySigner := map[wire.ConfigurationHash]map[wire.TrusteePosition]wire.SharesHash{}
	for sh := range set.Shares {
		if _, ok := unlocked[sh.CfgH]; !ok {
			continue
		}
		if bySigner[sh.CfgH] == nil {
			bySigner[sh.CfgH] = map[wire.TrusteePosition]wire.SharesHash{}
		}
		bySigner[sh.CfgH][sh.SignerT] = sh.SharesH
	}

	for cfgH, commitmentsHs := range unlocked {
		signers := bySigner[cfgH]
		if signers[self] == (wire.SharesHash{}) {
			acts.Add(action.Action{Kind: action.PostShares, CfgH: cfgH, CommitmentsHashes: commitmentsHs})
		}
		n := nTrustees[cfgH]
		if len(signers) < n {
			continue
		}
		set.AddSharesSignedAll(predicate.SharesSignedAll{
			CfgH:         cfgH,
			SharesHashes: sortedSharesHashes(signers),
		})
	}
}

func runPublicKeyRound(set *predicate.Set, self wire.TrusteePosition, acts action.Set, nTrustees map[wire.ConfigurationHash]int) {
	unlocked := map[wire.ConfigurationHash]wire.SharesHashes{}
	for s := range set.SharesSignedAll {
		unlocked[s.CfgH] = s.SharesHashes
	}
	commitmentsHashesByCfg := map[wire.ConfigurationHash]wire.CommitmentsHashes{}
	for c := range set.CommitmentsAllSignedAll {
		commitmentsHashesByCfg[c.CfgH] = c.CommitmentsHashes
	}

	posted := map[wire.ConfigurationHash]bool{}
	for pk := range set.PublicKey {
		posted[pk.CfgH] = true
	}
	for cfgH, sharesHs := range unlocked {
		if !posted[cfgH] {
			acts.Add(action.Action{Kind: action.PostPublicKey, CfgH: cfgH, SharesHashes: sharesHs, CommitmentsHashes: commitmentsHashesByCfg[cfgH]})
		}
	}

	signedBy := map[predicate.PublicKey]map[wire.TrusteePosition]struct{}{}
	for pk := range set.PublicKey {
		key := predicate.PublicKey{CfgH: pk.CfgH, PKH: pk.PKH, SharesHashes: pk.SharesHashes}
		if signedBy[key] == nil {
			signedBy[key] = map[wire.TrusteePosition]struct{}{}
		}
	}
	for sb := range set.PublicKeySignedBy {
		key := predicate.PublicKey{CfgH: sb.CfgH, PKH: sb.PKH, SharesHashes: sb.SharesHashes}
		if signedBy[key] == nil {
			signedBy[key] = map[wire.TrusteePosition]struct{}{}
		}
		signedBy[key][sb.SignerT] = struct{}{}
	}

	for pk := range set.PublicKey {
		key := predicate.PublicKey{CfgH: pk.CfgH, PKH: pk.PKH, SharesHashes: pk.SharesHashes}
		signers := signedBy[key]
		if _, ok := signers[self]; !ok {
			acts.Add(action.Action{Kind: action.SignPublicKey, CfgH: pk.CfgH, PKH: pk.PKH, SharesHashes: pk.SharesHashes, CommitmentsHashes: commitmentsHashesByCfg[pk.CfgH]})
		}
		if len(signers) >= nTrustees[pk.CfgH] {
			set.AddPublicKeySignedAll(predicate.PublicKeySignedAll{
				CfgH:         pk.CfgH,
				PKH:          pk.PKH,
				SharesHashes: pk.SharesHashes,
			})
		}
	}
}

func sortedCommitmentsHashes(bySigner map[wire.TrusteePosition]wire.CommitmentsHash) wire.CommitmentsHashes {
	positions := make([]wire.TrusteePosition, 0, len(bySigner))
	for p := range bySigner {
		positions = append(positions, p)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
	hs := make([]wire.Hash, 0, len(positions))
	for _, p := range positions {
		hs = append(hs, wire.Hash(bySigner[p]))
	}
	return wire.CommitmentsHashes(wire.NewTHashes(hs...))
}

func sortedSharesHashes(bySigner map[wire.TrusteePosition]wire.SharesHash) wire.SharesHashes {
	positions := make([]wire.TrusteePosition, 0, len(bySigner))
	for p := range bySigner {
		positions = append(positions, p)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
	hs := make([]wire.Hash, 0, len(positions))
	for _, p := range positions {
		hs = append(hs, wire.Hash(bySigner[p]))
	}
	return wire.SharesHashes(wire.NewTHashes(hs...))
}
