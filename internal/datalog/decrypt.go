package datalog

import (
	"sort"

	"github.com/braidnet/trustee/internal/action"
	"github.com/braidnet/trustee/internal/predicate"
	"github.com/braidnet/trustee/pkg/wire"
)

// runDecrypt implements the Decrypt phase (§4.4.4): once the mix chain is
// fully verified, each selected trustee posts decryption factors, the
// designated decryptor (selected[0]) combines them into Plaintexts, every
// trustee countersigns, and the terminal Z predicate is emitted. Batches
// named in repeated (a MixRepeat was detected against their mix chain)
// never reach a fully-verified mix chain, but are also skipped explicitly
// here so a batch aborted mid-chain can't be decrypted against a partial,
// ambiguous verification result (§7: batch-scoped abort).
func runDecrypt(set *predicate.Set, self wire.TrusteePosition, acts action.Set, repeated map[batchKey]*Error) {
	commitmentsHashesByCfg := map[wire.ConfigurationHash]wire.CommitmentsHashes{}
	for c := range set.CommitmentsAllSignedAll {
		commitmentsHashesByCfg[c.CfgH] = c.CommitmentsHashes
	}
	sharesHashesByCfg := map[wire.ConfigurationHash]wire.SharesHashes{}
	for s := range set.SharesSignedAll {
		sharesHashesByCfg[s.CfgH] = s.SharesHashes
	}

	for b := range set.Ballots {
		if _, ok := repeated[batchKey{b.CfgH, b.Batch}]; ok {
			continue
		}
		t := b.SelectedTrustees.Count()
		selected := b.SelectedTrustees.Slice()
		if t == 0 {
			continue
		}

		verified, ciphertextsH, ok := verifiedTarget(set, b.CfgH, b.Batch, wire.MixNumber(t))
		if !ok || !verified {
			continue
		}

		selectedSet := map[wire.TrusteePosition]struct{}{}
		for _, p := range selected {
			selectedSet[p] = struct{}{}
		}

		factorsBySigner := map[wire.TrusteePosition]wire.DecryptionFactorsHash{}
		for df := range set.DecryptionFactors {
			if df.CfgH == b.CfgH && df.Batch == b.Batch && df.CiphertextsH == ciphertextsH {
				factorsBySigner[df.SignerT] = df.DFactorsH
			}
		}
		if _, isSelected := selectedSet[self]; isSelected {
			if _, posted := factorsBySigner[self]; !posted {
				acts.Add(action.Action{Kind: action.PostDecryptionFactors, CfgH: b.CfgH, Batch: b.Batch, CiphertextsH: ciphertextsH, SharesHashes: sharesHashesByCfg[b.CfgH], CommitmentsHashes: commitmentsHashesByCfg[b.CfgH]})
			}
		}

		if len(factorsBySigner) < t {
			continue
		}
		dfHashes := sortedDecryptionFactorsHashes(factorsBySigner, selected)
		set.AddDecryptionFactorsSignedAll(predicate.DecryptionFactorsSignedAll{
			CfgH:                    b.CfgH,
			Batch:                   b.Batch,
			CiphertextsH:            ciphertextsH,
			DecryptionFactorsHashes: dfHashes,
		})

		designated := selected[0]
		plaintextsPosted := false
		var plaintextsH wire.PlaintextsHash
		for p := range set.Plaintexts {
			if p.CfgH == b.CfgH && p.Batch == b.Batch && p.CiphertextsH == ciphertextsH {
				plaintextsPosted = true
				plaintextsH = p.PlaintextsH
			}
		}
		if !plaintextsPosted && self == designated {
			acts.Add(action.Action{Kind: action.PostPlaintexts, CfgH: b.CfgH, Batch: b.Batch, CiphertextsH: ciphertextsH, DecryptionFactorsHashes: dfHashes, CommitmentsHashes: commitmentsHashesByCfg[b.CfgH]})
		}

		if !plaintextsPosted {
			continue
		}

		signed := false
		for ps := range set.PlaintextsSigned {
			if ps.CfgH == b.CfgH && ps.Batch == b.Batch && ps.CiphertextsH == ciphertextsH && ps.SignerT == self {
				signed = true
			}
		}
		if !signed {
			acts.Add(action.Action{Kind: action.SignPlaintexts, CfgH: b.CfgH, Batch: b.Batch, CiphertextsH: ciphertextsH, PlaintextsH: plaintextsH, DecryptionFactorsHashes: dfHashes, CommitmentsHashes: commitmentsHashesByCfg[b.CfgH]})
		}

		verifiedFirst, firstTarget, okFirst := verifiedTarget(set, b.CfgH, b.Batch, 1)
		if okFirst && verifiedFirst {
			mixingHs := collectMixingHashes(set, b.CfgH, b.Batch, t)
			set.AddZ(predicate.Z{
				CfgH:        b.CfgH,
				Batch:       b.Batch,
				BallotsH:    b.BallotsH,
				PlaintextsH: plaintextsH,
				MixingHs:    mixingHs,
			})
			_ = firstTarget
		}
	}
}

func sortedDecryptionFactorsHashes(bySigner map[wire.TrusteePosition]wire.DecryptionFactorsHash, selected []wire.TrusteePosition) wire.DecryptionFactorsHashes {
	positions := make([]wire.TrusteePosition, 0, len(selected))
	for _, p := range selected {
		if _, ok := bySigner[p]; ok {
			positions = append(positions, p)
		}
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
	hs := make([]wire.Hash, 0, len(positions))
	for _, p := range positions {
		hs = append(hs, wire.Hash(bySigner[p]))
	}
	return wire.DecryptionFactorsHashes(wire.NewTHashes(hs...))
}

func collectMixingHashes(set *predicate.Set, cfgH wire.ConfigurationHash, batch wire.BatchNumber, t int) wire.MixingHashes {
	hs := make([]wire.Hash, 0, t)
	for n := 1; n <= t; n++ {
		if verified, targetH, ok := verifiedTarget(set, cfgH, batch, wire.MixNumber(n)); ok && verified {
			hs = append(hs, wire.Hash(targetH))
		}
	}
	return wire.MixingHashes(wire.NewTHashes(hs...))
}
