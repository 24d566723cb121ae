package predicate

import "github.com/braidnet/trustee/pkg/wire"

// Build derives the base predicate set from a trustee's full accepted
// message history (not just the delta since the last step, per §4.6:
// "Build predicate set from the full store"). Aggregation rules
// (*SignedAll, MixVerifiedUpto, Z, MixRepeat) are computed by the datalog
// phases on top of this base set, not here.
func Build(messages []wire.Message) *Set {
	set := NewSet()
	for _, m := range messages {
		apply(set, m)
	}
	return set
}

func apply(set *Set, m wire.Message) {
	st := m.Statement
	switch st.Kind {
	case wire.KindConfiguration:
		cfg, ok := m.Artifact.(wire.Configuration)
		if !ok {
			return
		}
		set.AddConfiguration(Configuration{
			CfgH:      st.ConfigurationHash,
			SelfT:     st.SignerT,
			NTrustees: cfg.NTrustees(),
			Threshold: cfg.Threshold,
		})
	case wire.KindConfigurationSigned:
		set.AddConfigurationSignedBy(ConfigurationSignedBy{
			CfgH:    st.ConfigurationHash,
			SignerT: st.SignerT,
		})
	case wire.KindCommitments:
		set.AddCommitments(Commitments{
			CfgH:         st.ConfigurationHash,
			CommitmentsH: st.CommitmentsHash,
			SignerT:      st.SignerT,
		})
	case wire.KindCommitmentsSigned:
		// Accepted and verified like any message, but the engine's rules
		// (§4.4.2) gate on commitments being *present*, not a separate
		// countersignature; no corresponding action exists in the catalog
		// (§4.5).
	case wire.KindShares:
		set.AddShares(Shares{
			CfgH:    st.ConfigurationHash,
			SharesH: st.SharesHash,
			SignerT: st.SignerT,
		})
	case wire.KindSharesSigned:
		// See KindCommitmentsSigned above: accepted, not separately acted on.
	case wire.KindPublicKey:
		set.AddPublicKey(PublicKey{
			CfgH:         st.ConfigurationHash,
			PKH:          st.PublicKeyHash,
			SharesHashes: st.SharesHashes,
		})
	case wire.KindPublicKeySigned:
		set.AddPublicKeySignedBy(PublicKeySignedBy{
			CfgH:         st.ConfigurationHash,
			PKH:          st.PublicKeyHash,
			SharesHashes: st.SharesHashes,
			SignerT:      st.SignerT,
		})
	case wire.KindBallots:
		set.AddBallots(Ballots{
			CfgH:             st.ConfigurationHash,
			Batch:            st.Batch,
			BallotsH:         st.BallotsHash,
			PKH:              st.PublicKeyHash,
			SelectedTrustees: st.SelectedTrustees,
		})
	case wire.KindMix:
		set.AddMix(Mix{
			CfgH:    st.ConfigurationHash,
			Batch:   st.Batch,
			MixNo:   st.MixNumber,
			SourceH: st.SourceHash,
			TargetH: st.TargetHash,
			SignerT: st.SignerT,
		})
	case wire.KindMixSigned:
		set.AddMixSigned(MixSigned{
			CfgH:    st.ConfigurationHash,
			Batch:   st.Batch,
			SourceH: st.SourceHash,
			TargetH: st.TargetHash,
			SignerT: st.SignerT,
		})
	case wire.KindDecryptionFactors:
		set.AddDecryptionFactors(DecryptionFactors{
			CfgH:         st.ConfigurationHash,
			Batch:        st.Batch,
			DFactorsH:    st.DecryptionFactorsHash,
			CiphertextsH: st.CiphertextsHash,
			SharesHashes: st.SharesHashes,
			SignerT:      st.SignerT,
		})
	case wire.KindDecryptionFactorsSigned:
		// See KindCommitmentsSigned above: accepted, not separately acted on.
	case wire.KindPlaintexts:
		set.AddPlaintexts(Plaintexts{
			CfgH:           st.ConfigurationHash,
			Batch:          st.Batch,
			PlaintextsH:    st.PlaintextsHash,
			DFactorsHashes: st.DecryptionFactorsHashes,
			CiphertextsH:   st.CiphertextsHash,
			SignerT:        st.SignerT,
		})
	case wire.KindPlaintextsSigned:
		set.AddPlaintextsSigned(PlaintextsSigned{
			CfgH:         st.ConfigurationHash,
			Batch:        st.Batch,
			CiphertextsH: st.CiphertextsHash,
			PlaintextsH:  st.PlaintextsHash,
			SignerT:      st.SignerT,
		})
	case wire.KindChannel:
		// Ephemeral; never enters the predicate set (§6.1, §6.2).
	}
}
