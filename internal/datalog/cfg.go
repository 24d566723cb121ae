package datalog

import (
	"github.com/braidnet/trustee/internal/action"
	"github.com/braidnet/trustee/internal/predicate"
	"github.com/braidnet/trustee/pkg/wire"
)

// runCfg implements the Cfg phase (§4.4.1): accept the bootstrap
// configuration, require every trustee to countersign, emit
// ConfigurationSignedAll once all have.
func runCfg(set *predicate.Set, self wire.TrusteePosition, acts action.Set) {
	for cfg := range set.Configuration {
		signedBySelf := false
		signers := map[wire.TrusteePosition]struct{}{}
		for sb := range set.ConfigurationSignedBy {
			if sb.CfgH != cfg.CfgH {
				continue
			}
			signers[sb.SignerT] = struct{}{}
			if sb.SignerT == self {
				signedBySelf = true
			}
		}

		if !signedBySelf {
			acts.Add(action.Action{Kind: action.SignConfiguration, CfgH: cfg.CfgH})
		}

		if len(signers) >= cfg.NTrustees {
			set.AddConfigurationSignedAll(predicate.ConfigurationSignedAll{
				CfgH:      cfg.CfgH,
				SelfT:     cfg.SelfT,
				NTrustees: cfg.NTrustees,
				Threshold: cfg.Threshold,
			})
		}
	}
}
