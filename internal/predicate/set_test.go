package predicate

import (
	"testing"

	"github.com/braidnet/trustee/pkg/wire"
)

// Testable property 2: adding a predicate strictly grows the set (or
// leaves it unchanged on a duplicate); nothing is ever retracted.
func TestAddHelpersAreMonotone(t *testing.T) {
	set := NewSet()
	cfgH := wire.ConfigurationHash{1}

	if !set.AddConfiguration(Configuration{CfgH: cfgH, SelfT: 1, NTrustees: 3, Threshold: 2}) {
		t.Fatal("first insert must report newly added")
	}
	if set.AddConfiguration(Configuration{CfgH: cfgH, SelfT: 1, NTrustees: 3, Threshold: 2}) {
		t.Fatal("duplicate insert must report no change")
	}
	if len(set.Configuration) != 1 {
		t.Fatalf("expected exactly one Configuration predicate, got %d", len(set.Configuration))
	}

	if !set.AddConfigurationSignedBy(ConfigurationSignedBy{CfgH: cfgH, SignerT: 1}) {
		t.Fatal("distinct predicate type must be independently insertable")
	}
	if len(set.Configuration) != 1 {
		t.Fatal("adding a different predicate type must not affect Configuration")
	}
}

func TestBuildIgnoresChannelMessages(t *testing.T) {
	m := wire.Message{Statement: wire.Statement{Kind: wire.KindChannel, SignerT: 1}}
	set := Build([]wire.Message{m})
	if len(set.Configuration) != 0 {
		t.Fatal("a Channel message must never contribute a predicate")
	}
}
