package datalog

import (
	"testing"

	"github.com/braidnet/trustee/internal/predicate"
	"github.com/braidnet/trustee/pkg/wire"
)

func hashN(b byte) wire.Hash {
	var h wire.Hash
	h[0] = b
	return h
}

// Testable property 7: two distinct signed mixes at the same position by
// the same trustee trip MixRepeat, independent of everything else in the
// predicate set.
func TestDetectMixRepeat(t *testing.T) {
	set := predicate.NewSet()
	cfgH := wire.ConfigurationHash(hashN(1))
	sourceH := wire.CiphertextsHash(hashN(2))

	set.AddMixSigned(predicate.MixSigned{
		CfgH: cfgH, Batch: 1, SourceH: sourceH,
		TargetH: wire.CiphertextsHash(hashN(3)), SignerT: 1,
	})
	if repeated := detectMixRepeat(set); len(repeated) != 0 {
		t.Fatalf("one signed mix must not trip MixRepeat: %v", repeated)
	}

	set.AddMixSigned(predicate.MixSigned{
		CfgH: cfgH, Batch: 1, SourceH: sourceH,
		TargetH: wire.CiphertextsHash(hashN(4)), SignerT: 1,
	})
	repeated := detectMixRepeat(set)
	de, ok := repeated[batchKey{cfgH, 1}]
	if !ok {
		t.Fatal("two distinct signed mixes at the same position must trip MixRepeat")
	}
	if de.Kind != ErrMixRepeat {
		t.Fatalf("expected *Error{Kind: ErrMixRepeat}, got %+v", de)
	}
	if de.CfgH != cfgH || de.Batch != 1 {
		t.Fatalf("MixRepeat error carries wrong cfg/batch: %+v", de)
	}
	if len(set.MixRepeat) != 1 {
		t.Fatalf("expected exactly one MixRepeat predicate, got %d", len(set.MixRepeat))
	}
}

// Two different batches of the same session are independent: a repeat at
// batch 1 must not trip MixRepeat for batch 2.
func TestDetectMixRepeatIsolatesBatches(t *testing.T) {
	set := predicate.NewSet()
	cfgH := wire.ConfigurationHash(hashN(1))
	sourceH := wire.CiphertextsHash(hashN(2))

	set.AddMixSigned(predicate.MixSigned{
		CfgH: cfgH, Batch: 1, SourceH: sourceH,
		TargetH: wire.CiphertextsHash(hashN(3)), SignerT: 1,
	})
	set.AddMixSigned(predicate.MixSigned{
		CfgH: cfgH, Batch: 1, SourceH: sourceH,
		TargetH: wire.CiphertextsHash(hashN(4)), SignerT: 1,
	})
	set.AddMixSigned(predicate.MixSigned{
		CfgH: cfgH, Batch: 2, SourceH: sourceH,
		TargetH: wire.CiphertextsHash(hashN(5)), SignerT: 1,
	})

	repeated := detectMixRepeat(set)
	if len(repeated) != 1 {
		t.Fatalf("expected exactly one repeated batch, got %d: %v", len(repeated), repeated)
	}
	de, ok := repeated[batchKey{cfgH, 1}]
	if !ok {
		t.Fatalf("expected batch 1 to be the repeated one, got %v", repeated)
	}
	if de.Batch != 1 {
		t.Fatalf("MixRepeat must name the conflicting batch, got batch %d", de.Batch)
	}
	if _, ok := repeated[batchKey{cfgH, 2}]; ok {
		t.Fatal("batch 2 has no conflicting mix and must not be marked repeated")
	}
}
