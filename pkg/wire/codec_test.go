package wire

import (
	"bytes"
	"reflect"
	"testing"
)

// The local codec must round-trip a full message, concrete artifact type
// included — this is what a trustee's bbolt store relies on to survive a
// restart.
func TestMessageCodecRoundTrip(t *testing.T) {
	m := Message{
		ID: 7,
		Statement: Statement{
			Kind:              KindMix,
			ConfigurationHash: ConfigurationHash{1},
			Batch:             2,
			SourceHash:        CiphertextsHash{3},
			TargetHash:        CiphertextsHash{4},
			MixNumber:         1,
			SignerT:           5,
		},
		Artifact: Mix{
			MixNumber:   1,
			Ciphertexts: []ElGamalCiphertext{{GR: []byte{1, 2}, MHR: []byte{3, 4}}},
			Proof:       &ShuffleProof{Y: [][]byte{{5}}, R: []byte{6}},
		},
		Sender:    Sender{Position: 5, VerifyKey: []byte{9, 9}},
		Signature: []byte{8, 8, 8},
	}

	enc, err := MarshalMessage(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := UnmarshalMessage(enc)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.ID != m.ID || !reflect.DeepEqual(got.Statement, m.Statement) {
		t.Fatalf("statement did not round-trip: %+v", got.Statement)
	}
	mix, ok := got.Artifact.(Mix)
	if !ok {
		t.Fatalf("artifact lost its concrete type: %#v", got.Artifact)
	}
	if len(mix.Ciphertexts) != 1 || !bytes.Equal(mix.Ciphertexts[0].GR, []byte{1, 2}) {
		t.Fatalf("mix ciphertexts did not round-trip: %+v", mix)
	}
	if mix.Proof == nil || !bytes.Equal(mix.Proof.R, []byte{6}) {
		t.Fatalf("mix proof did not round-trip: %+v", mix.Proof)
	}
	if got.Hash() != m.Hash() {
		t.Fatal("content address must be stable across the codec round trip")
	}
}

func TestMessageCodecRoundTripWithoutArtifact(t *testing.T) {
	m := Message{
		Statement: Statement{Kind: KindMixSigned, SignerT: 3},
		Sender:    Sender{Position: 3, VerifyKey: []byte{1}},
		Signature: []byte{2},
	}
	enc, err := MarshalMessage(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := UnmarshalMessage(enc)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Artifact != nil {
		t.Fatalf("an artifact-free message must decode with a nil artifact, got %#v", got.Artifact)
	}
	if !reflect.DeepEqual(got.Statement, m.Statement) {
		t.Fatalf("statement did not round-trip: %+v", got.Statement)
	}
}
