package wire

import "testing"

// Testable property 1 (determinism), at the artifact level: hashing the
// same logical value twice, even built independently, must agree.
func TestHashArtifactIsDeterministic(t *testing.T) {
	cfg1 := Configuration{
		SessionID:             "s1",
		GroupID:                "edwards25519",
		ProtocolManagerPublic: []byte{1, 2, 3},
		TrusteePublics:        [][]byte{{4, 5}, {6, 7}},
		Threshold:             2,
	}
	cfg2 := Configuration{
		SessionID:             "s1",
		GroupID:                "edwards25519",
		ProtocolManagerPublic: []byte{1, 2, 3},
		TrusteePublics:        [][]byte{{4, 5}, {6, 7}},
		Threshold:             2,
	}
	if HashArtifact(cfg1) != HashArtifact(cfg2) {
		t.Fatal("identical configurations must hash identically")
	}

	cfg2.Threshold = 3
	if HashArtifact(cfg1) == HashArtifact(cfg2) {
		t.Fatal("changing a field must change the hash")
	}
}

func TestHashLenMatchesBlake2b512(t *testing.T) {
	h := HashArtifact(Configuration{SessionID: "x"})
	if len(h) != HashLen {
		t.Fatalf("expected %d-byte hash, got %d", HashLen, len(h))
	}
}

func TestTrusteeSetRoundTrip(t *testing.T) {
	ts := NewTrusteeSet(3, 1, 2)
	if ts.Count() != 3 {
		t.Fatalf("expected 3 entries, got %d", ts.Count())
	}
	for _, p := range []TrusteePosition{1, 2, 3} {
		if !ts.Contains(p) {
			t.Fatalf("expected set to contain %d", p)
		}
	}
	if ts.Contains(4) {
		t.Fatal("set must not contain an unrequested position")
	}
	got := ts.Slice()
	want := []TrusteePosition{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("Slice length mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Slice order mismatch at %d: got %v want %v", i, got, want)
		}
	}
}

func TestTHashesAddAndSet(t *testing.T) {
	var th THashes
	for i := range th {
		th[i] = NullHash
	}
	h1 := Hash{1}
	h2 := Hash{2}
	th = th.Add(h1)
	th = th.Add(h2)
	if th.Count() != 2 {
		t.Fatalf("expected 2 non-null entries, got %d", th.Count())
	}
	th = th.Set(0, h2)
	if th[0] != h2 {
		t.Fatal("Set did not overwrite index 0")
	}
}

func TestMessageHashIgnoresSignature(t *testing.T) {
	stmt := Statement{Kind: KindConfigurationSigned, SignerT: 1}
	m1 := Message{Statement: stmt, Signature: []byte("sig-a")}
	m2 := Message{Statement: stmt, Signature: []byte("a-completely-different-sig")}
	if m1.Hash() != m2.Hash() {
		t.Fatal("Hash must be independent of the signature, matching duplicate-detection semantics")
	}
}
