package store

import (
	"path/filepath"
	"testing"

	"github.com/braidnet/trustee/pkg/wire"
)

func testMessages() []wire.Message {
	return []wire.Message{
		{
			Statement: wire.Statement{Kind: wire.KindConfiguration, SignerT: wire.ProtocolManagerIndex},
			Artifact:  wire.Configuration{SessionID: "s", Threshold: 2, TrusteePublics: [][]byte{{1}, {2}}},
			Sender:    wire.Sender{Position: wire.ProtocolManagerIndex, VerifyKey: []byte{9}},
			Signature: []byte{1},
		},
		{
			Statement: wire.Statement{Kind: wire.KindConfigurationSigned, SignerT: 1},
			Sender:    wire.Sender{Position: 1, VerifyKey: []byte{1}},
			Signature: []byte{2},
		},
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	msgs := testMessages()

	for i, m := range msgs {
		added, err := s.Add(m)
		if err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		if !added {
			t.Fatalf("message %d must be newly added", i)
		}
	}

	// Re-adding identical content is a no-op.
	added, err := s.Add(msgs[0])
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if added {
		t.Fatal("duplicate content must not be added twice")
	}

	all, err := s.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != len(msgs) {
		t.Fatalf("expected %d messages, got %d", len(msgs), len(all))
	}
	for i := range msgs {
		if all[i].Hash() != msgs[i].Hash() {
			t.Fatalf("message %d came back different", i)
		}
	}
	if cfg, ok := all[0].Artifact.(wire.Configuration); !ok || cfg.SessionID != "s" {
		t.Fatalf("artifact must survive the round trip, got %#v", all[0].Artifact)
	}

	cursor, err := s.Cursor()
	if err != nil {
		t.Fatalf("cursor: %v", err)
	}
	if cursor != len(msgs) {
		t.Fatalf("cursor must equal stored count: got %d want %d", cursor, len(msgs))
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	exerciseStore(t, s)
}

func TestBoltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trustee.db")
	s, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	exerciseStore(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopen: a restarted trustee resumes with its full local history.
	s2, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	all, err := s2.All()
	if err != nil {
		t.Fatalf("all after reopen: %v", err)
	}
	if len(all) != len(testMessages()) {
		t.Fatalf("expected %d messages after reopen, got %d", len(testMessages()), len(all))
	}
	if added, err := s2.Add(testMessages()[0]); err != nil || added {
		t.Fatalf("dedup must survive a restart: added=%v err=%v", added, err)
	}
}
