package board

import (
	"context"
	"testing"

	"github.com/braidnet/trustee/pkg/wire"
)

func msg(kind wire.StatementKind, signer wire.TrusteePosition, sig byte) wire.Message {
	return wire.Message{
		Statement: wire.Statement{Kind: kind, SignerT: signer},
		Signature: []byte{sig},
	}
}

func TestMemoryOrderingAndCursor(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(NewRegistry())

	first := msg(wire.KindConfigurationSigned, 1, 1)
	second := msg(wire.KindConfigurationSigned, 2, 2)
	if err := m.InsertMessages(ctx, "b", []wire.Message{first, second}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	all, err := m.GetMessages(ctx, "b", 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(all))
	}
	if all[0].Statement.SignerT != 1 || all[1].Statement.SignerT != 2 {
		t.Fatal("messages must come back in insertion order")
	}
	if all[0].ID != 1 || all[1].ID != 2 {
		t.Fatalf("the board must assign increasing ids, got %d then %d", all[0].ID, all[1].ID)
	}

	tail, err := m.GetMessages(ctx, "b", all[0].ID)
	if err != nil {
		t.Fatalf("get since: %v", err)
	}
	if len(tail) != 1 || tail[0].Statement.SignerT != 2 {
		t.Fatalf("since=first id must return only the second message, got %v", tail)
	}

	if got, _ := m.GetMessages(ctx, "b", all[1].ID); len(got) != 0 {
		t.Fatal("a caught-up cursor must return nothing")
	}
}

// Re-posting identical content is idempotent: the log dedups by content
// hash, so a retried insert cannot double a predicate's evidence (§4.1
// "Insertion is idempotent in effect").
func TestMemoryDeduplicatesByContent(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()
	a := NewMemory(registry)
	b := NewMemory(registry)

	same := msg(wire.KindConfigurationSigned, 1, 9)
	if err := a.InsertMessages(ctx, "b", []wire.Message{same}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := b.InsertMessages(ctx, "b", []wire.Message{same}); err != nil {
		t.Fatalf("re-insert: %v", err)
	}

	all, _ := a.GetMessages(ctx, "b", 0)
	if len(all) != 1 {
		t.Fatalf("duplicate content must collapse to one message, got %d", len(all))
	}
}

func TestMemorySharedRegistryAndListBoards(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()
	a := NewMemory(registry)
	b := NewMemory(registry)

	if err := a.InsertMessages(ctx, "zeta", []wire.Message{msg(wire.KindConfigurationSigned, 1, 1)}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := a.InsertMessages(ctx, "alpha", []wire.Message{msg(wire.KindConfigurationSigned, 2, 2)}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	seen, err := b.GetMessages(ctx, "zeta", 0)
	if err != nil || len(seen) != 1 {
		t.Fatalf("clients on one registry must share boards: %v, %d messages", err, len(seen))
	}

	boards, err := b.ListBoards(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(boards) != 2 || boards[0] != "alpha" || boards[1] != "zeta" {
		t.Fatalf("expected sorted board names [alpha zeta], got %v", boards)
	}

	if got, err := b.GetMessages(ctx, "unknown", 0); err != nil || len(got) != 0 {
		t.Fatalf("an unknown board reads as empty, not an error: %v %v", got, err)
	}
}
