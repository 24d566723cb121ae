package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/braidnet/trustee/internal/auditlog"
	"github.com/braidnet/trustee/internal/crypto"
	"github.com/braidnet/trustee/internal/store"
	"github.com/braidnet/trustee/internal/trustee"
	"github.com/braidnet/trustee/pkg/wire"
)

// stubClient replays canned fetch batches and records every since value
// the loop asks with, so a test can pin the cursor's id semantics without
// a real board.
type stubClient struct {
	batches    [][]wire.Message
	call       int
	sinceCalls []uint64
}

func (s *stubClient) GetMessages(_ context.Context, _ string, since uint64) ([]wire.Message, error) {
	s.sinceCalls = append(s.sinceCalls, since)
	if s.call < len(s.batches) {
		b := s.batches[s.call]
		s.call++
		return b, nil
	}
	return nil, nil
}

func (s *stubClient) InsertMessages(context.Context, string, []wire.Message) error { return nil }
func (s *stubClient) ListBoards(context.Context) ([]string, error)                 { return nil, nil }
func (s *stubClient) Close() error                                                 { return nil }

// The cursor must advance to the highest board-assigned id fetched, not
// by message count: a pruned Channel message leaves a hole in the id
// stream (§6.2), and counting across it would re-fetch or skip forever.
func TestStepAdvancesCursorByMaxID(t *testing.T) {
	suite := crypto.NewSuite()
	pm := crypto.GenerateKeyPair(suite)
	tr := trustee.New(1, crypto.GenerateKeyPair(suite), suite, store.NewMemory())

	channel := func(id uint64) wire.Message {
		return wire.Message{ID: id, Statement: wire.Statement{Kind: wire.KindChannel, ChannelTopic: "refresh"}}
	}
	client := &stubClient{batches: [][]wire.Message{
		{channel(2), channel(5)}, // ids 1, 3 and 4 already pruned from the board
		{channel(9)},
	}}

	loop := NewLoop("b", client, tr, NewVerifier(suite, pm.VerifyKey(), tr), auditlog.New(auditlog.Config{}), false)

	ctx := context.Background()
	require.NoError(t, loop.Step(ctx))
	require.NoError(t, loop.Step(ctx))
	require.NoError(t, loop.Step(ctx))

	require.Equal(t, []uint64{0, 5, 9}, client.sinceCalls,
		"each fetch must resume from the highest id previously seen")
}
