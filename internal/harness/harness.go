// Package harness drives a complete multi-trustee protocol run — DKG
// through the terminal Z predicate — against an in-process Memory board,
// with no network anywhere. It exists for tests only; nothing under
// cmd/ imports it.
package harness

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.dedis.ch/kyber/v3"

	"github.com/braidnet/trustee/internal/auditlog"
	"github.com/braidnet/trustee/internal/board"
	"github.com/braidnet/trustee/internal/crypto"
	"github.com/braidnet/trustee/internal/datalog"
	"github.com/braidnet/trustee/internal/predicate"
	"github.com/braidnet/trustee/internal/session"
	"github.com/braidnet/trustee/internal/store"
	"github.com/braidnet/trustee/internal/trustee"
	"github.com/braidnet/trustee/pkg/wire"
)

// Harness is a ready-to-run session: one protocol manager identity, N
// trustees each with their own in-memory store and session.Loop, all
// sharing one Memory board.
type Harness struct {
	Suite     crypto.Suite
	PM        crypto.KeyPair
	PMKey     []byte
	Config    wire.Configuration
	CfgH      wire.ConfigurationHash
	Threshold int
	N         int

	board     string
	client    *board.Memory
	trustees  []*trustee.Trustee
	loops     []*session.Loop
}

// New builds a Harness for n trustees and a given threshold, and posts the
// bootstrap Configuration to the board. boardName lets a caller run several
// independent sessions against distinct boards in one registry.
func New(registry *board.Registry, boardName string, n, threshold int) (*Harness, error) {
	suite := crypto.NewSuite()
	pm := crypto.GenerateKeyPair(suite)

	keys := make([]crypto.KeyPair, n)
	publics := make([][]byte, n)
	for i := 0; i < n; i++ {
		keys[i] = crypto.GenerateKeyPair(suite)
		publics[i] = keys[i].VerifyKey()
	}

	cfg := wire.Configuration{
		SessionID:             boardName,
		GroupID:               "edwards25519",
		ProtocolManagerPublic: pm.VerifyKey(),
		TrusteePublics:        publics,
		Threshold:             wire.Threshold(threshold),
	}
	cfgH := wire.ConfigurationHash(wire.HashArtifact(cfg))

	client := board.NewMemory(registry)
	boot, err := wire.BootstrapMessage(pm, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "harness: build bootstrap message")
	}
	ctx := context.Background()
	if err := client.InsertMessages(ctx, boardName, []wire.Message{boot}); err != nil {
		return nil, errors.Wrap(err, "harness: post bootstrap message")
	}

	h := &Harness{
		Suite:     suite,
		PM:        pm,
		PMKey:     pm.VerifyKey(),
		Config:    cfg,
		CfgH:      cfgH,
		Threshold: threshold,
		N:         n,
		board:     boardName,
		client:    client,
	}

	audit := auditlog.New(auditlog.Config{})
	for i := 1; i <= n; i++ {
		pos := wire.TrusteePosition(i)
		tr := trustee.New(pos, keys[i-1], suite, store.NewMemory())
		verifier := session.NewVerifier(suite, h.PMKey, tr)
		loop := session.NewLoop(boardName, client, tr, verifier, audit, false)
		h.trustees = append(h.trustees, tr)
		h.loops = append(h.loops, loop)
	}
	return h, nil
}

// Step runs exactly one fetch/derive/act/post cycle for every trustee, in
// position order, and returns the first error a trustee's step reports
// (board/strict-mode errors only; NotFound and abstain/abort outcomes are
// handled internally by session.Loop.Step).
func (h *Harness) Step(ctx context.Context) error {
	return h.StepExcept(ctx)
}

// StepExcept runs one cycle for every trustee except those in excluded,
// simulating a trustee that has stopped participating (a crash, or an
// operator taking it offline) without removing its state.
func (h *Harness) StepExcept(ctx context.Context, excluded ...wire.TrusteePosition) error {
	skip := map[wire.TrusteePosition]struct{}{}
	for _, p := range excluded {
		skip[p] = struct{}{}
	}
	for i, loop := range h.loops {
		pos := wire.TrusteePosition(i + 1)
		if _, ok := skip[pos]; ok {
			continue
		}
		if err := loop.Step(ctx); err != nil {
			return errors.Wrapf(err, "harness: trustee %d step", i+1)
		}
	}
	return nil
}

// Post injects messages directly onto the board, bypassing every trustee's
// action pipeline. Tests use this to simulate a misbehaving sender (e.g. a
// second, conflicting Mix at the same position) that no honest trustee
// would ever construct through normal operation.
func (h *Harness) Post(ctx context.Context, msgs ...wire.Message) error {
	return h.client.InsertMessages(ctx, h.board, msgs)
}

// RunUntil steps every trustee in round-robin order until condition
// returns true or maxRounds is reached, whichever comes first. condition
// receives the harness's own view of the full board, rebuilt from
// scratch every round.
func (h *Harness) RunUntil(ctx context.Context, maxRounds int, condition func(*predicate.Set) bool) (int, error) {
	for round := 0; round < maxRounds; round++ {
		if err := h.Step(ctx); err != nil {
			return round, err
		}
		set, err := h.Predicates(ctx)
		if err != nil {
			return round, err
		}
		if condition(set) {
			return round, nil
		}
	}
	return maxRounds, errors.New("harness: condition not reached within round budget")
}

// Messages returns every message currently on the board.
func (h *Harness) Messages(ctx context.Context) ([]wire.Message, error) {
	return h.client.GetMessages(ctx, h.board, 0)
}

// Predicates rebuilds the predicate set from the board's full history, as
// seen from outside any single trustee: messages whose signature does not
// verify under their declared sender key are left out, and the datalog
// phases then derive the aggregate predicates with self as the null
// trustee, since the harness itself signs nothing.
func (h *Harness) Predicates(ctx context.Context) (*predicate.Set, error) {
	msgs, err := h.Messages(ctx)
	if err != nil {
		return nil, err
	}
	var accepted []wire.Message
	for _, m := range msgs {
		if crypto.VerifyMessage(h.Suite, m) == nil {
			accepted = append(accepted, m)
		}
	}
	set := predicate.Build(accepted)
	datalog.Run(set, wire.NullTrustee)
	return set, nil
}

// RunDKG steps every trustee until the combined public key has been
// countersigned by all n trustees (§4.4.2's exit condition), or returns an
// error once maxRounds is exhausted.
func (h *Harness) RunDKG(ctx context.Context, maxRounds int) error {
	_, err := h.RunUntil(ctx, maxRounds, func(set *predicate.Set) bool {
		for pk := range set.PublicKeySignedAll {
			if pk.CfgH == h.CfgH {
				return true
			}
		}
		return false
	})
	return err
}

// PublicKey resolves the combined DKG public key element from the board,
// once RunDKG has completed.
func (h *Harness) PublicKey(ctx context.Context) (kyber.Point, wire.PublicKeyHash, error) {
	msgs, err := h.Messages(ctx)
	if err != nil {
		return nil, wire.PublicKeyHash{}, err
	}
	for _, m := range msgs {
		if m.Statement.Kind != wire.KindPublicKey || m.Statement.ConfigurationHash != h.CfgH {
			continue
		}
		pk, ok := m.Artifact.(wire.DkgPublicKey)
		if !ok {
			continue
		}
		p, err := h.Suite.UnmarshalPoint(pk.PK)
		if err != nil {
			return nil, wire.PublicKeyHash{}, errors.Wrap(err, "harness: unmarshal combined public key")
		}
		return p, m.Statement.PublicKeyHash, nil
	}
	return nil, wire.PublicKeyHash{}, errors.New("harness: no public key posted yet")
}

// PostBallots embeds each plaintext as a group element, encrypts it under
// the session's combined public key, and posts the resulting batch as the
// protocol manager, selecting every trustee (in position order) to mix and
// decrypt it. It returns the ciphertext batch hash the returned Z
// predicate will reference.
func (h *Harness) PostBallots(ctx context.Context, batch wire.BatchNumber, plaintexts [][]byte) (wire.CiphertextsHash, error) {
	pk, pkH, err := h.PublicKey(ctx)
	if err != nil {
		return wire.CiphertextsHash{}, err
	}

	ciphertexts := make([]wire.ElGamalCiphertext, len(plaintexts))
	for i, pt := range plaintexts {
		m, err := crypto.EncodePlaintext(h.Suite, pt)
		if err != nil {
			return wire.CiphertextsHash{}, errors.Wrapf(err, "harness: encode ballot %d", i)
		}
		c, err := crypto.Encrypt(h.Suite, pk, m)
		if err != nil {
			return wire.CiphertextsHash{}, errors.Wrapf(err, "harness: encrypt ballot %d", i)
		}
		ciphertexts[i] = c
	}
	ballots := wire.Ballots{Ciphertexts: ciphertexts}

	positions := make([]wire.TrusteePosition, h.N)
	for i := range positions {
		positions[i] = wire.TrusteePosition(i + 1)
	}
	selected := wire.NewTrusteeSet(positions...)

	msg, err := wire.BallotsMessage(h.PM, h.CfgH, batch, ballots, pkH, selected)
	if err != nil {
		return wire.CiphertextsHash{}, errors.Wrap(err, "harness: build ballots message")
	}
	if err := h.client.InsertMessages(ctx, h.board, []wire.Message{msg}); err != nil {
		return wire.CiphertextsHash{}, errors.Wrap(err, "harness: post ballots")
	}
	return msg.Statement.BallotsHash, nil
}

// RunToZ steps every trustee until batch reaches the terminal Z predicate
// for ballotsH, or the round budget is exhausted.
func (h *Harness) RunToZ(ctx context.Context, maxRounds int, batch wire.BatchNumber, ballotsH wire.CiphertextsHash) (predicate.Z, error) {
	var z predicate.Z
	_, err := h.RunUntil(ctx, maxRounds, func(set *predicate.Set) bool {
		for zp := range set.Z {
			if zp.CfgH == h.CfgH && zp.Batch == batch && zp.BallotsH == ballotsH {
				z = zp
				return true
			}
		}
		return false
	})
	return z, err
}

// Plaintexts resolves the final decrypted batch's recovered messages once
// RunToZ has completed. The posted Plaintexts artifact already carries the
// decoded bytes (the decryptor embedding-decodes each group element before
// posting, §4.4.4), so no further unwrapping happens here.
func (h *Harness) Plaintexts(ctx context.Context, z predicate.Z) ([][]byte, error) {
	msgs, err := h.Messages(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		if m.Statement.Kind != wire.KindPlaintexts || m.Statement.PlaintextsHash != z.PlaintextsH {
			continue
		}
		pt, ok := m.Artifact.(wire.Plaintexts)
		if !ok {
			continue
		}
		return pt.Plaintexts, nil
	}
	return nil, fmt.Errorf("harness: no plaintexts message found for batch %d", z.Batch)
}

// Trustee returns the indexed Trustee at position pos (1-based), for
// assertions that need to reach into a single trustee's local view (e.g.
// checking it abstained, or inspecting its combined DKG share).
func (h *Harness) Trustee(pos wire.TrusteePosition) *trustee.Trustee {
	return h.trustees[pos-1]
}
