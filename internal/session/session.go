// Package session drives one trustee's per-board step loop (§4.6): fetch
// new messages, store them, rebuild the predicate set from the full local
// history, run the datalog engine to a fixed point, execute the resulting
// actions, post what they produce, and advance the local cursor. Each board
// a trustee participates in runs its own independent Loop.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/braidnet/trustee/internal/action"
	"github.com/braidnet/trustee/internal/auditlog"
	"github.com/braidnet/trustee/internal/board"
	"github.com/braidnet/trustee/internal/datalog"
	"github.com/braidnet/trustee/internal/predicate"
	"github.com/braidnet/trustee/internal/trustee"
	"github.com/braidnet/trustee/pkg/wire"
)

// Loop is one board's fetch/derive/act/post cycle.
type Loop struct {
	Board    string
	Client   board.Client
	Trustee  *trustee.Trustee
	Verifier *Verifier
	Audit    *auditlog.Log
	Log      *logrus.Entry

	// Strict terminates the loop outright on an action handler's
	// unexpected (non-Abstain, non-BatchAbort, non-NotFound) error —
	// §7's Fatal(Crypto) row — instead of logging and continuing with the
	// next board. Datalog-level errors (MixRepeat) never reach here: they
	// are batch-scoped by construction and only ever abort their own
	// batch, never the session (§4.4.5, §7).
	Strict bool

	runID string

	// cursor is the highest board-assigned message id read so far, the
	// "last-ingested id" of §6.3. It advances by observed id, never by
	// count: the id stream has holes where Channel messages were pruned
	// (§6.2), and counting would silently skip or re-fetch across them.
	cursor uint64
}

// NewLoop returns a Loop over board, starting its local cursor at 0 (the
// trustee's full history is always rebuilt from the store, per §4.6, so the
// cursor only tracks how far the remote board has been read). verifier
// enforces §4.2's signature/position check on every fetched message before
// it reaches the local store.
func NewLoop(boardName string, client board.Client, tr *trustee.Trustee, verifier *Verifier, audit *auditlog.Log, strict bool) *Loop {
	runID := uuid.NewString()
	return &Loop{
		Board:    boardName,
		Client:   client,
		Trustee:  tr,
		Verifier: verifier,
		Audit:    audit,
		Strict:   strict,
		Log:      logrus.WithFields(logrus.Fields{"board": boardName, "run": runID}),
		runID:    runID,
	}
}

// ErrStrictTermination is returned by Run when a strict-mode Loop
// encounters a disagreement it will not silently tolerate.
var ErrStrictTermination = errors.New("session: strict mode terminated")

// Run steps the loop every interval until ctx is canceled or a strict-mode
// termination occurs.
func (l *Loop) Run(ctx context.Context, interval time.Duration) error {
	l.Audit.SessionStarted(l.runID, l.Board)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Audit.SessionStopped(l.runID, l.Board, nil)
			return nil
		case <-ticker.C:
			err := l.Step(ctx)
			if err == nil {
				continue
			}
			if board.IsTransient(err) {
				l.Log.WithError(err).Debug("transient board error, retrying next cycle")
				continue
			}
			if board.IsPermanent(err) {
				l.Log.WithError(err).Warn("permanent board error, skipping board this cycle")
				continue
			}
			if errors.Is(err, ErrStrictTermination) {
				l.Audit.StrictModeTerminated(l.runID, l.Board, err.Error())
				l.Audit.SessionStopped(l.runID, l.Board, err)
				return err
			}
			l.Log.WithError(err).Error("step failed")
		}
	}
}

// Step runs exactly one fetch/derive/act/post cycle.
func (l *Loop) Step(ctx context.Context) error {
	fetched, err := l.Client.GetMessages(ctx, l.Board, l.cursor)
	if err != nil {
		return err
	}
	for _, m := range fetched {
		// The cursor tracks every id the board handed back, including
		// Channel messages and messages the verifier rejects: both are
		// final dispositions, not races worth re-fetching.
		if m.ID > l.cursor {
			l.cursor = m.ID
		}
		if m.Statement.Kind == wire.KindChannel {
			// Ephemeral: never persisted into the predicate set (§6.1, §6.2).
			continue
		}
		if !l.Verifier.Verify(m) {
			l.Log.WithField("sender", m.Sender.Position).Warn("rejected message: signature or signer position invalid")
			continue
		}
		added, err := l.Trustee.Store().Add(m)
		if err != nil {
			return errors.Wrap(err, "session: store message")
		}
		if added {
			// Make a freshly-accepted Configuration resolvable immediately,
			// so a later message in this same fetch batch that references
			// it can be verified against its trustee keys (§4.2).
			l.Trustee.IndexOne(m)
		}
	}

	if err := l.Trustee.Refresh(); err != nil {
		return errors.Wrap(err, "session: refresh index")
	}

	messages, err := l.Trustee.Messages()
	if err != nil {
		return errors.Wrap(err, "session: read messages")
	}
	set := predicate.Build(messages)

	acts, datalogErrs := datalog.Run(set, l.Trustee.Self)
	// Each datalogErrs entry is batch-scoped (§4.4.5, §7): it aborts only
	// its own (cfg, batch) pair, so acts — which already excludes further
	// shuffle/decrypt actions for that batch — is still executed in full
	// for every other batch and configuration this step.
	for _, dErr := range datalogErrs {
		l.Audit.DatalogError(l.runID, l.Board, dErr)
	}

	var toPost []wire.Message
	for a := range acts {
		msg, err := action.Execute(l.Trustee, a)
		if err != nil {
			if action.IsAbstain(err) {
				l.Audit.ProofInvalid(l.runID, l.Board, a.CfgH, a.Batch, "abstain", err.Error())
				continue
			}
			if action.IsBatchAbort(err) {
				l.Audit.ProofInvalid(l.runID, l.Board, a.CfgH, a.Batch, "batch_abort", err.Error())
				continue
			}
			if errors.Is(err, action.ErrNotFound) {
				l.Log.WithField("action", a.Kind).Debug("required artifact not yet observed, skipping this cycle")
				continue
			}
			l.Log.WithError(err).WithField("action", a.Kind).Error("action execution failed")
			if l.Strict {
				return errors.Wrap(ErrStrictTermination, err.Error())
			}
			continue
		}
		toPost = append(toPost, msg)
	}

	if len(toPost) == 0 {
		return nil
	}
	if err := l.Client.InsertMessages(ctx, l.Board, toPost); err != nil {
		return err
	}
	for _, m := range toPost {
		if _, err := l.Trustee.Store().Add(m); err != nil {
			return errors.Wrap(err, "session: store posted message")
		}
	}
	return l.Trustee.Refresh()
}
