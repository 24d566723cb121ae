package action

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/braidnet/trustee/pkg/wire"
)

// ErrNotFound is returned by a handler when the artifact it needs has not
// yet been observed locally. Per §7 this is "treat as do nothing this
// cycle": the session loop logs it at debug level and moves on, trusting
// the next pass to make progress once the missing artifact arrives.
var ErrNotFound = errors.New("action: required artifact not yet observed")

// Outcome enumerates the non-"do nothing" outcomes a handler can report.
type Outcome int

const (
	// Abstain: a verification this trustee performed locally did not check
	// out (a received share failed VerifyShare, a recomputed public key or
	// public share didn't match). Per §4.4.2 the correct response is to
	// skip posting the countersignature and log, not to treat the whole
	// run as broken.
	Abstain Outcome = iota + 1
	// BatchAbort: a shuffle or decryption proof failed verification for a
	// specific batch. Per the action catalog's SignMix/SignPlaintexts
	// entries, this aborts processing for that batch only, not the
	// session.
	BatchAbort
)

// Error reports an Abstain or BatchAbort outcome for one handler
// invocation.
type Error struct {
	Outcome Outcome
	Action  Kind
	CfgH    wire.ConfigurationHash
	Batch   wire.BatchNumber
	Reason  string
}

func (e *Error) Error() string {
	switch e.Outcome {
	case Abstain:
		return fmt.Sprintf("action: abstained from %s (cfg=%x batch=%d): %s", e.Action, e.CfgH, e.Batch, e.Reason)
	case BatchAbort:
		return fmt.Sprintf("action: aborted batch for %s (cfg=%x batch=%d): %s", e.Action, e.CfgH, e.Batch, e.Reason)
	default:
		return fmt.Sprintf("action: error (cfg=%x batch=%d): %s", e.CfgH, e.Batch, e.Reason)
	}
}

// IsAbstain reports whether err is an Abstain-outcome Error.
func IsAbstain(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Outcome == Abstain
}

// IsBatchAbort reports whether err is a BatchAbort-outcome Error.
func IsBatchAbort(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Outcome == BatchAbort
}
