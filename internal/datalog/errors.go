package datalog

import (
	"fmt"

	"github.com/braidnet/trustee/pkg/wire"
)

// Error is the engine-level error surfaced to the session loop when a
// datalog-level error predicate is emitted during a run (§4.3: "Errors are
// themselves predicates ... emitting one aborts the run with a
// DatalogError").
type Error struct {
	Kind  ErrorKind
	CfgH  wire.ConfigurationHash
	Batch wire.BatchNumber
}

// ErrorKind enumerates the datalog-level error predicates.
type ErrorKind int

const (
	// ErrMixRepeat: two distinct signed mixes exist at the same position
	// by the same trustee (§4.4.5).
	ErrMixRepeat ErrorKind = iota + 1
)

func (e *Error) Error() string {
	switch e.Kind {
	case ErrMixRepeat:
		return fmt.Sprintf("datalog: MixRepeat(cfg=%x, batch=%d)", e.CfgH, e.Batch)
	default:
		return fmt.Sprintf("datalog: unknown error kind %d", e.Kind)
	}
}
