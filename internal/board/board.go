// Package board implements the Board Client component (§4.1): the
// transport a trustee uses to fetch new messages and post its own,
// independent of the wire format or the transport used underneath.
package board

import (
	"context"

	"github.com/pkg/errors"

	"github.com/braidnet/trustee/pkg/wire"
)

// Client is the minimal capability a session loop needs from a board
// (§4.1: "get_messages(board, since_id) -> []Message", "insert_messages(
// board, []Message) -> error"). ListBoards supports the coordinator's
// discovery of which boards exist to assign across worker pools (§5).
type Client interface {
	// GetMessages returns every message on board with a board-assigned id
	// strictly greater than since, in ascending id order. The id stream is
	// dense except where Channel-kind messages have been pruned (§6.2), so
	// callers track the maximum id seen, never a count.
	GetMessages(ctx context.Context, board string, since uint64) ([]wire.Message, error)
	// InsertMessages posts msgs to board, in order. The board is
	// responsible for assigning each message its ID.
	InsertMessages(ctx context.Context, board string, msgs []wire.Message) error
	// ListBoards enumerates the boards this client currently knows about.
	ListBoards(ctx context.Context) ([]string, error)
	Close() error
}

// Transient errors are worth retrying: a dropped connection, a timeout, a
// momentarily unavailable board. Permanent errors mean this request will
// never succeed as given: a signature the board itself rejected, a board
// that doesn't exist. The session loop and coordinator treat the two very
// differently (§7: "Board errors: transient (retry) vs permanent (log and
// skip this board this cycle)").
type Transient struct{ Err error }

func (e *Transient) Error() string { return "board: transient: " + e.Err.Error() }
func (e *Transient) Unwrap() error { return e.Err }

type Permanent struct{ Err error }

func (e *Permanent) Error() string { return "board: permanent: " + e.Err.Error() }
func (e *Permanent) Unwrap() error { return e.Err }

// IsTransient reports whether err (or anything it wraps) is a Transient.
func IsTransient(err error) bool {
	var t *Transient
	return errors.As(err, &t)
}

// IsPermanent reports whether err (or anything it wraps) is a Permanent.
func IsPermanent(err error) bool {
	var p *Permanent
	return errors.As(err, &p)
}

// ErrNoSuchBoard is wrapped in a Permanent when a board name has no
// registered backing store.
var ErrNoSuchBoard = errors.New("board: no such board")
