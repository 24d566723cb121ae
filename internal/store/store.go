// Package store persists the set of board messages a trustee has locally
// observed: the board is the shared remote log, the store is each
// trustee's local, durable copy it rebuilds predicates from on every
// session step (§4.6 step 1-2).
package store

import "github.com/braidnet/trustee/pkg/wire"

// Store is the local, append-only record of every message a trustee has
// fetched from the board. It never removes or rewrites an entry, matching
// the predicate set's own monotonicity (§4.3).
type Store interface {
	// Add appends msg if no message with the same content hash
	// (wire.Message.Hash) has already been recorded, returning whether it
	// was newly added.
	Add(msg wire.Message) (bool, error)
	// All returns every stored message in insertion order.
	All() ([]wire.Message, error)
	// Cursor returns the number of messages currently stored. The session
	// loop does not use it as its board fetch offset; it tracks the highest
	// board-assigned id itself.
	Cursor() (int, error)
	Close() error
}
