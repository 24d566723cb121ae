// Package action defines the dispatchable units of work the datalog
// engine infers (§4.5) and the interface trustee-side handlers implement
// to execute them.
package action

import "github.com/braidnet/trustee/pkg/wire"

// Kind discriminates the ten action types in the catalog.
type Kind int

const (
	SignConfiguration Kind = iota + 1
	PostCommitments
	PostShares
	PostPublicKey
	SignPublicKey
	Mix
	SignMix
	PostDecryptionFactors
	PostPlaintexts
	SignPlaintexts
)

func (k Kind) String() string {
	switch k {
	case SignConfiguration:
		return "SignConfiguration"
	case PostCommitments:
		return "PostCommitments"
	case PostShares:
		return "PostShares"
	case PostPublicKey:
		return "PostPublicKey"
	case SignPublicKey:
		return "SignPublicKey"
	case Mix:
		return "Mix"
	case SignMix:
		return "SignMix"
	case PostDecryptionFactors:
		return "PostDecryptionFactors"
	case PostPlaintexts:
		return "PostPlaintexts"
	case SignPlaintexts:
		return "SignPlaintexts"
	default:
		return "Unknown"
	}
}

// Action is a single inferred unit of work. It is a plain comparable
// struct (no pointers/slices) so a set of Actions can be deduplicated with
// a map, matching "Actions are deduplicated across phases (set semantics)
// before execution" (§4.5). Only the fields relevant to Kind are
// meaningful.
type Action struct {
	Kind Kind

	CfgH  wire.ConfigurationHash
	Batch wire.BatchNumber

	PKH          wire.PublicKeyHash
	SharesHashes wire.SharesHashes

	CommitmentsHashes wire.CommitmentsHashes

	SourceH wire.CiphertextsHash
	TargetH wire.CiphertextsHash
	MixNo   wire.MixNumber

	CiphertextsH            wire.CiphertextsHash
	DecryptionFactorsHashes wire.DecryptionFactorsHashes
	PlaintextsH             wire.PlaintextsHash

	// SelfT is the acting trustee's own position, carried so a handler
	// never needs anything beyond the Action plus the trustee's local
	// store to execute.
	SelfT wire.TrusteePosition
}

// Set is a deduplicating collection of pending actions, built up across
// phases and drained once per session step (§4.6 step 3-4).
type Set map[Action]struct{}

// NewSet returns an empty action set.
func NewSet() Set { return Set{} }

// Add inserts act if not already present.
func (s Set) Add(act Action) { s[act] = struct{}{} }

// Slice returns the actions in no particular order — the engine
// guarantees correctness through predicates, not action ordering (§4.4
// step 4: "Execute actions in arbitrary order").
func (s Set) Slice() []Action {
	out := make([]Action, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	return out
}
