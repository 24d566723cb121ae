// Package wire defines the canonical, content-addressed data model shared by
// every trustee: typed hashes, artifacts, statements and messages. Two
// implementations of the protocol must agree byte-for-byte on everything in
// this package.
package wire

// HashLen is the fixed length of every content address in the protocol.
const HashLen = 64

// MaxTrustees bounds the size of every TrusteeSet/Hashes array. It is not a
// tunable: predicates are fixed-size relation tuples and widening it is a
// protocol break.
const MaxTrustees = 12

// Reserved signer positions. Real trustees occupy 1..MaxTrustees.
const (
	ProtocolManagerIndex TrusteePosition = 1000
	VerifierIndex        TrusteePosition = 2000
	NullTrustee          TrusteePosition = 1001
)

// Hash is a fixed-length content address. It is produced by hashing the
// canonical encoding of an artifact, statement or message (see encode.go).
type Hash [HashLen]byte

// NullHash marks an unused slot in a Hashes array.
var NullHash = Hash{}

func (h Hash) IsNull() bool { return h == NullHash }

// TrusteePosition is a 1-based position in a session's Configuration, or one
// of the reserved sentinel values above.
type TrusteePosition int

// TrusteeSet is a fixed-size, sentinel-terminated set of trustee positions.
// Using a fixed array rather than a slice keeps predicates Copy-friendly and
// directly comparable, which is required for them to behave as relation
// tuples in the datalog engine (see internal/predicate).
type TrusteeSet [MaxTrustees]TrusteePosition

// NewTrusteeSet returns a TrusteeSet containing exactly the given positions,
// in order, padded with NullTrustee.
func NewTrusteeSet(positions ...TrusteePosition) TrusteeSet {
	var ts TrusteeSet
	for i := range ts {
		ts[i] = NullTrustee
	}
	copy(ts[:], positions)
	return ts
}

// Count returns the number of non-sentinel entries.
func (ts TrusteeSet) Count() int {
	n := 0
	for _, t := range ts {
		if t != NullTrustee {
			n++
		}
	}
	return n
}

// Contains reports whether t is present in the set.
func (ts TrusteeSet) Contains(t TrusteePosition) bool {
	for _, v := range ts {
		if v == t {
			return true
		}
	}
	return false
}

// Slice returns the non-sentinel entries as a plain slice, preserving order.
func (ts TrusteeSet) Slice() []TrusteePosition {
	out := make([]TrusteePosition, 0, MaxTrustees)
	for _, t := range ts {
		if t == NullTrustee {
			break
		}
		out = append(out, t)
	}
	return out
}

// THashes is a fixed-size, sentinel-terminated set of hashes, used for every
// "combined across trustees" hash family (SharesHashes, CommitmentsHashes,
// DecryptionFactorsHashes, MixingHashes).
type THashes [MaxTrustees]Hash

// NewTHashes returns a THashes array containing exactly the given hashes, in
// order, padded with NullHash.
func NewTHashes(hashes ...Hash) THashes {
	var th THashes
	copy(th[:], hashes)
	for i := len(hashes); i < MaxTrustees; i++ {
		th[i] = NullHash
	}
	return th
}

// Set returns a copy of th with position index set to value.
func (th THashes) Set(index int, value Hash) THashes {
	th[index] = value
	return th
}

// Add appends value at the first NULL_HASH slot, returning the modified
// array. Panics if the array is already full — callers only ever add up to
// one entry per known trustee, which is bounded by MaxTrustees by
// construction (see datalog rules).
func (th THashes) Add(value Hash) THashes {
	for i, h := range th {
		if h == NullHash {
			th[i] = value
			return th
		}
	}
	panic("wire: THashes already full")
}

// Count returns the number of non-sentinel entries.
func (th THashes) Count() int {
	n := 0
	for _, h := range th {
		if h != NullHash {
			n++
		}
	}
	return n
}

// Typed hash newtypes. Distinct logical roles get distinct Go types even
// though the underlying representation is identical, so a CiphertextsHash
// and a PlaintextsHash can never be passed to each other's parameter by
// mistake — the compiler catches it.

type ConfigurationHash Hash
type SharesHash Hash
type SharesHashes THashes
type CommitmentsHash Hash
type CommitmentsHashes THashes
type PublicKeyHash Hash
type CiphertextsHash Hash
type DecryptionFactorsHash Hash
type DecryptionFactorsHashes THashes
type PlaintextsHash Hash
type MixingHashes THashes

// BatchNumber identifies one independently-processed unit of ballots within
// a session. MixNumber is the 1-based position of a mix within the chain of
// length t (distinct from the position of the mixing trustee, which is set
// by the Ballots artifact's SelectedTrustees).
type BatchNumber int
type MixNumber int
type Threshold int
