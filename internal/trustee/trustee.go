// Package trustee implements each trustee's local, durable view of the
// protocol (§3.5, §4.6): the artifacts it has observed indexed by their
// typed hash, its own DKG dealing and combined secret share, and the
// signing identity it acts under. A Trustee owns its store exclusively —
// it is never shared between sessions (one per board) and never crosses a
// worker-pool boundary (§5 "Shared-resource policy").
package trustee

import (
	"sync"

	"github.com/pkg/errors"
	"go.dedis.ch/kyber/v3"

	"github.com/braidnet/trustee/internal/crypto"
	"github.com/braidnet/trustee/internal/store"
	"github.com/braidnet/trustee/pkg/wire"
)

// ErrNotFound is returned by every accessor when the trustee has not yet
// observed the requested artifact. Per §7 this is "treat as do nothing
// this cycle", never a fatal condition.
var ErrNotFound = errors.New("trustee: artifact not found in local store")

// commitmentsKey/sharesKey/dfactorsKey index artifacts that are scoped to
// a (configuration, signer) or (configuration, batch, signer) pair, which
// the datalog actions address far more often than by raw hash.
type commitmentsKey struct {
	cfgH wire.ConfigurationHash
	t    wire.TrusteePosition
}
type sharesKey struct {
	cfgH wire.ConfigurationHash
	t    wire.TrusteePosition
}
type dfactorsKey struct {
	cfgH  wire.ConfigurationHash
	batch wire.BatchNumber
	t     wire.TrusteePosition
}
type mixKey struct {
	cfgH    wire.ConfigurationHash
	batch   wire.BatchNumber
	sourceH wire.CiphertextsHash
	targetH wire.CiphertextsHash
}
type plaintextsKey struct {
	cfgH  wire.ConfigurationHash
	batch wire.BatchNumber
}

// dkgScratch caches §3.5's per-session "scratch entries": a trustee's own
// dealing and its combined secret share. Both are caches, not the durable
// record — the dealing re-derives deterministically from the signing key
// (see EnsureDealing) and the combined share re-derives from the dealing
// plus peers' stored Shares artifacts, so a restart loses neither.
type dkgScratch struct {
	dealing       *crypto.Dealing
	combinedShare kyber.Scalar
}

// Trustee is one trustee's full local state: signing identity, suite, and
// the artifact index rebuilt from its message store on every session step.
type Trustee struct {
	Self  wire.TrusteePosition
	Keys  crypto.KeyPair
	Suite crypto.Suite

	store store.Store

	mu                 sync.Mutex
	configurations     map[wire.ConfigurationHash]wire.Configuration
	commitments        map[commitmentsKey]wire.Commitments
	commitmentsByCfg   map[wire.ConfigurationHash][]wire.Commitments
	commitmentsByHash  map[wire.CommitmentsHash]wire.Commitments
	shares             map[sharesKey]wire.Shares
	publicKeys         map[wire.PublicKeyHash]wire.DkgPublicKey
	ciphertexts        map[wire.CiphertextsHash][]wire.ElGamalCiphertext
	mixes              map[mixKey]wire.Mix
	decryptionFactors  map[dfactorsKey]wire.DecryptionFactors
	decryptionFactorsByHash map[wire.DecryptionFactorsHash]wire.DecryptionFactors
	plaintexts         map[plaintextsKey]wire.Plaintexts
	scratch            map[wire.ConfigurationHash]*dkgScratch
	lastIndexedCount   int
}

// New returns a Trustee backed by store s, empty until Refresh is called.
func New(self wire.TrusteePosition, keys crypto.KeyPair, suite crypto.Suite, s store.Store) *Trustee {
	return &Trustee{
		Self:              self,
		Keys:              keys,
		Suite:             suite,
		store:             s,
		configurations:    map[wire.ConfigurationHash]wire.Configuration{},
		commitments:       map[commitmentsKey]wire.Commitments{},
		commitmentsByCfg:  map[wire.ConfigurationHash][]wire.Commitments{},
		commitmentsByHash: map[wire.CommitmentsHash]wire.Commitments{},
		shares:            map[sharesKey]wire.Shares{},
		publicKeys:        map[wire.PublicKeyHash]wire.DkgPublicKey{},
		ciphertexts:       map[wire.CiphertextsHash][]wire.ElGamalCiphertext{},
		mixes:             map[mixKey]wire.Mix{},
		decryptionFactors: map[dfactorsKey]wire.DecryptionFactors{},
		decryptionFactorsByHash: map[wire.DecryptionFactorsHash]wire.DecryptionFactors{},
		plaintexts:        map[plaintextsKey]wire.Plaintexts{},
		scratch:           map[wire.ConfigurationHash]*dkgScratch{},
	}
}

// Store returns the trustee's underlying message store, for session-loop
// use (ingest/persist) independent of the artifact index.
func (t *Trustee) Store() store.Store { return t.store }

// Messages returns every message currently in the local store, for
// predicate.Build.
func (t *Trustee) Messages() ([]wire.Message, error) { return t.store.All() }

// Refresh rebuilds the artifact index from the full local store (§4.6
// step 2: predicates — and therefore this index — are built from the
// whole store, not just the delta). It is idempotent and cheap to call
// every step; re-indexing an already-indexed message is a no-op beyond a
// map write.
func (t *Trustee) Refresh() error {
	msgs, err := t.store.All()
	if err != nil {
		return errors.Wrap(err, "trustee: load messages")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(msgs) == t.lastIndexedCount {
		return nil
	}
	for _, m := range msgs {
		t.index(m)
	}
	t.lastIndexedCount = len(msgs)
	return nil
}

// IndexOne folds a single already-verified message into the artifact
// index immediately, without waiting for the next Refresh. The ingest
// pipeline uses this so a Configuration message can be resolved by
// GetConfiguration in time to verify later messages fetched in the same
// batch that reference it (§4.2).
func (t *Trustee) IndexOne(m wire.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.index(m)
}

func (t *Trustee) index(m wire.Message) {
	st := m.Statement
	switch st.Kind {
	case wire.KindConfiguration:
		if cfg, ok := m.Artifact.(wire.Configuration); ok {
			t.configurations[st.ConfigurationHash] = cfg
		}
	case wire.KindCommitments:
		if c, ok := m.Artifact.(wire.Commitments); ok {
			key := commitmentsKey{st.ConfigurationHash, st.SignerT}
			if _, exists := t.commitments[key]; !exists {
				t.commitments[key] = c
				t.commitmentsByCfg[st.ConfigurationHash] = append(t.commitmentsByCfg[st.ConfigurationHash], c)
				t.commitmentsByHash[st.CommitmentsHash] = c
			}
		}
	case wire.KindShares:
		if s, ok := m.Artifact.(wire.Shares); ok {
			t.shares[sharesKey{st.ConfigurationHash, st.SignerT}] = s
		}
	case wire.KindPublicKey:
		if pk, ok := m.Artifact.(wire.DkgPublicKey); ok {
			t.publicKeys[st.PublicKeyHash] = pk
		}
	case wire.KindBallots:
		if b, ok := m.Artifact.(wire.Ballots); ok {
			t.ciphertexts[st.BallotsHash] = b.Ciphertexts
		}
	case wire.KindMix:
		if mx, ok := m.Artifact.(wire.Mix); ok {
			t.ciphertexts[st.TargetHash] = mx.Ciphertexts
			t.mixes[mixKey{st.ConfigurationHash, st.Batch, st.SourceHash, st.TargetHash}] = mx
		}
	case wire.KindDecryptionFactors:
		if df, ok := m.Artifact.(wire.DecryptionFactors); ok {
			t.decryptionFactors[dfactorsKey{st.ConfigurationHash, st.Batch, st.SignerT}] = df
			t.decryptionFactorsByHash[st.DecryptionFactorsHash] = df
		}
	case wire.KindPlaintexts:
		if p, ok := m.Artifact.(wire.Plaintexts); ok {
			t.plaintexts[plaintextsKey{st.ConfigurationHash, st.Batch}] = p
		}
	}
}

// GetConfiguration returns the Configuration artifact addressed by cfgH.
func (t *Trustee) GetConfiguration(cfgH wire.ConfigurationHash) (wire.Configuration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cfg, ok := t.configurations[cfgH]
	if !ok {
		return wire.Configuration{}, ErrNotFound
	}
	return cfg, nil
}

// GetCommitments returns one trustee's posted commitments for cfgH.
func (t *Trustee) GetCommitments(cfgH wire.ConfigurationHash, signer wire.TrusteePosition) (wire.Commitments, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.commitments[commitmentsKey{cfgH, signer}]
	if !ok {
		return wire.Commitments{}, ErrNotFound
	}
	return c, nil
}

// AllCommitments returns every trustee's commitments observed for cfgH, in
// the order they were indexed (ingest/board order, not signer order —
// callers that need signer order, like the DKG public-key and public-share
// computations, sort explicitly).
func (t *Trustee) AllCommitments(cfgH wire.ConfigurationHash) []wire.Commitments {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]wire.Commitments, len(t.commitmentsByCfg[cfgH]))
	copy(out, t.commitmentsByCfg[cfgH])
	return out
}

// GetCommitmentsByHash resolves a CommitmentsHash (as found in a
// CommitmentsHashes array) back to the full artifact, including the
// signer position the hashes-array form strips out.
func (t *Trustee) GetCommitmentsByHash(h wire.CommitmentsHash) (wire.Commitments, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.commitmentsByHash[h]
	if !ok {
		return wire.Commitments{}, ErrNotFound
	}
	return c, nil
}

// GetShares returns one trustee's posted encrypted shares for cfgH.
func (t *Trustee) GetShares(cfgH wire.ConfigurationHash, signer wire.TrusteePosition) (wire.Shares, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.shares[sharesKey{cfgH, signer}]
	if !ok {
		return wire.Shares{}, ErrNotFound
	}
	return s, nil
}

// GetPublicKey returns the combined DKG public key artifact addressed by
// pkH.
func (t *Trustee) GetPublicKey(pkH wire.PublicKeyHash) (wire.DkgPublicKey, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pk, ok := t.publicKeys[pkH]
	if !ok {
		return wire.DkgPublicKey{}, ErrNotFound
	}
	return pk, nil
}

// GetCiphertexts resolves a CiphertextsHash to its ciphertext list,
// whether it names the original ballot batch or any mix's output (§3.1:
// "used interchangeably as a source of ciphertexts").
func (t *Trustee) GetCiphertexts(h wire.CiphertextsHash) ([]wire.ElGamalCiphertext, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cs, ok := t.ciphertexts[h]
	if !ok {
		return nil, ErrNotFound
	}
	return cs, nil
}

// GetMix returns the full Mix artifact (ciphertexts + proof) posted from
// sourceH to targetH for cfgH/batch, needed by the SignMix handler to
// re-verify the shuffle proof.
func (t *Trustee) GetMix(cfgH wire.ConfigurationHash, batch wire.BatchNumber, sourceH, targetH wire.CiphertextsHash) (wire.Mix, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.mixes[mixKey{cfgH, batch, sourceH, targetH}]
	if !ok {
		return wire.Mix{}, ErrNotFound
	}
	return m, nil
}

// GetDecryptionFactors returns one trustee's posted decryption factors.
func (t *Trustee) GetDecryptionFactors(cfgH wire.ConfigurationHash, batch wire.BatchNumber, signer wire.TrusteePosition) (wire.DecryptionFactors, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	df, ok := t.decryptionFactors[dfactorsKey{cfgH, batch, signer}]
	if !ok {
		return wire.DecryptionFactors{}, ErrNotFound
	}
	return df, nil
}

// GetDecryptionFactorsByHash resolves a DecryptionFactorsHash (as found in
// a DecryptionFactorsHashes array) back to the full artifact, including
// the signer position the hashes-array form strips out.
func (t *Trustee) GetDecryptionFactorsByHash(h wire.DecryptionFactorsHash) (wire.DecryptionFactors, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	df, ok := t.decryptionFactorsByHash[h]
	if !ok {
		return wire.DecryptionFactors{}, ErrNotFound
	}
	return df, nil
}

// GetPlaintexts returns the posted final plaintext batch for cfgH/batch.
func (t *Trustee) GetPlaintexts(cfgH wire.ConfigurationHash, batch wire.BatchNumber) (wire.Plaintexts, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.plaintexts[plaintextsKey{cfgH, batch}]
	if !ok {
		return wire.Plaintexts{}, ErrNotFound
	}
	return p, nil
}

// scratchFor returns (creating if absent) the DKG scratch state for cfgH.
func (t *Trustee) scratchFor(cfgH wire.ConfigurationHash) *dkgScratch {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.scratch[cfgH]
	if !ok {
		s = &dkgScratch{}
		t.scratch[cfgH] = s
	}
	return s
}

// EnsureDealing returns this trustee's own DKG dealing for cfgH. The
// dealing is derived deterministically from the trustee's signing key and
// cfgH, so a restarted process reconstructs the exact polynomial behind
// commitments it already posted — dealing fresh after a restart would
// produce shares inconsistent with those commitments and stall the
// session's DKG permanently.
func (t *Trustee) EnsureDealing(cfgH wire.ConfigurationHash, threshold, n int) crypto.Dealing {
	s := t.scratchFor(cfgH)
	t.mu.Lock()
	defer t.mu.Unlock()
	if s.dealing == nil {
		d := crypto.DealFrom(t.Suite, t.Keys.DealingSeed(cfgH[:]), threshold, n)
		s.dealing = &d
	}
	return *s.dealing
}

// SetCombinedShare records this trustee's reconstructed combined secret
// share for cfgH, computed once all peers' shares have been observed.
func (t *Trustee) SetCombinedShare(cfgH wire.ConfigurationHash, share kyber.Scalar) {
	s := t.scratchFor(cfgH)
	t.mu.Lock()
	defer t.mu.Unlock()
	s.combinedShare = share
}

// CombinedShare returns this trustee's combined secret share for cfgH, if
// already reconstructed.
func (t *Trustee) CombinedShare(cfgH wire.ConfigurationHash) (kyber.Scalar, bool) {
	s := t.scratchFor(cfgH)
	t.mu.Lock()
	defer t.mu.Unlock()
	if s.combinedShare == nil {
		return nil, false
	}
	return s.combinedShare, true
}
