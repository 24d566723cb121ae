package action

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	"go.dedis.ch/kyber/v3"

	"github.com/braidnet/trustee/internal/crypto"
	"github.com/braidnet/trustee/internal/trustee"
	"github.com/braidnet/trustee/pkg/wire"
)

// Execute turns one inferred Action into a signed wire.Message by pulling
// whatever local artifacts and scratch state it needs from tr and invoking
// internal/crypto. It is the trustee-side half of the action catalog
// (§4.5): the datalog phases decide *that* an action is due, Execute
// decides *how* to perform it.
//
// A handler returns (Message{}, ErrNotFound) when an artifact it depends
// on hasn't arrived yet — the caller should treat that as "do nothing this
// cycle", not a failure. A handler returns (Message{}, *Error) for an
// Abstain or BatchAbort outcome. Any other error is unexpected and should
// be treated as fatal for this trustee process (§7).
func Execute(tr *trustee.Trustee, act Action) (wire.Message, error) {
	switch act.Kind {
	case SignConfiguration:
		return handleSignConfiguration(tr, act)
	case PostCommitments:
		return handlePostCommitments(tr, act)
	case PostShares:
		return handlePostShares(tr, act)
	case PostPublicKey:
		return handlePostPublicKey(tr, act)
	case SignPublicKey:
		return handleSignPublicKey(tr, act)
	case Mix:
		return handleMix(tr, act)
	case SignMix:
		return handleSignMix(tr, act)
	case PostDecryptionFactors:
		return handlePostDecryptionFactors(tr, act)
	case PostPlaintexts:
		return handlePostPlaintexts(tr, act)
	case SignPlaintexts:
		return handleSignPlaintexts(tr, act)
	default:
		return wire.Message{}, errors.Errorf("action: unknown kind %v", act.Kind)
	}
}

func handleSignConfiguration(tr *trustee.Trustee, act Action) (wire.Message, error) {
	if _, err := tr.GetConfiguration(act.CfgH); err != nil {
		return wire.Message{}, ErrNotFound
	}
	return wire.ConfigurationSignedMessage(tr.Keys, tr.Self, act.CfgH)
}

func handlePostCommitments(tr *trustee.Trustee, act Action) (wire.Message, error) {
	cfg, err := tr.GetConfiguration(act.CfgH)
	if err != nil {
		return wire.Message{}, ErrNotFound
	}
	n := cfg.NTrustees()
	dealing := tr.EnsureDealing(act.CfgH, int(cfg.Threshold), n)

	commitBytes := make([][]byte, len(dealing.Commitments))
	for i, c := range dealing.Commitments {
		b, err := crypto.MarshalPoint(c)
		if err != nil {
			return wire.Message{}, errors.Wrap(err, "action: marshal commitment")
		}
		commitBytes[i] = b
	}
	commitments := wire.Commitments{Signer: tr.Self, Commitments: commitBytes}
	return wire.CommitmentsMessage(tr.Keys, tr.Self, act.CfgH, commitments)
}

func handlePostShares(tr *trustee.Trustee, act Action) (wire.Message, error) {
	cfg, err := tr.GetConfiguration(act.CfgH)
	if err != nil {
		return wire.Message{}, ErrNotFound
	}
	n := cfg.NTrustees()
	dealing := tr.EnsureDealing(act.CfgH, int(cfg.Threshold), n)

	encrypted := make([][]byte, n)
	for j := 1; j <= n; j++ {
		key, err := tr.Keys.SharedKey(cfg.TrusteePublics[j-1])
		if err != nil {
			return wire.Message{}, errors.Wrap(err, "action: derive pairwise key")
		}
		enc, err := crypto.EncryptShareFor(key, dealing.Shares[j-1])
		if err != nil {
			return wire.Message{}, errors.Wrap(err, "action: encrypt share")
		}
		encrypted[j-1] = enc
	}
	shares := wire.Shares{Signer: tr.Self, EncryptedShares: encrypted}
	return wire.SharesMessage(tr.Keys, tr.Self, act.CfgH, shares)
}

func handlePostPublicKey(tr *trustee.Trustee, act Action) (wire.Message, error) {
	cfg, err := tr.GetConfiguration(act.CfgH)
	if err != nil {
		return wire.Message{}, ErrNotFound
	}
	n := cfg.NTrustees()
	polys, err := commitmentPolys(tr, act.CommitmentsHashes)
	if err != nil {
		return wire.Message{}, err
	}
	constants := make([]kyber.Point, len(polys))
	for i, poly := range polys {
		constants[i] = poly[0]
	}
	pkPoint := crypto.CombinedPublicKey(tr.Suite, constants)
	pkBytes, err := crypto.MarshalPoint(pkPoint)
	if err != nil {
		return wire.Message{}, errors.Wrap(err, "action: marshal combined public key")
	}

	share, err := reconstructCombinedShare(tr, act.CfgH, cfg, n)
	if err != nil {
		return wire.Message{}, err
	}
	tr.SetCombinedShare(act.CfgH, share)

	pk := wire.DkgPublicKey{PK: pkBytes}
	return wire.PublicKeyMessage(tr.Keys, tr.Self, act.CfgH, pk, act.SharesHashes)
}

// reconstructCombinedShare sums this trustee's own self-dealt share with
// every peer's share decrypted from their posted Shares artifact, giving
// the trustee's share of the jointly-generated secret (§4.4.2).
func reconstructCombinedShare(tr *trustee.Trustee, cfgH wire.ConfigurationHash, cfg wire.Configuration, n int) (kyber.Scalar, error) {
	dealing := tr.EnsureDealing(cfgH, int(cfg.Threshold), n)
	received := []kyber.Scalar{dealing.Shares[tr.Self-1]}

	for j := 1; j <= n; j++ {
		peer := wire.TrusteePosition(j)
		if peer == tr.Self {
			continue
		}
		peerShares, err := tr.GetShares(cfgH, peer)
		if err != nil {
			return nil, ErrNotFound
		}
		key, err := tr.Keys.SharedKey(cfg.TrusteePublics[j-1])
		if err != nil {
			return nil, errors.Wrap(err, "action: derive pairwise key")
		}
		share, err := crypto.DecryptShareFrom(tr.Suite, key, peerShares.EncryptedShares[tr.Self-1])
		if err != nil {
			return nil, errors.Wrap(err, "action: decrypt peer share")
		}
		received = append(received, share)
	}
	return crypto.CombinedShare(tr.Suite, received), nil
}

// combinedShareFor returns the trustee's combined secret share for cfgH,
// reconstructing it from the deterministic dealing plus the stored peer
// Shares artifacts when the in-memory cache is empty — which it is after
// a process restart, even though DKG completed long ago.
func combinedShareFor(tr *trustee.Trustee, cfgH wire.ConfigurationHash) (kyber.Scalar, error) {
	if share, ok := tr.CombinedShare(cfgH); ok {
		return share, nil
	}
	cfg, err := tr.GetConfiguration(cfgH)
	if err != nil {
		return nil, ErrNotFound
	}
	share, err := reconstructCombinedShare(tr, cfgH, cfg, cfg.NTrustees())
	if err != nil {
		return nil, err
	}
	tr.SetCombinedShare(cfgH, share)
	return share, nil
}

func handleSignPublicKey(tr *trustee.Trustee, act Action) (wire.Message, error) {
	pk, err := tr.GetPublicKey(act.PKH)
	if err != nil {
		return wire.Message{}, ErrNotFound
	}
	polys, err := commitmentPolys(tr, act.CommitmentsHashes)
	if err != nil {
		return wire.Message{}, err
	}
	constants := make([]kyber.Point, len(polys))
	for i, poly := range polys {
		constants[i] = poly[0]
	}
	expected := crypto.CombinedPublicKey(tr.Suite, constants)
	expectedBytes, err := crypto.MarshalPoint(expected)
	if err != nil {
		return wire.Message{}, errors.Wrap(err, "action: marshal expected public key")
	}
	if !bytes.Equal(expectedBytes, pk.PK) {
		return wire.Message{}, &Error{Outcome: Abstain, Action: SignPublicKey, CfgH: act.CfgH, Reason: "combined public key does not match locally recomputed commitments"}
	}

	combinedShare, err := combinedShareFor(tr, act.CfgH)
	if err != nil {
		return wire.Message{}, err
	}
	selfPub := crypto.CombinedPublicShareAt(tr.Suite, polys, int(tr.Self))
	actualPub := tr.Suite.Point().Mul(combinedShare, nil)
	if !actualPub.Equal(selfPub) {
		return wire.Message{}, &Error{Outcome: Abstain, Action: SignPublicKey, CfgH: act.CfgH, Reason: "reconstructed share inconsistent with peers' commitments"}
	}

	return wire.PublicKeySignedMessage(tr.Keys, tr.Self, act.CfgH, act.PKH, act.SharesHashes)
}

func mixLabel(n wire.MixNumber) string {
	return fmt.Sprintf("shuffle_generators%d", n)
}

func handleMix(tr *trustee.Trustee, act Action) (wire.Message, error) {
	cfg, err := tr.GetConfiguration(act.CfgH)
	if err != nil {
		return wire.Message{}, ErrNotFound
	}
	pk, err := tr.GetPublicKey(act.PKH)
	if err != nil {
		return wire.Message{}, ErrNotFound
	}
	h, err := tr.Suite.UnmarshalPoint(pk.PK)
	if err != nil {
		return wire.Message{}, errors.Wrap(err, "action: unmarshal public key")
	}
	source, err := tr.GetCiphertexts(act.SourceH)
	if err != nil {
		return wire.Message{}, ErrNotFound
	}

	if len(source) == 0 {
		mix := wire.Mix{MixNumber: act.MixNo}
		return wire.MixMessage(tr.Keys, tr.Self, act.CfgH, act.Batch, act.SourceH, act.MixNo, mix)
	}

	seed := cfg.Label(act.Batch, mixLabel(act.MixNo))
	mix, err := crypto.Shuffle(tr.Suite, h, source, seed)
	if err != nil {
		return wire.Message{}, errors.Wrap(err, "action: shuffle")
	}
	mix.MixNumber = act.MixNo
	return wire.MixMessage(tr.Keys, tr.Self, act.CfgH, act.Batch, act.SourceH, act.MixNo, mix)
}

func handleSignMix(tr *trustee.Trustee, act Action) (wire.Message, error) {
	cfg, err := tr.GetConfiguration(act.CfgH)
	if err != nil {
		return wire.Message{}, ErrNotFound
	}
	pk, err := tr.GetPublicKey(act.PKH)
	if err != nil {
		return wire.Message{}, ErrNotFound
	}
	h, err := tr.Suite.UnmarshalPoint(pk.PK)
	if err != nil {
		return wire.Message{}, errors.Wrap(err, "action: unmarshal public key")
	}
	mix, err := tr.GetMix(act.CfgH, act.Batch, act.SourceH, act.TargetH)
	if err != nil {
		return wire.Message{}, ErrNotFound
	}
	source, err := tr.GetCiphertexts(act.SourceH)
	if err != nil {
		return wire.Message{}, ErrNotFound
	}

	if len(source) == 0 {
		if !mix.IsNull() {
			return wire.Message{}, &Error{Outcome: BatchAbort, Action: SignMix, CfgH: act.CfgH, Batch: act.Batch, Reason: "non-null mix posted for an empty source batch"}
		}
		return wire.MixSignedMessage(tr.Keys, tr.Self, act.CfgH, act.Batch, act.SourceH, act.TargetH)
	}

	seed := cfg.Label(act.Batch, mixLabel(act.MixNo))
	ok, err := crypto.VerifyShuffle(tr.Suite, h, source, mix.Ciphertexts, seed, mix.Proof)
	if err != nil {
		return wire.Message{}, errors.Wrap(err, "action: verify shuffle")
	}
	if !ok {
		return wire.Message{}, &Error{Outcome: BatchAbort, Action: SignMix, CfgH: act.CfgH, Batch: act.Batch, Reason: "shuffle proof failed verification"}
	}
	return wire.MixSignedMessage(tr.Keys, tr.Self, act.CfgH, act.Batch, act.SourceH, act.TargetH)
}

func handlePostDecryptionFactors(tr *trustee.Trustee, act Action) (wire.Message, error) {
	combinedShare, err := combinedShareFor(tr, act.CfgH)
	if err != nil {
		return wire.Message{}, err
	}
	cts, err := tr.GetCiphertexts(act.CiphertextsH)
	if err != nil {
		return wire.Message{}, ErrNotFound
	}

	g := tr.Suite.Point().Base()
	pub := tr.Suite.Point().Mul(combinedShare, nil)
	factors := make([][]byte, len(cts))
	proofs := make([]wire.DLEQProof, len(cts))
	for i, c := range cts {
		gr, err := crypto.DecodeGR(tr.Suite, c)
		if err != nil {
			return wire.Message{}, errors.Wrap(err, "action: decode ciphertext")
		}
		factorPoint, err := crypto.PartialDecryptionFactor(tr.Suite, combinedShare, c)
		if err != nil {
			return wire.Message{}, errors.Wrap(err, "action: partial decryption factor")
		}
		factorBytes, err := crypto.MarshalPoint(factorPoint)
		if err != nil {
			return wire.Message{}, errors.Wrap(err, "action: marshal factor")
		}
		proof, err := crypto.ProveDLEQ(tr.Suite, combinedShare, g, gr, pub, factorPoint)
		if err != nil {
			return wire.Message{}, errors.Wrap(err, "action: prove DLEQ")
		}
		factors[i] = factorBytes
		proofs[i] = proof
	}

	df := wire.DecryptionFactors{Signer: tr.Self, Factors: factors, Proofs: proofs}
	return wire.DecryptionFactorsMessage(tr.Keys, tr.Self, act.CfgH, act.Batch, act.CiphertextsH, act.SharesHashes, df)
}

// combineAndDecrypt is shared by PostPlaintexts and SignPlaintexts: it
// gathers every selected trustee's decryption factors, verifies each
// ciphertext's Chaum-Pedersen proof against that trustee's independently
// recomputed public share, and combines the verified factors via Lagrange
// interpolation to recover the plaintext batch (§4.4.4).
func combineAndDecrypt(tr *trustee.Trustee, act Action) ([][]byte, error) {
	cts, err := tr.GetCiphertexts(act.CiphertextsH)
	if err != nil {
		return nil, ErrNotFound
	}
	polys, err := commitmentPolys(tr, act.CommitmentsHashes)
	if err != nil {
		return nil, err
	}

	type provider struct {
		pos     wire.TrusteePosition
		df      wire.DecryptionFactors
		pub     kyber.Point
	}
	var providers []provider
	for _, h := range act.DecryptionFactorsHashes {
		if h == wire.NullHash {
			break
		}
		df, err := tr.GetDecryptionFactorsByHash(wire.DecryptionFactorsHash(h))
		if err != nil {
			return nil, ErrNotFound
		}
		pub := crypto.CombinedPublicShareAt(tr.Suite, polys, int(df.Signer))
		providers = append(providers, provider{pos: df.Signer, df: df, pub: pub})
	}
	if len(providers) == 0 {
		return nil, ErrNotFound
	}

	g := tr.Suite.Point().Base()
	plaintexts := make([][]byte, len(cts))
	for i, c := range cts {
		gr, err := crypto.DecodeGR(tr.Suite, c)
		if err != nil {
			return nil, errors.Wrap(err, "action: decode ciphertext")
		}
		positions := make([]wire.TrusteePosition, 0, len(providers))
		factors := make([]kyber.Point, 0, len(providers))
		for _, p := range providers {
			if i >= len(p.df.Factors) || i >= len(p.df.Proofs) {
				return nil, &Error{Outcome: BatchAbort, Action: act.Kind, CfgH: act.CfgH, Batch: act.Batch, Reason: "decryption factors list shorter than ciphertext batch"}
			}
			factorPoint, err := tr.Suite.UnmarshalPoint(p.df.Factors[i])
			if err != nil {
				return nil, errors.Wrap(err, "action: unmarshal decryption factor")
			}
			ok, err := crypto.VerifyDLEQ(tr.Suite, g, gr, p.pub, factorPoint, p.df.Proofs[i])
			if err != nil {
				return nil, errors.Wrap(err, "action: verify DLEQ")
			}
			if !ok {
				return nil, &Error{Outcome: BatchAbort, Action: act.Kind, CfgH: act.CfgH, Batch: act.Batch, Reason: fmt.Sprintf("decryption factor proof failed for trustee %d", p.pos)}
			}
			positions = append(positions, p.pos)
			factors = append(factors, factorPoint)
		}
		combined, err := crypto.CombineFactors(tr.Suite, positions, factors)
		if err != nil {
			return nil, errors.Wrap(err, "action: combine decryption factors")
		}
		plainPoint, err := crypto.Decrypt(tr.Suite, c, combined)
		if err != nil {
			return nil, errors.Wrap(err, "action: decrypt")
		}
		plain, err := crypto.DecodePlaintext(plainPoint)
		if err != nil {
			return nil, errors.Wrap(err, "action: decode plaintext")
		}
		plaintexts[i] = plain
	}
	return plaintexts, nil
}

func handlePostPlaintexts(tr *trustee.Trustee, act Action) (wire.Message, error) {
	plaintexts, err := combineAndDecrypt(tr, act)
	if err != nil {
		return wire.Message{}, err
	}
	p := wire.Plaintexts{Plaintexts: plaintexts}
	return wire.PlaintextsMessage(tr.Keys, tr.Self, act.CfgH, act.Batch, act.CiphertextsH, act.DecryptionFactorsHashes, p)
}

func handleSignPlaintexts(tr *trustee.Trustee, act Action) (wire.Message, error) {
	posted, err := tr.GetPlaintexts(act.CfgH, act.Batch)
	if err != nil {
		return wire.Message{}, ErrNotFound
	}
	recomputed, err := combineAndDecrypt(tr, act)
	if err != nil {
		return wire.Message{}, err
	}
	if len(recomputed) != len(posted.Plaintexts) {
		return wire.Message{}, &Error{Outcome: Abstain, Action: SignPlaintexts, CfgH: act.CfgH, Batch: act.Batch, Reason: "recomputed plaintext count mismatch"}
	}
	for i := range recomputed {
		if !bytes.Equal(recomputed[i], posted.Plaintexts[i]) {
			return wire.Message{}, &Error{Outcome: Abstain, Action: SignPlaintexts, CfgH: act.CfgH, Batch: act.Batch, Reason: "recomputed plaintext does not match posted batch"}
		}
	}
	return wire.PlaintextsSignedMessage(tr.Keys, tr.Self, act.CfgH, act.Batch, act.CiphertextsH, act.PlaintextsH)
}

// commitmentPolys resolves a CommitmentsHashes array back to each dealer's
// unmarshaled commitment polynomial, in the array's (ascending signer
// position) order.
func commitmentPolys(tr *trustee.Trustee, hashes wire.CommitmentsHashes) ([][]kyber.Point, error) {
	var polys [][]kyber.Point
	for _, h := range hashes {
		if h == wire.NullHash {
			break
		}
		c, err := tr.GetCommitmentsByHash(wire.CommitmentsHash(h))
		if err != nil {
			return nil, ErrNotFound
		}
		poly := make([]kyber.Point, len(c.Commitments))
		for i, b := range c.Commitments {
			p, err := tr.Suite.UnmarshalPoint(b)
			if err != nil {
				return nil, errors.Wrap(err, "action: unmarshal commitment point")
			}
			poly[i] = p
		}
		polys = append(polys, poly)
	}
	return polys, nil
}
