// Package predicate defines the normalized, hash-only facts the datalog
// engine reasons over, and the builder that derives them from a trustee's
// accepted message set (§3.4).
package predicate

import "github.com/braidnet/trustee/pkg/wire"

// Configuration records that a session configuration exists and this
// trustee's own position within it.
type Configuration struct {
	CfgH        wire.ConfigurationHash
	SelfT       wire.TrusteePosition
	NTrustees   int
	Threshold   wire.Threshold
}

// ConfigurationSignedBy is a base fact: one trustee has countersigned the
// configuration. ConfigurationSignedAll is derived once every trustee has
// one of these on record.
type ConfigurationSignedBy struct {
	CfgH    wire.ConfigurationHash
	SignerT wire.TrusteePosition
}

// PublicKeySignedBy is a base fact: one trustee has countersigned the
// combined public key.
type PublicKeySignedBy struct {
	CfgH         wire.ConfigurationHash
	PKH          wire.PublicKeyHash
	SharesHashes wire.SharesHashes
	SignerT      wire.TrusteePosition
}

// ConfigurationSignedAll records that every trustee has countersigned the
// configuration.
type ConfigurationSignedAll struct {
	CfgH      wire.ConfigurationHash
	SelfT     wire.TrusteePosition
	NTrustees int
	Threshold wire.Threshold
}

// Commitments records one trustee's posted DKG commitments.
type Commitments struct {
	CfgH            wire.ConfigurationHash
	CommitmentsH    wire.CommitmentsHash
	SignerT         wire.TrusteePosition
}

// CommitmentsAllSignedAll records that every trustee's commitments have
// been observed, combined into one fixed-size hash set.
type CommitmentsAllSignedAll struct {
	CfgH              wire.ConfigurationHash
	CommitmentsHashes wire.CommitmentsHashes
}

// Shares records one trustee's posted encrypted-shares artifact.
type Shares struct {
	CfgH      wire.ConfigurationHash
	SharesH   wire.SharesHash
	SignerT   wire.TrusteePosition
}

// SharesSignedAll records the combined set of every trustee's shares.
type SharesSignedAll struct {
	CfgH         wire.ConfigurationHash
	SharesHashes wire.SharesHashes
}

// PublicKey records a posted combined DKG public key.
type PublicKey struct {
	CfgH         wire.ConfigurationHash
	PKH          wire.PublicKeyHash
	SharesHashes wire.SharesHashes
}

// PublicKeySignedAll records that every trustee has countersigned the
// combined public key, unlocking the ballot/shuffle phase.
type PublicKeySignedAll struct {
	CfgH         wire.ConfigurationHash
	PKH          wire.PublicKeyHash
	SharesHashes wire.SharesHashes
}

// Ballots records a posted ballot batch.
type Ballots struct {
	CfgH             wire.ConfigurationHash
	Batch            wire.BatchNumber
	BallotsH         wire.CiphertextsHash
	PKH              wire.PublicKeyHash
	SelectedTrustees wire.TrusteeSet
}

// Mix records a posted, unsigned mix.
type Mix struct {
	CfgH      wire.ConfigurationHash
	Batch     wire.BatchNumber
	MixNo     wire.MixNumber
	SourceH   wire.CiphertextsHash
	TargetH   wire.CiphertextsHash
	SignerT   wire.TrusteePosition
}

// MixSigned records one trustee's countersignature of a mix.
type MixSigned struct {
	CfgH      wire.ConfigurationHash
	Batch     wire.BatchNumber
	SourceH   wire.CiphertextsHash
	TargetH   wire.CiphertextsHash
	SignerT   wire.TrusteePosition
}

// MixVerifiedUpto records that mix position N in the chain has been signed
// by every trustee, recursively anchored at the ballot batch.
type MixVerifiedUpto struct {
	CfgH     wire.ConfigurationHash
	Batch    wire.BatchNumber
	TargetH  wire.CiphertextsHash
	N        wire.MixNumber
}

// DecryptionFactors records one trustee's posted partial decryption.
type DecryptionFactors struct {
	CfgH            wire.ConfigurationHash
	Batch           wire.BatchNumber
	DFactorsH       wire.DecryptionFactorsHash
	CiphertextsH    wire.CiphertextsHash
	SharesHashes    wire.SharesHashes
	SignerT         wire.TrusteePosition
}

// DecryptionFactorsSignedAll records the combined set of decryption
// factors once all selected trustees have posted theirs.
type DecryptionFactorsSignedAll struct {
	CfgH                    wire.ConfigurationHash
	Batch                   wire.BatchNumber
	CiphertextsH            wire.CiphertextsHash
	DecryptionFactorsHashes wire.DecryptionFactorsHashes
}

// Plaintexts records the posted final plaintext batch.
type Plaintexts struct {
	CfgH           wire.ConfigurationHash
	Batch          wire.BatchNumber
	PlaintextsH    wire.PlaintextsHash
	DFactorsHashes wire.DecryptionFactorsHashes
	CiphertextsH   wire.CiphertextsHash
	SignerT        wire.TrusteePosition
}

// PlaintextsSigned records one trustee's countersignature of the final
// plaintext batch.
type PlaintextsSigned struct {
	CfgH         wire.ConfigurationHash
	Batch        wire.BatchNumber
	CiphertextsH wire.CiphertextsHash
	PlaintextsH  wire.PlaintextsHash
	SignerT      wire.TrusteePosition
}

// Z is the terminal predicate marking a batch fully processed end-to-end
// (§4.4.4).
type Z struct {
	CfgH        wire.ConfigurationHash
	Batch       wire.BatchNumber
	BallotsH    wire.CiphertextsHash
	PlaintextsH wire.PlaintextsHash
	MixingHs    wire.MixingHashes
}

// MixRepeat is the datalog-level error predicate emitted when two distinct
// signed mixes exist at the same position by the same trustee (§4.4.5).
type MixRepeat struct {
	CfgH  wire.ConfigurationHash
	Batch wire.BatchNumber
}
