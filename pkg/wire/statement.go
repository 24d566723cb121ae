package wire

// StatementKind is the stable wire discriminant for a message's statement.
// Values are part of the protocol's wire format: reordering or renumbering
// them is a protocol break (§6.1).
type StatementKind int

const (
	KindConfiguration StatementKind = iota + 1
	KindConfigurationSigned
	KindShares
	KindSharesSigned
	KindCommitments
	KindCommitmentsSigned
	KindPublicKey
	KindPublicKeySigned
	KindBallots
	KindMix
	KindMixSigned
	KindDecryptionFactors
	KindDecryptionFactorsSigned
	KindPlaintexts
	KindPlaintextsSigned
	// KindChannel is ephemeral: never persisted into the predicate set, never
	// cached locally, surfaced to the engine directly (§6.1, §6.2).
	KindChannel
)

func (k StatementKind) String() string {
	switch k {
	case KindConfiguration:
		return "Configuration"
	case KindConfigurationSigned:
		return "ConfigurationSigned"
	case KindShares:
		return "Shares"
	case KindSharesSigned:
		return "SharesSigned"
	case KindCommitments:
		return "Commitments"
	case KindCommitmentsSigned:
		return "CommitmentsSigned"
	case KindPublicKey:
		return "PublicKey"
	case KindPublicKeySigned:
		return "PublicKeySigned"
	case KindBallots:
		return "Ballots"
	case KindMix:
		return "Mix"
	case KindMixSigned:
		return "MixSigned"
	case KindDecryptionFactors:
		return "DecryptionFactors"
	case KindDecryptionFactorsSigned:
		return "DecryptionFactorsSigned"
	case KindPlaintexts:
		return "Plaintexts"
	case KindPlaintextsSigned:
		return "PlaintextsSigned"
	case KindChannel:
		return "Channel"
	default:
		return "Unknown"
	}
}

// Statement is the hash-tuple payload of a message: everything the
// predicate layer needs to wire a message into the graph, without the
// artifact bytes themselves. Only the fields relevant to Kind are
// meaningful; unused fields are left zero. Each discriminant carries one
// variant's worth of fields, flattened into a single Go struct because Go
// has no tagged unions.
type Statement struct {
	Kind StatementKind

	ConfigurationHash ConfigurationHash
	Batch             BatchNumber

	SharesHash    SharesHash
	SharesHashes  SharesHashes
	CommitmentsHash   CommitmentsHash
	CommitmentsHashes CommitmentsHashes

	PublicKeyHash PublicKeyHash

	BallotsHash      CiphertextsHash
	SelectedTrustees TrusteeSet

	MixNumber  MixNumber
	SourceHash CiphertextsHash
	TargetHash CiphertextsHash

	DecryptionFactorsHash   DecryptionFactorsHash
	DecryptionFactorsHashes DecryptionFactorsHashes
	CiphertextsHash         CiphertextsHash

	PlaintextsHash PlaintextsHash

	// SignerT is the trustee position this statement is made by/about.
	// For Configuration/Ballots it is the subject's own position (the
	// protocol manager for Ballots, PROTOCOL_MANAGER_INDEX); for *Signed
	// statements it is the countersigner.
	SignerT TrusteePosition

	// ChannelTopic/ChannelPayload carry a Channel-kind statement's ephemeral
	// content, which is never hashed into a predicate.
	ChannelTopic   string
	ChannelPayload []byte
}

func (s Statement) encode(e *encoder) {
	e.writeInt(int(s.Kind))
	e.writeHash(Hash(s.ConfigurationHash))
	e.writeInt(int(s.Batch))
	e.writeHash(Hash(s.SharesHash))
	e.writeHashes(THashes(s.SharesHashes))
	e.writeHash(Hash(s.CommitmentsHash))
	e.writeHashes(THashes(s.CommitmentsHashes))
	e.writeHash(Hash(s.PublicKeyHash))
	e.writeHash(Hash(s.BallotsHash))
	e.writeTrustees(s.SelectedTrustees)
	e.writeInt(int(s.MixNumber))
	e.writeHash(Hash(s.SourceHash))
	e.writeHash(Hash(s.TargetHash))
	e.writeHash(Hash(s.DecryptionFactorsHash))
	e.writeHashes(THashes(s.DecryptionFactorsHashes))
	e.writeHash(Hash(s.CiphertextsHash))
	e.writeHash(Hash(s.PlaintextsHash))
	e.writeInt(int(s.SignerT))
	e.writeString(s.ChannelTopic)
	e.writeBytes(s.ChannelPayload)
}

// CanonicalBytes encodes the statement alone, used wherever only the
// statement (no artifact) needs to be addressed or compared.
func (s Statement) CanonicalBytes() []byte {
	e := newEncoder()
	s.encode(e)
	return e.bytes()
}
