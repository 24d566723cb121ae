package wire

// Signer is the minimal signing capability a constructor needs: sign a
// byte string and report the verification key it corresponds to. It is
// defined here rather than imported from internal/crypto so that pkg/wire
// stays free of a dependency on a concrete signature scheme — any signer
// (Schnorr, the in-memory test signer, etc.) satisfies it.
type Signer interface {
	Sign(message []byte) ([]byte, error)
	VerifyKey() []byte
}

func sign(s Signer, position TrusteePosition, stmt Statement, artifact Artifact) (Message, error) {
	m := Message{
		Statement: stmt,
		Artifact:  artifact,
		Sender:    Sender{Position: position, VerifyKey: s.VerifyKey()},
	}
	sig, err := s.Sign(m.SigningBytes())
	if err != nil {
		return Message{}, err
	}
	m.Signature = sig
	return m, nil
}

// BootstrapMessage constructs the initial Configuration posting made by the
// protocol manager.
func BootstrapMessage(s Signer, cfg Configuration) (Message, error) {
	cfgH := ConfigurationHash(HashArtifact(cfg))
	stmt := Statement{
		Kind:              KindConfiguration,
		ConfigurationHash: cfgH,
		SignerT:           ProtocolManagerIndex,
	}
	return sign(s, ProtocolManagerIndex, stmt, cfg)
}

// ConfigurationSignedMessage constructs a trustee's countersignature of a
// configuration it accepts.
func ConfigurationSignedMessage(s Signer, self TrusteePosition, cfgH ConfigurationHash) (Message, error) {
	stmt := Statement{
		Kind:              KindConfigurationSigned,
		ConfigurationHash: cfgH,
		SignerT:           self,
	}
	return sign(s, self, stmt, nil)
}

// CommitmentsMessage constructs a trustee's DKG commitments posting.
func CommitmentsMessage(s Signer, self TrusteePosition, cfgH ConfigurationHash, commitments Commitments) (Message, error) {
	cH := CommitmentsHash(HashArtifact(commitments))
	stmt := Statement{
		Kind:              KindCommitments,
		ConfigurationHash: cfgH,
		CommitmentsHash:   cH,
		SignerT:           self,
	}
	return sign(s, self, stmt, commitments)
}

// CommitmentsSignedMessage constructs a trustee's countersignature once
// every trustee's commitments have been observed.
func CommitmentsSignedMessage(s Signer, self TrusteePosition, cfgH ConfigurationHash, hs CommitmentsHashes) (Message, error) {
	stmt := Statement{
		Kind:              KindCommitmentsSigned,
		ConfigurationHash: cfgH,
		CommitmentsHashes: hs,
		SignerT:           self,
	}
	return sign(s, self, stmt, nil)
}

// SharesMessage constructs a trustee's encrypted-shares posting.
func SharesMessage(s Signer, self TrusteePosition, cfgH ConfigurationHash, shares Shares) (Message, error) {
	sH := SharesHash(HashArtifact(shares))
	stmt := Statement{
		Kind:              KindShares,
		ConfigurationHash: cfgH,
		SharesHash:        sH,
		SignerT:           self,
	}
	return sign(s, self, stmt, shares)
}

// SharesSignedMessage constructs a trustee's countersignature of the
// combined shares set.
func SharesSignedMessage(s Signer, self TrusteePosition, cfgH ConfigurationHash, hs SharesHashes) (Message, error) {
	stmt := Statement{
		Kind:              KindSharesSigned,
		ConfigurationHash: cfgH,
		SharesHashes:      hs,
		SignerT:           self,
	}
	return sign(s, self, stmt, nil)
}

// PublicKeyMessage constructs the combined-public-key posting.
func PublicKeyMessage(s Signer, self TrusteePosition, cfgH ConfigurationHash, pk DkgPublicKey, sharesH SharesHashes) (Message, error) {
	pkH := PublicKeyHash(HashArtifact(pk))
	stmt := Statement{
		Kind:              KindPublicKey,
		ConfigurationHash: cfgH,
		PublicKeyHash:     pkH,
		SharesHashes:      sharesH,
		SignerT:           self,
	}
	return sign(s, self, stmt, pk)
}

// PublicKeySignedMessage constructs a trustee's countersignature of the
// combined public key.
func PublicKeySignedMessage(s Signer, self TrusteePosition, cfgH ConfigurationHash, pkH PublicKeyHash, sharesH SharesHashes) (Message, error) {
	stmt := Statement{
		Kind:              KindPublicKeySigned,
		ConfigurationHash: cfgH,
		PublicKeyHash:     pkH,
		SharesHashes:      sharesH,
		SignerT:           self,
	}
	return sign(s, self, stmt, nil)
}

// BallotsMessage constructs the protocol manager's ballot-batch posting.
func BallotsMessage(s Signer, cfgH ConfigurationHash, batch BatchNumber, ballots Ballots, pkH PublicKeyHash, selected TrusteeSet) (Message, error) {
	bH := CiphertextsHash(HashArtifact(ballots))
	stmt := Statement{
		Kind:              KindBallots,
		ConfigurationHash: cfgH,
		Batch:             batch,
		BallotsHash:       bH,
		PublicKeyHash:     pkH,
		SelectedTrustees:  selected,
		SignerT:           ProtocolManagerIndex,
	}
	return sign(s, ProtocolManagerIndex, stmt, ballots)
}

// MixMessage constructs a shuffle trustee's mix posting. sourceH is the
// hash of the mix's input ciphertext list.
func MixMessage(s Signer, self TrusteePosition, cfgH ConfigurationHash, batch BatchNumber, sourceH CiphertextsHash, mixNo MixNumber, mix Mix) (Message, error) {
	targetH := CiphertextsHash(HashArtifact(Ballots{Ciphertexts: mix.Ciphertexts}))
	stmt := Statement{
		Kind:              KindMix,
		ConfigurationHash: cfgH,
		Batch:             batch,
		SourceHash:        sourceH,
		TargetHash:        targetH,
		MixNumber:         mixNo,
		SignerT:           self,
	}
	return sign(s, self, stmt, mix)
}

// MixSignedMessage constructs a verifier's countersignature of a mix it
// has checked.
func MixSignedMessage(s Signer, self TrusteePosition, cfgH ConfigurationHash, batch BatchNumber, sourceH, targetH CiphertextsHash) (Message, error) {
	stmt := Statement{
		Kind:              KindMixSigned,
		ConfigurationHash: cfgH,
		Batch:             batch,
		SourceHash:        sourceH,
		TargetHash:        targetH,
		SignerT:           self,
	}
	return sign(s, self, stmt, nil)
}

// DecryptionFactorsMessage constructs a trustee's partial-decryption
// posting.
func DecryptionFactorsMessage(s Signer, self TrusteePosition, cfgH ConfigurationHash, batch BatchNumber, ciphertextsH CiphertextsHash, sharesH SharesHashes, factors DecryptionFactors) (Message, error) {
	fH := DecryptionFactorsHash(HashArtifact(factors))
	stmt := Statement{
		Kind:                  KindDecryptionFactors,
		ConfigurationHash:     cfgH,
		Batch:                 batch,
		CiphertextsHash:       ciphertextsH,
		SharesHashes:          sharesH,
		DecryptionFactorsHash: fH,
		SignerT:               self,
	}
	return sign(s, self, stmt, factors)
}

// DecryptionFactorsSignedMessage constructs a trustee's countersignature
// of the combined decryption factors set.
func DecryptionFactorsSignedMessage(s Signer, self TrusteePosition, cfgH ConfigurationHash, batch BatchNumber, ciphertextsH CiphertextsHash, hs DecryptionFactorsHashes) (Message, error) {
	stmt := Statement{
		Kind:                    KindDecryptionFactorsSigned,
		ConfigurationHash:       cfgH,
		Batch:                   batch,
		CiphertextsHash:         ciphertextsH,
		DecryptionFactorsHashes: hs,
		SignerT:                 self,
	}
	return sign(s, self, stmt, nil)
}

// PlaintextsMessage constructs the designated decryptor's final-output
// posting.
func PlaintextsMessage(s Signer, self TrusteePosition, cfgH ConfigurationHash, batch BatchNumber, ciphertextsH CiphertextsHash, dfactorsH DecryptionFactorsHashes, plaintexts Plaintexts) (Message, error) {
	pH := PlaintextsHash(HashArtifact(plaintexts))
	stmt := Statement{
		Kind:                    KindPlaintexts,
		ConfigurationHash:       cfgH,
		Batch:                   batch,
		CiphertextsHash:         ciphertextsH,
		DecryptionFactorsHashes: dfactorsH,
		PlaintextsHash:          pH,
		SignerT:                 self,
	}
	return sign(s, self, stmt, plaintexts)
}

// PlaintextsSignedMessage constructs a trustee's countersignature of the
// final plaintext batch.
func PlaintextsSignedMessage(s Signer, self TrusteePosition, cfgH ConfigurationHash, batch BatchNumber, ciphertextsH CiphertextsHash, plaintextsH PlaintextsHash) (Message, error) {
	stmt := Statement{
		Kind:                KindPlaintextsSigned,
		ConfigurationHash:   cfgH,
		Batch:               batch,
		CiphertextsHash:     ciphertextsH,
		PlaintextsHash:      plaintextsH,
		SignerT:             self,
	}
	return sign(s, self, stmt, nil)
}

// ChannelMessage constructs an ephemeral, unpersisted message used for
// out-of-band coordination (e.g. the coordinator's board-refresh signal
// carried over a board's Channel stream). It is never fed into the
// predicate builder.
func ChannelMessage(s Signer, self TrusteePosition, topic string, payload []byte) (Message, error) {
	stmt := Statement{
		Kind:           KindChannel,
		SignerT:        self,
		ChannelTopic:   topic,
		ChannelPayload: payload,
	}
	return sign(s, self, stmt, nil)
}
