package predicate

// Set is the engine's working predicate set for one trustee's view of one
// session: the "ground truth from which all required work is derived"
// (§3.4). Predicate values are structurally comparable (plain structs over
// fixed-size arrays and scalars), so membership is exact value equality —
// no separate equality method is needed.
type Set struct {
	Configuration              map[Configuration]struct{}
	ConfigurationSignedBy      map[ConfigurationSignedBy]struct{}
	ConfigurationSignedAll     map[ConfigurationSignedAll]struct{}
	Commitments                map[Commitments]struct{}
	CommitmentsAllSignedAll    map[CommitmentsAllSignedAll]struct{}
	Shares                     map[Shares]struct{}
	SharesSignedAll            map[SharesSignedAll]struct{}
	PublicKey                  map[PublicKey]struct{}
	PublicKeySignedBy          map[PublicKeySignedBy]struct{}
	PublicKeySignedAll         map[PublicKeySignedAll]struct{}
	Ballots                    map[Ballots]struct{}
	Mix                        map[Mix]struct{}
	MixSigned                  map[MixSigned]struct{}
	MixVerifiedUpto            map[MixVerifiedUpto]struct{}
	DecryptionFactors          map[DecryptionFactors]struct{}
	DecryptionFactorsSignedAll map[DecryptionFactorsSignedAll]struct{}
	Plaintexts                 map[Plaintexts]struct{}
	PlaintextsSigned           map[PlaintextsSigned]struct{}
	Z                          map[Z]struct{}
	MixRepeat                  map[MixRepeat]struct{}
}

// NewSet returns an empty predicate set.
func NewSet() *Set {
	return &Set{
		Configuration:              map[Configuration]struct{}{},
		ConfigurationSignedBy:      map[ConfigurationSignedBy]struct{}{},
		ConfigurationSignedAll:     map[ConfigurationSignedAll]struct{}{},
		Commitments:                map[Commitments]struct{}{},
		CommitmentsAllSignedAll:    map[CommitmentsAllSignedAll]struct{}{},
		Shares:                     map[Shares]struct{}{},
		SharesSignedAll:            map[SharesSignedAll]struct{}{},
		PublicKey:                  map[PublicKey]struct{}{},
		PublicKeySignedBy:          map[PublicKeySignedBy]struct{}{},
		PublicKeySignedAll:         map[PublicKeySignedAll]struct{}{},
		Ballots:                    map[Ballots]struct{}{},
		Mix:                        map[Mix]struct{}{},
		MixSigned:                  map[MixSigned]struct{}{},
		MixVerifiedUpto:            map[MixVerifiedUpto]struct{}{},
		DecryptionFactors:          map[DecryptionFactors]struct{}{},
		DecryptionFactorsSignedAll: map[DecryptionFactorsSignedAll]struct{}{},
		Plaintexts:                 map[Plaintexts]struct{}{},
		PlaintextsSigned:           map[PlaintextsSigned]struct{}{},
		Z:                          map[Z]struct{}{},
		MixRepeat:                  map[MixRepeat]struct{}{},
	}
}

// Monotonicity helpers: every Add* returns whether the predicate was newly
// inserted, so rule evaluation can tell whether this pass made progress
// (used to detect fixed point without retracting anything, §4.3).

func (s *Set) AddConfiguration(p Configuration) bool { return addTo(s.Configuration, p) }
func (s *Set) AddConfigurationSignedBy(p ConfigurationSignedBy) bool {
	return addTo(s.ConfigurationSignedBy, p)
}
func (s *Set) AddConfigurationSignedAll(p ConfigurationSignedAll) bool {
	return addTo(s.ConfigurationSignedAll, p)
}
func (s *Set) AddCommitments(p Commitments) bool { return addTo(s.Commitments, p) }
func (s *Set) AddCommitmentsAllSignedAll(p CommitmentsAllSignedAll) bool {
	return addTo(s.CommitmentsAllSignedAll, p)
}
func (s *Set) AddShares(p Shares) bool                   { return addTo(s.Shares, p) }
func (s *Set) AddSharesSignedAll(p SharesSignedAll) bool { return addTo(s.SharesSignedAll, p) }
func (s *Set) AddPublicKey(p PublicKey) bool             { return addTo(s.PublicKey, p) }
func (s *Set) AddPublicKeySignedBy(p PublicKeySignedBy) bool {
	return addTo(s.PublicKeySignedBy, p)
}
func (s *Set) AddPublicKeySignedAll(p PublicKeySignedAll) bool { return addTo(s.PublicKeySignedAll, p) }
func (s *Set) AddBallots(p Ballots) bool                       { return addTo(s.Ballots, p) }
func (s *Set) AddMix(p Mix) bool                               { return addTo(s.Mix, p) }
func (s *Set) AddMixSigned(p MixSigned) bool                   { return addTo(s.MixSigned, p) }
func (s *Set) AddMixVerifiedUpto(p MixVerifiedUpto) bool       { return addTo(s.MixVerifiedUpto, p) }
func (s *Set) AddDecryptionFactors(p DecryptionFactors) bool   { return addTo(s.DecryptionFactors, p) }
func (s *Set) AddDecryptionFactorsSignedAll(p DecryptionFactorsSignedAll) bool {
	return addTo(s.DecryptionFactorsSignedAll, p)
}
func (s *Set) AddPlaintexts(p Plaintexts) bool             { return addTo(s.Plaintexts, p) }
func (s *Set) AddPlaintextsSigned(p PlaintextsSigned) bool { return addTo(s.PlaintextsSigned, p) }
func (s *Set) AddZ(p Z) bool                               { return addTo(s.Z, p) }
func (s *Set) AddMixRepeat(p MixRepeat) bool                { return addTo(s.MixRepeat, p) }

func addTo[T comparable](m map[T]struct{}, p T) bool {
	if _, ok := m[p]; ok {
		return false
	}
	m[p] = struct{}{}
	return true
}
