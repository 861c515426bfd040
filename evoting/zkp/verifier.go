package zkp

import (
	"go.dedis.ch/kyber/v3"
)

// Verifier is the capability the protocol needs to check proofs produced by
// other participants. Tests replace it to simulate cheating peers.
type Verifier interface {
	VerifyExponentiation(bases, exponentiations []kyber.Point,
		proof *ExponentiationProof, aux []interface{}) (bool, error)
	VerifyPlaintextEquality(statement *PlaintextEqualityStatement,
		proof *PlaintextEqualityProof, aux []interface{}) (bool, error)
}

type suiteVerifier struct {
	suite Suite
}

// NewVerifier returns the verifier working directly on the suite.
func NewVerifier(suite Suite) Verifier {
	return &suiteVerifier{suite: suite}
}

func (v *suiteVerifier) VerifyExponentiation(bases, exponentiations []kyber.Point,
	proof *ExponentiationProof, aux []interface{}) (bool, error) {
	return VerifyExponentiation(v.suite, bases, exponentiations, proof, aux)
}

func (v *suiteVerifier) VerifyPlaintextEquality(statement *PlaintextEqualityStatement,
	proof *PlaintextEqualityProof, aux []interface{}) (bool, error) {
	return VerifyPlaintextEquality(v.suite, statement, proof, aux)
}
