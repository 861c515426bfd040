package zkp

import (
	"crypto/cipher"

	"go.dedis.ch/kyber/v3"
	"golang.org/x/xerrors"
)

// Suite is what the proofs need from the group.
type Suite interface {
	kyber.Group
	kyber.HashFactory
}

const exponentiationLabel = "ExponentiationProof"

// ExponentiationProof shows that every exponentiation is the corresponding
// base multiplied by the same secret exponent.
type ExponentiationProof struct {
	E kyber.Scalar
	Z kyber.Scalar
}

// GenExponentiationProof creates a proof that exponentiations[i] equals
// exponent·bases[i] for every i. The auxiliary values are bound into the
// challenge and must be given again to the verifier.
func GenExponentiationProof(suite Suite, bases []kyber.Point, exponent kyber.Scalar,
	exponentiations []kyber.Point, aux []interface{}, rand cipher.Stream) (*ExponentiationProof, error) {
	if err := checkExponentiationStatement(bases, exponentiations); err != nil {
		return nil, err
	}
	if exponent == nil {
		return nil, xerrors.New("missing exponent")
	}

	b := suite.Scalar().Pick(rand)
	commitment := make([]kyber.Point, len(bases))
	for i, g := range bases {
		commitment[i] = suite.Point().Mul(b, g)
	}

	e, err := challenge(suite, exponentiationLabel, bases, exponentiations, commitment, aux)
	if err != nil {
		return nil, xerrors.Errorf("computing challenge: %v", err)
	}
	z := suite.Scalar().Add(b, suite.Scalar().Mul(e, exponent))
	return &ExponentiationProof{E: e, Z: z}, nil
}

// VerifyExponentiation returns true if the proof is valid for the given
// statement and auxiliary data. An error is only returned if the statement
// itself is malformed.
func VerifyExponentiation(suite Suite, bases, exponentiations []kyber.Point,
	proof *ExponentiationProof, aux []interface{}) (bool, error) {
	if err := checkExponentiationStatement(bases, exponentiations); err != nil {
		return false, err
	}
	if proof == nil || proof.E == nil || proof.Z == nil {
		return false, nil
	}

	negE := suite.Scalar().Neg(proof.E)
	commitment := make([]kyber.Point, len(bases))
	for i := range bases {
		zg := suite.Point().Mul(proof.Z, bases[i])
		ey := suite.Point().Mul(negE, exponentiations[i])
		commitment[i] = suite.Point().Add(zg, ey)
	}

	e, err := challenge(suite, exponentiationLabel, bases, exponentiations, commitment, aux)
	if err != nil {
		return false, xerrors.Errorf("computing challenge: %v", err)
	}
	return e.Equal(proof.E), nil
}

func checkExponentiationStatement(bases, exponentiations []kyber.Point) error {
	if len(bases) == 0 {
		return xerrors.New("the statement needs at least one base")
	}
	if len(bases) != len(exponentiations) {
		return xerrors.Errorf("got %d bases and %d exponentiations",
			len(bases), len(exponentiations))
	}
	for i := range bases {
		if bases[i] == nil || exponentiations[i] == nil {
			return xerrors.Errorf("nil element at index %d", i)
		}
	}
	return nil
}
