package zkp

import (
	"crypto/cipher"

	"go.dedis.ch/kyber/v3"
	"golang.org/x/xerrors"
)

const plaintextEqualityLabel = "PlaintextEqualityProof"

// PlaintextEqualityStatement holds two single-element ElGamal ciphertexts
// (Gamma, Phi) and (GammaPrime, PhiPrime), encrypted under H and HPrime
// respectively, that are claimed to carry the same message.
type PlaintextEqualityStatement struct {
	Gamma      kyber.Point
	Phi        kyber.Point
	GammaPrime kyber.Point
	PhiPrime   kyber.Point
	H          kyber.Point
	HPrime     kyber.Point
}

// PlaintextEqualityProof proves knowledge of the two encryption randomnesses
// (x, x') such that Gamma = x·G, GammaPrime = x'·G and
// Phi - PhiPrime = x·H - x'·HPrime.
type PlaintextEqualityProof struct {
	E kyber.Scalar
	Z []kyber.Scalar
}

func (st *PlaintextEqualityStatement) check() error {
	if st == nil {
		return xerrors.New("missing statement")
	}
	for _, p := range []kyber.Point{st.Gamma, st.Phi, st.GammaPrime, st.PhiPrime, st.H, st.HPrime} {
		if p == nil {
			return xerrors.New("incomplete plaintext equality statement")
		}
	}
	return nil
}

// image returns the public values the homomorphism maps the witness to.
func (st *PlaintextEqualityStatement) image(suite Suite) []kyber.Point {
	return []kyber.Point{st.Gamma, st.GammaPrime, suite.Point().Sub(st.Phi, st.PhiPrime)}
}

func (st *PlaintextEqualityStatement) phi(suite Suite, x, xPrime kyber.Scalar) []kyber.Point {
	return []kyber.Point{
		suite.Point().Mul(x, nil),
		suite.Point().Mul(xPrime, nil),
		suite.Point().Sub(suite.Point().Mul(x, st.H), suite.Point().Mul(xPrime, st.HPrime)),
	}
}

// GenPlaintextEqualityProof creates the proof for the statement, given the
// randomness used in both encryptions.
func GenPlaintextEqualityProof(suite Suite, st *PlaintextEqualityStatement,
	x, xPrime kyber.Scalar, aux []interface{}, rand cipher.Stream) (*PlaintextEqualityProof, error) {
	if err := st.check(); err != nil {
		return nil, err
	}
	if x == nil || xPrime == nil {
		return nil, xerrors.New("missing witness")
	}

	b := suite.Scalar().Pick(rand)
	bPrime := suite.Scalar().Pick(rand)
	commitment := st.phi(suite, b, bPrime)

	e, err := challenge(suite, plaintextEqualityLabel,
		[]kyber.Point{st.H, st.HPrime}, st.image(suite), commitment, aux)
	if err != nil {
		return nil, xerrors.Errorf("computing challenge: %v", err)
	}
	return &PlaintextEqualityProof{
		E: e,
		Z: []kyber.Scalar{
			suite.Scalar().Add(b, suite.Scalar().Mul(e, x)),
			suite.Scalar().Add(bPrime, suite.Scalar().Mul(e, xPrime)),
		},
	}, nil
}

// VerifyPlaintextEquality returns true if the proof is valid for the
// statement and the auxiliary data.
func VerifyPlaintextEquality(suite Suite, st *PlaintextEqualityStatement,
	proof *PlaintextEqualityProof, aux []interface{}) (bool, error) {
	if err := st.check(); err != nil {
		return false, err
	}
	if proof == nil || proof.E == nil || len(proof.Z) != 2 ||
		proof.Z[0] == nil || proof.Z[1] == nil {
		return false, nil
	}

	image := st.image(suite)
	phiZ := st.phi(suite, proof.Z[0], proof.Z[1])
	negE := suite.Scalar().Neg(proof.E)
	commitment := make([]kyber.Point, len(image))
	for i := range image {
		commitment[i] = suite.Point().Add(phiZ[i], suite.Point().Mul(negE, image[i]))
	}

	e, err := challenge(suite, plaintextEqualityLabel,
		[]kyber.Point{st.H, st.HPrime}, image, commitment, aux)
	if err != nil {
		return false, xerrors.Errorf("computing challenge: %v", err)
	}
	return e.Equal(proof.E), nil
}
