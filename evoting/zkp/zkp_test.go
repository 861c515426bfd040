package zkp

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/suites"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"
)

var tSuite = suites.MustFind("Ed25519")

func TestMain(m *testing.M) {
	log.MainTest(m)
}

func TestRecursiveHash(t *testing.T) {
	p := tSuite.Point().Pick(random.New())
	h1, err := RecursiveHash(tSuite, "a", []byte("b"), 3, p)
	require.NoError(t, err)
	h2, err := RecursiveHash(tSuite, "a", []byte("b"), 3, p)
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	// Concatenations must not collide.
	h3, err := RecursiveHash(tSuite, "ab")
	require.NoError(t, err)
	h4, err := RecursiveHash(tSuite, "a", "b")
	require.NoError(t, err)
	require.NotEqual(t, h3, h4)

	// A string and the same bytes are different values.
	h5, err := RecursiveHash(tSuite, []byte("a"))
	require.NoError(t, err)
	h6, err := RecursiveHash(tSuite, "a")
	require.NoError(t, err)
	require.NotEqual(t, h5, h6)

	// Nesting is part of the hash.
	h7, err := RecursiveHash(tSuite, []interface{}{"a", "b"})
	require.NoError(t, err)
	require.NotEqual(t, h4, h7)

	_, err = RecursiveHash(tSuite, 3.14)
	require.Error(t, err)
	var nilPoint kyber.Point
	_, err = RecursiveHash(tSuite, []kyber.Point{nilPoint})
	require.Error(t, err)
}

func genExponentiation(n int) ([]kyber.Point, kyber.Scalar, []kyber.Point) {
	x := tSuite.Scalar().Pick(random.New())
	bases := make([]kyber.Point, n)
	exps := make([]kyber.Point, n)
	bases[0] = tSuite.Point().Base()
	exps[0] = tSuite.Point().Mul(x, nil)
	for i := 1; i < n; i++ {
		bases[i] = tSuite.Point().Pick(random.New())
		exps[i] = tSuite.Point().Mul(x, bases[i])
	}
	return bases, x, exps
}

func TestExponentiationProof(t *testing.T) {
	bases, x, exps := genExponentiation(3)
	aux := []interface{}{"context", "vote"}

	proof, err := GenExponentiationProof(tSuite, bases, x, exps, aux, random.New())
	require.NoError(t, err)

	ok, err := VerifyExponentiation(tSuite, bases, exps, proof, aux)
	require.NoError(t, err)
	require.True(t, ok)

	// Different auxiliary data.
	ok, err = VerifyExponentiation(tSuite, bases, exps, proof, []interface{}{"context", "other"})
	require.NoError(t, err)
	require.False(t, ok)

	// Different statement.
	exps[1] = tSuite.Point().Pick(random.New())
	ok, err = VerifyExponentiation(tSuite, bases, exps, proof, aux)
	require.NoError(t, err)
	require.False(t, ok)

	// A missing proof is a failed verification, not an error.
	ok, err = VerifyExponentiation(tSuite, bases, exps, nil, aux)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestExponentiationProof_WrongExponent(t *testing.T) {
	bases, _, exps := genExponentiation(2)
	other := tSuite.Scalar().Pick(random.New())

	proof, err := GenExponentiationProof(tSuite, bases, other, exps, nil, random.New())
	require.NoError(t, err)
	ok, err := VerifyExponentiation(tSuite, bases, exps, proof, nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestExponentiationProof_Malformed(t *testing.T) {
	bases, x, exps := genExponentiation(2)

	_, err := GenExponentiationProof(tSuite, bases, x, exps[:1], nil, random.New())
	require.Error(t, err)
	_, err = GenExponentiationProof(tSuite, nil, x, nil, nil, random.New())
	require.Error(t, err)
	_, err = VerifyExponentiation(tSuite, bases[:1], exps, &ExponentiationProof{}, nil)
	require.Error(t, err)
}

func genPlaintextEquality() (*PlaintextEqualityStatement, kyber.Scalar, kyber.Scalar) {
	h := tSuite.Point().Pick(random.New())
	hPrime := tSuite.Point().Pick(random.New())
	m := tSuite.Point().Pick(random.New())
	x := tSuite.Scalar().Pick(random.New())
	xPrime := tSuite.Scalar().Pick(random.New())
	st := &PlaintextEqualityStatement{
		Gamma:      tSuite.Point().Mul(x, nil),
		Phi:        tSuite.Point().Add(tSuite.Point().Mul(x, h), m),
		GammaPrime: tSuite.Point().Mul(xPrime, nil),
		PhiPrime:   tSuite.Point().Add(tSuite.Point().Mul(xPrime, hPrime), m),
		H:          h,
		HPrime:     hPrime,
	}
	return st, x, xPrime
}

func TestPlaintextEqualityProof(t *testing.T) {
	st, x, xPrime := genPlaintextEquality()
	aux := []interface{}{"ballot"}

	proof, err := GenPlaintextEqualityProof(tSuite, st, x, xPrime, aux, random.New())
	require.NoError(t, err)

	v := NewVerifier(tSuite)
	ok, err := v.VerifyPlaintextEquality(st, proof, aux)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = v.VerifyPlaintextEquality(st, proof, nil)
	require.NoError(t, err)
	require.False(t, ok)

	// Changing one plaintext breaks the equality.
	st.PhiPrime = tSuite.Point().Add(st.PhiPrime, tSuite.Point().Base())
	ok, err = v.VerifyPlaintextEquality(st, proof, aux)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPlaintextEqualityProof_Malformed(t *testing.T) {
	st, x, xPrime := genPlaintextEquality()
	proof, err := GenPlaintextEqualityProof(tSuite, st, x, xPrime, nil, random.New())
	require.NoError(t, err)

	ok, err := VerifyPlaintextEquality(tSuite, st, &PlaintextEqualityProof{E: proof.E, Z: proof.Z[:1]}, nil)
	require.NoError(t, err)
	require.False(t, ok)

	st.H = nil
	_, err = VerifyPlaintextEquality(tSuite, st, proof, nil)
	require.Error(t, err)
	_, err = GenPlaintextEqualityProof(tSuite, st, x, xPrime, nil, random.New())
	require.Error(t, err)
}
