package lib

import (
	"encoding/base64"
	"io"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/suites"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/xerrors"

	"go.dedis.ch/ccrnode/evoting/zkp"
)

// VoterChoiceReturnCodeGeneration is the KDF label of the per-voter
// return codes generation key.
const VoterChoiceReturnCodeGeneration = "VoterChoiceReturnCodeGeneration"

// HashToPoint maps the values to a group element nobody knows the discrete
// logarithm of.
func HashToPoint(suite suites.Suite, values ...interface{}) (kyber.Point, error) {
	seed, err := zkp.RecursiveHash(suite, values...)
	if err != nil {
		return nil, err
	}
	return suite.Point().Pick(suite.XOF(seed)), nil
}

// HashAndSquare hashes a partial choice return code to the group and
// doubles the result.
func HashAndSquare(suite suites.Suite, p kyber.Point) (kyber.Point, error) {
	h, err := HashToPoint(suite, "HashAndSquare", p)
	if err != nil {
		return nil, err
	}
	return h.Add(h, h), nil
}

// AllowListEntry is the base64 lookup key of a hashed partial choice return
// code in the allow list of its verification card set.
func AllowListEntry(suite suites.Suite, hashedCode kyber.Point, verificationCardID,
	electionEventID, correctnessInformation string) (string, error) {
	buf, err := zkp.RecursiveHash(suite, hashedCode, verificationCardID,
		electionEventID, correctnessInformation)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// DeriveKey derives a scalar from the secret key and the context with
// HKDF over the suite's hash function.
func DeriveKey(suite suites.Suite, secret kyber.Scalar, info ...string) (kyber.Scalar, error) {
	if secret == nil {
		return nil, xerrors.New("missing secret key")
	}
	ikm, err := secret.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("marshaling secret: %v", err)
	}
	label, err := zkp.RecursiveHash(suite, info)
	if err != nil {
		return nil, err
	}
	okm := make([]byte, 2*suite.ScalarLen())
	if _, err := io.ReadFull(hkdf.New(suite.Hash, ikm, nil, label), okm); err != nil {
		return nil, xerrors.Errorf("deriving key: %v", err)
	}
	return suite.Scalar().SetBytes(okm), nil
}
