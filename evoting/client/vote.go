// Package client creates the encrypted verifiable vote the way a voting
// client does.
package client

import (
	"crypto/cipher"
	"sort"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/suites"
	"golang.org/x/xerrors"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting/lib"
	"go.dedis.ch/ccrnode/evoting/zkp"
)

// Voter is the holder of a verification card.
type Voter struct {
	Ids       lib.ContextIds
	SecretKey kyber.Scalar
}

// CreateVote encrypts the selected options, given as indices into the
// primes mapping table of the card's set, and proves the encryption is
// consistent. Selections are sorted so that the i-th partial choice return
// code answers the i-th question. Missing write-ins are filled with the
// neutral element.
func (v *Voter) CreateVote(suite suites.Suite, ctx *lib.ElectionEventContext, contextHash string,
	selections []int, writeIns []kyber.Point, rand cipher.Stream) (*lib.EncryptedVerifiableVote, error) {
	vcs, err := ctx.VerificationCardSet(v.Ids.VerificationCardSetID)
	if err != nil {
		return nil, err
	}
	psi, delta := vcs.Psi(), vcs.NumberOfWriteInsPlusOne
	if len(selections) != psi {
		return nil, ccrnode.ErrInvalidInput.Wrapf("%d selections for %d questions", len(selections), psi)
	}
	if len(writeIns) > delta-1 {
		return nil, ccrnode.ErrInvalidInput.Wrapf("%d write-ins, at most %d allowed", len(writeIns), delta-1)
	}
	sorted := append([]int{}, selections...)
	sort.Ints(sorted)
	encodings, err := vcs.PrimesMappingTable.Encodings(sorted)
	if err != nil {
		return nil, err
	}

	// e1 = Enc((sum of encodings, write-ins), r, EL_pk)
	messages := make([]kyber.Point, delta)
	messages[0] = suite.Point().Null()
	for _, enc := range encodings {
		messages[0].Add(messages[0], enc)
	}
	for i := 1; i < delta; i++ {
		messages[i] = suite.Point().Null()
		if i-1 < len(writeIns) {
			messages[i] = writeIns[i-1]
		}
	}
	r := suite.Scalar().Pick(rand)
	e1, err := lib.Encrypt(suite, messages, r, ctx.ElectionPublicKey)
	if err != nil {
		return nil, xerrors.Errorf("encrypting vote: %w", err)
	}
	e1Tilde := e1.Head().Exponentiate(suite, v.SecretKey)

	// e2 = Enc(pCC, r', pk_CCR)
	pCC := make([]kyber.Point, psi)
	for i, enc := range encodings {
		pCC[i] = suite.Point().Mul(v.SecretKey, enc)
	}
	rPrime := suite.Scalar().Pick(rand)
	e2, err := lib.Encrypt(suite, pCC, rPrime, ctx.ChoiceReturnCodesEncryptionPublicKey)
	if err != nil {
		return nil, xerrors.Errorf("encrypting partial choice return codes: %w", err)
	}

	aux := lib.VoteAuxiliaryData(contextHash, v.Ids)
	K := suite.Point().Mul(v.SecretKey, nil)
	expProof, err := zkp.GenExponentiationProof(suite,
		[]kyber.Point{suite.Point().Base(), e1.Gamma, e1.Phis[0]}, v.SecretKey,
		[]kyber.Point{K, e1Tilde.Gamma, e1Tilde.Phis[0]}, aux, rand)
	if err != nil {
		return nil, xerrors.Errorf("exponentiation proof: %v", err)
	}

	e2Tilde := e2.Compress(suite)
	statement := &zkp.PlaintextEqualityStatement{
		Gamma:      e1Tilde.Gamma,
		Phi:        e1Tilde.Phis[0],
		GammaPrime: e2Tilde.Gamma,
		PhiPrime:   e2Tilde.Phis[0],
		H:          ctx.ElectionPublicKey[0],
		HPrime:     ctx.ChoiceReturnCodesEncryptionPublicKey.Sum(suite, psi),
	}
	peqProof, err := zkp.GenPlaintextEqualityProof(suite, statement,
		suite.Scalar().Mul(v.SecretKey, r), rPrime, aux, rand)
	if err != nil {
		return nil, xerrors.Errorf("plaintext equality proof: %v", err)
	}

	return &lib.EncryptedVerifiableVote{
		ContextIds:                        v.Ids,
		EncryptedVote:                     e1,
		ExponentiatedEncryptedVote:        e1Tilde,
		EncryptedPartialChoiceReturnCodes: e2,
		ExponentiationProof:               expProof,
		PlaintextEqualityProof:            peqProof,
	}, nil
}
