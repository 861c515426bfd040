package protocol

import (
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3/log"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting/lib"
	"go.dedis.ch/ccrnode/evoting/zkp"
)

// VerifyBallotCCRContext is the configuration needed to check the proofs
// of a voting client.
type VerifyBallotCCRContext struct {
	group                                kyber.Group
	ids                                  lib.ContextIds
	primesMappingTable                   *lib.PrimesMappingTable
	delta                                int
	contextHash                          string
	verificationCardPublicKey            kyber.Point
	electionPublicKey                    lib.PublicKey
	choiceReturnCodesEncryptionPublicKey lib.PublicKey
}

// NewVerifyBallotCCRContext checks and returns the context. The keys must
// be large enough for the write-ins and the selections of the table.
func NewVerifyBallotCCRContext(group kyber.Group, ids lib.ContextIds,
	primesMappingTable *lib.PrimesMappingTable, delta int, contextHash string,
	verificationCardPublicKey kyber.Point, electionPublicKey,
	choiceReturnCodesEncryptionPublicKey lib.PublicKey) (*VerifyBallotCCRContext, error) {
	if group == nil {
		return nil, ccrnode.ErrInvalidInput.Wrapf("missing group")
	}
	if err := ids.Validate(); err != nil {
		return nil, err
	}
	if err := primesMappingTable.Validate(); err != nil {
		return nil, err
	}
	if err := checkDelta(delta); err != nil {
		return nil, err
	}
	if err := checkContextHash(contextHash); err != nil {
		return nil, err
	}
	if err := checkPoints(group, verificationCardPublicKey); err != nil {
		return nil, err
	}
	if len(electionPublicKey) < delta {
		return nil, ccrnode.ErrInvalidInput.Wrapf("election public key of size %d for %d write-ins plus one",
			len(electionPublicKey), delta)
	}
	psi := primesMappingTable.Psi()
	if len(choiceReturnCodesEncryptionPublicKey) < psi {
		return nil, ccrnode.ErrInvalidInput.Wrapf("choice return codes key of size %d for %d selections",
			len(choiceReturnCodesEncryptionPublicKey), psi)
	}
	if err := checkPoints(group, electionPublicKey...); err != nil {
		return nil, err
	}
	if err := checkPoints(group, choiceReturnCodesEncryptionPublicKey...); err != nil {
		return nil, err
	}
	return &VerifyBallotCCRContext{
		group:                                group,
		ids:                                  ids,
		primesMappingTable:                   primesMappingTable,
		delta:                                delta,
		contextHash:                          contextHash,
		verificationCardPublicKey:            verificationCardPublicKey,
		electionPublicKey:                    electionPublicKey,
		choiceReturnCodesEncryptionPublicKey: choiceReturnCodesEncryptionPublicKey,
	}, nil
}

// VerifyBallotCCRInput holds the vote to check.
type VerifyBallotCCRInput struct {
	group kyber.Group
	vote  *lib.EncryptedVerifiableVote
}

// NewVerifyBallotCCRInput checks that the vote is complete.
func NewVerifyBallotCCRInput(group kyber.Group, vote *lib.EncryptedVerifiableVote) (*VerifyBallotCCRInput, error) {
	if group == nil {
		return nil, ccrnode.ErrInvalidInput.Wrapf("missing group")
	}
	if err := vote.Check(); err != nil {
		return nil, err
	}
	if err := checkCiphertexts(group, vote.EncryptedVote, vote.ExponentiatedEncryptedVote,
		vote.EncryptedPartialChoiceReturnCodes); err != nil {
		return nil, err
	}
	return &VerifyBallotCCRInput{group: group, vote: vote}, nil
}

// VerifyBallotCCR returns true if both the exponentiation proof and the
// plaintext equality proof of the vote hold. An invalid proof is an
// expected outcome and returns false; errors are reserved for inputs that
// do not fit the context.
func VerifyBallotCCR(ctx *VerifyBallotCCRContext, in *VerifyBallotCCRInput, verifier zkp.Verifier) (bool, error) {
	if ctx == nil || in == nil || verifier == nil {
		return false, ccrnode.ErrInvalidInput.Wrapf("missing context, input or verifier")
	}
	if err := checkGroups(ctx.group, in.group); err != nil {
		return false, err
	}
	vote := in.vote
	if !vote.ContextIds.Equal(ctx.ids) {
		return false, ccrnode.ErrInconsistentIdentifiers.Wrapf("vote %v in context %v", vote.ContextIds, ctx.ids)
	}
	psi := ctx.primesMappingTable.Psi()
	e1, e1Tilde, e2 := vote.EncryptedVote, vote.ExponentiatedEncryptedVote, vote.EncryptedPartialChoiceReturnCodes
	if err := checkSize("encrypted partial choice return codes", psi, e2.Size()); err != nil {
		return false, err
	}
	if err := checkSize("encrypted vote", ctx.delta, e1.Size()); err != nil {
		return false, err
	}
	if err := checkSize("exponentiated encrypted vote", 1, e1Tilde.Size()); err != nil {
		return false, err
	}

	group := ctx.group
	aux := lib.VoteAuxiliaryData(ctx.contextHash, ctx.ids)
	ok, err := verifier.VerifyExponentiation(
		[]kyber.Point{group.Point().Base(), e1.Gamma, e1.Phis[0]},
		[]kyber.Point{ctx.verificationCardPublicKey, e1Tilde.Gamma, e1Tilde.Phis[0]},
		vote.ExponentiationProof, aux)
	if err != nil {
		return false, ccrnode.ErrInvalidInput.Wrapf("exponentiation proof: %v", err)
	}
	if !ok {
		log.Lvlf2("Invalid exponentiation proof for %v", ctx.ids)
		return false, nil
	}

	e2Tilde := e2.Compress(group)
	statement := &zkp.PlaintextEqualityStatement{
		Gamma:      e1Tilde.Gamma,
		Phi:        e1Tilde.Phis[0],
		GammaPrime: e2Tilde.Gamma,
		PhiPrime:   e2Tilde.Phis[0],
		H:          ctx.electionPublicKey[0],
		HPrime:     ctx.choiceReturnCodesEncryptionPublicKey.Sum(group, psi),
	}
	ok, err = verifier.VerifyPlaintextEquality(statement, vote.PlaintextEqualityProof, aux)
	if err != nil {
		return false, ccrnode.ErrInvalidInput.Wrapf("plaintext equality proof: %v", err)
	}
	if !ok {
		log.Lvlf2("Invalid plaintext equality proof for %v", ctx.ids)
		return false, nil
	}
	return true, nil
}
