package lib

import (
	"go.dedis.ch/kyber/v3"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting/zkp"
)

// PROTOSTART
// package ccrnode;
// type :ElectionEventState:sint32
// type :VerificationCardState:sint32
//
// option java_package = "ch.dedis.ccrnode.lib.proto";
// option java_outer_classname = "CcrNode";

// EncryptedVerifiableVote is the vote as sent by the voting client. It is
// created once and never modified.
type EncryptedVerifiableVote struct {
	ContextIds ContextIds
	// EncryptedVote is e1, the encryption of the selected voting options
	// and write-ins under the election public key.
	EncryptedVote *Ciphertext
	// ExponentiatedEncryptedVote is e1~, the first element of e1
	// multiplied by the verification card secret key.
	ExponentiatedEncryptedVote *Ciphertext
	// EncryptedPartialChoiceReturnCodes is e2, the encryption of the
	// partial choice return codes under the choice return codes key.
	EncryptedPartialChoiceReturnCodes *Ciphertext
	ExponentiationProof               *zkp.ExponentiationProof
	PlaintextEqualityProof            *zkp.PlaintextEqualityProof
}

// PartiallyDecryptedEncryptedPCC is the contribution of one node to the
// decryption of e2. A node produces at most one per vote.
type PartiallyDecryptedEncryptedPCC struct {
	ContextIds           ContextIds
	NodeID               int
	ExponentiatedGammas  []kyber.Point
	ExponentiationProofs []*zkp.ExponentiationProof
}

// LongChoiceReturnCodesShare is the share of the long choice return codes
// a node releases for a vote.
type LongChoiceReturnCodesShare struct {
	ContextIds ContextIds
	NodeID     int
	// LongChoiceReturnCodeShare holds one element per selection.
	LongChoiceReturnCodeShare []kyber.Point
	// VoterChoiceReturnCodeGenerationPublicKey is the public key matching
	// the derived per-voter key.
	VoterChoiceReturnCodeGenerationPublicKey kyber.Point
	ExponentiationProof                      *zkp.ExponentiationProof
}

// Check makes sure no element of the vote is missing.
func (v *EncryptedVerifiableVote) Check() error {
	if v == nil {
		return ccrnode.ErrInvalidInput.Wrapf("missing vote")
	}
	if err := v.ContextIds.Validate(); err != nil {
		return err
	}
	for _, c := range []*Ciphertext{v.EncryptedVote, v.ExponentiatedEncryptedVote,
		v.EncryptedPartialChoiceReturnCodes} {
		if err := c.Check(); err != nil {
			return err
		}
	}
	if v.ExponentiationProof == nil || v.PlaintextEqualityProof == nil {
		return ccrnode.ErrInvalidInput.Wrapf("missing vote proof %v", v.ContextIds)
	}
	return nil
}

// Check makes sure the contribution is complete.
func (p *PartiallyDecryptedEncryptedPCC) Check() error {
	if p == nil {
		return ccrnode.ErrInvalidInput.Wrapf("missing partial decryption")
	}
	if err := p.ContextIds.Validate(); err != nil {
		return err
	}
	if err := ValidateNodeID(p.NodeID); err != nil {
		return err
	}
	if len(p.ExponentiatedGammas) == 0 || len(p.ExponentiatedGammas) != len(p.ExponentiationProofs) {
		return ccrnode.ErrInvalidInput.Wrapf("node %d sent %d exponentiated gammas and %d proofs",
			p.NodeID, len(p.ExponentiatedGammas), len(p.ExponentiationProofs))
	}
	for i, g := range p.ExponentiatedGammas {
		if g == nil {
			return ccrnode.ErrInvalidInput.Wrapf("node %d: missing exponentiated gamma %d", p.NodeID, i)
		}
	}
	return nil
}
