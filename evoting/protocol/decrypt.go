package protocol

import (
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3/log"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting/lib"
	"go.dedis.ch/ccrnode/evoting/zkp"
)

// DecryptPCCContext is the configuration node nodeID uses to check the
// partial decryptions of the other nodes.
type DecryptPCCContext struct {
	group       kyber.Group
	nodeID      int
	ids         lib.ContextIds
	psi         int
	delta       int
	contextHash string
	// peers are the ids of the other nodes, ascending, and peerKeys their
	// CCR public keys in the same order.
	peers    []int
	peerKeys []lib.PublicKey
}

// NewDecryptPCCContext checks and returns the context. The CCR public keys
// of the other nodes are given in ascending node id order.
func NewDecryptPCCContext(group kyber.Group, nodeID int, ids lib.ContextIds, psi, delta int,
	contextHash string, otherNodesCcrPublicKeys []lib.PublicKey) (*DecryptPCCContext, error) {
	if group == nil {
		return nil, ccrnode.ErrInvalidInput.Wrapf("missing group")
	}
	if err := lib.ValidateNodeID(nodeID); err != nil {
		return nil, err
	}
	if err := ids.Validate(); err != nil {
		return nil, err
	}
	if err := checkPsi(psi); err != nil {
		return nil, err
	}
	if err := checkDelta(delta); err != nil {
		return nil, err
	}
	if err := checkContextHash(contextHash); err != nil {
		return nil, err
	}
	peers := lib.PeerNodeIDs(nodeID)
	if len(otherNodesCcrPublicKeys) != len(peers) {
		return nil, ccrnode.ErrInvalidInput.Wrapf("need the CCR public keys of %d other nodes, got %d",
			len(peers), len(otherNodesCcrPublicKeys))
	}
	for j, pk := range otherNodesCcrPublicKeys {
		if len(pk) < psi {
			return nil, ccrnode.ErrInvalidInput.Wrapf("CCR public key of node %d has size %d, need %d",
				peers[j], len(pk), psi)
		}
		if err := checkPoints(group, pk[:psi]...); err != nil {
			return nil, err
		}
	}
	return &DecryptPCCContext{
		group:       group,
		nodeID:      nodeID,
		ids:         ids,
		psi:         psi,
		delta:       delta,
		contextHash: contextHash,
		peers:       peers,
		peerKeys:    otherNodesCcrPublicKeys,
	}, nil
}

// DecryptPCCInput holds the own contribution, the contributions of the
// other nodes in ascending node id order and the vote ciphertexts.
type DecryptPCCInput struct {
	group                          kyber.Group
	exponentiatedGammas            []kyber.Point
	otherNodesExponentiatedGammas  [][]kyber.Point
	otherNodesExponentiationProofs [][]*zkp.ExponentiationProof
	encryptedVote                  *lib.Ciphertext
	exponentiatedEncryptedVote     *lib.Ciphertext
	encryptedPCC                   *lib.Ciphertext
}

// NewDecryptPCCInput checks that the three other contributions have the
// size of the own one and that all elements belong to the group.
func NewDecryptPCCInput(group kyber.Group, exponentiatedGammas []kyber.Point,
	otherNodesExponentiatedGammas [][]kyber.Point,
	otherNodesExponentiationProofs [][]*zkp.ExponentiationProof,
	encryptedVote, exponentiatedEncryptedVote, encryptedPartialChoiceReturnCodes *lib.Ciphertext) (*DecryptPCCInput, error) {
	if group == nil {
		return nil, ccrnode.ErrInvalidInput.Wrapf("missing group")
	}
	if len(exponentiatedGammas) == 0 {
		return nil, ccrnode.ErrInvalidInput.Wrapf("missing own exponentiated gammas")
	}
	if err := checkPoints(group, exponentiatedGammas...); err != nil {
		return nil, err
	}
	others := lib.NumberOfNodes - 1
	if len(otherNodesExponentiatedGammas) != others || len(otherNodesExponentiationProofs) != others {
		return nil, ccrnode.ErrInvalidInput.Wrapf("need %d other contributions, got %d gamma vectors and %d proof vectors",
			others, len(otherNodesExponentiatedGammas), len(otherNodesExponentiationProofs))
	}
	for j := range otherNodesExponentiatedGammas {
		if len(otherNodesExponentiatedGammas[j]) != len(exponentiatedGammas) ||
			len(otherNodesExponentiationProofs[j]) != len(exponentiatedGammas) {
			return nil, ccrnode.ErrInvalidInput.Wrapf("other contribution %d has %d gammas and %d proofs, expected %d",
				j, len(otherNodesExponentiatedGammas[j]), len(otherNodesExponentiationProofs[j]),
				len(exponentiatedGammas))
		}
		if err := checkPoints(group, otherNodesExponentiatedGammas[j]...); err != nil {
			return nil, err
		}
	}
	if err := checkCiphertexts(group, encryptedVote, exponentiatedEncryptedVote,
		encryptedPartialChoiceReturnCodes); err != nil {
		return nil, err
	}
	return &DecryptPCCInput{
		group:                          group,
		exponentiatedGammas:            exponentiatedGammas,
		otherNodesExponentiatedGammas:  otherNodesExponentiatedGammas,
		otherNodesExponentiationProofs: otherNodesExponentiationProofs,
		encryptedVote:                  encryptedVote,
		exponentiatedEncryptedVote:     exponentiatedEncryptedVote,
		encryptedPCC:                   encryptedPartialChoiceReturnCodes,
	}, nil
}

// DecryptPCC verifies the exponentiation proofs of the other nodes, in
// ascending node id order, and stops at the first invalid one with a
// PeerProofError naming the node. If all proofs hold, it removes the four
// contributions from e2 and returns the psi partial choice return codes.
func DecryptPCC(ctx *DecryptPCCContext, in *DecryptPCCInput, verifier zkp.Verifier) ([]kyber.Point, error) {
	if ctx == nil || in == nil || verifier == nil {
		return nil, ccrnode.ErrInvalidInput.Wrapf("missing context, input or verifier")
	}
	if err := checkGroups(ctx.group, in.group); err != nil {
		return nil, err
	}
	e2 := in.encryptedPCC
	if err := checkSize("encrypted partial choice return codes", ctx.psi, e2.Size()); err != nil {
		return nil, err
	}
	if err := checkSize("encrypted vote", ctx.delta, in.encryptedVote.Size()); err != nil {
		return nil, err
	}
	if err := checkSize("exponentiated encrypted vote", 1, in.exponentiatedEncryptedVote.Size()); err != nil {
		return nil, err
	}
	if err := checkSize("exponentiated gammas", ctx.psi, len(in.exponentiatedGammas)); err != nil {
		return nil, err
	}

	group := ctx.group
	bases := []kyber.Point{group.Point().Base(), e2.Gamma}
	for j, peer := range ctx.peers {
		aux := lib.PartialDecryptionAuxiliaryData(ctx.contextHash, ctx.ids, peer)
		for i := 0; i < ctx.psi; i++ {
			ok, err := verifier.VerifyExponentiation(bases,
				[]kyber.Point{ctx.peerKeys[j][i], in.otherNodesExponentiatedGammas[j][i]},
				in.otherNodesExponentiationProofs[j][i], aux)
			if err != nil {
				return nil, ccrnode.ErrInvalidInput.Wrapf("proof %d of node %d: %v", i, peer, err)
			}
			if !ok {
				log.Warnf("Node %d: invalid partial decryption proof %d of node %d for %v",
					ctx.nodeID, i, peer, ctx.ids)
				return nil, &ccrnode.PeerProofError{NodeID: peer, Index: i}
			}
		}
	}

	pCC := make([]kyber.Point, ctx.psi)
	for i := range pCC {
		sum := group.Point().Set(in.exponentiatedGammas[i])
		for j := range ctx.peers {
			sum.Add(sum, in.otherNodesExponentiatedGammas[j][i])
		}
		pCC[i] = group.Point().Sub(e2.Phis[i], sum)
	}
	log.Lvlf3("Node %d decrypted the partial choice return codes of %v", ctx.nodeID, ctx.ids)
	return pCC, nil
}
