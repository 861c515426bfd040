package protocol

import (
	"crypto/cipher"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting/lib"
	"go.dedis.ch/ccrnode/evoting/zkp"
)

// PartialDecryptPCCContext is the configuration of a partial decryption.
type PartialDecryptPCCContext struct {
	group       zkp.Suite
	nodeID      int
	ids         lib.ContextIds
	psi         int
	delta       int
	contextHash string
}

// NewPartialDecryptPCCContext checks and returns the context of node
// nodeID for the card ids.
func NewPartialDecryptPCCContext(group zkp.Suite, nodeID int, ids lib.ContextIds, psi, delta int,
	contextHash string) (*PartialDecryptPCCContext, error) {
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
	return &PartialDecryptPCCContext{
		group:       group,
		nodeID:      nodeID,
		ids:         ids,
		psi:         psi,
		delta:       delta,
		contextHash: contextHash,
	}, nil
}

// PartialDecryptPCCInput holds the vote and the CCR keys of the node.
type PartialDecryptPCCInput struct {
	group        kyber.Group
	vote         *lib.EncryptedVerifiableVote
	ccrPublicKey lib.PublicKey
	ccrSecretKey lib.SecretKey
}

// NewPartialDecryptPCCInput checks that the vote is complete and that the
// key pair matches.
func NewPartialDecryptPCCInput(group kyber.Group, vote *lib.EncryptedVerifiableVote,
	ccrPublicKey lib.PublicKey, ccrSecretKey lib.SecretKey) (*PartialDecryptPCCInput, error) {
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
	if len(ccrSecretKey) == 0 || len(ccrPublicKey) != len(ccrSecretKey) {
		return nil, ccrnode.ErrInvalidInput.Wrapf("CCR key pair sizes %d and %d",
			len(ccrPublicKey), len(ccrSecretKey))
	}
	for _, x := range ccrSecretKey {
		if err := checkScalar(group, x); err != nil {
			return nil, err
		}
	}
	if err := checkPoints(group, ccrPublicKey...); err != nil {
		return nil, err
	}
	if !ccrSecretKey.PublicKey(group).Equal(ccrPublicKey) {
		return nil, ccrnode.ErrInvalidInput.Wrapf("CCR public key does not match the secret key")
	}
	return &PartialDecryptPCCInput{
		group:        group,
		vote:         vote,
		ccrPublicKey: ccrPublicKey,
		ccrSecretKey: ccrSecretKey,
	}, nil
}

// PartialDecryptPCC computes the contribution of the node to the decryption
// of the encrypted partial choice return codes e2: every element of the
// secret key multiplies the ephemeral key of e2, with a proof of
// exponentiation bound to the context hash. The recorder persists the result
// and the PARTIALLY_DECRYPTED state of the card atomically; a card already
// partially decrypted fails with ErrAlreadyPartiallyDecrypted and nothing is
// computed.
func PartialDecryptPCC(ctx *PartialDecryptPCCContext, in *PartialDecryptPCCInput,
	rec PartialDecryptionRecorder, rand cipher.Stream) (*lib.PartiallyDecryptedEncryptedPCC, error) {
	if ctx == nil || in == nil || rec == nil {
		return nil, ccrnode.ErrInvalidInput.Wrapf("missing context, input or recorder")
	}
	if err := checkGroups(ctx.group, in.group); err != nil {
		return nil, err
	}
	vote := in.vote
	if !vote.ContextIds.Equal(ctx.ids) {
		return nil, ccrnode.ErrInconsistentIdentifiers.Wrapf("vote %v in context %v", vote.ContextIds, ctx.ids)
	}
	e2 := vote.EncryptedPartialChoiceReturnCodes
	if err := checkSize("encrypted partial choice return codes", ctx.psi, e2.Size()); err != nil {
		return nil, err
	}
	if err := checkSize("encrypted vote", ctx.delta, vote.EncryptedVote.Size()); err != nil {
		return nil, err
	}
	if err := checkSize("exponentiated encrypted vote", 1, vote.ExponentiatedEncryptedVote.Size()); err != nil {
		return nil, err
	}
	if len(in.ccrSecretKey) < ctx.psi {
		return nil, ccrnode.ErrInvalidInput.Wrapf("CCR secret key of size %d for %d selections",
			len(in.ccrSecretKey), ctx.psi)
	}

	var result *lib.PartiallyDecryptedEncryptedPCC
	err := rec.RecordPartialDecryption(vote, func() (*lib.PartiallyDecryptedEncryptedPCC, error) {
		var err error
		result, err = partialDecrypt(ctx, in, rand)
		return result, err
	})
	if err != nil {
		return nil, err
	}
	log.Lvlf3("Node %d partially decrypted %v", ctx.nodeID, ctx.ids)
	return result, nil
}

func partialDecrypt(ctx *PartialDecryptPCCContext, in *PartialDecryptPCCInput,
	rand cipher.Stream) (*lib.PartiallyDecryptedEncryptedPCC, error) {
	group := ctx.group
	gamma := in.vote.EncryptedPartialChoiceReturnCodes.Gamma
	aux := lib.PartialDecryptionAuxiliaryData(ctx.contextHash, ctx.ids, ctx.nodeID)

	pd := &lib.PartiallyDecryptedEncryptedPCC{
		ContextIds:           ctx.ids,
		NodeID:               ctx.nodeID,
		ExponentiatedGammas:  make([]kyber.Point, ctx.psi),
		ExponentiationProofs: make([]*zkp.ExponentiationProof, ctx.psi),
	}
	for i := 0; i < ctx.psi; i++ {
		pd.ExponentiatedGammas[i] = group.Point().Mul(in.ccrSecretKey[i], gamma)
		proof, err := zkp.GenExponentiationProof(group,
			[]kyber.Point{group.Point().Base(), gamma}, in.ccrSecretKey[i],
			[]kyber.Point{in.ccrPublicKey[i], pd.ExponentiatedGammas[i]}, aux, rand)
		if err != nil {
			return nil, xerrors.Errorf("proving exponentiation %d: %v", i, err)
		}
		pd.ExponentiationProofs[i] = proof
	}
	return pd, nil
}
