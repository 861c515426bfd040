package protocol

import (
	"crypto/cipher"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/suites"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting/lib"
	"go.dedis.ch/ccrnode/evoting/zkp"
)

// CreateLCCShareContext is the configuration of the share creation of node
// nodeID.
type CreateLCCShareContext struct {
	suite                       suites.Suite
	nodeID                      int
	ids                         lib.ContextIds
	blankCorrectnessInformation []string
	contextHash                 string
}

// NewCreateLCCShareContext checks and returns the context. There is one
// blank correctness information per selection.
func NewCreateLCCShareContext(suite suites.Suite, nodeID int, ids lib.ContextIds,
	blankCorrectnessInformation []string, contextHash string) (*CreateLCCShareContext, error) {
	if suite == nil {
		return nil, ccrnode.ErrInvalidInput.Wrapf("missing group")
	}
	if err := lib.ValidateNodeID(nodeID); err != nil {
		return nil, err
	}
	if err := ids.Validate(); err != nil {
		return nil, err
	}
	if err := checkPsi(len(blankCorrectnessInformation)); err != nil {
		return nil, err
	}
	if err := checkContextHash(contextHash); err != nil {
		return nil, err
	}
	return &CreateLCCShareContext{
		suite:                       suite,
		nodeID:                      nodeID,
		ids:                         ids,
		blankCorrectnessInformation: blankCorrectnessInformation,
		contextHash:                 contextHash,
	}, nil
}

// CreateLCCShareInput holds the decrypted partial choice return codes, the
// allow list of the set and the return codes generation secret key.
type CreateLCCShareInput struct {
	group     kyber.Group
	allowList AllowList
	pCC       []kyber.Point
	secretKey kyber.Scalar
}

// NewCreateLCCShareInput returns ErrDuplicateCodes if two partial choice
// return codes are equal and ErrGroupMismatch if the key and the codes are
// not of the same group.
func NewCreateLCCShareInput(group kyber.Group, allowList AllowList, partialChoiceReturnCodes []kyber.Point,
	secretKey kyber.Scalar) (*CreateLCCShareInput, error) {
	if group == nil || allowList == nil {
		return nil, ccrnode.ErrInvalidInput.Wrapf("missing group or allow list")
	}
	if err := checkPsi(len(partialChoiceReturnCodes)); err != nil {
		return nil, err
	}
	if err := checkPoints(group, partialChoiceReturnCodes...); err != nil {
		return nil, err
	}
	if err := checkScalar(group, secretKey); err != nil {
		return nil, err
	}
	for i, p := range partialChoiceReturnCodes {
		for j := 0; j < i; j++ {
			if p.Equal(partialChoiceReturnCodes[j]) {
				return nil, ccrnode.ErrDuplicateCodes.Wrapf("codes %d and %d are equal", j, i)
			}
		}
	}
	return &CreateLCCShareInput{
		group:     group,
		allowList: allowList,
		pCC:       partialChoiceReturnCodes,
		secretKey: secretKey,
	}, nil
}

// CreateLCCShare hashes every partial choice return code and looks it up in
// the allow list, together with the card and the question it answers. The
// first code missing from the list aborts with ErrNotInAllowList. Otherwise
// the node derives its voter key from the return codes generation key and
// returns the long choice return codes share with a proof. The recorder
// guarantees the share is created at most once per card.
func CreateLCCShare(ctx *CreateLCCShareContext, in *CreateLCCShareInput, rec ShareRecorder,
	rand cipher.Stream) (*lib.LongChoiceReturnCodesShare, error) {
	if ctx == nil || in == nil || rec == nil {
		return nil, ccrnode.ErrInvalidInput.Wrapf("missing context, input or recorder")
	}
	if err := checkGroups(ctx.suite, in.group); err != nil {
		return nil, err
	}
	if len(in.pCC) != len(ctx.blankCorrectnessInformation) {
		return nil, ccrnode.ErrInvalidInput.Wrapf("%d partial choice return codes for %d selections",
			len(in.pCC), len(ctx.blankCorrectnessInformation))
	}

	var share *lib.LongChoiceReturnCodesShare
	err := rec.RecordLCCShare(ctx.ids.VerificationCardID, func() (*lib.LongChoiceReturnCodesShare, error) {
		var err error
		share, err = createShare(ctx, in, rand)
		return share, err
	})
	if err != nil {
		return nil, err
	}
	log.Lvlf3("Node %d created the long choice return codes share of %v", ctx.nodeID, ctx.ids)
	return share, nil
}

func createShare(ctx *CreateLCCShareContext, in *CreateLCCShareInput,
	rand cipher.Stream) (*lib.LongChoiceReturnCodesShare, error) {
	suite := ctx.suite
	ids := ctx.ids

	hpCC := make([]kyber.Point, len(in.pCC))
	for i, p := range in.pCC {
		h, err := lib.HashAndSquare(suite, p)
		if err != nil {
			return nil, xerrors.Errorf("hashing code %d: %v", i, err)
		}
		entry, err := lib.AllowListEntry(suite, h, ids.VerificationCardID, ids.ElectionEventID,
			ctx.blankCorrectnessInformation[i])
		if err != nil {
			return nil, xerrors.Errorf("allow list entry %d: %v", i, err)
		}
		ok, err := in.allowList.Contains(entry)
		if err != nil {
			return nil, ccrnode.StoreErrorOrNil(err, "looking up the allow list")
		}
		if !ok {
			return nil, ccrnode.ErrNotInAllowList.Wrapf("partial choice return code %d of %v", i, ids)
		}
		hpCC[i] = h
	}

	k, err := lib.DeriveKey(suite, in.secretKey, lib.VoterChoiceReturnCodeGeneration,
		ids.ElectionEventID, ids.VerificationCardSetID, ids.VerificationCardID)
	if err != nil {
		return nil, err
	}
	share := &lib.LongChoiceReturnCodesShare{
		ContextIds:                ids,
		NodeID:                    ctx.nodeID,
		LongChoiceReturnCodeShare: make([]kyber.Point, len(hpCC)),
	}
	share.VoterChoiceReturnCodeGenerationPublicKey = suite.Point().Mul(k, nil)
	for i, h := range hpCC {
		share.LongChoiceReturnCodeShare[i] = suite.Point().Mul(k, h)
	}
	bases := append([]kyber.Point{suite.Point().Base()}, hpCC...)
	exps := append([]kyber.Point{share.VoterChoiceReturnCodeGenerationPublicKey}, share.LongChoiceReturnCodeShare...)
	share.ExponentiationProof, err = zkp.GenExponentiationProof(suite, bases, k, exps,
		lib.LCCShareAuxiliaryData(ctx.contextHash, ids, ctx.nodeID), rand)
	if err != nil {
		return nil, xerrors.Errorf("proving the share: %v", err)
	}
	return share, nil
}
