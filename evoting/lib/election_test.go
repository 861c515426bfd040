package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3/util/random"
	"golang.org/x/xerrors"

	"go.dedis.ch/ccrnode"
)

func testContext(t *testing.T) *ElectionEventContext {
	_, elPk := GenKeyPair(tSuite, 2, random.New())
	var ccrKeys []NodeCcrPublicKey
	var keys []PublicKey
	for i := 0; i < NumberOfNodes; i++ {
		_, pk := GenKeyPair(tSuite, 3, random.New())
		ccrKeys = append(ccrKeys, NodeCcrPublicKey{NodeID: i + 1, PublicKey: pk})
		keys = append(keys, pk)
	}
	combined, err := CombinePublicKeys(tSuite, keys...)
	require.NoError(t, err)

	gen := UUIDGenerator{}
	return &ElectionEventContext{
		ElectionEventID:                      gen.NewID(),
		ElectionPublicKey:                    elPk,
		ChoiceReturnCodesEncryptionPublicKey: combined,
		CcrPublicKeys:                        ccrKeys,
		StartTime:                            1000,
		FinishTime:                           2000,
		VerificationCardSetContexts: []VerificationCardSetContext{{
			VerificationCardSetID:   gen.NewID(),
			BallotBoxID:             gen.NewID(),
			StartTime:               1000,
			FinishTime:              2000,
			GracePeriod:             60,
			NumberOfEligibleVoters:  10,
			NumberOfWriteInsPlusOne: 1,
			PrimesMappingTable:      testTable(t),
		}},
	}
}

func TestElectionEventContext_Validate(t *testing.T) {
	ctx := testContext(t)
	require.NoError(t, ctx.Validate())

	ctx.VerificationCardSetContexts[0].NumberOfWriteInsPlusOne = 3
	require.True(t, xerrors.Is(ctx.Validate(), ccrnode.ErrInvalidInput))

	ctx = testContext(t)
	ctx.CcrPublicKeys = ctx.CcrPublicKeys[:3]
	require.Error(t, ctx.Validate())

	ctx = testContext(t)
	ctx.CcrPublicKeys[0], ctx.CcrPublicKeys[1] = ctx.CcrPublicKeys[1], ctx.CcrPublicKeys[0]
	require.Error(t, ctx.Validate())

	ctx = testContext(t)
	ctx.ElectionEventID = "nope"
	require.True(t, xerrors.Is(ctx.Validate(), ccrnode.ErrMalformedIdentifier))

	var missing *ElectionEventContext
	require.Error(t, missing.Validate())
}

func TestElectionEventContext_VerificationCardSet(t *testing.T) {
	ctx := testContext(t)
	id := ctx.VerificationCardSetContexts[0].VerificationCardSetID

	vcs, err := ctx.VerificationCardSet(id)
	require.NoError(t, err)
	assert.Equal(t, 3, vcs.Psi())

	box := vcs.BallotBox()
	assert.Equal(t, vcs.BallotBoxID, box.ID)
	assert.False(t, box.Mixed)

	_, err = ctx.VerificationCardSet(UUIDGenerator{}.NewID())
	require.True(t, xerrors.Is(err, ccrnode.ErrNotFound))

	pk, err := ctx.CcrPublicKey(4)
	require.NoError(t, err)
	require.True(t, pk.Equal(ctx.CcrPublicKeys[3].PublicKey))
	_, err = ctx.CcrPublicKey(5)
	require.Error(t, err)

	require.Contains(t, ctx.String(), ctx.ElectionEventID)
}

func TestHashContext(t *testing.T) {
	ctx := testContext(t)
	h1, err := HashContext(tSuite, ctx)
	require.NoError(t, err)
	h2, err := HashContext(tSuite, ctx)
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	ctx.FinishTime++
	h3, err := HashContext(tSuite, ctx)
	require.NoError(t, err)
	require.NotEqual(t, h1, h3)

	_, err = HashContext(tSuite, nil)
	require.Error(t, err)
}
