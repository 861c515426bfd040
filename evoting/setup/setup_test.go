package setup

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting/lib"
)

var tSuite = ccrnode.Suite

func TestMain(m *testing.M) {
	log.MainTest(m)
}

func TestGenerateNodeKeys(t *testing.T) {
	keys, err := GenerateNodeKeys(tSuite, 2, 5, random.New())
	require.NoError(t, err)
	require.Len(t, keys.CcrSecretKey, 5)
	require.Len(t, keys.CcrPublicKey(tSuite), 5)
	require.True(t, tSuite.Point().Mul(keys.Signing.Private, nil).Equal(keys.Signing.Public))

	_, err = GenerateNodeKeys(tSuite, 0, 5, random.New())
	require.Error(t, err)
	_, err = GenerateNodeKeys(tSuite, 1, lib.MaxSelections+1, random.New())
	require.Error(t, err)
}

func TestNewElection(t *testing.T) {
	var pks []lib.PublicKey
	for id := 1; id <= lib.NumberOfNodes; id++ {
		keys, err := GenerateNodeKeys(tSuite, id, 4, random.New())
		require.NoError(t, err)
		pks = append(pks, keys.CcrPublicKey(tSuite))
	}
	p := Params{
		Questions:          3,
		OptionsPerQuestion: 3,
		WriteInsPlusOne:    1,
		Voters:             2,
		Sets:               2,
		StartTime:          100,
		FinishTime:         200,
	}
	e, err := NewElection(tSuite, p, pks, lib.UUIDGenerator{}, random.New())
	require.NoError(t, err)
	require.NoError(t, e.Context.Validate())
	require.Len(t, e.Sets, 2)
	require.Len(t, e.Cards, 4)
	require.Len(t, e.VerificationCards(), 4)

	vcs := e.Context.VerificationCardSetContexts[0]
	require.Equal(t, 3, vcs.Psi())
	require.Equal(t, 12, vcs.PrimesMappingTable.Size())
	require.True(t, vcs.PrimesMappingTable.Entries[3].Blank)
	// Every option of every card is allowed once.
	require.Len(t, e.AllowLists[vcs.VerificationCardSetID], 2*12)

	_, err = NewElection(tSuite, p, pks[:3], lib.UUIDGenerator{}, random.New())
	require.Error(t, err)

	p.Questions = 5
	_, err = NewElection(tSuite, p, pks, lib.UUIDGenerator{}, random.New())
	require.Error(t, err)
}

func TestNewElection_CcrKeyTooSmall(t *testing.T) {
	var pks []lib.PublicKey
	for id := 1; id <= lib.NumberOfNodes; id++ {
		keys, err := GenerateNodeKeys(tSuite, id, 3, random.New())
		require.NoError(t, err)
		pks = append(pks, keys.CcrPublicKey(tSuite))
	}
	p := Params{
		Questions:          5,
		OptionsPerQuestion: 2,
		WriteInsPlusOne:    1,
		Voters:             1,
		Sets:               1,
		StartTime:          100,
		FinishTime:         200,
	}
	require.NotPanics(t, func() {
		_, err := NewElection(tSuite, p, pks, lib.UUIDGenerator{}, random.New())
		require.Error(t, err)
		require.Contains(t, err.Error(), "3 elements for 5 selections")
	})

	// Only the last node is short.
	keys, err := GenerateNodeKeys(tSuite, 4, 5, random.New())
	require.NoError(t, err)
	long := keys.CcrPublicKey(tSuite)
	pks = []lib.PublicKey{long, long, long, pks[3]}
	_, err = NewElection(tSuite, p, pks, lib.UUIDGenerator{}, random.New())
	require.Error(t, err)
	require.Contains(t, err.Error(), "node 4")
}
