package protocol

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting/client"
	"go.dedis.ch/ccrnode/evoting/lib"
	"go.dedis.ch/ccrnode/evoting/setup"
	"go.dedis.ch/ccrnode/evoting/zkp"
)

var tSuite = ccrnode.Suite

func TestMain(m *testing.M) {
	log.MainTest(m)
}

// memRecorder keeps the card states of one node in memory.
type memRecorder struct {
	sync.Mutex
	states map[string]lib.VerificationCardState
	pds    map[string]*lib.PartiallyDecryptedEncryptedPCC
	shares map[string]*lib.LongChoiceReturnCodesShare
}

func newMemRecorder() *memRecorder {
	return &memRecorder{
		states: make(map[string]lib.VerificationCardState),
		pds:    make(map[string]*lib.PartiallyDecryptedEncryptedPCC),
		shares: make(map[string]*lib.LongChoiceReturnCodesShare),
	}
}

func (r *memRecorder) RecordPartialDecryption(vote *lib.EncryptedVerifiableVote,
	compute func() (*lib.PartiallyDecryptedEncryptedPCC, error)) error {
	r.Lock()
	defer r.Unlock()
	id := vote.ContextIds.VerificationCardID
	card := &lib.VerificationCard{ID: id, State: r.states[id]}
	if err := card.MarkPartiallyDecrypted(); err != nil {
		return err
	}
	pd, err := compute()
	if err != nil {
		return err
	}
	r.states[id] = card.State
	r.pds[id] = pd
	return nil
}

func (r *memRecorder) RecordLCCShare(id string, compute func() (*lib.LongChoiceReturnCodesShare, error)) error {
	r.Lock()
	defer r.Unlock()
	card := &lib.VerificationCard{ID: id, State: r.states[id]}
	if err := card.MarkSent(); err != nil {
		return err
	}
	share, err := compute()
	if err != nil {
		return err
	}
	r.states[id] = card.State
	r.shares[id] = share
	return nil
}

type allowSet map[string]bool

func (a allowSet) Contains(entry string) (bool, error) {
	return a[entry], nil
}

// fixture is an election of 3 questions with 3 options and a blank one
// each: options 0-3, 4-7 and 8-11, where 3, 7 and 11 are blank.
type fixture struct {
	election  *setup.Election
	keys      []*setup.NodeKeys
	recorders []*memRecorder
	hash      string
	vcs       *lib.VerificationCardSetContext
	allow     allowSet
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{}
	var pks []lib.PublicKey
	for id := 1; id <= lib.NumberOfNodes; id++ {
		keys, err := setup.GenerateNodeKeys(tSuite, id, 3, random.New())
		require.NoError(t, err)
		f.keys = append(f.keys, keys)
		f.recorders = append(f.recorders, newMemRecorder())
		pks = append(pks, keys.CcrPublicKey(tSuite))
	}
	var err error
	f.election, err = setup.NewElection(tSuite, setup.Params{
		Questions:          3,
		OptionsPerQuestion: 3,
		WriteInsPlusOne:    1,
		Voters:             3,
		Sets:               1,
	}, pks, lib.UUIDGenerator{}, random.New())
	require.NoError(t, err)
	f.hash, err = lib.HashContext(tSuite, f.election.Context)
	require.NoError(t, err)
	f.vcs = &f.election.Context.VerificationCardSetContexts[0]
	f.allow = make(allowSet)
	for _, entry := range f.election.AllowLists[f.vcs.VerificationCardSetID] {
		f.allow[entry] = true
	}
	return f
}

func (f *fixture) vote(t *testing.T, card int, selections ...int) *lib.EncryptedVerifiableVote {
	c := f.election.Cards[card]
	voter := &client.Voter{Ids: c.Ids, SecretKey: c.SecretKey}
	vote, err := voter.CreateVote(tSuite, f.election.Context, f.hash, selections, nil, random.New())
	require.NoError(t, err)
	return vote
}

func (f *fixture) partialDecrypt(t *testing.T, nodeID int, vote *lib.EncryptedVerifiableVote) (
	*lib.PartiallyDecryptedEncryptedPCC, error) {
	ctx, err := NewPartialDecryptPCCContext(tSuite, nodeID, vote.ContextIds, f.vcs.Psi(),
		f.vcs.NumberOfWriteInsPlusOne, f.hash)
	require.NoError(t, err)
	keys := f.keys[nodeID-1]
	in, err := NewPartialDecryptPCCInput(tSuite, vote, keys.CcrPublicKey(tSuite), keys.CcrSecretKey)
	require.NoError(t, err)
	return PartialDecryptPCC(ctx, in, f.recorders[nodeID-1], random.New())
}

func (f *fixture) partialDecryptAll(t *testing.T, vote *lib.EncryptedVerifiableVote) []*lib.PartiallyDecryptedEncryptedPCC {
	var pds []*lib.PartiallyDecryptedEncryptedPCC
	for id := 1; id <= lib.NumberOfNodes; id++ {
		pd, err := f.partialDecrypt(t, id, vote)
		require.NoError(t, err)
		pds = append(pds, pd)
	}
	return pds
}

func (f *fixture) decryptPCC(t *testing.T, nodeID int, vote *lib.EncryptedVerifiableVote,
	pds []*lib.PartiallyDecryptedEncryptedPCC, verifier zkp.Verifier) ([]kyber.Point, error) {
	var peerKeys []lib.PublicKey
	var gammas [][]kyber.Point
	var proofs [][]*zkp.ExponentiationProof
	for _, peer := range lib.PeerNodeIDs(nodeID) {
		peerKeys = append(peerKeys, f.keys[peer-1].CcrPublicKey(tSuite))
		gammas = append(gammas, pds[peer-1].ExponentiatedGammas)
		proofs = append(proofs, pds[peer-1].ExponentiationProofs)
	}
	ctx, err := NewDecryptPCCContext(tSuite, nodeID, vote.ContextIds, f.vcs.Psi(),
		f.vcs.NumberOfWriteInsPlusOne, f.hash, peerKeys)
	require.NoError(t, err)
	in, err := NewDecryptPCCInput(tSuite, pds[nodeID-1].ExponentiatedGammas, gammas, proofs,
		vote.EncryptedVote, vote.ExponentiatedEncryptedVote, vote.EncryptedPartialChoiceReturnCodes)
	require.NoError(t, err)
	return DecryptPCC(ctx, in, verifier)
}

func (f *fixture) createShare(t *testing.T, nodeID int, ids lib.ContextIds, pCC []kyber.Point) (
	*lib.LongChoiceReturnCodesShare, error) {
	ctx, err := NewCreateLCCShareContext(tSuite, nodeID, ids,
		f.vcs.PrimesMappingTable.BlankCorrectnessInformation(), f.hash)
	require.NoError(t, err)
	in, err := NewCreateLCCShareInput(tSuite, f.allow, pCC, f.keys[nodeID-1].ReturnCodesGenerationSecretKey)
	require.NoError(t, err)
	return CreateLCCShare(ctx, in, f.recorders[nodeID-1], random.New())
}

// expectedPCC returns k·encoding of the selected options.
func (f *fixture) expectedPCC(card int, selections ...int) []kyber.Point {
	var pCC []kyber.Point
	for _, s := range selections {
		enc := f.vcs.PrimesMappingTable.Entries[s].Encoding
		pCC = append(pCC, tSuite.Point().Mul(f.election.Cards[card].SecretKey, enc))
	}
	return pCC
}

// rejectingVerifier accepts every proof except those of one node, and
// counts the verifications.
type rejectingVerifier struct {
	zkp.Verifier
	reject int
	calls  map[int]int
}

func (v *rejectingVerifier) VerifyExponentiation(bases, exps []kyber.Point,
	proof *zkp.ExponentiationProof, aux []interface{}) (bool, error) {
	nodeID := aux[len(aux)-1].(int)
	v.calls[nodeID]++
	if nodeID == v.reject {
		return false, nil
	}
	return v.Verifier.VerifyExponentiation(bases, exps, proof, aux)
}

func TestFullPipeline(t *testing.T) {
	f := newFixture(t)
	vote := f.vote(t, 0, 0, 4, 8)
	verifier := zkp.NewVerifier(tSuite)

	pds := f.partialDecryptAll(t, vote)
	for id := 1; id <= lib.NumberOfNodes; id++ {
		pCC, err := f.decryptPCC(t, id, vote, pds, verifier)
		require.NoError(t, err)
		expected := f.expectedPCC(0, 0, 4, 8)
		for i := range pCC {
			require.True(t, expected[i].Equal(pCC[i]))
		}

		ctx, err := NewVerifyBallotCCRContext(tSuite, vote.ContextIds, f.vcs.PrimesMappingTable,
			f.vcs.NumberOfWriteInsPlusOne, f.hash, f.election.Cards[0].PublicKey,
			f.election.Context.ElectionPublicKey, f.election.Context.ChoiceReturnCodesEncryptionPublicKey)
		require.NoError(t, err)
		in, err := NewVerifyBallotCCRInput(tSuite, vote)
		require.NoError(t, err)
		ok, err := VerifyBallotCCR(ctx, in, verifier)
		require.NoError(t, err)
		require.True(t, ok)

		share, err := f.createShare(t, id, vote.ContextIds, pCC)
		require.NoError(t, err)
		require.Len(t, share.LongChoiceReturnCodeShare, f.vcs.Psi())
		require.Equal(t, lib.CardSent, f.recorders[id-1].states[vote.ContextIds.VerificationCardID])
	}
}
