package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/util/random"
	"golang.org/x/xerrors"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting/lib"
	"go.dedis.ch/ccrnode/evoting/zkp"
)

func TestDecryptPCC_ForgedPeerProof(t *testing.T) {
	f := newFixture(t)
	vote := f.vote(t, 0, 0, 4, 8)
	pds := f.partialDecryptAll(t, vote)

	// Node 3 sends a random proof.
	pds[2].ExponentiationProofs[1] = &zkp.ExponentiationProof{
		E: tSuite.Scalar().Pick(random.New()),
		Z: tSuite.Scalar().Pick(random.New()),
	}
	for _, id := range []int{1, 2, 4} {
		_, err := f.decryptPCC(t, id, vote, pds, zkp.NewVerifier(tSuite))
		require.True(t, xerrors.Is(err, ccrnode.ErrPeerProofVerificationFailed))
		var perr *ccrnode.PeerProofError
		require.True(t, xerrors.As(err, &perr))
		require.Equal(t, 3, perr.NodeID)
		require.Equal(t, 1, perr.Index)
		require.Equal(t, ccrnode.KindProofVerificationFailure, ccrnode.KindOf(err))
	}

	// Its own proofs are not checked by node 3.
	_, err := f.decryptPCC(t, 3, vote, pds, zkp.NewVerifier(tSuite))
	require.NoError(t, err)
}

func TestDecryptPCC_FailFast(t *testing.T) {
	f := newFixture(t)
	vote := f.vote(t, 0, 0, 4, 8)
	pds := f.partialDecryptAll(t, vote)

	verifier := &rejectingVerifier{Verifier: zkp.NewVerifier(tSuite), reject: 2, calls: make(map[int]int)}
	_, err := f.decryptPCC(t, 1, vote, pds, verifier)
	var perr *ccrnode.PeerProofError
	require.True(t, xerrors.As(err, &perr))
	require.Equal(t, 2, perr.NodeID)
	require.Equal(t, 1, verifier.calls[2])
	require.Equal(t, 0, verifier.calls[3])
	require.Equal(t, 0, verifier.calls[4])
}

func TestDecryptPCC_PeerProofsBoundToNode(t *testing.T) {
	f := newFixture(t)
	vote := f.vote(t, 0, 0, 4, 8)
	pds := f.partialDecryptAll(t, vote)

	// Node 4 replays the contribution of node 2 as its own.
	pds[3] = pds[1]
	_, err := f.decryptPCC(t, 1, vote, pds, zkp.NewVerifier(tSuite))
	var perr *ccrnode.PeerProofError
	require.True(t, xerrors.As(err, &perr))
	require.Equal(t, 4, perr.NodeID)
}

func TestDecryptPCC_WrongSize(t *testing.T) {
	f := newFixture(t)
	vote := f.vote(t, 0, 0, 4, 8)
	pds := f.partialDecryptAll(t, vote)

	var peerKeys []lib.PublicKey
	var gammas [][]kyber.Point
	var proofs [][]*zkp.ExponentiationProof
	for _, peer := range lib.PeerNodeIDs(1) {
		peerKeys = append(peerKeys, f.keys[peer-1].CcrPublicKey(tSuite))
		gammas = append(gammas, pds[peer-1].ExponentiatedGammas)
		proofs = append(proofs, pds[peer-1].ExponentiationProofs)
	}
	e2 := vote.EncryptedPartialChoiceReturnCodes
	for _, phis := range [][]kyber.Point{e2.Phis[:2], append(append([]kyber.Point{}, e2.Phis...), e2.Gamma)} {
		ctx, err := NewDecryptPCCContext(tSuite, 1, vote.ContextIds, 3, 1, f.hash, peerKeys)
		require.NoError(t, err)
		in, err := NewDecryptPCCInput(tSuite, pds[0].ExponentiatedGammas, gammas, proofs,
			vote.EncryptedVote, vote.ExponentiatedEncryptedVote, &lib.Ciphertext{Gamma: e2.Gamma, Phis: phis})
		require.NoError(t, err)
		_, err = DecryptPCC(ctx, in, zkp.NewVerifier(tSuite))
		require.True(t, xerrors.Is(err, ccrnode.ErrWrongCiphertextSize))
		require.Contains(t, err.Error(), "expected 3")
	}

	// Encrypted vote of the wrong size.
	ctx, err := NewDecryptPCCContext(tSuite, 1, vote.ContextIds, 3, 2, f.hash, peerKeys)
	require.NoError(t, err)
	in, err := NewDecryptPCCInput(tSuite, pds[0].ExponentiatedGammas, gammas, proofs,
		vote.EncryptedVote, vote.ExponentiatedEncryptedVote, e2)
	require.NoError(t, err)
	_, err = DecryptPCC(ctx, in, zkp.NewVerifier(tSuite))
	require.True(t, xerrors.Is(err, ccrnode.ErrWrongCiphertextSize))

	// Only two other contributions.
	_, err = NewDecryptPCCInput(tSuite, pds[0].ExponentiatedGammas, gammas[:2], proofs[:2],
		vote.EncryptedVote, vote.ExponentiatedEncryptedVote, e2)
	require.True(t, xerrors.Is(err, ccrnode.ErrInvalidInput))
	// A contribution of the wrong length.
	short := [][]kyber.Point{gammas[0][:2], gammas[1], gammas[2]}
	_, err = NewDecryptPCCInput(tSuite, pds[0].ExponentiatedGammas, short, proofs,
		vote.EncryptedVote, vote.ExponentiatedEncryptedVote, e2)
	require.True(t, xerrors.Is(err, ccrnode.ErrInvalidInput))
	// Keys of only two other nodes.
	_, err = NewDecryptPCCContext(tSuite, 1, vote.ContextIds, 3, 1, f.hash, peerKeys[:2])
	require.True(t, xerrors.Is(err, ccrnode.ErrInvalidInput))
}
