package lib

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3/util/key"
	"golang.org/x/xerrors"

	"go.dedis.ch/ccrnode"
)

func TestSignPayload(t *testing.T) {
	kp := key.NewKeyPair(tSuite)
	gen := UUIDGenerator{}
	ids, err := NewContextIds(gen.NewID(), gen.NewID(), gen.NewID())
	require.NoError(t, err)

	payload := &PartiallyDecryptedEncryptedPCC{
		ContextIds:          ids,
		NodeID:              2,
		ExponentiatedGammas: randomPoints(2),
	}
	ctx := SignatureContext{NodeID: 2, ContextIds: ids}
	sig, err := SignPayload(tSuite, kp.Private, payload, ctx)
	require.NoError(t, err)
	require.NoError(t, VerifyPayload(tSuite, kp.Public, payload, ctx, sig))

	// Another node id in the context invalidates the signature.
	err = VerifyPayload(tSuite, kp.Public, payload, SignatureContext{NodeID: 3, ContextIds: ids}, sig)
	require.True(t, xerrors.Is(err, ccrnode.ErrSignature))

	payload.ExponentiatedGammas[0] = randomPoints(1)[0]
	err = VerifyPayload(tSuite, kp.Public, payload, ctx, sig)
	require.True(t, xerrors.Is(err, ccrnode.ErrSignature))

	err = VerifyPayload(tSuite, nil, payload, ctx, sig)
	require.Equal(t, ccrnode.KindInfrastructure, ccrnode.KindOf(err))
}
