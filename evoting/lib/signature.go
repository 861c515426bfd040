package lib

import (
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/kyber/v3/suites"
	"go.dedis.ch/protobuf"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting/zkp"
)

const payloadSignatureLabel = "ccr-payload"

// SignatureContext is the additional data every payload signature covers.
type SignatureContext struct {
	NodeID     int
	ContextIds ContextIds
}

func (ctx SignatureContext) message(suite suites.Suite, payload interface{}) ([]byte, error) {
	buf, err := protobuf.Encode(payload)
	if err != nil {
		return nil, ccrnode.ErrSignature.Wrapf("encoding payload: %v", err)
	}
	msg, err := zkp.RecursiveHash(suite, payloadSignatureLabel, buf, ctx.NodeID,
		ctx.ContextIds.ElectionEventID, ctx.ContextIds.VerificationCardSetID,
		ctx.ContextIds.VerificationCardID)
	if err != nil {
		return nil, ccrnode.ErrSignature.Wrapf("hashing payload: %v", err)
	}
	return msg, nil
}

// SignPayload signs the protobuf encoding of the payload together with the
// context.
func SignPayload(suite suites.Suite, private kyber.Scalar, payload interface{},
	ctx SignatureContext) ([]byte, error) {
	msg, err := ctx.message(suite, payload)
	if err != nil {
		return nil, err
	}
	sig, err := schnorr.Sign(suite, private, msg)
	if err != nil {
		return nil, ccrnode.ErrSignature.Wrapf("signing payload of node %d: %v", ctx.NodeID, err)
	}
	return sig, nil
}

// VerifyPayload returns ErrSignature unless sig is a signature of public
// over the payload and the context.
func VerifyPayload(suite suites.Suite, public kyber.Point, payload interface{},
	ctx SignatureContext, sig []byte) error {
	if public == nil {
		return ccrnode.ErrSignature.Wrapf("no public key for node %d", ctx.NodeID)
	}
	msg, err := ctx.message(suite, payload)
	if err != nil {
		return err
	}
	if err := schnorr.Verify(suite, public, msg, sig); err != nil {
		return ccrnode.ErrSignature.Wrapf("payload of node %d %v: %v", ctx.NodeID, ctx.ContextIds, err)
	}
	return nil
}
