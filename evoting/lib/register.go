package lib

import (
	"go.dedis.ch/onet/v3/network"
)

func init() {
	network.RegisterMessages(EncryptedVerifiableVote{}, PartiallyDecryptedEncryptedPCC{},
		LongChoiceReturnCodesShare{}, ElectionEventContext{}, VerificationCardSet{},
		VerificationCard{}, BallotBox{})
}
