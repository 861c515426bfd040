package lib

import (
	"encoding/base64"
	"fmt"
	"strings"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/protobuf"
	"golang.org/x/xerrors"

	"go.dedis.ch/ccrnode"
)

// ElectionEventContext is the configuration of an election event as
// extracted at setup time. Its hash binds every proof of the event to this
// configuration snapshot; it is never modified once the event is
// configured.
type ElectionEventContext struct {
	ElectionEventID string
	// ElectionPublicKey is the key the votes are encrypted under.
	ElectionPublicKey PublicKey
	// ChoiceReturnCodesEncryptionPublicKey is the sum of the CCR public
	// keys of the four control components.
	ChoiceReturnCodesEncryptionPublicKey PublicKey
	// CcrPublicKeys are the CCR public keys of the nodes, ordered by node
	// id.
	CcrPublicKeys []NodeCcrPublicKey

	StartTime  int64 // StartTime of the event as unix timestamp.
	FinishTime int64 // FinishTime of the event as unix timestamp.

	VerificationCardSetContexts []VerificationCardSetContext
}

// NodeCcrPublicKey is the choice return codes encryption key of one node.
type NodeCcrPublicKey struct {
	NodeID    int
	PublicKey PublicKey
}

// VerificationCardSetContext is the part of the configuration that differs
// between verification card sets.
type VerificationCardSetContext struct {
	VerificationCardSetID   string
	BallotBoxID             string
	StartTime               int64
	FinishTime              int64
	GracePeriod             int64
	TestBallotBox           bool
	NumberOfEligibleVoters  int
	NumberOfWriteInsPlusOne int
	PrimesMappingTable      *PrimesMappingTable
}

// Validate checks the identifiers, the key sizes and the primes mapping
// tables of the context.
func (ctx *ElectionEventContext) Validate() error {
	if ctx == nil {
		return ccrnode.ErrInvalidInput.Wrapf("missing election event context")
	}
	if err := ValidateUUID(ctx.ElectionEventID); err != nil {
		return err
	}
	if len(ctx.CcrPublicKeys) != NumberOfNodes {
		return ccrnode.ErrInvalidInput.Wrapf("need %d CCR public keys, got %d",
			NumberOfNodes, len(ctx.CcrPublicKeys))
	}
	for i, pk := range ctx.CcrPublicKeys {
		if pk.NodeID != i+1 {
			return ccrnode.ErrInvalidInput.Wrapf("CCR public key %d belongs to node %d", i, pk.NodeID)
		}
	}
	if len(ctx.VerificationCardSetContexts) == 0 {
		return ccrnode.ErrInvalidInput.Wrapf("election event %s has no verification card set",
			ctx.ElectionEventID)
	}
	for _, vcs := range ctx.VerificationCardSetContexts {
		if err := ValidateUUID(vcs.VerificationCardSetID); err != nil {
			return err
		}
		if err := ValidateUUID(vcs.BallotBoxID); err != nil {
			return err
		}
		if err := vcs.PrimesMappingTable.Validate(); err != nil {
			return xerrors.Errorf("verification card set %s: %w", vcs.VerificationCardSetID, err)
		}
		delta := vcs.NumberOfWriteInsPlusOne
		if delta < 1 || delta > len(ctx.ElectionPublicKey) {
			return ccrnode.ErrInvalidInput.Wrapf("%d write-ins plus one for an election key of size %d",
				delta, len(ctx.ElectionPublicKey))
		}
		psi := vcs.PrimesMappingTable.Psi()
		if psi > len(ctx.ChoiceReturnCodesEncryptionPublicKey) {
			return ccrnode.ErrInvalidInput.Wrapf("%d selections for a choice return codes key of size %d",
				psi, len(ctx.ChoiceReturnCodesEncryptionPublicKey))
		}
		for _, pk := range ctx.CcrPublicKeys {
			if len(pk.PublicKey) < psi {
				return ccrnode.ErrInvalidInput.Wrapf("CCR public key of node %d too short", pk.NodeID)
			}
		}
	}
	return nil
}

// VerificationCardSet returns the context of the given verification card
// set.
func (ctx *ElectionEventContext) VerificationCardSet(id string) (*VerificationCardSetContext, error) {
	for i := range ctx.VerificationCardSetContexts {
		if strings.EqualFold(ctx.VerificationCardSetContexts[i].VerificationCardSetID, id) {
			return &ctx.VerificationCardSetContexts[i], nil
		}
	}
	return nil, ccrnode.ErrNotFound.Wrapf("verification card set %s in election event %s",
		id, ctx.ElectionEventID)
}

// CcrPublicKey returns the CCR public key of a node.
func (ctx *ElectionEventContext) CcrPublicKey(nodeID int) (PublicKey, error) {
	if err := ValidateNodeID(nodeID); err != nil {
		return nil, err
	}
	for _, pk := range ctx.CcrPublicKeys {
		if pk.NodeID == nodeID {
			return pk.PublicKey, nil
		}
	}
	return nil, ccrnode.ErrNotFound.Wrapf("CCR public key of node %d", nodeID)
}

// BallotBox returns the ballot box of the set, open and not yet mixed.
func (vcs *VerificationCardSetContext) BallotBox() *BallotBox {
	return &BallotBox{
		ID:                     vcs.BallotBoxID,
		VerificationCardSetID:  vcs.VerificationCardSetID,
		StartTime:              vcs.StartTime,
		FinishTime:             vcs.FinishTime,
		GracePeriod:            vcs.GracePeriod,
		TestBallotBox:          vcs.TestBallotBox,
		NumberOfEligibleVoters: vcs.NumberOfEligibleVoters,
	}
}

// Psi is the number of selections of the set.
func (vcs *VerificationCardSetContext) Psi() int {
	return vcs.PrimesMappingTable.Psi()
}

// HashContext returns the base64 encoded hash of the protobuf encoding of
// the context.
func HashContext(suite kyber.HashFactory, ctx *ElectionEventContext) (string, error) {
	if ctx == nil {
		return "", ccrnode.ErrInvalidInput.Wrapf("missing election event context")
	}
	buf, err := protobuf.Encode(ctx)
	if err != nil {
		return "", xerrors.Errorf("encoding election event context: %v", err)
	}
	h := suite.Hash()
	h.Write(buf)
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

func (ctx *ElectionEventContext) String() string {
	str := new(strings.Builder)

	fmt.Fprintf(str, "Election event %s\n", ctx.ElectionEventID)
	fmt.Fprintf(str, "Start: %v\n", ctx.StartTime)
	fmt.Fprintf(str, "Finish: %v\n", ctx.FinishTime)
	fmt.Fprintf(str, "Election public key size: %v\n", len(ctx.ElectionPublicKey))
	fmt.Fprintf(str, "Choice return codes key size: %v\n", len(ctx.ChoiceReturnCodesEncryptionPublicKey))
	for _, vcs := range ctx.VerificationCardSetContexts {
		fmt.Fprintf(str, "Verification card set %s:\n", vcs.VerificationCardSetID)
		fmt.Fprintf(str, "  Ballot box: %v\n", vcs.BallotBoxID)
		fmt.Fprintf(str, "  Voters: %v\n", vcs.NumberOfEligibleVoters)
		fmt.Fprintf(str, "  Options: %v\n", vcs.PrimesMappingTable.Size())
		fmt.Fprintf(str, "  Selections: %v\n", vcs.Psi())
		fmt.Fprintf(str, "  Write-ins plus one: %v\n", vcs.NumberOfWriteInsPlusOne)
	}

	return str.String()
}
