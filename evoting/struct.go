package evoting

import (
	"sort"

	"go.dedis.ch/onet/v3/network"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting/lib"
)

func init() {
	network.RegisterMessages(
		PartialDecryptRequest{},
		PartiallyDecryptedEncryptedPCCPayload{},
		CombinedControlComponentPartialDecryptPayload{},
		LongChoiceReturnCodesSharePayload{},
	)
}

// PartialDecryptRequest asks a node to verify and partially decrypt a vote.
type PartialDecryptRequest struct {
	Vote *lib.EncryptedVerifiableVote
}

// PartiallyDecryptedEncryptedPCCPayload is the signed partial decryption of
// one node.
type PartiallyDecryptedEncryptedPCCPayload struct {
	PartiallyDecryptedEncryptedPCC *lib.PartiallyDecryptedEncryptedPCC
	Signature                      []byte
}

// CombinedControlComponentPartialDecryptPayload holds the signed partial
// decryptions of all nodes, sorted by node id.
type CombinedControlComponentPartialDecryptPayload struct {
	Payloads []*PartiallyDecryptedEncryptedPCCPayload
}

// LongChoiceReturnCodesSharePayload is the signed share of one node.
type LongChoiceReturnCodesSharePayload struct {
	Share     *lib.LongChoiceReturnCodesShare
	Signature []byte
}

// SignatureContext returns what the signature of the payload covers.
func (p *PartiallyDecryptedEncryptedPCCPayload) SignatureContext() lib.SignatureContext {
	pd := p.PartiallyDecryptedEncryptedPCC
	return lib.SignatureContext{NodeID: pd.NodeID, ContextIds: pd.ContextIds}
}

// SignatureContext returns what the signature of the payload covers.
func (p *LongChoiceReturnCodesSharePayload) SignatureContext() lib.SignatureContext {
	return lib.SignatureContext{NodeID: p.Share.NodeID, ContextIds: p.Share.ContextIds}
}

// Check makes sure the share is complete.
func (p *LongChoiceReturnCodesSharePayload) Check() error {
	if p == nil || p.Share == nil {
		return ccrnode.ErrInvalidInput.Wrapf("missing share")
	}
	s := p.Share
	if err := s.ContextIds.Validate(); err != nil {
		return err
	}
	if err := lib.ValidateNodeID(s.NodeID); err != nil {
		return err
	}
	if len(s.LongChoiceReturnCodeShare) == 0 || s.VoterChoiceReturnCodeGenerationPublicKey == nil ||
		s.ExponentiationProof == nil {
		return ccrnode.ErrInvalidInput.Wrapf("incomplete share of node %d", s.NodeID)
	}
	return nil
}

// NewCombinedPayload sorts the payloads by node id and validates the
// result.
func NewCombinedPayload(payloads []*PartiallyDecryptedEncryptedPCCPayload) (
	*CombinedControlComponentPartialDecryptPayload, error) {
	sorted := make([]*PartiallyDecryptedEncryptedPCCPayload, len(payloads))
	copy(sorted, payloads)
	sort.SliceStable(sorted, func(i, j int) bool {
		return nodeID(sorted[i]) < nodeID(sorted[j])
	})
	c := &CombinedControlComponentPartialDecryptPayload{Payloads: sorted}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func nodeID(p *PartiallyDecryptedEncryptedPCCPayload) int {
	if p == nil || p.PartiallyDecryptedEncryptedPCC == nil {
		return 0
	}
	return p.PartiallyDecryptedEncryptedPCC.NodeID
}

// Validate checks there is exactly one complete payload per node, in node
// id order, all for the same card and of the same size. Signatures are not
// checked.
func (c *CombinedControlComponentPartialDecryptPayload) Validate() error {
	if c == nil || len(c.Payloads) != lib.NumberOfNodes {
		n := 0
		if c != nil {
			n = len(c.Payloads)
		}
		return ccrnode.ErrInvalidInput.Wrapf("%d partial decryptions, expected %d", n, lib.NumberOfNodes)
	}
	first := c.Payloads[0]
	for i, p := range c.Payloads {
		if p == nil {
			return ccrnode.ErrInvalidInput.Wrapf("missing payload %d", i)
		}
		pd := p.PartiallyDecryptedEncryptedPCC
		if err := pd.Check(); err != nil {
			return err
		}
		if pd.NodeID != i+1 {
			return ccrnode.ErrInvalidInput.Wrapf("payload %d comes from node %d", i, pd.NodeID)
		}
		if len(p.Signature) == 0 {
			return ccrnode.ErrInvalidInput.Wrapf("payload of node %d is not signed", pd.NodeID)
		}
		if i == 0 {
			continue
		}
		firstPd := first.PartiallyDecryptedEncryptedPCC
		if !pd.ContextIds.Equal(firstPd.ContextIds) {
			return ccrnode.ErrInconsistentIdentifiers.Wrapf("node %d sent %v, node 1 sent %v",
				pd.NodeID, pd.ContextIds, firstPd.ContextIds)
		}
		if len(pd.ExponentiatedGammas) != len(firstPd.ExponentiatedGammas) {
			return ccrnode.ErrWrongCiphertextSize.Wrapf("node %d sent %d exponentiated gammas, node 1 sent %d",
				pd.NodeID, len(pd.ExponentiatedGammas), len(firstPd.ExponentiatedGammas))
		}
	}
	return nil
}

// ContextIds returns the card of the payload. The payload must be valid.
func (c *CombinedControlComponentPartialDecryptPayload) ContextIds() lib.ContextIds {
	return c.Payloads[0].PartiallyDecryptedEncryptedPCC.ContextIds
}

// Contribution returns the partial decryption of node nodeID. The payload
// must be valid.
func (c *CombinedControlComponentPartialDecryptPayload) Contribution(nodeID int) *lib.PartiallyDecryptedEncryptedPCC {
	return c.Payloads[nodeID-1].PartiallyDecryptedEncryptedPCC
}
