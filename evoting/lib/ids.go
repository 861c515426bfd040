package lib

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	uuid "github.com/satori/go.uuid"

	"go.dedis.ch/ccrnode"
)

// idPattern is the format of every identifier handed out by the setup: 32
// hexadecimal characters, a UUID without its dashes.
var idPattern = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

// ValidateUUID returns ErrMalformedIdentifier if id is not a hex-32 string.
func ValidateUUID(id string) error {
	if !idPattern.MatchString(id) {
		return ccrnode.ErrMalformedIdentifier.Wrapf("%q is not a 32 character hexadecimal string", id)
	}
	return nil
}

// ContextIds identifies one verification card within its verification card
// set and election event. It is created with the vote and never changes.
type ContextIds struct {
	ElectionEventID       string
	VerificationCardSetID string
	VerificationCardID    string
}

// NewContextIds returns the triple after checking the format of each id.
func NewContextIds(electionEventID, verificationCardSetID, verificationCardID string) (ContextIds, error) {
	ids := ContextIds{
		ElectionEventID:       electionEventID,
		VerificationCardSetID: verificationCardSetID,
		VerificationCardID:    verificationCardID,
	}
	if err := ids.Validate(); err != nil {
		return ContextIds{}, err
	}
	return ids, nil
}

// Validate checks the format of the three identifiers. The referential
// consistency needs the stored sets and cards and is checked by the node.
func (c ContextIds) Validate() error {
	for _, id := range []string{c.ElectionEventID, c.VerificationCardSetID, c.VerificationCardID} {
		if err := ValidateUUID(id); err != nil {
			return err
		}
	}
	return nil
}

// Equal returns true if both triples name the same card.
func (c ContextIds) Equal(other ContextIds) bool {
	return strings.EqualFold(c.ElectionEventID, other.ElectionEventID) &&
		strings.EqualFold(c.VerificationCardSetID, other.VerificationCardSetID) &&
		strings.EqualFold(c.VerificationCardID, other.VerificationCardID)
}

func (c ContextIds) String() string {
	return fmt.Sprintf("[electionEventId: %s, verificationCardSetId: %s, verificationCardId: %s]",
		c.ElectionEventID, c.VerificationCardSetID, c.VerificationCardID)
}

// IDGenerator hands out new identifiers. It is passed explicitly wherever
// identifiers are created so that tests can make them deterministic.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator generates random version 4 UUIDs in the hex-32 format.
type UUIDGenerator struct{}

// NewID returns a new random identifier.
func (UUIDGenerator) NewID() string {
	return strings.ToUpper(hex.EncodeToString(uuid.NewV4().Bytes()))
}

// NumberOfNodes is the number of control components taking part in the
// protocol.
const NumberOfNodes = 4

// ValidateNodeID returns ErrInvalidInput if id is not in 1..NumberOfNodes.
func ValidateNodeID(id int) error {
	if id < 1 || id > NumberOfNodes {
		return ccrnode.ErrInvalidInput.Wrapf("node id %d not in [1, %d]", id, NumberOfNodes)
	}
	return nil
}

// PeerNodeIDs returns the ids of the other nodes in ascending order.
func PeerNodeIDs(self int) []int {
	peers := make([]int, 0, NumberOfNodes-1)
	for id := 1; id <= NumberOfNodes; id++ {
		if id != self {
			peers = append(peers, id)
		}
	}
	return peers
}
