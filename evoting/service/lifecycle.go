package service

import (
	"go.dedis.ch/onet/v3/log"

	"go.dedis.ch/ccrnode/evoting/lib"
)

// The voting server drives the rest of the life of a card through these
// calls: failed authentications, then the confirmation of the sent vote.
// Every transition is atomic on the card.

// IncrementAuthenticationAttempts counts a failed authentication of the
// voter holding the card. The last allowed attempt blocks the card.
func (n *Node) IncrementAuthenticationAttempts(ids lib.ContextIds) error {
	return n.mutateCard(ids, "authentication attempt", n.store.IncrementAuthenticationAttempts)
}

// StartConfirmation moves a card whose share was sent to CONFIRMING.
func (n *Node) StartConfirmation(ids lib.ContextIds) error {
	return n.mutateCard(ids, "confirmation start", n.store.StartConfirmation)
}

// IncrementConfirmationAttempts counts a confirmation attempt of the voter.
func (n *Node) IncrementConfirmationAttempts(ids lib.ContextIds) error {
	return n.mutateCard(ids, "confirmation attempt", n.store.IncrementConfirmationAttempts)
}

// Confirm marks the vote of the card as confirmed.
func (n *Node) Confirm(ids lib.ContextIds) error {
	return n.mutateCard(ids, "confirmation", n.store.Confirm)
}

// Block takes the card out of the election.
func (n *Node) Block(ids lib.ContextIds) error {
	return n.mutateCard(ids, "blocking", n.store.Block)
}

func (n *Node) mutateCard(ids lib.ContextIds, op string, mutate func(id string) error) error {
	vcs, _, err := n.ValidateContextIds(ids)
	if err != nil {
		return n.fail(ids, "", err)
	}
	if err := mutate(ids.VerificationCardID); err != nil {
		return n.fail(ids, vcs.BallotBoxID, err)
	}
	log.Lvlf3("Node %d: %s on %v", n.ID(), op, ids)
	return nil
}
