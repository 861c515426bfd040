package lib

import (
	"go.dedis.ch/kyber/v3"

	"go.dedis.ch/ccrnode"
)

// ElectionEventState is the stage of an election event on this node.
type ElectionEventState int32

const (
	// ElectionEventInitial is the state before the configuration has been
	// received.
	ElectionEventInitial ElectionEventState = iota
	// ElectionEventConfigured means that the election event context is
	// stored and votes may be processed.
	ElectionEventConfigured
)

// IsTransitionValid returns true only for INITIAL -> CONFIGURED.
func (s ElectionEventState) IsTransitionValid(next ElectionEventState) bool {
	return s == ElectionEventInitial && next == ElectionEventConfigured
}

func (s ElectionEventState) String() string {
	switch s {
	case ElectionEventInitial:
		return "INITIAL"
	case ElectionEventConfigured:
		return "CONFIGURED"
	default:
		return "UNKNOWN"
	}
}

// VerificationCardState is the stage of a single verification card.
type VerificationCardState int32

// The states of a verification card. Confirmed, Blocked and the two
// attempts-exceeded states are terminal.
const (
	CardInitial VerificationCardState = iota
	CardPartiallyDecrypted
	CardSent
	CardConfirming
	CardConfirmed
	CardBlocked
	CardAuthenticationAttemptsExceeded
	CardConfirmationAttemptsExceeded
)

// MaxAuthenticationAttempts and MaxConfirmationAttempts bound the attempt
// counters. The attempt reaching the bound moves the card into the
// corresponding terminal state.
const (
	MaxAuthenticationAttempts = 5
	MaxConfirmationAttempts   = 5
)

func (s VerificationCardState) String() string {
	switch s {
	case CardInitial:
		return "INITIAL"
	case CardPartiallyDecrypted:
		return "PARTIALLY_DECRYPTED"
	case CardSent:
		return "SENT"
	case CardConfirming:
		return "CONFIRMING"
	case CardConfirmed:
		return "CONFIRMED"
	case CardBlocked:
		return "BLOCKED"
	case CardAuthenticationAttemptsExceeded:
		return "AUTHENTICATION_ATTEMPTS_EXCEEDED"
	case CardConfirmationAttemptsExceeded:
		return "CONFIRMATION_ATTEMPTS_EXCEEDED"
	default:
		return "UNKNOWN"
	}
}

// IsPartiallyDecrypted returns true once the node has revealed its partial
// decryption for the card, whatever happened afterwards.
func (s VerificationCardState) IsPartiallyDecrypted() bool {
	switch s {
	case CardPartiallyDecrypted, CardSent, CardConfirming, CardConfirmed,
		CardConfirmationAttemptsExceeded:
		return true
	}
	return false
}

// IsNotPartiallyDecrypted returns true as long as no partial decryption has
// been revealed.
func (s VerificationCardState) IsNotPartiallyDecrypted() bool {
	return s == CardInitial
}

// IsNotSentVote returns true as long as no long choice return code share has
// been released for the card.
func (s VerificationCardState) IsNotSentVote() bool {
	return s == CardInitial || s == CardPartiallyDecrypted
}

// IsTerminal returns true for the states that accept no more transitions.
func (s VerificationCardState) IsTerminal() bool {
	switch s {
	case CardConfirmed, CardBlocked, CardAuthenticationAttemptsExceeded,
		CardConfirmationAttemptsExceeded:
		return true
	}
	return false
}

// VerificationCardSet is the stored record of a set of verification cards.
type VerificationCardSet struct {
	ID              string
	ElectionEventID string
	BallotBoxID     string
}

// VerificationCard is the stored, mutable record of one card. Only the
// methods below change State and the counters; the store runs them inside
// a transaction while holding the card.
type VerificationCard struct {
	ID                     string
	VerificationCardSetID  string
	State                  VerificationCardState
	AuthenticationAttempts int
	ConfirmationAttempts   int
	// PublicKey is the verification card public key K_id.
	PublicKey kyber.Point
}

func (vc *VerificationCard) invalid(op string) error {
	return ccrnode.ErrInvalidStateTransition.Wrapf("%s not allowed in state %v [verificationCardId: %s]",
		op, vc.State, vc.ID)
}

// MarkPartiallyDecrypted moves the card from INITIAL to
// PARTIALLY_DECRYPTED.
func (vc *VerificationCard) MarkPartiallyDecrypted() error {
	if vc.State == CardBlocked || vc.State == CardAuthenticationAttemptsExceeded {
		return vc.invalid("partial decryption")
	}
	if !vc.State.IsNotPartiallyDecrypted() {
		return ccrnode.ErrAlreadyPartiallyDecrypted.Wrapf("[verificationCardId: %s, state: %v]",
			vc.ID, vc.State)
	}
	vc.State = CardPartiallyDecrypted
	return nil
}

// MarkSent moves the card from PARTIALLY_DECRYPTED to SENT once the long
// choice return code share has been created.
func (vc *VerificationCard) MarkSent() error {
	if vc.State == CardBlocked || vc.State == CardAuthenticationAttemptsExceeded {
		return vc.invalid("share creation")
	}
	if !vc.State.IsPartiallyDecrypted() {
		return ccrnode.ErrNotYetPartiallyDecrypted.Wrapf("[verificationCardId: %s, state: %v]",
			vc.ID, vc.State)
	}
	if !vc.State.IsNotSentVote() {
		return ccrnode.ErrAlreadyGeneratedShare.Wrapf("[verificationCardId: %s, state: %v]",
			vc.ID, vc.State)
	}
	vc.State = CardSent
	return nil
}

// IncrementAuthenticationAttempts counts a failed authentication. The
// attempt reaching MaxAuthenticationAttempts blocks the card for good.
func (vc *VerificationCard) IncrementAuthenticationAttempts() error {
	if vc.State.IsTerminal() {
		return vc.invalid("authentication attempt")
	}
	vc.AuthenticationAttempts++
	if vc.AuthenticationAttempts >= MaxAuthenticationAttempts {
		vc.State = CardAuthenticationAttemptsExceeded
	}
	return nil
}

// StartConfirmation moves a card with a sent vote to CONFIRMING.
func (vc *VerificationCard) StartConfirmation() error {
	if vc.State != CardSent {
		return vc.invalid("confirmation start")
	}
	vc.State = CardConfirming
	return nil
}

// IncrementConfirmationAttempts counts a confirmation attempt. It is only
// allowed while CONFIRMING; the attempt reaching MaxConfirmationAttempts
// is the last one.
func (vc *VerificationCard) IncrementConfirmationAttempts() error {
	if vc.State != CardConfirming {
		return vc.invalid("confirmation attempt")
	}
	vc.ConfirmationAttempts++
	if vc.ConfirmationAttempts >= MaxConfirmationAttempts {
		vc.State = CardConfirmationAttemptsExceeded
	}
	return nil
}

// Confirm moves the card from CONFIRMING to CONFIRMED.
func (vc *VerificationCard) Confirm() error {
	if vc.State != CardConfirming {
		return vc.invalid("confirmation")
	}
	vc.State = CardConfirmed
	return nil
}

// Block takes a card out of the election.
func (vc *VerificationCard) Block() error {
	if vc.State.IsTerminal() {
		return vc.invalid("blocking")
	}
	vc.State = CardBlocked
	return nil
}
