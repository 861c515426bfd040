package ccrnode

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Kind classifies a failure so that the transport and the operators can
// tell a buggy caller from a replay, a cheating participant or a broken
// disk.
type Kind int

const (
	// KindUnknown is returned for errors that do not carry a kind.
	KindUnknown Kind = iota
	// KindMalformedInput flags bad identifiers, wrong vector sizes or
	// missing fields. The sender is at fault and the message is never
	// retried.
	KindMalformedInput
	// KindStateGuardViolation flags a request that is well formed but not
	// allowed in the current state: replays, duplicates, closed ballot
	// boxes.
	KindStateGuardViolation
	// KindProofVerificationFailure flags a participant that is either
	// malicious or buggy: invalid proofs, allow-list misses, duplicate
	// codes.
	KindProofVerificationFailure
	// KindInfrastructure flags failures of the storage, the signing keys or
	// the encoding. They may be transient.
	KindInfrastructure
)

func (k Kind) String() string {
	switch k {
	case KindMalformedInput:
		return "MalformedInput"
	case KindStateGuardViolation:
		return "StateGuardViolation"
	case KindProofVerificationFailure:
		return "ProofVerificationFailure"
	case KindInfrastructure:
		return "InfrastructureError"
	default:
		return "Unknown"
	}
}

// Sentinel is a comparable error carrying a kind. Errors returned by the
// node wrap one of the sentinels below so that xerrors.Is and KindOf work
// through any number of layers.
type Sentinel struct {
	kind Kind
	msg  string
}

// NewSentinel creates a new sentinel error of the given kind.
func NewSentinel(kind Kind, msg string) *Sentinel {
	return &Sentinel{kind: kind, msg: msg}
}

func (s *Sentinel) Error() string {
	return s.msg
}

// Kind returns the class of the sentinel.
func (s *Sentinel) Kind() Kind {
	return s.kind
}

// Wrapf returns an error that prints the sentinel followed by the details
// and that unwraps to the sentinel.
func (s *Sentinel) Wrapf(format string, args ...interface{}) error {
	return &detailError{
		sentinel: s,
		detail:   fmt.Sprintf(format, args...),
		frame:    xerrors.Caller(1),
	}
}

type detailError struct {
	sentinel *Sentinel
	detail   string
	frame    xerrors.Frame
}

func (e *detailError) Error() string {
	return e.sentinel.msg + ": " + e.detail
}

func (e *detailError) Unwrap() error {
	return e.sentinel
}

func (e *detailError) Format(f fmt.State, c rune) {
	xerrors.FormatError(e, f, c)
}

func (e *detailError) FormatError(p xerrors.Printer) error {
	p.Print(e.Error())
	if p.Detail() {
		e.frame.Format(p)
	}
	return nil
}

// Malformed input.
var (
	ErrMalformedIdentifier     = NewSentinel(KindMalformedInput, "malformed identifier")
	ErrInconsistentIdentifiers = NewSentinel(KindMalformedInput, "inconsistent identifiers")
	ErrNotFound                = NewSentinel(KindMalformedInput, "not found")
	ErrInvalidInput            = NewSentinel(KindMalformedInput, "invalid input")
	ErrWrongCiphertextSize     = NewSentinel(KindMalformedInput, "wrong ciphertext size")
	ErrGroupMismatch           = NewSentinel(KindMalformedInput, "group mismatch")
)

// State guard violations.
var (
	ErrAlreadyPartiallyDecrypted = NewSentinel(KindStateGuardViolation, "verification card already partially decrypted")
	ErrNotYetPartiallyDecrypted  = NewSentinel(KindStateGuardViolation, "verification card not yet partially decrypted")
	ErrAlreadyGeneratedShare     = NewSentinel(KindStateGuardViolation, "long choice return code share already generated")
	ErrInvalidStateTransition    = NewSentinel(KindStateGuardViolation, "invalid state transition")
	ErrElectionNotConfigured     = NewSentinel(KindStateGuardViolation, "election event not configured")
	ErrVotingNotAllowed          = NewSentinel(KindStateGuardViolation, "voting not allowed")
	// ErrCommitted is a failure after the state of the card was committed.
	// The same request fails the state guard if it comes again.
	ErrCommitted = NewSentinel(KindStateGuardViolation, "state committed without an answer")
)

// Proof verification failures.
var (
	ErrPeerProofVerificationFailed = NewSentinel(KindProofVerificationFailure, "peer proof verification failed")
	ErrBallotVerificationFailed    = NewSentinel(KindProofVerificationFailure, "ballot verification failed")
	ErrDuplicateCodes              = NewSentinel(KindProofVerificationFailure, "duplicate partial choice return codes")
	ErrNotInAllowList              = NewSentinel(KindProofVerificationFailure, "partial choice return code not in allow list")
	ErrOwnContributionMismatch     = NewSentinel(KindProofVerificationFailure, "own partial decryption does not match the stored one")
)

// Infrastructure errors.
var (
	ErrSignature = NewSentinel(KindInfrastructure, "signature error")
	ErrStore     = NewSentinel(KindInfrastructure, "store error")
)

// Kinder is implemented by the errors carrying a kind.
type Kinder interface {
	error
	Kind() Kind
}

// KindOf returns the kind of the first error of the chain of err that
// carries one.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var k Kinder
	if xerrors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// PeerProofError names the node whose partial decryption proof did not
// verify.
type PeerProofError struct {
	NodeID int
	Index  int
}

func (e *PeerProofError) Error() string {
	return fmt.Sprintf("%v [nodeId: %d, index: %d]",
		ErrPeerProofVerificationFailed, e.NodeID, e.Index)
}

// Unwrap returns the sentinel so that KindOf and xerrors.Is see it.
func (e *PeerProofError) Unwrap() error {
	return ErrPeerProofVerificationFailed
}

// Error is a wrapper around an standard error that allows
// to print the stack trace from the call of the constructor.
type Error struct {
	err   error
	msg   string
	frame xerrors.Frame
}

// ErrorOrNil returns the error if any with the stack trace
// beginning at the call of the function.
func ErrorOrNil(err error, msg string) error {
	return ErrorOrNilSkip(err, msg, 1)
}

// ErrorOrNilSkip returns the error if any with the stack trace
// beginning at the call of the skip-nth caller.
func ErrorOrNilSkip(err error, msg string, skip int) error {
	if err == nil {
		return nil
	}
	return &Error{
		err:   err,
		msg:   msg,
		frame: xerrors.Caller(skip),
	}
}

// StoreErrorOrNil wraps a failure of the storage layer so that it is
// classified as an infrastructure error while keeping the original cause.
func StoreErrorOrNil(err error, msg string) error {
	if err == nil {
		return nil
	}
	var s *Sentinel
	if xerrors.As(err, &s) {
		// Guard failures raised inside a transaction keep their own kind.
		return ErrorOrNilSkip(err, msg, 2)
	}
	return ErrorOrNilSkip(ErrStore.Wrapf("%v", err), msg, 2)
}

func (e *Error) Error() string {
	if e.msg != "" {
		return e.msg + ": " + fmt.Sprintf("%v", e.err)
	}
	return fmt.Sprintf("%v", e.err)
}

// Unwrap returns the next error in the chain.
func (e *Error) Unwrap() error {
	return e.err
}

// Format prints the error to the formatter.
func (e *Error) Format(f fmt.State, c rune) {
	xerrors.FormatError(e, f, c)
}

// FormatError prints the error to the printer. It prints
// the stack trace when the '+' is used in combination with
// 'v'.
func (e *Error) FormatError(p xerrors.Printer) error {
	if e.msg != "" {
		p.Printf("%s: %v", e.msg, e.err)
	} else {
		p.Printf("%v", e.err)
	}

	if p.Detail() {
		e.frame.Format(p)
		p.Printf("%+v", e.err)
	}
	return nil
}
