package lib

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"go.dedis.ch/ccrnode"
)

var allElectionEventStates = []ElectionEventState{ElectionEventInitial, ElectionEventConfigured}

func TestElectionEventState_IsTransitionValid(t *testing.T) {
	require.True(t, ElectionEventInitial.IsTransitionValid(ElectionEventConfigured))

	for _, s := range allElectionEventStates {
		require.False(t, s.IsTransitionValid(ElectionEventInitial), s.String())
		require.False(t, ElectionEventConfigured.IsTransitionValid(s), s.String())
	}
	require.Equal(t, "CONFIGURED", ElectionEventConfigured.String())
}

func TestVerificationCardState_Predicates(t *testing.T) {
	require.True(t, CardInitial.IsNotPartiallyDecrypted())
	require.False(t, CardInitial.IsPartiallyDecrypted())
	require.True(t, CardInitial.IsNotSentVote())

	require.True(t, CardPartiallyDecrypted.IsPartiallyDecrypted())
	require.False(t, CardPartiallyDecrypted.IsNotPartiallyDecrypted())
	require.True(t, CardPartiallyDecrypted.IsNotSentVote())

	require.True(t, CardSent.IsPartiallyDecrypted())
	require.False(t, CardSent.IsNotSentVote())

	require.True(t, CardBlocked.IsTerminal())
	require.False(t, CardConfirming.IsTerminal())
	require.Equal(t, "AUTHENTICATION_ATTEMPTS_EXCEEDED", CardAuthenticationAttemptsExceeded.String())
}

func TestVerificationCard_PartialDecryptionThenShare(t *testing.T) {
	vc := &VerificationCard{ID: "card"}

	require.NoError(t, vc.MarkPartiallyDecrypted())
	err := vc.MarkPartiallyDecrypted()
	require.True(t, xerrors.Is(err, ccrnode.ErrAlreadyPartiallyDecrypted))
	require.Equal(t, ccrnode.KindStateGuardViolation, ccrnode.KindOf(err))

	require.NoError(t, vc.MarkSent())
	err = vc.MarkSent()
	require.True(t, xerrors.Is(err, ccrnode.ErrAlreadyGeneratedShare))
	require.Equal(t, CardSent, vc.State)
}

func TestVerificationCard_ShareBeforeDecryption(t *testing.T) {
	vc := &VerificationCard{ID: "card"}
	err := vc.MarkSent()
	require.True(t, xerrors.Is(err, ccrnode.ErrNotYetPartiallyDecrypted))
	require.Equal(t, CardInitial, vc.State)
}

func TestVerificationCard_Confirmation(t *testing.T) {
	vc := &VerificationCard{ID: "card"}

	// Confirmation attempts are refused before the confirmation started.
	err := vc.IncrementConfirmationAttempts()
	require.True(t, xerrors.Is(err, ccrnode.ErrInvalidStateTransition))
	vc.State = CardSent
	err = vc.IncrementConfirmationAttempts()
	require.True(t, xerrors.Is(err, ccrnode.ErrInvalidStateTransition))
	require.Error(t, vc.Confirm())

	require.NoError(t, vc.StartConfirmation())
	for i := 1; i < MaxConfirmationAttempts; i++ {
		require.NoError(t, vc.IncrementConfirmationAttempts())
		require.Equal(t, CardConfirming, vc.State)
	}
	require.NoError(t, vc.IncrementConfirmationAttempts())
	require.Equal(t, CardConfirmationAttemptsExceeded, vc.State)
	require.Equal(t, MaxConfirmationAttempts, vc.ConfirmationAttempts)

	// Terminal.
	require.Error(t, vc.IncrementConfirmationAttempts())
	require.Error(t, vc.Confirm())
	require.Error(t, vc.Block())
}

func TestVerificationCard_AuthenticationAttempts(t *testing.T) {
	vc := &VerificationCard{ID: "card"}
	for i := 1; i < MaxAuthenticationAttempts; i++ {
		require.NoError(t, vc.IncrementAuthenticationAttempts())
	}
	require.Equal(t, CardInitial, vc.State)
	require.NoError(t, vc.IncrementAuthenticationAttempts())
	require.Equal(t, CardAuthenticationAttemptsExceeded, vc.State)

	require.Error(t, vc.IncrementAuthenticationAttempts())
	err := vc.MarkPartiallyDecrypted()
	require.True(t, xerrors.Is(err, ccrnode.ErrInvalidStateTransition))
}

func TestVerificationCard_Block(t *testing.T) {
	vc := &VerificationCard{ID: "card", State: CardPartiallyDecrypted}
	require.NoError(t, vc.Block())
	require.Equal(t, CardBlocked, vc.State)
	require.True(t, xerrors.Is(vc.MarkSent(), ccrnode.ErrInvalidStateTransition))

	vc = &VerificationCard{ID: "card"}
	require.NoError(t, vc.MarkPartiallyDecrypted())
	require.NoError(t, vc.MarkSent())
	require.NoError(t, vc.StartConfirmation())
	require.NoError(t, vc.Confirm())
	require.Error(t, vc.Block())
}
