package protocol

import (
	"reflect"

	"go.dedis.ch/kyber/v3"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting/lib"
)

// PartialDecryptionRecorder runs a partial decryption and records it
// together with the vote and the new card state. The compute function is
// only called if the card has not been partially decrypted yet, and its
// result is stored before the recorder returns: two calls for the same card
// never both succeed.
type PartialDecryptionRecorder interface {
	RecordPartialDecryption(vote *lib.EncryptedVerifiableVote,
		compute func() (*lib.PartiallyDecryptedEncryptedPCC, error)) error
}

// ShareRecorder runs the creation of a long choice return codes share and
// records it with the SENT card state. The guards are checked in order:
// ErrNotYetPartiallyDecrypted, then ErrAlreadyGeneratedShare. If compute
// fails nothing is recorded.
type ShareRecorder interface {
	RecordLCCShare(verificationCardID string,
		compute func() (*lib.LongChoiceReturnCodesShare, error)) error
}

// AllowList is the membership predicate over the allow list of a
// verification card set.
type AllowList interface {
	Contains(entry string) (bool, error)
}

// checkGroups returns ErrGroupMismatch if the context and the input were
// built for different groups.
func checkGroups(ctx, in kyber.Group) error {
	if ctx == nil || in == nil {
		return ccrnode.ErrInvalidInput.Wrapf("missing group")
	}
	if ctx.String() != in.String() {
		return ccrnode.ErrGroupMismatch.Wrapf("context group %s, input group %s", ctx, in)
	}
	return nil
}

func checkPoints(group kyber.Group, points ...kyber.Point) error {
	want := reflect.TypeOf(group.Point())
	for i, p := range points {
		if p == nil {
			return ccrnode.ErrInvalidInput.Wrapf("missing group element %d", i)
		}
		if reflect.TypeOf(p) != want {
			return ccrnode.ErrGroupMismatch.Wrapf("element %d is not in %s", i, group)
		}
	}
	return nil
}

func checkCiphertexts(group kyber.Group, ciphertexts ...*lib.Ciphertext) error {
	for _, c := range ciphertexts {
		if err := c.Check(); err != nil {
			return err
		}
		if err := checkPoints(group, append([]kyber.Point{c.Gamma}, c.Phis...)...); err != nil {
			return err
		}
	}
	return nil
}

func checkScalar(group kyber.Group, s kyber.Scalar) error {
	if s == nil {
		return ccrnode.ErrInvalidInput.Wrapf("missing scalar")
	}
	if reflect.TypeOf(s) != reflect.TypeOf(group.Scalar()) {
		return ccrnode.ErrGroupMismatch.Wrapf("scalar is not of the order of %s", group)
	}
	return nil
}

func checkSize(name string, expected, actual int) error {
	if expected != actual {
		return ccrnode.ErrWrongCiphertextSize.Wrapf("%s has size %d, expected %d", name, actual, expected)
	}
	return nil
}

func checkPsi(psi int) error {
	if psi < 1 || psi > lib.MaxSelections {
		return ccrnode.ErrInvalidInput.Wrapf("number of selections %d not in [1, %d]", psi, lib.MaxSelections)
	}
	return nil
}

func checkDelta(delta int) error {
	if delta < 1 {
		return ccrnode.ErrInvalidInput.Wrapf("number of write-ins plus one must be positive, got %d", delta)
	}
	return nil
}

func checkContextHash(hash string) error {
	if hash == "" {
		return ccrnode.ErrInvalidInput.Wrapf("missing context hash")
	}
	return nil
}
