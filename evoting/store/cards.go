package store

import (
	bbolt "go.etcd.io/bbolt"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting/lib"
)

// PutVerificationCards stores new cards of a known verification card set.
func (s *Store) PutVerificationCards(cards []*lib.VerificationCard) error {
	return s.update("storing verification cards", func(tx *bbolt.Tx) error {
		for _, card := range cards {
			if err := lib.ValidateUUID(card.ID); err != nil {
				return err
			}
			if !exists(tx, bucketVerificationCardSets, card.VerificationCardSetID) {
				return ccrnode.ErrNotFound.Wrapf("verification card set %s of card %s",
					card.VerificationCardSetID, card.ID)
			}
			if exists(tx, bucketVerificationCards, card.ID) {
				return ccrnode.ErrInvalidInput.Wrapf("verification card %s already exists", card.ID)
			}
			if err := put(tx, bucketVerificationCards, card.ID, card); err != nil {
				return err
			}
		}
		return nil
	})
}

// VerificationCard returns the stored card.
func (s *Store) VerificationCard(id string) (*lib.VerificationCard, error) {
	var card lib.VerificationCard
	err := s.view("reading verification card", func(tx *bbolt.Tx) error {
		return s.mustGet(tx, bucketVerificationCards, id, &card)
	})
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// mutateCard applies the transition to the card and stores the result,
// all while holding the card.
func (s *Store) mutateCard(id string, transition func(*lib.VerificationCard) error) error {
	defer s.cards.Lock(string(key(id)))()
	return s.update("updating verification card", func(tx *bbolt.Tx) error {
		var card lib.VerificationCard
		if err := s.mustGet(tx, bucketVerificationCards, id, &card); err != nil {
			return err
		}
		if err := transition(&card); err != nil {
			return err
		}
		return put(tx, bucketVerificationCards, id, &card)
	})
}

// IncrementAuthenticationAttempts counts a failed authentication of the
// voter.
func (s *Store) IncrementAuthenticationAttempts(id string) error {
	return s.mutateCard(id, (*lib.VerificationCard).IncrementAuthenticationAttempts)
}

// StartConfirmation moves a card with a sent vote to CONFIRMING.
func (s *Store) StartConfirmation(id string) error {
	return s.mutateCard(id, (*lib.VerificationCard).StartConfirmation)
}

// IncrementConfirmationAttempts counts a confirmation attempt.
func (s *Store) IncrementConfirmationAttempts(id string) error {
	return s.mutateCard(id, (*lib.VerificationCard).IncrementConfirmationAttempts)
}

// Confirm marks the vote of the card as confirmed.
func (s *Store) Confirm(id string) error {
	return s.mutateCard(id, (*lib.VerificationCard).Confirm)
}

// Block takes the card out of the election.
func (s *Store) Block(id string) error {
	return s.mutateCard(id, (*lib.VerificationCard).Block)
}

// RecordPartialDecryption holds the card of the vote, checks it may be
// partially decrypted, runs compute and stores the vote, the partial
// decryption and the PARTIALLY_DECRYPTED state in one transaction. The
// guard is checked again inside the transaction.
func (s *Store) RecordPartialDecryption(vote *lib.EncryptedVerifiableVote,
	compute func() (*lib.PartiallyDecryptedEncryptedPCC, error)) error {
	id := vote.ContextIds.VerificationCardID
	defer s.cards.Lock(string(key(id)))()

	card, err := s.VerificationCard(id)
	if err != nil {
		return err
	}
	if err := card.MarkPartiallyDecrypted(); err != nil {
		return err
	}
	pd, err := compute()
	if err != nil {
		return err
	}
	return s.update("recording partial decryption", func(tx *bbolt.Tx) error {
		var card lib.VerificationCard
		if err := s.mustGet(tx, bucketVerificationCards, id, &card); err != nil {
			return err
		}
		if err := card.MarkPartiallyDecrypted(); err != nil {
			return err
		}
		if err := put(tx, bucketVotes, id, vote); err != nil {
			return err
		}
		if err := put(tx, bucketPartialDecryptions, id, pd); err != nil {
			return err
		}
		return put(tx, bucketVerificationCards, id, &card)
	})
}

// RecordLCCShare holds the card, checks that it is partially decrypted and
// has no share yet, runs compute and stores the share with the SENT state.
// A failing compute leaves the card untouched.
func (s *Store) RecordLCCShare(id string, compute func() (*lib.LongChoiceReturnCodesShare, error)) error {
	defer s.cards.Lock(string(key(id)))()

	card, err := s.VerificationCard(id)
	if err != nil {
		return err
	}
	if err := card.MarkSent(); err != nil {
		return err
	}
	share, err := compute()
	if err != nil {
		return err
	}
	return s.update("recording long choice return codes share", func(tx *bbolt.Tx) error {
		var card lib.VerificationCard
		if err := s.mustGet(tx, bucketVerificationCards, id, &card); err != nil {
			return err
		}
		if err := card.MarkSent(); err != nil {
			return err
		}
		if err := put(tx, bucketLCCShares, id, share); err != nil {
			return err
		}
		return put(tx, bucketVerificationCards, id, &card)
	})
}

// Vote returns the vote stored with the partial decryption of the card.
func (s *Store) Vote(id string) (*lib.EncryptedVerifiableVote, error) {
	var vote lib.EncryptedVerifiableVote
	err := s.view("reading vote", func(tx *bbolt.Tx) error {
		return s.mustGet(tx, bucketVotes, id, &vote)
	})
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

// PartialDecryption returns the partial decryption of the card by this
// node.
func (s *Store) PartialDecryption(id string) (*lib.PartiallyDecryptedEncryptedPCC, error) {
	var pd lib.PartiallyDecryptedEncryptedPCC
	err := s.view("reading partial decryption", func(tx *bbolt.Tx) error {
		return s.mustGet(tx, bucketPartialDecryptions, id, &pd)
	})
	if err != nil {
		return nil, err
	}
	return &pd, nil
}

// LCCShare returns the long choice return codes share of the card.
func (s *Store) LCCShare(id string) (*lib.LongChoiceReturnCodesShare, error) {
	var share lib.LongChoiceReturnCodesShare
	err := s.view("reading long choice return codes share", func(tx *bbolt.Tx) error {
		return s.mustGet(tx, bucketLCCShares, id, &share)
	})
	if err != nil {
		return nil, err
	}
	return &share, nil
}
