package store

import (
	bbolt "go.etcd.io/bbolt"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting/lib"
)

// electionEvent is the stored record of an election event.
type electionEvent struct {
	State   lib.ElectionEventState
	Context *lib.ElectionEventContext
}

// contextHash is the stored hash of an election event context.
type contextHash struct {
	Hash string
}

// ConfigureElectionEvent stores the context of an election event together
// with its verification card sets and ballot boxes, and moves the event
// from INITIAL to CONFIGURED. Configuring an event twice fails with
// ErrInvalidStateTransition.
func (s *Store) ConfigureElectionEvent(ctx *lib.ElectionEventContext) error {
	if err := ctx.Validate(); err != nil {
		return err
	}
	return s.update("configuring election event", func(tx *bbolt.Tx) error {
		var ee electionEvent
		if _, err := s.get(tx, bucketElectionEvents, ctx.ElectionEventID, &ee); err != nil {
			return err
		}
		if !ee.State.IsTransitionValid(lib.ElectionEventConfigured) {
			return ccrnode.ErrInvalidStateTransition.Wrapf("election event %s is %v",
				ctx.ElectionEventID, ee.State)
		}
		for _, vcsCtx := range ctx.VerificationCardSetContexts {
			if exists(tx, bucketVerificationCardSets, vcsCtx.VerificationCardSetID) {
				return ccrnode.ErrInvalidInput.Wrapf("verification card set %s already exists",
					vcsCtx.VerificationCardSetID)
			}
			vcs := &lib.VerificationCardSet{
				ID:              vcsCtx.VerificationCardSetID,
				ElectionEventID: ctx.ElectionEventID,
				BallotBoxID:     vcsCtx.BallotBoxID,
			}
			if err := put(tx, bucketVerificationCardSets, vcs.ID, vcs); err != nil {
				return err
			}
			box := vcsCtx.BallotBox()
			if err := put(tx, bucketBallotBoxes, box.ID, box); err != nil {
				return err
			}
		}
		return put(tx, bucketElectionEvents, ctx.ElectionEventID, &electionEvent{
			State:   lib.ElectionEventConfigured,
			Context: ctx,
		})
	})
}

// ElectionEventState returns the state of the event. An unknown event is
// INITIAL.
func (s *Store) ElectionEventState(electionEventID string) (lib.ElectionEventState, error) {
	var ee electionEvent
	err := s.view("reading election event", func(tx *bbolt.Tx) error {
		_, err := s.get(tx, bucketElectionEvents, electionEventID, &ee)
		return err
	})
	return ee.State, err
}

// ElectionEventContext returns the context of a configured event.
func (s *Store) ElectionEventContext(electionEventID string) (*lib.ElectionEventContext, error) {
	var ee electionEvent
	err := s.view("reading election event", func(tx *bbolt.Tx) error {
		return s.mustGet(tx, bucketElectionEvents, electionEventID, &ee)
	})
	if err != nil {
		return nil, err
	}
	return ee.Context, nil
}

// ContextHash returns the stored hash of the event context, if any.
func (s *Store) ContextHash(electionEventID string) (string, bool, error) {
	var h contextHash
	var ok bool
	err := s.view("reading context hash", func(tx *bbolt.Tx) error {
		var err error
		ok, err = s.get(tx, bucketContextHashes, electionEventID, &h)
		return err
	})
	return h.Hash, ok, err
}

// PutContextHashIfAbsent stores the hash unless one is already stored,
// and returns the stored one. Concurrent callers all get the same hash.
func (s *Store) PutContextHashIfAbsent(electionEventID, hash string) (string, error) {
	stored := contextHash{Hash: hash}
	err := s.update("storing context hash", func(tx *bbolt.Tx) error {
		var existing contextHash
		ok, err := s.get(tx, bucketContextHashes, electionEventID, &existing)
		if err != nil {
			return err
		}
		if ok {
			stored = existing
			return nil
		}
		return put(tx, bucketContextHashes, electionEventID, &stored)
	})
	if err != nil {
		return "", err
	}
	return stored.Hash, nil
}

// VerificationCardSet returns the stored set.
func (s *Store) VerificationCardSet(id string) (*lib.VerificationCardSet, error) {
	var vcs lib.VerificationCardSet
	err := s.view("reading verification card set", func(tx *bbolt.Tx) error {
		return s.mustGet(tx, bucketVerificationCardSets, id, &vcs)
	})
	if err != nil {
		return nil, err
	}
	return &vcs, nil
}

// BallotBox returns the stored ballot box.
func (s *Store) BallotBox(id string) (*lib.BallotBox, error) {
	var box lib.BallotBox
	err := s.view("reading ballot box", func(tx *bbolt.Tx) error {
		return s.mustGet(tx, bucketBallotBoxes, id, &box)
	})
	if err != nil {
		return nil, err
	}
	return &box, nil
}

// MarkBallotBoxMixed closes the ballot box for good. It can only happen
// once.
func (s *Store) MarkBallotBoxMixed(id string) error {
	return s.update("mixing ballot box", func(tx *bbolt.Tx) error {
		var box lib.BallotBox
		if err := s.mustGet(tx, bucketBallotBoxes, id, &box); err != nil {
			return err
		}
		if box.Mixed {
			return ccrnode.ErrInvalidStateTransition.Wrapf("ballot box %s is already mixed", id)
		}
		box.Mixed = true
		return put(tx, bucketBallotBoxes, id, &box)
	})
}
