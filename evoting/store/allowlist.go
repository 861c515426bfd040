package store

import (
	bbolt "go.etcd.io/bbolt"

	"go.dedis.ch/ccrnode"
)

// PutAllowList adds the entries to the allow list of a verification card
// set.
func (s *Store) PutAllowList(verificationCardSetID string, entries []string) error {
	return s.update("storing allow list", func(tx *bbolt.Tx) error {
		if !exists(tx, bucketVerificationCardSets, verificationCardSetID) {
			return ccrnode.ErrNotFound.Wrapf("verification card set %s", verificationCardSetID)
		}
		b, err := tx.Bucket(bucketAllowLists).CreateBucketIfNotExists(key(verificationCardSetID))
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := b.Put([]byte(e), present); err != nil {
				return err
			}
		}
		return nil
	})
}

// AllowList is the read-only view of the allow list of one verification
// card set.
type AllowList struct {
	store                 *Store
	verificationCardSetID string
}

// AllowList returns the allow list of the set.
func (s *Store) AllowList(verificationCardSetID string) *AllowList {
	return &AllowList{store: s, verificationCardSetID: verificationCardSetID}
}

// Contains returns true if the entry is in the allow list. A set without
// allow list contains nothing.
func (a *AllowList) Contains(entry string) (bool, error) {
	var found bool
	err := a.store.view("reading allow list", func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAllowLists).Bucket(key(a.verificationCardSetID))
		found = b != nil && b.Get([]byte(entry)) != nil
		return nil
	})
	return found, err
}
