// Package store keeps the state of a control component in a bbolt
// database: the configured election events with their context hashes, the
// verification card sets and ballot boxes, the verification cards with
// their state, the allow lists and, per card, the vote, the partial
// decryption and the long choice return codes share of the node.
//
// Every state transition of a card runs while holding the lock of that
// card, and is written in the same transaction as the data it releases.
package store

import (
	"strings"
	"time"

	"go.dedis.ch/kyber/v3/suites"
	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/onet/v3/network"
	"go.dedis.ch/protobuf"
	bbolt "go.etcd.io/bbolt"
	"golang.org/x/xerrors"

	"go.dedis.ch/ccrnode"
)

var (
	bucketElectionEvents       = []byte("election-events")
	bucketContextHashes        = []byte("context-hashes")
	bucketVerificationCardSets = []byte("verification-card-sets")
	bucketBallotBoxes          = []byte("ballot-boxes")
	bucketVerificationCards    = []byte("verification-cards")
	bucketAllowLists           = []byte("allow-lists")
	bucketVotes                = []byte("votes")
	bucketPartialDecryptions   = []byte("partial-decryptions")
	bucketLCCShares            = []byte("lcc-shares")

	allBuckets = [][]byte{bucketElectionEvents, bucketContextHashes, bucketVerificationCardSets,
		bucketBallotBoxes, bucketVerificationCards, bucketAllowLists, bucketVotes,
		bucketPartialDecryptions, bucketLCCShares}
)

// present is the value of an allow list entry.
var present = []byte{1}

// Store is the node database. It is safe for concurrent use.
type Store struct {
	db    *bbolt.DB
	suite suites.Suite
	cards *keyedMutex
}

// Open opens or creates the database at path.
func Open(path string, suite suites.Suite) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, ccrnode.StoreErrorOrNil(err, "opening "+path)
	}
	s, err := New(db, suite)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Lvl2("Opened store", path)
	return s, nil
}

// New uses an already opened database and creates the missing buckets.
func New(db *bbolt.DB, suite suites.Suite) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, ccrnode.StoreErrorOrNil(err, "creating buckets")
	}
	return &Store{db: db, suite: suite, cards: newKeyedMutex()}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// key normalizes an identifier: identifiers are compared case-insensitively.
func key(id string) []byte {
	return []byte(strings.ToUpper(id))
}

func (s *Store) get(tx *bbolt.Tx, bucket []byte, id string, msg interface{}) (bool, error) {
	buf := tx.Bucket(bucket).Get(key(id))
	if buf == nil {
		return false, nil
	}
	if err := protobuf.DecodeWithConstructors(buf, msg, network.DefaultConstructors(s.suite)); err != nil {
		return false, xerrors.Errorf("decoding %s/%s: %v", bucket, id, err)
	}
	return true, nil
}

func (s *Store) mustGet(tx *bbolt.Tx, bucket []byte, id string, msg interface{}) error {
	ok, err := s.get(tx, bucket, id, msg)
	if err != nil {
		return err
	}
	if !ok {
		return ccrnode.ErrNotFound.Wrapf("%s %s", strings.TrimSuffix(string(bucket), "s"), id)
	}
	return nil
}

func put(tx *bbolt.Tx, bucket []byte, id string, msg interface{}) error {
	buf, err := protobuf.Encode(msg)
	if err != nil {
		return xerrors.Errorf("encoding %s/%s: %v", bucket, id, err)
	}
	return tx.Bucket(bucket).Put(key(id), buf)
}

func exists(tx *bbolt.Tx, bucket []byte, id string) bool {
	return tx.Bucket(bucket).Get(key(id)) != nil
}

// view and update classify every failure that is not one of ours as an
// infrastructure error.
func (s *Store) view(msg string, f func(tx *bbolt.Tx) error) error {
	return ccrnode.StoreErrorOrNil(s.db.View(f), msg)
}

func (s *Store) update(msg string, f func(tx *bbolt.Tx) error) error {
	return ccrnode.StoreErrorOrNil(s.db.Update(f), msg)
}
