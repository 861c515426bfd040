// Package contexthash provides the hash of the election event context the
// proofs of every vote are bound to. The hash is computed once per election
// event and node, stored, and cached.
package contexthash

import (
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/xerrors"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting/lib"
)

// DefaultCacheSize is the number of election events whose hash is kept in
// memory.
const DefaultCacheSize = 128

// Store is what the provider needs from the node database.
type Store interface {
	ElectionEventContext(electionEventID string) (*lib.ElectionEventContext, error)
	ContextHash(electionEventID string) (string, bool, error)
	PutContextHashIfAbsent(electionEventID, hash string) (string, error)
}

// Provider returns the context hash of election events.
type Provider struct {
	store Store
	suite kyber.HashFactory
	cache *lru.Cache
	group singleflight.Group
}

// NewProvider returns a provider caching up to size hashes.
func NewProvider(store Store, suite kyber.HashFactory, size int) (*Provider, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, xerrors.Errorf("creating cache: %v", err)
	}
	return &Provider{store: store, suite: suite, cache: cache}, nil
}

// GetHashElectionEventContext returns the hash of the context of the
// election event. The first call computes and stores it; concurrent first
// calls share one computation and the store keeps the first hash written,
// so every caller sees the same value. An unknown election event fails with
// ErrNotFound.
func (p *Provider) GetHashElectionEventContext(electionEventID string) (string, error) {
	if err := lib.ValidateUUID(electionEventID); err != nil {
		return "", err
	}
	// Identifiers are case-insensitive.
	id := strings.ToUpper(electionEventID)
	if h, ok := p.cache.Get(id); ok {
		return h.(string), nil
	}
	h, err, _ := p.group.Do(id, func() (interface{}, error) {
		return p.load(id)
	})
	if err != nil {
		return "", err
	}
	p.cache.Add(id, h)
	return h.(string), nil
}

func (p *Provider) load(electionEventID string) (string, error) {
	stored, ok, err := p.store.ContextHash(electionEventID)
	if err != nil {
		return "", err
	}
	if ok {
		return stored, nil
	}

	ctx, err := p.store.ElectionEventContext(electionEventID)
	if err != nil {
		return "", err
	}
	hash, err := lib.HashContext(p.suite, ctx)
	if err != nil {
		return "", ccrnode.ErrorOrNil(err, "hashing election event context")
	}
	stored, err = p.store.PutContextHashIfAbsent(electionEventID, hash)
	if err != nil {
		return "", err
	}
	if stored != hash {
		log.Warnf("Context hash of election event %s was already stored with another value", electionEventID)
	}
	log.Lvlf2("Context hash of election event %s: %s", electionEventID, stored)
	return stored, nil
}
