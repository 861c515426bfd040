package contexthash

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting/lib"
	"go.dedis.ch/ccrnode/evoting/setup"
	"go.dedis.ch/ccrnode/evoting/store"
)

var tSuite = ccrnode.Suite

func TestMain(m *testing.M) {
	log.MainTest(m)
}

// countingStore counts the contexts read from the wrapped store.
type countingStore struct {
	*store.Store
	sync.Mutex
	reads int
}

func (s *countingStore) ElectionEventContext(id string) (*lib.ElectionEventContext, error) {
	s.Lock()
	s.reads++
	s.Unlock()
	return s.Store.ElectionEventContext(id)
}

func newStore(t *testing.T) (*countingStore, *setup.Election, func()) {
	dir, err := ioutil.TempDir("", "ccrnode-contexthash")
	require.NoError(t, err)
	st, err := store.Open(filepath.Join(dir, "node.db"), tSuite)
	require.NoError(t, err)

	var pks []lib.PublicKey
	for id := 1; id <= lib.NumberOfNodes; id++ {
		keys, err := setup.GenerateNodeKeys(tSuite, id, 1, random.New())
		require.NoError(t, err)
		pks = append(pks, keys.CcrPublicKey(tSuite))
	}
	e, err := setup.NewElection(tSuite, setup.Params{Questions: 1, OptionsPerQuestion: 2,
		WriteInsPlusOne: 1, Voters: 1, Sets: 1}, pks, lib.UUIDGenerator{}, random.New())
	require.NoError(t, err)
	require.NoError(t, st.ConfigureElectionEvent(e.Context))

	return &countingStore{Store: st}, e, func() {
		st.Close()
		os.RemoveAll(dir)
	}
}

func TestProvider(t *testing.T) {
	st, e, cleanup := newStore(t)
	defer cleanup()
	p, err := NewProvider(st, tSuite, DefaultCacheSize)
	require.NoError(t, err)
	ee := e.Context.ElectionEventID

	expected, err := lib.HashContext(tSuite, e.Context)
	require.NoError(t, err)
	h, err := p.GetHashElectionEventContext(ee)
	require.NoError(t, err)
	require.Equal(t, expected, h)

	stored, ok, err := st.ContextHash(ee)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, expected, stored)

	// Served from the cache.
	h, err = p.GetHashElectionEventContext(ee)
	require.NoError(t, err)
	require.Equal(t, expected, h)
	require.Equal(t, 1, st.reads)

	// A new provider finds the stored hash.
	p2, err := NewProvider(st, tSuite, DefaultCacheSize)
	require.NoError(t, err)
	h, err = p2.GetHashElectionEventContext(ee)
	require.NoError(t, err)
	require.Equal(t, expected, h)
	require.Equal(t, 1, st.reads)
}

func TestProvider_Concurrent(t *testing.T) {
	st, e, cleanup := newStore(t)
	defer cleanup()
	p, err := NewProvider(st, tSuite, DefaultCacheSize)
	require.NoError(t, err)

	var wg sync.WaitGroup
	hashes := make([]string, 20)
	for i := range hashes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hashes[i], _ = p.GetHashElectionEventContext(e.Context.ElectionEventID)
		}(i)
	}
	wg.Wait()
	for _, h := range hashes {
		require.NotEmpty(t, h)
		require.Equal(t, hashes[0], h)
	}
}

func TestProvider_NotFound(t *testing.T) {
	st, _, cleanup := newStore(t)
	defer cleanup()
	p, err := NewProvider(st, tSuite, DefaultCacheSize)
	require.NoError(t, err)

	_, err = p.GetHashElectionEventContext(lib.UUIDGenerator{}.NewID())
	require.True(t, xerrors.Is(err, ccrnode.ErrNotFound))
	_, err = p.GetHashElectionEventContext("bad")
	require.True(t, xerrors.Is(err, ccrnode.ErrMalformedIdentifier))

	_, err = NewProvider(st, tSuite, 0)
	require.Error(t, err)
}

func TestProvider_CaseInsensitive(t *testing.T) {
	st, e, cleanup := newStore(t)
	defer cleanup()
	p, err := NewProvider(st, tSuite, DefaultCacheSize)
	require.NoError(t, err)
	ee := e.Context.ElectionEventID

	lower, err := p.GetHashElectionEventContext(strings.ToLower(ee))
	require.NoError(t, err)
	upper, err := p.GetHashElectionEventContext(strings.ToUpper(ee))
	require.NoError(t, err)
	require.Equal(t, lower, upper)
	require.Equal(t, 1, st.reads)
	require.Equal(t, 1, p.cache.Len())
}
