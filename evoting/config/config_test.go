package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting/lib"
	"go.dedis.ch/ccrnode/evoting/setup"
)

var tSuite = ccrnode.Suite

func TestMain(m *testing.M) {
	log.MainTest(m)
}

// newConfigs returns the configurations of four nodes knowing each other.
func newConfigs(t *testing.T, dir string) ([]*Config, []*setup.NodeKeys) {
	var configs []*Config
	var keys []*setup.NodeKeys
	for id := 1; id <= lib.NumberOfNodes; id++ {
		k, err := setup.GenerateNodeKeys(tSuite, id, 3, random.New())
		require.NoError(t, err)
		c, err := New(tSuite, k, filepath.Join(dir, "node.db"))
		require.NoError(t, err)
		configs = append(configs, c)
		keys = append(keys, k)
	}
	for _, c := range configs {
		for _, other := range configs {
			if other != c {
				c.Peers = append(c.Peers, other.Peers[0])
			}
		}
	}
	return configs, keys
}

func TestConfig_SaveLoad(t *testing.T) {
	dir, err := ioutil.TempDir("", "ccrnode-config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	configs, keys := newConfigs(t, dir)
	c := configs[1]
	c.Timeout = Duration{90 * time.Second}
	path := filepath.Join(dir, "node2.toml")
	require.NoError(t, c.Save(path))

	loaded, err := Load(tSuite, path)
	require.NoError(t, err)
	require.Equal(t, c, loaded)
	require.Equal(t, 90*time.Second, loaded.Timeout.Duration)
	require.Equal(t, DefaultWorkers, loaded.Workers)
	require.Equal(t, c.MaxRedeliveries, loaded.Transport().MaxRedeliveries)

	k, err := loaded.NodeKeys(tSuite)
	require.NoError(t, err)
	require.True(t, k.Signing.Private.Equal(keys[1].Signing.Private))
	require.True(t, k.ReturnCodesGenerationSecretKey.Equal(keys[1].ReturnCodesGenerationSecretKey))
	require.True(t, k.CcrPublicKey(tSuite).Equal(keys[1].CcrPublicKey(tSuite)))

	signing, err := loaded.SigningKeys(tSuite)
	require.NoError(t, err)
	ccr, err := loaded.CcrPublicKeys(tSuite)
	require.NoError(t, err)
	for id := 1; id <= lib.NumberOfNodes; id++ {
		require.True(t, signing[id].Equal(keys[id-1].Signing.Public))
		require.True(t, ccr[id-1].Equal(keys[id-1].CcrPublicKey(tSuite)))
	}
}

func TestConfig_Validate(t *testing.T) {
	dir, err := ioutil.TempDir("", "ccrnode-config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	configs, _ := newConfigs(t, dir)
	c := configs[0]
	require.NoError(t, c.Validate(tSuite))

	bad := *c
	bad.NodeID = 5
	require.Error(t, bad.Validate(tSuite))

	bad = *c
	bad.Peers = c.Peers[:3]
	require.Error(t, bad.Validate(tSuite))

	bad = *c
	bad.Peers = append([]Peer{}, c.Peers...)
	bad.Peers[3] = bad.Peers[2]
	require.Error(t, bad.Validate(tSuite))

	// Another node's private key.
	bad = *c
	bad.Private = configs[1].Private
	require.Error(t, bad.Validate(tSuite))

	bad = *c
	bad.CcrSecretKey = configs[1].CcrSecretKey
	require.Error(t, bad.Validate(tSuite))

	bad = *c
	bad.Database = ""
	require.Error(t, bad.Validate(tSuite))

	path := filepath.Join(dir, "broken.toml")
	require.NoError(t, ioutil.WriteFile(path, []byte("NodeID = \"one\""), 0600))
	_, err = Load(tSuite, path)
	require.Error(t, err)
}
