// Package config reads and writes the TOML configuration of a control
// component: its database, the transport parameters, its secret keys and
// the public keys of all nodes.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/suites"
	"go.dedis.ch/kyber/v3/util/encoding"
	"go.dedis.ch/kyber/v3/util/key"
	"golang.org/x/xerrors"

	"go.dedis.ch/ccrnode/evoting/lib"
	"go.dedis.ch/ccrnode/evoting/setup"
	"go.dedis.ch/ccrnode/evoting/transport"
)

// Duration is a time.Duration written as "1m30s" in the file.
type Duration struct {
	time.Duration
}

// UnmarshalText parses the duration.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText writes the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Peer holds the public keys of a node. Keys are hex encoded.
type Peer struct {
	NodeID       int
	Public       string
	CcrPublicKey []string
}

// Config is the configuration of one node. Keys are hex encoded.
type Config struct {
	NodeID   int
	Database string

	Workers         int
	Timeout         Duration
	MaxRedeliveries uint64
	Backoff         Duration

	Private                        string
	CcrSecretKey                   []string
	ReturnCodesGenerationSecretKey string

	Peers []Peer
}

// Defaults of the transport parameters.
const (
	DefaultWorkers = 4
	DefaultTimeout = 30 * time.Second
)

// New returns the configuration of the node holding keys, with the default
// transport parameters and only itself as peer.
func New(suite suites.Suite, keys *setup.NodeKeys, database string) (*Config, error) {
	c := &Config{
		NodeID:          keys.NodeID,
		Database:        database,
		Workers:         DefaultWorkers,
		Timeout:         Duration{DefaultTimeout},
		MaxRedeliveries: transport.DefaultConfig.MaxRedeliveries,
		Backoff:         Duration{transport.DefaultConfig.Backoff},
	}
	var err error
	if c.Private, err = encoding.ScalarToStringHex(suite, keys.Signing.Private); err != nil {
		return nil, err
	}
	if c.ReturnCodesGenerationSecretKey, err = encoding.ScalarToStringHex(suite,
		keys.ReturnCodesGenerationSecretKey); err != nil {
		return nil, err
	}
	for _, s := range keys.CcrSecretKey {
		h, err := encoding.ScalarToStringHex(suite, s)
		if err != nil {
			return nil, err
		}
		c.CcrSecretKey = append(c.CcrSecretKey, h)
	}
	peer, err := NewPeer(suite, keys.NodeID, keys.Signing.Public, keys.CcrPublicKey(suite))
	if err != nil {
		return nil, err
	}
	c.Peers = []Peer{*peer}
	return c, nil
}

// NewPeer encodes the public keys of a node.
func NewPeer(suite suites.Suite, nodeID int, public kyber.Point, ccrPublicKey lib.PublicKey) (*Peer, error) {
	p := &Peer{NodeID: nodeID}
	var err error
	if p.Public, err = encoding.PointToStringHex(suite, public); err != nil {
		return nil, err
	}
	for _, pk := range ccrPublicKey {
		h, err := encoding.PointToStringHex(suite, pk)
		if err != nil {
			return nil, err
		}
		p.CcrPublicKey = append(p.CcrPublicKey, h)
	}
	return p, nil
}

// Load reads and validates the configuration in path.
func Load(suite suites.Suite, path string) (*Config, error) {
	c := &Config{}
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, xerrors.Errorf("reading %s: %v", path, err)
	}
	if err := c.Validate(suite); err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Save writes the configuration to path, readable by the owner only.
func (c *Config) Save(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return xerrors.Errorf("writing %s: %v", path, err)
	}
	return f.Close()
}

// Validate checks the node id, the keys and that there is exactly one peer
// per node, this node included.
func (c *Config) Validate(suite suites.Suite) error {
	if err := lib.ValidateNodeID(c.NodeID); err != nil {
		return err
	}
	if c.Database == "" {
		return xerrors.New("missing database")
	}
	if c.Workers < 0 || c.Timeout.Duration < 0 || c.Backoff.Duration < 0 {
		return xerrors.New("negative transport parameter")
	}
	if len(c.Peers) != lib.NumberOfNodes {
		return xerrors.Errorf("%d peers, expected %d", len(c.Peers), lib.NumberOfNodes)
	}
	seen := make(map[int]bool)
	for _, p := range c.Peers {
		if err := lib.ValidateNodeID(p.NodeID); err != nil {
			return err
		}
		if seen[p.NodeID] {
			return xerrors.Errorf("node %d listed twice", p.NodeID)
		}
		seen[p.NodeID] = true
	}
	keys, err := c.NodeKeys(suite)
	if err != nil {
		return err
	}
	signing, err := c.SigningKeys(suite)
	if err != nil {
		return err
	}
	if !signing[c.NodeID].Equal(keys.Signing.Public) {
		return xerrors.Errorf("the public key of node %d does not match its private key", c.NodeID)
	}
	ccr, err := c.CcrPublicKeys(suite)
	if err != nil {
		return err
	}
	if !ccr[c.NodeID-1].Equal(keys.CcrPublicKey(suite)) {
		return xerrors.Errorf("the CCR public key of node %d does not match its secret key", c.NodeID)
	}
	return nil
}

// NodeKeys decodes the secrets of the node.
func (c *Config) NodeKeys(suite suites.Suite) (*setup.NodeKeys, error) {
	priv, err := encoding.StringHexToScalar(suite, c.Private)
	if err != nil {
		return nil, xerrors.Errorf("private key: %v", err)
	}
	gen, err := encoding.StringHexToScalar(suite, c.ReturnCodesGenerationSecretKey)
	if err != nil {
		return nil, xerrors.Errorf("return codes generation secret key: %v", err)
	}
	if len(c.CcrSecretKey) == 0 || len(c.CcrSecretKey) > lib.MaxSelections {
		return nil, xerrors.Errorf("CCR secret key of size %d", len(c.CcrSecretKey))
	}
	ccr := make(lib.SecretKey, len(c.CcrSecretKey))
	for i, h := range c.CcrSecretKey {
		if ccr[i], err = encoding.StringHexToScalar(suite, h); err != nil {
			return nil, xerrors.Errorf("CCR secret key %d: %v", i, err)
		}
	}
	return &setup.NodeKeys{
		NodeID:                         c.NodeID,
		Signing:                        &key.Pair{Public: suite.Point().Mul(priv, nil), Private: priv},
		CcrSecretKey:                   ccr,
		ReturnCodesGenerationSecretKey: gen,
	}, nil
}

// SigningKeys returns the signing public keys of the peers by node id.
func (c *Config) SigningKeys(suite suites.Suite) (map[int]kyber.Point, error) {
	keys := make(map[int]kyber.Point)
	for _, p := range c.Peers {
		pub, err := encoding.StringHexToPoint(suite, p.Public)
		if err != nil {
			return nil, xerrors.Errorf("public key of node %d: %v", p.NodeID, err)
		}
		keys[p.NodeID] = pub
	}
	return keys, nil
}

// CcrPublicKeys returns the CCR public keys of the peers in node id order.
// The peers must be validated.
func (c *Config) CcrPublicKeys(suite suites.Suite) ([]lib.PublicKey, error) {
	keys := make([]lib.PublicKey, lib.NumberOfNodes)
	for _, p := range c.Peers {
		if p.NodeID < 1 || p.NodeID > lib.NumberOfNodes {
			return nil, lib.ValidateNodeID(p.NodeID)
		}
		pk := make(lib.PublicKey, len(p.CcrPublicKey))
		for i, h := range p.CcrPublicKey {
			var err error
			if pk[i], err = encoding.StringHexToPoint(suite, h); err != nil {
				return nil, xerrors.Errorf("CCR public key %d of node %d: %v", i, p.NodeID, err)
			}
		}
		keys[p.NodeID-1] = pk
	}
	return keys, nil
}

// Transport returns the redelivery parameters of the broker.
func (c *Config) Transport() transport.Config {
	return transport.Config{
		MaxRedeliveries: c.MaxRedeliveries,
		Backoff:         c.Backoff.Duration,
	}
}
