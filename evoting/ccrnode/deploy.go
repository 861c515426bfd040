package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting"
	"go.dedis.ch/ccrnode/evoting/client"
	"go.dedis.ch/ccrnode/evoting/lib"
	"go.dedis.ch/ccrnode/evoting/service"
	"go.dedis.ch/ccrnode/evoting/setup"
	"go.dedis.ch/ccrnode/evoting/store"
	"go.dedis.ch/ccrnode/evoting/transport"
)

// deployment runs the four nodes and the voting server in this process,
// connected by one broker.
type deployment struct {
	keys      []*setup.NodeKeys
	stores    []*store.Store
	nodes     []*service.Node
	broker    *transport.Broker
	consumers []*transport.Consumer
	server    *evoting.VotingServer
}

type deploymentConfig struct {
	databases []string
	transport transport.Config
	workers   int
	timeout   time.Duration
	registry  prometheus.Registerer
}

func newDeployment(keys []*setup.NodeKeys, cfg deploymentConfig) (*deployment, error) {
	if len(keys) != lib.NumberOfNodes || len(cfg.databases) != lib.NumberOfNodes {
		return nil, xerrors.Errorf("need the keys and the database of %d nodes", lib.NumberOfNodes)
	}
	signing := make(map[int]kyber.Point)
	for _, k := range keys {
		signing[k.NodeID] = k.Signing.Public
	}
	d := &deployment{
		keys:   keys,
		broker: transport.NewBroker(cfg.transport, transport.NewMetrics(cfg.registry)),
	}
	metrics := service.NewMetrics(cfg.registry)
	for i, k := range keys {
		st, err := store.Open(cfg.databases[i], ccrnode.Suite)
		if err != nil {
			d.close()
			return nil, err
		}
		d.stores = append(d.stores, st)
		n, err := service.NewNode(ccrnode.Suite, k, signing, st, metrics)
		if err != nil {
			d.close()
			return nil, err
		}
		d.nodes = append(d.nodes, n)
		d.consumers = append(d.consumers, n.Consumer(d.broker, cfg.workers, cfg.timeout))
	}
	d.server = evoting.NewVotingServer(d.broker, ccrnode.Suite, signing, lib.UUIDGenerator{})
	return d, nil
}

func (d *deployment) start() {
	for _, c := range d.consumers {
		c.Start()
	}
	d.server.Start()
}

func (d *deployment) close() {
	if d.server != nil {
		d.server.Stop()
	}
	for _, c := range d.consumers {
		c.Stop()
	}
	d.broker.Close()
	for _, st := range d.stores {
		if err := st.Close(); err != nil {
			log.Error("Closing store:", err)
		}
	}
}

// configure generates an election event for the nodes and hands it to
// each of them.
func (d *deployment) configure(p setup.Params) (*setup.Election, error) {
	var pks []lib.PublicKey
	for _, k := range d.keys {
		pks = append(pks, k.CcrPublicKey(ccrnode.Suite))
	}
	e, err := setup.NewElection(ccrnode.Suite, p, pks, lib.UUIDGenerator{}, random.New())
	if err != nil {
		return nil, err
	}
	for _, n := range d.nodes {
		if err := n.ConfigureElectionEvent(e.Context, e.VerificationCards(), e.AllowLists); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// vote lets the holder of the card vote for the selections and returns
// the shares of the nodes.
func (d *deployment) vote(ctx context.Context, e *setup.Election, card int, selections []int) (
	[]*evoting.LongChoiceReturnCodesSharePayload, error) {
	if card < 0 || card >= len(e.Cards) {
		return nil, xerrors.Errorf("no card %d", card)
	}
	hash, err := lib.HashContext(ccrnode.Suite, e.Context)
	if err != nil {
		return nil, err
	}
	c := e.Cards[card]
	voter := &client.Voter{Ids: c.Ids, SecretKey: c.SecretKey}
	vote, err := voter.CreateVote(ccrnode.Suite, e.Context, hash, selections, nil, random.New())
	if err != nil {
		return nil, err
	}
	return d.server.SendVote(ctx, vote)
}
