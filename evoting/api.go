// Package evoting holds the messages exchanged between the voting server
// and the control components, and the voting server side of the exchange.
// A vote goes through two rounds: every node partially decrypts it, then
// every node gets the combined partial decryptions and returns its long
// choice return codes share.
package evoting

import (
	"context"
	"sync"
	"time"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/suites"
	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/onet/v3/network"
	"golang.org/x/xerrors"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting/lib"
	"go.dedis.ch/ccrnode/evoting/transport"
)

// DefaultTimeout bounds one round of a vote.
const DefaultTimeout = 30 * time.Second

// RemoteError is the failure of a node reported through the dead letter
// queue.
type RemoteError struct {
	Queue   string
	Message string
	kind    ccrnode.Kind
}

func (e *RemoteError) Error() string {
	return e.Queue + ": " + e.Message
}

// Kind returns the kind of the failure on the node.
func (e *RemoteError) Kind() ccrnode.Kind {
	return e.kind
}

// VotingServer sends the votes to the control components and collects
// their answers.
type VotingServer struct {
	broker      *transport.Broker
	suite       suites.Suite
	signingKeys map[int]kyber.Point
	ids         lib.IDGenerator
	// Timeout bounds every round, DefaultTimeout if zero.
	Timeout time.Duration

	sync.Mutex
	pending map[string]chan *transport.Message
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewVotingServer returns a voting server knowing the signing public keys
// of the nodes.
func NewVotingServer(broker *transport.Broker, suite suites.Suite, signingKeys map[int]kyber.Point,
	ids lib.IDGenerator) *VotingServer {
	return &VotingServer{
		broker:      broker,
		suite:       suite,
		signingKeys: signingKeys,
		ids:         ids,
		pending:     make(map[string]chan *transport.Message),
	}
}

// Start listens for the answers and the failures of the nodes.
func (vs *VotingServer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	vs.cancel = cancel
	for _, queue := range []string{transport.VotingServerQueue, transport.DeadLetterQueue} {
		vs.wg.Add(1)
		go vs.listen(ctx, queue)
	}
}

// Stop stops listening.
func (vs *VotingServer) Stop() {
	if vs.cancel == nil {
		return
	}
	vs.cancel()
	vs.wg.Wait()
}

func (vs *VotingServer) listen(ctx context.Context, queue string) {
	defer vs.wg.Done()
	for {
		d, err := vs.broker.Consume(ctx, queue)
		if err != nil {
			return
		}
		vs.Lock()
		ch, ok := vs.pending[d.CorrelationID]
		vs.Unlock()
		if !ok {
			log.Lvl2("Dropping unexpected message", d.CorrelationID, "from", queue)
			d.Ack()
			continue
		}
		ch <- d.Message
		d.Ack()
	}
}

// round sends the message to all nodes and returns their answers, in node
// id order. The first failure stops the round.
func (vs *VotingServer) round(ctx context.Context, msg interface{}) ([]network.Message, error) {
	body, err := network.Marshal(msg)
	if err != nil {
		return nil, xerrors.Errorf("encoding request: %w", err)
	}
	id := vs.ids.NewID()
	// Room for an answer and a failure of every node.
	ch := make(chan *transport.Message, 2*lib.NumberOfNodes)
	vs.Lock()
	vs.pending[id] = ch
	vs.Unlock()
	defer func() {
		vs.Lock()
		delete(vs.pending, id)
		vs.Unlock()
	}()

	timeout := vs.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for nodeID := 1; nodeID <= lib.NumberOfNodes; nodeID++ {
		err := vs.broker.Publish(ctx, transport.ControlComponentQueue(nodeID), &transport.Message{
			CorrelationID: id,
			Body:          body,
		})
		if err != nil {
			return nil, xerrors.Errorf("sending to node %d: %w", nodeID, err)
		}
	}

	answers := make([]network.Message, lib.NumberOfNodes)
	for received := 0; received < lib.NumberOfNodes; {
		select {
		case m := <-ch:
			if m.Error != "" {
				return nil, &RemoteError{Queue: m.Queue, Message: m.Error, kind: m.Kind}
			}
			if err := lib.ValidateNodeID(m.NodeID); err != nil {
				return nil, err
			}
			if answers[m.NodeID-1] != nil {
				return nil, ccrnode.ErrInvalidInput.Wrapf("second answer of node %d", m.NodeID)
			}
			_, answer, err := network.Unmarshal(m.Body, vs.suite)
			if err != nil {
				return nil, ccrnode.ErrInvalidInput.Wrapf("answer of node %d: %v", m.NodeID, err)
			}
			answers[m.NodeID-1] = answer
			received++
		case <-ctx.Done():
			return nil, xerrors.Errorf("waiting for the nodes: %w", ctx.Err())
		}
	}
	return answers, nil
}

// PartialDecrypt sends the vote to all nodes and returns their verified
// partial decryptions combined.
func (vs *VotingServer) PartialDecrypt(ctx context.Context, vote *lib.EncryptedVerifiableVote) (
	*CombinedControlComponentPartialDecryptPayload, error) {
	if err := vote.Check(); err != nil {
		return nil, err
	}
	answers, err := vs.round(ctx, &PartialDecryptRequest{Vote: vote})
	if err != nil {
		return nil, err
	}
	payloads := make([]*PartiallyDecryptedEncryptedPCCPayload, len(answers))
	for i, a := range answers {
		p, ok := a.(*PartiallyDecryptedEncryptedPCCPayload)
		if !ok {
			return nil, ccrnode.ErrInvalidInput.Wrapf("node %d answered %T", i+1, a)
		}
		if err := p.PartiallyDecryptedEncryptedPCC.Check(); err != nil {
			return nil, err
		}
		if err := vs.verify(i+1, p.PartiallyDecryptedEncryptedPCC, p.SignatureContext(), p.Signature); err != nil {
			return nil, err
		}
		payloads[i] = p
	}
	return NewCombinedPayload(payloads)
}

// CreateShares sends the combined partial decryptions to all nodes and
// returns their verified shares in node id order.
func (vs *VotingServer) CreateShares(ctx context.Context, combined *CombinedControlComponentPartialDecryptPayload) (
	[]*LongChoiceReturnCodesSharePayload, error) {
	if err := combined.Validate(); err != nil {
		return nil, err
	}
	answers, err := vs.round(ctx, combined)
	if err != nil {
		return nil, err
	}
	shares := make([]*LongChoiceReturnCodesSharePayload, len(answers))
	for i, a := range answers {
		p, ok := a.(*LongChoiceReturnCodesSharePayload)
		if !ok {
			return nil, ccrnode.ErrInvalidInput.Wrapf("node %d answered %T", i+1, a)
		}
		if err := p.Check(); err != nil {
			return nil, err
		}
		if err := vs.verify(i+1, p.Share, p.SignatureContext(), p.Signature); err != nil {
			return nil, err
		}
		shares[i] = p
	}
	return shares, nil
}

// SendVote runs both rounds for the vote.
func (vs *VotingServer) SendVote(ctx context.Context, vote *lib.EncryptedVerifiableVote) (
	[]*LongChoiceReturnCodesSharePayload, error) {
	combined, err := vs.PartialDecrypt(ctx, vote)
	if err != nil {
		return nil, err
	}
	return vs.CreateShares(ctx, combined)
}

func (vs *VotingServer) verify(from int, payload interface{}, sc lib.SignatureContext, sig []byte) error {
	if sc.NodeID != from {
		return ccrnode.ErrInvalidInput.Wrapf("node %d answered for node %d", from, sc.NodeID)
	}
	return lib.VerifyPayload(vs.suite, vs.signingKeys[from], payload, sc, sig)
}
