// Package transport is the message bus between the voting server and the
// control components. Each participant consumes its own queue; a message is
// either acknowledged or rejected. A rejected message whose failure may be
// transient is put back in its queue after an exponential backoff, every
// other rejected message goes to the dead letter queue together with the
// failure.
package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/ccrnode"
)

// Names of the queues.
const (
	VotingServerQueue = "voting-server"
	DeadLetterQueue   = "dead-letter"
)

// ControlComponentQueue is the queue node nodeID consumes.
func ControlComponentQueue(nodeID int) string {
	return fmt.Sprintf("control-component-%d", nodeID)
}

// ErrClosed is returned once the broker is closed.
var ErrClosed = xerrors.New("broker closed")

// Message is the envelope of every payload.
type Message struct {
	CorrelationID string
	// NodeID is the node the message comes from, 0 for the voting server.
	NodeID int
	Body   []byte

	// Queue, Error and Kind are set on dead letters: the queue the message
	// failed in and the failure.
	Queue string
	Error string
	Kind  ccrnode.Kind

	// Redelivered counts the redeliveries of the message.
	Redelivered int
	backoff     retry.Backoff
}

// Config are the redelivery parameters of a broker.
type Config struct {
	// QueueSize is the capacity of every queue.
	QueueSize int
	// MaxRedeliveries of a message failing with an infrastructure error.
	MaxRedeliveries uint64
	// Backoff is the delay before the first redelivery, doubled every time.
	Backoff time.Duration
}

// DefaultConfig holds the values used for a zero QueueSize or Backoff.
var DefaultConfig = Config{
	QueueSize:       1024,
	MaxRedeliveries: 3,
	Backoff:         100 * time.Millisecond,
}

// Broker is an in-process message broker with named queues.
type Broker struct {
	config  Config
	metrics *Metrics

	sync.Mutex
	queues map[string]chan *Message
	closed chan struct{}
	once   sync.Once
}

// NewBroker returns a broker. If metrics is nil, nothing is counted.
func NewBroker(config Config, metrics *Metrics) *Broker {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConfig.QueueSize
	}
	if config.Backoff <= 0 {
		config.Backoff = DefaultConfig.Backoff
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Broker{
		config:  config,
		metrics: metrics,
		queues:  make(map[string]chan *Message),
		closed:  make(chan struct{}),
	}
}

func (b *Broker) queue(name string) chan *Message {
	b.Lock()
	defer b.Unlock()
	q, ok := b.queues[name]
	if !ok {
		q = make(chan *Message, b.config.QueueSize)
		b.queues[name] = q
	}
	return q
}

// Publish adds the message to the queue. It blocks while the queue is
// full.
func (b *Broker) Publish(ctx context.Context, queue string, msg *Message) error {
	if msg == nil {
		return xerrors.New("nil message")
	}
	select {
	case b.queue(queue) <- msg:
		b.metrics.published.WithLabelValues(queue).Inc()
		return nil
	case <-b.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume waits for the next message of the queue.
func (b *Broker) Consume(ctx context.Context, queue string) (*Delivery, error) {
	select {
	case msg := <-b.queue(queue):
		return &Delivery{Message: msg, queue: queue, broker: b, received: time.Now()}, nil
	case <-b.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the broker. Pending redeliveries are dropped.
func (b *Broker) Close() {
	b.once.Do(func() {
		close(b.closed)
	})
}

// Delivery is a message taken from a queue. It must be acknowledged or
// rejected exactly once.
type Delivery struct {
	*Message
	queue    string
	broker   *Broker
	received time.Time
	done     bool
}

// Ack marks the message as processed.
func (d *Delivery) Ack() {
	if d.done {
		return
	}
	d.done = true
	d.broker.metrics.acked.WithLabelValues(d.queue).Inc()
}

// Reject marks the processing of the message as failed. Infrastructure
// errors are redelivered after a backoff until the maximum number of
// redeliveries is reached, then dead-lettered like every other error.
func (d *Delivery) Reject(cause error) error {
	if d.done {
		return nil
	}
	d.done = true
	b := d.broker
	kind := ccrnode.KindOf(cause)
	b.metrics.rejected.WithLabelValues(d.queue, kind.String()).Inc()

	if kind == ccrnode.KindInfrastructure {
		if delay, ok := d.nextBackoff(); ok {
			d.Redelivered++
			b.metrics.redelivered.WithLabelValues(d.queue).Inc()
			log.Lvlf2("Redelivering %s on %s in %v: %v", d.CorrelationID, d.queue, delay, cause)
			msg := d.Message
			time.AfterFunc(delay, func() {
				if err := b.Publish(context.Background(), d.queue, msg); err != nil {
					log.Warnf("Dropping redelivery of %s: %v", msg.CorrelationID, err)
				}
			})
			return nil
		}
	}

	dead := &Message{
		CorrelationID: d.CorrelationID,
		NodeID:        d.NodeID,
		Body:          d.Body,
		Queue:         d.queue,
		Error:         cause.Error(),
		Kind:          kind,
		Redelivered:   d.Redelivered,
	}
	b.metrics.deadLettered.WithLabelValues(d.queue, kind.String()).Inc()
	log.Lvlf2("Dead-lettering %s of %s: %v", d.CorrelationID, d.queue, cause)
	return b.Publish(context.Background(), DeadLetterQueue, dead)
}

func (d *Delivery) nextBackoff() (time.Duration, bool) {
	if d.backoff == nil {
		d.backoff = retry.WithMaxRetries(d.broker.config.MaxRedeliveries,
			retry.NewExponential(d.broker.config.Backoff))
	}
	delay, stop := d.backoff.Next()
	return delay, !stop
}
