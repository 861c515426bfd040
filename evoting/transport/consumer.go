package transport

import (
	"context"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"go.dedis.ch/onet/v3/log"

	"go.dedis.ch/ccrnode"
)

// ErrTimeout is the failure of a message that waited too long for a worker.
var ErrTimeout = ccrnode.NewSentinel(ccrnode.KindInfrastructure, "processing timeout")

// Handler processes one message and returns the body of the reply.
type Handler interface {
	Handle(ctx context.Context, msg *Message) ([]byte, error)
}

// HandlerFunc is a function used as a Handler.
type HandlerFunc func(ctx context.Context, msg *Message) ([]byte, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, msg *Message) ([]byte, error) {
	return f(ctx, msg)
}

// ConsumerConfig describes where a consumer reads and replies.
type ConsumerConfig struct {
	// Queue the consumer reads.
	Queue string
	// ReplyTo is the queue of the replies.
	ReplyTo string
	// NodeID is put in the replies.
	NodeID int
	// Workers is the number of messages processed in parallel.
	Workers int
	// Timeout bounds the time a message waits for a worker, 0 means no
	// bound. Once the handler got the message it runs to completion; the
	// deadline is passed on in its context.
	Timeout time.Duration
}

// Consumer processes the messages of a queue with a pool of workers.
// Messages are independent, the handler must serialize what needs it.
type Consumer struct {
	broker  *Broker
	handler Handler
	config  ConsumerConfig
	pool    *workerpool.WorkerPool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConsumer returns a consumer that is not started yet.
func NewConsumer(broker *Broker, handler Handler, config ConsumerConfig) *Consumer {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	return &Consumer{
		broker:  broker,
		handler: handler,
		config:  config,
	}
}

// Start reads the queue until Stop is called or the broker is closed.
func (c *Consumer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.pool = workerpool.New(c.config.Workers)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			d, err := c.broker.Consume(ctx, c.config.Queue)
			if err != nil {
				log.Lvl2("Consumer of", c.config.Queue, "stops:", err)
				return
			}
			c.pool.Submit(func() {
				c.process(d)
			})
		}
	}()
	log.Lvlf1("Consuming %s with %d workers", c.config.Queue, c.config.Workers)
}

// Stop stops reading and waits for the messages being processed.
func (c *Consumer) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.wg.Wait()
	c.pool.StopWait()
}

func (c *Consumer) process(d *Delivery) {
	ctx := context.Background()
	if c.config.Timeout > 0 {
		deadline := d.received.Add(c.config.Timeout)
		if !time.Now().Before(deadline) {
			// The handler never saw the message, it can be delivered again.
			err := ErrTimeout.Wrapf("%s waited %v for a worker", d.CorrelationID, time.Since(d.received))
			if rerr := d.Reject(err); rerr != nil {
				log.Error("Rejecting", d.CorrelationID, ":", rerr)
			}
			return
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	body, err := c.handler.Handle(ctx, d.Message)
	if err != nil {
		if err := d.Reject(err); err != nil {
			log.Error("Rejecting", d.CorrelationID, ":", err)
		}
		return
	}
	reply := &Message{
		CorrelationID: d.CorrelationID,
		NodeID:        c.config.NodeID,
		Body:          body,
	}
	if err := c.broker.Publish(context.Background(), c.config.ReplyTo, reply); err != nil {
		// The processing is done but nobody got the reply.
		if rerr := d.Reject(ccrnode.ErrorOrNil(err, "publishing reply")); rerr != nil {
			log.Error("Rejecting", d.CorrelationID, ":", rerr)
		}
		return
	}
	d.Ack()
}
