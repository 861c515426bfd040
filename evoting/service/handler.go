package service

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/onet/v3/network"

	"go.dedis.ch/ccrnode"
	"go.dedis.ch/ccrnode/evoting"
	"go.dedis.ch/ccrnode/evoting/transport"
)

const (
	operationPartialDecrypt = "partial_decrypt"
	operationCreateShare    = "create_share"
	operationUnknown        = "unknown"
)

// Metrics counts the requests processed by a node.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them if reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ccrnode",
			Subsystem: "node",
			Name:      "requests_total",
			Help:      "Requests processed, by node, operation and outcome.",
		}, []string{"node", "operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ccrnode",
			Subsystem: "node",
			Name:      "request_duration_seconds",
			Help:      "Processing time of the requests, by node and operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node", "operation"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

func (m *Metrics) observe(nodeID int, operation string, start time.Time, err error) {
	node := strconv.Itoa(nodeID)
	result := "ok"
	if err != nil {
		result = ccrnode.KindOf(err).String()
	}
	m.requests.WithLabelValues(node, operation, result).Inc()
	m.duration.WithLabelValues(node, operation).Observe(time.Since(start).Seconds())
}

// Handler decodes the messages of the node queue and dispatches them to
// the node.
type Handler struct {
	node *Node
}

// NewHandler returns the transport handler of the node.
func NewHandler(n *Node) *Handler {
	return &Handler{node: n}
}

// Handle processes one request and returns the encoded answer. The context
// is not checked: a started request always runs to completion.
func (h *Handler) Handle(ctx context.Context, msg *transport.Message) ([]byte, error) {
	start := time.Now()
	_, req, err := network.Unmarshal(msg.Body, h.node.suite)
	if err != nil {
		err = ccrnode.ErrInvalidInput.Wrapf("decoding %s: %v", msg.CorrelationID, err)
		h.node.metrics.observe(h.node.ID(), operationUnknown, start, err)
		return nil, err
	}

	var reply interface{}
	operation := operationUnknown
	switch r := req.(type) {
	case *evoting.PartialDecryptRequest:
		operation = operationPartialDecrypt
		reply, err = h.node.HandlePartialDecrypt(r)
	case *evoting.CombinedControlComponentPartialDecryptPayload:
		operation = operationCreateShare
		reply, err = h.node.HandleCombined(r)
	default:
		err = ccrnode.ErrInvalidInput.Wrapf("unexpected message %T in %s", req, msg.CorrelationID)
	}
	h.node.metrics.observe(h.node.ID(), operation, start, err)
	if err != nil {
		return nil, err
	}

	buf, err := network.Marshal(reply)
	if err != nil {
		return nil, ccrnode.ErrCommitted.Wrapf("encoding answer to %s: %v", msg.CorrelationID, err)
	}
	return buf, nil
}

// Consumer returns a consumer of the node queue answering to the voting
// server.
func (n *Node) Consumer(broker *transport.Broker, workers int, timeout time.Duration) *transport.Consumer {
	return transport.NewConsumer(broker, NewHandler(n), transport.ConsumerConfig{
		Queue:   transport.ControlComponentQueue(n.ID()),
		ReplyTo: transport.VotingServerQueue,
		NodeID:  n.ID(),
		Workers: workers,
		Timeout: timeout,
	})
}
