package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/sirupsen/logrus"
)

// DialSink binds a UDP socket to local and connects it to remote
func DialSink(remote, local string) (*net.UDPConn, error) {
	raddr, err := net.ResolveUDPAddr("udp", remote)
	if err != nil {
		return nil, fmt.Errorf("%w: remote %q: %v", ErrInvalidConfig, remote, err)
	}

	var laddr *net.UDPAddr
	if local != "" {
		laddr, err = net.ResolveUDPAddr("udp", local)
		if err != nil {
			return nil, fmt.Errorf("%w: local %q: %v", ErrInvalidConfig, local, err)
		}
	}

	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s: %w", remote, err)
	}
	return conn, nil
}

// Forwarder drains the queue and writes one datagram per envelope
type Forwarder struct {
	queue   *Queue
	sink    io.Writer
	log     logrus.FieldLogger
	metrics *Metrics
}

// NewForwarder creates a Forwarder writing to sink, usually a *net.UDPConn
func NewForwarder(queue *Queue, sink io.Writer, opts ...Option) (*Forwarder, error) {
	if queue == nil || sink == nil {
		return nil, fmt.Errorf("%w: forwarder needs a queue and a sink", ErrInvalidConfig)
	}
	config, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	return newForwarder(queue, sink, config), nil
}

func newForwarder(queue *Queue, sink io.Writer, config Config) *Forwarder {
	return &Forwarder{
		queue:   queue,
		sink:    sink,
		log:     config.Logger.WithField("component", "forwarder"),
		metrics: config.Metrics,
	}
}

// Run forwards until the queue is closed and drained, returning nil, or until
// ctx is cancelled. Send failures are reported and skipped.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		env, err := f.queue.Dequeue(ctx)
		if errors.Is(err, ErrQueueClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		f.metrics.queueDepth(f.queue.Len())
		f.send(env)
	}
}

func (f *Forwarder) send(env Envelope) {
	payload, err := env.Marshal()
	if err == nil {
		_, err = f.sink.Write(payload)
	}
	f.metrics.datagram(err)

	if err != nil {
		f.log.WithError(err).WithFields(logrus.Fields{
			"port":    env.Port,
			"command": hexByte(env.Command),
		}).Error("Failed to send datagram")
		return
	}
	f.log.WithFields(logrus.Fields{
		"port":  env.Port,
		"bytes": len(payload),
	}).Debug("Datagram sent")
}
