package relay

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Poller cycles the command set against one device and queues an envelope
// per transaction. It is the only user of its device.
type Poller struct {
	port     Port
	exec     *Executor
	queue    *Queue
	commands []byte
	timeout  time.Duration
	policy   EmptyPolicy
	log      logrus.FieldLogger
	metrics  *Metrics
}

// NewPoller creates a Poller that feeds queue with results from port
func NewPoller(port Port, queue *Queue, opts ...Option) (*Poller, error) {
	if port.Device == nil {
		return nil, fmt.Errorf("%w: port %q has no device", ErrInvalidConfig, port.Name)
	}
	if queue == nil {
		return nil, fmt.Errorf("%w: nil queue", ErrInvalidConfig)
	}
	config, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	return newPoller(port, queue, config), nil
}

func newPoller(port Port, queue *Queue, config Config) *Poller {
	return &Poller{
		port:     port,
		exec:     newExecutor(config),
		queue:    queue,
		commands: config.Commands,
		timeout:  config.Timeout,
		policy:   config.EmptyPolicy,
		log:      config.Logger.WithField("port", port.Name),
		metrics:  config.Metrics,
	}
}

// Name returns the port identifier
func (p *Poller) Name() string {
	return p.port.Name
}

// Run polls until ctx is cancelled or the queue is closed. Device errors are
// reported and never end the loop.
func (p *Poller) Run(ctx context.Context) error {
	p.log.WithField("commands", len(p.commands)).Info("Polling started")
	defer p.log.Info("Polling stopped")

	for {
		for _, cmd := range p.commands {
			if err := p.PollOnce(ctx, cmd); err != nil {
				return err
			}
		}
	}
}

// PollOnce runs a single transaction for cmd and queues its envelope.
// No transaction is started once ctx is done.
func (p *Poller) PollOnce(ctx context.Context, cmd byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res := p.exec.Execute(p.port.Device, cmd)
	p.report(res)
	p.metrics.observeTransaction(p.port.Name, res)

	if errors.Is(res.Err, ErrWriteFailed) {
		return p.pace(ctx, res)
	}

	if len(res.Data) == 0 && p.policy == EmptySuppress {
		p.metrics.envelope(p.port.Name, "suppressed")
		p.log.WithField("command", hexByte(cmd)).Debug("Suppressed empty response")
		return p.pace(ctx, res)
	}

	if err := p.queue.Enqueue(ctx, NewEnvelope(p.port.Name, res)); err != nil {
		return err
	}
	p.metrics.envelope(p.port.Name, "queued")
	p.metrics.queueDepth(p.queue.Len())
	return p.pace(ctx, res)
}

// pace holds a transaction that failed without waiting for the device to the
// transaction deadline, so a dead device is polled no faster than a silent one.
func (p *Poller) pace(ctx context.Context, res Result) error {
	failed := errors.Is(res.Err, ErrWriteFailed) || errors.Is(res.Err, ErrReadFailed) ||
		(res.Err == nil && !res.Complete && len(res.Data) == 0)
	if !failed || res.Elapsed >= p.timeout {
		return nil
	}

	timer := time.NewTimer(p.timeout - res.Elapsed)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) report(res Result) {
	entry := p.log.WithFields(logrus.Fields{
		"command": hexByte(res.Command),
		"bytes":   len(res.Data),
		"elapsed": res.Elapsed,
	})

	switch {
	case res.Err == nil && res.Complete:
		entry.Debug("Response received")
	case res.Err == nil:
		entry.Warn("Device reported end of data")
	case res.TimedOut():
		entry.WithField("data", strconv.Quote(string(res.Data))).Warn("Timeout waiting for terminator")
	case errors.Is(res.Err, ErrFrameTooLarge):
		entry.WithError(res.Err).Warn("Response cut off")
	default:
		entry.WithError(res.Err).Error("Transaction failed")
	}
}

func hexByte(b byte) string {
	return fmt.Sprintf("0x%02x", b)
}
