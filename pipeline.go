package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle state of a Pipeline
type State int32

const (
	StateRunning State = iota
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	default:
		return "running"
	}
}

// Pipeline supervises one Poller per port and a single Forwarder.
// It owns the devices and the sink, and closes them when Run returns.
type Pipeline struct {
	ports     []Port
	sink      io.Writer
	queue     *Queue
	pollers   []*Poller
	forwarder *Forwarder
	log       logrus.FieldLogger

	state   atomic.Int32
	started atomic.Bool
	done    chan struct{}
}

// NewPipeline wires pollers for ports to a forwarder writing to sink
func NewPipeline(ports []Port, sink io.Writer, opts ...Option) (*Pipeline, error) {
	if len(ports) == 0 {
		return nil, ErrNoPorts
	}
	if sink == nil {
		return nil, fmt.Errorf("%w: nil sink", ErrInvalidConfig)
	}

	config, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(ports))
	for _, port := range ports {
		if port.Device == nil {
			return nil, fmt.Errorf("%w: port %q has no device", ErrInvalidConfig, port.Name)
		}
		if seen[port.Name] {
			return nil, fmt.Errorf("%w: duplicate port %q", ErrInvalidConfig, port.Name)
		}
		seen[port.Name] = true
	}

	p := &Pipeline{
		ports: ports,
		sink:  sink,
		queue: NewQueue(config.QueueSize),
		log:   config.Logger,
		done:  make(chan struct{}),
	}
	for _, port := range ports {
		p.pollers = append(p.pollers, newPoller(port, p.queue, config))
	}
	p.forwarder = newForwarder(p.queue, sink, config)
	return p, nil
}

// Run polls and forwards until ctx is cancelled. Cancellation is a clean
// stop and returns nil. A Pipeline runs once; later calls return
// ErrPipelineStopped.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrPipelineStopped
	}
	defer p.stop()

	p.log.WithField("ports", len(p.ports)).Info("Pipeline started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Pollers only end on cancellation; the forwarder then drains and exits
		defer p.queue.Close()

		var pollers errgroup.Group
		for _, poller := range p.pollers {
			poller := poller
			pollers.Go(func() error {
				return poller.Run(gctx)
			})
		}
		return pollers.Wait()
	})
	g.Go(func() error {
		return p.forwarder.Run(gctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrQueueClosed) {
		return nil
	}
	return err
}

// State returns the current lifecycle state
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Done is closed once the pipeline has stopped and released its resources
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

func (p *Pipeline) stop() {
	for _, port := range p.ports {
		if err := port.Device.Close(); err != nil {
			p.log.WithError(err).WithField("port", port.Name).Warn("Failed to close device")
		}
	}
	if closer, ok := p.sink.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			p.log.WithError(err).Warn("Failed to close sink")
		}
	}

	p.state.Store(int32(StateStopped))
	close(p.done)
	p.log.Info("Pipeline stopped")
}
