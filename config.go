package relay

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// EmptyPolicy decides what happens to a transaction that captured no bytes
type EmptyPolicy int

const (
	EmptyForward  EmptyPolicy = iota // Default: enqueue an envelope with an empty payload
	EmptySuppress                    // Drop zero-byte results before the queue
)

func (p EmptyPolicy) String() string {
	switch p {
	case EmptySuppress:
		return "suppress"
	default:
		return "forward"
	}
}

// ParseEmptyPolicy maps a configuration string to an EmptyPolicy
func ParseEmptyPolicy(s string) (EmptyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "forward":
		return EmptyForward, nil
	case "suppress", "drop":
		return EmptySuppress, nil
	default:
		return EmptyForward, fmt.Errorf("%w: empty policy %q", ErrInvalidConfig, s)
	}
}

// ParseTerminator interprets Go escape sequences such as \n, \r\n or \x03.
// Strings without a backslash are taken verbatim.
func ParseTerminator(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: terminator must not be empty", ErrInvalidConfig)
	}
	if !strings.Contains(s, `\`) {
		return []byte(s), nil
	}
	unquoted, err := strconv.Unquote(`"` + strings.ReplaceAll(s, `"`, `\"`) + `"`)
	if err != nil {
		return nil, fmt.Errorf("%w: terminator %q: %v", ErrInvalidConfig, s, err)
	}
	if unquoted == "" {
		return nil, fmt.Errorf("%w: terminator must not be empty", ErrInvalidConfig)
	}
	return []byte(unquoted), nil
}

const (
	// MaxDatagram is the largest UDP payload over IPv4
	MaxDatagram = 65507

	// envelopeReserve is kept free in a datagram for the JSON fields and port name
	envelopeReserve = 1024

	// MaxFrameLimit is the largest frame whose envelope still fits one datagram
	MaxFrameLimit = (MaxDatagram - envelopeReserve) / 4 * 3

	DefaultMaxFrame = 48000
)

// Config holds the configuration shared by the pipeline components
type Config struct {
	Commands    []byte
	Terminator  []byte
	Timeout     time.Duration // Per-transaction deadline, measured from write completion
	QueueSize   int
	EmptyPolicy EmptyPolicy
	ReadChunk   int // Bytes requested per read
	MaxFrame    int // Response size at which a transaction is cut off
	Logger      logrus.FieldLogger
	Metrics     *Metrics
}

// Option is a functional option for configuring the pipeline
type Option func(*Config) error

// DefaultConfig polls 0x05..0x08 with a 100ms deadline and a newline terminator
func DefaultConfig() Config {
	return Config{
		Commands:    []byte{0x05, 0x06, 0x07, 0x08},
		Terminator:  []byte{'\n'},
		Timeout:     100 * time.Millisecond,
		QueueSize:   100,
		EmptyPolicy: EmptyForward,
		ReadChunk:   4096,
		MaxFrame:    DefaultMaxFrame,
		Logger:      discardLogger(),
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func buildConfig(opts []Option) (Config, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return config, err
		}
	}
	return config, nil
}

// WithCommands sets the ordered command bytes sent to every port
func WithCommands(cmds ...byte) Option {
	return func(c *Config) error {
		if len(cmds) == 0 {
			return fmt.Errorf("%w: at least one command is required", ErrInvalidConfig)
		}
		c.Commands = append([]byte(nil), cmds...)
		return nil
	}
}

// WithTerminator sets the byte sequence that ends a response frame
func WithTerminator(term []byte) Option {
	return func(c *Config) error {
		if len(term) == 0 {
			return fmt.Errorf("%w: terminator must not be empty", ErrInvalidConfig)
		}
		c.Terminator = append([]byte(nil), term...)
		return nil
	}
}

// WithTimeout sets the per-transaction deadline
func WithTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidConfig, d)
		}
		c.Timeout = d
		return nil
	}
}

// WithQueueSize sets the relay queue capacity
func WithQueueSize(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("%w: queue size must be at least 1, got %d", ErrInvalidConfig, n)
		}
		c.QueueSize = n
		return nil
	}
}

// WithEmptyPolicy sets how zero-byte results are handled
func WithEmptyPolicy(p EmptyPolicy) Option {
	return func(c *Config) error {
		if p != EmptyForward && p != EmptySuppress {
			return fmt.Errorf("%w: unknown empty policy %d", ErrInvalidConfig, p)
		}
		c.EmptyPolicy = p
		return nil
	}
}

// WithReadChunk sets how many bytes a single read may return
func WithReadChunk(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("%w: read chunk must be at least 1, got %d", ErrInvalidConfig, n)
		}
		c.ReadChunk = n
		return nil
	}
}

// WithMaxFrame caps the size of one response. The cap may not exceed
// MaxFrameLimit, so every envelope fits one datagram.
func WithMaxFrame(n int) Option {
	return func(c *Config) error {
		if n < 1 || n > MaxFrameLimit {
			return fmt.Errorf("%w: max frame must be between 1 and %d, got %d", ErrInvalidConfig, MaxFrameLimit, n)
		}
		c.MaxFrame = n
		return nil
	}
}

// WithLogger routes diagnostics to l. A nil logger discards them.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Config) error {
		if l == nil {
			l = discardLogger()
		}
		c.Logger = l
		return nil
	}
}

// WithMetrics records pipeline activity into m
func WithMetrics(m *Metrics) Option {
	return func(c *Config) error {
		c.Metrics = m
		return nil
	}
}
