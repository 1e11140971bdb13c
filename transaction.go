package relay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"
)

// Result is the outcome of one write-then-read transaction
type Result struct {
	Command  byte
	Data     []byte
	Elapsed  time.Duration // From write completion to the end of the read phase
	Complete bool          // Data ends with the terminator
	Err      error
}

// TimedOut reports whether the deadline expired before the terminator arrived
func (r Result) TimedOut() bool {
	return errors.Is(r.Err, ErrReadTimeout)
}

// Executor runs single transactions against a device
type Executor struct {
	terminator []byte
	timeout    time.Duration
	chunk      int
	maxFrame   int
}

// NewExecutor creates an Executor from the terminator, timeout and frame options
func NewExecutor(opts ...Option) (*Executor, error) {
	config, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	return newExecutor(config), nil
}

func newExecutor(config Config) *Executor {
	return &Executor{
		terminator: config.Terminator,
		timeout:    config.Timeout,
		chunk:      config.ReadChunk,
		maxFrame:   config.MaxFrame,
	}
}

// Execute writes cmd and reads until the response ends with the terminator,
// the deadline expires or the device reports end-of-data. The deadline starts
// once the write returns and is shared by every read of the transaction.
//
// Input left over from an earlier transaction is discarded before the write.
// A failed flush or write yields an empty Result wrapping ErrWriteFailed. All
// other outcomes carry whatever bytes were captured.
func (e *Executor) Execute(dev Device, cmd byte) Result {
	if err := dev.FlushInput(); err != nil {
		return Result{Command: cmd, Err: fmt.Errorf("%w: discarding stale input: %v", ErrWriteFailed, err)}
	}

	n, err := dev.Write([]byte{cmd})
	if err == nil && n != 1 {
		err = io.ErrShortWrite
	}
	if err != nil {
		return Result{Command: cmd, Err: fmt.Errorf("%w: %v", ErrWriteFailed, err)}
	}

	start := time.Now()
	deadline := start.Add(e.timeout)
	res := Result{Command: cmd}
	buf := make([]byte, 0, e.chunk)
	chunk := make([]byte, e.chunk)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			res.Err = fmt.Errorf("%w after %v", ErrReadTimeout, e.timeout)
			break
		}
		if err := dev.SetReadTimeout(remaining); err != nil {
			res.Err = fmt.Errorf("%w: %v", ErrReadFailed, err)
			break
		}

		want := min(e.chunk, e.maxFrame-len(buf))
		n, err := dev.Read(chunk[:want])
		buf = append(buf, chunk[:n]...)

		if n > 0 && len(buf) >= len(e.terminator) && bytes.HasSuffix(buf, e.terminator) {
			res.Complete = true
			break
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Err = fmt.Errorf("%w: %v", ErrReadFailed, err)
			break
		}
		if len(buf) >= e.maxFrame {
			res.Err = fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(buf))
			break
		}
	}

	res.Data = buf
	res.Elapsed = time.Since(start)
	return res
}
