package relay

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// step is one scripted read, available `after` the command write
type step struct {
	after time.Duration
	data  []byte
	err   error
}

func reply(after time.Duration, data string) step {
	return step{after: after, data: []byte(data)}
}

// fakeDevice answers each command with a scripted sequence of reads and
// honours the read timeout the way the serial drivers do.
type fakeDevice struct {
	mu       sync.Mutex
	script   func(cmd byte) []step
	writeErr error
	flushErr error
	flushes  int
	pending  []step
	base     time.Time
	timeout  time.Duration
	writes   []byte
	timeouts []time.Duration
	closed   bool
}

func newFakeDevice(script func(cmd byte) []step) *fakeDevice {
	return &fakeDevice{script: script, timeout: -1}
}

// silentDevice never answers
func silentDevice() *fakeDevice {
	return newFakeDevice(nil)
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.writeErr != nil {
		return 0, d.writeErr
	}
	d.writes = append(d.writes, p...)
	d.base = time.Now()
	d.pending = nil
	if d.script != nil {
		d.pending = d.script(p[len(p)-1])
	}
	return len(p), nil
}

func (d *fakeDevice) FlushInput() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.flushes++
	return d.flushErr
}

func (d *fakeDevice) SetReadTimeout(timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.timeout = timeout
	d.timeouts = append(d.timeouts, timeout)
	return nil
}

func (d *fakeDevice) Read(buf []byte) (int, error) {
	d.mu.Lock()
	timeout := d.timeout
	if len(d.pending) == 0 {
		d.mu.Unlock()
		time.Sleep(timeout)
		return 0, nil
	}
	next := d.pending[0]
	wait := time.Until(d.base.Add(next.after))
	d.mu.Unlock()

	if wait > timeout {
		time.Sleep(timeout)
		return 0, nil
	}
	if wait > 0 {
		time.Sleep(wait)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	n := copy(buf, next.data)
	if n < len(next.data) {
		d.pending[0].data = next.data[n:]
		return n, nil
	}
	d.pending = d.pending[1:]
	return n, next.err
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) writeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.writes)
}

func (d *fakeDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// lineDevice has one input buffer shared by every transaction. A reply lands
// in it once its delay after the write has passed, whether or not anyone is
// still reading.
type lineDevice struct {
	mu       sync.Mutex
	script   func(cmd byte) step
	arrivals []arrival
	input    []byte
	timeout  time.Duration
}

type arrival struct {
	at   time.Time
	data []byte
}

func newLineDevice(script func(cmd byte) step) *lineDevice {
	return &lineDevice{script: script, timeout: -1}
}

// deliver moves due arrivals into the input buffer; d.mu must be held
func (d *lineDevice) deliver() {
	now := time.Now()
	var later []arrival
	for _, a := range d.arrivals {
		if a.at.After(now) {
			later = append(later, a)
			continue
		}
		d.input = append(d.input, a.data...)
	}
	d.arrivals = later
}

func (d *lineDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	next := d.script(p[len(p)-1])
	d.arrivals = append(d.arrivals, arrival{at: time.Now().Add(next.after), data: next.data})
	return len(p), nil
}

func (d *lineDevice) FlushInput() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.deliver()
	d.input = nil
	return nil
}

func (d *lineDevice) SetReadTimeout(timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timeout = timeout
	return nil
}

func (d *lineDevice) Read(buf []byte) (int, error) {
	d.mu.Lock()
	deadline := time.Now().Add(d.timeout)
	d.mu.Unlock()

	for {
		d.mu.Lock()
		d.deliver()
		if len(d.input) > 0 {
			n := copy(buf, d.input)
			d.input = d.input[n:]
			d.mu.Unlock()
			return n, nil
		}
		d.mu.Unlock()

		if !time.Now().Before(deadline) {
			return 0, nil
		}
		time.Sleep(time.Millisecond)
	}
}

func (d *lineDevice) Close() error {
	return nil
}

// recordingSink keeps every datagram written to it
type recordingSink struct {
	mu        sync.Mutex
	failFirst int
	datagrams [][]byte
	attempts  int
	closed    bool
}

func (s *recordingSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts++
	if s.failFirst > 0 {
		s.failFirst--
		return 0, errors.New("network unreachable")
	}
	s.datagrams = append(s.datagrams, append([]byte(nil), p...))
	return len(p), nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) envelopes(t *testing.T) []Envelope {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	envs := make([]Envelope, 0, len(s.datagrams))
	for _, d := range s.datagrams {
		var env Envelope
		if err := json.Unmarshal(d, &env); err != nil {
			t.Fatalf("datagram is not an envelope: %v (%q)", err, d)
		}
		envs = append(envs, env)
	}
	return envs
}

// waitFor polls cond until it holds or the test deadline passes
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
