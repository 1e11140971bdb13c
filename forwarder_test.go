package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func fillQueue(t *testing.T, q *Queue, envs ...Envelope) {
	t.Helper()
	for _, env := range envs {
		if err := q.Enqueue(context.Background(), env); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}
}

func TestForwarderContinuesAfterSendFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	metrics := NewMetrics(prometheus.NewRegistry())
	sink := &recordingSink{failFirst: 1}
	q := NewQueue(10)

	fillQueue(t, q,
		Envelope{Port: "A", Command: 5},
		Envelope{Port: "A", Command: 6},
		Envelope{Port: "B", Command: 5},
	)
	q.Close()

	f, err := NewForwarder(q, sink, WithLogger(logger), WithMetrics(metrics))
	if err != nil {
		t.Fatalf("NewForwarder failed: %v", err)
	}
	if err := f.Run(context.Background()); err != nil {
		t.Fatalf("Expected nil once the queue is drained, got %v", err)
	}

	if sink.attempts != 3 {
		t.Errorf("Expected 3 send attempts, got %d", sink.attempts)
	}
	envs := sink.envelopes(t)
	if len(envs) != 2 {
		t.Fatalf("Expected 2 delivered datagrams, got %d", len(envs))
	}
	if envs[0].Command != 6 || envs[1].Port != "B" {
		t.Errorf("Unexpected delivery order: %+v", envs)
	}

	var failures int
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("Expected 1 reported send failure, got %d", failures)
	}

	if got := testutil.ToFloat64(metrics.Datagrams.WithLabelValues("error")); got != 1 {
		t.Errorf("Expected 1 failed datagram, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.Datagrams.WithLabelValues("sent")); got != 2 {
		t.Errorf("Expected 2 sent datagrams, got %v", got)
	}
}

func TestForwarderStopsOnCancel(t *testing.T) {
	q := NewQueue(1)
	f, err := NewForwarder(q, &recordingSink{})
	if err != nil {
		t.Fatalf("NewForwarder failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- f.Run(ctx) }()

	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Forwarder did not stop on cancellation")
	}
}

func TestNewForwarderRequiresSink(t *testing.T) {
	if _, err := NewForwarder(NewQueue(1), nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestForwarderUDP(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Skipf("UDP loopback unavailable: %v", err)
	}
	defer listener.Close()

	sink, err := DialSink(listener.LocalAddr().String(), "127.0.0.1:0")
	if err != nil {
		t.Fatalf("DialSink failed: %v", err)
	}
	defer sink.Close()

	q := NewQueue(4)
	fillQueue(t, q,
		NewEnvelope("/dev/ttyUSB0", Result{Command: 5, Data: []byte("ok\n"), Complete: true}),
		NewEnvelope("/dev/ttyUSB1", Result{Command: 5}),
	)
	q.Close()

	f, err := NewForwarder(q, sink)
	if err != nil {
		t.Fatalf("NewForwarder failed: %v", err)
	}
	if err := f.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 2048)
	for _, wantPort := range []string{"/dev/ttyUSB0", "/dev/ttyUSB1"} {
		n, _, err := listener.ReadFromUDP(buf)
		if err != nil {
			t.Fatalf("ReadFromUDP failed: %v", err)
		}
		var env Envelope
		if err := json.Unmarshal(buf[:n], &env); err != nil {
			t.Fatalf("Datagram is not an envelope: %v", err)
		}
		if env.Port != wantPort {
			t.Errorf("Expected port %s, got %s", wantPort, env.Port)
		}
	}
}

func TestForwarderUnreachableSink(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Skipf("UDP loopback unavailable: %v", err)
	}
	addr := listener.LocalAddr().String()
	listener.Close()

	sink, err := DialSink(addr, "")
	if err != nil {
		t.Fatalf("DialSink failed: %v", err)
	}
	defer sink.Close()

	metrics := NewMetrics(prometheus.NewRegistry())
	q := NewQueue(8)
	for i := 0; i < 5; i++ {
		fillQueue(t, q, Envelope{Port: "A", Command: byte(i)})
	}
	q.Close()

	f, err := NewForwarder(q, sink, WithMetrics(metrics))
	if err != nil {
		t.Fatalf("NewForwarder failed: %v", err)
	}
	if err := f.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	sent := testutil.ToFloat64(metrics.Datagrams.WithLabelValues("sent"))
	failed := testutil.ToFloat64(metrics.Datagrams.WithLabelValues("error"))
	if sent+failed != 5 {
		t.Errorf("Expected 5 send attempts, got %v sent and %v failed", sent, failed)
	}
	if q.Len() != 0 {
		t.Errorf("Expected queue to be drained, %d left", q.Len())
	}
}

func TestDialSinkInvalidAddress(t *testing.T) {
	if _, err := DialSink("not-an-address", ""); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}
