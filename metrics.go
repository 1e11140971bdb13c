package relay

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Transaction outcome label values
const (
	OutcomeComplete     = "complete"
	OutcomeTimeout      = "timeout"
	OutcomeEOF          = "eof"
	OutcomeWriteFailed  = "write_failed"
	OutcomeReadFailed   = "read_failed"
	OutcomeFrameTooLong = "frame_too_large"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	Transactions  *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	ResponseBytes *prometheus.CounterVec
	Envelopes     *prometheus.CounterVec
	Datagrams     *prometheus.CounterVec
	QueueDepth    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "serial_relay_transactions_total",
				Help: "Serial transactions by port and outcome",
			},
			[]string{"port", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "serial_relay_transaction_duration_seconds",
				Help:    "Time from command write to end of response",
				Buckets: []float64{.001, .0025, .005, .01, .025, .05, .075, .1, .25, .5, 1},
			},
			[]string{"port"},
		),
		ResponseBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "serial_relay_response_bytes_total",
				Help: "Response bytes captured per port",
			},
			[]string{"port"},
		),
		Envelopes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "serial_relay_envelopes_total",
				Help: "Envelopes queued or suppressed per port",
			},
			[]string{"port", "action"},
		),
		Datagrams: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "serial_relay_datagrams_total",
				Help: "Datagrams sent or failed",
			},
			[]string{"result"},
		),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "serial_relay_queue_depth",
			Help: "Envelopes waiting in the relay queue",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Transactions,
			m.Duration,
			m.ResponseBytes,
			m.Envelopes,
			m.Datagrams,
			m.QueueDepth,
		)
	}
	return m
}

func outcome(res Result) string {
	switch {
	case res.Complete:
		return OutcomeComplete
	case res.TimedOut():
		return OutcomeTimeout
	case errors.Is(res.Err, ErrWriteFailed):
		return OutcomeWriteFailed
	case errors.Is(res.Err, ErrReadFailed):
		return OutcomeReadFailed
	case errors.Is(res.Err, ErrFrameTooLarge):
		return OutcomeFrameTooLong
	default:
		return OutcomeEOF
	}
}

func (m *Metrics) observeTransaction(port string, res Result) {
	if m == nil {
		return
	}
	m.Transactions.WithLabelValues(port, outcome(res)).Inc()
	if errors.Is(res.Err, ErrWriteFailed) {
		return
	}
	m.Duration.WithLabelValues(port).Observe(res.Elapsed.Seconds())
	m.ResponseBytes.WithLabelValues(port).Add(float64(len(res.Data)))
}

func (m *Metrics) envelope(port, action string) {
	if m == nil {
		return
	}
	m.Envelopes.WithLabelValues(port, action).Inc()
}

func (m *Metrics) datagram(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.Datagrams.WithLabelValues("error").Inc()
		return
	}
	m.Datagrams.WithLabelValues("sent").Inc()
}

func (m *Metrics) queueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
