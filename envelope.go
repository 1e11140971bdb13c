package relay

import (
	"encoding/base64"
	"encoding/json"
)

// Envelope is the wire record for one transaction
type Envelope struct {
	Port           string `json:"port"`
	Command        byte   `json:"command"`
	Data           string `json:"data"` // Standard padded base64
	DurationMicros int64  `json:"duration_microseconds"`
	Complete       bool   `json:"complete"`
}

// NewEnvelope packages a transaction result for the given port
func NewEnvelope(port string, res Result) Envelope {
	return Envelope{
		Port:           port,
		Command:        res.Command,
		Data:           base64.StdEncoding.EncodeToString(res.Data),
		DurationMicros: res.Elapsed.Microseconds(),
		Complete:       res.Complete,
	}
}

// Payload decodes the captured bytes
func (e Envelope) Payload() ([]byte, error) {
	return base64.StdEncoding.DecodeString(e.Data)
}

// Marshal encodes the envelope as one datagram body
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
