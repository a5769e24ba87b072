// Package gateway supervises the connection to the external messaging
// gateway process and relays outbound messages to it.
package gateway

import "errors"

// State is the gateway session's connection state.
type State string

const (
	// StateInitializing is the boot state before the first status poll lands.
	StateInitializing State = "initializing"
	// StateQRPending means the gateway is up but waits for a QR pairing scan.
	StateQRPending State = "qr_pending"
	// StateReady means the channel is paired and can deliver messages.
	StateReady State = "ready"
	// StateRetrying means the channel dropped and reconnection attempts are
	// running with backoff.
	StateRetrying State = "disconnected_retrying"
	// StateFailed means reconnection attempts were exhausted; only an explicit
	// reconnect request leaves this state.
	StateFailed State = "disconnected_failed"
)

var (
	// ErrChannelUnavailable is returned for sends while the channel is not ready.
	ErrChannelUnavailable = errors.New("channel unavailable")
	// ErrSendFailure is returned when the gateway rejected or failed a delivery.
	ErrSendFailure = errors.New("gateway send failed")
)

// Status is the wire status reported by the external gateway process.
type Status struct {
	Connected bool   `json:"connected"`
	Status    string `json:"status"`
	QRCode    string `json:"qr_code,omitempty"`
}

// SendRequest is one outbound message for the gateway. The wire names match
// the gateway's /send-message contract: `to` is the channel address, `text`
// the message body; the media fields ride along for attachment sends.
type SendRequest struct {
	Phone       string `json:"to"`
	Message     string `json:"text,omitempty"`
	MediaPath   string `json:"media_path,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	MessageType string `json:"message_type,omitempty"`
}

// StatusSink receives session state changes for fan-out to clients.
type StatusSink interface {
	// ConnectionStatus is called on every state transition.
	ConnectionStatus(state State, detail string)
	// QRCode is called when a fresh pairing code arrives.
	QRCode(data string)
}
