package hub

import "github.com/atendohq/atendo/internal/gateway"

// GatewayBridge forwards gateway session state changes to all connected
// agents as realtime events.
type GatewayBridge struct {
	hub *Hub
}

// NewGatewayBridge wraps a hub as a gateway status sink.
func NewGatewayBridge(h *Hub) *GatewayBridge {
	return &GatewayBridge{hub: h}
}

// ConnectionStatus implements gateway.StatusSink.
func (b *GatewayBridge) ConnectionStatus(state gateway.State, detail string) {
	b.hub.BroadcastAll(ConnectionStatusEvent(string(state), detail))
}

// QRCode implements gateway.StatusSink.
func (b *GatewayBridge) QRCode(data string) {
	b.hub.BroadcastAll(QRCodeEvent(data))
}
