package websocket

// Publisher adapts the hub to the event fan-out the services expect. Topics
// map onto wire messages as {"type": topic, "data": payload}; manager-facing
// topics go to every connected manager, guard topics to one device.
type Publisher struct {
	hub *Hub
}

func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{hub: hub}
}

// Emit broadcasts a topic to all connected managers
func (p *Publisher) Emit(topic string, payload interface{}) {
	p.hub.BroadcastToRole("manager", map[string]interface{}{
		"type": topic,
		"data": payload,
	})
}

// EmitToGuard sends a topic to one guard's device, if connected
func (p *Publisher) EmitToGuard(guardID, topic string, payload interface{}) {
	p.hub.BroadcastToUser(guardID, map[string]interface{}{
		"type": topic,
		"data": payload,
	})
}
