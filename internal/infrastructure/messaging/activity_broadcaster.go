// Package messaging pushes live pipeline activity to connected staff
// dashboard clients over websockets.
package messaging

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// ActivityClient represents a single connected staff dashboard client.
type ActivityClient struct {
	Conn     *websocket.Conn
	TenantID string
	Send     chan []byte
}

// ActivityEvent is one pipeline occurrence pushed to dashboards:
// a stored batch, a sweep cycle, a dispatched warm lead, a submission.
type ActivityEvent struct {
	Type          string         `json:"type"`
	TenantID      string         `json:"tenantId"`
	ApplicationID string         `json:"applicationId,omitempty"`
	Detail        map[string]any `json:"detail,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// Activity event types.
const (
	ActivityEventsStored   = "events_stored"
	ActivitySweepCompleted = "sweep_completed"
	ActivityWarmLeadSent   = "warm_lead_sent"
	ActivitySubmitted      = "application_submitted"
)

// ActivityBroadcaster manages all connected dashboard clients and fans
// activity events out per tenant.
type ActivityBroadcaster struct {
	tenantClients map[string]map[*ActivityClient]bool
	register      chan *ActivityClient
	unregister    chan *ActivityClient
	events        chan *ActivityEvent
	done          chan struct{}
}

// NewActivityBroadcaster creates a new broadcaster instance.
func NewActivityBroadcaster() *ActivityBroadcaster {
	return &ActivityBroadcaster{
		tenantClients: make(map[string]map[*ActivityClient]bool),
		register:      make(chan *ActivityClient),
		unregister:    make(chan *ActivityClient),
		events:        make(chan *ActivityEvent, 64),
		done:          make(chan struct{}),
	}
}

// Run starts the broadcaster's main loop. This should be run as a goroutine.
func (b *ActivityBroadcaster) Run() {
	for {
		select {
		case client := <-b.register:
			if _, ok := b.tenantClients[client.TenantID]; !ok {
				b.tenantClients[client.TenantID] = make(map[*ActivityClient]bool)
			}
			b.tenantClients[client.TenantID][client] = true
			log.Printf("Activity client registered for tenant: %s", client.TenantID)

		case client := <-b.unregister:
			if clients, ok := b.tenantClients[client.TenantID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(b.tenantClients, client.TenantID)
					}
				}
			}
			log.Printf("Activity client unregistered for tenant: %s", client.TenantID)

		case event := <-b.events:
			b.broadcast(event)

		case <-b.done:
			for _, clients := range b.tenantClients {
				for client := range clients {
					close(client.Send)
				}
			}
			b.tenantClients = make(map[string]map[*ActivityClient]bool)
			return
		}
	}
}

// Register queues a client for registration.
func (b *ActivityBroadcaster) Register(client *ActivityClient) {
	b.register <- client
}

// Unregister queues a client for unregistration.
func (b *ActivityBroadcaster) Unregister(client *ActivityClient) {
	b.unregister <- client
}

// Publish queues an activity event for broadcast. Never blocks the caller;
// events are dropped when the queue is full.
func (b *ActivityBroadcaster) Publish(event *ActivityEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case b.events <- event:
	default:
		log.Printf("Activity event dropped for tenant %s: queue full", event.TenantID)
	}
}

// Stop shuts down the broadcaster loop and disconnects all clients.
func (b *ActivityBroadcaster) Stop() {
	close(b.done)
}

// broadcast fans one event out to every client of its tenant.
func (b *ActivityBroadcaster) broadcast(event *ActivityEvent) {
	clients, ok := b.tenantClients[event.TenantID]
	if !ok || len(clients) == 0 {
		return
	}

	message, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling activity event for tenant %s: %v", event.TenantID, err)
		return
	}

	for client := range clients {
		select {
		case client.Send <- message:
		default:
			// Slow clients miss events rather than stalling the loop
		}
	}
}

// WritePump drains a client's send channel onto its websocket connection.
// This should be run as a goroutine per client.
func (c *ActivityClient) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
