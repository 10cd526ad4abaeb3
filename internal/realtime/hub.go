// Package realtime pushes board events to websocket listeners.
package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Event types published by the services.
const (
	EventTaskCreated       = "task.created"
	EventTaskUpdated       = "task.updated"
	EventTaskDeleted       = "task.deleted"
	EventTaskStatusChanged = "task.status_changed"
	EventTaskRolledBack    = "task.rolled_back"
	EventPointsChanged     = "points.changed"
	EventProposalCreated   = "proposal.created"
	EventProposalResolved  = "proposal.resolved"
	EventRedemptionCreated = "redemption.created"
	EventRedemptionUpdated = "redemption.resolved"
	EventMemberJoined      = "member.joined"
	EventMemberRemoved     = "member.removed"
)

// Event is the message format sent to listeners.
type Event struct {
	Type    string      `json:"type"`
	BoardID string      `json:"board_id"`
	Data    interface{} `json:"data"`
	At      time.Time   `json:"at"`
}

type boardMessage struct {
	boardID string
	payload []byte
}

// disconnectRequest drops listeners of a board. An empty user set drops all of them.
type disconnectRequest struct {
	boardID string
	userIDs map[string]struct{}
}

// Hub keeps per-board listener sets. A single goroutine (Run) owns the maps.
type Hub struct {
	boards     map[string]map[*Client]bool
	broadcast  chan boardMessage
	register   chan *Client
	unregister chan *Client
	disconnect chan disconnectRequest
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		boards:     make(map[string]map[*Client]bool),
		broadcast:  make(chan boardMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		disconnect: make(chan disconnectRequest),
		done:       make(chan struct{}),
	}
}

// Register adds a client to its board's listener set.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister detaches a client. It is safe to call more than once.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Disconnect closes the listeners the given users hold on a board. With no
// users it closes every listener of the board. It returns once the hub has
// dropped them, so no later event reaches those connections.
func (h *Hub) Disconnect(boardID string, userIDs ...string) {
	req := disconnectRequest{boardID: boardID, userIDs: make(map[string]struct{}, len(userIDs))}
	for _, id := range userIDs {
		req.userIDs[id] = struct{}{}
	}

	select {
	case h.disconnect <- req:
	case <-h.done:
	}
}

// Publish queues an event for every listener of the board. Events are dropped
// when the hub is stopped or its queue is full.
func (h *Hub) Publish(boardID, eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, BoardID: boardID, Data: data, At: time.Now().UTC()})
	if err != nil {
		log.Printf("Error marshalling %s event: %v", eventType, err)
		return
	}

	select {
	case h.broadcast <- boardMessage{boardID: boardID, payload: payload}:
	case <-h.done:
	default:
		log.Printf("Realtime queue full, dropping %s event for board %s", eventType, boardID)
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for _, clients := range h.boards {
			for client := range clients {
				close(client.send)
			}
		}
		h.boards = make(map[string]map[*Client]bool)
	}()

	for {
		select {
		case client := <-h.register:
			clients := h.boards[client.boardID]
			if clients == nil {
				clients = make(map[*Client]bool)
				h.boards[client.boardID] = clients
			}
			clients[client] = true
			log.Printf("Listener connected: user %s on board %s", client.userID, client.boardID)

		case client := <-h.unregister:
			h.remove(client)

		case req := <-h.disconnect:
			for client := range h.boards[req.boardID] {
				if _, ok := req.userIDs[client.userID]; ok || len(req.userIDs) == 0 {
					h.remove(client)
				}
			}

		case msg := <-h.broadcast:
			for client := range h.boards[msg.boardID] {
				select {
				case client.send <- msg.payload:
				default:
					log.Printf("Listener send buffer full, dropping user %s", client.userID)
					h.remove(client)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.boards[client.boardID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.boards, client.boardID)
	}
	log.Printf("Listener disconnected: user %s on board %s", client.userID, client.boardID)
}
