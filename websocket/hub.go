package websocket

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types pushed to members
const (
	NotificationTypePlacement  = "placement"
	NotificationTypeCommission = "commission"
	NotificationTypePromotion  = "career_promotion"
	NotificationTypeWithdrawal = "withdrawal_update"
)

// Notification represents a message sent over WebSocket
type Notification struct {
	Type         string      `json:"type"`
	Message      string      `json:"message"`
	Data         interface{} `json:"data,omitempty"`
	UserID       string      `json:"userID,omitempty"`
	RequiresAuth bool        `json:"requiresAuth,omitempty"`
}

// Client represents a connected WebSocket client
type Client struct {
	UserID        primitive.ObjectID
	Conn          *websocket.Conn
	Authenticated bool
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	clients                map[primitive.ObjectID]*Client
	unauthenticatedClients map[*Client]bool
	register               chan *Client
	unregister             chan *Client
	mu                     sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:                make(map[primitive.ObjectID]*Client),
		unauthenticatedClients: make(map[*Client]bool),
		register:               make(chan *Client),
		unregister:             make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if client.Authenticated && client.UserID != primitive.NilObjectID {
				h.clients[client.UserID] = client
			} else {
				h.unauthenticatedClients[client] = true
			}
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if client.Authenticated && client.UserID != primitive.NilObjectID {
				if _, ok := h.clients[client.UserID]; ok {
					delete(h.clients, client.UserID)
				}
			} else {
				delete(h.unauthenticatedClients, client)
			}
			client.Conn.Close()
			h.mu.Unlock()
		}
	}
}

// SendToUser sends a message to a specific member
func (h *Hub) SendToUser(userID primitive.ObjectID, notification Notification) error {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user not connected")
	}
	return client.Conn.WriteJSON(notification)
}

// AuthenticateClient moves a client from unauthenticated to authenticated state
func (h *Hub) AuthenticateClient(client *Client, userID primitive.ObjectID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.unauthenticatedClients, client)
	client.Authenticated = true
	client.UserID = userID
	h.clients[userID] = client
	return nil
}

// NotifyPlacement tells the upline parent a new member landed in their leg
func (h *Hub) NotifyPlacement(parentID primitive.ObjectID, placementData interface{}) error {
	return h.SendToUser(parentID, Notification{
		Type:    NotificationTypePlacement,
		Message: "A new member joined your downline",
		Data:    placementData,
	})
}

// NotifyCommission tells a recipient their wallet was credited
func (h *Hub) NotifyCommission(memberID primitive.ObjectID, commissionData interface{}) error {
	return h.SendToUser(memberID, Notification{
		Type:    NotificationTypeCommission,
		Message: "Commission credited to your wallet",
		Data:    commissionData,
	})
}

// NotifyPromotion tells a member they reached a new career tier
func (h *Hub) NotifyPromotion(memberID primitive.ObjectID, levelData interface{}) error {
	return h.SendToUser(memberID, Notification{
		Type:    NotificationTypePromotion,
		Message: "Congratulations, you reached a new career level",
		Data:    levelData,
	})
}

// NotifyWithdrawal tells a member their withdrawal request changed status
func (h *Hub) NotifyWithdrawal(memberID primitive.ObjectID, withdrawalData interface{}) error {
	return h.SendToUser(memberID, Notification{
		Type:    NotificationTypeWithdrawal,
		Message: "Your withdrawal request has been updated",
		Data:    withdrawalData,
	})
}
