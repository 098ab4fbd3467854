package sse

import (
	"fmt"
	"log"
	"sync"
)

// Event represents a Server-Sent Event
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// Client represents a connected SSE client
type Client struct {
	ID     string
	UserID string
	Events chan Event
}

// Hub manages all SSE client connections
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// GlobalHub is the singleton SSE Hub instance
var GlobalHub = NewHub()

// NewHub creates a new SSE Hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a new client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	log.Printf("[SSE] Client registered: id=%s user=%s (total: %d)", client.ID, client.UserID, len(h.clients))
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		log.Printf("[SSE] Client unregistered: id=%s (total: %d)", clientID, len(h.clients))
	}
}

// Broadcast sends an event to all connected clients
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Events <- event:
		default:
			log.Printf("[SSE] Client %s buffer full, skipping event", client.ID)
		}
	}
}

// PublishStockLow 库存告警广播（可用量跌破补货线时通知前端刷新库存看板）
func PublishStockLow(partID, partCode string, available int) {
	data := fmt.Sprintf(`{"part_id":"%s","part_code":"%s","available":%d}`, partID, partCode, available)
	GlobalHub.Broadcast(Event{
		EventType: "stock_low",
		Data:      data,
	})
	log.Printf("[SSE] Published stock_low: part=%s available=%d", partCode, available)
}

// PublishNotificationNew 新通知广播（通知铃铛红点刷新）
func PublishNotificationNew(notificationID string) {
	data := fmt.Sprintf(`{"notification_id":"%s"}`, notificationID)
	GlobalHub.Broadcast(Event{
		EventType: "notification_new",
		Data:      data,
	})
}

// PublishPOUpdate 采购单变更广播（创建、提交、审批、驳回、收货）
func PublishPOUpdate(poID, action string) {
	data := fmt.Sprintf(`{"po_id":"%s","action":"%s"}`, poID, action)
	GlobalHub.Broadcast(Event{
		EventType: "po_update",
		Data:      data,
	})
	log.Printf("[SSE] Published po_update: po=%s action=%s", poID, action)
}

// Publisher adapts the package-level publish helpers to an injectable
// collaborator, so services stay testable without a live hub.
type Publisher struct{}

func (Publisher) PublishStockLow(partID, partCode string, available int) {
	PublishStockLow(partID, partCode, available)
}

func (Publisher) PublishNotificationNew(notificationID string) {
	PublishNotificationNew(notificationID)
}

func (Publisher) PublishPOUpdate(poID, action string) {
	PublishPOUpdate(poID, action)
}
