// Package ws adapts the teacher's per-market WebSocket hub to carry
// Profecia's live feed: snapshot ticks from C7 and match/cancel/
// resolution notifications from C4/C5, instead of CLOB order-book
// depth and trades.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Msg is the envelope every published event is wrapped in. Type is
// one of "match", "cancel", "resolved", or "snapshot" (§6 GET /ws).
type Msg struct {
	Type     string `json:"type"`
	MarketID string `json:"marketId"`
	Data     any    `json:"data"`
}

// Hub manages per-market WebSocket subscriptions.
type Hub struct {
	log     *zap.Logger
	mu      sync.RWMutex
	rooms   map[string]map[*conn]bool // marketID -> set of conns
	allConn map[*conn]bool
}

type conn struct {
	ws     *websocket.Conn
	send   chan []byte
	hub    *Hub
	market string
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:     log,
		rooms:   make(map[string]map[*conn]bool),
		allConn: make(map[*conn]bool),
	}
}

// Publish sends a message to all subscribers of a market.
func (h *Hub) Publish(marketID, msgType string, data any) {
	msg := Msg{Type: msgType, MarketID: marketID, Data: data}
	b, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("ws: marshal publish failed", zap.String("market_id", marketID), zap.Error(err))
		return
	}
	h.mu.RLock()
	room := h.rooms[marketID]
	h.mu.RUnlock()
	for c := range room {
		select {
		case c.send <- b:
		default:
			// slow client, drop
		}
	}
}

// HandleWS upgrades the connection and, when a marketId query param is
// present (GET /ws?marketId=...), subscribes it immediately — clients
// can still switch markets afterward with a {"action":"subscribe",...}
// message.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("ws: upgrade failed", zap.Error(err))
		return
	}
	c := &conn{
		ws:   wsConn,
		send: make(chan []byte, 64),
		hub:  h,
	}
	h.mu.Lock()
	h.allConn[c] = true
	h.mu.Unlock()

	if marketID := r.URL.Query().Get("marketId"); marketID != "" {
		h.subscribe(c, marketID)
	}

	go c.writePump()
	go c.readPump()
}

func (c *conn) readPump() {
	defer func() {
		c.hub.removeConn(c)
		c.ws.Close()
	}()
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			break
		}
		var sub struct {
			Action   string `json:"action"`
			MarketID string `json:"marketId"`
		}
		if err := json.Unmarshal(msg, &sub); err != nil {
			continue
		}
		switch sub.Action {
		case "subscribe":
			c.hub.subscribe(c, sub.MarketID)
		case "unsubscribe":
			c.hub.unsubscribe(c, sub.MarketID)
		}
	}
}

func (c *conn) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}

func (h *Hub) subscribe(c *conn, marketID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.market != "" {
		if room, ok := h.rooms[c.market]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, c.market)
			}
		}
	}
	c.market = marketID
	room, ok := h.rooms[marketID]
	if !ok {
		room = make(map[*conn]bool)
		h.rooms[marketID] = room
	}
	room[c] = true
}

func (h *Hub) unsubscribe(c *conn, marketID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[marketID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, marketID)
		}
	}
	if c.market == marketID {
		c.market = ""
	}
}

func (h *Hub) removeConn(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.allConn, c)
	if c.market != "" {
		if room, ok := h.rooms[c.market]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, c.market)
			}
		}
	}
	close(c.send)
}
