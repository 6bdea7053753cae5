package orchestrator

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/macedonia-transparency/procurement-pipeline/internal/logging"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ProgressHub pushes EventTracker updates to a single active observer
// connection -- daemon mode's optional live-progress view, adapted
// from the teacher's single-active-connection websocket hub (there,
// one connected Burp/browser client watching live HTTP traffic; here,
// one connected dashboard watching live job progress). Every broadcast
// is first recorded into the tracker, and a newly connected observer
// is replayed the tracker's backlog before it starts receiving live
// events.
type ProgressHub struct {
	tracker    *EventTracker
	client     *hubClient
	broadcast  chan []byte
	register   chan *hubClient
	unregister chan *hubClient
	mu         sync.RWMutex
}

// NewProgressHub returns a hub with no active client, backed by
// tracker's bounded event history; call Run in its own goroutine before
// serving ServeWS.
func NewProgressHub(tracker *EventTracker) *ProgressHub {
	return &ProgressHub{
		tracker:    tracker,
		broadcast:  make(chan []byte, 256),
		register:   make(chan *hubClient),
		unregister: make(chan *hubClient),
	}
}

type hubClient struct {
	hub  *ProgressHub
	conn *websocket.Conn
	send chan []byte
}

// Run processes register/unregister/broadcast in a loop that never
// returns.
func (h *ProgressHub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.client != nil {
				close(h.client.send)
			}
			h.client = c
			h.mu.Unlock()
			log.Info("progress hub: observer connected")
			for _, e := range h.tracker.Recent() {
				if raw, err := json.Marshal(e); err == nil {
					select {
					case c.send <- raw:
					default:
					}
				}
			}

		case c := <-h.unregister:
			h.mu.Lock()
			if h.client == c {
				close(h.client.send)
				h.client = nil
				log.Info("progress hub: observer disconnected")
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			if h.client != nil {
				select {
				case h.client.send <- msg:
				default:
					log.Warn("progress hub: observer too slow, dropping connection")
					close(h.client.send)
					h.client = nil
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast records e in the tracker and sends it to the active
// observer, if any.
func (h *ProgressHub) Broadcast(e Event) {
	e = h.tracker.Record(e.Dataset, e.Kind, e.Detail)

	h.mu.RLock()
	hasClient := h.client != nil
	h.mu.RUnlock()
	if !hasClient {
		return
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	h.broadcast <- raw
}

// ServeWS upgrades the request to a websocket connection and registers
// it as the hub's sole observer.
func (h *ProgressHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithFields(logging.Fields{"error": err}).Error("progress hub: upgrade failed")
		return
	}
	c := &hubClient{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.register <- c
	go c.writePump()
	go c.readPump()
}

func (c *hubClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *hubClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
