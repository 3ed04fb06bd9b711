package websocket

import (
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

type Client struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
}

// Envelope is a payload addressed to a set of users.
type Envelope struct {
	UserIDs []uuid.UUID
	Payload interface{}
}

var (
	clients    = make(map[uuid.UUID]map[*websocket.Conn]struct{})
	clientsMu  sync.RWMutex
	Register   = make(chan *Client)
	Unregister = make(chan *Client)
	Broadcast  = make(chan Envelope, 64)
)

func init() {
	go RunHub()
}

func RunHub() {
	for {
		select {
		case client := <-Register:
			clientsMu.Lock()
			if clients[client.UserID] == nil {
				clients[client.UserID] = make(map[*websocket.Conn]struct{})
			}
			clients[client.UserID][client.Conn] = struct{}{}
			clientsMu.Unlock()
			log.Printf("Client registered: %s", client.UserID)
		case client := <-Unregister:
			remove(client.UserID, client.Conn)
			log.Printf("Client unregistered: %s", client.UserID)
		case env := <-Broadcast:
			deliver(env)
		}
	}
}

func remove(userID uuid.UUID, conn *websocket.Conn) {
	clientsMu.Lock()
	defer clientsMu.Unlock()
	if conns, ok := clients[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(clients, userID)
		}
	}
}

func deliver(env Envelope) {
	var failed []*Client

	clientsMu.RLock()
	for _, userID := range env.UserIDs {
		for conn := range clients[userID] {
			if err := conn.WriteJSON(env.Payload); err != nil {
				log.Printf("Error sending notification to client %s: %v", userID, err)
				failed = append(failed, &Client{UserID: userID, Conn: conn})
			}
		}
	}
	clientsMu.RUnlock()

	for _, c := range failed {
		c.Conn.Close()
		remove(c.UserID, c.Conn)
	}
}

// Push queues payload for every open connection of the given users. It never blocks the caller.
func Push(payload interface{}, userIDs ...uuid.UUID) {
	select {
	case Broadcast <- Envelope{UserIDs: userIDs, Payload: payload}:
	default:
		log.Println("⚠️ Notification hub is busy, dropping in-app push")
	}
}

// Connected reports whether the user has at least one open connection.
func Connected(userID uuid.UUID) bool {
	clientsMu.RLock()
	defer clientsMu.RUnlock()
	return len(clients[userID]) > 0
}

// Serve keeps a registered connection open until the client goes away.
func Serve(c *websocket.Conn, userID uuid.UUID) {
	client := &Client{UserID: userID, Conn: c}
	Register <- client
	defer func() { Unregister <- client }()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
