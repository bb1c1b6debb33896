package ws

import (
	"sync"

	"github.com/driftchat/drift/utils/consistenthash"
)

// Hub tracks live subscriber connections and delivers fanout events to
// them. Rooms are keyed by channel id; the per-user index serves
// user-scoped topics (DM-opened).
type Hub struct {
	clients map[*Client]bool
	rooms   map[uint]map[*Client]bool
	users   map[uint]map[*Client]bool

	mu sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *delivery

	// ring pins topics to gateway nodes in a multi-node deployment; a nil
	// ring means this node handles everything.
	ring   *consistenthash.Ring
	nodeID string
}

type delivery struct {
	channelID uint // zero when user-targeted
	userID    uint
	payload   []byte
}

func NewHub(ring *consistenthash.Ring, nodeID string) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[uint]map[*Client]bool),
		users:      make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *delivery, 256),
		ring:       ring,
		nodeID:     nodeID,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			for _, channelID := range client.channelIDs {
				if _, ok := h.rooms[channelID]; !ok {
					h.rooms[channelID] = make(map[*Client]bool)
				}
				h.rooms[channelID][client] = true
			}
			if _, ok := h.users[client.userID]; !ok {
				h.users[client.userID] = make(map[*Client]bool)
			}
			h.users[client.userID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				for _, channelID := range client.channelIDs {
					if room, ok := h.rooms[channelID]; ok {
						delete(room, client)
						if len(room) == 0 {
							delete(h.rooms, channelID)
						}
					}
				}
				if conns, ok := h.users[client.userID]; ok {
					delete(conns, client)
					if len(conns) == 0 {
						delete(h.users, client.userID)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			var targets map[*Client]bool
			if msg.channelID != 0 {
				targets = h.rooms[msg.channelID]
			} else {
				targets = h.users[msg.userID]
			}
			for client := range targets {
				select {
				case client.send <- msg.payload:
				default:
					// Send buffer full; drop the connection and let the
					// client's pumps unregister it.
					go client.conn.Close()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastToChannel delivers a payload to every subscriber of a channel.
func (h *Hub) BroadcastToChannel(channelID uint, payload []byte) {
	h.broadcast <- &delivery{channelID: channelID, payload: payload}
}

// SendToUser delivers a payload to every connection of one user.
func (h *Hub) SendToUser(userID uint, payload []byte) {
	h.broadcast <- &delivery{userID: userID, payload: payload}
}

// OwnsTopic reports whether this gateway node is responsible for delivering
// the given topic.
func (h *Hub) OwnsTopic(topic string) bool {
	if h.ring == nil || h.ring.Size() == 0 {
		return true
	}
	return h.ring.Get(topic) == h.nodeID
}
