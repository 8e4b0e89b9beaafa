package websocket

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Message types understood by the hub.
const (
	TypeUserOnline        = "user_online"
	TypeUserOffline       = "user_offline"
	TypeJoinConversation  = "join_conversation"
	TypeLeaveConversation = "leave_conversation"
	TypeTyping            = "typing"
	TypeStopTyping        = "stop_typing"
	TypeError             = "error"
)

// Message is the JSON frame exchanged with clients.
type Message struct {
	Type           string                 `json:"type"`
	ConversationID string                 `json:"conversation_id,omitempty"`
	UserID         string                 `json:"user_id,omitempty"`
	Data           map[string]interface{} `json:"data,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
}

// HandlerFunc handles one inbound message type.
type HandlerFunc func(c *Client, msg *Message)

// JoinAuthorizer decides whether userID may join a conversation.
type JoinAuthorizer func(ctx context.Context, userID, conversationID string) bool

// Hub tracks connected clients and conversation rooms. It owns no domain state.
type Hub struct {
	clients       map[string]*Client
	conversations map[string]map[string]*Client
	handlers      map[string]HandlerFunc
	authorizeJoin JoinAuthorizer

	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan *Message

	mu       sync.RWMutex
	done     chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

// NewHub creates a hub with the presence and typing handlers installed.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		clients:       make(map[string]*Client),
		conversations: make(map[string]map[string]*Client),
		handlers:      make(map[string]HandlerFunc),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		Broadcast:     make(chan *Message, 256),
		done:          make(chan struct{}),
		logger:        logger,
	}

	h.RegisterHandler(TypeJoinConversation, h.handleJoin)
	h.RegisterHandler(TypeLeaveConversation, h.handleLeave)
	h.RegisterHandler(TypeTyping, h.relayToConversation)
	h.RegisterHandler(TypeStopTyping, h.relayToConversation)
	return h
}

// SetJoinAuthorizer installs a membership check for join_conversation.
func (h *Hub) SetJoinAuthorizer(fn JoinAuthorizer) {
	h.mu.Lock()
	h.authorizeJoin = fn
	h.mu.Unlock()
}

// Run processes registrations until ctx ends or Shutdown is called.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-h.done:
			h.closeAll()
			return
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case msg := <-h.Broadcast:
			h.SendToAll(msg)
		}
	}
}

// Shutdown stops Run and disconnects every client.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	previous, replaced := h.clients[client.ID]
	h.clients[client.ID] = client
	h.mu.Unlock()

	if replaced && previous != client {
		h.removeFromAllConversations(previous)
		previous.close()
	}

	h.logger.Info("client connected", zap.String("user_id", client.ID), zap.String("role", client.Role))
	if !replaced {
		h.broadcastExcept(client.ID, &Message{Type: TypeUserOnline, UserID: client.ID, Timestamp: time.Now().UTC()})
	}
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	current, ok := h.clients[client.ID]
	if ok && current == client {
		delete(h.clients, client.ID)
	}
	h.mu.Unlock()

	h.removeFromAllConversations(client)
	client.close()

	if ok && current == client {
		h.logger.Info("client disconnected", zap.String("user_id", client.ID))
		h.broadcastExcept(client.ID, &Message{Type: TypeUserOffline, UserID: client.ID, Timestamp: time.Now().UTC()})
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.conversations = make(map[string]map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// RegisterHandler installs fn for messages of msgType.
func (h *Hub) RegisterHandler(msgType string, fn HandlerFunc) {
	h.mu.Lock()
	h.handlers[msgType] = fn
	h.mu.Unlock()
}

// HandleMessage dispatches an inbound message from client.
func (h *Hub) HandleMessage(client *Client, msg *Message) {
	h.mu.RLock()
	fn, ok := h.handlers[msg.Type]
	h.mu.RUnlock()

	if !ok {
		client.SendMessage(&Message{
			Type:      TypeError,
			Data:      map[string]interface{}{"message": "unknown message type: " + msg.Type},
			Timestamp: time.Now().UTC(),
		})
		return
	}
	fn(client, msg)
}

func (h *Hub) handleJoin(client *Client, msg *Message) {
	if msg.ConversationID == "" {
		return
	}

	h.mu.RLock()
	authorize := h.authorizeJoin
	h.mu.RUnlock()

	if authorize != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		allowed := authorize(ctx, client.ID, msg.ConversationID)
		cancel()
		if !allowed {
			client.SendMessage(&Message{
				Type:           TypeError,
				ConversationID: msg.ConversationID,
				Data:           map[string]interface{}{"message": "not a participant of this conversation"},
				Timestamp:      time.Now().UTC(),
			})
			return
		}
	}
	h.AddClientToConversation(client.ID, msg.ConversationID)
}

func (h *Hub) handleLeave(client *Client, msg *Message) {
	h.RemoveClientFromConversation(client.ID, msg.ConversationID)
}

// relayToConversation forwards typing indicators to the other participants.
func (h *Hub) relayToConversation(client *Client, msg *Message) {
	if msg.ConversationID == "" || !client.InConversation(msg.ConversationID) {
		return
	}
	h.SendToConversationExcept(msg.ConversationID, client.ID, &Message{
		Type:           msg.Type,
		ConversationID: msg.ConversationID,
		UserID:         client.ID,
		Timestamp:      time.Now().UTC(),
	})
}

// AddClientToConversation joins userID to a conversation room.
func (h *Hub) AddClientToConversation(userID, conversationID string) {
	h.mu.Lock()
	client, ok := h.clients[userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	room, exists := h.conversations[conversationID]
	if !exists {
		room = make(map[string]*Client)
		h.conversations[conversationID] = room
	}
	room[userID] = client
	h.mu.Unlock()

	client.joined(conversationID)
}

// RemoveClientFromConversation removes userID from a room, dropping empty rooms.
func (h *Hub) RemoveClientFromConversation(userID, conversationID string) {
	h.mu.Lock()
	var client *Client
	if room, ok := h.conversations[conversationID]; ok {
		client = room[userID]
		delete(room, userID)
		if len(room) == 0 {
			delete(h.conversations, conversationID)
		}
	}
	h.mu.Unlock()

	if client != nil {
		client.left(conversationID)
	}
}

func (h *Hub) removeFromAllConversations(client *Client) {
	for _, id := range client.Conversations() {
		h.mu.Lock()
		if room, ok := h.conversations[id]; ok && room[client.ID] == client {
			delete(room, client.ID)
			if len(room) == 0 {
				delete(h.conversations, id)
			}
		}
		h.mu.Unlock()
		client.left(id)
	}
}

// SendToUser delivers msg to one user if connected.
func (h *Hub) SendToUser(userID string, msg *Message) bool {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	client.SendMessage(msg)
	return true
}

// SendToConversation delivers msg to every participant of a conversation.
func (h *Hub) SendToConversation(conversationID string, msg *Message) {
	h.SendToConversationExcept(conversationID, "", msg)
}

// SendToConversationExcept delivers msg to every participant except skipID.
func (h *Hub) SendToConversationExcept(conversationID, skipID string, msg *Message) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.conversations[conversationID]))
	for id, c := range h.conversations[conversationID] {
		if id != skipID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.SendMessage(msg)
	}
}

// SendToAll delivers msg to every connected client.
func (h *Hub) SendToAll(msg *Message) {
	h.broadcastExcept("", msg)
}

func (h *Hub) broadcastExcept(skipID string, msg *Message) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for id, c := range h.clients {
		if id != skipID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.SendMessage(msg)
	}
}

// GetClient returns the connected client for userID.
func (h *Hub) GetClient(userID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[userID]
	return c, ok
}

// IsOnline reports whether userID has a live connection.
func (h *Hub) IsOnline(userID string) bool {
	_, ok := h.GetClient(userID)
	return ok
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetConversationCount returns the number of non-empty rooms.
func (h *Hub) GetConversationCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conversations)
}

// GetClientsInConversation returns the participants currently in a room.
func (h *Hub) GetClientsInConversation(conversationID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.conversations[conversationID]))
	for _, c := range h.conversations[conversationID] {
		out = append(out, c)
	}
	return out
}
