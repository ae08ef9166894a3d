package hub

import (
	log "log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub 进程内在线状态注册表：用户 → 连接集合，会话房间 → 连接集合。
// 广播是进程本地的；跨实例部署需要把这层换成共享实现。
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[*Client]struct{}
	rooms map[string]map[*Client]struct{}
	// 连接已加入的房间，断开时据此清理
	joined map[*Client]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		users:  map[string]map[*Client]struct{}{},
		rooms:  map[string]map[*Client]struct{}{},
		joined: map[*Client]map[string]struct{}{},
	}
}

// AddClient 登记一条已认证连接
func (h *Hub) AddClient(userID string, conn *websocket.Conn) *Client {
	c := newClient(userID, conn)

	h.mu.Lock()
	if h.users[userID] == nil {
		h.users[userID] = map[*Client]struct{}{}
	}
	h.users[userID][c] = struct{}{}
	h.joined[c] = map[string]struct{}{}
	h.mu.Unlock()

	return c
}

// RemoveClient 注销连接：离开全部房间，用户的连接集合清空时整体移除。
// 不产生任何消息或已读状态的副作用。
func (h *Hub) RemoveClient(c *Client) {
	close(c.done)

	h.mu.Lock()
	for room := range h.joined[c] {
		h.removeFromRoom(c, room)
	}
	delete(h.joined, c)

	if set, ok := h.users[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.users, c.UserID)
		}
	}
	h.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Join 将连接加入会话房间
func (h *Hub) Join(c *Client, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[conversationID] == nil {
		h.rooms[conversationID] = map[*Client]struct{}{}
	}
	h.rooms[conversationID][c] = struct{}{}

	if h.joined[c] != nil {
		h.joined[c][conversationID] = struct{}{}
	}
}

// Leave 将连接移出会话房间
func (h *Hub) Leave(c *Client, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoom(c, conversationID)
	if h.joined[c] != nil {
		delete(h.joined[c], conversationID)
	}
}

// BroadcastRoom 向房间内全部连接投递事件，except 不为空时跳过来源连接
func (h *Hub) BroadcastRoom(conversationID string, ev Event, except *Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[conversationID] {
		if c == except {
			continue
		}
		h.deliver(c, ev)
	}
}

// SendTo 向单条连接投递事件
func (h *Hub) SendTo(c *Client, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.deliver(c, ev)
}

// ConnectionsFor 获取用户当前的全部连接
func (h *Hub) ConnectionsFor(userID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	res := make([]*Client, 0, len(h.users[userID]))
	for c := range h.users[userID] {
		res = append(res, c)
	}
	return res
}

// MembersOf 获取房间内的全部连接
func (h *Hub) MembersOf(conversationID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	res := make([]*Client, 0, len(h.rooms[conversationID]))
	for c := range h.rooms[conversationID] {
		res = append(res, c)
	}
	return res
}

// deliver 非阻塞投递：发送队列满时丢弃并记录
func (h *Hub) deliver(c *Client, ev Event) {
	select {
	case c.send <- ev:
	default:
		log.Warn("WS send queue full, event dropped", "userID", c.UserID, "type", ev.Type)
	}
}

// removeFromRoom 调用方必须持有写锁
func (h *Hub) removeFromRoom(c *Client, conversationID string) {
	if set, ok := h.rooms[conversationID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}
