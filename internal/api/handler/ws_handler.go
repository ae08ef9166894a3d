package handler

import (
	"Regalo/internal/api/config"
	"Regalo/internal/api/dto"
	"Regalo/internal/pkg/hub"
	"Regalo/internal/pkg/response"
	"Regalo/internal/pkg/security"
	"Regalo/internal/service"
	"context"
	log "log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	maxMessageSize = 32 * 1024
	pongWait       = 60 * time.Second
)

type WsHandler struct {
	chatService service.ChatService
	hub         *hub.Hub
	upgrader    websocket.Upgrader
}

func NewWsHandler(chatService service.ChatService, h *hub.Hub) *WsHandler {
	allowed := config.Cfg.WS.AllowedOrigins

	return &WsHandler{
		chatService: chatService,
		hub:         h,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				for _, o := range allowed {
					if o == "*" || o == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

func (s *WsHandler) Connect(c *gin.Context) {
	// 鉴权：凭证缺失或无效时拒绝连接，不进入升级
	token := c.Query("token")
	if token == "" {
		response.Error(c, service.ErrTokenRequired)
		return
	}
	claims, err := security.ValidateToken(token)
	if err != nil {
		log.Warn("WS 鉴权失败", "err", err)
		response.Error(c, service.UnauthorizedError)
		return
	}
	userID := claims.UserID

	// 升级 Websocket
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}

	client := s.hub.AddClient(userID, conn)
	defer s.hub.RemoveClient(client)
	go client.WriteLoop()

	// 自动加入当前参与的全部会话房间。
	// 连接建立之后新创建的会话，需要客户端显式 join_conversation。
	list, err := s.chatService.GetUserConversations(context.Background(), userID)
	if err != nil {
		log.Error("获取会话列表失败", "userID", userID, "err", err)
		return
	}
	for _, conv := range list {
		s.hub.Join(client, conv.ID)
	}

	log.Info("用户 WS 连接已建立", "userID", userID, "rooms", len(list))

	// 读循环：处理客户端事件，连接断开时退出
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var ev hub.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.hub.SendTo(client, hub.NewEvent(hub.EventMessageError, hub.ErrorPayload{Error: service.ErrParamInvalid.Error()}))
			continue
		}
		s.dispatch(client, ev)
	}

	log.Info("用户 WS 连接已断开", "userID", userID)
}

// dispatch 处理单个客户端事件。
// 处理失败只回发给来源连接，成功才向房间广播。
func (s *WsHandler) dispatch(client *hub.Client, ev hub.Event) {
	ctx := context.Background()

	switch ev.Type {
	case hub.EventSendMessage:
		var p hub.SendMessagePayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			s.hub.SendTo(client, hub.NewEvent(hub.EventMessageError, hub.ErrorPayload{Error: service.ErrParamInvalid.Error()}))
			return
		}

		msg, err := s.chatService.SendMessage(ctx, client.UserID, &dto.SendMessageReq{
			ConversationID: p.ConversationID,
			Content:        p.Content,
			MessageType:    p.MessageType,
			Metadata:       p.Metadata,
		})
		if err != nil {
			s.hub.SendTo(client, hub.NewEvent(hub.EventMessageError, hub.ErrorPayload{Error: err.Error()}))
			return
		}

		// 广播给房间内全部连接，包括发送者自己的其它设备
		s.hub.BroadcastRoom(p.ConversationID, hub.NewEvent(hub.EventNewMessage, hub.NewMessagePayload{
			ConversationID: p.ConversationID,
			Message:        msg,
		}), nil)
		s.hub.BroadcastRoom(p.ConversationID, hub.NewEvent(hub.EventConversationUpdate, hub.ConversationUpdatePayload{
			ConversationID: p.ConversationID,
			LastMessage:    msg,
		}), nil)

	case hub.EventMarkAsRead:
		var p hub.MarkAsReadPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			s.hub.SendTo(client, hub.NewEvent(hub.EventReadError, hub.ErrorPayload{Error: service.ErrParamInvalid.Error()}))
			return
		}

		if err := s.chatService.MarkMessageAsRead(ctx, client.UserID, p.ConversationID, p.MessageID); err != nil {
			s.hub.SendTo(client, hub.NewEvent(hub.EventReadError, hub.ErrorPayload{Error: err.Error()}))
			return
		}

		// 来源连接已经知道结果，广播时排除
		s.hub.BroadcastRoom(p.ConversationID, hub.NewEvent(hub.EventMessageRead, hub.MessageReadPayload{
			ConversationID: p.ConversationID,
			MessageID:      p.MessageID,
			ReadBy:         client.UserID,
		}), client)

	case hub.EventJoinConversation:
		var p hub.RoomPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return
		}
		// 仅成员可进入房间
		if err := s.chatService.CheckAccess(ctx, client.UserID, p.ConversationID); err != nil {
			log.Warn("WS join rejected", "userID", client.UserID, "conversation_id", p.ConversationID, "err", err)
			return
		}
		s.hub.Join(client, p.ConversationID)

	case hub.EventLeaveConversation:
		var p hub.RoomPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return
		}
		s.hub.Leave(client, p.ConversationID)

	case hub.EventTypingStart, hub.EventTypingStop:
		var p hub.RoomPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return
		}
		// 输入状态只广播不落库
		s.hub.BroadcastRoom(p.ConversationID, hub.NewEvent(hub.EventUserTyping, hub.UserTypingPayload{
			ConversationID: p.ConversationID,
			UserID:         client.UserID,
			Typing:         ev.Type == hub.EventTypingStart,
		}), client)

	default:
		log.Warn("Unknown WS event", "userID", client.UserID, "type", ev.Type)
	}
}
