package handler

import (
	"Regalo/internal/api/dto"
	"Regalo/internal/pkg/response"
	"Regalo/internal/service"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService service.ChatService
}

func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// CreateConversation 创建会话接口 (单聊幂等去重)
func (s *ChatHandler) CreateConversation(c *gin.Context) {
	var req dto.CreateConversationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	// 从 Context 中获取中间件解析出的当前用户 ID
	creatorID := c.GetString("user_id")

	convID, err := s.chatService.CreateConversation(c, creatorID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.CreateConversationResp{ConversationID: convID})
}

// GetConversationList 获取会话列表 (带未读数与最近消息)
func (s *ChatHandler) GetConversationList(c *gin.Context) {
	userID := c.GetString("user_id")

	res, err := s.chatService.GetUserConversations(c, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetConversation 获取会话详情
func (s *ChatHandler) GetConversation(c *gin.Context) {
	userID := c.GetString("user_id")
	convID := c.Param("conversation_id")

	res, err := s.chatService.GetConversation(c, userID, convID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// SendMessage 发送消息接口
func (s *ChatHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	senderID := c.GetString("user_id")

	res, err := s.chatService.SendMessage(c, senderID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetMessages 分页拉取历史消息，最新的在前
func (s *ChatHandler) GetMessages(c *gin.Context) {
	userID := c.GetString("user_id")
	convID := c.Param("conversation_id")
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	startAfter := c.Query("start_after")

	res, err := s.chatService.GetConversationMessages(c, userID, convID, limit, startAfter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// MarkAsRead 标记单条已读接口
func (s *ChatHandler) MarkAsRead(c *gin.Context) {
	var req dto.MarkAsReadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	userID := c.GetString("user_id")

	if err := s.chatService.MarkMessageAsRead(c, userID, req.ConversationID, req.MessageID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// MarkAllAsRead 标记会话全部已读接口
func (s *ChatHandler) MarkAllAsRead(c *gin.Context) {
	userID := c.GetString("user_id")
	convID := c.Param("conversation_id")

	if err := s.chatService.MarkAllAsRead(c, userID, convID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// StreamFrame 订阅流下发的事件帧
type StreamFrame struct {
	Type string            `json:"type"`
	Data []*dto.MessageDTO `json:"data"`
}

// Subscribe 会话消息订阅接口 (SSE)。
// 每次消息集合变更，向客户端下发该会话按时间正序的完整消息集；
// 连接断开时同步退订。供无法保持双向长连接的客户端轮替使用。
func (s *ChatHandler) Subscribe(c *gin.Context) {
	userID := c.GetString("user_id")
	convID := c.Param("conversation_id")

	ch, cancel, err := s.chatService.SubscribeConversation(c.Request.Context(), userID, convID)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case msgs, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("", StreamFrame{Type: "messages", Data: msgs})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
