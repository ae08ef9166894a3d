package service

import (
	"Regalo/internal/api/dto"
	"Regalo/internal/pkg/mongo"
	"context"
	goerrors "errors"
	log "log/slog"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	mongoDriver "go.mongodb.org/mongo-driver/mongo"
)

// ChatService 会话与消息服务接口定义
type ChatService interface {
	CreateConversation(ctx context.Context, creatorID string, req *dto.CreateConversationReq) (string, error)
	GetConversation(ctx context.Context, userID, convID string) (*dto.ConversationDTO, error)
	GetUserConversations(ctx context.Context, userID string) ([]*dto.ConversationSummaryDTO, error)

	SendMessage(ctx context.Context, senderID string, req *dto.SendMessageReq) (*dto.MessageDTO, error)
	GetConversationMessages(ctx context.Context, userID, convID string, limit int64, startAfter string) ([]*dto.MessageDTO, error)
	MarkMessageAsRead(ctx context.Context, userID, convID, msgID string) error
	MarkAllAsRead(ctx context.Context, userID, convID string) error

	CheckAccess(ctx context.Context, userID, convID string) error
	SubscribeConversation(ctx context.Context, userID, convID string) (<-chan []*dto.MessageDTO, func(), error)

	Close()
}

type chatServiceImpl struct {
	store       mongo.Watcher
	convRepo    mongo.ConversationRepo
	messageRepo mongo.MessageRepo

	touchChan chan convTouch
	wg        sync.WaitGroup
	stopChan  chan struct{}
}

// convTouch 待补偿的会话时间戳推进任务
type convTouch struct {
	convID string
	at     time.Time
}

// NewChatService 构造函数：初始化服务并启动异步校准工作池
func NewChatService(store mongo.Watcher, convRepo mongo.ConversationRepo, messageRepo mongo.MessageRepo) ChatService {
	s := &chatServiceImpl{
		store:       store,
		convRepo:    convRepo,
		messageRepo: messageRepo,
		touchChan:   make(chan convTouch, 1024),
		stopChan:    make(chan struct{}),
	}

	workerCount := 3
	s.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go s.calibrationWorker()
	}

	return s
}

// CreateConversation 创建会话。
// 单聊要求恰好 2 名成员，且同一对用户重复创建时返回已存在的会话 ID；
// 群聊由创建者担任管理员。
func (s *chatServiceImpl) CreateConversation(ctx context.Context, creatorID string, req *dto.CreateConversationReq) (string, error) {
	participants := dedupeParticipants(creatorID, req.Participants)

	if req.Type == mongo.ConversationDirect {
		if len(participants) != 2 {
			return "", ErrInvalidParticipantCount
		}

		// 去重查询：同一对用户的单聊只存在一个
		existing, err := s.convRepo.FindDirect(ctx, participants[0], participants[1])
		if err != nil {
			return "", err
		}
		if existing != nil {
			return existing.ID.Hex(), nil
		}
	}

	now := time.Now().UTC()
	details := make([]mongo.ParticipantDetail, 0, len(participants))
	for _, p := range participants {
		role := mongo.RoleMember
		if req.Type == mongo.ConversationGroup && p == creatorID {
			role = mongo.RoleAdmin
		}
		details = append(details, mongo.ParticipantDetail{
			UserID:   p,
			Role:     role,
			JoinedAt: now,
		})
	}

	conv := &mongo.Conversation{
		Type:               req.Type,
		Participants:       participants,
		ParticipantDetails: details,
		LastMessageAt:      now,
		IsActive:           true,
	}
	if req.Type == mongo.ConversationGroup {
		conv.Name = req.Name
		conv.Description = req.Description
		conv.AdminID = creatorID
	}

	return s.convRepo.Create(ctx, conv)
}

// GetConversation 获取会话详情，仅成员可见
func (s *chatServiceImpl) GetConversation(ctx context.Context, userID, convID string) (*dto.ConversationDTO, error) {
	conv, err := s.loadConversation(ctx, convID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrAccessDenied
	}
	return s.toConversationDTO(conv), nil
}

// GetUserConversations 获取会话列表：按最近消息时间倒序，
// 为每个会话补全查看者视角的未读数与最近一条消息。
func (s *chatServiceImpl) GetUserConversations(ctx context.Context, userID string) ([]*dto.ConversationSummaryDTO, error) {
	convs, err := s.convRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ConversationSummaryDTO, 0, len(convs))
	for _, conv := range convs {
		convID := conv.ID.Hex()

		unread, err := s.messageRepo.CountUnread(ctx, convID, userID)
		if err != nil {
			return nil, err
		}

		last, err := s.messageRepo.Latest(ctx, convID)
		if err != nil {
			return nil, err
		}

		summary := &dto.ConversationSummaryDTO{
			ID:            convID,
			Type:          conv.Type,
			Name:          conv.Name,
			UnreadCount:   unread,
			LastMessageAt: conv.LastMessageAt,
		}
		_ = copier.Copy(&summary.ParticipantDetails, conv.ParticipantDetails)
		if last != nil {
			summary.LastMessage = s.toMessageDTO(last)
		}

		res = append(res, summary)
	}
	return res, nil
}

// SendMessage 发送消息。
// 会话不存在与发送者不是成员返回同一个错误，不向外泄露是哪一种。
func (s *chatServiceImpl) SendMessage(ctx context.Context, senderID string, req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	msgType := req.MessageType
	if msgType == "" {
		msgType = mongo.MessageText
	}
	if err := validateMessagePayload(msgType, req.Content, req.Metadata); err != nil {
		return nil, err
	}

	conv, err := s.convRepo.GetByID(ctx, req.ConversationID)
	if goerrors.Is(err, mongo.ErrNotFound) {
		return nil, ErrConversationAccess
	}
	if err != nil {
		// 存储故障原样上抛，不伪装成权限错误
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		return nil, ErrConversationAccess
	}

	msg := &mongo.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		MessageType:    msgType,
		Content:        req.Content,
		Metadata:       req.Metadata,
		ReadBy:         []string{senderID}, // 发送者默认已读自己的消息
	}

	if _, err := s.messageRepo.Insert(ctx, msg); err != nil {
		return nil, err
	}

	// 推进会话排序时间戳。与消息写入不在同一事务中，
	// 失败时交由校准工作池补偿，不影响本次发送的结果。
	if err := s.convRepo.TouchLastMessage(ctx, req.ConversationID, msg.CreatedAt); err != nil {
		log.ErrorContext(ctx, "Failed to bump conversation timestamp, queued for retry",
			"conversation_id", req.ConversationID, "err", err)
		select {
		case s.touchChan <- convTouch{convID: req.ConversationID, at: msg.CreatedAt}:
		default:
		}
	}

	return s.toMessageDTO(msg), nil
}

// GetConversationMessages 分页拉取历史消息，最新的在前
func (s *chatServiceImpl) GetConversationMessages(ctx context.Context, userID, convID string, limit int64, startAfter string) ([]*dto.MessageDTO, error) {
	if err := s.CheckAccess(ctx, userID, convID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	models, err := s.messageRepo.ListByConversation(ctx, convID, limit, startAfter)
	if goerrors.Is(err, mongo.ErrNotFound) {
		// startAfter 指向的游标消息不存在
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}

	res := make([]*dto.MessageDTO, 0, len(models))
	for _, m := range models {
		res = append(res, s.toMessageDTO(m))
	}
	return res, nil
}

// MarkMessageAsRead 标记单条已读。幂等：重复标记不产生写入。
func (s *chatServiceImpl) MarkMessageAsRead(ctx context.Context, userID, convID, msgID string) error {
	if err := s.CheckAccess(ctx, userID, convID); err != nil {
		return err
	}

	err := s.messageRepo.MarkRead(ctx, convID, msgID, userID)
	if goerrors.Is(err, mongo.ErrNotFound) {
		// 消息不存在或不属于该会话
		return ErrMessageNotFound
	}
	return err
}

// MarkAllAsRead 将会话中当前用户的所有未读消息置为已读
func (s *chatServiceImpl) MarkAllAsRead(ctx context.Context, userID, convID string) error {
	if err := s.CheckAccess(ctx, userID, convID); err != nil {
		return err
	}

	n, err := s.messageRepo.MarkAllRead(ctx, convID, userID)
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "Marked conversation as read", "conversation_id", convID, "count", n)
	return nil
}

// CheckAccess 校验用户是否为会话成员
func (s *chatServiceImpl) CheckAccess(ctx context.Context, userID, convID string) error {
	conv, err := s.loadConversation(ctx, convID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return ErrAccessDenied
	}
	return nil
}

// SubscribeConversation 订阅会话的消息变更。
// 每次消息集合发生变化，重查该会话按时间正序的完整消息集并推入通道；
// 通道容量为 1，堆积时只保留最新一版快照。
// 返回的取消函数是同步的：调用返回后监听协程已退出，通道已关闭。
func (s *chatServiceImpl) SubscribeConversation(ctx context.Context, userID, convID string) (<-chan []*dto.MessageDTO, func(), error) {
	if err := s.CheckAccess(ctx, userID, convID); err != nil {
		return nil, nil, err
	}

	ch := make(chan []*dto.MessageDTO, 1)

	emit := func() {
		models, err := s.messageRepo.ListAscending(ctx, convID)
		if err != nil {
			log.ErrorContext(ctx, "Conversation feed requery failed", "conversation_id", convID, "err", err)
			return
		}
		snapshot := make([]*dto.MessageDTO, 0, len(models))
		for _, m := range models {
			snapshot = append(snapshot, s.toMessageDTO(m))
		}
		// 丢弃未被消费的旧快照
		select {
		case <-ch:
		default:
		}
		ch <- snapshot
	}

	// 首帧：当前完整消息集。必须先于监听启动，
	// 否则变更回调会与这里的投递并发竞争同一个通道。
	emit()

	// 监听整个消息集合，回调中按会话重查与过滤。
	// 回调由监听协程串行触发，emit 不会并发执行。
	unsub, err := s.store.WatchCollection(ctx, mongo.MessageCollection, mongoDriver.Pipeline{}, emit, func(err error) {
		log.ErrorContext(ctx, "Conversation feed watch failed", "conversation_id", convID, "err", err)
	})
	if err != nil {
		return nil, nil, err
	}

	cancel := func() {
		unsub()
		close(ch)
	}
	return ch, cancel, nil
}

func (s *chatServiceImpl) Close() {
	close(s.stopChan)
	s.wg.Wait()
	log.Info("ChatService shut down gracefully")
}

// calibrationWorker 补偿因瞬时故障未完成的会话时间戳推进
func (s *chatServiceImpl) calibrationWorker() {
	defer s.wg.Done()
	for {
		select {
		case task := <-s.touchChan:
			backoff := time.Second
			for i := 0; i < 3; i++ {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := s.convRepo.TouchLastMessage(ctx, task.convID, task.at)
				cancel()
				if err == nil {
					break
				}
				time.Sleep(backoff)
				backoff *= 2
			}
		case <-s.stopChan:
			return
		}
	}
}

// loadConversation 读取会话并把存储层未命中翻译成业务错误
func (s *chatServiceImpl) loadConversation(ctx context.Context, convID string) (*mongo.Conversation, error) {
	conv, err := s.convRepo.GetByID(ctx, convID)
	if goerrors.Is(err, mongo.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// validateMessagePayload 按消息类型校验内容与附加属性
func validateMessagePayload(msgType, content string, metadata map[string]any) error {
	switch msgType {
	case mongo.MessageText, mongo.MessageSystem:
		if content == "" {
			return ErrParamInvalid
		}
	case mongo.MessageImage, mongo.MessageFile:
		url, ok := metadata["url"].(string)
		if !ok || url == "" {
			return ErrParamInvalid
		}
	default:
		return ErrParamInvalid
	}
	return nil
}

// dedupeParticipants 成员集合去重，创建者缺席时补入
func dedupeParticipants(creatorID string, participants []string) []string {
	seen := make(map[string]struct{}, len(participants)+1)
	res := make([]string, 0, len(participants)+1)
	for _, p := range append([]string{creatorID}, participants...) {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		res = append(res, p)
	}
	return res
}

func (s *chatServiceImpl) toMessageDTO(m *mongo.Message) *dto.MessageDTO {
	return &dto.MessageDTO{
		ID:             m.ID.Hex(),
		ConversationID: m.ConversationID.Hex(),
		SenderID:       m.SenderID,
		MessageType:    m.MessageType,
		Content:        m.Content,
		Metadata:       m.Metadata,
		ReadBy:         m.ReadBy,
		CreatedAt:      m.CreatedAt,
	}
}

func (s *chatServiceImpl) toConversationDTO(conv *mongo.Conversation) *dto.ConversationDTO {
	d := &dto.ConversationDTO{}
	_ = copier.Copy(d, conv)
	d.ID = conv.ID.Hex()
	return d
}
