package service

import (
	"Regalo/internal/api/dto"
	"Regalo/internal/pkg/mongo"
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoDriver "go.mongodb.org/mongo-driver/mongo"
)

// fakeConvRepo 内存实现，语义与 Mongo 版保持一致
type fakeConvRepo struct {
	mu    sync.Mutex
	convs map[string]*mongo.Conversation

	touchErr error // 注入 TouchLastMessage 故障
	getErr   error // 注入 GetByID 故障
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{convs: make(map[string]*mongo.Conversation)}
}

func (f *fakeConvRepo) Create(_ context.Context, conv *mongo.Conversation) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv.SetID(primitive.NewObjectID())
	conv.Stamp(time.Now().UTC())
	f.convs[conv.ID.Hex()] = conv
	return conv.ID.Hex(), nil
}

func (f *fakeConvRepo) GetByID(_ context.Context, id string) (*mongo.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	conv, ok := f.convs[id]
	if !ok {
		return nil, mongo.ErrNotFound
	}
	return conv, nil
}

func (f *fakeConvRepo) FindDirect(_ context.Context, userA, userB string) (*mongo.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conv := range f.convs {
		if conv.Type == mongo.ConversationDirect && len(conv.Participants) == 2 &&
			conv.HasParticipant(userA) && conv.HasParticipant(userB) {
			return conv, nil
		}
	}
	return nil, nil
}

func (f *fakeConvRepo) ListByParticipant(_ context.Context, userID string) ([]*mongo.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []*mongo.Conversation
	for _, conv := range f.convs {
		if conv.HasParticipant(userID) {
			res = append(res, conv)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].LastMessageAt.After(res[j].LastMessageAt)
	})
	return res, nil
}

func (f *fakeConvRepo) TouchLastMessage(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.touchErr != nil {
		return f.touchErr
	}
	conv, ok := f.convs[id]
	if !ok {
		return mongo.ErrNotFound
	}
	conv.LastMessageAt = at
	conv.IsActive = true
	return nil
}

func (f *fakeConvRepo) DeactivateIdle(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, conv := range f.convs {
		if conv.IsActive && conv.LastMessageAt.Before(before) {
			conv.IsActive = false
			n++
		}
	}
	return n, nil
}

// fakeMessageRepo 内存实现。created_at 使用单调递增时钟，
// 避免同毫秒落库导致排序歧义。
type fakeMessageRepo struct {
	mu    sync.Mutex
	msgs  []*mongo.Message
	clock time.Time
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{clock: time.Now().UTC().Truncate(time.Millisecond)}
}

func (f *fakeMessageRepo) Insert(_ context.Context, msg *mongo.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Millisecond)
	msg.SetID(primitive.NewObjectID())
	msg.Stamp(f.clock)
	f.msgs = append(f.msgs, msg)
	return msg.ID.Hex(), nil
}

func (f *fakeMessageRepo) GetByID(_ context.Context, id string) (*mongo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID.Hex() == id {
			return m, nil
		}
	}
	return nil, mongo.ErrNotFound
}

func (f *fakeMessageRepo) inConversation(convID string) []*mongo.Message {
	var res []*mongo.Message
	for _, m := range f.msgs {
		if m.ConversationID.Hex() == convID {
			res = append(res, m)
		}
	}
	return res
}

func sortDesc(msgs []*mongo.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
		}
		return msgs[i].ID.Hex() > msgs[j].ID.Hex()
	})
}

func (f *fakeMessageRepo) ListByConversation(ctx context.Context, convID string, limit int64, startAfter string) ([]*mongo.Message, error) {
	var cursor *mongo.Message
	if startAfter != "" {
		var err error
		cursor, err = f.GetByID(ctx, startAfter)
		if err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.inConversation(convID)
	sortDesc(all)

	var res []*mongo.Message
	for _, m := range all {
		if cursor != nil {
			older := m.CreatedAt.Before(cursor.CreatedAt) ||
				(m.CreatedAt.Equal(cursor.CreatedAt) && m.ID.Hex() < cursor.ID.Hex())
			if !older {
				continue
			}
		}
		res = append(res, m)
		if int64(len(res)) == limit {
			break
		}
	}
	return res, nil
}

func (f *fakeMessageRepo) ListAscending(_ context.Context, convID string) ([]*mongo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := f.inConversation(convID)
	sortDesc(res)
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res, nil
}

func (f *fakeMessageRepo) Latest(_ context.Context, convID string) (*mongo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.inConversation(convID)
	if len(all) == 0 {
		return nil, nil
	}
	sortDesc(all)
	return all[0], nil
}

func (f *fakeMessageRepo) CountUnread(_ context.Context, convID, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.inConversation(convID) {
		if !m.ReadByUser(userID) {
			n++
		}
	}
	return n, nil
}

func (f *fakeMessageRepo) MarkRead(_ context.Context, convID, msgID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID.Hex() == msgID && m.ConversationID.Hex() == convID {
			if !m.ReadByUser(userID) {
				m.ReadBy = append(m.ReadBy, userID)
			}
			return nil
		}
	}
	return mongo.ErrNotFound
}

func (f *fakeMessageRepo) MarkAllRead(_ context.Context, convID, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.inConversation(convID) {
		if !m.ReadByUser(userID) {
			m.ReadBy = append(m.ReadBy, userID)
			n++
		}
	}
	return n, nil
}

// fakeWatcher 捕获变更回调，测试中手动触发
type fakeWatcher struct {
	mu           sync.Mutex
	onChange     func()
	unsubscribed bool
}

func (f *fakeWatcher) WatchCollection(_ context.Context, _ string, _ mongoDriver.Pipeline, onChange func(), _ func(error)) (mongo.Unsubscribe, error) {
	f.mu.Lock()
	f.onChange = onChange
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.unsubscribed = true
		f.mu.Unlock()
	}, nil
}

// fire 模拟集合变更事件。与生产实现一致，回调串行执行。
func (f *fakeWatcher) fire() {
	f.mu.Lock()
	cb := f.onChange
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func newTestService(t *testing.T) (ChatService, *fakeConvRepo, *fakeMessageRepo) {
	t.Helper()
	svc, _, convRepo, messageRepo := newTestServiceWithWatcher(t)
	return svc, convRepo, messageRepo
}

func newTestServiceWithWatcher(t *testing.T) (ChatService, *fakeWatcher, *fakeConvRepo, *fakeMessageRepo) {
	t.Helper()
	convRepo := newFakeConvRepo()
	messageRepo := newFakeMessageRepo()
	watcher := &fakeWatcher{}
	svc := NewChatService(watcher, convRepo, messageRepo)
	t.Cleanup(svc.Close)
	return svc, watcher, convRepo, messageRepo
}

func createDirect(t *testing.T, svc ChatService, creator, other string) string {
	t.Helper()
	id, err := svc.CreateConversation(context.Background(), creator, &dto.CreateConversationReq{
		Participants: []string{other},
		Type:         mongo.ConversationDirect,
	})
	require.NoError(t, err)
	return id
}

func sendText(t *testing.T, svc ChatService, sender, convID, content string) *dto.MessageDTO {
	t.Helper()
	msg, err := svc.SendMessage(context.Background(), sender, &dto.SendMessageReq{
		ConversationID: convID,
		Content:        content,
	})
	require.NoError(t, err)
	return msg
}

func TestCreateConversation_DirectDedup(t *testing.T) {
	svc, convRepo, _ := newTestService(t)
	ctx := context.Background()

	first := createDirect(t, svc, "alice", "bob")

	// 反向发起同一对用户的单聊，返回已存在的会话
	second, err := svc.CreateConversation(ctx, "bob", &dto.CreateConversationReq{
		Participants: []string{"alice"},
		Type:         mongo.ConversationDirect,
	})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, convRepo.convs, 1)

	// 创建者出现在成员列表里也不影响去重
	third, err := svc.CreateConversation(ctx, "alice", &dto.CreateConversationReq{
		Participants: []string{"alice", "bob"},
		Type:         mongo.ConversationDirect,
	})
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestCreateConversation_DirectParticipantCount(t *testing.T) {
	svc, convRepo, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateConversation(ctx, "alice", &dto.CreateConversationReq{
		Participants: []string{"bob", "carol"},
		Type:         mongo.ConversationDirect,
	})
	assert.ErrorIs(t, err, ErrInvalidParticipantCount)

	_, err = svc.CreateConversation(ctx, "alice", &dto.CreateConversationReq{
		Participants: []string{"alice"},
		Type:         mongo.ConversationDirect,
	})
	assert.ErrorIs(t, err, ErrInvalidParticipantCount)

	// 校验失败不留下任何文档
	assert.Empty(t, convRepo.convs)
}

func TestCreateConversation_Group(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateConversation(ctx, "alice", &dto.CreateConversationReq{
		Participants: []string{"bob", "carol"},
		Type:         mongo.ConversationGroup,
		Name:         "trade talk",
	})
	require.NoError(t, err)

	conv, err := svc.GetConversation(ctx, "alice", id)
	require.NoError(t, err)
	assert.Equal(t, mongo.ConversationGroup, conv.Type)
	assert.Equal(t, "trade talk", conv.Name)
	assert.Equal(t, "alice", conv.AdminID)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, conv.Participants)

	roles := make(map[string]string)
	for _, d := range conv.ParticipantDetails {
		roles[d.UserID] = d.Role
	}
	assert.Equal(t, mongo.RoleAdmin, roles["alice"])
	assert.Equal(t, mongo.RoleMember, roles["bob"])
	assert.Equal(t, mongo.RoleMember, roles["carol"])
}

func TestGetConversation_AccessControl(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	id := createDirect(t, svc, "alice", "bob")

	_, err := svc.GetConversation(ctx, "mallory", id)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.GetConversation(ctx, "alice", primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestSendMessage_MembershipGate(t *testing.T) {
	svc, _, messageRepo := newTestService(t)
	ctx := context.Background()

	id := createDirect(t, svc, "alice", "bob")

	// 非成员与不存在的会话返回同一个错误
	_, err := svc.SendMessage(ctx, "mallory", &dto.SendMessageReq{ConversationID: id, Content: "hi"})
	assert.ErrorIs(t, err, ErrConversationAccess)

	_, err = svc.SendMessage(ctx, "alice", &dto.SendMessageReq{
		ConversationID: primitive.NewObjectID().Hex(),
		Content:        "hi",
	})
	assert.ErrorIs(t, err, ErrConversationAccess)

	assert.Empty(t, messageRepo.msgs)
}

func TestSendMessage_StoreFailurePassthrough(t *testing.T) {
	svc, convRepo, _ := newTestService(t)
	ctx := context.Background()

	id := createDirect(t, svc, "alice", "bob")

	// 存储故障按基础设施错误上抛，不伪装成权限错误
	convRepo.mu.Lock()
	convRepo.getErr = mongo.ErrOperationFailed
	convRepo.mu.Unlock()

	_, err := svc.SendMessage(ctx, "alice", &dto.SendMessageReq{ConversationID: id, Content: "hi"})
	assert.ErrorIs(t, err, mongo.ErrOperationFailed)
	assert.NotErrorIs(t, err, ErrConversationAccess)
}

func TestSendMessage_PayloadValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	id := createDirect(t, svc, "alice", "bob")

	_, err := svc.SendMessage(ctx, "alice", &dto.SendMessageReq{ConversationID: id, Content: ""})
	assert.ErrorIs(t, err, ErrParamInvalid)

	_, err = svc.SendMessage(ctx, "alice", &dto.SendMessageReq{
		ConversationID: id,
		MessageType:    mongo.MessageImage,
	})
	assert.ErrorIs(t, err, ErrParamInvalid)

	_, err = svc.SendMessage(ctx, "alice", &dto.SendMessageReq{
		ConversationID: id,
		MessageType:    "video",
		Content:        "x",
	})
	assert.ErrorIs(t, err, ErrParamInvalid)

	msg, err := svc.SendMessage(ctx, "alice", &dto.SendMessageReq{
		ConversationID: id,
		MessageType:    mongo.MessageImage,
		Metadata:       map[string]any{"url": "https://cdn.example.com/a.png", "width": 640},
	})
	require.NoError(t, err)
	assert.Equal(t, mongo.MessageImage, msg.MessageType)
}

func TestSendMessage_BumpsConversation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	id := createDirect(t, svc, "alice", "bob")
	msg := sendText(t, svc, "alice", id, "hello")

	assert.Equal(t, []string{"alice"}, msg.ReadBy)
	assert.Equal(t, mongo.MessageText, msg.MessageType)

	conv, err := svc.GetConversation(ctx, "bob", id)
	require.NoError(t, err)
	assert.True(t, conv.LastMessageAt.Equal(msg.CreatedAt))
	assert.True(t, conv.IsActive)
}

func TestSendMessage_TouchRetry(t *testing.T) {
	svc, convRepo, _ := newTestService(t)

	id := createDirect(t, svc, "alice", "bob")

	// 时间戳推进失败不影响消息发送本身
	convRepo.mu.Lock()
	convRepo.touchErr = mongo.ErrOperationFailed
	convRepo.mu.Unlock()

	msg := sendText(t, svc, "alice", id, "hello")

	convRepo.mu.Lock()
	convRepo.touchErr = nil
	convRepo.mu.Unlock()

	// 校准工作池补偿后时间戳最终推进
	assert.Eventually(t, func() bool {
		convRepo.mu.Lock()
		defer convRepo.mu.Unlock()
		return convRepo.convs[id].LastMessageAt.Equal(msg.CreatedAt)
	}, 5*time.Second, 20*time.Millisecond)
}

func TestMarkMessageAsRead_Idempotent(t *testing.T) {
	svc, _, messageRepo := newTestService(t)
	ctx := context.Background()

	id := createDirect(t, svc, "alice", "bob")
	msg := sendText(t, svc, "alice", id, "hello")

	require.NoError(t, svc.MarkMessageAsRead(ctx, "bob", id, msg.ID))
	require.NoError(t, svc.MarkMessageAsRead(ctx, "bob", id, msg.ID))

	stored, err := messageRepo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, stored.ReadBy)

	// 非成员不可标记
	assert.ErrorIs(t, svc.MarkMessageAsRead(ctx, "mallory", id, msg.ID), ErrAccessDenied)

	// 消息不存在
	assert.ErrorIs(t, svc.MarkMessageAsRead(ctx, "bob", id, primitive.NewObjectID().Hex()), ErrMessageNotFound)
}

func TestMarkMessageAsRead_CrossConversation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	chatAB := createDirect(t, svc, "alice", "bob")
	chatAC := createDirect(t, svc, "alice", "carol")
	msg := sendText(t, svc, "alice", chatAB, "hello")

	// 消息属于另一个会话，按不存在处理
	err := svc.MarkMessageAsRead(ctx, "alice", chatAC, msg.ID)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestUnreadCount(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	id := createDirect(t, svc, "alice", "bob")

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, sendText(t, svc, "alice", id, "m").ID)
	}

	// bob 读掉前两条，剩余未读 5-2
	require.NoError(t, svc.MarkMessageAsRead(ctx, "bob", id, ids[0]))
	require.NoError(t, svc.MarkMessageAsRead(ctx, "bob", id, ids[1]))

	summaries, err := svc.GetUserConversations(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, int64(3), summaries[0].UnreadCount)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, ids[4], summaries[0].LastMessage.ID)

	// 发送者视角：自己的消息默认已读
	summaries, err = svc.GetUserConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, int64(0), summaries[0].UnreadCount)

	// 一键全读后归零
	require.NoError(t, svc.MarkAllAsRead(ctx, "bob", id))
	summaries, err = svc.GetUserConversations(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(0), summaries[0].UnreadCount)
}

func TestGetUserConversations_Order(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	chatAB := createDirect(t, svc, "alice", "bob")
	chatAC := createDirect(t, svc, "alice", "carol")

	sendText(t, svc, "alice", chatAB, "first")
	sendText(t, svc, "carol", chatAC, "second")

	summaries, err := svc.GetUserConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, chatAC, summaries[0].ID)
	assert.Equal(t, chatAB, summaries[1].ID)
}

func TestGetConversationMessages_Pagination(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	id := createDirect(t, svc, "alice", "bob")

	total := 7
	var sent []string
	for i := 0; i < total; i++ {
		sent = append(sent, sendText(t, svc, "alice", id, "m").ID)
	}

	// 逐页翻完：无重叠、无空洞、全局倒序
	seen := make(map[string]bool)
	var walked []string
	cursor := ""
	for {
		page, err := svc.GetConversationMessages(ctx, "bob", id, 3, cursor)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, m := range page {
			assert.False(t, seen[m.ID], "message %s returned twice", m.ID)
			seen[m.ID] = true
			walked = append(walked, m.ID)
		}
		cursor = page[len(page)-1].ID
	}

	require.Len(t, walked, total)
	for i, msgID := range walked {
		assert.Equal(t, sent[total-1-i], msgID)
	}
}

func TestGetConversationMessages_Errors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	id := createDirect(t, svc, "alice", "bob")
	sendText(t, svc, "alice", id, "hello")

	_, err := svc.GetConversationMessages(ctx, "mallory", id, 10, "")
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.GetConversationMessages(ctx, "bob", id, 10, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrMessageNotFound)

	// 非法 limit 回退默认值，不报错
	page, err := svc.GetConversationMessages(ctx, "bob", id, -1, "")
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestSubscribeConversation_AccessDenied(t *testing.T) {
	svc, _, _ := newTestService(t)

	id := createDirect(t, svc, "alice", "bob")

	_, _, err := svc.SubscribeConversation(context.Background(), "mallory", id)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestSubscribeConversation_Feed(t *testing.T) {
	svc, watcher, _, _ := newTestServiceWithWatcher(t)
	ctx := context.Background()

	id := createDirect(t, svc, "alice", "bob")
	m1 := sendText(t, svc, "alice", id, "first")

	ch, cancel, err := svc.SubscribeConversation(ctx, "bob", id)
	require.NoError(t, err)

	// 首帧在订阅返回前就已投递，不依赖任何变更事件
	select {
	case snap := <-ch:
		require.Len(t, snap, 1)
		assert.Equal(t, m1.ID, snap[0].ID)
	default:
		t.Fatal("expected initial snapshot to be buffered")
	}

	// 变更事件触发重查，快照按时间正序
	m2 := sendText(t, svc, "bob", id, "second")
	watcher.fire()

	snap := <-ch
	require.Len(t, snap, 2)
	assert.Equal(t, m1.ID, snap[0].ID)
	assert.Equal(t, m2.ID, snap[1].ID)

	cancel()

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after cancel")

	watcher.mu.Lock()
	defer watcher.mu.Unlock()
	assert.True(t, watcher.unsubscribed)
}

func TestSubscribeConversation_CoalescesSnapshots(t *testing.T) {
	svc, watcher, _, _ := newTestServiceWithWatcher(t)
	ctx := context.Background()

	id := createDirect(t, svc, "alice", "bob")
	sendText(t, svc, "alice", id, "one")

	ch, cancel, err := svc.SubscribeConversation(ctx, "bob", id)
	require.NoError(t, err)
	defer cancel()

	// 无人消费时连续变更不阻塞，只保留最新一版快照
	sendText(t, svc, "alice", id, "two")
	watcher.fire()
	sendText(t, svc, "alice", id, "three")
	watcher.fire()

	snap := <-ch
	assert.Len(t, snap, 3)

	select {
	case <-ch:
		t.Fatal("expected stale snapshots to be dropped")
	default:
	}
}

func TestChatFlow(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	id := createDirect(t, svc, "alice", "bob")
	m1 := sendText(t, svc, "alice", id, "offering a bookshelf")
	m2 := sendText(t, svc, "bob", id, "interested, still available?")

	require.NoError(t, svc.MarkMessageAsRead(ctx, "bob", id, m1.ID))
	require.NoError(t, svc.MarkMessageAsRead(ctx, "alice", id, m2.ID))

	page, err := svc.GetConversationMessages(ctx, "alice", id, 50, "")
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, m2.ID, page[0].ID)
	assert.Equal(t, m1.ID, page[1].ID)
	assert.ElementsMatch(t, []string{"alice", "bob"}, page[0].ReadBy)
	assert.ElementsMatch(t, []string{"alice", "bob"}, page[1].ReadBy)

	for _, user := range []string{"alice", "bob"} {
		summaries, err := svc.GetUserConversations(ctx, user)
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, int64(0), summaries[0].UnreadCount)
	}
}
