package job

import (
	"Regalo/internal/api/config"
	"Regalo/internal/pkg/mongo"
	"context"
	log "log/slog"
	"time"
)

// ConversationJob 会话闲置清扫：长期没有新消息的会话置为不活跃。
// 仅软标记，消息与成员关系不动；下一条消息会重新激活。
type ConversationJob struct {
	convRepo mongo.ConversationRepo
}

func NewConversationJob(convRepo mongo.ConversationRepo) *ConversationJob {
	return &ConversationJob{convRepo: convRepo}
}

func (s *ConversationJob) Run() {
	idleDays := config.Cfg.Chat.IdleDays
	if idleDays <= 0 {
		idleDays = 90
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	before := time.Now().AddDate(0, 0, -idleDays)
	n, err := s.convRepo.DeactivateIdle(ctx, before)
	if err != nil {
		log.Error("Conversation idle sweep failed", "err", err)
		return
	}
	log.Info("Conversation idle sweep finished", "deactivated", n, "idle_days", idleDays)
}
