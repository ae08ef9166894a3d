package wire

import (
	"Regalo/internal/api"
	"Regalo/internal/api/config"
	"Regalo/internal/api/handler"
	"Regalo/internal/job"
	"Regalo/internal/pkg/cron"
	"Regalo/internal/pkg/hub"
	"Regalo/internal/pkg/mongo"
	"Regalo/internal/service"

	"github.com/gin-gonic/gin"
	mongoDriver "go.mongodb.org/mongo-driver/mongo"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router      *gin.Engine
	ChatService service.ChatService
	CronMgr     *cron.Manager
}

func BuildApplication(mongoConn *mongoDriver.Database, cfg *config.Config) (*ApplicationContainer, error) {
	store := mongo.NewStore(mongoConn)
	convRepo := mongo.NewConversationRepo(store)
	messageRepo := mongo.NewMessageRepo(store)

	chatService := service.NewChatService(store, convRepo, messageRepo)
	chatHub := hub.NewHub()

	handlers := &api.HandlersGroup{
		ChatHandler: handler.NewChatHandler(chatService),
		WSHandler:   handler.NewWsHandler(chatService, chatHub),
	}

	router := api.SetupRouter(handlers)

	cronMgr := cron.NewCronManager(job.NewConversationJob(convRepo))

	return &ApplicationContainer{
		Router:      router,
		ChatService: chatService,
		CronMgr:     cronMgr,
	}, nil
}
