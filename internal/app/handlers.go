package app

import (
	"gorm.io/gorm"

	"github.com/brenlab/bren-backend/internal/http/handlers"
	"github.com/brenlab/bren-backend/internal/realtime"
)

type Handlers struct {
	Health   *handlers.HealthHandler
	Chat     *handlers.ChatHandler
	Realtime *handlers.RealtimeHandler
	Site     *handlers.SiteHandler
	Script   *handlers.ScriptHandler
	Wallet   *handlers.WalletHandler
}

func wireHandlers(db *gorm.DB, s Services, hub *realtime.Hub) Handlers {
	return Handlers{
		Health:   handlers.NewHealthHandler(db),
		Chat:     handlers.NewChatHandler(s.Threads, s.Messages),
		Realtime: handlers.NewRealtimeHandler(hub, s.Threads),
		Site:     handlers.NewSiteHandler(s.Sites),
		Script:   handlers.NewScriptHandler(s.Scripts),
		Wallet:   handlers.NewWalletHandler(s.Wallet),
	}
}
