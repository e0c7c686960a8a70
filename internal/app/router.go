package app

import (
	"github.com/gin-gonic/gin"

	"github.com/brenlab/bren-backend/internal/server"
)

func wireRouter(h Handlers, m Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthMiddleware:  m.Auth,
		HealthHandler:   h.Health,
		ChatHandler:     h.Chat,
		RealtimeHandler: h.Realtime,
		SiteHandler:     h.Site,
		ScriptHandler:   h.Script,
		WalletHandler:   h.Wallet,
	})
}
