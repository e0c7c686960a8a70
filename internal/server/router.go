package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/brenlab/bren-backend/internal/http/handlers"
	"github.com/brenlab/bren-backend/internal/http/middleware"
	"github.com/brenlab/bren-backend/internal/observability"
)

type RouterConfig struct {
	AuthMiddleware  *middleware.AuthMiddleware
	HealthHandler   *handlers.HealthHandler
	ChatHandler     *handlers.ChatHandler
	RealtimeHandler *handlers.RealtimeHandler
	SiteHandler     *handlers.SiteHandler
	ScriptHandler   *handlers.ScriptHandler
	WalletHandler   *handlers.WalletHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	if observability.Enabled() {
		router.Use(otelgin.Middleware(observability.ServiceName))
	}
	router.Use(middleware.CORS())

	// Public surface: health plus the module script embedded on sites.
	router.GET("/healthz", cfg.HealthHandler.Check)
	router.GET("/api/v1/sites/:site_code/script", cfg.ScriptHandler.PublicBundle)

	api := router.Group("/api/v1")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	threads := api.Group("/threads")
	{
		threads.POST("", cfg.ChatHandler.CreateThread)
		threads.GET("", cfg.ChatHandler.ListThreads)
		threads.GET("/:thread_id", cfg.ChatHandler.GetThread)
		threads.DELETE("/:thread_id", cfg.ChatHandler.DeleteThread)
		threads.PATCH("/:thread_id/title", cfg.ChatHandler.RenameThread)
		threads.GET("/:thread_id/messages", cfg.ChatHandler.ListMessages)
		threads.POST("/:thread_id/messages", cfg.ChatHandler.SendMessage)
		threads.GET("/:thread_id/messages/status-stream", cfg.RealtimeHandler.StreamThread)
	}
	api.GET("/messages/:message_id/status", cfg.ChatHandler.MessageStatus)

	sites := api.Group("/sites")
	{
		sites.POST("", cfg.SiteHandler.Register)
		sites.GET("", cfg.SiteHandler.List)
		sites.GET("/:site_code", cfg.SiteHandler.Get)
		sites.DELETE("/:site_code", cfg.SiteHandler.Delete)
		sites.PATCH("/:site_code/name", cfg.SiteHandler.Rename)
		sites.GET("/:site_code/scripts", cfg.ScriptHandler.Current)
		sites.GET("/:site_code/scripts/history", cfg.ScriptHandler.History)
		sites.POST("/:site_code/scripts/deploy", cfg.ScriptHandler.Deploy)
	}

	wallet := api.Group("/wallet")
	{
		wallet.GET("", cfg.WalletHandler.Get)
		wallet.GET("/transactions", cfg.WalletHandler.Transactions)
		wallet.POST("/credit", cfg.WalletHandler.Credit)
	}

	return router
}
