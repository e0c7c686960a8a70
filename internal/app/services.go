package app

import (
	"github.com/brenlab/bren-backend/internal/ai/invoke"
	"github.com/brenlab/bren-backend/internal/ai/provider"
	"github.com/brenlab/bren-backend/internal/platform/logger"
	"github.com/brenlab/bren-backend/internal/realtime"
	"github.com/brenlab/bren-backend/internal/services"
)

type Services struct {
	Audit    services.AuditService
	Wallet   services.WalletService
	Threads  services.ThreadService
	Sites    services.SiteService
	Scripts  services.ScriptService
	Messages services.MessageService
	Bus      services.StatusBus
	Emitter  services.StatusEmitter
}

func wireServices(log *logger.Logger, cfg Config, r Repos, hub *realtime.Hub) (Services, error) {
	audit := services.NewAuditService(r.Audit, log)
	wallet := services.NewWalletService(r.Wallets, audit, log)
	threads := services.NewThreadService(r.Threads, r.Messages, audit, log)
	sites := services.NewSiteService(r.Sites, audit, log)
	scripts := services.NewScriptService(r.Scripts, r.Sites, audit, log)

	// Single-instance deployments publish straight into the hub; with redis
	// configured, events go through the bus and a forwarder feeds the hub.
	var emitter services.StatusEmitter = &services.HubEmitter{Hub: hub}
	var bus services.StatusBus
	if cfg.RedisEnabled {
		b, err := services.NewRedisStatusBus(log)
		if err != nil {
			return Services{}, err
		}
		bus = b
		emitter = &services.RedisEmitter{Bus: b}
	}
	notifier := services.NewMessageNotifier(emitter)

	registry := provider.NewRegistry(log)
	invoker := invoke.NewInvoker(registry, log)

	messages := services.NewMessageService(
		r.Threads, r.Messages, r.Scripts,
		wallet, scripts, invoker, notifier, audit, log,
	)

	return Services{
		Audit:    audit,
		Wallet:   wallet,
		Threads:  threads,
		Sites:    sites,
		Scripts:  scripts,
		Messages: messages,
		Bus:      bus,
		Emitter:  emitter,
	}, nil
}
