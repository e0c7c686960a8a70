package app

import (
	"gorm.io/gorm"

	"github.com/brenlab/bren-backend/internal/data/repos"
	"github.com/brenlab/bren-backend/internal/platform/logger"
)

type Repos struct {
	Threads  repos.ThreadRepo
	Messages repos.MessageRepo
	Sites    repos.SiteRepo
	Scripts  repos.ScriptRepo
	Wallets  repos.WalletRepo
	Audit    repos.AuditRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Threads:  repos.NewThreadRepo(db, log),
		Messages: repos.NewMessageRepo(db, log),
		Sites:    repos.NewSiteRepo(db, log),
		Scripts:  repos.NewScriptRepo(db, log),
		Wallets:  repos.NewWalletRepo(db, log),
		Audit:    repos.NewAuditRepo(db, log),
	}
}
