package app

import (
	"github.com/brenlab/bren-backend/internal/http/middleware"
	"github.com/brenlab/bren-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

func wireMiddleware(log *logger.Logger) (Middleware, error) {
	auth, err := middleware.NewAuthMiddleware(log)
	if err != nil {
		return Middleware{}, err
	}
	return Middleware{Auth: auth}, nil
}
