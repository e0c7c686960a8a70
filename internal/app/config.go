package app

import (
	"github.com/brenlab/bren-backend/internal/platform/logger"
	"github.com/brenlab/bren-backend/internal/utils"
)

type Config struct {
	Port            string
	LogMode         string
	RedisEnabled    bool
	RequestTimeout  int
	ShutdownTimeout int
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:            utils.GetEnv("PORT", "8080", log),
		LogMode:         utils.GetEnv("LOG_MODE", "development", log),
		RedisEnabled:    utils.GetEnv("REDIS_ADDR", "", log) != "",
		RequestTimeout:  utils.GetEnvAsInt("REQUEST_TIMEOUT_SECONDS", 300, log),
		ShutdownTimeout: utils.GetEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 15, log),
	}
}
