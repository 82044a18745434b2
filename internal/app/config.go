package app

import (
	"time"

	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
	"github.com/hswtrack/compliance-backend/internal/utils"
)

type Config struct {
	ServiceName    string
	Environment    string
	JWTSecretKey   string
	AccessTokenTTL time.Duration
	HTTPAddr       string
	// SweepOnStart runs one expiry sweep during startup for deployments
	// without an external scheduler hitting the sweep endpoint.
	SweepOnStart bool
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	httpAddr := utils.GetEnv("HTTP_ADDR", ":8080", log)
	environment := utils.GetEnv("ENVIRONMENT", "development", log)
	sweepOnStart := utils.GetEnvAsBool("SWEEP_EXPIRY_ON_START", false, log)
	return Config{
		ServiceName:    "compliance-backend",
		Environment:    environment,
		JWTSecretKey:   jwtSecretKey,
		AccessTokenTTL: time.Duration(accessTokenTTLSeconds) * time.Second,
		HTTPAddr:       httpAddr,
		SweepOnStart:   sweepOnStart,
	}
}
