package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	portEnvVar         = "PORT"
	appNameVar         = "APP_NAME"
	authSecretVar      = "AUTH_SECRET"
	backendURLVar      = "BACKEND_URL"
	sessionCookieVar   = "SESSION_COOKIE"
	redisAddrVar       = "REDIS_ADDR"
	redisPasswordVar   = "REDIS_PASSWORD"
	redisDBVar         = "REDIS_DB"
	defaultSessionName = "session_token"
	defaultBackendURL  = "http://localhost:9000"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}
var _ TokenConfig = EnvVars{}
var _ ProxyConfig = EnvVars{}
var _ RedisConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Auth Gateway")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetAuthSecret returns the process-wide secret all token keys are derived
// from. There is deliberately no default: minting tokens against a well-known
// secret would make every session identifier recoverable.
func (EnvVars) GetAuthSecret() string {
	return os.Getenv(authSecretVar)
}

func (EnvVars) GetSessionCookieName() string {
	return GetEnv(sessionCookieVar, defaultSessionName)
}

func (EnvVars) GetBackendURL() string {
	return GetEnv(backendURLVar, defaultBackendURL)
}

func (EnvVars) GetRedisAddr() string {
	return GetEnv(redisAddrVar, "localhost:6379")
}

func (EnvVars) GetRedisPassword() string {
	return GetEnv(redisPasswordVar, "")
}

func (EnvVars) GetRedisDB() int {
	db, err := strconv.Atoi(GetEnv(redisDBVar, "0"))
	if err != nil {
		return 0
	}
	return db
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
