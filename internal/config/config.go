package config

type Config interface {
	EnvConfig
	TokenConfig
	ProxyConfig
	CorsConfig
	RedisConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

// TokenConfig supplies the server secret and the session cookie name used by
// the token codec and the session-cookie handlers. The secret must be stable
// across restarts or every outstanding token becomes unverifiable.
type TokenConfig interface {
	GetAuthSecret() string
	GetSessionCookieName() string
}

// ProxyConfig supplies the upstream base URL the gateway forwards to.
type ProxyConfig interface {
	GetBackendURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type RedisConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type mainConfig struct {
	EnvVars
	Cors
}

func New() Config {
	return mainConfig{}
}
