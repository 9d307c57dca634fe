package utils

import (
	"os"
	"strconv"
	"time"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("ANILOG_JWT_SECRET")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("ANILOG_JWT_ISSUER")
	if issuer == "" {
		issuer = "anilog"
	}

	// admin sessions are short-lived
	dur := 30 * time.Minute
	if ttl := os.Getenv("ANILOG_JWT_TTL_MINUTES"); ttl != "" {
		if n, err := strconv.Atoi(ttl); err == nil && n > 0 {
			dur = time.Duration(n) * time.Minute
		}
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: dur,
	}
}

type ServerConfig struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string
}

func LoadServerConfig() ServerConfig {
	addr := os.Getenv("ANILOG_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	level := os.Getenv("ANILOG_LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	format := os.Getenv("ANILOG_LOG_FORMAT")
	if format == "" {
		format = "console"
	}

	return ServerConfig{
		HTTPAddr:  addr,
		LogLevel:  level,
		LogFormat: format,
	}
}
