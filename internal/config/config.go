package config

import (
	"os"
	"strings"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string
	SiteID   string // tags event log rows

	QuestionBank     string // path to the YAML question bank
	DefaultBehaviour string

	AuthHMACSecret  string
	EnableLocalAuth bool

	AdminUser     string
	AdminPassHash string // bcrypt

	CORSOrigins []string

	EnableMetrics bool
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	defOrigins := "http://localhost:3000"
	if mode == ModeOnline {
		defOrigins = ""
	}
	return Config{
		Mode:             mode,
		HTTPAddr:         envOr("HTTP_ADDR", ":8080"),
		DBDriver:         envOr("DB_DRIVER", "sqlite"),
		DBDSN:            envOr("DB_DSN", ""),
		SiteID:           envOr("SITE_ID", "local"),
		QuestionBank:     envOr("QUESTION_BANK", "./questions.yaml"),
		DefaultBehaviour: envOr("DEFAULT_BEHAVIOUR", "qtdeferredfeedback"),
		AuthHMACSecret:   envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		EnableLocalAuth:  envBool("ENABLE_LOCAL_AUTH", mode == ModeOffline),
		AdminUser:        envOr("ADMIN_USER", "admin"),
		AdminPassHash:    os.Getenv("ADMIN_PASS_HASH"),
		CORSOrigins:      csvOr("CORS_ORIGINS", defOrigins),
		EnableMetrics:    envBool("ENABLE_METRICS", true),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
