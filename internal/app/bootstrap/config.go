package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the support core.
// It merges file defaults and environment overrides to support both local and
// deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string

	SigningSecret string
	Issuer        string

	// AllowEphemeralSecret lets dev runs boot with a random signing key.
	// Off unless opted in; a missing secret is fatal at startup otherwise.
	AllowEphemeralSecret bool

	BcryptCost int

	DefaultRoles         []string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	SessionTTL           time.Duration
	SessionCeiling       int
	FailedLoginThreshold int
	LockoutDuration      time.Duration
	AlertRetention       time.Duration
	TokenSweepGrace      time.Duration

	ChatCrisisScore    float64
	ChatCriticalScore  float64
	PredictionHighRisk float64
	PredictionCritical float64

	EmergencyWebhookURL    string
	ProfessionalWebhookURL string
	ClassifierURL          string
	PredictorURL           string

	MaxDBConns      int32
	SweepInterval   time.Duration
	ArchiveInterval time.Duration
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay
// internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Auth struct {
		AllowEphemeralSecret *bool `yaml:"allow_ephemeral_secret"`
	} `yaml:"auth"`
	Collaborators struct {
		EmergencyWebhookURL    string `yaml:"emergency_webhook_url"`
		ProfessionalWebhookURL string `yaml:"professional_webhook_url"`
		ClassifierURL          string `yaml:"classifier_url"`
		PredictorURL           string `yaml:"predictor_url"`
	} `yaml:"collaborators"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific
// overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:            "support-core",
		HTTPPort:             8080,
		GRPCPort:             9090,
		Issuer:               "mindhaven-support-core",
		AllowEphemeralSecret: false,
		BcryptCost:           12,
		DefaultRoles:         []string{"MEMBER"},
		AccessTokenTTL:       time.Hour,
		RefreshTokenTTL:      7 * 24 * time.Hour,
		SessionTTL:           30 * 24 * time.Hour,
		SessionCeiling:       5,
		FailedLoginThreshold: 5,
		LockoutDuration:      30 * time.Minute,
		AlertRetention:       30 * 24 * time.Hour,
		TokenSweepGrace:      24 * time.Hour,
		ChatCrisisScore:      0.4,
		ChatCriticalScore:    0.8,
		PredictionHighRisk:   0.6,
		PredictionCritical:   0.85,
		MaxDBConns:           20,
		SweepInterval:        time.Minute,
		ArchiveInterval:      time.Hour,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Auth.AllowEphemeralSecret != nil {
			cfg.AllowEphemeralSecret = *f.Auth.AllowEphemeralSecret
		}
		if f.Collaborators.EmergencyWebhookURL != "" {
			cfg.EmergencyWebhookURL = f.Collaborators.EmergencyWebhookURL
		}
		if f.Collaborators.ProfessionalWebhookURL != "" {
			cfg.ProfessionalWebhookURL = f.Collaborators.ProfessionalWebhookURL
		}
		if f.Collaborators.ClassifierURL != "" {
			cfg.ClassifierURL = f.Collaborators.ClassifierURL
		}
		if f.Collaborators.PredictorURL != "" {
			cfg.PredictorURL = f.Collaborators.PredictorURL
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.SigningSecret = envOrDefault("AUTH_SIGNING_SECRET", cfg.SigningSecret)
	cfg.Issuer = envOrDefault("AUTH_ISSUER", cfg.Issuer)
	cfg.AllowEphemeralSecret = envBool("AUTH_ALLOW_EPHEMERAL_SECRET", cfg.AllowEphemeralSecret)
	cfg.EmergencyWebhookURL = envOrDefault("EMERGENCY_WEBHOOK_URL", cfg.EmergencyWebhookURL)
	cfg.ProfessionalWebhookURL = envOrDefault("PROFESSIONAL_WEBHOOK_URL", cfg.ProfessionalWebhookURL)
	cfg.ClassifierURL = envOrDefault("RISK_CLASSIFIER_URL", cfg.ClassifierURL)
	cfg.PredictorURL = envOrDefault("RISK_PREDICTOR_URL", cfg.PredictorURL)
	cfg.DefaultRoles = envCSV("DEFAULT_ROLES", cfg.DefaultRoles)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.BcryptCost = envInt("BCRYPT_ROUNDS", cfg.BcryptCost)
	cfg.SessionCeiling = envInt("SESSION_CEILING", cfg.SessionCeiling)
	cfg.FailedLoginThreshold = envInt("FAILED_LOGIN_THRESHOLD", cfg.FailedLoginThreshold)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.AccessTokenTTL = time.Duration(envInt("ACCESS_TOKEN_TTL_MINUTES", int(cfg.AccessTokenTTL.Minutes()))) * time.Minute
	cfg.RefreshTokenTTL = time.Duration(envInt("REFRESH_TOKEN_TTL_HOURS", int(cfg.RefreshTokenTTL.Hours()))) * time.Hour
	cfg.SessionTTL = time.Duration(envInt("SESSION_EXPIRY_HOURS", int(cfg.SessionTTL.Hours()))) * time.Hour
	cfg.LockoutDuration = time.Duration(envInt("ACCOUNT_LOCKOUT_MINUTES", int(cfg.LockoutDuration.Minutes()))) * time.Minute
	cfg.AlertRetention = time.Duration(envInt("ALERT_RETENTION_DAYS", int(cfg.AlertRetention.Hours()/24))) * 24 * time.Hour
	cfg.TokenSweepGrace = time.Duration(envInt("TOKEN_SWEEP_GRACE_HOURS", int(cfg.TokenSweepGrace.Hours()))) * time.Hour
	cfg.SweepInterval = time.Duration(envInt("SWEEP_INTERVAL_SECONDS", int(cfg.SweepInterval.Seconds()))) * time.Second
	cfg.ArchiveInterval = time.Duration(envInt("ARCHIVE_INTERVAL_MINUTES", int(cfg.ArchiveInterval.Minutes()))) * time.Minute

	cfg.ChatCrisisScore = envFloat("CHAT_CRISIS_SCORE", cfg.ChatCrisisScore)
	cfg.ChatCriticalScore = envFloat("CHAT_CRITICAL_SCORE", cfg.ChatCriticalScore)
	cfg.PredictionHighRisk = envFloat("PREDICTION_HIGH_RISK", cfg.PredictionHighRisk)
	cfg.PredictionCritical = envFloat("PREDICTION_CRITICAL", cfg.PredictionCritical)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.SigningSecret == "" && !cfg.AllowEphemeralSecret {
		return Config{}, fmt.Errorf("missing AUTH_SIGNING_SECRET")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envFloat parses float env vars with safe fallback on empty/invalid values.
func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
