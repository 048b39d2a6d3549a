package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port int
	Env  string

	// CORS
	AllowedOrigins []string

	// Ranked-ladder API credentials
	ClientID     string
	ClientSecret string

	// Database URLs
	PostgresURL   string
	ClickHouseURL string
	RedisURL      string

	// Discord
	DiscordBotToken  string
	GuildID          string
	FullMemberRoleID string

	// Ladder scope
	Regions []string `validate:"min=1,dive,oneof=us eu kr cn"`
	ClanIDs map[string][]int

	// Fan-out
	PoolSize             int    `validate:"min=1"`
	ExecutionMode        string `validate:"oneof=pool inline"`
	DistributionAttempts int    `validate:"min=1"`
	DivisionConcurrency  int    `validate:"min=1"`

	// Upstream retry policy
	APIMaxRetries  int           `validate:"min=0"`
	APIBackoff     time.Duration `validate:"gt=0"`
	APITimeout     time.Duration `validate:"gt=0"`
	DiscordRetries int           `validate:"min=0"`

	// Scheduling
	Schedule       string
	LeaseTTL       time.Duration
	PushgatewayURL string
}

const (
	ModePool   = "pool"
	ModeInline = "inline"
)

// Load loads configuration from environment variables, reading a .env file
// first when one exists. It returns an error if critical configuration is
// missing or malformed.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Env:  getEnv("ENV", "production"),

		ClickHouseURL: getEnv("CLICKHOUSE_URL", ""),
		RedisURL:      getEnv("REDIS_URL", ""),

		DiscordBotToken:  getEnv("DISCORD_BOT_TOKEN", ""),
		GuildID:          getEnv("GUILD_ID", ""),
		FullMemberRoleID: getEnv("FULL_MEMBER_ROLE_ID", ""),

		Regions: splitList(getEnv("REGIONS", "us,eu,kr")),

		PoolSize:             getEnvInt("POOL_SIZE", 32),
		ExecutionMode:        strings.ToLower(getEnv("EXECUTION_MODE", ModePool)),
		DistributionAttempts: getEnvInt("DISTRIBUTION_ATTEMPTS", 3),
		DivisionConcurrency:  getEnvInt("DIVISION_CONCURRENCY", 8),

		APIMaxRetries:  getEnvInt("API_MAX_RETRIES", 3),
		APIBackoff:     getEnvDuration("API_BACKOFF", 500*time.Millisecond),
		APITimeout:     getEnvDuration("API_TIMEOUT", 15*time.Second),
		DiscordRetries: getEnvInt("DISCORD_RETRIES", 5),

		Schedule:       getEnv("SCHEDULE", "0 */6 * * *"),
		LeaseTTL:       getEnvDuration("LEASE_TTL", 2*time.Hour),
		PushgatewayURL: getEnv("PUSHGATEWAY_URL", ""),
	}

	// CORS
	cfg.AllowedOrigins = splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"))

	for i, r := range cfg.Regions {
		cfg.Regions[i] = strings.ToLower(r)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	clans, err := ParseClanIDs(getEnv("CLAN_IDS", ""))
	if err != nil {
		return nil, err
	}
	cfg.ClanIDs = clans

	// Critical configuration - fail if missing
	if cfg.ClientID, err = getEnvRequired("BATTLE_NET_CLIENT_ID"); err != nil {
		return nil, err
	}
	if cfg.ClientSecret, err = getEnvRequired("BATTLE_NET_CLIENT_SECRET"); err != nil {
		return nil, err
	}
	if cfg.PostgresURL, err = getEnvRequired("POSTGRES_URL"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseClanIDs parses "us:123|456,eu:789" into tracked clan ids per region.
func ParseClanIDs(raw string) (map[string][]int, error) {
	out := make(map[string][]int)
	for _, entry := range splitList(raw) {
		region, ids, ok := strings.Cut(entry, ":")
		region = strings.ToLower(strings.TrimSpace(region))
		if !ok || region == "" {
			return nil, fmt.Errorf("invalid CLAN_IDS entry %q", entry)
		}
		for _, id := range strings.Split(ids, "|") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			n, err := strconv.Atoi(id)
			if err != nil {
				return nil, fmt.Errorf("invalid clan id %q for region %s", id, region)
			}
			out[region] = append(out[region], n)
		}
	}
	return out, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
