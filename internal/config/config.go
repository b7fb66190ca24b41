package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting read from the environment.
type Config struct {
	Port    string
	GinMode string

	DatabaseURL string

	SkipRedis     bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitMQURL string

	JWTSecret        []byte
	JWTRefreshSecret []byte
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	MagicLinkTTL     time.Duration

	DomainRoot         string
	MagicLinkReturnURL bool
	BootstrapToken     string

	CORSOrigins     []string
	RateLimitWindow time.Duration
	RateLimitMax    int

	AllowInFlightReassign bool
}

// Release reports whether the service runs in production mode.
func (c *Config) Release() bool {
	return c.GinMode == "release"
}

// Load reads envFile (if present) and then the process environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("No %s file found or error loading it", envFile)
		}
	}

	cfg := &Config{
		Port:    getenv("PORT", "4000"),
		GinMode: os.Getenv("GIN_MODE"),

		DatabaseURL: databaseURL(),

		SkipRedis:     os.Getenv("SKIP_REDIS") == "true",
		RedisAddr:     getenv("REDIS_HOST", "localhost") + ":" + getenv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getenvInt("REDIS_DB", 0),

		RabbitMQURL: os.Getenv("RABBITMQ_URL"),

		AccessTTL:    ParseExpiresIn(os.Getenv("JWT_EXPIRATION"), 15*time.Minute),
		RefreshTTL:   ParseExpiresIn(os.Getenv("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		MagicLinkTTL: ParseExpiresIn(os.Getenv("MAGIC_LINK_TTL"), 15*time.Minute),

		DomainRoot:         strings.TrimSpace(getenv("DOMAIN_ROOT", getenv("DOMAIN", "rapidroad.uk"))),
		MagicLinkReturnURL: os.Getenv("MAGIC_LINK_RETURN_URL") == "true",
		BootstrapToken:     os.Getenv("BOOTSTRAP_TOKEN"),

		CORSOrigins:     splitList(getenv("CORS_ORIGINS", "http://localhost:3000")),
		RateLimitWindow: ParseExpiresIn(os.Getenv("RATE_LIMIT_WINDOW"), 15*time.Minute),
		RateLimitMax:    getenvInt("RATE_LIMIT_MAX", 100),

		AllowInFlightReassign: os.Getenv("DISPATCH_ALLOW_INFLIGHT_REASSIGN") == "true",
	}

	access := os.Getenv("JWT_SECRET")
	refresh := os.Getenv("JWT_REFRESH_SECRET")
	if access == "" || refresh == "" {
		if cfg.Release() {
			return nil, errors.New("JWT_SECRET and JWT_REFRESH_SECRET are required in release mode")
		}
		// Development fallback only
		if access == "" {
			access = "dev_jwt_secret_change_me"
		}
		if refresh == "" {
			refresh = "dev_refresh_secret_change_me"
		}
	}
	cfg.JWTSecret = []byte(access)
	cfg.JWTRefreshSecret = []byte(refresh)

	return cfg, nil
}

func databaseURL() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	dbHost := getenv("POSTGRES_HOST", "localhost")
	dbPort := getenv("POSTGRES_PORT", "5432")
	dbUser := getenv("POSTGRES_USER", "postgres")
	dbPassword := getenv("POSTGRES_PASSWORD", "postgres")
	dbName := getenv("POSTGRES_DB", "rapidroad")
	dbSslMode := getenv("POSTGRES_SSLMODE", "disable")

	return "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var unitSeconds = map[byte]int64{
	's': 1,
	'm': 60,
	'h': 60 * 60,
	'd': 24 * 60 * 60,
}

// ParseExpiresIn accepts "900", "45s", "15m", "12h" or "7d" and falls back on
// anything it cannot read. Results are never shorter than one second.
func ParseExpiresIn(input string, fallback time.Duration) time.Duration {
	s := strings.TrimSpace(strings.ToLower(input))
	if s == "" {
		return fallback
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 1 {
			n = 1
		}
		return time.Duration(n) * time.Second
	}

	mult, ok := unitSeconds[s[len(s)-1]]
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return time.Duration(n*mult) * time.Second
}
