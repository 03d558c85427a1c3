package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTLHours int

	MaxConcurrency  int
	RateLimitMs     int
	MaxRetries      int
	PagesToScrape   int
	ListingsPerPage int
	SearchURL       string

	ReliabilitySources map[string]string
	ReliabilityAPIKey  string
	APITimeoutMs       int
	Country            string

	CSVOutputPath string
	ChromeBin     string
	LogLevel      string
	LogFormat     string
	ServerAddr    string
	RunHistory    int
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "carscout"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "carscout"),
		PostgresDB:       getEnv("POSTGRES_DB", "carscout"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		SQLitePath:    getEnv("SQLITE_PATH", "./data/references.db"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTLHours: getEnvInt("CACHE_TTL_HOURS", 24),

		MaxConcurrency:  getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:     getEnvInt("RATE_LIMIT_MS", 2000),
		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		PagesToScrape:   getEnvInt("PAGES_TO_SCRAPE", 2),
		ListingsPerPage: getEnvInt("LISTINGS_PER_PAGE", 20),
		SearchURL:       getEnv("SEARCH_URL", "https://www.autotrader.co.uk/car-search?postcode=SW1A1AA"),

		ReliabilitySources: parseSources(getEnv("RELIABILITY_SOURCES", "")),
		ReliabilityAPIKey:  getEnv("RELIABILITY_API_KEY", ""),
		APITimeoutMs:       getEnvInt("API_TIMEOUT_MS", 10000),
		Country:            getEnv("MILEAGE_COUNTRY", "UK"),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/raw_listings.csv"),
		ChromeBin:     getEnv("CHROME_BIN", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		ServerAddr:    getEnv("SERVER_ADDR", ":8080"),
		RunHistory:    getEnvInt("RUN_HISTORY", 100),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// parseSources reads "name=url,name=url" into a map. Malformed pairs are skipped.
func parseSources(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		name, url, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" || url == "" {
			continue
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(url)
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
