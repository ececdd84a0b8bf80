package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Mongo    MongoConfig
	JWT      JWTConfig
	Cache    CacheConfig
	AMQP     AMQPConfig
	Listing  ListingConfig
	Logger   LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type StoreConfig struct {
	Driver  string
	Timeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Migrate  bool
}

// URL is the connection string form expected by the migration driver.
func (c DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

type MongoConfig struct {
	URI      string
	Database string
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
}

type CacheConfig struct {
	Enabled    bool
	MaxEntries int64
	TTL        time.Duration
}

// AMQPConfig is optional; invalidations are only published when URL is set.
type AMQPConfig struct {
	URL      string
	Exchange string
}

type ListingConfig struct {
	PageSize    int
	MaxPageSize int
}

func Load() (*Config, error) {
	// Try to load .env file from current directory or project root.
	// Missing files are fine, plain environment variables still apply.
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	storeTimeout, _ := strconv.Atoi(getEnv("STORE_TIMEOUT_SECONDS", "5"))
	jwtExp, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	cacheEntries, _ := strconv.ParseInt(getEnv("CACHE_MAX_ENTRIES", "10000"), 10, 64)
	cacheTTL, _ := strconv.Atoi(getEnv("CACHE_TTL_SECONDS", "300"))
	pageSize, _ := strconv.Atoi(getEnv("LISTING_PAGE_SIZE", "10"))
	maxPageSize, _ := strconv.Atoi(getEnv("LISTING_MAX_PAGE_SIZE", "100"))

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Store: StoreConfig{
			Driver:  strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
			Timeout: time.Duration(storeTimeout) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "finboard"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Migrate:  getEnv("DB_MIGRATE", "true") == "true",
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "finboard"),
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
			Expiration: time.Duration(jwtExp) * time.Hour,
		},
		Cache: CacheConfig{
			Enabled:    getEnv("CACHE_ENABLED", "true") == "true",
			MaxEntries: cacheEntries,
			TTL:        time.Duration(cacheTTL) * time.Second,
		},
		AMQP: AMQPConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "finboard.views"),
		},
		Listing: ListingConfig{
			PageSize:    pageSize,
			MaxPageSize: maxPageSize,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every setting that would make the service unusable.
func (c *Config) Validate() error {
	var errs []error

	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT: invalid port %q", c.Server.Port))
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if port, err := strconv.Atoi(c.Database.Port); err != nil || port < 1 || port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT: invalid port %q", c.Database.Port))
		}
	case DriverMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER: unsupported driver %q", c.Store.Driver))
	}
	if c.Store.Timeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT_SECONDS must be positive"))
	}
	if c.JWT.SecretKey == "" {
		errs = append(errs, errors.New("JWT_SECRET_KEY is required"))
	}
	if c.JWT.Expiration <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_HOURS must be positive"))
	}
	if c.Cache.Enabled {
		if c.Cache.MaxEntries <= 0 {
			errs = append(errs, errors.New("CACHE_MAX_ENTRIES must be positive"))
		}
		if c.Cache.TTL <= 0 {
			errs = append(errs, errors.New("CACHE_TTL_SECONDS must be positive"))
		}
	}
	if c.Listing.PageSize < 1 {
		errs = append(errs, errors.New("LISTING_PAGE_SIZE must be at least 1"))
	}
	if c.Listing.MaxPageSize < c.Listing.PageSize {
		errs = append(errs, errors.New("LISTING_MAX_PAGE_SIZE must not be below LISTING_PAGE_SIZE"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
