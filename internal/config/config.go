package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration shared by the service
// binaries; each binary reads the sections it needs.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Mongo    MongoConfig    `json:"mongo"`
	Services ServicesConfig `json:"services"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents postgres configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// MongoConfig represents the audit record store configuration
type MongoConfig struct {
	URI    string `json:"uri"`
	DBName string `json:"db_name"`
}

// ServicesConfig holds the downstream service URLs and the bound on
// cross-service call time
type ServicesConfig struct {
	VerificationURL string        `json:"verification_url"`
	AuditURL        string        `json:"audit_url"`
	CreditURL       string        `json:"credit_url"`
	CallTimeout     time.Duration `json:"call_timeout"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from .env, an optional JSON file and
// environment variables, in increasing order of precedence.
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional; absence is not an error
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "greenride_certification",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
		},
		Mongo: MongoConfig{
			URI:    "mongodb://localhost:27017",
			DBName: "greenride_audit",
		},
		Services: ServicesConfig{
			VerificationURL: "http://verification-service:8081",
			AuditURL:        "http://audit-service:8082",
			CreditURL:       "http://credit-service:8083",
			CallTimeout:     10 * time.Second,
		},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			config.Database.Port = p
		}
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		config.Mongo.URI = uri
	}
	if name := os.Getenv("MONGO_DBNAME"); name != "" {
		config.Mongo.DBName = name
	}
	if url := os.Getenv("VERIFICATION_SERVICE_URL"); url != "" {
		config.Services.VerificationURL = url
	}
	if url := os.Getenv("AUDIT_SERVICE_URL"); url != "" {
		config.Services.AuditURL = url
	}
	if url := os.Getenv("CREDIT_SERVICE_URL"); url != "" {
		config.Services.CreditURL = url
	}
}

// GetDatabaseURL returns the postgres connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
