package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	AuthJWT  = "jwt"
	AuthGRPC = "grpc"
	AuthSkip = "skip"

	SummarizerOpenAI = "openai"
	SummarizerLocal  = "local"
)

type DatabaseConfig struct {
	Driver     string // mongo, postgres или sqlite
	MongoURI   string
	MongoDB    string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SQLitePath string
}

type AuthConfig struct {
	Mode         string // jwt, grpc или skip
	JWTSecret    string
	JWTPublicKey string // PEM, для RS256
	JWTIssuer    string
	GRPCAddr     string
	Timeout      time.Duration
	DevSubject   string // пользователь режима skip
}

type SummarizerConfig struct {
	Kind    string // openai или local
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Config struct {
	TasksPort        string
	LogLevel         string
	AppEnv           string
	FrontendURL      string
	HideForeignTasks bool
	Location         *time.Location
	DB               DatabaseConfig
	Auth             AuthConfig
	Summarizer       SummarizerConfig
}

// Load читает конфигурацию из окружения; .env подхватывается, если есть
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TasksPort:   getEnv("TASKS_PORT", "8082"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		AppEnv:      getEnv("APP_ENV", "development"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DB: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", DriverMongo),
			MongoURI:   getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDB:    getEnv("MONGO_DB", "sololeveler"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "tasks_user"),
			Password:   getEnv("DB_PASSWORD", "tasks_pass"),
			DBName:     getEnv("DB_NAME", "tasks_db"),
			SQLitePath: getEnv("SQLITE_PATH", "sololeveler.db"),
		},
		Auth: AuthConfig{
			Mode:         getEnv("AUTH_MODE", AuthJWT),
			JWTSecret:    os.Getenv("AUTH_JWT_SECRET"),
			JWTPublicKey: os.Getenv("AUTH_JWT_PUBLIC_KEY"),
			JWTIssuer:    getEnv("AUTH_JWT_ISSUER", ""),
			GRPCAddr:     getEnv("AUTH_GRPC_ADDR", "localhost:50051"),
			DevSubject:   getEnv("AUTH_DEV_SUBJECT", "dev-user"),
		},
		Summarizer: SummarizerConfig{
			Kind:    getEnv("SUMMARIZER", SummarizerOpenAI),
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
			Model:   getEnv("OPENAI_MODEL", ""),
		},
	}

	var err error
	if cfg.Auth.Timeout, err = getDuration("AUTH_TIMEOUT", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.Summarizer.Timeout, err = getDuration("SUMMARIZER_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HideForeignTasks, err = getBool("HIDE_FOREIGN_TASKS", false); err != nil {
		return nil, err
	}
	if cfg.Location, err = time.LoadLocation(getEnv("SUMMARY_TIMEZONE", "Local")); err != nil {
		return nil, fmt.Errorf("invalid SUMMARY_TIMEZONE: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет сочетания настроек
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DriverMongo, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}

	switch c.Auth.Mode {
	case AuthJWT:
		if c.Auth.JWTSecret == "" && c.Auth.JWTPublicKey == "" {
			return errors.New("AUTH_MODE=jwt requires AUTH_JWT_SECRET or AUTH_JWT_PUBLIC_KEY")
		}
	case AuthGRPC:
		if c.Auth.GRPCAddr == "" {
			return errors.New("AUTH_MODE=grpc requires AUTH_GRPC_ADDR")
		}
	case AuthSkip:
		if c.IsProduction() {
			return errors.New("AUTH_MODE=skip is not allowed in production")
		}
	default:
		return fmt.Errorf("unsupported AUTH_MODE %q", c.Auth.Mode)
	}

	switch c.Summarizer.Kind {
	case SummarizerOpenAI, SummarizerLocal:
	default:
		return fmt.Errorf("unsupported SUMMARIZER %q", c.Summarizer.Kind)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// PostgresDSN - строка подключения lib/pq
func (db *DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		db.Host, db.Port, db.User, db.Password, db.DBName)
}
