package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ModeDev     = "dev"
	ModeRelease = "release"

	DriverMySQL   = "mysql"
	DriverSQLite3 = "sqlite3"

	DefaultPath = "config/config.yaml"
)

type Database struct {
	Driver       string `yaml:"driver"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"user"`
	Password     string `yaml:"password"`
	DBName       string `yaml:"dbname"`
	Path         string `yaml:"path"` // sqlite3 only
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type Server struct {
	Addr        string `yaml:"addr"`
	StaticDir   string `yaml:"static_dir"`
	Certificate Certs  `yaml:"certificate"`
}

type Auth struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type Uploads struct {
	Dir        string `yaml:"dir"`
	PublicPath string `yaml:"public_path"`
	MaxBytes   int64  `yaml:"max_bytes"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CORS struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

type Config struct {
	Version string   `yaml:"version"`
	Mode    string   `yaml:"mode"`
	Server  Server   `yaml:"server"`
	DB      Database `yaml:"database"`
	Auth    Auth     `yaml:"auth"`
	Uploads Uploads  `yaml:"uploads"`
	Log     Log      `yaml:"log"`
	CORS    CORS     `yaml:"cors"`
}

// Load reads the YAML file at path, fills defaults and applies ACADEMY_* environment
// overrides. Environment values win over the file.
func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(buf)
}

func Parse(buf []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeDev
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.DB.Driver == "" {
		c.DB.Driver = DriverMySQL
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.MaxOpenConns == 0 {
		c.DB.MaxOpenConns = 20
	}
	if c.DB.MaxIdleConns == 0 {
		c.DB.MaxIdleConns = 5
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = "uploads/students"
	}
	if c.Uploads.PublicPath == "" {
		c.Uploads.PublicPath = "/uploads/students"
	}
	if c.Uploads.MaxBytes == 0 {
		c.Uploads.MaxBytes = 2 << 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if len(c.CORS.AllowOrigins) == 0 {
		c.CORS.AllowOrigins = []string{"*"}
	}
}

func (c *Config) applyEnv() {
	c.Mode = getEnv("ACADEMY_MODE", c.Mode)
	c.Server.Addr = getEnv("ACADEMY_ADDR", c.Server.Addr)
	c.DB.Driver = getEnv("ACADEMY_DB_DRIVER", c.DB.Driver)
	c.DB.Host = getEnv("ACADEMY_DB_HOST", c.DB.Host)
	c.DB.Port = intEnv("ACADEMY_DB_PORT", c.DB.Port)
	c.DB.Username = getEnv("ACADEMY_DB_USER", c.DB.Username)
	c.DB.Password = getEnv("ACADEMY_DB_PASSWORD", c.DB.Password)
	c.DB.DBName = getEnv("ACADEMY_DB_NAME", c.DB.DBName)
	c.DB.Path = getEnv("ACADEMY_DB_PATH", c.DB.Path)
	c.Auth.JWTSecret = getEnv("ACADEMY_JWT_SECRET", c.Auth.JWTSecret)
	c.Log.Level = getEnv("ACADEMY_LOG_LEVEL", c.Log.Level)
}

func (c *Config) Validate() error {
	if c.Mode != ModeDev && c.Mode != ModeRelease {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeDev, ModeRelease, c.Mode)
	}
	switch c.DB.Driver {
	case DriverMySQL:
		if c.DB.Host == "" || c.DB.DBName == "" {
			return fmt.Errorf("database.host and database.dbname are required for mysql")
		}
	case DriverSQLite3:
		if c.DB.Path == "" {
			return fmt.Errorf("database.path is required for sqlite3")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.DB.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret (or ACADEMY_JWT_SECRET) is required")
	}
	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if c.Uploads.MaxBytes < 0 {
		return fmt.Errorf("uploads.max_bytes must be positive")
	}
	return nil
}

// TLSEnabled reports whether both certificate files are configured.
func (s Server) TLSEnabled() bool {
	return s.Certificate.Cert != "" && s.Certificate.Key != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			log.Printf("invalid int for %s, using fallback %d", key, fallback)
			return fallback
		}
		return n
	}
	return fallback
}
