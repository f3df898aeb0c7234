package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Driver names accepted by REMOTE_DRIVER, MIRROR_DRIVER and IMAGE_DRIVER.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverGridFS   = "gridfs"
	DriverMemory   = "memory"
)

// Config is the runtime configuration of the storefront service.
type Config struct {
	AppPort       string
	PublicBaseURL string

	RemoteDriver  string
	RemoteTimeout time.Duration
	MongoURI      string
	MongoDatabase string
	DatabaseDSN   string

	MirrorDriver      string
	MirrorPath        string
	MirrorSeedSamples bool
	RedisAddr         string
	RedisPassword     string
	RedisDB           int

	ImageDriver        string
	ImageUploadTimeout time.Duration
	ImageFailurePolicy string
	ImageMaxBytes      int64

	RabbitMQURL string
	InstanceID  string
	JWTSecret   string
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("REMOTE_DRIVER", DriverMongo)
	v.SetDefault("REMOTE_TIMEOUT", "5s")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/")
	v.SetDefault("MONGO_DATABASE", "storefront")
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=storefront port=5432 sslmode=disable")
	v.SetDefault("MIRROR_DRIVER", DriverSQLite)
	v.SetDefault("MIRROR_PATH", "storefront-mirror.db")
	v.SetDefault("MIRROR_SEED_SAMPLES", true)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("IMAGE_DRIVER", DriverGridFS)
	v.SetDefault("IMAGE_UPLOAD_TIMEOUT", "30s")
	v.SetDefault("IMAGE_FAILURE_POLICY", "strict")
	v.SetDefault("IMAGE_MAX_BYTES", 10<<20)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("INSTANCE_ID", "")
	v.SetDefault("JWT_SECRET", "")
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not read .env file: %v", err)
	}

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from v and checks it.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort:            v.GetString("APP_PORT"),
		PublicBaseURL:      strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		RemoteDriver:       strings.ToLower(v.GetString("REMOTE_DRIVER")),
		RemoteTimeout:      v.GetDuration("REMOTE_TIMEOUT"),
		MongoURI:           v.GetString("MONGO_URI"),
		MongoDatabase:      v.GetString("MONGO_DATABASE"),
		DatabaseDSN:        v.GetString("DATABASE_DSN"),
		MirrorDriver:       strings.ToLower(v.GetString("MIRROR_DRIVER")),
		MirrorPath:         v.GetString("MIRROR_PATH"),
		MirrorSeedSamples:  v.GetBool("MIRROR_SEED_SAMPLES"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		ImageDriver:        strings.ToLower(v.GetString("IMAGE_DRIVER")),
		ImageUploadTimeout: v.GetDuration("IMAGE_UPLOAD_TIMEOUT"),
		ImageFailurePolicy: v.GetString("IMAGE_FAILURE_POLICY"),
		ImageMaxBytes:      v.GetInt64("IMAGE_MAX_BYTES"),
		RabbitMQURL:        v.GetString("RABBITMQ_URL"),
		InstanceID:         v.GetString("INSTANCE_ID"),
		JWTSecret:          v.GetString("JWT_SECRET"),
	}

	if cfg.InstanceID == "" {
		host, _ := os.Hostname()
		cfg.InstanceID = fmt.Sprintf("%s-%d", host, os.Getpid())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown drivers and a missing JWT secret.
func (c *Config) Validate() error {
	switch c.RemoteDriver {
	case DriverMongo, DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unknown REMOTE_DRIVER %q", c.RemoteDriver)
	}
	switch c.MirrorDriver {
	case DriverSQLite, DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("unknown MIRROR_DRIVER %q", c.MirrorDriver)
	}
	switch c.ImageDriver {
	case DriverGridFS, DriverMemory:
	default:
		return fmt.Errorf("unknown IMAGE_DRIVER %q", c.ImageDriver)
	}
	if c.ImageDriver == DriverGridFS && c.MongoURI == "" {
		return fmt.Errorf("IMAGE_DRIVER=%s needs MONGO_URI", DriverGridFS)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	return nil
}
