package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// MAP_REGISTRY_PERSISTENCE_TYPE=s3.
const EnvPrefix = "MAP_REGISTRY"

type AppConfig struct {
	ProductionEnvironment bool   `mapstructure:"production_environment"`
	LogLevel              string `mapstructure:"log_level"              validate:"required,oneof=trace debug info warn error"`
	HumanReadableOutput   bool   `mapstructure:"human_readable_output"`

	Port       int `mapstructure:"port"        validate:"required,numeric,min=1,max=65535"`
	HealthPort int `mapstructure:"health_port" validate:"min=0,max=65535"`

	Upload      UploadConfig      `mapstructure:"upload"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Preview     PreviewConfig     `mapstructure:"preview"`
	Auth        AuthConfig        `mapstructure:"auth"`
}

// UploadConfig fixes the storage layout and the accepted payloads. It is read
// once at startup and never mutated.
type UploadConfig struct {
	GeneralPrefix    string   `mapstructure:"general_prefix"     validate:"required"`
	GeneratedPrefix  string   `mapstructure:"generated_prefix"   validate:"required,nefield=GeneralPrefix"`
	AllowedMimeTypes []string `mapstructure:"allowed_mime_types" validate:"required,min=1,dive,required"`
	MaxBytes         int64    `mapstructure:"max_bytes"          validate:"min=1"`
}

type PersistenceConfig struct {
	Type       string      `mapstructure:"type"        validate:"oneof=filesystem memory s3 minio"`
	StorageDir string      `mapstructure:"storage_dir"`
	S3         S3Config    `mapstructure:"s3"`
	MinIO      MinIOConfig `mapstructure:"minio"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	KeyID     string `mapstructure:"key_id"`
	AccessKey string `mapstructure:"access_key"`
	Timeout   string `mapstructure:"timeout"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type DatabaseConfig struct {
	Type     string `mapstructure:"type"     validate:"oneof=postgres mongo memory"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"     validate:"min=0,max=65535"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
	URI      string `mapstructure:"uri"`
}

type PreviewConfig struct {
	Type  string        `mapstructure:"type"  validate:"oneof=memory redis"`
	TTL   time.Duration `mapstructure:"ttl"   validate:"min=1s"`
	Redis RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=16"`
	Issuer    string `mapstructure:"issuer"`
}

// Load builds the configuration from, in increasing precedence: Defaults, an
// optional config.yaml, .env and process environment, and overrides.
func Load(appName string, overrides ...DefaultValue) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	for _, d := range Defaults {
		v.SetDefault(d.Key, d.Value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/" + appName)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, o := range overrides {
		v.Set(o.Key, o.Value)
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
