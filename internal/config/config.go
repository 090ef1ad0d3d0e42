package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageDriverMinio = "minio"
	StorageDriverS3    = "s3"

	RetryDelayModeFixed   = "fixed"
	RetryDelayModeBreaker = "breaker"
)

type Settings struct {
	AppEnv string

	MariaDBDSN      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ServerPort      int
	MaxConnections  int

	StorageDriver  string
	Bucket         string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool

	RedisAddr     string
	RedisPassword string

	JWTPublicKey string

	BreakerFailureThreshold int
	BreakerCooldown         time.Duration
	BreakerHalfOpenMaxCalls int

	MaxRetries      int
	RetryDelay      time.Duration
	RetryDelayMode  string
	FetchTimeout    time.Duration
	StorePutTimeout time.Duration
	MaxUploadBytes  int64
	MaxFilesPerKind int
	KeyMaxLength    int

	WorkerConcurrency int
	OptimiseMedia     bool
	BufferTTL         time.Duration
	StatusCacheTTL    time.Duration
	MetricsPort       int
}

// IsProduction reports whether objects go to the production key space.
func (s *Settings) IsProduction() bool {
	return strings.EqualFold(s.AppEnv, "production")
}

func setDefaults() {
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("SERVER_MAX_CONNECTIONS", 256)
	viper.SetDefault("STORAGE_DRIVER", StorageDriverMinio)
	viper.SetDefault("MINIO_USE_SSL", false)
	viper.SetDefault("S3_USE_PATH_STYLE", false)
	viper.SetDefault("BREAKER_FAILURE_THRESHOLD", 5)
	viper.SetDefault("BREAKER_COOLDOWN_MS", 30000)
	viper.SetDefault("BREAKER_HALF_OPEN_MAX_CALLS", 1)
	viper.SetDefault("UPLOAD_MAX_RETRIES", 3)
	viper.SetDefault("UPLOAD_RETRY_DELAY_SECONDS", 60)
	viper.SetDefault("UPLOAD_RETRY_DELAY_MODE", RetryDelayModeFixed)
	viper.SetDefault("FETCH_TIMEOUT_SECONDS", 30)
	viper.SetDefault("STORE_PUT_TIMEOUT_SECONDS", 60)
	viper.SetDefault("MAX_UPLOAD_SIZE_MB", 25)
	viper.SetDefault("MAX_FILES_PER_FIELD", 20)
	viper.SetDefault("KEY_MAX_LENGTH", 100)
	viper.SetDefault("WORKER_CONCURRENCY", 10)
	viper.SetDefault("OPTIMISE_MEDIA", false)
	viper.SetDefault("BUFFER_TTL_HOURS", 24)
	viper.SetDefault("STATUS_CACHE_TTL_SECONDS", 5)
	viper.SetDefault("METRICS_PORT", 9090)
}

func Load() (*Settings, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found; proceeding with OS environment variables")
	}

	viper.Reset()
	viper.AutomaticEnv()
	setDefaults()

	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: could not read .env file: %v", err)
	}

	if !viper.IsSet("MARIADB_DSN") {
		return nil, fmt.Errorf("MARIADB_DSN is required")
	}
	if !viper.IsSet("MARIADB_MAX_OPEN_CONN") {
		return nil, fmt.Errorf("MARIADB_MAX_OPEN_CONN is required")
	}
	if !viper.IsSet("MARIADB_MAX_IDLE_CONNS") {
		return nil, fmt.Errorf("MARIADB_MAX_IDLE_CONNS is required")
	}
	if !viper.IsSet("MARIADB_CONN_MAX_LIFETIME") {
		return nil, fmt.Errorf("MARIADB_CONN_MAX_LIFETIME is required")
	}
	if !viper.IsSet("SERVER_PORT") {
		return nil, fmt.Errorf("SERVER_PORT is required")
	}
	if !viper.IsSet("STORAGE_BUCKET") {
		return nil, fmt.Errorf("STORAGE_BUCKET is required")
	}

	driver := strings.ToLower(viper.GetString("STORAGE_DRIVER"))
	switch driver {
	case StorageDriverMinio:
		if !viper.IsSet("MINIO_ENDPOINT") {
			return nil, fmt.Errorf("MINIO_ENDPOINT is required")
		}
		if !viper.IsSet("MINIO_ACCESS_KEY") {
			return nil, fmt.Errorf("MINIO_ACCESS_KEY is required")
		}
		if !viper.IsSet("MINIO_SECRET_KEY") {
			return nil, fmt.Errorf("MINIO_SECRET_KEY is required")
		}
	case StorageDriverS3:
		if !viper.IsSet("S3_REGION") {
			return nil, fmt.Errorf("S3_REGION is required")
		}
	default:
		return nil, fmt.Errorf("STORAGE_DRIVER %q is not supported", driver)
	}

	delayMode := strings.ToLower(viper.GetString("UPLOAD_RETRY_DELAY_MODE"))
	if delayMode != RetryDelayModeFixed && delayMode != RetryDelayModeBreaker {
		return nil, fmt.Errorf("UPLOAD_RETRY_DELAY_MODE %q is not supported", delayMode)
	}

	return &Settings{
		AppEnv: viper.GetString("APP_ENV"),

		MariaDBDSN:      viper.GetString("MARIADB_DSN"),
		MaxOpenConns:    viper.GetInt("MARIADB_MAX_OPEN_CONN"),
		MaxIdleConns:    viper.GetInt("MARIADB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: time.Duration(viper.GetInt("MARIADB_CONN_MAX_LIFETIME")) * time.Second,
		ServerPort:      viper.GetInt("SERVER_PORT"),
		MaxConnections:  viper.GetInt("SERVER_MAX_CONNECTIONS"),

		StorageDriver:  driver,
		Bucket:         viper.GetString("STORAGE_BUCKET"),
		MinioEndpoint:  viper.GetString("MINIO_ENDPOINT"),
		MinioAccessKey: viper.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey: viper.GetString("MINIO_SECRET_KEY"),
		MinioUseSSL:    viper.GetBool("MINIO_USE_SSL"),
		S3Region:       viper.GetString("S3_REGION"),
		S3Endpoint:     viper.GetString("S3_ENDPOINT"),
		S3AccessKey:    viper.GetString("S3_ACCESS_KEY"),
		S3SecretKey:    viper.GetString("S3_SECRET_KEY"),
		S3UsePathStyle: viper.GetBool("S3_USE_PATH_STYLE"),

		RedisAddr:     viper.GetString("REDIS_ADDR"),
		RedisPassword: viper.GetString("REDIS_PASSWORD"),

		JWTPublicKey: viper.GetString("JWT_PUBLIC_KEY"),

		BreakerFailureThreshold: viper.GetInt("BREAKER_FAILURE_THRESHOLD"),
		BreakerCooldown:         time.Duration(viper.GetInt("BREAKER_COOLDOWN_MS")) * time.Millisecond,
		BreakerHalfOpenMaxCalls: viper.GetInt("BREAKER_HALF_OPEN_MAX_CALLS"),

		MaxRetries:      viper.GetInt("UPLOAD_MAX_RETRIES"),
		RetryDelay:      time.Duration(viper.GetInt("UPLOAD_RETRY_DELAY_SECONDS")) * time.Second,
		RetryDelayMode:  delayMode,
		FetchTimeout:    time.Duration(viper.GetInt("FETCH_TIMEOUT_SECONDS")) * time.Second,
		StorePutTimeout: time.Duration(viper.GetInt("STORE_PUT_TIMEOUT_SECONDS")) * time.Second,
		MaxUploadBytes:  viper.GetInt64("MAX_UPLOAD_SIZE_MB") * 1024 * 1024,
		MaxFilesPerKind: viper.GetInt("MAX_FILES_PER_FIELD"),
		KeyMaxLength:    viper.GetInt("KEY_MAX_LENGTH"),

		WorkerConcurrency: viper.GetInt("WORKER_CONCURRENCY"),
		OptimiseMedia:     viper.GetBool("OPTIMISE_MEDIA"),
		BufferTTL:         time.Duration(viper.GetInt("BUFFER_TTL_HOURS")) * time.Hour,
		StatusCacheTTL:    time.Duration(viper.GetInt("STATUS_CACHE_TTL_SECONDS")) * time.Second,
		MetricsPort:       viper.GetInt("METRICS_PORT"),
	}, nil
}
