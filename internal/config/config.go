package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Directory struct {
		Driver   string
		CacheTTL time.Duration
	}
	DB struct {
		DSN string
	}
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	API struct {
		Port string
	}
	Logging struct {
		Dir   string
		Level string
	}
	Dispatch struct {
		CallTimeout         time.Duration
		MaxConcurrentPushes int
		QueueSize           int
		MaxWorkers          int
		RegistryShards      int
	}
	Push struct {
		FirebaseCredentials string
		AndroidChannelID    string
		TelegramBotToken    string
		TelegramRateLimit   int
	}
	WebSocket struct {
		SendBuffer     int
		MaxMessageSize int64
	}
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}
	return fromEnv()
}

func fromEnv() (Config, error) {
	var cfg Config
	var errs []string

	cfg.Directory.Driver = os.Getenv("DIRECTORY_DRIVER")
	cfg.Directory.CacheTTL = durationEnv("DIRECTORY_CACHE_TTL", &errs)
	cfg.DB.DSN = os.Getenv("DB_DSN")

	// Kafka settings
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	cfg.API.Port = os.Getenv("API_PORT")
	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Dispatch settings
	cfg.Dispatch.CallTimeout = durationEnv("DISPATCH_CALL_TIMEOUT", &errs)
	cfg.Dispatch.MaxConcurrentPushes = intEnv("DISPATCH_MAX_CONCURRENT_PUSHES", &errs)
	cfg.Dispatch.QueueSize = intEnv("QUEUE_SIZE", &errs)
	cfg.Dispatch.MaxWorkers = intEnv("MAX_WORKERS", &errs)
	cfg.Dispatch.RegistryShards = intEnv("REGISTRY_SHARDS", &errs)

	// Push providers
	cfg.Push.FirebaseCredentials = os.Getenv("FIREBASE_CREDENTIALS_FILE")
	cfg.Push.AndroidChannelID = os.Getenv("FCM_ANDROID_CHANNEL_ID")
	cfg.Push.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.Push.TelegramRateLimit = intEnv("TELEGRAM_RATE_LIMIT", &errs)

	cfg.WebSocket.SendBuffer = intEnv("WS_SEND_BUFFER", &errs)
	cfg.WebSocket.MaxMessageSize = int64(intEnv("WS_MAX_MESSAGE_SIZE", &errs))

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configurations: %v", errs)
	}

	applyDefaults(&cfg)

	// Validate required settings
	missing := []string{}
	switch cfg.Directory.Driver {
	case DriverPostgres:
		if cfg.DB.DSN == "" {
			missing = append(missing, "DB_DSN")
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown DIRECTORY_DRIVER %q", cfg.Directory.Driver)
	}
	if cfg.Kafka.Broker != "" && cfg.Kafka.Topic == "" {
		missing = append(missing, "KAFKA_TOPIC")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Directory.Driver == "" {
		cfg.Directory.Driver = DriverPostgres
	}
	if cfg.Directory.CacheTTL == 0 {
		cfg.Directory.CacheTTL = 30 * time.Second
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "dispatch-service"
	}
	if cfg.API.Port == "" {
		cfg.API.Port = ":3000"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Dispatch.CallTimeout == 0 {
		cfg.Dispatch.CallTimeout = 5 * time.Second
	}
	if cfg.Dispatch.MaxConcurrentPushes == 0 {
		cfg.Dispatch.MaxConcurrentPushes = 64
	}
	if cfg.Dispatch.QueueSize == 0 {
		cfg.Dispatch.QueueSize = 500
	}
	if cfg.Dispatch.MaxWorkers == 0 {
		cfg.Dispatch.MaxWorkers = 10
	}
	if cfg.Dispatch.RegistryShards == 0 {
		cfg.Dispatch.RegistryShards = 16
	}
	if cfg.Push.AndroidChannelID == "" {
		cfg.Push.AndroidChannelID = "alerts"
	}
	if cfg.Push.TelegramRateLimit == 0 {
		cfg.Push.TelegramRateLimit = 25
	}
	if cfg.WebSocket.SendBuffer == 0 {
		cfg.WebSocket.SendBuffer = 64
	}
	if cfg.WebSocket.MaxMessageSize == 0 {
		cfg.WebSocket.MaxMessageSize = 4096
	}
}

func intEnv(key string, errs *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		*errs = append(*errs, key)
		return 0
	}
	return n
}

func durationEnv(key string, errs *[]string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		*errs = append(*errs, key)
		return 0
	}
	return d
}
