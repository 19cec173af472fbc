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
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	DB struct {
		DSN string
	}
	Logging struct {
		Dir   string
		Level string
	}
	SMS struct {
		AccountSID string
		AuthToken  string
		FromNumber string
	}
	Email struct {
		SMTPServer string
		SMTPPort   int
		Username   string
		Password   string
		FromName   string
	}
	Push struct {
		CredentialsFile string
	}
	Telegram struct {
		BotToken  string
		RateLimit int
	}
	Geocoding struct {
		APIKey  string
		Timeout time.Duration
	}
	Scoring struct {
		URL string
	}
	API struct {
		Port     string
		BasePath string
	}
	Notification struct {
		QueueSize      int
		MaxWorkers     int
		MaxConcurrency int
		SendTimeout    time.Duration
	}
	Realtime struct {
		MaxSessionsPerUser int
	}
	Thresholds struct {
		Overall float64
		Mood    float64
		Journal float64
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	cfg.DB.DSN = os.Getenv("DB_DSN")

	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Twilio settings
	cfg.SMS.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	cfg.SMS.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	cfg.SMS.FromNumber = os.Getenv("TWILIO_PHONE_NUMBER")

	// Email settings
	cfg.Email.SMTPServer = os.Getenv("EMAIL_SMTP_SERVER")
	cfg.Email.SMTPPort = intEnv("EMAIL_SMTP_PORT")
	cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")
	cfg.Email.FromName = os.Getenv("EMAIL_FROM_NAME")

	cfg.Push.CredentialsFile = os.Getenv("FIREBASE_CREDENTIALS_FILE")

	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.Telegram.RateLimit = intEnv("TELEGRAM_RATE_LIMIT")

	cfg.Geocoding.APIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	cfg.Geocoding.Timeout = durationEnv("GEOCODING_TIMEOUT")

	cfg.Scoring.URL = os.Getenv("SCORING_SERVICE_URL")

	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	// Notification worker settings
	cfg.Notification.QueueSize = intEnv("QUEUE_SIZE")
	cfg.Notification.MaxWorkers = intEnv("MAX_WORKERS")
	cfg.Notification.MaxConcurrency = intEnv("MAX_CONTACT_CONCURRENCY")
	cfg.Notification.SendTimeout = durationEnv("SEND_TIMEOUT")

	cfg.Realtime.MaxSessionsPerUser = intEnv("MAX_SESSIONS_PER_USER")

	cfg.Thresholds.Overall = floatEnv("THRESHOLD_OVERALL")
	cfg.Thresholds.Mood = floatEnv("THRESHOLD_MOOD")
	cfg.Thresholds.Journal = floatEnv("THRESHOLD_JOURNAL")

	// Validate required settings
	missing := []string{}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills every unset tunable with its default value.
func (c *Config) ApplyDefaults() {
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "health-scores"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "alert-service"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Telegram.RateLimit == 0 {
		c.Telegram.RateLimit = 25
	}
	if c.Geocoding.Timeout == 0 {
		c.Geocoding.Timeout = 2 * time.Second
	}
	if c.API.Port == "" {
		c.API.Port = ":8080"
	}
	if c.API.BasePath == "" {
		c.API.BasePath = "/api/v1"
	}
	if c.Notification.QueueSize == 0 {
		c.Notification.QueueSize = 500
	}
	if c.Notification.MaxWorkers == 0 {
		c.Notification.MaxWorkers = 10
	}
	if c.Notification.MaxConcurrency == 0 {
		c.Notification.MaxConcurrency = 4
	}
	if c.Notification.SendTimeout == 0 {
		c.Notification.SendTimeout = 10 * time.Second
	}
	if c.Realtime.MaxSessionsPerUser == 0 {
		c.Realtime.MaxSessionsPerUser = 10
	}
	if c.Thresholds.Overall == 0 {
		c.Thresholds.Overall = 30
	}
	if c.Thresholds.Mood == 0 {
		c.Thresholds.Mood = 30
	}
	if c.Thresholds.Journal == 0 {
		c.Thresholds.Journal = 30
	}
}

func intEnv(key string) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return v
}

func floatEnv(key string) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return 0
	}
	return v
}

// durationEnv accepts Go duration strings ("5s", "250ms").
func durationEnv(key string) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return 0
	}
	return d
}
