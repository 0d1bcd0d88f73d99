package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type EnvConfig map[string]string

var defaults = EnvConfig{
	"LISTEN_ADDR":       ":8080",
	"LOG_LEVEL":         "info",
	"STORE_BACKEND":     "mongo",
	"MONGODB_URI":       "mongodb://localhost:27017",
	"MONGODB_DATABASE":  "memereport",
	"REDIS_ADDR":        "redis://localhost:6379",
	"TELEGRAM_API_URL":  "https://api.telegram.org",
	"REDDIT_USER_AGENT": "lambda-roody-bot/0.1",
	"SUBREDDIT":         "memes",
	"SCRAPE_LIMIT":      "20",
	"REPORT_EXPECTED":   "20",
	"IMAGE_TIMEOUT":     "10s",
	"IMAGE_WORKERS":     "4",
}

type Config struct {
	ListenAddr string
	LogLevel   string

	StoreBackend    string
	MongoURI        string
	MongoDatabase   string
	PostgresDSN     string
	RedisAddr       string
	SecretKey       string
	BotToken        string
	WebhookSecret   string
	TelegramAPIURL  string
	RedditClientID  string
	RedditSecret    string
	RedditUserAgent string
	Subreddit       string

	ScrapeLimit    int
	ReportExpected int
	ImageTimeout   time.Duration
	ImageWorkers   int
}

// Read merges defaults, the optional dotenv files and the process
// environment, later sources winning.
func Read(files ...string) (EnvConfig, error) {
	env := EnvConfig{}
	for k, v := range defaults {
		env[k] = v
	}

	fromFile, err := godotenv.Read(files...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: failed reading dotenv: %w", err)
	}
	for k, v := range fromFile {
		env[k] = v
	}

	for k := range env {
		if v, ok := os.LookupEnv(k); ok {
			env[k] = v
		}
	}
	for _, k := range []string{"POSTGRES_DSN", "SECRET_KEY", "BOT_TOKEN", "TELEGRAM_WEBHOOK_SECRET", "REDDIT_CLIENT_ID", "REDDIT_CLIENT_SECRET"} {
		if v, ok := os.LookupEnv(k); ok {
			env[k] = v
		}
	}
	return env, nil
}

func Load(files ...string) (*Config, error) {
	env, err := Read(files...)
	if err != nil {
		return nil, err
	}
	return env.Parse()
}

func (env EnvConfig) Parse() (*Config, error) {
	cfg := &Config{
		ListenAddr:      env["LISTEN_ADDR"],
		LogLevel:        env["LOG_LEVEL"],
		StoreBackend:    env["STORE_BACKEND"],
		MongoURI:        env["MONGODB_URI"],
		MongoDatabase:   env["MONGODB_DATABASE"],
		PostgresDSN:     env["POSTGRES_DSN"],
		RedisAddr:       env["REDIS_ADDR"],
		SecretKey:       env["SECRET_KEY"],
		BotToken:        env["BOT_TOKEN"],
		WebhookSecret:   env["TELEGRAM_WEBHOOK_SECRET"],
		TelegramAPIURL:  env["TELEGRAM_API_URL"],
		RedditClientID:  env["REDDIT_CLIENT_ID"],
		RedditSecret:    env["REDDIT_CLIENT_SECRET"],
		RedditUserAgent: env["REDDIT_USER_AGENT"],
		Subreddit:       env["SUBREDDIT"],
	}

	var err error
	if cfg.ScrapeLimit, err = env.positiveInt("SCRAPE_LIMIT"); err != nil {
		return nil, err
	}
	if cfg.ReportExpected, err = env.positiveInt("REPORT_EXPECTED"); err != nil {
		return nil, err
	}
	if cfg.ImageWorkers, err = env.positiveInt("IMAGE_WORKERS"); err != nil {
		return nil, err
	}
	if cfg.ImageTimeout, err = time.ParseDuration(env["IMAGE_TIMEOUT"]); err != nil {
		return nil, fmt.Errorf("config: IMAGE_TIMEOUT: %w", err)
	}

	switch cfg.StoreBackend {
	case "mongo":
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, errors.New("config: POSTGRES_DSN is required for the postgres backend")
		}
	default:
		return nil, fmt.Errorf("config: unsupported STORE_BACKEND %q", cfg.StoreBackend)
	}
	return cfg, nil
}

func (env EnvConfig) positiveInt(key string) (int, error) {
	n, err := strconv.Atoi(env[key])
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("config: %s must be positive, got %d", key, n)
	}
	return n, nil
}
