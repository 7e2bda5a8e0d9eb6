package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Browser   BrowserConfig
	Storage   StorageConfig
	Presets   PresetsConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

// AuthConfig enables optional bearer auth on /api when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string
}

// RedisConfig backs the per-user rate limiter. Rate limiting is skipped
// entirely when Addr is empty.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	GeneratePerHour int
	UploadPerHour   int
	DownloadPerHour int
}

// BrowserConfig tunes the automation session against the remote UI.
// Durations are expressed in seconds in config/env.
type BrowserConfig struct {
	RemoteURL     string
	ExecPath      string        // empty = let chromedp find a browser
	UserDataDir   string        // reuse an existing Chrome profile for login
	Headless      bool
	ReadyTimeout  time.Duration // max wait for the composer after navigate
	GenTimeout    time.Duration // ceiling for one generation to finish
	UploadSettle  time.Duration // per-attachment pause after file upload
	RenderSettle  time.Duration // pause after the busy indicator clears
	ItemSettle    time.Duration // pause between consecutive items
	InputAttempts int           // composer lookup rounds before giving up
}

type StorageConfig struct {
	UploadDir string
	OutputDir string
}

type PresetsConfig struct {
	Path string
}

func Load() (*Config, error) {
	readSecret("REDIS_PASSWORD")
	readSecret("AUTH_JWT_SECRET")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("ratelimit.generate_per_hour", "RATELIMIT_GENERATE_PER_HOUR")
	_ = viper.BindEnv("ratelimit.upload_per_hour", "RATELIMIT_UPLOAD_PER_HOUR")
	_ = viper.BindEnv("ratelimit.download_per_hour", "RATELIMIT_DOWNLOAD_PER_HOUR")
	_ = viper.BindEnv("browser.remote_url", "BROWSER_REMOTE_URL")
	_ = viper.BindEnv("browser.exec_path", "BROWSER_EXEC_PATH")
	_ = viper.BindEnv("browser.user_data_dir", "BROWSER_USER_DATA_DIR")
	_ = viper.BindEnv("browser.headless", "BROWSER_HEADLESS")
	_ = viper.BindEnv("browser.ready_timeout", "BROWSER_READY_TIMEOUT")
	_ = viper.BindEnv("browser.gen_timeout", "BROWSER_GEN_TIMEOUT")
	_ = viper.BindEnv("browser.upload_settle", "BROWSER_UPLOAD_SETTLE")
	_ = viper.BindEnv("browser.render_settle", "BROWSER_RENDER_SETTLE")
	_ = viper.BindEnv("browser.item_settle", "BROWSER_ITEM_SETTLE")
	_ = viper.BindEnv("browser.input_attempts", "BROWSER_INPUT_ATTEMPTS")
	_ = viper.BindEnv("storage.upload_dir", "UPLOAD_DIR")
	_ = viper.BindEnv("storage.output_dir", "OUTPUT_DIR")
	_ = viper.BindEnv("presets.path", "PRESETS_PATH")

	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("ratelimit.generate_per_hour", 10)
	viper.SetDefault("ratelimit.upload_per_hour", 50)
	viper.SetDefault("ratelimit.download_per_hour", 200)

	// Browser defaults mirror the cadence the remote UI tolerates: a long
	// login window, a 15 minute generation ceiling, generous settles.
	viper.SetDefault("browser.remote_url", "https://chat.openai.com")
	viper.SetDefault("browser.exec_path", "")
	viper.SetDefault("browser.user_data_dir", "")
	viper.SetDefault("browser.headless", false)
	viper.SetDefault("browser.ready_timeout", 600)
	viper.SetDefault("browser.gen_timeout", 900)
	viper.SetDefault("browser.upload_settle", 3)
	viper.SetDefault("browser.render_settle", 30)
	viper.SetDefault("browser.item_settle", 3)
	viper.SetDefault("browser.input_attempts", 3)

	viper.SetDefault("storage.upload_dir", "uploads")
	viper.SetDefault("storage.output_dir", "output")
	viper.SetDefault("presets.path", "presets.json")

	// Config file is optional
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Auth: AuthConfig{
			JWTSecret: viper.GetString("auth.jwt_secret"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerHour: viper.GetInt("ratelimit.generate_per_hour"),
			UploadPerHour:   viper.GetInt("ratelimit.upload_per_hour"),
			DownloadPerHour: viper.GetInt("ratelimit.download_per_hour"),
		},
		Browser: BrowserConfig{
			RemoteURL:     viper.GetString("browser.remote_url"),
			ExecPath:      viper.GetString("browser.exec_path"),
			UserDataDir:   viper.GetString("browser.user_data_dir"),
			Headless:      viper.GetBool("browser.headless"),
			ReadyTimeout:  time.Duration(viper.GetInt("browser.ready_timeout")) * time.Second,
			GenTimeout:    time.Duration(viper.GetInt("browser.gen_timeout")) * time.Second,
			UploadSettle:  time.Duration(viper.GetInt("browser.upload_settle")) * time.Second,
			RenderSettle:  time.Duration(viper.GetInt("browser.render_settle")) * time.Second,
			ItemSettle:    time.Duration(viper.GetInt("browser.item_settle")) * time.Second,
			InputAttempts: viper.GetInt("browser.input_attempts"),
		},
		Storage: StorageConfig{
			UploadDir: viper.GetString("storage.upload_dir"),
			OutputDir: viper.GetString("storage.output_dir"),
		},
		Presets: PresetsConfig{
			Path: viper.GetString("presets.path"),
		},
	}

	return cfg, nil
}
