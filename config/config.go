package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix          = "GOODHABITS"
	placeholderKey     = "CHANGE_ME_IN_PRODUCTION"
	defaultOpenAIModel = "gpt-4o-mini"
)

type Config struct {
	AppName            string `mapstructure:"app_name"`
	ListenIP           string `mapstructure:"listen_ip"`
	ListenPort         int    `mapstructure:"listen_port"`
	SessionKey         string `mapstructure:"session_key"`
	SecureCookies      bool   `mapstructure:"secure_cookies"`
	DatabasePath       string `mapstructure:"database_path"`
	BusyTimeoutMS      int    `mapstructure:"busy_timeout_ms"`
	LogLevel           string `mapstructure:"log_level"`
	LogFile            string `mapstructure:"log_file"`
	OpenAIAPIKey       string `mapstructure:"openai_api_key"`
	OpenAIModel        string `mapstructure:"openai_model"`
	OpenAIBaseURL      string `mapstructure:"openai_base_url"`
	ChatTimeoutSeconds int    `mapstructure:"chat_timeout_seconds"`
}

var AppConfig Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "Good Habits")
	v.SetDefault("listen_ip", "127.0.0.1")
	v.SetDefault("listen_port", 8080)
	v.SetDefault("session_key", "")
	v.SetDefault("secure_cookies", false)
	v.SetDefault("database_path", "./goodhabits.db")
	v.SetDefault("busy_timeout_ms", 5000)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_model", defaultOpenAIModel)
	v.SetDefault("openai_base_url", "")
	v.SetDefault("chat_timeout_seconds", 30)
}

// LoadConfig fills AppConfig from defaults, an optional config file and
// GOODHABITS_* environment variables, in increasing order of precedence.
// A .env file in the working directory is loaded into the environment first.
func LoadConfig(path string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("Could not read .env file", "err", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	// If no key is provided or it's the placeholder, generate a secure random one
	if cfg.SessionKey == "" || cfg.SessionKey == placeholderKey {
		log.Warn("No session key configured. Generating a random key. Sessions will be invalidated on restart.")
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err != nil {
			return err
		}
		cfg.SessionKey = hex.EncodeToString(randomKey)
	}

	AppConfig = cfg
	return nil
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ListenIP, c.ListenPort)
}
