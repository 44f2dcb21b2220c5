package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	// Helper daemon
	HelperHost string `mapstructure:"HELPER_HOST" validate:"required"`
	HelperPort int    `mapstructure:"HELPER_PORT" validate:"min=1,max=65535"`

	// Settings store (sqlite path or postgres URL)
	DatabaseDSN     string `mapstructure:"DATABASE_DSN" validate:"required"`
	DatabaseRetries int    `mapstructure:"DATABASE_RETRIES" validate:"min=1"`

	// Downloads
	DownloadDir          string        `mapstructure:"DOWNLOAD_DIR" validate:"required"`
	DownloadSubfolder    string        `mapstructure:"DOWNLOAD_SUBFOLDER" validate:"required"`
	DownloadTimeout      time.Duration `mapstructure:"DOWNLOAD_TIMEOUT" validate:"gt=0"`
	DownloadPollInterval time.Duration `mapstructure:"DOWNLOAD_POLL_INTERVAL" validate:"gt=0"`

	// External tools
	FFmpegPath string `mapstructure:"FFMPEG_PATH"`
	YtDlpPath  string `mapstructure:"YTDLP_PATH"`

	OpenAIBaseURL string `mapstructure:"OPENAI_BASE_URL" validate:"required,url"`

	// Optional at-rest encryption of the stored API key
	EncryptionKey    string `mapstructure:"ENCRYPTION_KEY" validate:"omitempty,hexadecimal,len=64"`
	EncryptionCipher string `mapstructure:"ENCRYPTION_CIPHER" validate:"omitempty,oneof=chacha20-poly1305 xchacha20-poly1305 aes-256-gcm"`

	// Extension IDs allowed through CORS, comma separated. Empty allows any
	// extension origin while the helper is reached on a local or private host.
	ExtensionAllowedClientIDs string `mapstructure:"EXTENSION_ALLOWED_CLIENT_IDS"`

	// Require a pairing token on the daemon API
	RequirePairing bool `mapstructure:"REQUIRE_PAIRING"`

	// DevTools endpoint for live pages
	ChromeControlURL string `mapstructure:"CHROME_CONTROL_URL"`
}

// Addr is the helper's listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HelperHost, c.HelperPort)
}

// DownloadRoot is the directory every download lands in.
func (c Config) DownloadRoot() string {
	return filepath.Join(c.DownloadDir, c.DownloadSubfolder)
}

// AllowedClientIDs splits ExtensionAllowedClientIDs.
func (c Config) AllowedClientIDs() []string {
	var out []string
	for _, id := range strings.Split(c.ExtensionAllowedClientIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	val := reflect.ValueOf(c)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		if tag := typ.Field(i).Tag.Get("mapstructure"); tag != "" {
			_ = viper.BindEnv(tag)
		}
	}
}

func setDefaults() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	viper.SetDefault("HELPER_HOST", "127.0.0.1")
	viper.SetDefault("HELPER_PORT", 8765)
	viper.SetDefault("DATABASE_DSN", filepath.Join(home, ".browserutility", "settings.db"))
	viper.SetDefault("DATABASE_RETRIES", 10)
	viper.SetDefault("DOWNLOAD_DIR", filepath.Join(home, "Downloads"))
	viper.SetDefault("DOWNLOAD_SUBFOLDER", "BrowserUtility")
	viper.SetDefault("DOWNLOAD_TIMEOUT", 120*time.Second)
	viper.SetDefault("DOWNLOAD_POLL_INTERVAL", 500*time.Millisecond)
	viper.SetDefault("OPENAI_BASE_URL", "https://api.openai.com")
	viper.SetDefault("ENCRYPTION_CIPHER", "chacha20-poly1305")
}

func LoadConfig(ctx context.Context) (*Config, error) {
	bindEnv(Config{})
	viper.AutomaticEnv()
	setDefaults()

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	slog.Debug("Loaded configuration",
		"addr", cfg.Addr(),
		"download_root", cfg.DownloadRoot(),
		"encryption", cfg.EncryptionKey != "",
		"require_pairing", cfg.RequirePairing,
	)

	return &cfg, nil
}
