package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "ROULETTE"

type Config struct {
	Mode           string   `mapstructure:"mode"`
	Port           int      `mapstructure:"port"`
	StaticPath     string   `mapstructure:"static_path"`
	Secret         string   `mapstructure:"secret"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	SignalURL     string        `mapstructure:"signal_url"`
	AuthURL       string        `mapstructure:"auth_url"`
	VerifyTimeout time.Duration `mapstructure:"verify_timeout"`
	ICEServers    []string      `mapstructure:"ice_servers"`
	PingPeriod    time.Duration `mapstructure:"ping_period"`
	ReadLimit     int64         `mapstructure:"read_limit"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	PLIInterval   time.Duration `mapstructure:"pli_interval"`

	ChatRateLimit    int           `mapstructure:"chat_rate_limit"`
	ChatRateInterval time.Duration `mapstructure:"chat_rate_interval"`

	AudioPath string `mapstructure:"audio_path"`
	VideoPath string `mapstructure:"video_path"`
	RecordDir string `mapstructure:"record_dir"`
	LogLevel  string `mapstructure:"log_level"`

	Email     string   `mapstructure:"email"`
	Name      string   `mapstructure:"name"`
	Interests []string `mapstructure:"interests"`
}

// RegisterFlags declares one flag per key. Flag defaults stay empty so
// file, env and built-in defaults apply unless a flag is given.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.String("mode", "", "gin mode: debug or release (env: ROULETTE_MODE)")
	fs.IntP("port", "p", 0, "local control port (env: ROULETTE_PORT)")
	fs.String("static-path", "", "directory served as the local UI (env: ROULETTE_STATIC_PATH)")
	fs.String("secret", "", "cookie store secret (env: ROULETTE_SECRET)")
	fs.StringSlice("allowed-origins", nil, "CORS origins for the control API (env: ROULETTE_ALLOWED_ORIGINS)")
	fs.String("signal-url", "", "matchmaking WebSocket URL (env: ROULETTE_SIGNAL_URL)")
	fs.String("auth-url", "", "backend base URL for email verification (env: ROULETTE_AUTH_URL)")
	fs.Duration("verify-timeout", 0, "email verification timeout (env: ROULETTE_VERIFY_TIMEOUT)")
	fs.StringSlice("ice-servers", nil, "STUN/TURN URLs (env: ROULETTE_ICE_SERVERS)")
	fs.Duration("ping-period", 0, "signaling keepalive period (env: ROULETTE_PING_PERIOD)")
	fs.Int64("read-limit", 0, "max inbound signaling frame size (env: ROULETTE_READ_LIMIT)")
	fs.Duration("write-timeout", 0, "signaling write deadline (env: ROULETTE_WRITE_TIMEOUT)")
	fs.Duration("pli-interval", 0, "keyframe request interval (env: ROULETTE_PLI_INTERVAL)")
	fs.Int("chat-rate-limit", 0, "chat messages allowed per interval (env: ROULETTE_CHAT_RATE_LIMIT)")
	fs.Duration("chat-rate-interval", 0, "chat rate window (env: ROULETTE_CHAT_RATE_INTERVAL)")
	fs.String("audio-path", "", "Ogg/Opus file used as microphone (env: ROULETTE_AUDIO_PATH)")
	fs.String("video-path", "", "IVF file used as camera (env: ROULETTE_VIDEO_PATH)")
	fs.String("record-dir", "", "directory to record the remote peer's media into; empty disables recording (env: ROULETTE_RECORD_DIR)")
	fs.String("log-level", "", "zerolog level (env: ROULETTE_LOG_LEVEL)")
	fs.StringP("email", "e", "", "email to verify and join with (env: ROULETTE_EMAIL)")
	fs.StringP("name", "n", "", "display name (env: ROULETTE_NAME)")
	fs.StringSlice("interests", nil, "matchmaking interests (env: ROULETTE_INTERESTS)")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "roulette-dev-secret")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("signal_url", "ws://localhost:3000/ws")
	v.SetDefault("auth_url", "http://localhost:3000")
	v.SetDefault("verify_timeout", "10s")
	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("ping_period", "25s")
	v.SetDefault("read_limit", 1<<20)
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("pli_interval", "3s")
	v.SetDefault("chat_rate_limit", 5)
	v.SetDefault("chat_rate_interval", "3s")
	v.SetDefault("audio_path", "")
	v.SetDefault("video_path", "")
	v.SetDefault("record_dir", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("email", "")
	v.SetDefault("name", "User")
	v.SetDefault("interests", []string{})
}

// Load merges defaults, config/config.<CONFIG_ENV>.yaml, ROULETTE_* env vars
// and the changed flags of fs, in increasing priority.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	if fs != nil {
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				_ = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
			}
		})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("signal_url", cfg.SignalURL).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return errors.New("email is required (--email or ROULETTE_EMAIL)")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.SignalURL == "" {
		return errors.New("signal_url is required")
	}
	if c.Mode != "debug" && c.Mode != "release" {
		return fmt.Errorf("invalid mode %q (debug or release)", c.Mode)
	}
	return nil
}
