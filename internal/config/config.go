package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the typed view of configs/config.yml plus METER_* environment overrides.
type Config struct {
	Port         string             `mapstructure:"port"`
	WriteTimeout time.Duration      `mapstructure:"write_timeout"`
	Log          LogConfig          `mapstructure:"log"`
	DB           DBConfig           `mapstructure:"db"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity"`
	Validation   ValidationConfig   `mapstructure:"validation"`
	Capture      CaptureConfig      `mapstructure:"capture"`
	Lease        LeaseConfig        `mapstructure:"lease"`
	Extractors   ExtractorsConfig   `mapstructure:"extractors"`
	MQTT         MQTTConfig         `mapstructure:"mqtt"`
	Heartbeat    HeartbeatConfig    `mapstructure:"heartbeat"`
	WebSocket    WebSocketConfig    `mapstructure:"websocket"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

type ConnectivityConfig struct {
	FreshnessWindow time.Duration `mapstructure:"freshness_window"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
}

type ValidationConfig struct {
	// Strategy selects FOV/glare checks: "simulated" or "heuristic".
	Strategy               string  `mapstructure:"strategy"`
	OCRConfidenceThreshold float64 `mapstructure:"ocr_confidence_threshold"`
}

type CaptureConfig struct {
	Dir string `mapstructure:"dir"`
}

type LeaseConfig struct {
	// Dir enables cross-process session leases when set.
	Dir string `mapstructure:"dir"`
}

type ExtractorsConfig struct {
	Local  LocalOCRConfig  `mapstructure:"local"`
	Remote []RemoteBackend `mapstructure:"remote"`
	// CallTimeout bounds every single extractor call inside one consensus run.
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

type LocalOCRConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Binary   string `mapstructure:"binary"`
	Language string `mapstructure:"language"`
}

// RemoteBackend is one remote vision model. Order in the list is priority order.
type RemoteBackend struct {
	Name      string        `mapstructure:"name"`
	Provider  string        `mapstructure:"provider"` // openai | anthropic
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	APIKeyEnv string        `mapstructure:"api_key_env"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ResolvedAPIKey returns the inline key or the value of the named environment variable.
func (r RemoteBackend) ResolvedAPIKey() string {
	if key := strings.TrimSpace(r.APIKey); key != "" {
		return key
	}
	if env := strings.TrimSpace(r.APIKeyEnv); env != "" {
		return strings.TrimSpace(os.Getenv(env))
	}
	return ""
}

type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
}

type HeartbeatConfig struct {
	// APIKey, when set, must be sent by devices in the X-Device-Key header.
	APIKey string `mapstructure:"api_key"`
}

type WebSocketConfig struct {
	// AllowedOrigins lists browser origins allowed to open the status stream.
	// Empty allows any origin; requests without an Origin header are always allowed.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configs/config.yml (if present) from the given search paths and applies
// defaults and METER_* environment overrides.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	if len(paths) == 0 {
		paths = []string{"configs"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("METER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
