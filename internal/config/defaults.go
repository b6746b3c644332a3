package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPort                   = "8080"
	DefaultWriteTimeout           = 2 * time.Minute
	DefaultDBPath                 = "app.db"
	DefaultFreshnessWindow        = 5 * time.Minute
	DefaultSweepInterval          = 30 * time.Second
	DefaultOCRConfidenceThreshold = 0.7
	DefaultCallTimeout            = 20 * time.Second
	DefaultTokenTTL               = time.Hour
	DefaultMQTTTopic              = "v1/devices/me/telemetry"
	DefaultCaptureDir             = "uploads"

	// MaxRemoteBackends caps the number of remote vision backends used by consensus.
	MaxRemoteBackends = 3
)

// Validation strategies.
const (
	StrategySimulated = "simulated"
	StrategyHeuristic = "heuristic"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("write_timeout", DefaultWriteTimeout)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("db.path", DefaultDBPath)
	v.SetDefault("auth.token_ttl", DefaultTokenTTL)
	v.SetDefault("connectivity.freshness_window", DefaultFreshnessWindow)
	v.SetDefault("connectivity.sweep_interval", DefaultSweepInterval)
	v.SetDefault("validation.strategy", StrategySimulated)
	v.SetDefault("validation.ocr_confidence_threshold", DefaultOCRConfidenceThreshold)
	v.SetDefault("capture.dir", DefaultCaptureDir)
	v.SetDefault("extractors.call_timeout", DefaultCallTimeout)
	v.SetDefault("extractors.local.enabled", true)
	v.SetDefault("extractors.local.binary", "tesseract")
	v.SetDefault("extractors.local.language", "eng")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.topic", DefaultMQTTTopic)
	v.SetDefault("mqtt.client_id", "meter-reading")
	v.SetDefault("websocket.allowed_origins", []string{})
}

func normalize(cfg *Config) {
	cfg.Port = strings.TrimSpace(cfg.Port)
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = DefaultDBPath
	}
	if cfg.Connectivity.FreshnessWindow <= 0 {
		cfg.Connectivity.FreshnessWindow = DefaultFreshnessWindow
	}
	if cfg.Connectivity.SweepInterval <= 0 {
		cfg.Connectivity.SweepInterval = DefaultSweepInterval
	}
	if cfg.Validation.OCRConfidenceThreshold <= 0 {
		cfg.Validation.OCRConfidenceThreshold = DefaultOCRConfidenceThreshold
	}
	cfg.Validation.Strategy = strings.ToLower(strings.TrimSpace(cfg.Validation.Strategy))
	if cfg.Validation.Strategy == "" {
		cfg.Validation.Strategy = StrategySimulated
	}
	if cfg.Extractors.CallTimeout <= 0 {
		cfg.Extractors.CallTimeout = DefaultCallTimeout
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = DefaultTokenTTL
	}
	if strings.TrimSpace(cfg.MQTT.Topic) == "" {
		cfg.MQTT.Topic = DefaultMQTTTopic
	}
	for i := range cfg.Extractors.Remote {
		r := &cfg.Extractors.Remote[i]
		r.Provider = strings.ToLower(strings.TrimSpace(r.Provider))
		r.Name = strings.TrimSpace(r.Name)
		if r.Name == "" {
			r.Name = r.Provider + ":" + strings.TrimSpace(r.Model)
		}
	}
}
