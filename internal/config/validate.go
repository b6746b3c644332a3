package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate reports configuration that cannot be used at all. Missing remote
// credentials are not an error: such backends simply never produce a value.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Auth.SigningKey) == "" {
		problems = append(problems, "auth.signing_key is required")
	}
	switch c.Validation.Strategy {
	case StrategySimulated, StrategyHeuristic:
	default:
		problems = append(problems, fmt.Sprintf("validation.strategy %q is not one of simulated, heuristic", c.Validation.Strategy))
	}
	if c.Validation.OCRConfidenceThreshold > 1 {
		problems = append(problems, "validation.ocr_confidence_threshold must be within (0, 1]")
	}
	seen := make(map[string]struct{}, len(c.Extractors.Remote))
	for i, r := range c.Extractors.Remote {
		switch r.Provider {
		case "openai", "anthropic":
		default:
			problems = append(problems, fmt.Sprintf("extractors.remote[%d].provider %q is not one of openai, anthropic", i, r.Provider))
		}
		if strings.TrimSpace(r.Model) == "" {
			problems = append(problems, fmt.Sprintf("extractors.remote[%d].model is required", i))
		}
		if _, dup := seen[r.Name]; dup {
			problems = append(problems, fmt.Sprintf("extractors.remote[%d].name %q is duplicated", i, r.Name))
		}
		seen[r.Name] = struct{}{}
	}
	if c.MQTT.Enabled && strings.TrimSpace(c.MQTT.Broker) == "" {
		problems = append(problems, "mqtt.broker is required when mqtt.enabled is true")
	}
	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}
