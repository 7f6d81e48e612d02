package config

import "time"

const (
	TokenEnvName  = "EVIDENCE_TOKEN"
	ServerEnvName = "EVIDENCE_SERVER"
)

// Config holds runtime settings for evidencectl.
//
// Fields:
//   - ServerURL: base URL of the evidence HTTP API.
//   - Timeout: per-request timeout, including the upload body.
//   - Token: bearer token; empty means "ask".
type Config struct {
	ServerURL string
	Timeout   time.Duration
	Token     string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.Timeout = 2 * time.Minute
	c.Token = ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and the environment. Command-line flags are applied by
// the cobra commands on top of this.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	return cfg
}
