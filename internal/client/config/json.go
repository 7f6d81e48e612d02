package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/evidencevault/internal/flagx"
	"github.com/dmitrijs2005/evidencevault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent keys
// leave the current value untouched.
type JsonConfig struct {
	ServerURL *string         `json:"server_url"`
	Timeout   *timex.Duration `json:"timeout"`
	Token     *string         `json:"token"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c/-config or EVIDENCE_CONFIG. It panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != nil {
		cfg.ServerURL = *jc.ServerURL
	}
	if jc.Timeout != nil {
		cfg.Timeout = time.Duration(jc.Timeout.Duration)
	}
	if jc.Token != nil {
		cfg.Token = *jc.Token
	}
}

func parseEnv(cfg *Config) {
	if v := os.Getenv(ServerEnvName); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv(TokenEnvName); v != "" {
		cfg.Token = v
	}
}
