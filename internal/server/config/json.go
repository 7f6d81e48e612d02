package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/evidencevault/internal/flagx"
	"github.com/dmitrijs2005/evidencevault/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Durations use
// timex.Duration so both "10s" and integer nanoseconds are accepted.
//
// Absent keys leave the corresponding Config field untouched, so a file may
// override only what it needs.
type JsonConfig struct {
	EndpointAddrHTTP *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN      *string         `json:"database_dsn"`
	SecretKey        *string         `json:"secret_key"`
	EncryptionKey    *string         `json:"encryption_key"`
	StorageBackend   *string         `json:"storage_backend"`
	StorageRoot      *string         `json:"storage_root"`
	S3RootUser       *string         `json:"s3_root_user"`
	S3RootPassword   *string         `json:"s3_root_password"`
	S3Bucket         *string         `json:"s3_bucket"`
	S3Region         *string         `json:"s3_region"`
	S3BaseEndpoint   *string         `json:"s3_base_endpoint"`
	S3Prefix         *string         `json:"s3_prefix"`
	MaxUploadBytes   *int64          `json:"max_upload_bytes"`
	SweepSchedule    *string         `json:"sweep_schedule"`
	LogBackend       *string         `json:"log_backend"`
	RateLimitRPS     *float64        `json:"rate_limit_rps"`
	RateLimitBurst   *int            `json:"rate_limit_burst"`
	ShutdownTimeout  *timex.Duration `json:"shutdown_timeout"`
	MemorySeedCases  []string        `json:"memory_seed_cases"`
}

// parseJson loads configuration values from the JSON file named by -c/-config
// (or EVIDENCE_CONFIG) into config. Nothing happens when no file is named.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.EncryptionKey, c.EncryptionKey)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.StorageRoot, c.StorageRoot)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3Prefix, c.S3Prefix)
	setString(&config.SweepSchedule, c.SweepSchedule)
	setString(&config.LogBackend, c.LogBackend)

	if c.MaxUploadBytes != nil {
		config.MaxUploadBytes = *c.MaxUploadBytes
	}
	if c.RateLimitRPS != nil {
		config.RateLimitRPS = *c.RateLimitRPS
	}
	if c.RateLimitBurst != nil {
		config.RateLimitBurst = *c.RateLimitBurst
	}
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	if c.MemorySeedCases != nil {
		config.MemorySeedCases = c.MemorySeedCases
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
