package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/slotkeeper/internal/flagx"
	"github.com/dmitrijs2005/slotkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// "10s" style strings or integer nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP   string         `json:"endpoint_addr_http"`
	DatabaseDSN        string         `json:"database_dsn"`
	PoolSize           int            `json:"pool_size"`
	MaxLeaseAttempts   int            `json:"max_lease_attempts"`
	BlobBackend        string         `json:"blob_backend"`
	BlobDir            string         `json:"blob_dir"`
	S3RootUser         string         `json:"s3_root_user"`
	S3RootPassword     string         `json:"s3_root_password"`
	S3Bucket           string         `json:"s3_bucket"`
	S3Region           string         `json:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint"`
	S3Prefix           string         `json:"s3_prefix"`
	RedisAddr          string         `json:"redis_addr"`
	RedisPassword      string         `json:"redis_password"`
	RedisDB            int            `json:"redis_db"`
	RedisPrefix        string         `json:"redis_prefix"`
	RegisterRPS        float64        `json:"register_rps"`
	RegisterBurst      int            `json:"register_burst"`
	TrustXForwardedFor *bool          `json:"trust_x_forwarded_for"`
	ShutdownTimeout    timex.Duration `json:"shutdown_timeout"`
	LogLevel           string         `json:"log_level"`
}

// parseJson overlays the file named by -c/-config onto config. Fields absent
// from the file (zero values) keep their current value. A missing or invalid
// file panics: startup must not continue on a config the operator did not mean.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setInt(&config.PoolSize, c.PoolSize)
	setInt(&config.MaxLeaseAttempts, c.MaxLeaseAttempts)
	setString(&config.BlobBackend, c.BlobBackend)
	setString(&config.BlobDir, c.BlobDir)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3Prefix, c.S3Prefix)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setInt(&config.RedisDB, c.RedisDB)
	setString(&config.RedisPrefix, c.RedisPrefix)
	if c.RegisterRPS != 0 {
		config.RegisterRPS = c.RegisterRPS
	}
	setInt(&config.RegisterBurst, c.RegisterBurst)
	if c.TrustXForwardedFor != nil {
		config.TrustXForwardedFor = *c.TrustXForwardedFor
	}
	if c.ShutdownTimeout.Duration != 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
