package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-d", "db", "-n", "4", "-m", "7",
			"-k", "s3", "-f", "/tmp/blobs",
			"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
			"-r", "redis:6379", "-q", "2.5", "-w", "10", "-t", "3", "-l", "debug", "-x",
		}, expectPanic: false,
			expected: &Config{
				EndpointAddrHTTP:   "127.0.0.1:9090",
				DatabaseDSN:        "db",
				PoolSize:           4,
				MaxLeaseAttempts:   7,
				BlobBackend:        "s3",
				BlobDir:            "/tmp/blobs",
				S3RootUser:         "user",
				S3RootPassword:     "password",
				S3Bucket:           "bucket",
				S3Region:           "us-west-1",
				S3BaseEndpoint:     "http://endpoint",
				RedisAddr:          "redis:6379",
				RegisterRPS:        2.5,
				RegisterBurst:      10,
				TrustXForwardedFor: true,
				ShutdownTimeout:    3 * time.Second,
				LogLevel:           "debug",
			}},
		{name: "foreign flags are ignored", args: []string{"cmd", "-c", "cfg.json", "-test.v", "-a", ":1"},
			expected: &Config{EndpointAddrHTTP: ":1"}},
		{name: "bad int panics", args: []string{"cmd", "-n", "many"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
