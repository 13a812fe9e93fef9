package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/slotkeeper/internal/flagx"
)

var allowedFlags = []string{
	"-a", "-d", "-n", "-m", "-k", "-f",
	"-u", "-p", "-b", "-g", "-e",
	"-r", "-q", "-w", "-x", "-t", "-l",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-n int      slot pool size per registered entry
//	-m int      max compare-and-swap attempts per lease operation
//	-k string   blob backend: fs, s3 or redis
//	-f string   blob directory for the fs backend
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-r string   Redis address
//	-q float    registrations per second per client IP
//	-w int      registration burst per client IP
//	-x bool     trust X-Forwarded-For
//	-t int      shutdown timeout, seconds
//	-l string   log level
//
// os.Args is first filtered with flagx.FilterArgs so that flags owned by
// other components (-c/-config) do not make parsing fail.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], allowedFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.IntVar(&config.PoolSize, "n", config.PoolSize, "slot pool size")
	fs.IntVar(&config.MaxLeaseAttempts, "m", config.MaxLeaseAttempts, "max lease attempts")
	fs.StringVar(&config.BlobBackend, "k", config.BlobBackend, "blob backend (fs, s3, redis)")
	fs.StringVar(&config.BlobDir, "f", config.BlobDir, "blob directory")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.Float64Var(&config.RegisterRPS, "q", config.RegisterRPS, "registrations per second per IP")
	fs.IntVar(&config.RegisterBurst, "w", config.RegisterBurst, "registration burst per IP")
	fs.BoolVar(&config.TrustXForwardedFor, "x", config.TrustXForwardedFor, "trust X-Forwarded-For")
	shutdownTimeout := fs.Int("t", int(config.ShutdownTimeout.Seconds()), "shutdown timeout (in seconds)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.ShutdownTimeout = time.Duration(*shutdownTimeout) * time.Second
}
