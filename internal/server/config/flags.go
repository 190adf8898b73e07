package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/lifevault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   scheduler cron spec (e.g., "@every 1m")
//	-w int      worker count for the per-user fan-out
//	-g int      grace period, days
//	-t int      confirmation token TTL, days
//	-n string   notifier backend: log | smtp | amqp
//	-u string   public app base URL for verification links
//	-b string   S3 bucket name
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-demo       enable the simulate/force-tick demo endpoints
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes
//     using flagx.FilterArgs, avoiding collisions with other components.
//   - The token TTL is accepted as an integer in days and converted to a
//     time.Duration value.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:],
		[]string{"-a", "-d", "-s", "-w", "-g", "-t", "-n", "-u", "-b", "-e", "-demo"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.CheckSchedule, "s", config.CheckSchedule, "scheduler cron spec")
	fs.IntVar(&config.WorkerCount, "w", config.WorkerCount, "worker count")
	fs.IntVar(&config.GracePeriodDays, "g", config.GracePeriodDays, "grace period (in days)")

	tokenTTLDays := fs.Int("t", int(config.TokenTTL.Hours()/24), "confirmation token TTL (in days)")

	fs.StringVar(&config.NotifierBackend, "n", config.NotifierBackend, "notifier backend: log|smtp|amqp")
	fs.StringVar(&config.AppBaseURL, "u", config.AppBaseURL, "public app base URL")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.BoolVar(&config.DemoEnabled, "demo", config.DemoEnabled, "enable demo endpoints")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenTTL = time.Duration(*tokenTTLDays) * 24 * time.Hour
}
