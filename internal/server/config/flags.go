package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/docusigner/internal/flagx"
)

var serverFlags = []string{"-a", "-m", "-d", "-s", "-t", "-i", "-l", "-f", "-o", "-w", "-u", "-p", "-b", "-g", "-e", "-x", "-n", "-y"}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   REST bind address (e.g., ":8080")
//	-m string   gRPC health bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-i int      invite link validity, hours
//	-l string   client URL used in invite links
//	-f string   fonts directory
//	-o string   storage backend ("disk" or "s3")
//	-w string   upload directory for the disk backend
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-x string   SMTP host (empty logs mail instead of sending)
//	-n int      SMTP port
//	-y string   log backend ("slog" or "zap")
//
// Duration flags are whole minutes/hours converted to time.Duration.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run REST server")
	fs.StringVar(&config.EndpointAddrGRPC, "m", config.EndpointAddrGRPC, "address and port to run gRPC health server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	inviteValidity := fs.Int("i", int(config.InviteValidityDuration.Hours()), "invite_validity_duration (in hours)")

	fs.StringVar(&config.ClientURL, "l", config.ClientURL, "client URL for invite links")
	fs.StringVar(&config.FontsDir, "f", config.FontsDir, "fonts directory")
	fs.StringVar(&config.StorageBackend, "o", config.StorageBackend, "storage backend (disk|s3)")
	fs.StringVar(&config.UploadDir, "w", config.UploadDir, "upload directory")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.SMTPHost, "x", config.SMTPHost, "SMTP host")
	fs.IntVar(&config.SMTPPort, "n", config.SMTPPort, "SMTP port")
	fs.StringVar(&config.LogBackend, "y", config.LogBackend, "log backend (slog|zap)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
	config.InviteValidityDuration = time.Duration(*inviteValidity) * time.Hour
}
