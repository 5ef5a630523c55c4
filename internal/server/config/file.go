package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/docusigner/internal/flagx"
	"github.com/dmitrijs2005/docusigner/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Duration fields use
// timex.Duration, so "168h" and integer nanoseconds are both accepted.
// Zero values leave the corresponding Config field untouched.
type FileConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN                 string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                   string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	InviteValidityDuration      timex.Duration `json:"invite_validity_duration" yaml:"invite_validity_duration"`
	ClientURL                   string         `json:"client_url" yaml:"client_url"`
	FontsDir                    string         `json:"fonts_dir" yaml:"fonts_dir"`
	StorageBackend              string         `json:"storage_backend" yaml:"storage_backend"`
	UploadDir                   string         `json:"upload_dir" yaml:"upload_dir"`
	S3RootUser                  string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                    string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	SMTPHost                    string         `json:"smtp_host" yaml:"smtp_host"`
	SMTPPort                    int            `json:"smtp_port" yaml:"smtp_port"`
	SMTPUser                    string         `json:"smtp_user" yaml:"smtp_user"`
	SMTPPassword                string         `json:"smtp_password" yaml:"smtp_password"`
	MailFrom                    string         `json:"mail_from" yaml:"mail_from"`
	LogBackend                  string         `json:"log_backend" yaml:"log_backend"`
}

// parseFile overlays values from the file named by -c/-config (or the
// DOCUSIGNER_CONFIG environment variable). Files ending in .yaml or .yml
// are decoded as YAML, everything else as JSON. A missing or malformed
// file panics, as startup cannot continue with a half-read config.
func parseFile(config *Config) {

	configFile := flagx.ConfigFile()

	// nothing to load
	if configFile == "" {
		return
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		panic(err)
	}

	c := &FileConfig{}

	switch strings.ToLower(filepath.Ext(configFile)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.InviteValidityDuration.Duration > 0 {
		config.InviteValidityDuration = c.InviteValidityDuration.Duration
	}
	setString(&config.ClientURL, c.ClientURL)
	setString(&config.FontsDir, c.FontsDir)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.UploadDir, c.UploadDir)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort > 0 {
		config.SMTPPort = c.SMTPPort
	}
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.LogBackend, c.LogBackend)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
