package config

import (
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/filmlog/internal/codec"
	"github.com/spf13/viper"
)

const (
	envPrefix            = "FILMLOG"
	defaultHTTPAddress   = "127.0.0.1:8080"
	defaultDatabasePath  = "filmlog.db"
	defaultExportDir     = "exports"
	defaultExportPrefix  = "roll"
	defaultTimeZone      = "Local"
	defaultLogLevel      = "info"
	defaultExiftool      = "exiftool"
	defaultArchiveBucket = "filmlog-exports"
)

// AppConfig captures runtime configuration for the filmlog binary.
type AppConfig struct {
	HTTPAddress    string
	DatabasePath   string
	ExportDir      string
	ExportPrefix   string
	TimeZone       string
	LogLevel       string
	LogDevelopment bool
	Archive        ArchiveConfig
	Sidecar        SidecarConfig
}

// ArchiveConfig locates the optional S3-compatible mirror for exports.
type ArchiveConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether exports should be mirrored.
func (c ArchiveConfig) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// SidecarConfig configures the exiftool invocation.
type SidecarConfig struct {
	Exiftool   string
	ConfigPath string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("export.dir", defaultExportDir)
	configViper.SetDefault("export.prefix", defaultExportPrefix)
	configViper.SetDefault("time.zone", defaultTimeZone)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.development", false)
	configViper.SetDefault("archive.endpoint", "")
	configViper.SetDefault("archive.access_key", "")
	configViper.SetDefault("archive.secret_key", "")
	configViper.SetDefault("archive.bucket", defaultArchiveBucket)
	configViper.SetDefault("archive.use_ssl", true)
	configViper.SetDefault("sidecar.exiftool", defaultExiftool)
	configViper.SetDefault("sidecar.config", "")
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		DatabasePath:   configViper.GetString("database.path"),
		ExportDir:      configViper.GetString("export.dir"),
		ExportPrefix:   configViper.GetString("export.prefix"),
		TimeZone:       configViper.GetString("time.zone"),
		LogLevel:       configViper.GetString("log.level"),
		LogDevelopment: configViper.GetBool("log.development"),
		Archive: ArchiveConfig{
			Endpoint:  configViper.GetString("archive.endpoint"),
			AccessKey: configViper.GetString("archive.access_key"),
			SecretKey: configViper.GetString("archive.secret_key"),
			Bucket:    configViper.GetString("archive.bucket"),
			UseSSL:    configViper.GetBool("archive.use_ssl"),
		},
		Sidecar: SidecarConfig{
			Exiftool:   configViper.GetString("sidecar.exiftool"),
			ConfigPath: configViper.GetString("sidecar.config"),
		},
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.ExportDir) == "" {
		return fmt.Errorf("export.dir is required")
	}
	if strings.ContainsAny(c.ExportPrefix, `/\`) {
		return fmt.Errorf("export.prefix must not contain path separators")
	}
	if _, err := codec.LoadDateCodec(c.TimeZone); err != nil {
		return fmt.Errorf("time.zone: %w", err)
	}
	if c.Archive.Enabled() && strings.TrimSpace(c.Archive.Bucket) == "" {
		return fmt.Errorf("archive.bucket is required when archive.endpoint is set")
	}
	return nil
}
