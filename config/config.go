package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"apiworkbench/store"
	"apiworkbench/utils"
)

type Config struct {
	Port string
	Env  string

	StorageDriver string
	DatabaseURL   string
	MongoURI      string
	DatabaseName  string

	ExecutionTimeout time.Duration

	HistoryRetention       time.Duration
	HistoryCleanupInterval time.Duration

	B2ApplicationKeyID string
	B2ApplicationKey   string
	B2BucketName       string

	AllowedOrigins []string

	LogLevel  string
	LogFormat string
}

var AppConfig *Config

// SetDefaults registers every key with its default so AutomaticEnv and
// bound flags can see it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("env", "development")
	v.SetDefault("storage_driver", store.DriverSQLite)
	v.SetDefault("database_url", "file:apiworkbench.db?cache=shared&_fk=1")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("database_name", "apiworkbench")
	v.SetDefault("execution_timeout", "30s")
	v.SetDefault("history_retention", "0s")
	v.SetDefault("history_cleanup_interval", "1h")
	v.SetDefault("b2_application_key_id", "")
	v.SetDefault("b2_application_key", "")
	v.SetDefault("b2_bucket_name", "")
	v.SetDefault("allowed_origins", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// NewViper returns a viper instance reading defaults, an optional config
// file and the environment. cfgFile may be empty to search for
// apiworkbench.yaml in the working directory.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("apiworkbench")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

// Load builds a Config from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port: v.GetString("port"),
		Env:  v.GetString("env"),

		StorageDriver: strings.ToLower(v.GetString("storage_driver")),
		DatabaseURL:   v.GetString("database_url"),
		MongoURI:      v.GetString("mongo_uri"),
		DatabaseName:  v.GetString("database_name"),

		ExecutionTimeout: v.GetDuration("execution_timeout"),

		HistoryRetention:       v.GetDuration("history_retention"),
		HistoryCleanupInterval: v.GetDuration("history_cleanup_interval"),

		B2ApplicationKeyID: v.GetString("b2_application_key_id"),
		B2ApplicationKey:   v.GetString("b2_application_key"),
		B2BucketName:       v.GetString("b2_bucket_name"),

		AllowedOrigins: parseStringSlice(v.GetString("allowed_origins")),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig loads .env, reads configuration and stores it in AppConfig.
// Flags in flags override every other source once they are set; a flag
// named storage-driver binds to the storage_driver key.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	LoadEnvFile()

	v, err := NewViper(cfgFile)
	if err != nil {
		return nil, err
	}
	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}
	cfg, err := Load(v)
	if err != nil {
		return nil, err
	}
	AppConfig = cfg
	return cfg, nil
}

// LoadEnvFile loads the first .env found in the working directory or one of
// its two parents. Variables already set in the process win.
func LoadEnvFile() string {
	pwd, err := os.Getwd()
	if err != nil {
		utils.LogWarning("could not get working directory", "error", err)
		return ""
	}

	for dir, i := pwd, 0; i < 3; dir, i = filepath.Dir(dir), i+1 {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err != nil {
			utils.LogWarning("failed to load .env", "path", envPath, "error", err)
			continue
		}
		return envPath
	}
	return ""
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if !slices.Contains(store.Drivers, c.StorageDriver) {
		return fmt.Errorf("unknown STORAGE_DRIVER %q (want one of %s)", c.StorageDriver, strings.Join(store.Drivers, ", "))
	}
	if c.ExecutionTimeout <= 0 {
		return fmt.Errorf("EXECUTION_TIMEOUT must be positive, got %v", c.ExecutionTimeout)
	}
	if c.HistoryRetention < 0 {
		return fmt.Errorf("HISTORY_RETENTION must not be negative, got %v", c.HistoryRetention)
	}
	if c.HistoryRetention > 0 && c.HistoryCleanupInterval <= 0 {
		return fmt.Errorf("HISTORY_CLEANUP_INTERVAL must be positive when HISTORY_RETENTION is set")
	}

	var missing []string
	b2 := map[string]string{
		"B2_APPLICATION_KEY_ID": c.B2ApplicationKeyID,
		"B2_APPLICATION_KEY":    c.B2ApplicationKey,
		"B2_BUCKET_NAME":        c.B2BucketName,
	}
	for key, value := range b2 {
		if value == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 && len(missing) < len(b2) {
		slices.Sort(missing)
		return fmt.Errorf("incomplete B2 configuration, missing %s", strings.Join(missing, ", "))
	}

	return nil
}

// ArchivalEnabled reports whether expired history is uploaded to B2.
func (c *Config) ArchivalEnabled() bool {
	return c.B2ApplicationKeyID != "" && c.B2ApplicationKey != "" && c.B2BucketName != ""
}

func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Driver:       c.StorageDriver,
		DatabaseURL:  c.DatabaseURL,
		MongoURI:     c.MongoURI,
		DatabaseName: c.DatabaseName,
	}
}

// LogConfig writes the effective configuration with secrets masked.
func (c *Config) LogConfig() {
	utils.LogInfo("configuration loaded",
		"port", c.Port,
		"env", c.Env,
		"storage_driver", c.StorageDriver,
		"database_url", maskConnectionString(c.DatabaseURL),
		"mongo_uri", maskConnectionString(c.MongoURI),
		"database_name", c.DatabaseName,
		"execution_timeout", c.ExecutionTimeout,
		"history_retention", c.HistoryRetention,
		"history_cleanup_interval", c.HistoryCleanupInterval,
		"b2_key_id", maskSecret(c.B2ApplicationKeyID),
		"b2_bucket", c.B2BucketName,
		"allowed_origins", c.AllowedOrigins,
	)
}

func maskSecret(secret string) string {
	if secret == "" {
		return "[NOT SET]"
	}
	if len(secret) <= 8 {
		return "[HIDDEN]"
	}
	return secret[:4] + "***" + secret[len(secret)-4:]
}

func maskConnectionString(uri string) string {
	if uri == "" {
		return "[NOT SET]"
	}
	if i := strings.LastIndex(uri, "@"); i >= 0 {
		return "[CREDENTIALS_HIDDEN]@" + uri[i+1:]
	}
	return uri
}

func parseStringSlice(s string) []string {
	result := []string{}
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
