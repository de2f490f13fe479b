// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Sink names understood by the completion dispatcher.
const (
	SinkFlag      = "flag"
	SinkAudit     = "audit"
	SinkProcess   = "process"
	SinkDirectory = "directory"
	SinkEmail     = "email"
	SinkEvents    = "events"
	SinkCRM       = "crm"
)

// SinkNames lists every sink in dispatch order.
var SinkNames = []string{SinkFlag, SinkAudit, SinkProcess, SinkDirectory, SinkEmail, SinkEvents, SinkCRM}

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top
// and applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	// VENDOR_API_BASE_URL overrides vendor_api.base_url
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads the first .env found walking up from the working
// directory, so binaries and e2e tests share one file.
func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok || !strings.Contains(strVal, "$") {
			continue
		}
		if expanded := os.ExpandEnv(strVal); expanded != strVal {
			v.Set(key, expanded)
		}
	}
}

// overrideEmptyConfig fills secrets that are commonly provided only as plain
// environment variables.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Auth.JWT.Secret == "" {
		cfg.Auth.JWT.Secret = os.Getenv("JWT_SECRET")
	}
	if cfg.Auth.Keycloak.ClientSecret == "" {
		cfg.Auth.Keycloak.ClientSecret = os.Getenv("KEYCLOAK_CLIENT_SECRET")
	}
	if cfg.Integrations.Zoho.AuthToken == "" {
		cfg.Integrations.Zoho.AuthToken = os.Getenv("ZOHO_CRM_OAUTH_TOKEN")
	}
	if cfg.Database.Postgres.User == "" {
		cfg.Database.Postgres.User = os.Getenv("DB_USER")
	}
	if cfg.Database.Postgres.Password == "" {
		cfg.Database.Postgres.Password = os.Getenv("DB_PASSWORD")
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "vendor-onboarding"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15000
	}

	if cfg.VendorAPI.Timeout == 0 {
		cfg.VendorAPI.Timeout = 10000
	}
	if cfg.VendorAPI.FetchRetries == 0 {
		cfg.VendorAPI.FetchRetries = 3
	}

	if cfg.Auth.Mode == "" {
		cfg.Auth.Mode = "jwt"
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.KeyPrefix == "" {
		cfg.Database.Redis.KeyPrefix = "onboarding"
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "vendors"
	}

	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}
	if cfg.Camunda.MessageName == "" {
		cfg.Camunda.MessageName = "vendor-onboarding-completed"
	}
	if cfg.Camunda.MessageTTL == 0 {
		cfg.Camunda.MessageTTL = 3600000
	}

	if cfg.Completion.Sinks == nil {
		cfg.Completion.Sinks = make(map[string]SinkConfig)
	}
	for name, sink := range cfg.Completion.Sinks {
		if sink.Timeout == 0 {
			sink.Timeout = 5000
		}
		cfg.Completion.Sinks[name] = sink
	}

	if cfg.Sessions.IdleTimeout == 0 {
		cfg.Sessions.IdleTimeout = 1800000
	}
	if cfg.Sessions.SweepInterval == 0 {
		cfg.Sessions.SweepInterval = 60000
	}
	if cfg.Sessions.CallTimeout == 0 {
		cfg.Sessions.CallTimeout = 15000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}
	if cfg.Observability.SampleRatio == 0 {
		cfg.Observability.SampleRatio = 1
	}
}

// validateConfig checks required fields, including the backing service of
// every enabled sink.
func validateConfig(cfg *Config) error {
	if cfg.VendorAPI.BaseURL == "" {
		return fmt.Errorf("vendor_api.base_url is required")
	}

	switch cfg.Auth.Mode {
	case "jwt":
		if cfg.Auth.JWT.Secret == "" {
			return fmt.Errorf("auth.jwt.secret is required when auth.mode is jwt")
		}
	case "keycloak":
		if cfg.Auth.Keycloak.URL == "" || cfg.Auth.Keycloak.Realm == "" {
			return fmt.Errorf("auth.keycloak.url and auth.keycloak.realm are required when auth.mode is keycloak")
		}
	default:
		return fmt.Errorf("auth.mode must be jwt or keycloak, got %q", cfg.Auth.Mode)
	}

	for name := range cfg.Completion.Sinks {
		if !cfg.SinkEnabled(name) {
			continue
		}
		if err := validateSink(cfg, name); err != nil {
			return err
		}
	}
	return nil
}

func validateSink(cfg *Config, name string) error {
	switch name {
	case SinkFlag:
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required by the %s sink", name)
		}
	case SinkAudit:
		if cfg.Database.Postgres.Host == "" || cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.host and database are required by the %s sink", name)
		}
	case SinkProcess:
		if cfg.Camunda.BrokerAddress == "" {
			return fmt.Errorf("camunda.broker_address is required by the %s sink", name)
		}
	case SinkDirectory:
		if len(cfg.Database.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("database.elasticsearch.addresses is required by the %s sink", name)
		}
	case SinkEmail:
		if cfg.Integrations.AWS.Region == "" || cfg.Integrations.AWS.SES.FromEmail == "" {
			return fmt.Errorf("integrations.aws.region and ses.from_email are required by the %s sink", name)
		}
	case SinkEvents:
		if cfg.Integrations.AWS.Region == "" || cfg.Integrations.AWS.SNS.TopicARN == "" {
			return fmt.Errorf("integrations.aws.region and sns.topic_arn are required by the %s sink", name)
		}
	case SinkCRM:
		if cfg.Integrations.Zoho.AuthToken == "" {
			return fmt.Errorf("integrations.zoho.oauth_token is required by the %s sink", name)
		}
	default:
		return fmt.Errorf("unknown completion sink %q", name)
	}
	return nil
}

// SinkEnabled reports whether the named completion sink is switched on.
func (c *Config) SinkEnabled(name string) bool {
	sink, ok := c.Completion.Sinks[name]
	return ok && sink.Enabled
}

// SinkTimeout returns the per-sink deadline, defaulting to five seconds.
func (c *Config) SinkTimeout(name string) int {
	if sink, ok := c.Completion.Sinks[name]; ok && sink.Timeout > 0 {
		return sink.Timeout
	}
	return 5000
}
