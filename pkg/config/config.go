package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"emmakit/pkg/auth"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the toolkit
type Config struct {
	// Twitter credentials and endpoint
	Twitter TwitterConfig `yaml:"twitter" json:"twitter"`

	// Facebook credentials and endpoint
	Facebook FacebookConfig `yaml:"facebook" json:"facebook"`

	// Request executor settings
	Request RequestConfig `yaml:"request" json:"request"`

	// Harvest side-channel outputs
	Harvest HarvestConfig `yaml:"harvest" json:"harvest"`

	// GeoNames dump location
	Gazetteer GazetteerConfig `yaml:"gazetteer" json:"gazetteer"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Stored credential profile
	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`
}

// TwitterConfig holds the OAuth1 keys for the Twitter REST API
type TwitterConfig struct {
	ConsumerKey    string `yaml:"consumer_key" json:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret" json:"consumer_secret"`
	AccessToken    string `yaml:"access_token" json:"access_token"`
	AccessSecret   string `yaml:"access_secret" json:"access_secret"`
	BaseURL        string `yaml:"base_url" json:"base_url"`
}

// FacebookConfig holds the Graph API application and page credentials
type FacebookConfig struct {
	AppID           string `yaml:"app_id" json:"app_id"`
	AppSecret       string `yaml:"app_secret" json:"app_secret"`
	PageAccessToken string `yaml:"page_access_token" json:"page_access_token"`
	BaseURL         string `yaml:"base_url" json:"base_url"`
	APIVersion      string `yaml:"api_version" json:"api_version"`
}

// RequestConfig controls a single provider call
type RequestConfig struct {
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// HarvestConfig holds settings for bulk network harvests
type HarvestConfig struct {
	EdgeLog       string `yaml:"edge_log" json:"edge_log"`
	CheckpointDir string `yaml:"checkpoint_dir" json:"checkpoint_dir"`
	SkipFailures  bool   `yaml:"skip_failures" json:"skip_failures"`
}

// GazetteerConfig points at a GeoNames allCountries-style dump
type GazetteerConfig struct {
	File string `yaml:"file" json:"file"`
}

// LoggingConfig holds logging configuration.
// File receives error-level records only; everything else goes to the console.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// CredentialsConfig names the stored credential profile to fall back on
type CredentialsConfig struct {
	Profile string `yaml:"profile" json:"profile"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Twitter: TwitterConfig{
			BaseURL: "https://api.twitter.com/1.1",
		},
		Facebook: FacebookConfig{
			BaseURL:    "https://graph.facebook.com",
			APIVersion: "v2.5",
		},
		Request: RequestConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			RetryDelay: 5 * time.Second,
		},
		Harvest: HarvestConfig{
			SkipFailures: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("EMMAKIT_TWITTER_CONSUMER_KEY", &c.Twitter.ConsumerKey)
	setString("EMMAKIT_TWITTER_CONSUMER_SECRET", &c.Twitter.ConsumerSecret)
	setString("EMMAKIT_TWITTER_ACCESS_TOKEN", &c.Twitter.AccessToken)
	setString("EMMAKIT_TWITTER_ACCESS_SECRET", &c.Twitter.AccessSecret)
	setString("EMMAKIT_TWITTER_BASE_URL", &c.Twitter.BaseURL)

	setString("EMMAKIT_FACEBOOK_APP_ID", &c.Facebook.AppID)
	setString("EMMAKIT_FACEBOOK_APP_SECRET", &c.Facebook.AppSecret)
	setString("EMMAKIT_FACEBOOK_PAGE_ACCESS_TOKEN", &c.Facebook.PageAccessToken)

	if v := os.Getenv("EMMAKIT_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid EMMAKIT_REQUEST_TIMEOUT: %w", err)
		}
		c.Request.Timeout = d
	}
	if v := os.Getenv("EMMAKIT_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid EMMAKIT_MAX_RETRIES: %w", err)
		}
		c.Request.MaxRetries = n
	}
	if v := os.Getenv("EMMAKIT_RETRY_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid EMMAKIT_RETRY_DELAY: %w", err)
		}
		c.Request.RetryDelay = d
	}

	setString("EMMAKIT_EDGE_LOG", &c.Harvest.EdgeLog)
	setString("EMMAKIT_CHECKPOINT_DIR", &c.Harvest.CheckpointDir)
	if v := os.Getenv("EMMAKIT_SKIP_FAILURES"); v != "" {
		c.Harvest.SkipFailures = strings.ToLower(v) == "true"
	}

	setString("EMMAKIT_GAZETTEER_FILE", &c.Gazetteer.File)
	setString("EMMAKIT_LOG_LEVEL", &c.Logging.Level)
	setString("EMMAKIT_LOG_FILE", &c.Logging.File)
	setString("EMMAKIT_PROFILE", &c.Credentials.Profile)

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"emmakit.yaml",
		".emmakit.yaml",
		".emmakit.yml",
		filepath.Join(home, ".config", "emmakit", "config.yaml"),
		filepath.Join(home, ".emmakit.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Request.Timeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.Request.MaxRetries <= 0 {
		errs = append(errs, errors.New("max retries must be at least 1"))
	}
	if c.Request.RetryDelay < 0 {
		errs = append(errs, errors.New("retry delay cannot be negative"))
	}
	if c.Twitter.BaseURL == "" {
		errs = append(errs, errors.New("twitter base URL is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// HasTwitterCredentials reports whether all four OAuth1 keys are set
func (c *Config) HasTwitterCredentials() bool {
	t := c.Twitter
	return t.ConsumerKey != "" && t.ConsumerSecret != "" && t.AccessToken != "" && t.AccessSecret != ""
}

// ApplyCredentials fills credential fields that are still empty from a stored profile
func (c *Config) ApplyCredentials(creds *auth.Credentials) {
	if creds == nil {
		return
	}
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&c.Twitter.ConsumerKey, creds.ConsumerKey)
	fill(&c.Twitter.ConsumerSecret, creds.ConsumerSecret)
	fill(&c.Twitter.AccessToken, creds.AccessToken)
	fill(&c.Twitter.AccessSecret, creds.AccessSecret)
	fill(&c.Facebook.AppID, creds.AppID)
	fill(&c.Facebook.AppSecret, creds.AppSecret)
	fill(&c.Facebook.PageAccessToken, creds.PageAccessToken)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Environment variables > .env file > Config file > Defaults
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".emmakit.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
