package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("prwire-subscriber version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Twitter TwitterConfig `mapstructure:"twitter"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Session SessionConfig `mapstructure:"session"`
	Badge   BadgeConfig   `mapstructure:"badge"`
	Preview PreviewConfig `mapstructure:"preview"`
}

type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Timeout string `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	DisableConsole    bool   `mapstructure:"disable_console"`
	OutputPath        string `mapstructure:"output_path"`
}

// TwitterConfig holds the X/Twitter OAuth and API credentials.
// AppURL is the public base URL of this deployment; the OAuth callback
// path is appended to it when building redirect URIs.
type TwitterConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	BearerToken  string   `mapstructure:"bearer_token"`
	Scopes       []string `mapstructure:"scopes"`
	AppURL       string   `mapstructure:"app_url"`
	StateTTL     int      `mapstructure:"state_ttl"`
}

// StateTTLDuration returns the PKCE state expiry, defaulting to ten minutes.
func (c *TwitterConfig) StateTTLDuration() time.Duration {
	if c.StateTTL <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.StateTTL) * time.Second
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TLS      bool   `mapstructure:"tls"`
}

// SessionConfig describes how identity-provider session tokens are verified.
// The identity provider signs session JWTs with a shared HS256 secret; this
// service only verifies them.
type SessionConfig struct {
	Secret     string `mapstructure:"secret"`
	CookieName string `mapstructure:"cookie_name"`
	Issuer     string `mapstructure:"issuer"`
}

type BadgeConfig struct {
	VerifiedThreshold int    `mapstructure:"verified_threshold"`
	FontPath          string `mapstructure:"font_path"`
}

// Threshold returns the follower count required for the verified badge.
func (c *BadgeConfig) Threshold() int {
	if c.VerifiedThreshold <= 0 {
		return 10000
	}
	return c.VerifiedThreshold
}

// PreviewConfig configures the shareable preview route. CrawlerPolicyFile
// optionally points at a YAML file overriding the built-in crawler
// user-agent substring table.
type PreviewConfig struct {
	CrawlerPolicyFile string `mapstructure:"crawler_policy_file"`
}

// InitFlags initializes command line flags (without parsing)
func InitFlags() {
	pflag.String("config-file", "", "Path to an additional config file")
	pflag.String("app-url", "", "Public base URL of this deployment")
	// Note: no pflag.Parse() here as it's called in main.go
}

func Load() (*Config, error) {
	viper.Reset() // Ensure clean state

	viper.SetEnvPrefix("PRWIRE_SUBSCRIBER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	setDefaults()

	// Load ./config.yaml if present
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/prwire-subscriber")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// An explicit config file overrides overlapping keys
	if cfgFile := viper.GetString("config-file"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return nil, fmt.Errorf("config file %s: %w", cfgFile, err)
		}
		viper.SetConfigFile(cfgFile)
		if err := viper.MergeInConfig(); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if appURL := viper.GetString("app-url"); appURL != "" {
		config.Twitter.AppURL = appURL
	}

	if config.Twitter.AppURL == "" {
		return nil, fmt.Errorf("twitter.app_url is required, please adjust the config or pass --app-url or PRWIRE_SUBSCRIBER_TWITTER_APP_URL environment variable")
	}
	if config.Redis.Addr == "" {
		return nil, fmt.Errorf("redis.addr is required, please adjust the config or set PRWIRE_SUBSCRIBER_REDIS_ADDR")
	}
	if config.Session.Secret == "" {
		return nil, fmt.Errorf("session.secret is required, please adjust the config or set PRWIRE_SUBSCRIBER_SESSION_SECRET")
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 3000)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("twitter.scopes", []string{"tweet.read", "users.read", "offline.access"})
	viper.SetDefault("twitter.state_ttl", 600)
	viper.SetDefault("session.cookie_name", "__session")
	viper.SetDefault("badge.verified_threshold", 10000)

	// Keys with no natural default still need to be registered so that
	// environment-only configuration survives Unmarshal.
	for _, key := range []string{
		"twitter.client_id",
		"twitter.client_secret",
		"twitter.bearer_token",
		"twitter.app_url",
		"redis.addr",
		"redis.username",
		"redis.password",
		"session.secret",
		"session.issuer",
		"badge.font_path",
		"preview.crawler_policy_file",
	} {
		viper.SetDefault(key, "")
	}
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.tls", false)
}
