package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const (
	DefaultAPIBaseURL = "https://api.smlz.cloud"
	DefaultLocale     = "zh-Hans"
)

var DefaultEmailSuffixes = []string{
	"qq.com",
	"gmail.com",
	"163.com",
	"126.com",
	"outlook.com",
	"139.com",
	"foxmail.com",
	"hotmail.com",
}

// DefaultConfig returns the configuration built from defaults only
func DefaultConfig() *Config {

	v := viper.New()

	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		logrus.Fatalf("error unmarshaling default config: %v", err)
	}

	return &config
}

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	setupViperConfig(v, configFile)

	bindEnvironmentVariables(v)

	config, err := readAndUnmarshalConfig(v)
	if err != nil {
		return nil, err
	}

	if err := setupLogging(config, v); err != nil {
		return nil, err
	}

	return config, nil
}

// loadEnvFile loads the .env file if it exists
func loadEnvFile() error {
	if err := gotenv.Load(); err != nil {
		// .env file not found, that's okay - continue with other sources
		if !os.IsNotExist(err) {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}
	return nil
}

// setupViperConfig configures viper with file paths and defaults
func setupViperConfig(v *viper.Viper, configFile string) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/portal")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "portal"))
	}

	if len(configFile) > 0 {
		v.SetConfigFile(configFile)
	}

	setDefaults(v)

	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// bindEnvironmentVariables binds the variables that don't follow the
// PORTAL_<SECTION>_<KEY> pattern. The NEXT_PUBLIC_ names are accepted so an
// existing deployment's environment keeps working.
func bindEnvironmentVariables(v *viper.Viper) {

	// Site
	v.BindEnv("site.name", "PORTAL_SITE_NAME", "NEXT_PUBLIC_SITE_NAME")
	v.BindEnv("site.description", "PORTAL_SITE_DESCRIPTION", "NEXT_PUBLIC_SITE_DESCRIPTION")
	v.BindEnv("site.logo_url", "PORTAL_LOGO_URL", "NEXT_PUBLIC_LOGO_URL")
	v.BindEnv("site.background_url", "PORTAL_BACKGROUND_URL", "NEXT_PUBLIC_BACKGROUND_URL")
	v.BindEnv("site.locale", "PORTAL_LOCALE")

	// Backend
	v.BindEnv("api.base_url", "PORTAL_API_URL", "NEXT_PUBLIC_V2BOARD_API_URL")
	v.BindEnv("api.timeout", "PORTAL_API_TIMEOUT")

	bindLoggingEnvVars(v)
}

// bindLoggingEnvVars binds logging configuration environment variables
func bindLoggingEnvVars(v *viper.Viper) {
	v.BindEnv("logging.level", "PORTAL_LOGGING_LEVEL")
	v.BindEnv("logging.format", "PORTAL_LOGGING_FORMAT")
	v.BindEnv("logging.output", "PORTAL_LOGGING_OUTPUT")
}

// readAndUnmarshalConfig reads the configuration file and unmarshals it
func readAndUnmarshalConfig(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// installLogHook registers hook on the standard logger in place of any ring
// buffer left by an earlier Load, so reloading never duplicates entries.
func installLogHook(hook *portalLogger) {
	previous := logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))

	hooks := make(logrus.LevelHooks)
	for level, levelHooks := range previous {
		for _, existing := range levelHooks {
			if _, ok := existing.(*portalLogger); !ok {
				hooks[level] = append(hooks[level], existing)
			}
		}
	}
	hooks.Add(hook)

	logrus.StandardLogger().ReplaceHooks(hooks)
}

// setupLogging configures the logging system based on the config
func setupLogging(config *Config, v *viper.Viper) error {
	logrusLevel, err := logrus.ParseLevel(config.Logging.Level)
	if err != nil {
		return fmt.Errorf("error parsing log level: %w", err)
	}

	logrus.SetLevel(logrusLevel)

	config.logger = NewPortalLogger(defaultLogBufferSize)
	installLogHook(config.logger)

	switch strings.ToLower(config.Logging.Format) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	default:
		logrus.WithFields(logrus.Fields{
			"format": config.Logging.Format,
		}).Warn("Unknown log format")
	}

	switch strings.ToLower(config.Logging.Output) {
	case "", "stdout":
		logrus.SetOutput(os.Stdout)
	case "stderr":
		logrus.SetOutput(os.Stderr)
	default:
		file, err := os.OpenFile(config.Logging.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("error opening log output %s: %w", config.Logging.Output, err)
		}
		logrus.SetOutput(file)
	}

	// Dump out the config settings if in debug mode
	if logrusLevel >= logrus.DebugLevel {
		for key, value := range v.AllSettings() {
			logrus.Debugf("Config '%s': %v\n", key, value)
		}
	}

	return nil
}

// SetVerbose forces debug logging regardless of the configured level
func (c *Config) SetVerbose() {
	c.Logging.Level = logrus.DebugLevel.String()
	logrus.SetLevel(logrus.DebugLevel)
}

func (c *Config) GetServerAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// GetEmailSuffixes returns the domains allowed at sign up. An explicitly
// empty list allows every domain.
func (c *Config) GetEmailSuffixes() []string {
	return c.Site.EmailSuffixes
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {

	// Site defaults
	v.SetDefault("site.name", "青鸟")
	v.SetDefault("site.description", "更便捷连接全世界")
	v.SetDefault("site.logo_url", "/placeholder.svg?height=32&width=32")
	v.SetDefault("site.background_url", "https://stb.haitunt.org/uploads/20250609/mbozhclr408qsid3o7j.jpg")
	v.SetDefault("site.locale", DefaultLocale)
	v.SetDefault("site.email_suffixes", DefaultEmailSuffixes)

	// Backend defaults
	v.SetDefault("api.base_url", DefaultAPIBaseURL)
	v.SetDefault("api.timeout", "0s")

	// Feature flags
	v.SetDefault("features.registration", true)
	v.SetDefault("features.email_verification", true)
	v.SetDefault("features.invite_code", true)
	v.SetDefault("features.google_login", false)
	v.SetDefault("features.github_login", false)

	// Session storage defaults, an empty path means ~/.config/portal
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.path", "")

	// Local service defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 5226)
	v.SetDefault("server.refresh_interval", "10m")

	v.SetDefault("server.health.enabled", true)
	v.SetDefault("server.health.path", "/health")

	v.SetDefault("server.ready.enabled", true)
	v.SetDefault("server.ready.path", "/ready")

	v.SetDefault("server.security.cors.allowed_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("server.security.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("server.security.cors.allowed_headers", []string{"Content-Type", "X-Requested-With", "X-Correlation-ID"})
	v.SetDefault("server.security.cors.max_age", 86400)

	v.SetDefault("server.limits.read_timeout", "30s")
	v.SetDefault("server.limits.write_timeout", "0s") // event streams stay open
	v.SetDefault("server.limits.idle_timeout", "120s")
	v.SetDefault("server.limits.requests_per_minute", 60)
	v.SetDefault("server.limits.burst", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
}
