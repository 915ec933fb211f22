package config

import (
	"time"
)

// Config represents the application configuration structure
type Config struct {
	Site     SiteConfig     `mapstructure:"site"`
	API      APIConfig      `mapstructure:"api"`
	Features FeaturesConfig `mapstructure:"features"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`

	logger *portalLogger
}

// SiteConfig is the presentational configuration of the portal
type SiteConfig struct {
	Name          string   `mapstructure:"name"`
	Description   string   `mapstructure:"description"`
	LogoURL       string   `mapstructure:"logo_url"`
	BackgroundURL string   `mapstructure:"background_url"`
	Locale        string   `mapstructure:"locale"`
	EmailSuffixes []string `mapstructure:"email_suffixes"`

	// Empty lists fall back to the built in pricing and FAQ
	Plans []PlanConfig `mapstructure:"plans"`
	FAQ   []FAQConfig  `mapstructure:"faq"`
}

type PlanConfig struct {
	Name        string   `mapstructure:"name"`
	Price       string   `mapstructure:"price"`
	Period      string   `mapstructure:"period"`
	Description string   `mapstructure:"description"`
	Features    []string `mapstructure:"features"`
	Popular     bool     `mapstructure:"popular"`
}

type FAQConfig struct {
	Question string `mapstructure:"question"`
	Answer   string `mapstructure:"answer"`
}

type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// Zero means requests are not bounded
	Timeout time.Duration `mapstructure:"timeout"`
}

type FeaturesConfig struct {
	Registration      bool `mapstructure:"registration" json:"registration"`
	EmailVerification bool `mapstructure:"email_verification" json:"emailVerification"`
	InviteCode        bool `mapstructure:"invite_code" json:"inviteCode"`
	GoogleLogin       bool `mapstructure:"google_login" json:"googleLogin"`
	GithubLogin       bool `mapstructure:"github_login" json:"githubLogin"`
}

type StorageConfig struct {
	// file, sqlite or memory
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type ServerConfig struct {
	Host     string             `mapstructure:"host"`
	Port     int                `mapstructure:"port"`
	Limits   ServerLimitsConfig `mapstructure:"limits"`
	Health   HealthConfig       `mapstructure:"health"`
	Ready    ReadyConfig        `mapstructure:"ready"`
	Security SecurityConfig     `mapstructure:"security"`

	// How often the running service re-fetches the signed in user. Zero
	// disables the background refresh.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type ServerLimitsConfig struct {
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`

	// Applied per client address to the auth routes
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type HealthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type ReadyConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// stdout, stderr or a file path
	Output string `mapstructure:"output"`
}

// GetLogger returns the ring buffer hook installed by Load, or nil when
// logging was never set up.
func (c *Config) GetLogger() *portalLogger {
	return c.logger
}
