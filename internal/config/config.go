package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"PublishGate/internal/domain"
	"PublishGate/internal/risk"
	"PublishGate/internal/validator"
)

const (
	configPathEnv    = "PUBLISHGATE_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	redisAddrEnv     = "REDIS_ADDR"
	publishAPIKeyEnv = "PUBLISH_API_KEY"
	stagingURLEnv    = "PUBLISH_STAGING_URL"
	productionURLEnv = "PUBLISH_PRODUCTION_URL"
	logLevelEnv      = "LOG_LEVEL"
	logFormatEnv     = "LOG_FORMAT"
	listenAddrEnv    = "LISTEN_ADDR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Store      StoreConfig      `yaml:"store"`
	Publish    PublishConfig    `yaml:"publish"`
	Policy     validator.Policy `yaml:"policy"`
	Floors     validator.Floors `yaml:"floors"`
	Risk       RiskConfig       `yaml:"risk"`
	Links      LinkConfig       `yaml:"links"`
	Authors    []AuthorConfig   `yaml:"authors"`
	Shortcodes ShortcodeConfig  `yaml:"shortcodes"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig describes the inbound HTTP API.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listenAddr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN selects the in-memory store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig enables the identifier lookup cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	CacheTTL time.Duration `yaml:"cacheTtl"`
}

// StoreConfig seeds the in-memory store.
type StoreConfig struct {
	SeedFile string `yaml:"seedFile"`
}

// PublishConfig wires the external publishing endpoint.
type PublishConfig struct {
	StagingURL      string        `yaml:"stagingUrl"`
	ProductionURL   string        `yaml:"productionUrl"`
	APIKey          string        `yaml:"apiKey"`
	Timeout         time.Duration `yaml:"timeout"`
	BulkDelay       time.Duration `yaml:"bulkDelay"`
	SideSyncTimeout time.Duration `yaml:"sideSyncTimeout"`
}

// RiskConfig holds the scoring weights and level bands.
type RiskConfig struct {
	Weights risk.Weights `yaml:"weights"`
	Bands   risk.Bands   `yaml:"bands"`
}

// LinkConfig holds the outbound-link policy lists. CompetitorDomains has no default and must be supplied.
type LinkConfig struct {
	InternalDomains        []string `yaml:"internalDomains"`
	BlockedSuffixes        []string `yaml:"blockedSuffixes"`
	CompetitorDomains      []string `yaml:"competitorDomains"`
	AllowedExternalDomains []string `yaml:"allowedExternalDomains"`
}

// AuthorConfig is one approved author.
type AuthorConfig struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"displayName"`
}

// ShortcodeConfig describes the recognized shortcode grammar. No definitions selects the built-in set.
type ShortcodeConfig struct {
	BlockUnknown bool                  `yaml:"blockUnknown"`
	Definitions  []ShortcodeDefinition `yaml:"definitions"`
}

// ShortcodeDefinition declares one tag. Kind is a shortcode kind name such as monetization_table.
type ShortcodeDefinition struct {
	Tag      string   `yaml:"tag"`
	Kind     string   `yaml:"kind"`
	Required []string `yaml:"required"`
	Optional []string `yaml:"optional"`
}

// Load reads YAML configuration over the defaults and applies environment overrides.
// An empty path falls back to PUBLISHGATE_CONFIG; with neither set only defaults and env apply.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(publishAPIKeyEnv); v != "" {
		c.Publish.APIKey = v
	}
	if v := os.Getenv(stagingURLEnv); v != "" {
		c.Publish.StagingURL = v
	}
	if v := os.Getenv(productionURLEnv); v != "" {
		c.Publish.ProductionURL = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(logFormatEnv); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv(listenAddrEnv); v != "" {
		c.Server.ListenAddr = v
	}
}

// Validate rejects settings the application cannot start with.
func (c Config) Validate() error {
	var errs []error

	if c.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listenAddr is required"))
	}
	if c.Publish.Timeout <= 0 {
		errs = append(errs, errors.New("publish.timeout must be positive"))
	}
	if c.Publish.BulkDelay < 0 {
		errs = append(errs, errors.New("publish.bulkDelay must not be negative"))
	}
	if c.Policy.MinQualityScore < 0 || c.Policy.MinQualityScore > 100 {
		errs = append(errs, fmt.Errorf("policy.minQualityScore %d outside 0-100", c.Policy.MinQualityScore))
	}
	if b := c.Risk.Bands; b != (risk.Bands{}) && !(b.Medium <= b.High && b.High <= b.Critical) {
		errs = append(errs, fmt.Errorf("risk.bands must be ascending, got %d/%d/%d", b.Medium, b.High, b.Critical))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be text or json", c.Logging.Format))
	}
	for i, def := range c.Shortcodes.Definitions {
		if strings.TrimSpace(def.Tag) == "" {
			errs = append(errs, fmt.Errorf("shortcodes.definitions[%d]: tag is required", i))
		}
		if _, err := domain.ParseShortcodeKind(def.Kind); err != nil {
			errs = append(errs, fmt.Errorf("shortcodes.definitions[%d]: %w", i, err))
		}
	}
	for i, author := range c.Authors {
		if strings.TrimSpace(author.ID) == "" {
			errs = append(errs, fmt.Errorf("authors[%d]: id is required", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Redis: RedisConfig{CacheTTL: 15 * time.Minute},
		Publish: PublishConfig{
			Timeout:         20 * time.Second,
			BulkDelay:       2 * time.Second,
			SideSyncTimeout: 10 * time.Second,
		},
		Policy: validator.DefaultPolicy(),
		Floors: validator.DefaultFloors(),
		Risk: RiskConfig{
			Weights: risk.DefaultWeights(),
			Bands:   risk.DefaultBands(),
		},
		Links: LinkConfig{
			BlockedSuffixes: []string{"edu"},
			AllowedExternalDomains: []string{
				"bls.gov",
				"ed.gov",
				"nces.ed.gov",
				"studentaid.gov",
				"chea.org",
				"aacnnursing.org",
			},
		},
		Shortcodes: ShortcodeConfig{BlockUnknown: true},
	}
}
