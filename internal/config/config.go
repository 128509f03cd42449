// Package config provides configuration for the clipforge daemon.
// Settings are layered: built-in defaults, then an optional config.toml
// in the data directory, then environment variables. Provider API keys
// are read from the environment, with an optional .env file loaded
// first so local setups match production.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultPort        = 8590
	DefaultLogLevel    = "info"
	DefaultDataDir     = ".clipforge"
	DefaultDailyTarget = 2

	EnvPort     = "CLIPFORGE_PORT"
	EnvLogLevel = "CLIPFORGE_LOG_LEVEL"
	EnvDataDir  = "CLIPFORGE_DATA_DIR"

	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvElevenLabsKey = "ELEVENLABS_API_KEY"

	DBFilename     = "clipforge.db"
	LockFilename   = "studiod.lock"
	ConfigFilename = "config.toml"

	// Provider call budgets. Render timeouts are generous because a
	// concat of long segments re-encodes everything.
	DefaultProviderTimeout = 120 // seconds
	DefaultRenderTimeout   = 600 // seconds
)

// Brand holds the rendering identity burned into every output.
type Brand struct {
	Tagline  string `toml:"tagline"`
	URL      string `toml:"url"`
	Accent   string `toml:"accent"`
	LogoPath string `toml:"logo_path"`
	MemeFont string `toml:"meme_font"`
	CTAFont  string `toml:"cta_font"`
}

// Config is the resolved daemon configuration.
type Config struct {
	Port        int
	LogLevel    string
	DataDir     string
	DailyTarget int

	OpenAIKey     string
	ElevenLabsKey string

	ProviderTimeout time.Duration
	RenderTimeout   time.Duration

	Brand Brand
}

// fileConfig mirrors the optional config.toml layout.
type fileConfig struct {
	Port        int    `toml:"port"`
	LogLevel    string `toml:"log_level"`
	DailyTarget int    `toml:"daily_target"`
	Brand       Brand  `toml:"brand"`
}

// New resolves the configuration. The data directory is decided first
// (env override, else ~/.clipforge) because the config file and .env
// live inside it.
func New() (*Config, error) {
	cfg := &Config{
		Port:            DefaultPort,
		LogLevel:        DefaultLogLevel,
		DataDir:         defaultDataDir(),
		DailyTarget:     DefaultDailyTarget,
		ProviderTimeout: DefaultProviderTimeout * time.Second,
		RenderTimeout:   DefaultRenderTimeout * time.Second,
		Brand: Brand{
			Tagline: "The PM for AI Agents",
			URL:     "clipforge.dev",
			Accent:  "0xD97D55",
		},
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.DataDir = dd
	}

	if err := cfg.loadFile(); err != nil {
		return nil, err
	}

	// .env sits next to the database so API keys never need to be
	// exported globally. Absence is not an error.
	_ = godotenv.Load(filepath.Join(cfg.DataDir, ".env"))

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		cfg.Port = port
	}
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.LogLevel = ll
	}
	cfg.OpenAIKey = os.Getenv(EnvOpenAIKey)
	cfg.ElevenLabsKey = os.Getenv(EnvElevenLabsKey)

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.DailyTarget < 1 {
		return nil, fmt.Errorf("daily_target must be positive, got %d", cfg.DailyTarget)
	}

	return cfg, nil
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(filepath.Join(c.DataDir, ConfigFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", ConfigFilename, err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", ConfigFilename, err)
	}

	if fc.Port != 0 {
		c.Port = fc.Port
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.DailyTarget != 0 {
		c.DailyTarget = fc.DailyTarget
	}
	if fc.Brand.Tagline != "" {
		c.Brand.Tagline = fc.Brand.Tagline
	}
	if fc.Brand.URL != "" {
		c.Brand.URL = fc.Brand.URL
	}
	if fc.Brand.Accent != "" {
		c.Brand.Accent = fc.Brand.Accent
	}
	if fc.Brand.LogoPath != "" {
		c.Brand.LogoPath = fc.Brand.LogoPath
	}
	if fc.Brand.MemeFont != "" {
		c.Brand.MemeFont = fc.Brand.MemeFont
	}
	if fc.Brand.CTAFont != "" {
		c.Brand.CTAFont = fc.Brand.CTAFont
	}
	return nil
}

// DBPath returns the full path to the SQLite database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, DBFilename)
}

// LockPath returns the single-instance lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, LockFilename)
}

// ProcessingDir holds transcripts, candidate lists, analysis artifacts
// and orchestrator state files.
func (c *Config) ProcessingDir() string {
	return filepath.Join(c.DataDir, "processing")
}

// TmpDir holds synthesized narration audio and per-job segment files.
func (c *Config) TmpDir() string {
	return filepath.Join(c.DataDir, "tmp")
}

// LibraryDir holds per-orchestrator-task rendered clips.
func (c *Config) LibraryDir() string {
	return filepath.Join(c.DataDir, "library")
}

// PublishedDir holds final assembled outputs ready for posting.
func (c *Config) PublishedDir() string {
	return filepath.Join(c.DataDir, "published")
}

// UploadsDir holds source videos submitted to the orchestrator.
func (c *Config) UploadsDir() string {
	return filepath.Join(c.DataDir, "uploads")
}

// EnsureDirs creates every runtime directory.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{
		c.DataDir, c.ProcessingDir(), c.TmpDir(),
		c.LibraryDir(), c.PublishedDir(), c.UploadsDir(),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)
