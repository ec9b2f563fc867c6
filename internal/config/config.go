// Package config loads the corpus, image and server settings from a YAML
// file, then applies environment overrides. Command-line flags are applied
// last by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	qerrors "github.com/FocuswithJustin/JuniperQuran/core/errors"
	"github.com/FocuswithJustin/JuniperQuran/core/ingest"
	"github.com/FocuswithJustin/JuniperQuran/core/quran"
	qxml "github.com/FocuswithJustin/JuniperQuran/core/xml"
)

// Environment variables read by ApplyEnv.
const (
	EnvPrimary   = "QURAN_PRIMARY"
	EnvImagesDir = "QURAN_IMAGES_DIR"
	EnvPort      = "QURAN_PORT"
	EnvLogLevel  = "QURAN_LOG_LEVEL"
	EnvAPIKey    = "QURAN_API_KEY"
)

// Config is the full application configuration.
type Config struct {
	Primary    SourceConfig   `yaml:"primary"`
	Commentary []SourceConfig `yaml:"commentary"`
	Load       LoadConfig     `yaml:"load"`
	Images     ImagesConfig   `yaml:"images"`
	Text       TextConfig     `yaml:"text"`
	Server     ServerConfig   `yaml:"server"`
	Log        LogConfig      `yaml:"log"`
}

// SourceConfig describes one corpus source file.
type SourceConfig struct {
	Path     string `yaml:"path"`
	Language string `yaml:"language"`
	Layout   string `yaml:"layout"` // "", "rows" or "surahs"
	Table    string `yaml:"table"`  // SQLite sources only
}

// LoadConfig controls how bad input is treated.
type LoadConfig struct {
	// SkipIncomplete logs and drops bad records instead of failing.
	SkipIncomplete bool `yaml:"skip_incomplete"`
	// AllowPartial keeps a corpus whose source stream was malformed.
	AllowPartial bool `yaml:"allow_partial"`
}

// ImagesConfig locates the page images.
type ImagesConfig struct {
	Dir            string        `yaml:"dir"`
	FirstPageIndex int           `yaml:"first_page_index"`
	Padding        int           `yaml:"padding"`
	Prefix         string        `yaml:"prefix"`
	Extension      string        `yaml:"extension"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	CacheSize      int           `yaml:"cache_size"`
}

// TextConfig sizes text output.
type TextConfig struct {
	ChunkLimit int `yaml:"chunk_limit"`
	PageBatch  int `yaml:"page_batch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int       `yaml:"port"`
	AllowedOrigins []string  `yaml:"allowed_origins"`
	RateLimit      int       `yaml:"rate_limit"` // requests per minute, 0 disables
	RateBurst      int       `yaml:"rate_burst"`
	APIKey         string    `yaml:"api_key"`
	TLS            TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS/HTTPS configuration.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Primary: SourceConfig{
			Path:     "data/tafseerMouaser_v03.xml",
			Language: ingest.DefaultLanguage,
		},
		Images: ImagesConfig{
			Dir:            "data/arabic-quran-images",
			FirstPageIndex: quran.DefaultPageImages.FirstPageIndex,
			Padding:        quran.DefaultPageImages.Padding,
			Prefix:         quran.DefaultPageImages.Prefix,
			Extension:      quran.DefaultPageImages.Extension,
			CacheTTL:       10 * time.Minute,
			CacheSize:      64,
		},
		Text: TextConfig{
			ChunkLimit: quran.DefaultChunkLimit,
			PageBatch:  quran.PageBatchSize,
		},
		Server: ServerConfig{
			Port:      8080,
			RateBurst: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the YAML file at path over the defaults and applies the
// environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, qerrors.NewIO("open", path, err)
		}
		defer f.Close()

		if err := cfg.decode(f); err != nil {
			return nil, qerrors.NewParse("yaml", path, err.Error())
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides settings from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrimary); ok && v != "" {
		c.Primary.Path = v
	}
	if v, ok := lookup(EnvImagesDir); ok && v != "" {
		c.Images.Dir = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return &qerrors.ValidationError{Field: EnvPort, Value: v, Message: fmt.Sprintf("not a port number: %v", err)}
		}
		c.Server.Port = port
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvAPIKey); ok && v != "" {
		c.Server.APIKey = v
	}
	return nil
}

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Primary.Path) == "" {
		return qerrors.NewValidation("primary.path", "a primary source is required")
	}
	for i, s := range append([]SourceConfig{c.Primary}, c.Commentary...) {
		if s.Path == "" {
			return qerrors.NewValidation(fmt.Sprintf("commentary[%d].path", i-1), "path is required")
		}
		switch qxml.Layout(s.Layout) {
		case "", qxml.LayoutRows, qxml.LayoutSurahs:
		default:
			return qerrors.NewValidation("layout", fmt.Sprintf("unknown layout %q for %s", s.Layout, s.Path))
		}
	}
	if c.Text.ChunkLimit <= 0 {
		return qerrors.NewValidation("text.chunk_limit", "must be positive")
	}
	if c.Text.PageBatch <= 0 {
		return qerrors.NewValidation("text.page_batch", "must be positive")
	}
	if c.Images.Padding < 0 {
		return qerrors.NewValidation("images.padding", "must not be negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return qerrors.NewValidation("server.port", fmt.Sprintf("%d is out of range", c.Server.Port))
	}
	if c.Server.APIKey != "" && len(c.Server.APIKey) < 16 {
		return qerrors.NewValidation("server.api_key", fmt.Sprintf("must be at least 16 characters (got %d)", len(c.Server.APIKey)))
	}
	if c.Server.TLS.Enabled && (c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "") {
		return qerrors.NewValidation("server.tls", "TLS enabled but cert or key file not specified")
	}
	return nil
}

// Sources lists the configured sources for ingest.Load, primary first.
func (c *Config) Sources() []ingest.Source {
	sources := []ingest.Source{{
		Path:     c.Primary.Path,
		Role:     ingest.RolePrimary,
		Language: c.Primary.Language,
		Layout:   qxml.Layout(c.Primary.Layout),
		Table:    c.Primary.Table,
	}}
	for _, s := range c.Commentary {
		sources = append(sources, ingest.Source{
			Path:     s.Path,
			Role:     ingest.RoleCommentary,
			Language: s.Language,
			Layout:   qxml.Layout(s.Layout),
		})
	}
	return sources
}

// Ingest returns the ingest.Load configuration.
func (c *Config) Ingest() ingest.Config {
	opts := ingest.Options{PrimaryLang: c.Primary.Language}
	if c.Load.SkipIncomplete {
		opts.Policy = ingest.PolicySkip
	}
	return ingest.Config{Sources: c.Sources(), Options: opts}
}

// PageImages returns the page image naming scheme.
func (c *Config) PageImages() quran.PageImages {
	return quran.PageImages{
		FirstPageIndex: c.Images.FirstPageIndex,
		Padding:        c.Images.Padding,
		Prefix:         c.Images.Prefix,
		Extension:      c.Images.Extension,
	}
}

// ParseCommentaryFlag parses a "path=lang" command-line value. A value
// without "=" uses ingest.DefaultLanguage.
func ParseCommentaryFlag(v string) (SourceConfig, error) {
	path, lang, found := strings.Cut(v, "=")
	path = strings.TrimSpace(path)
	if path == "" {
		return SourceConfig{}, qerrors.NewValidation("commentary", fmt.Sprintf("missing path in %q", v))
	}
	lang = strings.TrimSpace(lang)
	if !found || lang == "" {
		lang = ingest.DefaultLanguage
	}
	return SourceConfig{Path: path, Language: lang}, nil
}
