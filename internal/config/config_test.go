package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	qerrors "github.com/FocuswithJustin/JuniperQuran/core/errors"
	"github.com/FocuswithJustin/JuniperQuran/core/ingest"
	"github.com/FocuswithJustin/JuniperQuran/core/quran"
	qxml "github.com/FocuswithJustin/JuniperQuran/core/xml"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quran.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func noEnv(string) (string, bool) { return "", false }

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvPrimary, EnvImagesDir, EnvPort, EnvLogLevel, EnvAPIKey} {
		t.Setenv(k, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.PageImages() != quran.DefaultPageImages {
		t.Errorf("PageImages() = %+v, want defaults", cfg.PageImages())
	}
	if cfg.Text.ChunkLimit != quran.DefaultChunkLimit {
		t.Errorf("ChunkLimit = %d", cfg.Text.ChunkLimit)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
primary:
  path: data/quran.sqlite
  language: ar-muyassar
  table: tafseer
commentary:
  - path: data/en.sahih.xml
    language: en
load:
  skip_incomplete: true
images:
  dir: /srv/pages
  cache_ttl: 90s
server:
  port: 9090
  allowed_origins: ["https://example.org"]
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Primary.Path != "data/quran.sqlite" || cfg.Primary.Table != "tafseer" {
		t.Errorf("Primary = %+v", cfg.Primary)
	}
	if cfg.Images.Dir != "/srv/pages" || cfg.Images.CacheTTL != 90*time.Second {
		t.Errorf("Images = %+v", cfg.Images)
	}
	// unset keys keep their defaults
	if cfg.Images.Padding != 3 || cfg.Log.Format != "json" {
		t.Errorf("defaults lost: padding=%d format=%q", cfg.Images.Padding, cfg.Log.Format)
	}
	if cfg.Server.Port != 9090 || len(cfg.Server.AllowedOrigins) != 1 {
		t.Errorf("Server = %+v", cfg.Server)
	}

	ic := cfg.Ingest()
	if ic.Options.Policy != ingest.PolicySkip || ic.Options.PrimaryLang != "ar-muyassar" {
		t.Errorf("Options = %+v", ic.Options)
	}
	if len(ic.Sources) != 2 {
		t.Fatalf("Sources = %+v", ic.Sources)
	}
	if ic.Sources[0].Role != ingest.RolePrimary || ic.Sources[1].Role != ingest.RoleCommentary || ic.Sources[1].Language != "en" {
		t.Errorf("Sources = %+v", ic.Sources)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Primary.Path != Default().Primary.Path {
		t.Errorf("empty file should keep defaults, got %+v", cfg.Primary)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v", err)
	}

	_, err := Load(writeConfig(t, "primary:\n  pth: typo.xml\n"))
	var pe *qerrors.ParseError
	if !errors.As(err, &pe) || pe.Format != "yaml" {
		t.Errorf("unknown key error = %v, want yaml ParseError", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvPrimary:   "/data/other.xml",
		EnvImagesDir: "/data/pages",
		EnvPort:      "7000",
		EnvLogLevel:  "warn",
		EnvAPIKey:    "0123456789abcdef",
	}
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.Primary.Path != "/data/other.xml" || cfg.Images.Dir != "/data/pages" || cfg.Server.Port != 7000 ||
		cfg.Log.Level != "warn" || cfg.Server.APIKey != "0123456789abcdef" {
		t.Errorf("env not applied: %+v", cfg)
	}

	before := *Default()
	cfg = Default()
	if err := cfg.ApplyEnv(noEnv); err != nil {
		t.Fatal(err)
	}
	if cfg.Primary != before.Primary || cfg.Server.Port != before.Server.Port {
		t.Error("empty environment changed the config")
	}

	err = Default().ApplyEnv(func(k string) (string, bool) {
		if k == EnvPort {
			return "eighty", true
		}
		return "", false
	})
	if !errors.Is(err, qerrors.ErrInvalidInput) {
		t.Errorf("bad port error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"no primary", func(c *Config) { c.Primary.Path = " " }, "primary.path"},
		{"empty commentary path", func(c *Config) { c.Commentary = []SourceConfig{{Language: "en"}} }, "commentary[0].path"},
		{"bad layout", func(c *Config) { c.Primary.Layout = "columns" }, "layout"},
		{"zero chunk limit", func(c *Config) { c.Text.ChunkLimit = 0 }, "text.chunk_limit"},
		{"zero page batch", func(c *Config) { c.Text.PageBatch = 0 }, "text.page_batch"},
		{"negative padding", func(c *Config) { c.Images.Padding = -1 }, "images.padding"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"short api key", func(c *Config) { c.Server.APIKey = "short" }, "server.api_key"},
		{"tls without cert", func(c *Config) { c.Server.TLS.Enabled = true }, "server.tls"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			var ve *qerrors.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}

	cfg := Default()
	cfg.Primary.Layout = string(qxml.LayoutRows)
	cfg.Commentary = []SourceConfig{{Path: "en.xml", Language: "en", Layout: string(qxml.LayoutSurahs)}}
	if err := cfg.Validate(); err != nil {
		t.Errorf("explicit layouts should validate: %v", err)
	}
}

func TestParseCommentaryFlag(t *testing.T) {
	tests := []struct {
		in       string
		path     string
		language string
		wantErr  bool
	}{
		{"en.sahih.xml=en", "en.sahih.xml", "en", false},
		{"data/ar.muyassar.xml", "data/ar.muyassar.xml", ingest.DefaultLanguage, false},
		{"notes.xml=", "notes.xml", ingest.DefaultLanguage, false},
		{" fr.xml = fr ", "fr.xml", "fr", false},
		{"=en", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			sc, err := ParseCommentaryFlag(tt.in)
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "missing path") {
					t.Errorf("ParseCommentaryFlag(%q) error = %v", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCommentaryFlag(%q) failed: %v", tt.in, err)
			}
			if sc.Path != tt.path || sc.Language != tt.language {
				t.Errorf("ParseCommentaryFlag(%q) = %+v", tt.in, sc)
			}
		})
	}
}
