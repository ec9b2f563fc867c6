// Command quran is the CLI for Juniper Quran.
// It loads the Quran corpus and commentary sources and answers queries from
// the command line or over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/JuniperQuran/core/cache"
	qerrors "github.com/FocuswithJustin/JuniperQuran/core/errors"
	"github.com/FocuswithJustin/JuniperQuran/core/ingest"
	"github.com/FocuswithJustin/JuniperQuran/core/markup"
	"github.com/FocuswithJustin/JuniperQuran/core/quran"
	"github.com/FocuswithJustin/JuniperQuran/core/sqlite"
	qxml "github.com/FocuswithJustin/JuniperQuran/core/xml"
	"github.com/FocuswithJustin/JuniperQuran/internal/api"
	"github.com/FocuswithJustin/JuniperQuran/internal/config"
	"github.com/FocuswithJustin/JuniperQuran/internal/images"
	"github.com/FocuswithJustin/JuniperQuran/internal/logging"
	"github.com/FocuswithJustin/JuniperQuran/internal/validation"
)

// Globals are the flags shared by every command.
type Globals struct {
	Config     string   `name:"config" short:"c" help:"YAML configuration file" type:"path" env:"QURAN_CONFIG"`
	Primary    string   `name:"primary" help:"Primary source (XML, XML.xz or SQLite); overrides the config file" type:"path"`
	Commentary []string `name:"commentary" help:"Commentary source as path=lang (repeatable)" sep:"none"`
	LogLevel   string   `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogFormat  string   `name:"log-format" help:"Log format (json, text)"`

	stdout io.Writer
	stderr io.Writer
}

// CLI defines the command-line interface for quran.
type CLI struct {
	Globals

	Surahs   SurahsCmd   `cmd:"" help:"List surahs"`
	Pages    PagesCmd    `cmd:"" help:"Show the pages a surah spans"`
	Text     TextCmd     `cmd:"" help:"Print a surah as bounded chunks"`
	Ayah     AyahCmd     `cmd:"" help:"Print one ayah"`
	Tafseer  TafseerCmd  `cmd:"" help:"Print the commentary for one ayah"`
	Page     PageCmd     `cmd:"" help:"Locate or extract a page image"`
	Info     InfoCmd     `cmd:"" help:"Summarize the loaded corpus and its sources"`
	Validate ValidateCmd `cmd:"" help:"Check a source file without loading it"`
	Serve    ServeCmd    `cmd:"" help:"Start the REST and websocket API server"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// settings resolves the configuration: file, then environment, then flags.
// It also initializes logging to stderr.
func (g *Globals) settings() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}

	if g.Primary != "" {
		cfg.Primary.Path = g.Primary
		cfg.Primary.Layout = ""
		cfg.Primary.Table = ""
	}
	for _, v := range g.Commentary {
		src, err := config.ParseCommentaryFlag(v)
		if err != nil {
			return nil, err
		}
		cfg.Commentary = append(cfg.Commentary, src)
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Log.Format = g.LogFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	logging.InitLoggerTo(g.stderr, level, format)

	return cfg, nil
}

// loadCorpus runs ingest.Load. A partial corpus after a markup stream error
// is accepted only when load.allow_partial is set.
func loadCorpus(ctx context.Context, cfg *config.Config) (*quran.Corpus, error) {
	c, err := ingest.Load(ctx, cfg.Ingest())
	if err != nil {
		if c == nil || !cfg.Load.AllowPartial {
			return nil, err
		}
		logging.Warn("using partial corpus", "error", err.Error(), "ayat", c.Len())
	}
	return c, nil
}

func (g *Globals) corpus() (*config.Config, *quran.Corpus, error) {
	cfg, err := g.settings()
	if err != nil {
		return nil, nil, err
	}
	c, err := loadCorpus(context.Background(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, c, nil
}

func (g *Globals) printf(format string, args ...any) {
	fmt.Fprintf(g.stdout, format, args...)
}

// resolve finds a surah, and optionally an ayah, from a reference such as
// "2", "Al-Baqara", "البقرة" or "2:255".
func resolve(c *quran.Corpus, arg string) (*quran.Surah, quran.Ref, quran.Ayah, error) {
	ref, err := quran.ParseRef(arg)
	if err != nil {
		return nil, ref, quran.Ayah{}, err
	}
	sr, a, ok := c.Resolve(ref)
	if !ok {
		resource := "surah"
		if ref.Ayah != 0 {
			resource = "ayah"
		}
		return nil, ref, quran.Ayah{}, qerrors.NewNotFound(resource, arg)
	}
	return sr, ref, a, nil
}

func resolveAyah(c *quran.Corpus, arg string) (quran.Ayah, error) {
	_, ref, a, err := resolve(c, arg)
	if err != nil {
		return quran.Ayah{}, err
	}
	if ref.Ayah == 0 {
		return quran.Ayah{}, qerrors.NewValidation("ref", fmt.Sprintf("%q names a surah; use surah:ayah", arg))
	}
	return a, nil
}

func newImageStore(cfg *config.Config) *images.Store {
	if cfg.Images.Dir == "" {
		return nil
	}
	return images.NewStore(cfg.Images.Dir, cfg.PageImages(), cache.Config{
		MaxSize: cfg.Images.CacheSize,
		TTL:     cfg.Images.CacheTTL,
	})
}

// SurahsCmd lists the surahs in source order.
type SurahsCmd struct{}

func (c *SurahsCmd) Run(g *Globals) error {
	_, corpus, err := g.corpus()
	if err != nil {
		return err
	}
	for _, sr := range corpus.Surahs() {
		g.printf("%3d  %s  %s  (%d ayat)\n", sr.Number, sr.NameAr, sr.NameEn, sr.Len())
	}
	return nil
}

// PagesCmd prints the page images of a surah in delivery batches. With
// --out each batch is copied into its own numbered subdirectory.
type PagesCmd struct {
	Name string `arg:"" help:"Surah number or name"`
	Out  string `help:"Copy each batch of images into DIR/batch-N" type:"path" placeholder:"DIR"`
}

func (c *PagesCmd) Run(g *Globals) error {
	cfg, corpus, err := g.corpus()
	if err != nil {
		return err
	}
	sr, _, _, err := resolve(corpus, c.Name)
	if err != nil {
		return err
	}

	var store *images.Store
	if c.Out != "" {
		if store = newImageStore(cfg); store == nil {
			return qerrors.NewValidation("images.dir", "no page image directory configured")
		}
	}

	names := cfg.PageImages()
	var missing []error
	for i, batch := range quran.Batches(sr.Pages(), cfg.Text.PageBatch) {
		files := make([]string, 0, len(batch))
		for _, p := range batch {
			files = append(files, fmt.Sprintf("%d=%s", p, names.Name(p)))
		}
		g.printf("batch %d: %s\n", i+1, strings.Join(files, " "))

		if store == nil {
			continue
		}
		imgs, err := store.OpenAll(batch)
		if err != nil {
			missing = append(missing, err)
		}
		if err := writeBatch(filepath.Join(c.Out, fmt.Sprintf("batch-%d", i+1)), imgs); err != nil {
			return err
		}
	}
	return errors.Join(missing...)
}

func writeBatch(dir string, imgs []images.Image) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return qerrors.NewIO("mkdir", dir, err)
	}
	for _, img := range imgs {
		path := filepath.Join(dir, img.Name)
		if err := os.WriteFile(path, img.Data, 0o644); err != nil {
			return qerrors.NewIO("write", path, err)
		}
	}
	return nil
}

// TextCmd prints a surah's imla'i text, one chunk per block.
type TextCmd struct {
	Name  string `arg:"" help:"Surah number or name"`
	Limit int    `help:"Maximum characters per chunk (0 uses text.chunk_limit)"`
}

func (c *TextCmd) Run(g *Globals) error {
	cfg, corpus, err := g.corpus()
	if err != nil {
		return err
	}
	sr, _, _, err := resolve(corpus, c.Name)
	if err != nil {
		return err
	}

	limit := c.Limit
	if limit <= 0 {
		limit = cfg.Text.ChunkLimit
	}
	for i, chunk := range quran.SurahText(sr, limit) {
		if i > 0 {
			g.printf("\n")
		}
		g.printf("%s\n", strings.TrimRight(chunk, " "))
	}
	return nil
}

// AyahCmd prints one ayah in uthmani script.
type AyahCmd struct {
	Ref string `arg:"" help:"Ayah reference, e.g. 2:255 or Al-Baqara:255"`
}

func (c *AyahCmd) Run(g *Globals) error {
	_, corpus, err := g.corpus()
	if err != nil {
		return err
	}
	a, err := resolveAyah(corpus, c.Ref)
	if err != nil {
		return err
	}
	g.printf("%s\n", quran.FormatVerse(a))
	return nil
}

// TafseerCmd prints the commentary for one ayah.
type TafseerCmd struct {
	Ref  string `arg:"" help:"Ayah reference, e.g. 2:255"`
	Lang string `help:"Commentary language (defaults to the primary source language)"`
}

func (c *TafseerCmd) Run(g *Globals) error {
	cfg, corpus, err := g.corpus()
	if err != nil {
		return err
	}
	a, err := resolveAyah(corpus, c.Ref)
	if err != nil {
		return err
	}

	lang := c.Lang
	if lang == "" {
		lang = cfg.Primary.Language
	}
	text, ok := a.Tafseer(lang)
	if !ok {
		return qerrors.NewNotFound("tafseer", fmt.Sprintf("%s (%s); available: %s", a.Key(), lang, strings.Join(a.Languages(), ", ")))
	}
	g.printf("%s\n", text)
	return nil
}

// PageCmd resolves a page image, and copies it out when --out is given.
type PageCmd struct {
	Number int    `arg:"" help:"Page number"`
	Out    string `help:"Write the image to this file" type:"path"`
}

func (c *PageCmd) Run(g *Globals) error {
	cfg, err := g.settings()
	if err != nil {
		return err
	}
	store := newImageStore(cfg)
	if store == nil {
		return qerrors.NewValidation("images.dir", "no page image directory configured")
	}

	img, err := store.Open(c.Number)
	if err != nil {
		return err
	}
	if c.Out == "" {
		g.printf("%s (%d bytes)\n", store.Path(c.Number), len(img.Data))
		return nil
	}
	if err := os.WriteFile(c.Out, img.Data, 0o644); err != nil {
		return qerrors.NewIO("write", c.Out, err)
	}
	g.printf("wrote page %d to %s\n", c.Number, c.Out)
	return nil
}

// InfoCmd prints the corpus identity, counts and provenance as JSON.
type InfoCmd struct{}

type corpusInfo struct {
	ID       string             `json:"id"`
	LoadedAt string             `json:"loaded_at"`
	Surahs   int                `json:"surahs"`
	Ayat     int                `json:"ayat"`
	Sources  []quran.SourceInfo `json:"sources"`
	SQLite   sqlite.Info        `json:"sqlite"`
}

func (c *InfoCmd) Run(g *Globals) error {
	_, corpus, err := g.corpus()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(g.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(corpusInfo{
		ID:       corpus.ID,
		LoadedAt: corpus.LoadedAt.Format(time.RFC3339),
		Surahs:   len(corpus.Surahs()),
		Ayat:     corpus.Len(),
		Sources:  corpus.Sources,
		SQLite:   sqlite.GetInfo(),
	})
}

// ValidateCmd sniffs a source file and checks that it is readable.
type ValidateCmd struct {
	Path  string `arg:"" help:"Source file to check" type:"existingfile"`
	Table string `help:"SQLite table holding the ayat" default:"tafseer"`
}

func (c *ValidateCmd) Run(g *Globals) error {
	s, err := markup.Open(c.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	g.printf("path:        %s\n", c.Path)
	g.printf("type:        %s\n", s.Type)
	g.printf("compressed:  %t\n", s.Compressed)

	switch s.Type {
	case validation.FileTypeXML:
		data, err := io.ReadAll(s)
		if err != nil {
			return qerrors.NewIO("read", c.Path, err)
		}
		if err := c.checkXML(g, data); err != nil {
			return err
		}
	case validation.FileTypeSQLite:
		if s.Compressed {
			return qerrors.NewUnsupported("compressed SQLite source", c.Path)
		}
		if err := c.checkSQLite(g); err != nil {
			return err
		}
	default:
		return qerrors.NewUnsupported(fmt.Sprintf("%s source", s.Type), c.Path)
	}

	fp, err := s.Fingerprint()
	if err != nil {
		return err
	}
	g.printf("fingerprint: %s\n", fp)
	return nil
}

func (c *ValidateCmd) checkXML(g *Globals, data []byte) error {
	result := qxml.Validate(data)
	if !result.Valid {
		for _, e := range result.Errors {
			g.printf("error:       %d:%d %s\n", e.Line, e.Column, e.Message)
		}
		e := result.Errors[0]
		return &qerrors.MarkupStreamError{Source: c.Path, Line: e.Line, Column: e.Column, Err: errors.New(e.Message)}
	}

	sum, err := qxml.Summarize(data)
	if err != nil {
		return err
	}
	g.printf("layout:      %s\n", sum.Layout)
	switch sum.Layout {
	case qxml.LayoutRows:
		g.printf("rows:        %d\n", sum.Rows)
	case qxml.LayoutSurahs:
		g.printf("surahs:      %d\n", sum.Surahs)
		g.printf("ayat:        %d\n", sum.Ayat)
	default:
		return qerrors.NewUnsupported("document without ROW or sura records", c.Path)
	}
	return nil
}

func (c *ValidateCmd) checkSQLite(g *Globals) error {
	db, err := sqlite.OpenReadOnly(c.Path)
	if err != nil {
		return qerrors.NewIO("open", c.Path, err)
	}
	defer db.Close()

	var rows int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %q", c.Table)
	if err := db.QueryRow(query).Scan(&rows); err != nil {
		return qerrors.Wrapf(err, "counting rows of %s", c.Table)
	}
	g.printf("table:       %s\n", c.Table)
	g.printf("rows:        %d\n", rows)
	return nil
}

// ServeCmd runs the API server. SIGHUP reloads the sources; SIGINT and
// SIGTERM shut down gracefully.
type ServeCmd struct {
	Port int `help:"HTTP server port (overrides server.port)"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := g.settings()
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	corpus, err := loadCorpus(ctx, cfg)
	if err != nil {
		return err
	}

	srv := api.New(apiConfig(cfg), corpus, newImageStore(cfg))
	if cfg.Server.APIKey == "" {
		logging.Info("authentication disabled", "hint", api.APIKeyHint())
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go reloadOnSignal(ctx, hup, cfg, srv)

	return srv.Run(ctx)
}

func reloadOnSignal(ctx context.Context, hup <-chan os.Signal, cfg *config.Config, srv *api.Server) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			c, err := loadCorpus(ctx, cfg)
			if err != nil {
				logging.Error("corpus reload failed", "error", err.Error())
				continue
			}
			srv.SetCorpus(c)
		}
	}
}

func apiConfig(cfg *config.Config) api.Config {
	return api.Config{
		Port:              cfg.Server.Port,
		RateLimitRequests: cfg.Server.RateLimit,
		RateLimitBurst:    cfg.Server.RateBurst,
		Auth: api.AuthConfig{
			Enabled: cfg.Server.APIKey != "",
			APIKey:  cfg.Server.APIKey,
		},
		TLS: api.TLSConfig{
			Enabled:  cfg.Server.TLS.Enabled,
			CertFile: cfg.Server.TLS.CertFile,
			KeyFile:  cfg.Server.TLS.KeyFile,
		},
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ChunkLimit:      cfg.Text.ChunkLimit,
		PageBatch:       cfg.Text.PageBatch,
		TafseerLanguage: cfg.Primary.Language,
	}
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	g.printf("quran version %s (sqlite: %s)\n", api.Version, sqlite.DriverType())
	return nil
}

// run parses args and executes the selected command.
func run(args []string, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("quran"),
		kong.Description("Juniper Quran - Quran corpus and tafseer query engine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return err
	}

	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cli.stdout = stdout
	cli.stderr = stderr
	return ctx.Run(&cli.Globals)
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "quran: %v\n", err)
		os.Exit(1)
	}
}
