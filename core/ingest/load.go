package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	qerrors "github.com/FocuswithJustin/JuniperQuran/core/errors"
	"github.com/FocuswithJustin/JuniperQuran/core/markup"
	"github.com/FocuswithJustin/JuniperQuran/core/quran"
	"github.com/FocuswithJustin/JuniperQuran/core/sqlite"
	qxml "github.com/FocuswithJustin/JuniperQuran/core/xml"
	"github.com/FocuswithJustin/JuniperQuran/internal/logging"
	"github.com/FocuswithJustin/JuniperQuran/internal/validation"
)

// Role says how a source contributes to the corpus.
type Role string

const (
	// RolePrimary sources provide the ayah records.
	RolePrimary Role = "primary"
	// RoleCommentary sources attach commentary to existing ayat.
	RoleCommentary Role = "commentary"
)

// Source is one input file.
type Source struct {
	Path string
	Role Role
	// Language keys commentary. For primary sources it applies to
	// aya_tafseer; empty means DefaultLanguage.
	Language string
	// Layout skips detection when set.
	Layout qxml.Layout
	// Table names the SQLite table; empty means DefaultTable.
	Table string
}

// Config lists the sources of one load.
type Config struct {
	Sources []Source
	Options Options
}

// Load reads every primary source, then merges every commentary source,
// and returns the frozen corpus.
//
// A malformed markup stream stops that source only. Load then carries on
// with the remaining sources and returns the corpus together with the
// stream errors, so callers can choose to serve partial data. Any other
// error returns a nil corpus.
func Load(ctx context.Context, cfg Config) (*quran.Corpus, error) {
	start := time.Now()

	var primaries, commentaries []Source
	for _, src := range cfg.Sources {
		switch src.Role {
		case RolePrimary, "":
			src.Role = RolePrimary
			primaries = append(primaries, src)
		case RoleCommentary:
			commentaries = append(commentaries, src)
		default:
			return nil, qerrors.NewValidation("role", fmt.Sprintf("unknown source role %q for %s", src.Role, src.Path))
		}
	}
	if len(primaries) == 0 {
		return nil, qerrors.NewValidation("sources", "at least one primary source is required")
	}

	l := NewLoader(cfg.Options)
	a := quran.NewAssembler()

	var streamErrs []error
	for _, src := range append(primaries, commentaries...) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := l.loadSource(ctx, a, src)
		var mse *qerrors.MarkupStreamError
		switch {
		case errors.As(err, &mse):
			logging.Error("source stream aborted", "path", src.Path, "error", err.Error(), "records", info.Records)
			streamErrs = append(streamErrs, err)
		case err != nil:
			return nil, err
		}

		a.AddSource(info)
		logging.SourceLoaded(info.Path, info.Role, info.Layout, info.Records, "fingerprint", info.Fingerprint)
	}

	c := a.Corpus()
	logging.CorpusLoaded(c.ID, len(c.Surahs()), c.Len(), time.Since(start), "sources", len(c.Sources))
	return c, errors.Join(streamErrs...)
}

func (l *Loader) loadSource(ctx context.Context, a *quran.Assembler, src Source) (quran.SourceInfo, error) {
	info := quran.SourceInfo{Path: src.Path, Role: string(src.Role), Language: src.Language}

	s, err := markup.Open(src.Path)
	if err != nil {
		return info, err
	}
	defer s.Close()

	switch s.Type {
	case validation.FileTypeSQLite:
		if s.Compressed {
			return info, qerrors.NewUnsupported("compressed SQLite source", src.Path)
		}
		if src.Role != RolePrimary {
			return info, qerrors.NewUnsupported("SQLite commentary source", src.Path)
		}
		info.Layout = "sqlite"
		info.Language = l.forLanguage(src.Language).opts.PrimaryLang
		if info.Fingerprint, err = s.Fingerprint(); err != nil {
			return info, err
		}
		info.Records, err = l.loadSQLite(ctx, a, src)
		return info, err

	case validation.FileTypeXML:
	default:
		return info, qerrors.NewUnsupported(fmt.Sprintf("%s source", s.Type), src.Path)
	}

	layout := src.Layout
	if layout == "" {
		if layout, err = detectLayout(src.Path); err != nil {
			return info, err
		}
	}
	info.Layout = string(layout)

	dec := markup.NewDecoder(src.Path, s)
	switch {
	case src.Role == RolePrimary && layout == qxml.LayoutRows:
		pl := l.forLanguage(src.Language)
		info.Language = pl.opts.PrimaryLang
		info.Records, err = pl.LoadPrimary(a, src.Path, dec)
	case src.Role == RoleCommentary && layout == qxml.LayoutSurahs:
		lang := src.Language
		if lang == "" {
			lang = DefaultLanguage
			info.Language = lang
		}
		var stats MergeStats
		stats, err = l.MergeCommentary(a, src.Path, dec, lang)
		info.Records = stats.Attached
		if stats.Dropped > 0 {
			logging.Info("commentary entries dropped", "path", src.Path, "dropped", stats.Dropped)
		}
	default:
		return info, qerrors.NewUnsupported(fmt.Sprintf("%s layout for a %s source", layout, src.Role), src.Path)
	}
	if err != nil {
		return info, err
	}

	info.Fingerprint, err = s.Fingerprint()
	return info, err
}

func (l *Loader) loadSQLite(ctx context.Context, a *quran.Assembler, src Source) (int, error) {
	db, err := sqlite.OpenReadOnly(src.Path)
	if err != nil {
		return 0, qerrors.NewIO("open", src.Path, err)
	}
	defer db.Close()

	return l.forLanguage(src.Language).LoadRows(ctx, a, src.Path, db, src.Table)
}

// forLanguage returns a loader that files primary commentary under lang.
func (l *Loader) forLanguage(lang string) *Loader {
	if lang == "" || lang == l.opts.PrimaryLang {
		return l
	}
	sub := *l
	sub.opts.PrimaryLang = lang
	return &sub
}

// detectLayout peeks at a source in a separate pass so the loading pass
// starts from the first byte.
func detectLayout(path string) (qxml.Layout, error) {
	s, err := markup.Open(path)
	if err != nil {
		return qxml.LayoutUnknown, err
	}
	defer s.Close()

	layout, err := qxml.DetectLayout(s)
	var mse *qerrors.MarkupStreamError
	if errors.As(err, &mse) {
		mse.Source = path
		return qxml.LayoutUnknown, mse
	}
	if err != nil {
		return qxml.LayoutUnknown, qerrors.Wrapf(err, "detecting layout of %s", path)
	}
	return layout, nil
}
