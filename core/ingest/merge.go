package ingest

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/JuniperQuran/core/markup"
	"github.com/FocuswithJustin/JuniperQuran/core/quran"
	"github.com/FocuswithJustin/JuniperQuran/internal/logging"
)

// Element and attribute names of the surah layout used by commentary
// sources: <sura index="2"><aya index="255" text="..."/></sura>.
const (
	surahElement = "sura"
	ayahElement  = "aya"
	indexAttr    = "index"
	textAttr     = "text"
)

// MergeStats counts the outcome of a commentary merge.
type MergeStats struct {
	Attached int `json:"attached"`
	Dropped  int `json:"dropped"`
}

// MergeCommentary streams a commentary source and attaches each entry to
// the matching ayah in a under lang. Entries whose surah or ayah does not
// exist in a are dropped; no ayah is ever created by a merge.
//
// A surah missing from a clears the current surah, so entries under it can
// never land in the surah that preceded the gap.
func (l *Loader) MergeCommentary(a *quran.Assembler, name string, src markup.Source, lang string) (MergeStats, error) {
	var (
		stats   MergeStats
		surah   int
		pending *quran.Key
		text    strings.Builder
	)

	attach := func(key quran.Key, body string) {
		body = strings.TrimSpace(body)
		if body != "" && a.Annotate(key, lang, body) {
			stats.Attached++
			return
		}
		stats.Dropped++
		logging.Debug("commentary dropped", "source", name, "key", key.String())
	}

	for {
		ev, err := src.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}

		switch ev.Kind {
		case markup.StartElement:
			switch ev.Name {
			case surahElement:
				surah = 0
				if n, ok := intAttr(ev, indexAttr); ok && a.HasSurah(n) {
					surah = n
				} else {
					logging.Debug("commentary surah not in corpus", "source", name, "index", ev.Attrs[indexAttr])
				}
			case ayahElement:
				n, ok := intAttr(ev, indexAttr)
				if !ok || surah == 0 {
					stats.Dropped++
					continue
				}
				key := quran.Key{Surah: surah, Ayah: n}
				if body, ok := ev.Attr(textAttr); ok {
					attach(key, body)
					continue
				}
				pending = &key
				text.Reset()
			}

		case markup.Text:
			if pending != nil {
				text.WriteString(ev.Text)
			}

		case markup.EndElement:
			switch ev.Name {
			case ayahElement:
				if pending != nil {
					attach(*pending, text.String())
					pending = nil
				}
			case surahElement:
				surah = 0
			}
		}
	}
}

func intAttr(ev markup.Event, name string) (int, bool) {
	v, ok := ev.Attr(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
