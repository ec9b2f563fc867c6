package ingest

import (
	"errors"
	"io"
	"strings"

	qerrors "github.com/FocuswithJustin/JuniperQuran/core/errors"
	"github.com/FocuswithJustin/JuniperQuran/core/markup"
	"github.com/FocuswithJustin/JuniperQuran/core/quran"
	"github.com/FocuswithJustin/JuniperQuran/internal/logging"
)

// recordElement encloses one ayah in the ROW layout.
const recordElement = "ROW"

// DefaultLanguage is the commentary language of the primary source.
const DefaultLanguage = "ar"

// Policy decides what happens to a record that cannot be added.
type Policy int

const (
	// PolicyStrict aborts the load on the first bad record.
	PolicyStrict Policy = iota
	// PolicySkip logs the bad record and continues with the next one.
	PolicySkip
)

func (p Policy) String() string {
	if p == PolicySkip {
		return "skip"
	}
	return "strict"
}

// Options configures a Loader.
type Options struct {
	Policy Policy
	// PrimaryLang is the language key for aya_tafseer found in the primary
	// source. Empty means DefaultLanguage.
	PrimaryLang string
}

// Loader drives markup sources into an Assembler.
type Loader struct {
	opts Options
}

// NewLoader returns a Loader with opts.
func NewLoader(opts Options) *Loader {
	if opts.PrimaryLang == "" {
		opts.PrimaryLang = DefaultLanguage
	}
	return &Loader{opts: opts}
}

// LoadPrimary reads ROW records from src into a and returns how many were
// added. A stream error stops the load; records added before it stay in a.
//
// Field text is collected across every text event of the element, so
// content split by comments or CDATA sections is kept whole. The field is
// set once when it closes or when a child element opens.
func (l *Loader) LoadPrimary(a *quran.Assembler, name string, src markup.Source) (int, error) {
	var (
		b      *AyahBuilder
		bad    error
		cursor field
		text   strings.Builder
		index  int
		added  int
	)

	flush := func() {
		defer text.Reset()
		if b == nil || cursor == fieldNone || bad != nil {
			return
		}
		v := strings.TrimSpace(text.String())
		if v == "" {
			return
		}
		if err := b.Set(cursor, v); err != nil {
			bad = wrapRecord(index, err)
		}
	}

	for {
		ev, err := src.Next()
		if errors.Is(err, io.EOF) {
			return added, nil
		}
		if err != nil {
			return added, err
		}

		switch ev.Kind {
		case markup.StartElement:
			flush()
			if ev.Name == recordElement {
				index++
				b = NewAyahBuilder(index)
				bad = nil
			}
			cursor = fieldFor(ev.Name)

		case markup.Text:
			if b != nil && cursor != fieldNone {
				text.WriteString(ev.Text)
			}

		case markup.EndElement:
			flush()
			cursor = fieldNone
			if ev.Name != recordElement || b == nil {
				continue
			}
			err := bad
			if err == nil {
				err = l.add(a, b)
			}
			b = nil
			if err == nil {
				added++
				continue
			}
			if l.opts.Policy == PolicySkip {
				logging.RecordSkipped(name, index, err)
				continue
			}
			return added, err
		}
	}
}

func (l *Loader) add(a *quran.Assembler, b *AyahBuilder) error {
	ayah, err := b.Finalize(l.opts.PrimaryLang)
	if err != nil {
		return err
	}
	return a.Add(ayah)
}

// wrapRecord ties a field error to the record it came from.
func wrapRecord(index int, err error) error {
	return qerrors.Wrapf(err, "ayah record #%d", index)
}
