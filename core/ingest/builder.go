// Package ingest builds a quran.Corpus from markup and SQLite sources.
//
// Records are assembled field by field in an AyahBuilder while their
// enclosing element is open and finalized when it closes. Finalization is
// all-or-nothing: a record missing any required field never reaches the
// corpus.
package ingest

import (
	"strconv"
	"strings"

	qerrors "github.com/FocuswithJustin/JuniperQuran/core/errors"
	"github.com/FocuswithJustin/JuniperQuran/core/quran"
)

// field is the column the parser cursor currently points at.
type field int

const (
	fieldNone field = iota
	fieldID
	fieldJuz
	fieldPage
	fieldSurahNo
	fieldSurahNameEn
	fieldSurahNameAr
	fieldLineStart
	fieldLineEnd
	fieldAyahNo
	fieldText
	fieldTextImlaei
	fieldTafseer
)

// Column names shared by the XML export and the SQLite table.
var fieldNames = map[field]string{
	fieldID:          "id",
	fieldJuz:         "jozz",
	fieldPage:        "page",
	fieldSurahNo:     "sura_no",
	fieldSurahNameEn: "sura_name_en",
	fieldSurahNameAr: "sura_name_ar",
	fieldLineStart:   "line_start",
	fieldLineEnd:     "line_end",
	fieldAyahNo:      "aya_no",
	fieldText:        "aya_text",
	fieldTextImlaei:  "aya_text_emlaey",
	fieldTafseer:     "aya_tafseer",
}

var fieldsByName = func() map[string]field {
	m := make(map[string]field, len(fieldNames))
	for f, name := range fieldNames {
		m[name] = f
	}
	return m
}()

// fieldFor maps an element or column name to its field; unknown names map
// to fieldNone.
func fieldFor(name string) field {
	return fieldsByName[name]
}

func (f field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return "none"
}

// option is a value that is either set or absent.
type option[T any] struct {
	value T
	ok    bool
}

func (o *option[T]) set(v T) {
	o.value = v
	o.ok = true
}

// AyahBuilder accumulates the fields of one ayah record. A fresh builder is
// used for every record.
type AyahBuilder struct {
	index int

	id          option[int]
	juz         option[int]
	page        option[int]
	surahNo     option[int]
	surahNameEn option[string]
	surahNameAr option[string]
	lineStart   option[int]
	lineEnd     option[int]
	ayahNo      option[int]
	text        option[string]
	textImlaei  option[string]
	tafseer     option[string]
}

// NewAyahBuilder returns a builder for the index-th record of a source
// (1-based, used in error reports).
func NewAyahBuilder(index int) *AyahBuilder {
	return &AyahBuilder{index: index}
}

// One setter per field.

func (b *AyahBuilder) SetID(v int) { b.id.set(v) }
func (b *AyahBuilder) SetJuz(v int) { b.juz.set(v) }
func (b *AyahBuilder) SetPage(v int) { b.page.set(v) }
func (b *AyahBuilder) SetSurahNo(v int) { b.surahNo.set(v) }
func (b *AyahBuilder) SetSurahNameEn(v string) { b.surahNameEn.set(v) }
func (b *AyahBuilder) SetLineStart(v int) { b.lineStart.set(v) }
func (b *AyahBuilder) SetLineEnd(v int) { b.lineEnd.set(v) }
func (b *AyahBuilder) SetAyahNo(v int) { b.ayahNo.set(v) }
func (b *AyahBuilder) SetText(v string) { b.text.set(v) }
func (b *AyahBuilder) SetTextImlaei(v string) { b.textImlaei.set(v) }
func (b *AyahBuilder) SetTafseer(v string) { b.tafseer.set(v) }

// SetSurahNameAr stores the Arabic surah name with harakat removed.
func (b *AyahBuilder) SetSurahNameAr(v string) { b.surahNameAr.set(quran.NormalizeName(v)) }

// Set routes raw text to field f, trimming it and parsing numeric fields.
func (b *AyahBuilder) Set(f field, raw string) error {
	raw = strings.TrimSpace(raw)

	switch f {
	case fieldSurahNameEn:
		b.SetSurahNameEn(raw)
		return nil
	case fieldSurahNameAr:
		b.SetSurahNameAr(raw)
		return nil
	case fieldText:
		b.SetText(raw)
		return nil
	case fieldTextImlaei:
		b.SetTextImlaei(raw)
		return nil
	case fieldTafseer:
		b.SetTafseer(raw)
		return nil
	case fieldNone:
		return nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return &qerrors.ValidationError{
			Field:   f.String(),
			Value:   raw,
			Message: "not an integer",
			Err:     err,
		}
	}

	switch f {
	case fieldID:
		b.SetID(n)
	case fieldJuz:
		b.SetJuz(n)
	case fieldPage:
		b.SetPage(n)
	case fieldSurahNo:
		b.SetSurahNo(n)
	case fieldLineStart:
		b.SetLineStart(n)
	case fieldLineEnd:
		b.SetLineEnd(n)
	case fieldAyahNo:
		b.SetAyahNo(n)
	}
	return nil
}

// Finalize checks that every required field was set and returns the ayah.
// The optional tafseer, when present, is attached under lang.
func (b *AyahBuilder) Finalize(lang string) (quran.Ayah, error) {
	var missing []string
	need := func(ok bool, f field) {
		if !ok {
			missing = append(missing, f.String())
		}
	}
	need(b.id.ok, fieldID)
	need(b.juz.ok, fieldJuz)
	need(b.page.ok, fieldPage)
	need(b.surahNo.ok, fieldSurahNo)
	need(b.surahNameEn.ok, fieldSurahNameEn)
	need(b.surahNameAr.ok, fieldSurahNameAr)
	need(b.lineStart.ok, fieldLineStart)
	need(b.lineEnd.ok, fieldLineEnd)
	need(b.ayahNo.ok, fieldAyahNo)
	need(b.text.ok, fieldText)
	need(b.textImlaei.ok, fieldTextImlaei)

	if len(missing) > 0 {
		return quran.Ayah{}, &qerrors.IncompleteRecordError{
			Record:  "ayah",
			Index:   b.index,
			Missing: missing,
		}
	}

	a := quran.Ayah{
		ID:          b.id.value,
		Juz:         b.juz.value,
		Page:        b.page.value,
		Surah:       b.surahNo.value,
		Number:      b.ayahNo.value,
		SurahNameAr: b.surahNameAr.value,
		SurahNameEn: b.surahNameEn.value,
		LineStart:   b.lineStart.value,
		LineEnd:     b.lineEnd.value,
		Text:        b.text.value,
		TextImlaei:  b.textImlaei.value,
	}
	if b.tafseer.ok && b.tafseer.value != "" {
		a = a.WithTafseer(lang, b.tafseer.value)
	}
	return a, nil
}
