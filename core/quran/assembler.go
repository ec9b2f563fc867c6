package quran

import (
	"crypto/rand"
	"fmt"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	qerrors "github.com/FocuswithJustin/JuniperQuran/core/errors"
)

// Assembler collects finalized ayat into surahs and freezes them into a
// Corpus. It is the only way to build a Corpus and must not be used after
// Corpus has been called.
type Assembler struct {
	surahs   []*Surah
	byNumber map[int]*Surah
	sources  []SourceInfo
	ayat     int
	frozen   bool
}

// NewAssembler returns an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{byNumber: make(map[int]*Surah)}
}

// Add appends an ayah to its surah, creating the surah on first sight.
// Ayah numbers must be unique within a surah and every ayah of a surah must
// carry the same names.
func (a *Assembler) Add(ay Ayah) error {
	if a.frozen {
		return fmt.Errorf("assembler already frozen")
	}

	s, ok := a.byNumber[ay.Surah]
	if !ok {
		s = &Surah{
			Number: ay.Surah,
			NameAr: ay.SurahNameAr,
			NameEn: ay.SurahNameEn,
			index:  make(map[int]int),
		}
		a.byNumber[ay.Surah] = s
		a.surahs = append(a.surahs, s)
	}

	if _, dup := s.index[ay.Number]; dup {
		return &qerrors.DuplicateRecordError{Record: "ayah", Key: ay.Key().String()}
	}
	if ay.SurahNameAr != s.NameAr || ay.SurahNameEn != s.NameEn {
		return &qerrors.ValidationError{
			Field:   "sura_name",
			Value:   ay.SurahNameAr + " / " + ay.SurahNameEn,
			Message: fmt.Sprintf("ayah %s disagrees with surah name %s / %s", ay.Key(), s.NameAr, s.NameEn),
		}
	}

	s.index[ay.Number] = len(s.ayat)
	s.ayat = append(s.ayat, ay)
	a.ayat++
	return nil
}

// HasSurah reports whether any ayah of surah number n has been added.
func (a *Assembler) HasSurah(n int) bool {
	_, ok := a.byNumber[n]
	return ok
}

// Annotate attaches commentary text under lang to the ayah at key. It
// returns false, creating nothing, when the key is unknown.
func (a *Assembler) Annotate(key Key, lang, text string) bool {
	if a.frozen {
		return false
	}
	s, ok := a.byNumber[key.Surah]
	if !ok {
		return false
	}
	i, ok := s.index[key.Ayah]
	if !ok {
		return false
	}
	s.ayat[i] = s.ayat[i].WithTafseer(lang, text)
	return true
}

// AddSource records provenance for the corpus. It returns false once the
// assembler is frozen.
func (a *Assembler) AddSource(info SourceInfo) bool {
	if a.frozen {
		return false
	}
	a.sources = append(a.sources, info)
	return true
}

// Len returns the number of ayat added so far.
func (a *Assembler) Len() int {
	return a.ayat
}

// Corpus freezes the assembled data and returns it.
func (a *Assembler) Corpus() *Corpus {
	a.frozen = true

	c := &Corpus{
		ID:       ulid.MustNew(ulid.Now(), ulid.Monotonic(rand.Reader, 0)).String(),
		LoadedAt: time.Now().UTC(),
		Sources:  slices.Clone(a.sources),
		surahs:   a.surahs,
		byNumber: a.byNumber,
		byName:   make(map[string]*Surah, 2*len(a.surahs)),
		ayat:     a.ayat,
	}
	for _, s := range a.surahs {
		for _, name := range s.Names() {
			if name == "" {
				continue
			}
			// first surah wins on a shared name form
			if _, taken := c.byName[name]; !taken {
				c.byName[name] = s
			}
		}
	}
	return c
}
