// Package quran holds the in-memory corpus: surahs, their ayat with page and
// line layout and per-language commentary, plus the read-only queries the
// presentation layers run against it.
//
// A Corpus is produced once by an Assembler and never changes afterwards,
// so it can be shared by any number of goroutines without locking.
package quran

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// Key identifies an ayah by surah number and ayah number within the surah.
// Both source layouts (sura_no/aya_no columns and sura/aya index
// attributes) resolve to this key.
type Key struct {
	Surah int `json:"surah"`
	Ayah  int `json:"ayah"`
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d", k.Surah, k.Ayah)
}

// Ayah is a single verse with its layout and commentary.
type Ayah struct {
	// ID is the running position of the ayah in the primary source.
	ID int
	// Juz is the juz' the ayah belongs to.
	Juz int
	// Page is the mushaf page the ayah appears on.
	Page int
	// Surah is the surah number.
	Surah int
	// Number is the ayah number within its surah.
	Number int
	// SurahNameAr is the Arabic surah name with harakat removed.
	SurahNameAr string
	// SurahNameEn is the transliterated surah name.
	SurahNameEn string
	// LineStart and LineEnd are the first and last page lines of the ayah.
	LineStart int
	LineEnd   int
	// Text is the ayah in uthmani script.
	Text string
	// TextImlaei is the ayah in standard (imla'i) orthography.
	TextImlaei string

	commentary map[string]string
}

// Key returns the composite identity of the ayah.
func (a Ayah) Key() Key {
	return Key{Surah: a.Surah, Ayah: a.Number}
}

// Tafseer returns the commentary for lang, if any source supplied one.
func (a Ayah) Tafseer(lang string) (string, bool) {
	text, ok := a.commentary[lang]
	return text, ok
}

// Languages lists the commentary languages attached to the ayah, sorted.
func (a Ayah) Languages() []string {
	return slices.Sorted(maps.Keys(a.commentary))
}

// WithTafseer returns a copy of a carrying text as its lang commentary.
// The receiver is not modified.
func (a Ayah) WithTafseer(lang, text string) Ayah {
	c := make(map[string]string, len(a.commentary)+1)
	maps.Copy(c, a.commentary)
	c[lang] = text
	a.commentary = c
	return a
}

// Surah is an ordered run of ayat sharing a surah number.
type Surah struct {
	Number int
	NameAr string
	NameEn string

	ayat  []Ayah
	index map[int]int
}

// Names returns every name form the surah can be looked up by.
func (s *Surah) Names() []string {
	return []string{s.NameAr, s.NameEn}
}

// Len returns the number of ayat in the surah.
func (s *Surah) Len() int {
	return len(s.ayat)
}

// Ayat returns the surah's ayat in source order. The slice is a copy.
func (s *Surah) Ayat() []Ayah {
	return slices.Clone(s.ayat)
}

// Ayah returns the ayah with the given number.
func (s *Surah) Ayah(number int) (Ayah, bool) {
	i, ok := s.index[number]
	if !ok {
		return Ayah{}, false
	}
	return s.ayat[i], true
}

// Pages returns the distinct pages the surah spans, ascending.
func (s *Surah) Pages() []int {
	return DistinctPages(s.ayat)
}

// SourceInfo describes one source that contributed to a corpus.
type SourceInfo struct {
	Path        string `json:"path"`
	Role        string `json:"role"` // "primary" or "commentary"
	Layout      string `json:"layout"`
	Language    string `json:"language,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Records     int    `json:"records"`
}

// Corpus is the read-only collection of surahs.
type Corpus struct {
	// ID identifies this load of the corpus.
	ID string
	// LoadedAt is when the corpus was frozen.
	LoadedAt time.Time
	// Sources lists the inputs in load order.
	Sources []SourceInfo

	surahs   []*Surah
	byNumber map[int]*Surah
	byName   map[string]*Surah
	ayat     int
}

// Surahs returns the surahs in source order.
func (c *Corpus) Surahs() []*Surah {
	return slices.Clone(c.surahs)
}

// Surah returns the surah with the given number.
func (c *Corpus) Surah(number int) (*Surah, bool) {
	s, ok := c.byNumber[number]
	return s, ok
}

// Len returns the total number of ayat.
func (c *Corpus) Len() int {
	return c.ayat
}

// Lookup finds a surah whose Arabic or English name equals name exactly.
// Arabic names are stored without harakat; callers holding user input
// should pass it through NormalizeName first.
func (c *Corpus) Lookup(name string) (*Surah, bool) {
	s, ok := c.byName[name]
	return s, ok
}

// LookupAyah finds ayah number within the surah called name.
func (c *Corpus) LookupAyah(name string, number int) (Ayah, bool) {
	s, ok := c.Lookup(name)
	if !ok {
		return Ayah{}, false
	}
	return s.Ayah(number)
}

// Resolve finds the surah and, when the reference names one, the ayah.
// The returned ayah is the zero value for surah-only references.
func (c *Corpus) Resolve(ref Ref) (*Surah, Ayah, bool) {
	var (
		s  *Surah
		ok bool
	)
	if ref.Surah > 0 {
		s, ok = c.Surah(ref.Surah)
	} else {
		s, ok = c.Lookup(ref.Name)
	}
	if !ok {
		return nil, Ayah{}, false
	}
	if ref.Ayah == 0 {
		return s, Ayah{}, true
	}
	a, ok := s.Ayah(ref.Ayah)
	if !ok {
		return nil, Ayah{}, false
	}
	return s, a, true
}
