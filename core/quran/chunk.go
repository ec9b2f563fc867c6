package quran

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultChunkLimit keeps each chunk safely below a 2000 character message
// cap.
const DefaultChunkLimit = 1700

// FormatAyah renders an ayah for running text: "<text> (<number>) ".
func FormatAyah(text string, number int) string {
	return fmt.Sprintf("%s (%d) ", text, number)
}

// FormatVerse renders a single ayah on its own: "<text> (<number>)".
func FormatVerse(a Ayah) string {
	return fmt.Sprintf("%s (%d)", a.Text, a.Number)
}

// Chunk packs texts, in order, into chunks measured in characters (runes).
// Before each text is appended the current chunk is checked: if it is
// non-empty and adding the text would bring it to limit or beyond, a new
// chunk is started first. A chunk therefore only reaches limit when it
// holds a single overlong text. The result always has at least one chunk;
// empty input yields [""].
func Chunk(texts []string, limit int) []string {
	chunks := []string{""}
	var (
		current strings.Builder
		length  int
	)
	for _, text := range texts {
		n := utf8.RuneCountInString(text)
		if length > 0 && length+n >= limit {
			chunks[len(chunks)-1] = current.String()
			chunks = append(chunks, "")
			current.Reset()
			length = 0
		}
		current.WriteString(text)
		length += n
	}
	chunks[len(chunks)-1] = current.String()
	return chunks
}

// SurahText renders the surah in imla'i script and chunks it.
func SurahText(s *Surah, limit int) []string {
	texts := make([]string, 0, s.Len())
	for _, a := range s.ayat {
		texts = append(texts, FormatAyah(a.TextImlaei, a.Number))
	}
	return Chunk(texts, limit)
}
