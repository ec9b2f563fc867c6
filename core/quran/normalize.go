package quran

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// isHaraka reports whether r is a vocalization mark: fathatan through the
// end of the Arabic combining block (U+064B..U+065F) or the superscript
// alef (U+0670).
func isHaraka(r rune) bool {
	return (r >= '\u064B' && r <= '\u065F') || r == '\u0670'
}

var stripHarakat = runes.Remove(runes.Predicate(isHaraka))

// NormalizeName removes harakat from a surah name. Applying it twice gives
// the same result as applying it once.
func NormalizeName(name string) string {
	out, _, err := transform.String(stripHarakat, name)
	if err != nil {
		// runes.Remove never fails on valid input; keep the name as given
		return name
	}
	return out
}
