package quran

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	qerrors "github.com/FocuswithJustin/JuniperQuran/core/errors"
)

// Ref is a parsed surah or ayah reference. Exactly one of Surah and Name
// is set; Ayah is 0 for whole-surah references.
type Ref struct {
	Surah int
	Name  string
	Ayah  int
}

func (r Ref) String() string {
	head := r.Name
	if r.Surah > 0 {
		head = strconv.Itoa(r.Surah)
	}
	if r.Ayah > 0 {
		return head + ":" + strconv.Itoa(r.Ayah)
	}
	return head
}

// refGrammar accepts "2", "2:255", "2 255", "البقرة:255" and
// "Al-Baqarah 255".
//
//nolint:govet // participle grammar tags are not standard struct tags
type refGrammar struct {
	Number *int     `(  @Int`
	Words  []string `| @Word+ )`
	Ayah   *int     `( ":"? @Int )?`
}

var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Word", Pattern: `[^\s:0-9][^\s:]*`},
	{Name: "Punct", Pattern: `:`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var refParser = participle.MustBuild[refGrammar](
	participle.Lexer(refLexer),
	participle.Elide("Whitespace"),
)

// ParseRef parses a surah or ayah reference. Names are normalized with
// NormalizeName so they compare against stored Arabic names.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, qerrors.NewParse("reference", "", "empty reference")
	}

	g, err := refParser.ParseString("", s)
	if err != nil {
		return Ref{}, &qerrors.ParseError{Format: "reference", Message: err.Error(), Err: qerrors.ErrInvalidInput}
	}

	var ref Ref
	if g.Number != nil {
		if *g.Number <= 0 {
			return Ref{}, qerrors.NewParse("reference", "", "surah number must be positive")
		}
		ref.Surah = *g.Number
	} else {
		ref.Name = NormalizeName(strings.Join(g.Words, " "))
	}
	if g.Ayah != nil {
		if *g.Ayah <= 0 {
			return Ref{}, qerrors.NewParse("reference", "", "ayah number must be positive")
		}
		ref.Ayah = *g.Ayah
	}
	return ref, nil
}
