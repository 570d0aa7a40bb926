package builtin

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"crmetl/pkg/records"
)

// Title capitalizes the first cased letter of every word and lowercases the
// rest. A word boundary is any rune that is not a cased letter, so
// "o'neil" becomes "O'Neil" and "3er piso" becomes "3Er Piso".
func Title(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevCased := false
	for _, r := range s {
		cased := unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
		switch {
		case !cased:
			b.WriteRune(r)
		case prevCased:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(unicode.ToTitle(r))
		}
		prevCased = cased
	}
	return b.String()
}

// TitleCase applies Title to each listed column. Non-string values are
// rendered as text first; nil stays nil.
type TitleCase struct {
	Columns []string
}

func (tc TitleCase) Apply(in []records.Record) []records.Record {
	for _, rec := range in {
		for _, c := range tc.Columns {
			v, ok := rec[c]
			if !ok || v == nil {
				continue
			}
			rec[c] = Title(stringify(v))
		}
	}
	return in
}

var accentFold = map[rune]rune{
	'á': 'a', 'é': 'e', 'í': 'i', 'ó': 'o', 'ú': 'u',
	'Á': 'A', 'É': 'E', 'Í': 'I', 'Ó': 'O', 'Ú': 'U',
}

// accentChain composes precomposed accented vowels before folding them, so
// decomposed input ("a" + U+0301) is stripped as well.
func accentChain() transform.Transformer {
	return transform.Chain(norm.NFC, runes.Map(func(r rune) rune {
		if f, ok := accentFold[r]; ok {
			return f
		}
		return r
	}))
}

// StripAccents replaces the acute-accented vowels with their plain forms.
// Only á é í ó ú and their upper-case forms are touched; ñ and ü survive.
//
// With NullAsEmpty every value is rendered as text, and nil together with the
// "nan" and "NaT" placeholders become "".
type StripAccents struct {
	Columns     []string
	NullAsEmpty bool
}

func (sa StripAccents) Apply(in []records.Record) []records.Record {
	t := accentChain()
	for _, rec := range in {
		for _, c := range sa.Columns {
			v, ok := rec[c]
			if !ok && !sa.NullAsEmpty {
				continue
			}
			var s string
			switch x := v.(type) {
			case nil:
				if !sa.NullAsEmpty {
					continue
				}
			case string:
				s = x
			default:
				if !sa.NullAsEmpty {
					continue
				}
				s = stringify(x)
			}
			if sa.NullAsEmpty && (s == "nan" || s == "NaT") {
				s = ""
			}
			out, _, err := transform.String(t, s)
			if err != nil {
				out = s
			}
			rec[c] = out
		}
	}
	return in
}

var fractionLabel = regexp.MustCompile(`(?i)FRACCION\s*\d+\s*`)

// CleanDevelopment strips "FRACCION <n>" labels from development names.
// A value containing Keep collapses to Keep verbatim.
type CleanDevelopment struct {
	Column string
	Keep   string
}

// Clean returns the cleaned form of a single value.
func (cd CleanDevelopment) Clean(s string) string {
	if cd.Keep != "" && strings.Contains(s, cd.Keep) {
		return cd.Keep
	}
	return strings.TrimSpace(fractionLabel.ReplaceAllString(s, ""))
}

func (cd CleanDevelopment) Apply(in []records.Record) []records.Record {
	for _, rec := range in {
		if s, ok := rec[cd.Column].(string); ok {
			rec[cd.Column] = cd.Clean(s)
		}
	}
	return in
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	}
	return fmt.Sprint(v)
}
