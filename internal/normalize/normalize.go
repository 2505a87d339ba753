// Package normalize coerces raw spreadsheet and document values into typed
// profile fields. Nothing in this package returns an error: malformed or
// missing input always resolves to the field's neutral default.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/venture-galaxy/matchmaker/internal/model"
)

// Kind is the target type of a canonical field.
type Kind int

const (
	KindText Kind = iota
	KindFloat
	KindInt
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindList:
		return "list"
	default:
		return "text"
	}
}

// Record holds raw cell values keyed by canonical field name.
type Record map[string]string

// Value is a normalized field value. Only the member matching Kind is set.
type Value struct {
	Kind  Kind
	Text  string
	Float float64
	Int   int
	List  []string
}

var fieldKinds = map[string]Kind{
	"valuation":          KindFloat,
	"annualRevenue":      KindFloat,
	"ticketSize":         KindFloat,
	"preferredRevenue":   KindFloat,
	"preferredValuation": KindFloat,
	"aum":                KindFloat,
	"dryPowder":          KindFloat,
	"companyAge":         KindInt,
	"companieAge":        KindInt,
	"employees":          KindInt,
	"sectorInterest":     KindList,
	"revenueIncome":      KindList,
}

// Investor ratio denominators default to 1 rather than 0.
var floatDefaults = map[string]float64{
	"ticketSize":         1,
	"preferredRevenue":   1,
	"preferredValuation": 1,
}

var taxonomies = map[string][]string{
	"sector":         model.Sectors,
	"sectorInterest": model.Sectors,
	"stage":          model.Stages,
	"preferredStage": model.Stages,
	"revenueModel":   model.RevenueModels,
	"revenueIncome":  model.RevenueModels,
	"originState":    model.States,
}

// KindOf returns the type a canonical field normalizes to. Unknown fields are
// text.
func KindOf(field string) Kind {
	if k, ok := fieldKinds[field]; ok {
		return k
	}
	return KindText
}

// DefaultFloat returns the neutral value for a numeric field.
func DefaultFloat(field string) float64 {
	return floatDefaults[field]
}

// Normalize converts a raw cell value for the named field into its typed
// value. Taxonomy fields are mapped onto their canonical spelling.
func Normalize(field, raw string) Value {
	kind := KindOf(field)
	switch kind {
	case KindFloat:
		return Value{Kind: kind, Float: Float(raw, DefaultFloat(field))}
	case KindInt:
		return Value{Kind: kind, Int: Int(raw, 0)}
	case KindList:
		list := List(raw)
		if tax, ok := taxonomies[field]; ok {
			for i, item := range list {
				list[i] = Canonical(item, tax)
			}
		}
		return Value{Kind: kind, List: list}
	default:
		text := Text(raw)
		if tax, ok := taxonomies[field]; ok {
			text = Canonical(text, tax)
		}
		return Value{Kind: kind, Text: text}
	}
}

var currencyPrefix = regexp.MustCompile(`^(?i)(R\$|US\$|\$|€|BRL|USD)\s*`)

// Float parses a currency or numeric cell. Accepts currency prefixes,
// percent suffixes and both 1.000.000,50 and 1,000,000.50 separator styles.
// Returns def for blank, unparseable, non-finite or negative input.
func Float(raw string, def float64) float64 {
	s := strings.TrimSpace(raw)
	s = currencyPrefix.ReplaceAllString(s, "")
	s = strings.TrimSuffix(s, "%")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" || s == "-" {
		return def
	}

	v, err := strconv.ParseFloat(normalizeSeparators(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return def
	}
	return v
}

// normalizeSeparators rewrites grouping and decimal separators into the form
// strconv.ParseFloat accepts. A lone comma or dot followed by exactly three
// digits is read as grouping, so "500.000" and "500,000" are both 500000,
// unless the integer part is zero ("0.125").
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 || groupsThousands(s, lastComma) {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 || groupsThousands(s, lastDot) {
			return strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}

// groupsThousands reports whether the lone separator at i splits a non-zero
// integer part from exactly three trailing digits.
func groupsThousands(s string, i int) bool {
	if len(s)-i-1 != 3 {
		return false
	}
	whole := strings.TrimLeft(s[:i], "0")
	return whole != ""
}

// Int parses an integer cell. Fractional values are truncated; anything
// unparseable or negative yields def.
func Int(raw string, def int) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		if v < 0 {
			return def
		}
		return v
	}
	f := Float(s, -1)
	if f < 0 || f > math.MaxInt32 {
		return def
	}
	return int(f)
}

// List splits a comma-delimited cell into trimmed, non-empty items.
func List(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Text trims surrounding whitespace and collapses internal runs of spaces.
func Text(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// Canonical returns the taxonomy entry whose folded form equals the folded
// raw value, so "serie a" and "SÉRIE-A" both become "Série A". The Agnostic
// sentinel is recognised for every taxonomy. Unknown values are returned
// trimmed and otherwise unchanged.
func Canonical(raw string, taxonomy []string) string {
	text := Text(raw)
	if text == "" {
		return ""
	}
	key := Fold(text)
	if key == Fold(model.Agnostic) {
		return model.Agnostic
	}
	for _, entry := range taxonomy {
		if Fold(entry) == key {
			return entry
		}
	}
	return text
}

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// Fold lowercases s, strips diacritics and drops everything that is not a
// letter or digit.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, stripMarks, norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, out)
}
