// Package formation canonicalizes offensive formation labels as typed by
// film-room staff into a fixed vocabulary.
package formation

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// aliases maps single shorthand tokens to their canonical words.
var aliases = map[string]string{
	"GUN":     "SHOTGUN",
	"SG":      "SHOTGUN",
	"SHOT":    "SHOTGUN",
	"PIST":    "PISTOL",
	"UC":      "UNDER CENTER",
	"UNDER":   "UNDER CENTER",
	"RT":      "RIGHT",
	"R":       "RIGHT",
	"RGT":     "RIGHT",
	"LT":      "LEFT",
	"L":       "LEFT",
	"LFT":     "LEFT",
	"TREY":    "TRIPS",
	"TRIP":    "TRIPS",
	"DBL":     "DOUBLES",
	"DOUBLE":  "DOUBLES",
	"DUBS":    "DOUBLES",
	"EMP":     "EMPTY",
	"MT":      "EMPTY",
	"WG":      "WING",
	"IFORM":   "I",
	"OFF":     "OFFSET",
	"SPRD":    "SPREAD",
	"SINGLE":  "ACE",
	"STK":     "STACK",
	"BNCH":    "BUNCH",
	"GL":      "GOAL LINE",
	"GOALINE": "GOAL LINE",
	"WC":      "WILDCAT",
}

// compounds are two-token terms, matched before single-token aliases.
var compounds = map[[2]string]string{
	{"UNDER", "CENTER"}: "UNDER CENTER",
	{"GOAL", "LINE"}:    "GOAL LINE",
	{"I", "FORM"}:       "I",
}

// Normalize returns the canonical form of a raw formation label. Aliases are
// applied until the label stops changing, so Normalize(Normalize(s)) ==
// Normalize(s). Blank input yields "".
func Normalize(raw string) string {
	s := norm.NFKC.String(raw)
	s = cases.Upper(language.Und).String(s)

	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(tokens) == 0 {
		return ""
	}

	// An alias can expand into a compound ("IFORM FORM" becomes "I FORM"),
	// which the next pass folds. Alias and compound outputs are fixed points.
	for {
		next := canonicalize(tokens)
		if slices.Equal(next, tokens) {
			break
		}
		tokens = next
	}

	return strings.Join(tokens, " ")
}

// canonicalize runs one pass of compound and alias replacement.
func canonicalize(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		if i+1 < len(tokens) {
			if c, ok := compounds[[2]string{tokens[i], tokens[i+1]}]; ok {
				out = append(out, strings.Fields(c)...)
				i++
				continue
			}
		}
		if a, ok := aliases[tokens[i]]; ok {
			out = append(out, strings.Fields(a)...)
			continue
		}
		out = append(out, tokens[i])
	}
	return out
}
