package extract

import (
	"strconv"
	"strings"

	"github.com/entrhq/mimic/pkg/types"
)

// fontObservation is one element's computed font properties.
type fontObservation struct {
	FontFamily    string `json:"fontFamily"`
	FontSize      string `json:"fontSize"`
	FontWeight    string `json:"fontWeight"`
	LineHeight    string `json:"lineHeight"`
	LetterSpacing string `json:"letterSpacing"`
	Tag           string `json:"tag"`
}

type fontKey struct {
	family string
	size   string
	weight int
}

// parseFontWeight reads a numeric weight; keywords and garbage map to 400
// except "bold", which maps to 700.
func parseFontWeight(v string) int {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "bold" || v == "bolder" {
		return 700
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n <= 0 {
		return 400
	}
	return int(n)
}

// dedupeTypography keeps the first occurrence of every distinct
// (family, size, weight) combination in document order.
func dedupeTypography(observations []fontObservation) []types.Typography {
	seen := make(map[fontKey]bool)
	out := []types.Typography{}

	for _, obs := range observations {
		if obs.FontFamily == "" || obs.FontSize == "" || obs.FontSize == "0px" {
			continue
		}
		key := fontKey{family: obs.FontFamily, size: obs.FontSize, weight: parseFontWeight(obs.FontWeight)}
		if seen[key] {
			continue
		}
		seen[key] = true

		letterSpacing := obs.LetterSpacing
		if letterSpacing == "normal" {
			letterSpacing = ""
		}
		out = append(out, types.Typography{
			FontFamily:    obs.FontFamily,
			FontSize:      obs.FontSize,
			FontWeight:    key.weight,
			LineHeight:    obs.LineHeight,
			LetterSpacing: letterSpacing,
			Selector:      obs.Tag,
		})
	}
	return out
}

// primaryFamily returns the first family of a CSS font-family list,
// unquoted.
func primaryFamily(fontFamily string) string {
	first := strings.Split(fontFamily, ",")[0]
	return strings.Trim(strings.TrimSpace(first), `"'`)
}

// FontFamilies returns the distinct primary font families in order of
// first appearance.
func FontFamilies(typography []types.Typography) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, t := range typography {
		f := primaryFamily(t.FontFamily)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
