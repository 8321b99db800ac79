package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/entrhq/mimic/pkg/types"
)

// colorObservation is one (property, computed value) pair in document order.
type colorObservation struct {
	Property string
	Value    string
}

var rgbPattern = regexp.MustCompile(`^rgba?\(\s*(\d+(?:\.\d+)?)[\s,]+(\d+(?:\.\d+)?)[\s,]+(\d+(?:\.\d+)?)(?:\s*[,/]\s*([\d.]+%?))?\s*\)$`)

// usageFor maps the source style property to a usage class.
func usageFor(property string) types.UsageClass {
	switch {
	case property == "color":
		return types.UsageText
	case property == "backgroundColor":
		return types.UsageBackground
	case strings.HasPrefix(property, "border"), strings.HasPrefix(property, "outline"):
		return types.UsageAccent
	default:
		return types.UsageSecondary
	}
}

// parseCSSColor converts a computed colour value to a colour. Fully
// transparent and unparseable values report ok=false.
func parseCSSColor(value string) (colorful.Color, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" || v == "transparent" || v == "none" {
		return colorful.Color{}, false
	}

	if strings.HasPrefix(v, "#") {
		c, err := colorful.Hex(v)
		if err != nil {
			return colorful.Color{}, false
		}
		return c, true
	}

	m := rgbPattern.FindStringSubmatch(v)
	if m == nil {
		return colorful.Color{}, false
	}
	if alpha := m[4]; alpha != "" && isZeroAlpha(alpha) {
		return colorful.Color{}, false
	}

	var rgb [3]float64
	for i := 0; i < 3; i++ {
		n, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return colorful.Color{}, false
		}
		rgb[i] = n / 255
	}
	return colorful.Color{R: rgb[0], G: rgb[1], B: rgb[2]}.Clamped(), true
}

func isZeroAlpha(alpha string) bool {
	n, err := strconv.ParseFloat(strings.TrimSuffix(alpha, "%"), 64)
	return err == nil && n == 0
}

// rankColors counts every observed colour by hex, keeping the usage class
// of its first occurrence, and returns the top limit entries by descending
// frequency. Equal frequencies keep first-seen order.
func rankColors(observations []colorObservation, limit int) []types.ColorEntry {
	index := make(map[string]int)
	var entries []types.ColorEntry

	for _, obs := range observations {
		c, ok := parseCSSColor(obs.Value)
		if !ok {
			continue
		}
		hex := c.Hex()
		if i, seen := index[hex]; seen {
			entries[i].Frequency++
			continue
		}
		r, g, b := c.RGB255()
		index[hex] = len(entries)
		entries = append(entries, types.ColorEntry{
			Hex:       hex,
			RGB:       [3]uint8{r, g, b},
			Usage:     usageFor(obs.Property),
			Frequency: 1,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Frequency > entries[j].Frequency
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	if entries == nil {
		entries = []types.ColorEntry{}
	}
	return entries
}

// decodeColorObservations converts the probe's [property, value] pairs.
func decodeColorObservations(raw [][2]string) []colorObservation {
	out := make([]colorObservation, 0, len(raw))
	for _, pair := range raw {
		out = append(out, colorObservation{Property: pair[0], Value: pair[1]})
	}
	return out
}
