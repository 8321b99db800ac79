package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/mimic/pkg/types"
)

func TestDedupeTypography(t *testing.T) {
	obs := []fontObservation{
		{FontFamily: "Inter, sans-serif", FontSize: "16px", FontWeight: "400", LineHeight: "24px", LetterSpacing: "normal", Tag: "body"},
		{FontFamily: "Inter, sans-serif", FontSize: "16px", FontWeight: "400", LineHeight: "20px", Tag: "p"},
		{FontFamily: "Inter, sans-serif", FontSize: "32px", FontWeight: "700", LineHeight: "40px", LetterSpacing: "-0.5px", Tag: "h1"},
		{FontFamily: "Inter, sans-serif", FontSize: "16px", FontWeight: "bold", LineHeight: "24px", Tag: "strong"},
		{FontFamily: "Inter, sans-serif", FontSize: "0px", FontWeight: "400", Tag: "span"},
		{FontFamily: "", FontSize: "12px", FontWeight: "400", Tag: "i"},
	}

	got := dedupeTypography(obs)
	require.Len(t, got, 3)

	assert.Equal(t, types.Typography{FontFamily: "Inter, sans-serif", FontSize: "16px", FontWeight: 400, LineHeight: "24px", Selector: "body"}, got[0],
		"first occurrence wins and normal letter spacing is dropped")
	assert.Equal(t, "-0.5px", got[1].LetterSpacing)
	assert.Equal(t, 700, got[2].FontWeight)
	assert.Equal(t, "strong", got[2].Selector)
}

func TestParseFontWeight(t *testing.T) {
	assert.Equal(t, 400, parseFontWeight("normal"))
	assert.Equal(t, 700, parseFontWeight("bold"))
	assert.Equal(t, 300, parseFontWeight("300"))
	assert.Equal(t, 650, parseFontWeight("650.5"))
	assert.Equal(t, 400, parseFontWeight(""))
}

func TestFontFamilies(t *testing.T) {
	typo := []types.Typography{
		{FontFamily: `"Helvetica Neue", Arial, sans-serif`},
		{FontFamily: "Georgia, serif"},
		{FontFamily: `'Helvetica Neue', sans-serif`},
	}
	assert.Equal(t, []string{"Helvetica Neue", "Georgia"}, FontFamilies(typo))
}
