package types

// DesignSnapshot is the bounded, structured description of a rendered page.
type DesignSnapshot struct {
	DOMTree          *DOMNode          `json:"domTree"`
	ColorPalette     []ColorEntry      `json:"colorPalette"`
	Typography       []Typography      `json:"typography"`
	LayoutPatterns   []Layout          `json:"layoutPatterns"`
	SemanticSections []SemanticSection `json:"semanticSections"`
	PageMetrics      PageMetrics       `json:"pageMetrics"`
	Document         DocumentInfo      `json:"document"`
}

// DOMNode is one element of the extracted structure tree.
type DOMNode struct {
	TagName     string            `json:"tagName"`
	Attributes  map[string]string `json:"attributes"`
	TextContent string            `json:"textContent,omitempty"`
	Styles      ComputedStyles    `json:"styles"`
	Children    []*DOMNode        `json:"children"`
}

// Count returns the number of elements in the subtree rooted at n.
func (n *DOMNode) Count() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// ComputedStyles holds the subset of computed style kept per node.
type ComputedStyles struct {
	Color           string `json:"color,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	FontSize        string `json:"fontSize,omitempty"`
	FontFamily      string `json:"fontFamily,omitempty"`
	FontWeight      string `json:"fontWeight,omitempty"`
	LineHeight      string `json:"lineHeight,omitempty"`
	Margin          string `json:"margin,omitempty"`
	Padding         string `json:"padding,omitempty"`
	Display         string `json:"display,omitempty"`
	Position        string `json:"position,omitempty"`
	Width           string `json:"width,omitempty"`
	Height          string `json:"height,omitempty"`
}

// UsageClass buckets a colour by the property it was observed on.
type UsageClass string

const (
	UsagePrimary    UsageClass = "primary"
	UsageSecondary  UsageClass = "secondary"
	UsageAccent     UsageClass = "accent"
	UsageBackground UsageClass = "background"
	UsageText       UsageClass = "text"
)

// MaxPaletteSize caps the colour palette.
const MaxPaletteSize = 20

// ColorEntry is one ranked palette colour.
type ColorEntry struct {
	Hex       string     `json:"hex"`
	RGB       [3]uint8   `json:"rgb"`
	Usage     UsageClass `json:"usage"`
	Frequency int        `json:"frequency"`
}

// Typography is one distinct (family, size, weight) combination.
type Typography struct {
	FontFamily    string `json:"fontFamily"`
	FontSize      string `json:"fontSize"`
	FontWeight    int    `json:"fontWeight"`
	LineHeight    string `json:"lineHeight"`
	LetterSpacing string `json:"letterSpacing,omitempty"`
	Selector      string `json:"selector"`
}

// Layout is a flex or grid container with its box model.
type Layout struct {
	Selector string          `json:"selector"`
	Display  string          `json:"display"`
	Position string          `json:"position"`
	Margin   string          `json:"margin"`
	Padding  string          `json:"padding"`
	Width    string          `json:"width"`
	Height   string          `json:"height"`
	Flex     *FlexProperties `json:"flexProperties,omitempty"`
	Grid     *GridProperties `json:"gridProperties,omitempty"`
}

// FlexProperties are the flex-container sub-properties.
type FlexProperties struct {
	Direction string `json:"direction"`
	Justify   string `json:"justify"`
	Align     string `json:"align"`
	Wrap      string `json:"wrap"`
	Gap       string `json:"gap"`
}

// GridProperties are the grid-container sub-properties.
type GridProperties struct {
	TemplateColumns string `json:"templateColumns"`
	TemplateRows    string `json:"templateRows"`
	Gap             string `json:"gap"`
	AutoFlow        string `json:"autoFlow"`
}

// SemanticSection is one standard page-region element.
type SemanticSection struct {
	Type      string   `json:"type"`
	Selector  string   `json:"selector"`
	Role      string   `json:"role,omitempty"`
	AriaLabel string   `json:"ariaLabel,omitempty"`
	Children  []string `json:"children"`
}

// PageMetrics are the size and timing measurements of the page.
type PageMetrics struct {
	DOMElements    int   `json:"domElements"`
	ResourceSize   int64 `json:"resourceSize"`
	LoadTime       int64 `json:"loadTime"`
	RenderTime     int64 `json:"renderTime"`
	ViewportWidth  int   `json:"viewportWidth"`
	ViewportHeight int   `json:"viewportHeight"`
}

// DocumentInfo is head-level metadata of the rendered document.
type DocumentInfo struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Lang        string `json:"lang,omitempty"`
}
