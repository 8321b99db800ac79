package extract

import (
	"strings"

	"github.com/entrhq/mimic/pkg/types"
)

// layoutObservation is one flex or grid container reported by the probe.
type layoutObservation struct {
	Tag                 string   `json:"tag"`
	ID                  string   `json:"id"`
	Classes             []string `json:"classes"`
	Display             string   `json:"display"`
	Position            string   `json:"position"`
	Margin              string   `json:"margin"`
	Padding             string   `json:"padding"`
	Width               string   `json:"width"`
	Height              string   `json:"height"`
	FlexDirection       string   `json:"flexDirection"`
	JustifyContent      string   `json:"justifyContent"`
	AlignItems          string   `json:"alignItems"`
	FlexWrap            string   `json:"flexWrap"`
	Gap                 string   `json:"gap"`
	GridTemplateColumns string   `json:"gridTemplateColumns"`
	GridTemplateRows    string   `json:"gridTemplateRows"`
	GridAutoFlow        string   `json:"gridAutoFlow"`
}

// selector builds tag#id.class1.class2.
func (o layoutObservation) selector() string {
	var b strings.Builder
	b.WriteString(o.Tag)
	if o.ID != "" {
		b.WriteString("#")
		b.WriteString(o.ID)
	}
	for _, c := range o.Classes {
		if c == "" {
			continue
		}
		b.WriteString(".")
		b.WriteString(c)
	}
	return b.String()
}

func isFlex(display string) bool { return display == "flex" || display == "inline-flex" }

func isGrid(display string) bool { return display == "grid" || display == "inline-grid" }

// buildLayouts keeps flex and grid containers and attaches the
// container-specific sub-properties.
func buildLayouts(observations []layoutObservation) []types.Layout {
	out := []types.Layout{}
	for _, o := range observations {
		if !isFlex(o.Display) && !isGrid(o.Display) {
			continue
		}
		l := types.Layout{
			Selector: o.selector(),
			Display:  o.Display,
			Position: o.Position,
			Margin:   o.Margin,
			Padding:  o.Padding,
			Width:    o.Width,
			Height:   o.Height,
		}
		if isFlex(o.Display) {
			l.Flex = &types.FlexProperties{
				Direction: o.FlexDirection,
				Justify:   o.JustifyContent,
				Align:     o.AlignItems,
				Wrap:      o.FlexWrap,
				Gap:       o.Gap,
			}
		} else {
			l.Grid = &types.GridProperties{
				TemplateColumns: o.GridTemplateColumns,
				TemplateRows:    o.GridTemplateRows,
				Gap:             o.Gap,
				AutoFlow:        o.GridAutoFlow,
			}
		}
		out = append(out, l)
	}
	return out
}
