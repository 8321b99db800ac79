package extract

import (
	"fmt"

	"github.com/entrhq/mimic/pkg/types"
)

// SemanticTags are the page-region elements indexed by the semantics probe.
var SemanticTags = []string{"header", "nav", "main", "section", "article", "aside", "footer"}

type semanticObservation struct {
	Type      string   `json:"type"`
	Index     int      `json:"index"`
	Role      string   `json:"role"`
	AriaLabel string   `json:"ariaLabel"`
	Children  []string `json:"children"`
}

func buildSemantics(observations []semanticObservation) []types.SemanticSection {
	out := make([]types.SemanticSection, 0, len(observations))
	for _, o := range observations {
		children := o.Children
		if children == nil {
			children = []string{}
		}
		out = append(out, types.SemanticSection{
			Type:      o.Type,
			Selector:  fmt.Sprintf("%s:nth-of-type(%d)", o.Type, o.Index+1),
			Role:      o.Role,
			AriaLabel: o.AriaLabel,
			Children:  children,
		})
	}
	return out
}
