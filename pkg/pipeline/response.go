package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/entrhq/mimic/pkg/extract"
	"github.com/entrhq/mimic/pkg/types"
)

// Response converts a Result into the boundary success shape.
func Response(res *Result) *types.AnalysisResponse {
	a := res.Artifact
	colors := make([]string, 0, len(res.Snapshot.ColorPalette))
	for _, c := range res.Snapshot.ColorPalette {
		colors = append(colors, c.Hex)
	}

	return &types.AnalysisResponse{
		Success: true,
		Component: &types.ComponentPayload{
			Code:         a.Code,
			Imports:      a.Imports,
			Dependencies: a.DependencyMap(),
			Filename:     a.Filename,
			Instructions: a.Instructions,
		},
		Analysis: &types.AnalysisSummary{
			URL:            res.URL,
			Timestamp:      res.CachedAt.UTC().Format(time.RFC3339),
			DOMElements:    res.Snapshot.PageMetrics.DOMElements,
			Colors:         colors,
			Fonts:          extract.FontFamilies(res.Snapshot.Typography),
			ProcessingTime: res.ProcessingTime.Milliseconds(),
			Cached:         res.Cached,
		},
	}
}

// FailureResponse converts an Analyze error into the boundary failure shape.
func FailureResponse(err error) *types.AnalysisResponse {
	var typed *types.Error
	if !errors.As(err, &typed) {
		typed = types.Normalize(err, "")
	}
	return types.Failure(typed)
}

// Respond runs Analyze and shapes its outcome for the boundary.
func (o *Orchestrator) Respond(ctx context.Context, clientID string, req types.AnalysisRequest) *types.AnalysisResponse {
	res, err := o.Analyze(ctx, clientID, req)
	if err != nil {
		return FailureResponse(err)
	}
	return Response(res)
}
