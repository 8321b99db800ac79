package types

import "time"

// Dependency is a package the generated artifact needs installed.
type Dependency struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Dev     bool   `json:"dev,omitempty"`
}

// Artifact is the framework-specific UI code produced for a page.
type Artifact struct {
	ID           string       `json:"id"`
	Framework    Framework    `json:"framework"`
	Styling      Styling      `json:"styling"`
	Code         string       `json:"code"`
	Imports      []string     `json:"imports"`
	Dependencies []Dependency `json:"dependencies"`
	Filename     string       `json:"filename"`
	Instructions string       `json:"instructions,omitempty"`
	GeneratedAt  time.Time    `json:"generatedAt"`
	VisionModel  string       `json:"visionModel,omitempty"`
	CodeModel    string       `json:"codeModel,omitempty"`
}

// DependencyMap flattens dependencies into name → version.
func (a *Artifact) DependencyMap() map[string]string {
	deps := make(map[string]string, len(a.Dependencies))
	for _, d := range a.Dependencies {
		deps[d.Name] = d.Version
	}
	return deps
}

// AnalysisResponse is the boundary response of one request.
type AnalysisResponse struct {
	Success   bool              `json:"success"`
	Component *ComponentPayload `json:"component,omitempty"`
	Analysis  *AnalysisSummary  `json:"analysis,omitempty"`
	Error     *ErrorPayload     `json:"error,omitempty"`
}

// ComponentPayload is the artifact as returned to callers.
type ComponentPayload struct {
	Code         string            `json:"code"`
	Imports      []string          `json:"imports"`
	Dependencies map[string]string `json:"dependencies"`
	Filename     string            `json:"filename"`
	Instructions string            `json:"instructions,omitempty"`
}

// AnalysisSummary condenses the snapshot for callers.
type AnalysisSummary struct {
	URL            string   `json:"url"`
	Timestamp      string   `json:"timestamp"`
	DOMElements    int      `json:"domElements"`
	Colors         []string `json:"colors"`
	Fonts          []string `json:"fonts"`
	ProcessingTime int64    `json:"processingTime"`
	Cached         bool     `json:"cached,omitempty"`
}

// ErrorPayload is the wire form of an *Error.
type ErrorPayload struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Suggestion string         `json:"suggestion,omitempty"`
	RequestID  string         `json:"requestId,omitempty"`
}

// Failure builds a failed response from err.
func Failure(err *Error) *AnalysisResponse {
	return &AnalysisResponse{Success: false, Error: err.Payload()}
}
