package generate

import (
	"bytes"
	"errors"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ErrEmptyCode means the code model answered without any code.
var ErrEmptyCode = errors.New("generated code is empty")

// CodeBlock is one fenced block of a model answer.
type CodeBlock struct {
	Language string
	Code     string
}

// CodeResult is the code model's answer split into its parts.
type CodeResult struct {
	Code        string
	Imports     []string
	Explanation string
}

var markdown = goldmark.New()

// FencedBlocks returns every fenced code block of a markdown document in
// source order.
func FencedBlocks(doc string) []CodeBlock {
	src := []byte(doc)
	root := markdown.Parser().Parse(text.NewReader(src))

	var blocks []CodeBlock
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var buf bytes.Buffer
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		blocks = append(blocks, CodeBlock{
			Language: string(fcb.Language(src)),
			Code:     buf.String(),
		})
		return ast.WalkSkipChildren, nil
	})
	return blocks
}

// ParseCode picks the largest fenced block as the component, or the whole
// answer when the model used no fences.
func ParseCode(response string) (*CodeResult, error) {
	var code string
	blocks := FencedBlocks(response)
	for _, b := range blocks {
		if len(b.Code) > len(code) {
			code = b.Code
		}
	}
	if len(blocks) == 0 {
		code = response
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrEmptyCode
	}

	explanation := "Generated component"
	if idx := strings.Index(response, "```"); idx > 0 {
		if pre := strings.TrimSpace(response[:idx]); pre != "" {
			explanation = pre
		}
	}

	return &CodeResult{
		Code:        code,
		Imports:     ExtractImports(code),
		Explanation: explanation,
	}, nil
}

// ExtractImports returns the ES import and CommonJS require lines of code.
func ExtractImports(code string) []string {
	imports := []string{}
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "import ") ||
			(strings.HasPrefix(trimmed, "const ") && strings.Contains(trimmed, "require(")) {
			imports = append(imports, trimmed)
		}
	}
	return imports
}
