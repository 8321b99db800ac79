package generate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/entrhq/mimic/pkg/types"
)

// DefaultComponentName names components the model left anonymous.
const DefaultComponentName = "WebpageComponent"

// Component is post-processed code ready to be wrapped in an Artifact.
type Component struct {
	Code         string
	Imports      []string
	Dependencies []types.Dependency
	Filename     string
}

var (
	componentNamePattern = regexp.MustCompile(`(?:function|const|class)\s+([A-Z]\w+)`)
	landmarkRoles        = []struct{ tag, role string }{
		{"header", "banner"},
		{"nav", "navigation"},
		{"main", "main"},
		{"footer", "contentinfo"},
	}
)

var (
	depTailwind = types.Dependency{Name: "tailwindcss", Version: "^3.4.0", Dev: true}
	depSass     = types.Dependency{Name: "sass", Version: "^1.69.0", Dev: true}
	depTS       = types.Dependency{Name: "typescript", Version: "^5.3.0", Dev: true}
)

// PostProcess adapts raw model code to the requested framework and styling.
func PostProcess(cfg types.ComponentConfig, res *CodeResult, snap *types.DesignSnapshot) Component {
	var c Component
	switch cfg.Framework {
	case types.FrameworkAngular:
		c = angularComponent(cfg, res)
	case types.FrameworkVue:
		c = vueComponent(cfg, res)
	case types.FrameworkSvelte:
		c = svelteComponent(cfg, res)
	default:
		c = reactComponent(cfg, res, snap)
	}
	if cfg.Accessibility {
		c.Code = addLandmarkRoles(c.Code)
	}
	return c
}

func reactComponent(cfg types.ComponentConfig, res *CodeResult, snap *types.DesignSnapshot) Component {
	code := res.Code
	name := componentName(code)
	imports := append([]string(nil), res.Imports...)
	if !containsAny(imports, "import React") {
		imports = append([]string{"import React from 'react';"}, imports...)
	}

	deps := []types.Dependency{
		{Name: "react", Version: "^18.2.0"},
		{Name: "react-dom", Version: "^18.2.0"},
	}

	switch cfg.Styling {
	case types.StylingTailwind:
		deps = append(deps, depTailwind)
	case types.StylingCSS:
		if !containsAny(imports, ".css") {
			imports = append(imports, fmt.Sprintf("import './%s.css';", name))
		}
	case types.StylingSCSS:
		if !containsAny(imports, ".scss") {
			imports = append(imports, fmt.Sprintf("import './%s.scss';", name))
		}
		deps = append(deps, depSass)
	case types.StylingStyledComponents:
		if !containsAny(imports, "styled-components") {
			imports = append(imports, "import styled from 'styled-components';")
		}
		deps = append(deps, types.Dependency{Name: "styled-components", Version: "^6.1.0"})
		code = insertBeforeComponent(code, styledDefinitions(snap))
	}

	if cfg.TypeScript {
		deps = append(deps,
			types.Dependency{Name: "@types/react", Version: "^18.2.0", Dev: true},
			types.Dependency{Name: "@types/react-dom", Version: "^18.2.0", Dev: true},
		)
		if cfg.Styling == types.StylingStyledComponents {
			deps = append(deps, types.Dependency{Name: "@types/styled-components", Version: "^5.1.0", Dev: true})
		}
		if !strings.Contains(code, "interface Props") && !strings.Contains(code, "type Props") {
			code = insertBeforeComponent(code, "interface Props {\n  className?: string;\n}\n")
		}
	}

	return Component{
		Code:         joinImports(imports, stripImports(code)),
		Imports:      imports,
		Dependencies: deps,
		Filename:     name + cfg.FileExtension(),
	}
}

func angularComponent(cfg types.ComponentConfig, res *CodeResult) Component {
	code := res.Code
	if !strings.Contains(code, "@Component") {
		code = wrapAngular(code, cfg.Styling)
	}

	deps := []types.Dependency{
		{Name: "@angular/core", Version: "^17.0.0"},
		{Name: "@angular/common", Version: "^17.0.0"},
	}
	if cfg.Styling == types.StylingTailwind {
		deps = append(deps, depTailwind)
	}

	return Component{
		Code:         code,
		Imports:      []string{"import { Component } from '@angular/core';"},
		Dependencies: deps,
		Filename:     "webpage" + cfg.FileExtension(),
	}
}

func wrapAngular(markup string, styling types.Styling) string {
	var styles string
	switch styling {
	case types.StylingCSS:
		styles = "\n  styleUrls: ['./webpage.component.css'],"
	case types.StylingSCSS:
		styles = "\n  styleUrls: ['./webpage.component.scss'],"
	}
	return fmt.Sprintf(`import { Component } from '@angular/core';

@Component({
  selector: 'app-webpage',%s
  template: `+"`"+`
%s
  `+"`"+`,
})
export class WebpageComponent {}
`, styles, indent(markup, "    "))
}

func vueComponent(cfg types.ComponentConfig, res *CodeResult) Component {
	code := res.Code
	if !strings.Contains(code, "<template") {
		lang := ""
		if cfg.TypeScript {
			lang = ` lang="ts"`
		}
		styleLang := ""
		if cfg.Styling == types.StylingSCSS {
			styleLang = ` lang="scss"`
		}
		code = fmt.Sprintf("<template>\n%s\n</template>\n\n<script setup%s>\n</script>\n\n<style scoped%s>\n</style>\n",
			indent(code, "  "), lang, styleLang)
	}

	deps := []types.Dependency{{Name: "vue", Version: "^3.3.0"}}
	deps = append(deps, stylingDeps(cfg.Styling)...)
	if cfg.TypeScript {
		deps = append(deps, depTS)
	}

	return Component{
		Code:         code,
		Imports:      res.Imports,
		Dependencies: deps,
		Filename:     DefaultComponentName + cfg.FileExtension(),
	}
}

func svelteComponent(cfg types.ComponentConfig, res *CodeResult) Component {
	code := res.Code
	if cfg.TypeScript && !strings.Contains(code, "<script") {
		code = "<script lang=\"ts\">\n</script>\n\n" + code
	}

	deps := []types.Dependency{{Name: "svelte", Version: "^4.2.0"}}
	deps = append(deps, stylingDeps(cfg.Styling)...)
	if cfg.TypeScript {
		deps = append(deps, depTS, types.Dependency{Name: "svelte-preprocess", Version: "^5.1.0", Dev: true})
	}

	return Component{
		Code:         code,
		Imports:      res.Imports,
		Dependencies: deps,
		Filename:     DefaultComponentName + cfg.FileExtension(),
	}
}

func stylingDeps(s types.Styling) []types.Dependency {
	switch s {
	case types.StylingTailwind:
		return []types.Dependency{depTailwind}
	case types.StylingSCSS:
		return []types.Dependency{depSass}
	default:
		return nil
	}
}

func styledDefinitions(snap *types.DesignSnapshot) string {
	primary, background := "#000000", "#ffffff"
	if snap != nil {
		if len(snap.ColorPalette) > 0 {
			primary = snap.ColorPalette[0].Hex
		}
		for _, c := range snap.ColorPalette {
			if c.Usage == types.UsageBackground {
				background = c.Hex
				break
			}
		}
	}
	return fmt.Sprintf("const Container = styled.div`\n  min-height: 100vh;\n  background-color: %s;\n`;\n\n"+
		"const Header = styled.header`\n  padding: 2rem;\n  background-color: %s;\n  color: white;\n`;\n", background, primary)
}

// Instructions explains how to drop the artifact into a project.
func Instructions(cfg types.ComponentConfig, filename string) string {
	switch cfg.Framework {
	case types.FrameworkReact:
		base := strings.TrimSuffix(filename, cfg.FileExtension())
		return fmt.Sprintf("1. Save this component as %s\n2. Install dependencies: npm install\n3. Import: import %s from './%s'\n4. Use: <%s />",
			filename, base, base, base)
	case types.FrameworkAngular:
		return "1. Save this component in your Angular project\n2. Add to module declarations\n3. Use the selector: <app-webpage></app-webpage>"
	case types.FrameworkVue, types.FrameworkSvelte:
		return fmt.Sprintf("1. Save this component as %s\n2. Import: import %s from './%s'\n3. Use: <%s />",
			filename, DefaultComponentName, filename, DefaultComponentName)
	default:
		return "See framework documentation for usage instructions."
	}
}

func componentName(code string) string {
	if m := componentNamePattern.FindStringSubmatch(code); m != nil {
		return m[1]
	}
	return DefaultComponentName
}

func addLandmarkRoles(code string) string {
	for _, lr := range landmarkRoles {
		attr := fmt.Sprintf(`role="%s"`, lr.role)
		if strings.Contains(code, attr) {
			continue
		}
		open := "<" + lr.tag
		code = strings.ReplaceAll(code, open+" ", open+" "+attr+" ")
		code = strings.ReplaceAll(code, open+">", open+" "+attr+">")
	}
	return code
}

func insertBeforeComponent(code, block string) string {
	loc := componentNamePattern.FindStringIndex(code)
	if loc == nil {
		return code
	}
	// keep "export default" attached to the declaration
	start := loc[0]
	lineStart := strings.LastIndex(code[:start], "\n") + 1
	return code[:lineStart] + block + "\n" + code[lineStart:]
}

func stripImports(code string) string {
	lines := strings.Split(code, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "import ") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.TrimLeft(strings.Join(kept, "\n"), "\n")
}

func joinImports(imports []string, code string) string {
	return strings.Join(imports, "\n") + "\n\n" + code
}

func containsAny(lines []string, sub string) bool {
	for _, l := range lines {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
