package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/mimic/pkg/types"
)

const reactSource = `import { useState } from 'react';

export default function LandingPage() {
  return (
    <div>
      <header className="top">Logo</header>
      <main>Body</main>
      <footer>Fine print</footer>
    </div>
  );
}`

func config(f types.Framework, s types.Styling, ts bool) types.ComponentConfig {
	return types.ComponentConfig{Framework: f, Styling: s, TypeScript: ts, Responsive: true, Accessibility: true}
}

func deps(c Component) map[string]string {
	a := types.Artifact{Dependencies: c.Dependencies}
	return a.DependencyMap()
}

func TestReactCSS(t *testing.T) {
	res, err := ParseCode(reactSource)
	require.NoError(t, err)

	c := PostProcess(config(types.FrameworkReact, types.StylingCSS, true), res, sampleSnapshot())

	assert.Equal(t, "LandingPage.tsx", c.Filename)
	assert.Equal(t, []string{
		"import React from 'react';",
		"import { useState } from 'react';",
		"import './LandingPage.css';",
	}, c.Imports)
	assert.Equal(t, "^18.2.0", deps(c)["react"])
	assert.Contains(t, deps(c), "@types/react")
	assert.Contains(t, c.Code, "interface Props")
	assert.Contains(t, c.Code, `<header role="banner" className="top">`)
	assert.Contains(t, c.Code, `<main role="main">`)
	assert.Contains(t, c.Code, `<footer role="contentinfo">`)
	assert.Equal(t, 1, countOccurrences(c.Code, "import { useState }"))
}

func TestReactStyledComponents(t *testing.T) {
	res, err := ParseCode(reactSource)
	require.NoError(t, err)

	c := PostProcess(config(types.FrameworkReact, types.StylingStyledComponents, false), res, sampleSnapshot())

	assert.Equal(t, "LandingPage.jsx", c.Filename)
	assert.Contains(t, c.Imports, "import styled from 'styled-components';")
	assert.Contains(t, c.Code, "background-color: #ffffff")
	assert.Contains(t, c.Code, "background-color: #111111")
	assert.Contains(t, deps(c), "styled-components")
	assert.NotContains(t, deps(c), "@types/styled-components")
	assert.NotContains(t, c.Code, "interface Props")
}

func TestAngularWrapsMarkup(t *testing.T) {
	res := &CodeResult{Code: "<header>Hi</header>"}
	cfg := config(types.FrameworkAngular, types.StylingSCSS, true)
	cfg.Accessibility = false

	c := PostProcess(cfg, res, sampleSnapshot())

	assert.Equal(t, "webpage.component.ts", c.Filename)
	assert.Contains(t, c.Code, "@Component({")
	assert.Contains(t, c.Code, "selector: 'app-webpage'")
	assert.Contains(t, c.Code, "webpage.component.scss")
	assert.Contains(t, c.Code, "    <header>Hi</header>")
	assert.Equal(t, []string{"import { Component } from '@angular/core';"}, c.Imports)
}

func TestVueAndSvelte(t *testing.T) {
	res := &CodeResult{Code: "<main>Hi</main>", Imports: []string{}}

	vue := PostProcess(config(types.FrameworkVue, types.StylingTailwind, true), res, nil)
	assert.Equal(t, "WebpageComponent.vue", vue.Filename)
	assert.Contains(t, vue.Code, "<template>")
	assert.Contains(t, vue.Code, `<script setup lang="ts">`)
	assert.Contains(t, deps(vue), "tailwindcss")
	assert.Contains(t, deps(vue), "typescript")

	svelte := PostProcess(config(types.FrameworkSvelte, types.StylingSCSS, true), res, nil)
	assert.Equal(t, "WebpageComponent.svelte", svelte.Filename)
	assert.Contains(t, svelte.Code, `<script lang="ts">`)
	assert.Contains(t, deps(svelte), "sass")
	assert.Contains(t, deps(svelte), "svelte-preprocess")
}

func TestAddLandmarkRolesKeepsExisting(t *testing.T) {
	code := addLandmarkRoles(`<nav role="navigation">a</nav><nav>b</nav><header>c</header>`)
	assert.Equal(t, `<nav role="navigation">a</nav><nav>b</nav><header role="banner">c</header>`, code)
}

func TestInstructions(t *testing.T) {
	react := config(types.FrameworkReact, types.StylingCSS, true)
	assert.Contains(t, Instructions(react, "LandingPage.tsx"), "import LandingPage from './LandingPage'")
	assert.Contains(t, Instructions(config(types.FrameworkAngular, types.StylingCSS, true), "webpage.component.ts"), "<app-webpage>")
	assert.Contains(t, Instructions(config(types.FrameworkVue, types.StylingCSS, true), "WebpageComponent.vue"), "./WebpageComponent.vue")
}

func countOccurrences(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}
