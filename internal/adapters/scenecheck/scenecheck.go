// Package scenecheck statically validates generated animation source before
// it is handed to the renderer. Checks are structural: they catch the defect
// classes the generation rules promise to avoid, without executing anything.
package scenecheck

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/lessonforge/videogen/internal/adapters/llm"
	"github.com/lessonforge/videogen/internal/domain/model"
)

// Checker implements the validation stage. Every defect it finds is
// correctable: the diagnostics are fed back into regeneration.
type Checker struct {
	logger *slog.Logger
	colors map[string]struct{}
}

// NewChecker creates a Checker with the standard color allowlist.
func NewChecker(logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	colors := make(map[string]struct{}, len(llm.ValidColors))
	for _, c := range llm.ValidColors {
		colors[c] = struct{}{}
	}
	return &Checker{logger: logger, colors: colors}
}

var (
	sceneClassRe = regexp.MustCompile(`(?m)^class\s+(\w+)\s*\(\s*(VoiceoverScene|ManimVoiceoverBase)\s*\)`)
	anyClassRe   = regexp.MustCompile(`(?m)^class\s+\w+`)
	constructRe  = regexp.MustCompile(`(?m)^\s+def\s+construct\s*\(self\)`)
	fadeOutAllRe = regexp.MustCompile(`\*\[\s*FadeOut\(\s*\w+\s*\)\s*for\s+\w+\s+in\s+self\.mobjects`)
	setColorRe   = regexp.MustCompile(`\.set_color\(\s*"([a-z_]+)"\s*\)`)
	assetRe      = regexp.MustCompile(`\b(SVGMobject|ImageMobject)\s*\(`)
)

// Check implements core.Validator.
func (c *Checker) Check(ctx context.Context, source string) model.StageResult {
	var diags []string

	if strings.TrimSpace(source) == "" {
		return model.StageCorrectable("no code to validate", "no code to validate")
	}

	if !sceneClassRe.MatchString(source) {
		if anyClassRe.MatchString(source) {
			diags = append(diags, "scene must inherit from VoiceoverScene or ManimVoiceoverBase")
		} else {
			diags = append(diags, "no scene class found")
		}
	}

	if !constructRe.MatchString(source) {
		diags = append(diags, "scene must define a construct method")
	}

	if !c.hasCleanup(source) {
		diags = append(diags, "scene must include proper cleanup (FadeOut all mobjects except background, or self.clear())")
	}

	diags = append(diags, c.checkColors(source)...)

	if loc := assetRe.FindStringSubmatch(source); loc != nil {
		diags = append(diags, fmt.Sprintf("external assets are not allowed: %s", loc[1]))
	}

	if len(diags) > 0 {
		c.logger.InfoContext(ctx, "validation rejected source", "defects", len(diags))
		reason := fmt.Sprintf("validation found %d defect(s)", len(diags))
		return model.StageCorrectable(reason, strings.Join(diags, "\n"))
	}
	return model.StageSuccess("")
}

func (c *Checker) hasCleanup(source string) bool {
	return strings.Contains(source, "self.clear()") || fadeOutAllRe.MatchString(source)
}

func (c *Checker) checkColors(source string) []string {
	var diags []string
	seen := make(map[string]struct{})
	for _, m := range setColorRe.FindAllStringSubmatch(source, -1) {
		name := m[1]
		if _, ok := c.colors[name]; ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		diags = append(diags, fmt.Sprintf("invalid color %q: not in the allowed palette", name))
	}
	return diags
}
