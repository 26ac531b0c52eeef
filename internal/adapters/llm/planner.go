package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/lessonforge/videogen/internal/core"
	"github.com/lessonforge/videogen/internal/domain/model"
)

// Planner generates a structured lesson plan from a question. Plan failures
// are always fatal: without a plan there is nothing downstream to correct.
type Planner struct {
	client *Client
	logger *slog.Logger
}

// NewPlanner creates a Planner on the completion client.
func NewPlanner(client *Client, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{client: client, logger: logger}
}

const (
	planSceneMin = 3
	planSceneMax = 5
)

// Generate implements core.PlanGenerator.
func (p *Planner) Generate(ctx context.Context, req core.PlanRequest) model.StageResult {
	prompt := planPrompt(req)

	raw, err := p.client.Complete(ctx, []Message{{Role: "user", Content: prompt}})
	if err != nil {
		p.logger.ErrorContext(ctx, "plan generation failed", "error", err)
		return model.StageFatal(fmt.Sprintf("plan generation failed: %v", err))
	}

	plan, err := parsePlan(raw)
	if err != nil {
		p.logger.ErrorContext(ctx, "plan rejected", "error", err)
		return model.StageFatal(fmt.Sprintf("plan rejected: %v", err))
	}

	return model.StageSuccess(plan)
}

func planPrompt(req core.PlanRequest) string {
	b := strings.Builder{}
	fmt.Fprintf(&b, "Create a detailed Manim lesson plan for: %s\n", req.Question)
	if req.UserLevel != "" {
		fmt.Fprintf(&b, "Target audience level: %s\n", req.UserLevel)
	}
	if req.DurationDetail != "" {
		fmt.Fprintf(&b, "Level of detail: %s\n", req.DurationDetail)
	}
	fmt.Fprintf(&b, "Include %d to %d scenes with animation types (Create, Transform, etc.)\n", planSceneMin, planSceneMax)
	b.WriteString("Respond with JSON only, no prose, in this shape:\n")
	b.WriteString(`{"title": "...", "scenes": [{"objective": "...", "animation_notes": "..."}]}`)
	return b.String()
}

// Shape requirements on the returned plan document. Evaluated with JMESPath
// so the contract reads as data, not as unmarshalling code.
var planShapeChecks = []struct {
	expr string
	want func(any) bool
	desc string
}{
	{
		expr: "title",
		want: func(v any) bool { s, ok := v.(string); return ok && strings.TrimSpace(s) != "" },
		desc: "title must be a non-empty string",
	},
	{
		expr: "length(scenes || `[]`)",
		want: func(v any) bool {
			n, ok := v.(float64)
			return ok && n >= planSceneMin && n <= planSceneMax
		},
		desc: fmt.Sprintf("plan must have %d to %d scenes", planSceneMin, planSceneMax),
	},
	{
		expr: "length(scenes[?objective == '' || objective == null])",
		want: func(v any) bool { n, ok := v.(float64); return ok && n == 0 },
		desc: "every scene must state an objective",
	},
}

// parsePlan decodes the model output, verifies its shape, and renders the
// bullet-point plan text handed to code generation.
func parsePlan(raw string) (string, error) {
	var doc any
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &doc); err != nil {
		return "", fmt.Errorf("plan is not valid JSON: %w", err)
	}

	for _, check := range planShapeChecks {
		got, err := jmespath.Search(check.expr, doc)
		if err != nil || !check.want(got) {
			return "", fmt.Errorf("plan shape: %s", check.desc)
		}
	}

	title, _ := jmespath.Search("title", doc)
	scenes, _ := jmespath.Search("scenes", doc)
	sceneList, ok := scenes.([]any)
	if !ok {
		return "", fmt.Errorf("plan shape: scenes must be a list")
	}

	b := strings.Builder{}
	fmt.Fprintf(&b, "Lesson: %s\n", title)
	for i, s := range sceneList {
		scene, sceneOK := s.(map[string]any)
		if !sceneOK {
			return "", fmt.Errorf("plan shape: scene %d must be an object", i+1)
		}
		fmt.Fprintf(&b, "- Scene %d: %s", i+1, scene["objective"])
		if notes, hasNotes := scene["animation_notes"].(string); hasNotes && notes != "" {
			fmt.Fprintf(&b, " (animation: %s)", notes)
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}
