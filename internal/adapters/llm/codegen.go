package llm

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/lessonforge/videogen/internal/core"
	"github.com/lessonforge/videogen/internal/domain/model"
)

// ValidColors is the allowlist of Manim color names the generated source may
// reference.
var ValidColors = []string{
	"blue", "teal", "green", "yellow", "gold", "red", "maroon",
	"purple", "pink", "light_pink", "orange", "light_brown",
	"dark_brown", "gray_brown", "white", "black", "lighter_gray",
	"light_gray", "gray", "dark_gray", "darker_gray", "blue_a",
	"blue_b", "blue_c", "blue_d", "blue_e", "pure_blue",
}

// CodeGenerator turns a lesson plan into animation+voiceover source text.
// On a correction pass it feeds the previous source and diagnostics back to
// the model instead of regenerating from the plan alone.
type CodeGenerator struct {
	client *Client
	logger *slog.Logger
}

// NewCodeGenerator creates a CodeGenerator on the completion client.
func NewCodeGenerator(client *Client, logger *slog.Logger) *CodeGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &CodeGenerator{client: client, logger: logger}
}

// Generate implements core.CodeGenerator. API failures are correctable: a
// later attempt against the same plan may succeed.
func (g *CodeGenerator) Generate(ctx context.Context, req core.CodeGenRequest) model.StageResult {
	var messages []Message
	if req.Correction != nil {
		messages = correctionMessages(req)
	} else {
		messages = []Message{{Role: "user", Content: generationPrompt(req)}}
	}

	raw, err := g.client.Complete(ctx, messages)
	if err != nil {
		g.logger.ErrorContext(ctx, "code generation failed", "error", err)
		return model.StageCorrectable(fmt.Sprintf("code generation failed: %v", err), "")
	}

	source := PostProcess(raw)
	if strings.TrimSpace(source) == "" {
		return model.StageCorrectable("code generation produced empty source", "")
	}
	return model.StageSuccess(source)
}

func generationPrompt(req core.CodeGenRequest) string {
	b := strings.Builder{}
	b.WriteString("Generate a Manim scene with voiceovers that inherits from ManimVoiceoverBase.\n")
	b.WriteString("The base class configures the background image and the voice service ")
	fmt.Fprintf(&b, "(voice %q) and provides create_title(text) and ensure_group_visible(group, margin).\n\n", req.VoiceModel)
	b.WriteString("Convert this plan to Manim code following STRICT RULES:\n")
	b.WriteString(req.Plan)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "IMPORTANT: Only use the following colors exactly as defined: %s. Do not invent or use any other color names.\n\n", strings.Join(ValidColors, ", "))
	b.WriteString(`RULES ENFORCED BY SYSTEM (MUST OBEY):
1. MATH RULES:
   - Use MathTex for mathematical content: fractions, Greek letters, operators, sub/superscripts.
   - Never use Text/Tex for math content.
2. SCENE STRUCTURE:
   - Every scene method must end with self.clear() or FadeOut of all mobjects except the background.
   - Suffix scene methods with _scene.
   - The construct() method must call the scene methods in order.
3. CODE STRUCTURE:
   - Class name should reflect the topic.
   - Include between 3 and 5 scene methods.
   - All methods must include type hints, return type hints included.
4. LAYOUT:
   - Use alignment utilities (align_to, next_to, VGroup().arrange(...)) to avoid overlapping visuals.
   - Validate and adjust mobject positions with ensure_group_visible().
5. VISUAL CONTENT:
   - Do not import any assets like SVGs or images.
   - Incorporate valid, constructive visual elements that teach the concept.

Output only the complete Python source, no prose.`)
	return b.String()
}

func correctionMessages(req core.CodeGenRequest) []Message {
	system := "You are an expert Manim developer. Fix the code based on the " +
		"error message while maintaining the original animation intent."
	user := fmt.Sprintf(`Fix this Manim code that generated an error (correction attempt %d):
Error:
%s

Original code:
%s

Output only the complete corrected Python source, no prose.`,
		req.Correction.Attempt, req.Correction.Diagnostics, req.Correction.PreviousSource)
	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}

var (
	setColorRe   = regexp.MustCompile(`\.set_color\(([A-Z_]+)\)`)
	returnHintRe = regexp.MustCompile(`def (\w+)\(self\)\s*:`)
)

// PostProcess normalizes raw model output into source text the validator and
// renderer can work with: fences and shell lines are stripped, bare color
// constants are rewritten to lowercase string literals, and missing return
// hints on scene methods are filled in.
func PostProcess(raw string) string {
	code := stripCodeFence(raw)

	// Drop extraneous lines starting with '!'.
	kept := make([]string, 0, strings.Count(code, "\n")+1)
	for _, line := range strings.Split(code, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "!") {
			continue
		}
		kept = append(kept, line)
	}
	code = strings.Join(kept, "\n")

	code = setColorRe.ReplaceAllStringFunc(code, func(m string) string {
		name := setColorRe.FindStringSubmatch(m)[1]
		return fmt.Sprintf(".set_color(%q)", strings.ToLower(name))
	})

	code = returnHintRe.ReplaceAllStringFunc(code, func(m string) string {
		name := returnHintRe.FindStringSubmatch(m)[1]
		if name == "__init__" || name == "construct" {
			return m
		}
		return strings.Replace(m, ")", ") -> None", 1)
	})

	code = rewriteBareColors(code)
	return strings.ReplaceAll(code, "\t", "    ")
}

// rewriteBareColors replaces uppercase color constants with quoted lowercase
// names. Longest names first so BLUE_A is not clobbered by BLUE.
func rewriteBareColors(code string) string {
	names := make([]string, len(ValidColors))
	copy(names, ValidColors)
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	for _, name := range names {
		upper := strings.ToUpper(name)
		code = strings.ReplaceAll(code, upper, fmt.Sprintf("%q", name))
	}
	return code
}
