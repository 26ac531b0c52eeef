package scenecheck_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessonforge/videogen/internal/adapters/scenecheck"
)

const validScene = `from manim import *

class DerivativeLesson(ManimVoiceoverBase):
    def construct(self):
        self.intro_scene()

    def intro_scene(self) -> None:
        title = self.create_title("Derivatives")
        title.set_color("blue")
        self.play(Write(title))
        self.play(
            *[FadeOut(mob) for mob in self.mobjects if mob != self.background]
        )
`

func TestChecker_ValidSource(t *testing.T) {
	t.Parallel()

	checker := scenecheck.NewChecker(nil)
	res := checker.Check(context.Background(), validScene)
	assert.True(t, res.IsSuccess())
}

func TestChecker_Defects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
		diag   string
	}{
		{
			name:   "empty source",
			source: "   \n",
			diag:   "no code to validate",
		},
		{
			name:   "no class at all",
			source: "def construct(self):\n    pass\n",
			diag:   "no scene class found",
		},
		{
			name: "wrong base class",
			source: `class Lesson(Scene):
    def construct(self):
        self.clear()
`,
			diag: "must inherit from VoiceoverScene or ManimVoiceoverBase",
		},
		{
			name: "missing construct",
			source: `class Lesson(ManimVoiceoverBase):
    def intro_scene(self) -> None:
        self.clear()
`,
			diag: "must define a construct method",
		},
		{
			name: "missing cleanup",
			source: `class Lesson(ManimVoiceoverBase):
    def construct(self):
        pass
`,
			diag: "proper cleanup",
		},
		{
			name: "invalid color",
			source: `class Lesson(ManimVoiceoverBase):
    def construct(self):
        t = Text("hi")
        t.set_color("crimson")
        self.clear()
`,
			diag: `invalid color "crimson"`,
		},
		{
			name: "external asset",
			source: `class Lesson(ManimVoiceoverBase):
    def construct(self):
        logo = SVGMobject("logo.svg")
        self.clear()
`,
			diag: "external assets are not allowed",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			checker := scenecheck.NewChecker(nil)
			res := checker.Check(context.Background(), tc.source)
			require.True(t, res.IsCorrectable(), "expected correctable failure")
			assert.Contains(t, res.Context, tc.diag)
		})
	}
}

func TestChecker_SelfClearCountsAsCleanup(t *testing.T) {
	t.Parallel()

	source := `class Lesson(VoiceoverScene):
    def construct(self):
        self.clear()
`
	checker := scenecheck.NewChecker(nil)
	res := checker.Check(context.Background(), source)
	assert.True(t, res.IsSuccess())
}

func TestChecker_ReportsAllDefectsTogether(t *testing.T) {
	t.Parallel()

	source := `class Lesson(Scene):
    def intro_scene(self) -> None:
        t = Text("hi")
        t.set_color("neon")
`
	checker := scenecheck.NewChecker(nil)
	res := checker.Check(context.Background(), source)
	require.True(t, res.IsCorrectable())
	assert.Contains(t, res.Reason, "4 defect(s)")
}
