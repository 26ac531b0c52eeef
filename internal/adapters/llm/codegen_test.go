package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessonforge/videogen/internal/core"
	"github.com/lessonforge/videogen/internal/domain/model"
)

func TestPostProcess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips bang lines",
			in:   "!pip install manim\nx = 1",
			want: "x = 1",
		},
		{
			name: "rewrites set_color constants",
			in:   "circle.set_color(BLUE)",
			want: `circle.set_color("blue")`,
		},
		{
			name: "adds return hint to scene methods",
			in:   "def intro_scene(self):",
			want: "def intro_scene(self) -> None:",
		},
		{
			name: "leaves construct and init alone",
			in:   "def construct(self):\ndef __init__(self):",
			want: "def construct(self):\ndef __init__(self):",
		},
		{
			name: "quotes bare color constants longest first",
			in:   "a = BLUE_A\nb = BLUE",
			want: "a = \"blue_a\"\nb = \"blue\"",
		},
		{
			name: "normalizes tabs",
			in:   "\tx = 1",
			want: "    x = 1",
		},
		{
			name: "unwraps code fence",
			in:   "```python\nx = 1\n```",
			want: "x = 1",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, PostProcess(tc.in))
		})
	}
}

func TestCodeGenerator_FreshGeneration(t *testing.T) {
	t.Parallel()

	var gotMessages []Message
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		require.NoError(t, decodeJSONBody(r, &req))
		gotMessages = req.Messages
		w.Write(completionBody("```python\nclass Demo(ManimVoiceoverBase):\n    pass\n```")) //nolint:errcheck
	})

	gen := NewCodeGenerator(client, nil)
	res := gen.Generate(context.Background(), core.CodeGenRequest{
		Plan:       "Lesson: derivatives",
		VoiceModel: model.VoiceNova,
	})

	require.True(t, res.IsSuccess())
	assert.Contains(t, res.Payload, "class Demo(ManimVoiceoverBase)")
	require.Len(t, gotMessages, 1)
	assert.Contains(t, gotMessages[0].Content, "Lesson: derivatives")
	assert.Contains(t, gotMessages[0].Content, `voice "nova"`)
}

func TestCodeGenerator_CorrectionPass(t *testing.T) {
	t.Parallel()

	var gotMessages []Message
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		require.NoError(t, decodeJSONBody(r, &req))
		gotMessages = req.Messages
		w.Write(completionBody("class Fixed(ManimVoiceoverBase):\n    pass")) //nolint:errcheck
	})

	gen := NewCodeGenerator(client, nil)
	res := gen.Generate(context.Background(), core.CodeGenRequest{
		Plan:       "Lesson: derivatives",
		VoiceModel: model.VoiceNova,
		Correction: &core.CorrectionContext{
			PreviousSource: "class Broken: pass",
			Diagnostics:    "scene must inherit from ManimVoiceoverBase",
			Attempt:        2,
		},
	})

	require.True(t, res.IsSuccess())
	require.Len(t, gotMessages, 2)
	assert.Equal(t, "system", gotMessages[0].Role)
	assert.Contains(t, gotMessages[1].Content, "class Broken: pass")
	assert.Contains(t, gotMessages[1].Content, "scene must inherit")
	assert.Contains(t, gotMessages[1].Content, "attempt 2")
}

func TestCodeGenerator_APIFailureIsCorrectable(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	gen := NewCodeGenerator(client, nil)
	res := gen.Generate(context.Background(), core.CodeGenRequest{Plan: "p", VoiceModel: model.VoiceNova})

	assert.True(t, res.IsCorrectable())
	assert.Contains(t, res.Reason, "code generation failed")
}

func TestCodeGenerator_EmptyOutputIsCorrectable(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write(completionBody("```python\n```")) //nolint:errcheck
	})

	gen := NewCodeGenerator(client, nil)
	res := gen.Generate(context.Background(), core.CodeGenRequest{Plan: "p", VoiceModel: model.VoiceNova})

	assert.True(t, res.IsCorrectable())
	assert.Contains(t, res.Reason, "empty source")
}

func decodeJSONBody(r *http.Request, v any) error {
	defer r.Body.Close() //nolint:errcheck
	return json.NewDecoder(r.Body).Decode(v)
}
