package renderer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualityFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		quality string
		want    string
	}{
		{"low", "-ql"},
		{"medium", "-qm"},
		{"high", "-qh"},
		{"HIGH", "-qh"},
		{"", "-qm"},
		{"ultra", "-qm"},
	}
	for _, tc := range tests {
		t.Run("quality "+tc.quality, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, QualityFlag(tc.quality))
		})
	}
}

func TestSceneSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"scene class", "class DerivativeLesson(ManimVoiceoverBase):\n    pass", "derivativelesson"},
		{"no class", "x = 1", "scene"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, SceneSlug(tc.source))
		})
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{WorkDir: "w"}, nil)
	assert.Error(t, err)

	_, err = New(Config{Binary: "manim"}, nil)
	assert.Error(t, err)

	r, err := New(Config{Binary: "manim", WorkDir: "w"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "medium", r.defaultQuality)
}

func TestWriteSceneFileAvoidsCollisions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r, err := New(Config{Binary: "manim", WorkDir: dir}, nil)
	require.NoError(t, err)

	source := "class Demo(ManimVoiceoverBase):\n    pass"
	first, err := r.writeSceneFile(source)
	require.NoError(t, err)
	second, err := r.writeSceneFile(source)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	for _, path := range []string{first, second} {
		data, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		assert.Equal(t, source, string(data))
	}
}

func TestFindArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mediaDir := filepath.Join(dir, "media", "videos", "demo", "720p30")
	require.NoError(t, os.MkdirAll(mediaDir, 0o755))

	stale := filepath.Join(mediaDir, "old.mp4")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	staleTime := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(stale, staleTime, staleTime))

	since := time.Now().Add(-time.Minute)
	fresh := filepath.Join(mediaDir, "demo.mp4")
	require.NoError(t, os.WriteFile(fresh, []byte("new"), 0o644))

	got, err := findArtifact(dir, since)
	require.NoError(t, err)
	assert.Equal(t, fresh, got)
}

func TestFindArtifactNoneProduced(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := findArtifact(dir, time.Now().Add(-time.Minute))
	assert.ErrorContains(t, err, "no video produced")
}

func TestTail(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", tail("short", 10))
	long := "abcdefghij"
	assert.Equal(t, "...ghij", tail(long, 4))
}
