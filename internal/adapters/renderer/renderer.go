// Package renderer executes validated animation source with the manim CLI
// and locates the produced video artifact.
package renderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/lessonforge/videogen/internal/domain/model"
)

// Config captures the renderer's execution environment.
type Config struct {
	// Binary is the manim executable name or path.
	Binary string
	// WorkDir is where scene files are written and media output lands.
	WorkDir string
	// DefaultQuality is used when a submission carries no quality.
	DefaultQuality string
}

// Renderer implements the render stage by shelling out to manim. A non-zero
// exit is a correctable failure carrying the process output as diagnostics;
// anything preventing the process from running at all is fatal.
type Renderer struct {
	binary         string
	workDir        string
	defaultQuality string
	logger         *slog.Logger
}

// New creates a Renderer.
func New(cfg Config, logger *slog.Logger) (*Renderer, error) {
	if strings.TrimSpace(cfg.Binary) == "" {
		return nil, fmt.Errorf("renderer binary is required")
	}
	if strings.TrimSpace(cfg.WorkDir) == "" {
		return nil, fmt.Errorf("renderer work dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	quality := cfg.DefaultQuality
	if quality == "" {
		quality = "medium"
	}
	return &Renderer{
		binary:         cfg.Binary,
		workDir:        cfg.WorkDir,
		defaultQuality: quality,
		logger:         logger,
	}, nil
}

// Execute implements core.Renderer.
func (r *Renderer) Execute(ctx context.Context, source, quality string) model.StageResult {
	if err := os.MkdirAll(r.workDir, 0o755); err != nil {
		return model.StageFatal(fmt.Sprintf("prepare work dir: %v", err))
	}

	sceneFile, err := r.writeSceneFile(source)
	if err != nil {
		return model.StageFatal(fmt.Sprintf("write scene file: %v", err))
	}
	r.logger.InfoContext(ctx, "scene file written", "path", sceneFile)

	started := time.Now()
	cmd := exec.CommandContext(ctx, r.binary, QualityFlag(r.resolveQuality(quality)), sceneFile)
	cmd.Dir = r.workDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if runErr := cmd.Run(); runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			// The process ran and rejected the source; regeneration may fix it.
			diag := fmt.Sprintf("manim exited with code %d\nSTDOUT:\n%s\nSTDERR:\n%s",
				exitErr.ExitCode(), tail(stdout.String(), 4000), tail(stderr.String(), 4000))
			return model.StageCorrectable("manim execution failed", diag)
		}
		return model.StageFatal(fmt.Sprintf("start manim: %v", runErr))
	}

	artifact, err := findArtifact(r.workDir, started)
	if err != nil {
		return model.StageFatal(fmt.Sprintf("locate rendered video: %v", err))
	}
	r.logger.InfoContext(ctx, "render completed", "artifact", artifact)
	return model.StageSuccess(artifact)
}

func (r *Renderer) resolveQuality(quality string) string {
	if strings.TrimSpace(quality) == "" {
		return r.defaultQuality
	}
	return quality
}

// QualityFlag maps a submission quality to the manim CLI flag. Unknown
// values fall back to medium.
func QualityFlag(quality string) string {
	switch strings.ToLower(strings.TrimSpace(quality)) {
	case "low":
		return "-ql"
	case "high":
		return "-qh"
	default:
		return "-qm"
	}
}

var sceneClassNameRe = regexp.MustCompile(`(?m)^class\s+(\w+)\s*\(`)

// SceneSlug derives a filesystem-friendly name from the source's scene class.
func SceneSlug(source string) string {
	m := sceneClassNameRe.FindStringSubmatch(source)
	if m == nil {
		return "scene"
	}
	return strings.ToLower(m[1])
}

// writeSceneFile persists the source under a unique name inside the work dir.
func (r *Renderer) writeSceneFile(source string) (string, error) {
	base := fmt.Sprintf("%s_%s", SceneSlug(source), time.Now().UTC().Format("20060102_150405"))
	path := filepath.Join(r.workDir, base+".py")
	for counter := 1; ; counter++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(r.workDir, fmt.Sprintf("%s_%d.py", base, counter))
	}
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// findArtifact locates the newest video file written after the render
// started. Manim nests output under media/videos/<scene>/<resolution>/.
func findArtifact(root string, since time.Time) (string, error) {
	var (
		newest    string
		newestMod time.Time
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return walkErr
		}
		if filepath.Ext(path) != ".mp4" {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		if info.ModTime().Before(since) {
			return nil
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = path
			newestMod = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if newest == "" {
		return "", fmt.Errorf("no video produced under %s", root)
	}
	return newest, nil
}

// tail truncates long process output, keeping the end where the traceback is.
func tail(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return "..." + s[len(s)-limit:]
}
