package config

import "time"

// PipelineConfig contains workflow pipeline and renderer configuration.
type PipelineConfig struct {
	// MaxCorrectionAttempts bounds the error-correction loop per job.
	MaxCorrectionAttempts int `env:"PIPELINE_MAX_CORRECTION_ATTEMPTS" envDefault:"3"`

	// Per-stage wall-clock timeouts. A stuck external call fails the
	// stage rather than stalling the job indefinitely.
	PlanTimeout     time.Duration `env:"PIPELINE_PLAN_TIMEOUT"     envDefault:"2m"`
	CodeGenTimeout  time.Duration `env:"PIPELINE_CODEGEN_TIMEOUT"  envDefault:"3m"`
	ValidateTimeout time.Duration `env:"PIPELINE_VALIDATE_TIMEOUT" envDefault:"30s"`
	RenderTimeout   time.Duration `env:"PIPELINE_RENDER_TIMEOUT"   envDefault:"10m"`

	// RendererBinary is the animation renderer executable.
	RendererBinary string `env:"PIPELINE_RENDERER_BINARY" envDefault:"manim"`

	// WorkDir is where generated scene files and rendered artifacts are written.
	WorkDir string `env:"PIPELINE_WORK_DIR" envDefault:"generated"`

	// DefaultQuality is used when a submission omits rendering_quality.
	DefaultQuality string `env:"PIPELINE_DEFAULT_QUALITY" envDefault:"medium"`
}

// Sanitize applies guardrails to pipeline configuration values.
func (p *PipelineConfig) Sanitize() {
	if p.MaxCorrectionAttempts < 0 {
		p.MaxCorrectionAttempts = 0
	}
	if p.PlanTimeout <= 0 {
		p.PlanTimeout = 2 * time.Minute
	}
	if p.CodeGenTimeout <= 0 {
		p.CodeGenTimeout = 3 * time.Minute
	}
	if p.ValidateTimeout <= 0 {
		p.ValidateTimeout = 30 * time.Second
	}
	if p.RenderTimeout <= 0 {
		p.RenderTimeout = 10 * time.Minute
	}
	if p.RendererBinary == "" {
		p.RendererBinary = "manim"
	}
	if p.WorkDir == "" {
		p.WorkDir = "generated"
	}
}
