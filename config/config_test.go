package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    []ServiceMode
		wantErr bool
	}{
		{"single http", "http", []ServiceMode{ServiceModeHTTP}, false},
		{"http and reaper", "http,reaper", []ServiceMode{ServiceModeHTTP, ServiceModeReaper}, false},
		{"whitespace tolerated", " http , reaper ", []ServiceMode{ServiceModeHTTP, ServiceModeReaper}, false},
		{"empty", "", nil, true},
		{"unknown service", "http,websocket", nil, true},
		{"only commas", ",,", nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseServices(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, len(tc.want))
			for _, mode := range tc.want {
				assert.True(t, got[mode], "expected %s enabled", mode)
			}
		})
	}
}

func TestStoreDriverValid(t *testing.T) {
	t.Parallel()

	assert.True(t, StoreDriverMemory.Valid())
	assert.True(t, StoreDriverPostgres.Valid())
	assert.True(t, StoreDriverRedis.Valid())
	assert.False(t, StoreDriver("sqlite").Valid())
	assert.False(t, StoreDriver("").Valid())
}

func TestPipelineSanitize(t *testing.T) {
	t.Parallel()

	p := PipelineConfig{MaxCorrectionAttempts: -1}
	p.Sanitize()

	assert.Zero(t, p.MaxCorrectionAttempts)
	assert.Equal(t, 2*time.Minute, p.PlanTimeout)
	assert.Equal(t, 3*time.Minute, p.CodeGenTimeout)
	assert.Equal(t, 30*time.Second, p.ValidateTimeout)
	assert.Equal(t, 10*time.Minute, p.RenderTimeout)
	assert.Equal(t, "manim", p.RendererBinary)
	assert.Equal(t, "generated", p.WorkDir)
}

func TestSchedulerSanitize(t *testing.T) {
	t.Parallel()

	s := SchedulerConfig{Mode: "turbo", PoolSize: 0}
	s.Sanitize()
	assert.Equal(t, DispatchModeUnbounded, s.Mode)
	assert.Equal(t, 1, s.PoolSize)

	s = SchedulerConfig{Mode: DispatchModePool, PoolSize: 8}
	s.Sanitize()
	assert.Equal(t, DispatchModePool, s.Mode)
	assert.Equal(t, 8, s.PoolSize)
}

func TestReaperSanitizeClampsWindows(t *testing.T) {
	t.Parallel()

	r := ReaperConfig{Retention: time.Minute, Interval: time.Second}
	r.Sanitize()
	assert.Equal(t, time.Hour, r.Retention)
	assert.Equal(t, time.Minute, r.Interval)
}

func TestMailEnabled(t *testing.T) {
	t.Parallel()

	assert.False(t, MailConfig{}.Enabled())
	assert.True(t, MailConfig{APIKey: "sg-key"}.Enabled())
}

func TestAppConfigServiceFlags(t *testing.T) {
	t.Parallel()

	cfg := AppConfig{Services: "http"}
	assert.True(t, cfg.IsHTTPServerEnabled())
	assert.False(t, cfg.IsReaperEnabled())

	cfg.Services = "http,reaper"
	assert.True(t, cfg.IsHTTPServerEnabled())
	assert.True(t, cfg.IsReaperEnabled())

	cfg.Services = "bogus"
	assert.False(t, cfg.IsHTTPServerEnabled())
	assert.False(t, cfg.IsReaperEnabled())
}
