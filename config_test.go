package scenecore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/scenecore/scenert/rt/streaming"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.validate())

	assert.Equal(t, 256, cfg.Scene.RenderQueueSize)
	assert.True(t, cfg.LightEnvironment.CompositeDynamicLights)
	assert.Equal(t, 20, cfg.Streaming.HysteresisLimit)
	assert.Equal(t, 8, cfg.Streaming.StopStreamingLimit)
	assert.False(t, cfg.Metrics.Enabled)

	// the megabyte round trip keeps the scheduler defaults
	assert.Equal(t, streaming.DefaultConfig(), cfg.Streaming.SchedulerConfig())
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
[logging]
prefix = "scene"
debug = true

[light_environment]
workers = 3
composite_dynamic_lights = false
num_volume_visibility_samples = 4

[streaming]
pool_size = 128
hysteresis_limit = 40
max_per_frame_request_bytes = 1024

[metrics]
enabled = true
addr = ":9100"
`))
	require.NoError(t, err)

	assert.Equal(t, LoggingConfig{Prefix: "scene", Debug: true}, cfg.Logging)
	assert.Equal(t, 3, cfg.LightEnvironment.Workers)
	assert.False(t, cfg.LightEnvironment.CompositeDynamicLights)
	assert.Equal(t, 4, cfg.LightEnvironment.Settings().NumVolumeVisibilitySamples)
	assert.False(t, cfg.LightEnvironment.SystemSettings().CompositeDynamicLights)

	// untouched keys keep their defaults
	assert.Equal(t, 256, cfg.Scene.RenderQueueSize)
	assert.Equal(t, 16, cfg.Streaming.DropMipLevelsLimit)

	sched := cfg.Streaming.SchedulerConfig()
	assert.Equal(t, int64(40*megabyte), sched.HysteresisLimit)
	assert.Equal(t, int64(1024), sched.MaxPerFrameRequestBytes)
	assert.Equal(t, int64(128*megabyte), cfg.Streaming.PoolBytes())
}

func TestParseConfig_UnknownKey(t *testing.T) {
	_, err := ParseConfig([]byte("[scene]\nrender_queue = 5\n"))
	require.Error(t, err)

	var strict *toml.StrictMissingError
	assert.True(t, errors.As(err, &strict))
}

func TestParseConfig_Validation(t *testing.T) {
	for _, tt := range []struct {
		name string
		data string
	}{
		{"limits out of order", "[streaming]\nstop_streaming_limit = 100\n"},
		{"guarantee times swapped", "[streaming]\nmin_time_to_guarantee_min_mip_count = 20.0\n"},
		{"no visibility samples", "[light_environment]\nnum_volume_visibility_samples = 0\n"},
		{"negative queue", "[scene]\nrender_queue_size = -1\n"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.toml")
	require.NoError(t, os.WriteFile(path, []byte("[scene]\ninline = true\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Scene.Inline)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfig_Modules(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scene.Inline = true
	mods := cfg.Modules()
	require.Len(t, mods, 5)
	assert.IsType(t, LoggingModule{}, mods[0])
	assert.IsType(t, SceneModule{}, mods[2])

	cfg.Metrics.Enabled = true
	mods = cfg.Modules()
	require.Len(t, mods, 6)
	assert.IsType(t, MetricsModule{}, mods[5])

	builder := NewAppBuilder()
	for _, m := range mods {
		builder.UseModule(m)
	}
	app := builder.Build()
	t.Cleanup(app.Shutdown)

	w := resource[World](app)
	require.NotNil(t, w)
	assert.NotNil(t, w.LightEnvironments())
	assert.NotNil(t, w.Streaming())
	assert.NotNil(t, resource[Time](app))
	app.Step()
}
