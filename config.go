package scenecore

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/gekko3d/scenecore/scenert/rt/lightenv"
	"github.com/gekko3d/scenecore/scenert/rt/streaming"
	"github.com/pelletier/go-toml/v2"
)

const megabyte = 1024 * 1024

// Config is the TOML configuration of the modules. Keys missing from a file
// keep their DefaultConfig value.
type Config struct {
	Logging          LoggingConfig          `toml:"logging"`
	Scene            SceneConfig            `toml:"scene"`
	LightEnvironment LightEnvironmentConfig `toml:"light_environment"`
	Streaming        StreamingConfig        `toml:"streaming"`
	Metrics          MetricsConfig          `toml:"metrics"`
}

type LoggingConfig struct {
	Prefix string `toml:"prefix"`
	Debug  bool   `toml:"debug"`
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
	// Addr serves /metrics when set.
	Addr string `toml:"addr"`
}

type SceneConfig struct {
	// RenderQueueSize is the command channel capacity of the render context.
	RenderQueueSize int `toml:"render_queue_size"`
	// Inline runs scene commands on the game goroutine.
	Inline bool `toml:"inline"`
}

type LightEnvironmentConfig struct {
	Workers                 int    `toml:"workers"`
	Seed                    uint64 `toml:"seed"`
	CompositeDynamicLights  bool   `toml:"composite_dynamic_lights"`
	LightEnvironmentShadows bool   `toml:"light_environment_shadows"`

	InvisibleUpdateTime        float32 `toml:"invisible_update_time"`
	MinTimeBetweenFullUpdates  float32 `toml:"min_time_between_full_updates"`
	NumVolumeVisibilitySamples int     `toml:"num_volume_visibility_samples"`
	LightDistance              float32 `toml:"light_distance"`
	ShadowDistance             float32 `toml:"shadow_distance"`
	ModShadowFadeoutExponent   float32 `toml:"mod_shadow_fadeout_exponent"`
}

// StreamingConfig mirrors streaming.Config with memory limits in megabytes.
type StreamingConfig struct {
	UseTextureStreaming  bool `toml:"use_texture_streaming"`
	OnlyStreamInTextures bool `toml:"only_stream_in_textures"`

	PoolSize            int `toml:"pool_size"`
	HysteresisLimit     int `toml:"hysteresis_limit"`
	DropMipLevelsLimit  int `toml:"drop_mip_levels_limit"`
	StopIncreasingLimit int `toml:"stop_increasing_limit"`
	StopStreamingLimit  int `toml:"stop_streaming_limit"`

	MinRequestedMipsToConsider    int     `toml:"min_requested_mips_to_consider"`
	MinTimeToGuaranteeMinMipCount float64 `toml:"min_time_to_guarantee_min_mip_count"`
	MaxTimeToGuaranteeMinMipCount float64 `toml:"max_time_to_guarantee_min_mip_count"`

	FudgeFactorIncreaseRateOfChange float32 `toml:"fudge_factor_increase_rate_of_change"`
	FudgeFactorDecreaseRateOfChange float32 `toml:"fudge_factor_decrease_rate_of_change"`

	MinResidentMipCount     int   `toml:"min_resident_mip_count"`
	MaxTextureMipCount      int   `toml:"max_texture_mip_count"`
	MaxPerFrameRequestBytes int64 `toml:"max_per_frame_request_bytes"`

	// BackendLatency is how many polls an in-memory backend request takes.
	BackendLatency int `toml:"backend_latency"`
}

func DefaultConfig() Config {
	env := lightenv.DefaultSettings()
	sys := lightenv.DefaultSystemSettings()
	st := streaming.DefaultConfig()
	return Config{
		Scene: SceneConfig{RenderQueueSize: 256},
		LightEnvironment: LightEnvironmentConfig{
			CompositeDynamicLights:     sys.CompositeDynamicLights,
			LightEnvironmentShadows:    sys.LightEnvironmentShadows,
			InvisibleUpdateTime:        env.InvisibleUpdateTime,
			MinTimeBetweenFullUpdates:  env.MinTimeBetweenFullUpdates,
			NumVolumeVisibilitySamples: env.NumVolumeVisibilitySamples,
			LightDistance:              env.LightDistance,
			ShadowDistance:             env.ShadowDistance,
			ModShadowFadeoutExponent:   env.ModShadowFadeoutExponent,
		},
		Streaming: StreamingConfig{
			UseTextureStreaming:             st.UseTextureStreaming,
			OnlyStreamInTextures:            st.OnlyStreamInTextures,
			PoolSize:                        64,
			HysteresisLimit:                 int(st.HysteresisLimit / megabyte),
			DropMipLevelsLimit:              int(st.DropMipLevelsLimit / megabyte),
			StopIncreasingLimit:             int(st.StopIncreasingLimit / megabyte),
			StopStreamingLimit:              int(st.StopStreamingLimit / megabyte),
			MinRequestedMipsToConsider:      st.MinRequestedMipsToConsider,
			MinTimeToGuaranteeMinMipCount:   st.MinTimeToGuaranteeMinMipCount,
			MaxTimeToGuaranteeMinMipCount:   st.MaxTimeToGuaranteeMinMipCount,
			FudgeFactorIncreaseRateOfChange: st.FudgeFactorIncreaseRateOfChange,
			FudgeFactorDecreaseRateOfChange: st.FudgeFactorDecreaseRateOfChange,
			MinResidentMipCount:             st.MinResidentMipCount,
			MaxTextureMipCount:              st.MaxTextureMipCount,
			MaxPerFrameRequestBytes:         st.MaxPerFrameRequestBytes,
			BackendLatency:                  2,
		},
	}
}

// LoadConfig reads a TOML file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decodeConfig(f)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func ParseConfig(data []byte) (Config, error) {
	return decodeConfig(bytes.NewReader(data))
}

func decodeConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	s := c.Streaming
	if !(s.HysteresisLimit >= s.DropMipLevelsLimit &&
		s.DropMipLevelsLimit >= s.StopIncreasingLimit &&
		s.StopIncreasingLimit >= s.StopStreamingLimit) {
		return fmt.Errorf("streaming limits must not increase from hysteresis_limit to stop_streaming_limit: %d, %d, %d, %d",
			s.HysteresisLimit, s.DropMipLevelsLimit, s.StopIncreasingLimit, s.StopStreamingLimit)
	}
	if s.MinTimeToGuaranteeMinMipCount > s.MaxTimeToGuaranteeMinMipCount {
		return fmt.Errorf("min_time_to_guarantee_min_mip_count %.2f exceeds max_time_to_guarantee_min_mip_count %.2f",
			s.MinTimeToGuaranteeMinMipCount, s.MaxTimeToGuaranteeMinMipCount)
	}
	if c.LightEnvironment.NumVolumeVisibilitySamples < 1 {
		return fmt.Errorf("num_volume_visibility_samples must be at least 1, got %d", c.LightEnvironment.NumVolumeVisibilitySamples)
	}
	if c.Scene.RenderQueueSize < 0 {
		return fmt.Errorf("render_queue_size must not be negative, got %d", c.Scene.RenderQueueSize)
	}
	return nil
}

// Modules returns the modules c configures, in installation order.
func (c Config) Modules() []Module {
	mods := []Module{
		LoggingModule{Prefix: c.Logging.Prefix, Debug: c.Logging.Debug},
		TimeModule{},
		SceneModule{RenderQueueSize: c.Scene.RenderQueueSize, Inline: c.Scene.Inline},
		LightEnvironmentModule{Config: &c.LightEnvironment},
		StreamingModule{Config: &c.Streaming},
	}
	if c.Metrics.Enabled {
		mods = append(mods, MetricsModule{Addr: c.Metrics.Addr})
	}
	return mods
}

// Settings are the per environment defaults new light environments start from.
func (c LightEnvironmentConfig) Settings() lightenv.Settings {
	s := lightenv.DefaultSettings()
	s.InvisibleUpdateTime = c.InvisibleUpdateTime
	s.MinTimeBetweenFullUpdates = c.MinTimeBetweenFullUpdates
	s.NumVolumeVisibilitySamples = c.NumVolumeVisibilitySamples
	s.LightDistance = c.LightDistance
	s.ShadowDistance = c.ShadowDistance
	s.ModShadowFadeoutExponent = c.ModShadowFadeoutExponent
	return s
}

func (c LightEnvironmentConfig) SystemSettings() lightenv.SystemSettings {
	return lightenv.SystemSettings{
		CompositeDynamicLights:  c.CompositeDynamicLights,
		LightEnvironmentShadows: c.LightEnvironmentShadows,
	}
}

// SchedulerConfig converts the limits to bytes.
func (c StreamingConfig) SchedulerConfig() streaming.Config {
	return streaming.Config{
		HysteresisLimit:                 int64(c.HysteresisLimit) * megabyte,
		DropMipLevelsLimit:              int64(c.DropMipLevelsLimit) * megabyte,
		StopIncreasingLimit:             int64(c.StopIncreasingLimit) * megabyte,
		StopStreamingLimit:              int64(c.StopStreamingLimit) * megabyte,
		MinRequestedMipsToConsider:      c.MinRequestedMipsToConsider,
		MinTimeToGuaranteeMinMipCount:   c.MinTimeToGuaranteeMinMipCount,
		MaxTimeToGuaranteeMinMipCount:   c.MaxTimeToGuaranteeMinMipCount,
		FudgeFactorIncreaseRateOfChange: c.FudgeFactorIncreaseRateOfChange,
		FudgeFactorDecreaseRateOfChange: c.FudgeFactorDecreaseRateOfChange,
		MinResidentMipCount:             c.MinResidentMipCount,
		MaxTextureMipCount:              c.MaxTextureMipCount,
		MaxPerFrameRequestBytes:         c.MaxPerFrameRequestBytes,
		UseTextureStreaming:             c.UseTextureStreaming,
		OnlyStreamInTextures:            c.OnlyStreamInTextures,
	}
}

// PoolBytes is the in-memory backend pool size in bytes.
func (c StreamingConfig) PoolBytes() int64 { return int64(c.PoolSize) * megabyte }
