package dieselvk

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	vk "github.com/vulkan-go/vulkan"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFramesInFlight = 2
	MaxFramesInFlight     = 8
)

// Config is the engine configuration. It may be loaded from a TOML or YAML
// file; fields left unset keep their DefaultConfig values.
type Config struct {
	Window   WindowConfig   `toml:"window" yaml:"window"`
	Renderer RendererConfig `toml:"renderer" yaml:"renderer"`
	Debug    DebugConfig    `toml:"debug" yaml:"debug"`
}

type WindowConfig struct {
	Title     string `toml:"title" yaml:"title"`
	Width     int    `toml:"width" yaml:"width"`
	Height    int    `toml:"height" yaml:"height"`
	Resizable bool   `toml:"resizable" yaml:"resizable"`
}

type RendererConfig struct {
	FramesInFlight int `toml:"frames_in_flight" yaml:"frames_in_flight"`
	// PresentModes is scanned in order; FIFO is always the fallback.
	PresentModes []string `toml:"present_modes" yaml:"present_modes"`
	// VSync forces FIFO regardless of PresentModes.
	VSync bool `toml:"vsync" yaml:"vsync"`
	// MaxSamples caps MSAA. Zero means the device maximum.
	MaxSamples   int        `toml:"max_samples" yaml:"max_samples"`
	ClearColor   [4]float32 `toml:"clear_color" yaml:"clear_color"`
	ClearDepth   float32    `toml:"clear_depth" yaml:"clear_depth"`
	ClearStencil uint32     `toml:"clear_stencil" yaml:"clear_stencil"`
}

type DebugConfig struct {
	Validation bool     `toml:"validation" yaml:"validation"`
	Layers     []string `toml:"layers" yaml:"layers"`
	LogLevel   string   `toml:"log_level" yaml:"log_level"`
	LogFile    string   `toml:"log_file" yaml:"log_file"`
	StatsFile  string   `toml:"stats_file" yaml:"stats_file"`
}

func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{
			Title:     "dieselvk",
			Width:     1280,
			Height:    720,
			Resizable: true,
		},
		Renderer: RendererConfig{
			FramesInFlight: DefaultFramesInFlight,
			PresentModes:   []string{"mailbox", "fifo"},
			ClearColor:     [4]float32{0, 0, 0, 1},
			ClearDepth:     1,
		},
		Debug: DebugConfig{
			Layers:   []string{"VK_LAYER_KHRONOS_validation"},
			LogLevel: "info",
		},
	}
}

// LoadConfig reads path over DefaultConfig. The decoder is chosen by the file
// extension: .toml, .yaml or .yml.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return cfg, errors.Wrapf(err, "decode %s", path)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, errors.Wrapf(err, "decode %s", path)
		}
	default:
		return cfg, errors.Newf("unsupported config format %q", ext)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Newf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if n := c.Renderer.FramesInFlight; n < 1 || n > MaxFramesInFlight {
		return errors.Newf("frames_in_flight %d out of range [1,%d]", n, MaxFramesInFlight)
	}
	if _, err := c.Renderer.presentModes(); err != nil {
		return err
	}
	switch c.Renderer.MaxSamples {
	case 0, 1, 2, 4, 8, 16, 32, 64:
	default:
		return errors.Newf("max_samples %d is not a power of two up to 64", c.Renderer.MaxSamples)
	}
	if _, err := ParseLevel(c.Debug.LogLevel); err != nil {
		return err
	}
	return nil
}

// PresentModePreference returns the ordered present-mode preference list.
func (r RendererConfig) PresentModePreference() []vk.PresentMode {
	if r.VSync {
		return []vk.PresentMode{vk.PresentModeFifo}
	}
	modes, _ := r.presentModes()
	return modes
}

func (r RendererConfig) presentModes() ([]vk.PresentMode, error) {
	modes := make([]vk.PresentMode, 0, len(r.PresentModes))
	for _, name := range r.PresentModes {
		m, err := ParsePresentMode(name)
		if err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	return modes, nil
}

// SampleCap converts MaxSamples to a sample count flag; zero means no cap.
func (r RendererConfig) SampleCap() vk.SampleCountFlagBits {
	if r.MaxSamples == 0 {
		return vk.SampleCount64Bit
	}
	return vk.SampleCountFlagBits(r.MaxSamples)
}

func ParsePresentMode(s string) (vk.PresentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "immediate":
		return vk.PresentModeImmediate, nil
	case "mailbox":
		return vk.PresentModeMailbox, nil
	case "fifo":
		return vk.PresentModeFifo, nil
	case "fifo_relaxed":
		return vk.PresentModeFifoRelaxed, nil
	}
	return vk.PresentModeFifo, errors.Newf("unknown present mode %q", s)
}

func presentModeName(m vk.PresentMode) string {
	switch m {
	case vk.PresentModeImmediate:
		return "immediate"
	case vk.PresentModeMailbox:
		return "mailbox"
	case vk.PresentModeFifo:
		return "fifo"
	case vk.PresentModeFifoRelaxed:
		return "fifo_relaxed"
	}
	return "unknown"
}
