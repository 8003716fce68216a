// Package config provides configuration loading and access for the badge simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Container ContainerConfig `yaml:"container"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Badge     BadgeConfig     `yaml:"badge"`
	Drag      DragConfig      `yaml:"drag"`
	Tilt      TiltConfig      `yaml:"tilt"`
	Resize    ResizeConfig    `yaml:"resize"`
	Render    RenderConfig    `yaml:"render"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Stack     []LabelConfig   `yaml:"stack"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// ContainerConfig holds the layout-space size of the host container.
// Zero values mean "fill the screen".
type ContainerConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// PhysicsConfig holds simulation physics parameters.
type PhysicsConfig struct {
	Backend            string  `yaml:"backend"`             // "box2d" or "ark"
	DT                 float64 `yaml:"dt"`                  // fixed step in seconds
	MaxStepsPerFrame   int     `yaml:"max_steps_per_frame"` // accumulator cap
	GravityX           float64 `yaml:"gravity_x"`
	GravityY           float64 `yaml:"gravity_y"`
	GravityScale       float64 `yaml:"gravity_scale"` // px/s^2 per unit of gravity
	Restitution        float64 `yaml:"restitution"`
	Friction           float64 `yaml:"friction"`
	Density            float64 `yaml:"density"`
	AirFriction        float64 `yaml:"air_friction"`      // fraction of velocity lost per step
	MaxSpeed           float64 `yaml:"max_speed"`         // px/s
	MaxAngularSpeed    float64 `yaml:"max_angular_speed"` // rad/s
	VelocityIterations int     `yaml:"velocity_iterations"`
	PositionIterations int     `yaml:"position_iterations"`
	PixelsPerMeter     float64 `yaml:"pixels_per_meter"` // box2d scaling
	WallThickness      float64 `yaml:"wall_thickness"`
	NudgeRate          float64 `yaml:"nudge_rate"` // fraction of the distance back inside covered per step
	MaxNudge           float64 `yaml:"max_nudge"`  // px per step
}

// BadgeConfig holds badge sizing parameters.
type BadgeConfig struct {
	Height    float64 `yaml:"height"`
	CharWidth float64 `yaml:"char_width"`
	Padding   float64 `yaml:"padding"`
	MinWidth  float64 `yaml:"min_width"`
	FontSize  float64 `yaml:"font_size"`
}

// DragConfig holds pointer constraint parameters.
type DragConfig struct {
	Stiffness    float64 `yaml:"stiffness"`     // fraction of the pointer offset corrected per step
	FrequencyHz  float64 `yaml:"frequency_hz"`  // box2d mouse joint
	DampingRatio float64 `yaml:"damping_ratio"` // box2d mouse joint
	MaxForce     float64 `yaml:"max_force"`     // box2d mouse joint, multiplied by body mass
}

// TiltConfig holds device-orientation parameters.
type TiltConfig struct {
	Enabled             bool    `yaml:"enabled"`
	ResimulateInterval  float64 `yaml:"resimulate_interval"` // seconds between random-gravity restarts
	RandomRange         float64 `yaml:"random_range"`        // half-width of random gravity range
	KeyboardStepDegrees float64 `yaml:"keyboard_step_degrees"`
}

// ResizeConfig holds resize coalescing parameters.
type ResizeConfig struct {
	Debounce float64 `yaml:"debounce"` // seconds a size must be stable before it applies
	MaxWait  float64 `yaml:"max_wait"` // seconds after which a pending size applies regardless
	MinDelta float64 `yaml:"min_delta"`
}

// RenderConfig holds badge styling.
type RenderConfig struct {
	Background string            `yaml:"background"`
	TextColor  string            `yaml:"text_color"`
	Palette    map[string]string `yaml:"palette"` // category -> hex color
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	SettledSpeed        float64 `yaml:"settled_speed"` // px/s below which a badge counts as settled
}

// LabelConfig names one technology badge.
type LabelConfig struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	ContainerW         float64       // effective container width
	ContainerH         float64       // effective container height
	StepDuration       time.Duration // Physics.DT as a duration
	ResimulateInterval time.Duration
	ResizeDebounce     time.Duration
	ResizeMaxWait      time.Duration
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate checks values that would make the simulation misbehave.
func (c *Config) Validate() error {
	var errs []error
	if c.Physics.DT <= 0 {
		errs = append(errs, fmt.Errorf("physics.dt must be positive, got %v", c.Physics.DT))
	}
	if c.Physics.Restitution < 0 || c.Physics.Restitution > 1 {
		errs = append(errs, fmt.Errorf("physics.restitution must be in [0, 1], got %v", c.Physics.Restitution))
	}
	if c.Physics.Friction < 0 || c.Physics.Friction > 1 {
		errs = append(errs, fmt.Errorf("physics.friction must be in [0, 1], got %v", c.Physics.Friction))
	}
	if c.Physics.MaxSpeed <= 0 {
		errs = append(errs, fmt.Errorf("physics.max_speed must be positive, got %v", c.Physics.MaxSpeed))
	}
	if c.Badge.Height <= 0 {
		errs = append(errs, fmt.Errorf("badge.height must be positive, got %v", c.Badge.Height))
	}
	if c.Tilt.ResimulateInterval <= 0 {
		errs = append(errs, fmt.Errorf("tilt.resimulate_interval must be positive, got %v", c.Tilt.ResimulateInterval))
	}
	for i, l := range c.Stack {
		if l.Name == "" {
			errs = append(errs, fmt.Errorf("stack[%d]: empty name", i))
		}
	}
	return errors.Join(errs...)
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	// Container defaults to screen size if not specified
	w := c.Container.Width
	if w == 0 {
		w = c.Screen.Width
	}
	h := c.Container.Height
	if h == 0 {
		h = c.Screen.Height
	}
	c.Derived.ContainerW = float64(w)
	c.Derived.ContainerH = float64(h)

	c.Derived.StepDuration = seconds(c.Physics.DT)
	c.Derived.ResimulateInterval = seconds(c.Tilt.ResimulateInterval)
	c.Derived.ResizeDebounce = seconds(c.Resize.Debounce)
	c.Derived.ResizeMaxWait = seconds(c.Resize.MaxWait)

	if c.Physics.MaxStepsPerFrame < 1 {
		c.Physics.MaxStepsPerFrame = 1
	}
	if c.Physics.VelocityIterations < 1 {
		c.Physics.VelocityIterations = 1
	}
	if c.Physics.PositionIterations < 1 {
		c.Physics.PositionIterations = 1
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
