// Package config loads and validates the settings a Session needs to
// negotiate and drive a TN3270/TN3270E connection: screen geometry, code
// page, device identity, timing behaviour, and the TLS/force-mode
// switches. A YAML file is optional -- Default returns a complete,
// usable Config on its own.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TimingProfile names a preset pair of overall/step negotiation
// timeouts, so a caller can say "aggressive" instead of spelling out
// durations.
type TimingProfile string

const (
	Aggressive   TimingProfile = "aggressive"
	Standard     TimingProfile = "standard"
	Conservative TimingProfile = "conservative"
)

// Timeouts returns the overall and per-step negotiation deadlines this
// profile resolves to. Unrecognized profiles fall back to Standard.
func (p TimingProfile) Timeouts() (overall, step time.Duration) {
	switch p {
	case Aggressive:
		return 5 * time.Second, 1 * time.Second
	case Conservative:
		return 60 * time.Second, 10 * time.Second
	default:
		return 15 * time.Second, 3 * time.Second
	}
}

// ForceMode mirrors negotiate.ForceMode as a YAML-friendly string, so
// the config package doesn't need to import internal/negotiate just to
// parse a field.
type ForceMode string

const (
	ForceAuto    ForceMode = "auto"
	ForceTN3270E ForceMode = "tn3270e"
	ForceTN3270  ForceMode = "tn3270"
	ForceNVT     ForceMode = "nvt"
)

// Config is the full set of recognised options (spec section 6).
type Config struct {
	Rows  int `yaml:"rows"`
	Cols  int `yaml:"cols"`
	Model int `yaml:"model"`

	CodePage   string `yaml:"code_page"`
	DeviceType string `yaml:"device_type"`
	LUName     string `yaml:"lu_name"`

	TLS bool `yaml:"tls"`

	TimingProfile  TimingProfile `yaml:"timing_profile"`
	OverallTimeout time.Duration `yaml:"overall_timeout"`
	StepTimeout    time.Duration `yaml:"step_timeout"`

	CircumventProtection bool      `yaml:"circumvent_protection"`
	ForceMode            ForceMode `yaml:"force_mode"`

	// PrinterSession makes Session.Connect advertise the IBM-3287-1
	// printer device type instead of DeviceType. SCS data records are
	// not interpreted: the session logs and drops them.
	PrinterSession bool `yaml:"printer_session"`
}

// modelGeometry gives the rows/cols a model number implies when Rows/Cols
// aren't set explicitly.
var modelGeometry = map[int][2]int{
	2: {24, 80},
	3: {32, 80},
	4: {43, 80},
	5: {27, 132},
}

// Default returns the baseline configuration: a 24x80 model 2 terminal,
// CP037, device type IBM-3278-2-E, standard timing, auto negotiation.
func Default() Config {
	return Config{
		Rows:          24,
		Cols:          80,
		Model:         2,
		CodePage:      "cp037",
		DeviceType:    "IBM-3278-2-E",
		TimingProfile: Standard,
		ForceMode:     ForceAuto,
	}
}

// Load reads and parses a YAML configuration file at path, starting from
// Default() so every field the file omits keeps its default value. Rows
// and Cols the file omits are derived from Model instead.
func Load(path string) (Config, error) {
	cfg := Default()
	cfg.Rows, cfg.Cols = 0, 0

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// normalize fills in geometry from Model when Rows/Cols were left at
// zero, and validates the enumerated fields.
func (c *Config) normalize() error {
	if geo, ok := modelGeometry[c.Model]; ok {
		if c.Rows == 0 {
			c.Rows = geo[0]
		}
		if c.Cols == 0 {
			c.Cols = geo[1]
		}
	}
	if c.Rows <= 0 || c.Cols <= 0 {
		return fmt.Errorf("invalid screen geometry %dx%d", c.Rows, c.Cols)
	}
	switch c.TimingProfile {
	case Aggressive, Standard, Conservative, "":
	default:
		return fmt.Errorf("unknown timing_profile %q", c.TimingProfile)
	}
	switch c.ForceMode {
	case ForceAuto, ForceTN3270E, ForceTN3270, ForceNVT, "":
	default:
		return fmt.Errorf("unknown force_mode %q", c.ForceMode)
	}
	if c.TimingProfile == "" {
		c.TimingProfile = Standard
	}
	if c.ForceMode == "" {
		c.ForceMode = ForceAuto
	}
	return nil
}

// Deadlines resolves the configured timeouts (explicit OverallTimeout/
// StepTimeout override the TimingProfile preset) into absolute deadlines
// measured from now.
func (c Config) Deadlines(now time.Time) (overall, step time.Time) {
	od, sd := c.TimingProfile.Timeouts()
	if c.OverallTimeout > 0 {
		od = c.OverallTimeout
	}
	if c.StepTimeout > 0 {
		sd = c.StepTimeout
	}
	return now.Add(od), now.Add(sd)
}
