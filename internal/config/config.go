// Package config loads and validates the typed parameter bundle that
// governs every other component of the geometric operating system: vector
// dimension and element type, working-folder layout, planner tuning, and
// logging verbosity.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"spock/internal/logging"
)

// NumericType names the element type backing every hypervector.
type NumericType string

const (
	Int8    NumericType = "int8"
	Int16   NumericType = "int16"
	Int32   NumericType = "int32"
	Uint8   NumericType = "uint8"
	Uint16  NumericType = "uint16"
	Uint32  NumericType = "uint32"
	Float32 NumericType = "float32"
	Float64 NumericType = "float64"
)

// VectorGeneration selects the random-vector sampling mode.
type VectorGeneration string

const (
	Gaussian VectorGeneration = "gaussian"
	Bipolar  VectorGeneration = "bipolar"
)

// LogLevel controls how much the categorized logger emits.
type LogLevel string

const (
	LogSilent  LogLevel = "silent"
	LogSummary LogLevel = "summary"
	LogFull    LogLevel = "full"
)

// PlateauStrategy selects what the planner does when gradient descent stalls.
type PlateauStrategy string

const (
	PlateauFail               PlateauStrategy = "fail"
	PlateauRandomRestart      PlateauStrategy = "random_restart"
	PlateauProceduralFallback PlateauStrategy = "procedural_fallback"
)

// Config is the typed parameter bundle described in spec.md §6.
type Config struct {
	Dimensions         int              `yaml:"dimensions"`
	NumericType        NumericType      `yaml:"numericType"`
	VectorGeneration   VectorGeneration `yaml:"vectorGeneration"`
	WorkingFolder      string           `yaml:"workingFolder"`
	TheoriesPath       string           `yaml:"theoriesPath"`
	LogLevel           LogLevel         `yaml:"logLevel"`
	TraceEnabled       bool             `yaml:"traceEnabled"`
	PlanningEpsilon    float64          `yaml:"planningEpsilon"`
	MaxPlanningSteps   int              `yaml:"maxPlanningSteps"`
	PlateauStrategy    PlateauStrategy  `yaml:"plateauStrategy"`
	CandidateLimit     int              `yaml:"candidateLimit"`
	MaxRecursion       int              `yaml:"maxRecursion"`
	RandomSeed         *uint32          `yaml:"randomSeed"`
	SymbolicCrossCheck bool             `yaml:"symbolicCrossCheck"`
}

// DefaultConfig returns the spec-mandated defaults (spec.md §6).
func DefaultConfig() *Config {
	return &Config{
		Dimensions:         512,
		NumericType:        Float32,
		VectorGeneration:   Gaussian,
		WorkingFolder:      ".spock",
		TheoriesPath:       "",
		LogLevel:           LogSummary,
		TraceEnabled:       true,
		PlanningEpsilon:    0.05,
		MaxPlanningSteps:   100,
		PlateauStrategy:    PlateauFail,
		CandidateLimit:     1000,
		MaxRecursion:       100,
		RandomSeed:         nil,
		SymbolicCrossCheck: true,
	}
}

// Load reads a YAML config file, falling back to defaults when it does not
// exist, then applies environment overrides. Environment values win over
// file values, which win over defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.BootDebug("loading config from %s", path)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				logging.BootError("failed to read config %s: %v", path, err)
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			logging.Boot("config file not found, using defaults: %s", path)
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			logging.BootError("failed to parse config %s: %v", path, err)
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.resolveDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logging.Boot("config loaded: dimensions=%d numericType=%s workingFolder=%s", cfg.Dimensions, cfg.NumericType, cfg.WorkingFolder)
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// applyEnvOverrides mirrors the teacher's env-override pattern: explicit
// environment variables beat YAML-file values loaded moments earlier, but
// are themselves beaten by whatever EngineOptions the caller sets afterward.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SPOCK_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Dimensions = n
		}
	}
	if v := os.Getenv("SPOCK_LOG_LEVEL"); v != "" {
		c.LogLevel = LogLevel(v)
	}
	if v := os.Getenv("SPOCK_WORKING_FOLDER"); v != "" {
		c.WorkingFolder = v
	}
	if v := os.Getenv("SPOCK_THEORIES_PATH"); v != "" {
		c.TheoriesPath = v
	}
	if v := os.Getenv("SPOCK_RANDOM_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			seed := uint32(n)
			c.RandomSeed = &seed
		}
	}
}

func (c *Config) resolveDerived() {
	if c.TheoriesPath == "" {
		c.TheoriesPath = filepath.Join(c.WorkingFolder, "theories")
	}
}

// Validate enforces the invariants spec.md §6/§7 require at engine start.
func (c *Config) Validate() error {
	if c.Dimensions < 64 || c.Dimensions&(c.Dimensions-1) != 0 {
		return fmt.Errorf("configuration: dimensions must be a power of two >= 64, got %d", c.Dimensions)
	}
	switch c.NumericType {
	case Int8, Int16, Int32, Uint8, Uint16, Uint32, Float32, Float64:
	default:
		return fmt.Errorf("configuration: unknown numericType %q", c.NumericType)
	}
	switch c.VectorGeneration {
	case Gaussian, Bipolar:
	default:
		return fmt.Errorf("configuration: unknown vectorGeneration %q", c.VectorGeneration)
	}
	switch c.LogLevel {
	case LogSilent, LogSummary, LogFull:
	default:
		return fmt.Errorf("configuration: unknown logLevel %q", c.LogLevel)
	}
	if c.PlanningEpsilon <= 0 || c.PlanningEpsilon >= 1 {
		return fmt.Errorf("configuration: planningEpsilon must be in (0,1), got %v", c.PlanningEpsilon)
	}
	if c.MaxPlanningSteps <= 0 {
		return fmt.Errorf("configuration: maxPlanningSteps must be positive, got %d", c.MaxPlanningSteps)
	}
	switch c.PlateauStrategy {
	case PlateauFail, PlateauRandomRestart, PlateauProceduralFallback:
	default:
		return fmt.Errorf("configuration: unknown plateauStrategy %q", c.PlateauStrategy)
	}
	if c.CandidateLimit <= 0 {
		return fmt.Errorf("configuration: candidateLimit must be positive, got %d", c.CandidateLimit)
	}
	if c.MaxRecursion <= 0 {
		return fmt.Errorf("configuration: maxRecursion must be positive, got %d", c.MaxRecursion)
	}
	return nil
}

// BytesPerElement returns the on-disk size of a single vector component,
// used to size the engine's truth.bin dump.
func (c *Config) BytesPerElement() int {
	switch c.NumericType {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64:
		return 8
	default:
		return 4
	}
}
