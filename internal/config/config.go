// Package config provides unified configuration loading for dasstrial.
// It supports loading from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/dasstrial/internal/constants"
	"github.com/nvandessel/dasstrial/internal/models"
	"github.com/nvandessel/dasstrial/internal/simulation"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the project config file inside .dasstrial.
const FileName = "config.yaml"

// Config contains all dasstrial configuration settings.
type Config struct {
	// Simulation contains the trial parameters.
	Simulation SimulationSettings `json:"simulation" yaml:"simulation"`

	// Output controls where tables and charts are written.
	Output OutputConfig `json:"output" yaml:"output"`

	// Render contains chart settings.
	Render RenderConfig `json:"render" yaml:"render"`

	// Logging contains settings for operational and trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SimulationSettings holds the simulated trial parameters.
type SimulationSettings struct {
	ParticipantsPerGroup int     `json:"participants_per_group" yaml:"participants_per_group"`
	Seed                 uint64  `json:"seed" yaml:"seed"`
	TreatmentEffect      float64 `json:"treatment_effect" yaml:"treatment_effect"`

	// ResponseWeights are the probabilities of item values 0..3.
	ResponseWeights []float64 `json:"response_weights" yaml:"response_weights"`

	// Timepoints are timepoint labels in chronological order.
	Timepoints []string `json:"timepoints" yaml:"timepoints"`
}

// OutputConfig names the output files. Relative file names are resolved
// against Dir.
type OutputConfig struct {
	Dir       string `json:"dir" yaml:"dir"`
	WideFile  string `json:"wide_file" yaml:"wide_file"`
	LongFile  string `json:"long_file" yaml:"long_file"`
	ArrowFile string `json:"arrow_file,omitempty" yaml:"arrow_file"`
	ChartFile string `json:"chart_file" yaml:"chart_file"`

	// Archive stores each run in .dasstrial/runs.db.
	Archive bool `json:"archive" yaml:"archive"`
}

// RenderConfig configures the trajectory chart page.
type RenderConfig struct {
	Title string `json:"title" yaml:"title"`
}

// LoggingConfig configures dasstrial's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables stage tracing to .dasstrial/pipeline.jsonl.
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with the standard trial parameters.
func Default() *Config {
	tps := make([]string, 0, len(models.AllTimepoints()))
	for _, tp := range models.AllTimepoints() {
		tps = append(tps, tp.String())
	}
	return &Config{
		Simulation: SimulationSettings{
			ParticipantsPerGroup: constants.DefaultParticipantsPerGroup,
			Seed:                 constants.DefaultSeed,
			TreatmentEffect:      constants.DefaultTreatmentEffect,
			ResponseWeights:      constants.DefaultResponseWeights(),
			Timepoints:           tps,
		},
		Output: OutputConfig{
			Dir:       constants.DefaultOutputDir,
			WideFile:  constants.DefaultWideFile,
			LongFile:  constants.DefaultLongFile,
			ChartFile: constants.DefaultChartFile,
		},
		Render: RenderConfig{
			Title: constants.DefaultChartTitle,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the project config path under root.
func DefaultPath(root string) string {
	return filepath.Join(root, constants.DataDirName, FileName)
}

// Load loads configuration and applies environment variable overrides.
// Order: defaults -> path (if non-empty) -> environment variables.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Keys missing
// from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Output.Dir = expandEnvVars(config.Output.Dir)

	return config, nil
}

// Marshal returns the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// SimulationConfig converts the simulation settings into a simulation.Config.
func (c *Config) SimulationConfig() (simulation.Config, error) {
	tps := make([]models.Timepoint, 0, len(c.Simulation.Timepoints))
	for _, label := range c.Simulation.Timepoints {
		tp, err := models.ParseTimepoint(label)
		if err != nil {
			return simulation.Config{}, &models.ConfigurationError{
				Field:  "simulation.timepoints",
				Reason: fmt.Sprintf("unknown timepoint %q", label),
			}
		}
		tps = append(tps, tp)
	}
	return simulation.Config{
		ParticipantsPerGroup: c.Simulation.ParticipantsPerGroup,
		Timepoints:           tps,
		Weights:              append([]float64(nil), c.Simulation.ResponseWeights...),
		TreatmentEffect:      c.Simulation.TreatmentEffect,
		Seed:                 c.Simulation.Seed,
	}, nil
}

// Validate checks that the configuration is valid. Errors are
// *models.ConfigurationError with the dotted YAML key as Field.
func (c *Config) Validate() error {
	simCfg, err := c.SimulationConfig()
	if err != nil {
		return err
	}
	if err := simCfg.Validate(); err != nil {
		var ce *models.ConfigurationError
		if errors.As(err, &ce) {
			return &models.ConfigurationError{Field: "simulation." + ce.Field, Reason: ce.Reason}
		}
		return err
	}

	if c.Output.Dir == "" {
		return &models.ConfigurationError{Field: "output.dir", Reason: "must not be empty"}
	}
	if c.Output.WideFile == "" {
		return &models.ConfigurationError{Field: "output.wide_file", Reason: "must not be empty"}
	}
	if c.Output.LongFile == "" {
		return &models.ConfigurationError{Field: "output.long_file", Reason: "must not be empty"}
	}
	if c.Output.ArrowFile != "" && filepath.Ext(c.Output.ArrowFile) != ".arrow" {
		return &models.ConfigurationError{Field: "output.arrow_file", Reason: "must end in .arrow"}
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return &models.ConfigurationError{
			Field:  "logging.level",
			Reason: fmt.Sprintf("invalid log level %q (valid: info, debug, trace, or empty for default)", c.Logging.Level),
		}
	}

	return nil
}

// WidePath returns the wide table path.
func (c *Config) WidePath() string { return c.resolve(c.Output.WideFile) }

// LongPath returns the long CSV path.
func (c *Config) LongPath() string { return c.resolve(c.Output.LongFile) }

// ArrowPath returns the Arrow IPC path, or "" when Arrow output is disabled.
func (c *Config) ArrowPath() string {
	if c.Output.ArrowFile == "" {
		return ""
	}
	return c.resolve(c.Output.ArrowFile)
}

// ChartPath returns the chart page path, or "" when no chart is configured.
func (c *Config) ChartPath() string {
	if c.Output.ChartFile == "" {
		return ""
	}
	return c.resolve(c.Output.ChartFile)
}

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Output.Dir, name)
}

// applyEnvOverrides applies environment variable overrides to the config.
// Values that do not parse are ignored.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("DASSTRIAL_PARTICIPANTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.ParticipantsPerGroup = n
		}
	}

	if v := os.Getenv("DASSTRIAL_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Simulation.Seed = n
		}
	}

	if v := os.Getenv("DASSTRIAL_EFFECT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.TreatmentEffect = f
		}
	}

	if v := os.Getenv("DASSTRIAL_OUTPUT_DIR"); v != "" {
		config.Output.Dir = v
	}

	if v := os.Getenv("DASSTRIAL_ARCHIVE"); v != "" {
		config.Output.Archive = v == "true" || v == "1"
	}

	if v := os.Getenv("DASSTRIAL_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
