package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"

	"github.com/OFFIS-RIT/pulse/internal/metrics"
	"github.com/OFFIS-RIT/pulse/internal/storage"
	"github.com/OFFIS-RIT/pulse/internal/util"
	"github.com/OFFIS-RIT/pulse/pkg/analysis"
	"github.com/OFFIS-RIT/pulse/pkg/analysis/burst"
	"github.com/OFFIS-RIT/pulse/pkg/analysis/handoff"
	"github.com/OFFIS-RIT/pulse/pkg/analysis/influence"
	"github.com/OFFIS-RIT/pulse/pkg/analysis/milestone"
	"github.com/OFFIS-RIT/pulse/pkg/analysis/phase"
	"github.com/OFFIS-RIT/pulse/pkg/graph"
	"github.com/OFFIS-RIT/pulse/pkg/logger"
)

// FileEnv names the variable that points at an optional YAML config file.
const FileEnv = "PULSE_CONFIG"

// Config holds every tunable of a run. Values are layered: defaults, then
// the YAML file, then environment variables. Command line flags are
// applied on top by the caller.
type Config struct {
	Parallelism         int     `yaml:"parallelism" validate:"gte=1"`
	TemporalWindowHours float64 `yaml:"temporal_window_hours" validate:"gt=0"`
	OutputDir           string  `yaml:"output_dir"`

	// Burst fixes the burst parameters. Unset means adaptive.
	Burst     *burst.Params    `yaml:"burst"`
	Influence InfluenceConfig  `yaml:"influence"`
	Milestone milestone.Params `yaml:"milestone"`
	Phase     phase.Params     `yaml:"phase"`
	Handoff   handoff.Params   `yaml:"handoff"`

	Server ServerConfig     `yaml:"server"`
	S3     storage.S3Config `yaml:"s3"`
}

// InfluenceConfig holds the role classification thresholds.
type InfluenceConfig struct {
	InfluenceThreshold float64 `yaml:"influence_threshold" validate:"gte=0"`
	ActivityThreshold  int     `yaml:"activity_threshold" validate:"gte=0"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port   string `yaml:"port" validate:"required,numeric"`
	APIKey string `yaml:"-"`
}

var validate = validator.New()

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Parallelism:         1,
		TemporalWindowHours: graph.DefaultTemporalWindowHours,
		OutputDir:           "outputs",
		Influence: InfluenceConfig{
			InfluenceThreshold: influence.DefaultInfluenceThreshold,
			ActivityThreshold:  influence.DefaultActivityThreshold,
		},
		Milestone: milestone.DefaultParams(),
		Phase:     phase.DefaultParams(),
		Handoff:   handoff.DefaultParams(),
		Server:    ServerConfig{Port: "8080"},
	}
}

// Load builds the configuration from defaults, a YAML file and the
// environment. An empty path falls back to PULSE_CONFIG; without either no
// file is read.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = util.GetEnv(FileEnv)
	}
	if path != "" {
		if err := cfg.ReadFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ReadFile merges a YAML file into c. Keys missing from the file keep
// their current value.
func (c *Config) ReadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("Failed to read config file %s:\n%w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("Failed to parse config file %s:\n%w", path, err)
	}
	logger.Debug("[Config] Loaded config file", "path", path)
	return nil
}

// ApplyEnv overrides c with environment variables.
func (c *Config) ApplyEnv() {
	c.Parallelism = util.GetEnvInt("PULSE_PARALLELISM", c.Parallelism)
	c.OutputDir = util.GetEnvString("PULSE_OUTPUT_DIR", c.OutputDir)
	c.Server.Port = util.GetEnvString("PORT", c.Server.Port)
	c.Server.APIKey = util.GetEnvString("API_KEY", c.Server.APIKey)

	c.S3.Bucket = util.GetEnvString("AWS_BUCKET", c.S3.Bucket)
	c.S3.Region = util.GetEnvString("AWS_REGION", c.S3.Region)
	c.S3.Endpoint = util.GetEnvString("AWS_ENDPOINT", c.S3.Endpoint)
	c.S3.PublicEndpoint = util.GetEnvString("AWS_PUBLIC_ENDPOINT", c.S3.PublicEndpoint)
	c.S3.AccessKey = util.GetEnvString("AWS_ACCESS_KEY", c.S3.AccessKey)
	c.S3.SecretKey = util.GetEnvString("AWS_SECRET_KEY", c.S3.SecretKey)
}

// Validate checks the configuration. Fixed burst parameters that cannot
// match anything are dropped in favour of adaptive ones.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("Invalid configuration:\n%w", err)
	}
	if b := c.Burst; b != nil {
		if b.WindowHours <= 0 || b.MinEvents <= 0 || b.MinParticipants > b.MaxParticipants {
			logger.Warn("[Config] Ignoring invalid burst parameters, using adaptive ones", "params", *b)
			c.Burst = nil
		}
	}
	return nil
}

// AnalyzerParams converts the configuration for analysis.NewAnalyzer.
func (c Config) AnalyzerParams(m *metrics.Metrics) analysis.NewAnalyzerParams {
	return analysis.NewAnalyzerParams{
		TemporalWindowHours: c.TemporalWindowHours,
		Burst:               c.Burst,
		Influence: influence.NewMapperParams{
			InfluenceThreshold: c.Influence.InfluenceThreshold,
			ActivityThreshold:  c.Influence.ActivityThreshold,
		},
		Milestone:   c.Milestone,
		Phase:       c.Phase,
		Handoff:     c.Handoff,
		Parallelism: c.Parallelism,
		Metrics:     m,
	}
}
