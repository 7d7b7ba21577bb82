package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the text spotter configuration.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Image    ImageConfig    `yaml:"image"`
	Detector DetectorConfig `yaml:"detector"`
	OCR      OCRConfig      `yaml:"ocr"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Matcher  MatcherConfig  `yaml:"matcher"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Env   string `yaml:"env"`   // local, dev, prod (default: local)
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// ImageConfig controls how input images are normalized on load.
type ImageConfig struct {
	ResizeWidth  int `yaml:"resize_width"` // 0 = keep original size
	ResizeHeight int `yaml:"resize_height"`
}

// DetectorConfig selects and tunes the region detector.
type DetectorConfig struct {
	Kind          string   `yaml:"kind"`  // edge, tesseract (default: edge)
	Level         string   `yaml:"level"` // tesseract only: block, paragraph, line, word
	MinConfidence *float64 `yaml:"min_confidence"` // default 0.5; 0 keeps every window
	NMSThreshold  *float64 `yaml:"nms_threshold"`  // default 0.4; 0 disables suppression
	InputWidth    int      `yaml:"input_width"`
	InputHeight   int      `yaml:"input_height"`
	Merge         bool     `yaml:"merge"`
}

// OCRConfig holds the recognition engine settings.
type OCRConfig struct {
	Language       string  `yaml:"language"`
	TessdataPrefix string  `yaml:"tessdata_prefix"`
	PageSegMode    int     `yaml:"page_seg_mode"`
	Preprocess     bool    `yaml:"preprocess"`
	Invert         bool    `yaml:"invert"`
	BlurSigma      float64 `yaml:"blur_sigma"`
}

// PipelineConfig holds detect-read pipeline settings.
type PipelineConfig struct {
	Mode          string   `yaml:"mode"`    // sequential, concurrent (default: concurrent)
	Workers       int      `yaml:"workers"` // engine pool size (default: 4)
	Tolerance     int      `yaml:"tolerance"`
	MinConfidence *float64 `yaml:"min_confidence"` // default 0.5; 0 keeps every word
}

// MatcherConfig holds phrase search settings.
type MatcherConfig struct {
	MaxAssignments int    `yaml:"max_assignments"`
	OnLimit        string `yaml:"on_limit"` // best_effort, reject (default: best_effort)
	CaseSensitive  bool   `yaml:"case_sensitive"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	ShutdownSec     int    `yaml:"shutdown_timeout_sec"`
	MaxBodyMB       int    `yaml:"max_body_mb"`
}

// Load reads configuration from a YAML file. An empty path yields the
// defaults. ${VAR} and ${VAR:-default} are expanded before parsing.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}

		data = expandEnvVars(data)

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none)
// into the process environment without overriding variables already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Default returns a fully defaulted configuration.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Logging.Env == "" {
		c.Logging.Env = "local"
	}
	if c.Detector.Kind == "" {
		c.Detector.Kind = "edge"
	}
	if c.Detector.Level == "" {
		c.Detector.Level = "line"
	}
	if c.Detector.MinConfidence == nil {
		c.Detector.MinConfidence = Float(0.5)
	}
	if c.Detector.NMSThreshold == nil {
		c.Detector.NMSThreshold = Float(0.4)
	}
	if c.OCR.Language == "" {
		c.OCR.Language = "eng"
	}
	if c.Pipeline.Mode == "" {
		c.Pipeline.Mode = "concurrent"
	}
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 4
	}
	if c.Pipeline.MinConfidence == nil {
		c.Pipeline.MinConfidence = Float(0.5)
	}
	if c.Matcher.MaxAssignments <= 0 {
		c.Matcher.MaxAssignments = 100000
	}
	if c.Matcher.OnLimit == "" {
		c.Matcher.OnLimit = "best_effort"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyMB <= 0 {
		c.HTTP.MaxBodyMB = 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Logging.Env {
	case "local", "dev", "prod":
	default:
		return fmt.Errorf("logging.env must be local, dev, or prod, got %q", c.Logging.Env)
	}
	if (c.Image.ResizeWidth > 0) != (c.Image.ResizeHeight > 0) {
		return fmt.Errorf("image.resize_width and image.resize_height must both be set or both be 0")
	}
	if c.Image.ResizeWidth < 0 || c.Image.ResizeHeight < 0 {
		return fmt.Errorf("image resize dimensions must not be negative")
	}
	switch c.Detector.Kind {
	case "edge", "tesseract":
	default:
		return fmt.Errorf("detector.kind must be \"edge\" or \"tesseract\", got %q", c.Detector.Kind)
	}
	if err := unitInterval("detector.min_confidence", c.Detector.MinConfidence); err != nil {
		return err
	}
	if err := unitInterval("detector.nms_threshold", c.Detector.NMSThreshold); err != nil {
		return err
	}
	if c.Detector.InputWidth < 0 || c.Detector.InputHeight < 0 {
		return fmt.Errorf("detector input dimensions must not be negative")
	}
	if c.OCR.BlurSigma < 0 {
		return fmt.Errorf("ocr.blur_sigma must not be negative, got %v", c.OCR.BlurSigma)
	}
	switch strings.ToLower(c.Pipeline.Mode) {
	case "sequential", "concurrent":
	default:
		return fmt.Errorf("pipeline.mode must be \"sequential\" or \"concurrent\", got %q", c.Pipeline.Mode)
	}
	if c.Pipeline.Tolerance < 0 {
		return fmt.Errorf("pipeline.tolerance must not be negative, got %d", c.Pipeline.Tolerance)
	}
	if err := unitInterval("pipeline.min_confidence", c.Pipeline.MinConfidence); err != nil {
		return err
	}
	switch c.Matcher.OnLimit {
	case "best_effort", "reject":
	default:
		return fmt.Errorf("matcher.on_limit must be \"best_effort\" or \"reject\", got %q", c.Matcher.OnLimit)
	}
	return nil
}

// Float returns a pointer to v, for setting optional fields in code.
func Float(v float64) *float64 {
	return &v
}

// FloatValue returns *p, or def when p is nil.
func FloatValue(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// unitInterval accepts a nil (unset) value.
func unitInterval(name string, p *float64) error {
	if p == nil {
		return nil
	}
	if v := *p; v < 0 || v > 1 {
		return fmt.Errorf("%s must be between 0 and 1, got %v", name, v)
	}
	return nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
