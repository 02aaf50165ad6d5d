package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the single-file configuration schema. Nested sections map
// naturally onto the flag namespace.
type FileConfig struct {
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	Out      string `yaml:"out" json:"out"`
	Output   string `yaml:"output" json:"output"`

	Window struct {
		UpperBound int `yaml:"upperBound" json:"upperBound"`
		Step       int `yaml:"step" json:"step"`
		Size       int `yaml:"size" json:"size"`
	} `yaml:"window" json:"window"`

	Retry struct {
		Pause    time.Duration `yaml:"pause" json:"pause"`
		Backoff  bool          `yaml:"backoff" json:"backoff"`
		MaxPause time.Duration `yaml:"maxPause" json:"maxPause"`
	} `yaml:"retry" json:"retry"`

	Exclude []string `yaml:"exclude" json:"exclude"`

	HTTP struct {
		Timeout   time.Duration `yaml:"timeout" json:"timeout"`
		UserAgent string        `yaml:"userAgent" json:"userAgent"`
	} `yaml:"http" json:"http"`

	Cache struct {
		Dir    string        `yaml:"dir" json:"dir"`
		MaxAge time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear  bool          `yaml:"clear" json:"clear"`
	} `yaml:"cache" json:"cache"`

	DryRun  bool `yaml:"dryRun" json:"dryRun"`
	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig, choosing the parser by
// extension and falling back to trying both.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if yerr := yaml.Unmarshal(b, &fc); yerr != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", yerr, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays file values into cfg for fields still at their
// flag defaults, so explicit flags win over the file and the file wins over
// built-in defaults.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}

	if cfg.Endpoint == "" || cfg.Endpoint == DefaultEndpoint {
		if fc.Endpoint != "" {
			cfg.Endpoint = fc.Endpoint
		}
	}
	if cfg.OutDir == "" || cfg.OutDir == DefaultOutDir {
		if fc.Out != "" {
			cfg.OutDir = fc.Out
		}
	}
	if cfg.OutputPath == "" && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}

	if cfg.UpperBound == DefaultUpperBound && fc.Window.UpperBound > 0 {
		cfg.UpperBound = fc.Window.UpperBound
	}
	if cfg.Step == DefaultStep && fc.Window.Step > 0 {
		cfg.Step = fc.Window.Step
	}
	if cfg.WindowSize == DefaultWindowSize && fc.Window.Size > 0 {
		cfg.WindowSize = fc.Window.Size
	}

	if cfg.Pause == DefaultPause && fc.Retry.Pause > 0 {
		cfg.Pause = fc.Retry.Pause
	}
	if !cfg.Backoff && fc.Retry.Backoff {
		cfg.Backoff = true
	}
	if cfg.MaxPause == 0 && fc.Retry.MaxPause > 0 {
		cfg.MaxPause = fc.Retry.MaxPause
	}

	if len(cfg.Exclusions) == 0 && len(fc.Exclude) > 0 {
		cfg.Exclusions = fc.Exclude
	}

	if cfg.RequestTimeout == DefaultRequestTimeout && fc.HTTP.Timeout > 0 {
		cfg.RequestTimeout = fc.HTTP.Timeout
	}
	if (cfg.UserAgent == "" || cfg.UserAgent == DefaultUserAgent) && fc.HTTP.UserAgent != "" {
		cfg.UserAgent = fc.HTTP.UserAgent
	}

	if cfg.CacheDir == "" && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}

	if !cfg.DryRun && fc.DryRun {
		cfg.DryRun = true
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}
