package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// HTTP server configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Analysis configuration
	WorkerCount          int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of concurrent analysis workers"`
	FetchTimeout         int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Page fetch timeout in seconds"`
	AnthropicAPIKey      string `long:"anthropic-api-key" env:"ANTHROPIC_API_KEY" description:"Anthropic API key (required)" required:"true"`
	AnalyzerSettingsFile string `long:"analyzer-settings" env:"ANALYZER_SETTINGS" default:"./analyzer.yml" description:"Analyzer settings YAML file (optional)"`

	// Persistence configuration
	ProjectDir string `long:"project-dir" env:"PROJECT_DIR" default:"./results" description:"Directory for saved result files"`
	AutoSave   bool   `long:"auto-save" env:"AUTO_SAVE" description:"Automatically save completed results to the project directory"`
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./urldigest.db" description:"SQLite database path for the result archive"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"URL Digest/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Port:                 raw.Port,
		APIAccessKey:         raw.APIAccessKey,
		WorkerCount:          raw.WorkerCount,
		FetchTimeout:         raw.FetchTimeout,
		AnthropicAPIKey:      raw.AnthropicAPIKey,
		AnalyzerSettingsFile: raw.AnalyzerSettingsFile,
		ProjectDir:           raw.ProjectDir,
		AutoSave:             raw.AutoSave,
		DBPath:               raw.DBPath,
		UserAgent:            raw.UserAgent,
		Timezone:             raw.Timezone,
		Debug:                raw.Debug,
		Version:              GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
