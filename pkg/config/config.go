package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-gunzip/pkg/buildinfo"
	"github.com/paulschiretz/pgl-gunzip/pkg/gunzip"
	"github.com/paulschiretz/pgl-gunzip/pkg/plog"
	"github.com/paulschiretz/pgl-gunzip/pkg/util"
)

// ConfigFileName is the name of the configuration file inside the extraction directory.
const ConfigFileName = "pgl-gunzip.config.json"

// DefaultDirectory is used when neither -dir nor PGL_GUNZIP_DIR is set.
const DefaultDirectory = "~/Desktop/XenaDownloads"

type ExtractConfig struct {
	// DeleteSource removes each archive after it was extracted successfully.
	DeleteSource bool   `json:"deleteSource"`
	Overwrite    string `json:"overwrite"`
	Decoder      string `json:"decoder"`
}

type HooksConfig struct {
	// Note: omitempty is intentionally not used so that the hook fields
	// appear in the generated config file for better discoverability.
	// SECURITY: These commands are executed as provided. Ensure they are from a trusted source.
	PreExtract  []string `json:"preExtract"`
	PostExtract []string `json:"postExtract"`
}

type EnginePerformanceConfig struct {
	BufferSizeKB    int `json:"bufferSizeKB"`
	ReadAheadBlocks int `json:"readAheadBlocks"`
}

type EngineConfig struct {
	Metrics     bool                    `json:"metrics"`
	FailFast    bool                    `json:"failFast"`
	Performance EnginePerformanceConfig `json:"performance"`
}

type RuntimeConfig struct {
	DryRun bool
}

type Config struct {
	Version   string        `json:"version"`
	Directory string        `json:"-"` // Never added to config file
	Runtime   RuntimeConfig `json:"-"` // Never added to config file
	LogLevel  string        `json:"logLevel"`
	Extract   ExtractConfig `json:"extract"`
	Engine    EngineConfig  `json:"engine"`
	Hooks     HooksConfig   `json:"hooks"`
}

// NewDefault creates and returns a Config struct with sensible default values.
func NewDefault() Config {
	return Config{
		Version:   buildinfo.Version,
		Directory: "",
		LogLevel:  "info",
		Extract: ExtractConfig{
			DeleteSource: false, // Keep archives unless asked otherwise.
			Overwrite:    gunzip.OverwriteAlways.String(),
			Decoder:      gunzip.PGzip.String(),
		},
		Engine: EngineConfig{
			Metrics:  true,
			FailFast: true,
			Performance: EnginePerformanceConfig{
				BufferSizeKB:    256, // Keep it between 64KB-4MB
				ReadAheadBlocks: 4,   // 4 x 1MB blocks decompressed ahead by pgzip.
			},
		},
		Hooks: HooksConfig{
			PreExtract:  []string{},
			PostExtract: []string{},
		},
	}
}

// Load reads "pgl-gunzip.config.json" from dir on top of the defaults.
// A missing file is not an error and yields the defaults.
func Load(dir string) (Config, error) {
	absDir, err := util.ExpandedAbsPath(dir)
	if err != nil {
		return Config{}, fmt.Errorf("could not determine absolute path for directory %s: %w", dir, err)
	}

	configPath := filepath.Join(absDir, ConfigFileName)

	file, err := os.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := NewDefault()
			cfg.Directory = absDir
			return cfg, nil
		}
		return Config{}, fmt.Errorf("error opening config file %s: %w", configPath, err)
	}
	defer file.Close()

	plog.Info("Loading configuration", "path", configPath)
	// Start with default values so fields missing from the file keep their defaults.
	config := NewDefault()
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return Config{}, fmt.Errorf("error parsing config file %s: %w", configPath, err)
	}
	config.Directory = absDir

	if config.Version != buildinfo.Version {
		config.Version = buildinfo.Version
	}
	return config, nil
}

// Generate creates or overwrites pgl-gunzip.config.json in the config's directory.
func Generate(configToGenerate Config) error {
	configPath := filepath.Join(configToGenerate.Directory, ConfigFileName)
	jsonData, err := json.MarshalIndent(configToGenerate, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config to JSON: %w", err)
	}

	if err := os.WriteFile(configPath, jsonData, util.UserWritableFilePerms); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	plog.Info("Successfully saved config file", "path", configPath)
	return nil
}

// Validate checks the configuration for logical errors and canonicalizes
// the directory path.
func (c *Config) Validate() error {
	if c.Directory == "" {
		return fmt.Errorf("directory cannot be empty")
	}

	var err error
	c.Directory, err = util.ExpandedAbsPath(c.Directory)
	if err != nil {
		return fmt.Errorf("could not expand directory: %w", err)
	}

	if _, err := gunzip.ParseOverwriteBehavior(c.Extract.Overwrite); err != nil {
		return fmt.Errorf("extract.overwrite: %w", err)
	}
	if _, err := gunzip.ParseDecoder(c.Extract.Decoder); err != nil {
		return fmt.Errorf("extract.decoder: %w", err)
	}

	if c.Engine.Performance.BufferSizeKB <= 0 {
		return fmt.Errorf("engine.performance.bufferSizeKB must be greater than 0")
	}
	if c.Engine.Performance.BufferSizeKB > gunzip.MaxBufferSizeKB {
		return fmt.Errorf("engine.performance.bufferSizeKB must not exceed %d", gunzip.MaxBufferSizeKB)
	}
	if c.Engine.Performance.ReadAheadBlocks < 1 {
		return fmt.Errorf("engine.performance.readAheadBlocks must be at least 1")
	}
	return nil
}

// LogSummary prints a user-friendly summary of the configuration.
func (c *Config) LogSummary() {
	logArgs := []any{
		"directory", c.Directory,
		"log_level", c.LogLevel,
		"dry_run", c.Runtime.DryRun,
		"delete_source", c.Extract.DeleteSource,
		"overwrite", c.Extract.Overwrite,
		"decoder", c.Extract.Decoder,
		"fail_fast", c.Engine.FailFast,
		"metrics", c.Engine.Metrics,
		"buffer_size_kb", c.Engine.Performance.BufferSizeKB,
	}
	if c.Extract.Decoder == gunzip.PGzip.String() {
		logArgs = append(logArgs, "read_ahead_blocks", c.Engine.Performance.ReadAheadBlocks)
	}
	if len(c.Hooks.PreExtract) > 0 {
		logArgs = append(logArgs, "pre_extract_hooks", strings.Join(c.Hooks.PreExtract, "; "))
	}
	if len(c.Hooks.PostExtract) > 0 {
		logArgs = append(logArgs, "post_extract_hooks", strings.Join(c.Hooks.PostExtract, "; "))
	}
	plog.Info("Configuration loaded", logArgs...)
}

// ResolveDirectory picks the extraction directory from the flag map, then
// the environment map, then DefaultDirectory.
func ResolveDirectory(flagMap, envMap map[string]any) string {
	if dir, ok := flagMap["dir"].(string); ok && dir != "" {
		return dir
	}
	if dir, ok := envMap["dir"].(string); ok && dir != "" {
		return dir
	}
	return DefaultDirectory
}

// MergeConfigWithFlags overlays the values of setFlags on top of a base
// configuration. setFlags holds only explicitly provided values, either from
// the command line or from LoadEnv.
func MergeConfigWithFlags(base Config, setFlags map[string]any) Config {
	merged := base

	for name, value := range setFlags {
		switch name {
		case "dir":
			merged.Directory = value.(string)
		case "log-level":
			merged.LogLevel = value.(string)
		case "dry-run":
			merged.Runtime.DryRun = value.(bool)
		case "metrics":
			merged.Engine.Metrics = value.(bool)
		case "fail-fast":
			merged.Engine.FailFast = value.(bool)
		case "delete-source":
			merged.Extract.DeleteSource = value.(bool)
		case "overwrite":
			merged.Extract.Overwrite = value.(string)
		case "decoder":
			merged.Extract.Decoder = value.(string)
		case "buffer-size-kb":
			merged.Engine.Performance.BufferSizeKB = value.(int)
		case "read-ahead-blocks":
			merged.Engine.Performance.ReadAheadBlocks = value.(int)
		case "pre-extract-hooks":
			merged.Hooks.PreExtract = value.([]string)
		case "post-extract-hooks":
			merged.Hooks.PostExtract = value.([]string)
		case "env-file", "force":
			// Consumed by the command, not part of the configuration.
		default:
			plog.Debug("unhandled flag in MergeConfigWithFlags", "flag", name)
		}
	}
	return merged
}
