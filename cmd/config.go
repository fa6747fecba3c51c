package cmd

import (
	"fmt"

	"github.com/paulschiretz/pgl-gunzip/pkg/config"
)

// defaultEnvFile is read when -env-file is not given. Only an explicitly
// named file must exist.
const defaultEnvFile = ".env"

// loadEnvMap reads the PGL_GUNZIP_* variables from the process environment
// and the dotenv file selected by the flags.
func loadEnvMap(flagMap map[string]any) (map[string]any, error) {
	envFile := defaultEnvFile
	required := false
	if f, ok := flagMap["env-file"].(string); ok {
		envFile = f
		required = true
	}
	envMap, err := config.LoadEnv(envFile, required)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	return envMap, nil
}

// loadRunConfig layers defaults, the directory's config file, the
// environment and the flags, in that order of precedence.
func loadRunConfig(flagMap map[string]any) (config.Config, error) {
	envMap, err := loadEnvMap(flagMap)
	if err != nil {
		return config.Config{}, err
	}

	dir := config.ResolveDirectory(flagMap, envMap)

	// Load config from the directory, or use defaults if not found.
	loadedConfig, err := config.Load(dir)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load configuration from directory: %w", err)
	}

	runConfig := config.MergeConfigWithFlags(loadedConfig, envMap)
	runConfig = config.MergeConfigWithFlags(runConfig, flagMap)
	return runConfig, nil
}
