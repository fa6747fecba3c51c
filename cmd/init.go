package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paulschiretz/pgl-gunzip/pkg/buildinfo"
	"github.com/paulschiretz/pgl-gunzip/pkg/config"
	"github.com/paulschiretz/pgl-gunzip/pkg/lockfile"
	"github.com/paulschiretz/pgl-gunzip/pkg/plog"
	"github.com/paulschiretz/pgl-gunzip/pkg/preflight"
)

// RunInit handles the logic for the 'init' command. It writes the defaults,
// overlaid with the given flags, to the directory's configuration file.
func RunInit(ctx context.Context, flagMap map[string]any) error {
	envMap, err := loadEnvMap(flagMap)
	if err != nil {
		return err
	}

	baseConfig := config.NewDefault()
	baseConfig.Directory = config.ResolveDirectory(flagMap, envMap)

	// Create a config from defaults merged with user flags.
	runConfig := config.MergeConfigWithFlags(baseConfig, flagMap)

	// CRITICAL: Validate the config for the run
	if err := runConfig.Validate(); err != nil {
		return err
	}

	startTime := time.Now()

	// 1. Preflight Checks
	validator := preflight.NewValidator()
	pfPlan := &preflight.Plan{
		DirectoryAccessible: true,
		DirectoryWritable:   true,
		DryRun:              runConfig.Runtime.DryRun,
	}
	if err := validator.Run(ctx, runConfig.Directory, pfPlan); err != nil {
		return fmt.Errorf("initialization preflight failed: %w", err)
	}

	// 2. Confirm before replacing an existing file
	force := false
	if f, ok := flagMap["force"]; ok {
		force = f.(bool)
	}
	absConfigFilePath := filepath.Join(runConfig.Directory, config.ConfigFileName)
	if _, err := os.Stat(absConfigFilePath); err == nil && !force && !runConfig.Runtime.DryRun {
		fmt.Printf("WARNING: Configuration file already exists at %s.\n", absConfigFilePath)
		fmt.Printf("Continuing will overwrite it. All custom settings will be lost.\n")
		if !PromptForConfirmation("Are you sure you want to continue?", false) {
			plog.Info(buildinfo.Name + " init operation canceled.")
			return nil
		}
	}

	if runConfig.Runtime.DryRun {
		plog.Info("[DRY RUN] Would write configuration file", "path", absConfigFilePath)
		return nil
	}

	// 3. Acquire Lock
	appID := fmt.Sprintf("pgl-gunzip-init:%s", runConfig.Directory)
	lock, err := lockfile.Acquire(ctx, runConfig.Directory, appID)
	if err != nil {
		return fmt.Errorf("failed to acquire lock on directory: %w", err)
	}
	defer lock.Release()

	// 4. Generate Config
	if err := config.Generate(runConfig); err != nil {
		return fmt.Errorf("failed to generate config file: %w", err)
	}

	duration := time.Since(startTime).Round(time.Millisecond)
	plog.Info(buildinfo.Name+" directory successfully initialized.", "duration", duration)
	return nil
}

// PromptForConfirmation prompts the user for a yes/no response.
func PromptForConfirmation(prompt string, defaultYes bool) bool {
	suffix := "[y/N]"
	if defaultYes {
		suffix = "[Y/n]"
	}
	fmt.Printf("%s %s: ", prompt, suffix)

	var response string
	_, _ = fmt.Scanln(&response)
	response = strings.ToLower(strings.TrimSpace(response))

	if response == "" {
		return defaultYes
	}
	return response == "y" || response == "yes"
}
