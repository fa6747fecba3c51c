package flagparse

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-gunzip/pkg/buildinfo"
)

// cliFlags holds pointers to all possible command-line flags.
// A nil pointer means the flag is not registered for the current command.
type cliFlags struct {
	// Global
	LogLevel *string
	DryRun   *bool
	Metrics  *bool

	// Shared: Extract / Init
	Dir               *string
	EnvFile           *string
	DeleteSource      *bool
	OverwriteBehavior *string
	Decoder           *string
	FailFast          *bool
	BufferSizeKB      *int
	ReadAheadBlocks   *int
	PreExtractHooks   *string
	PostExtractHooks  *string

	// Init specific
	Force *bool
}

func registerGlobalFlags(fs *flag.FlagSet, f *cliFlags) {
	f.LogLevel = fs.String("log-level", "info", "Set the logging level: 'debug', 'notice', 'info', 'warn', 'error'.")
	f.DryRun = fs.Bool("dry-run", false, "Show what would be done without making any changes.")
	f.Metrics = fs.Bool("metrics", false, "Enable archive and byte counters with a summary at the end of the run.")
}

func registerExtractSettingFlags(fs *flag.FlagSet, f *cliFlags) {
	f.Dir = fs.String("dir", "", "Directory containing the .gz archives. Falls back to $PGL_GUNZIP_DIR, then ~/Desktop/XenaDownloads.")
	f.EnvFile = fs.String("env-file", ".env", "Optional dotenv file read for PGL_GUNZIP_* variables.")
	f.DeleteSource = fs.Bool("delete-source", false, "Delete each archive after it was extracted successfully.")
	f.OverwriteBehavior = fs.String("overwrite", "always", "Overwrite behavior for existing outputs: 'always', 'never', 'if-newer'.")
	f.Decoder = fs.String("decoder", "pgzip", "Gzip decoder: 'pgzip' (read-ahead) or 'gzip' (single goroutine).")
	f.FailFast = fs.Bool("fail-fast", true, "Stop on the first failed archive. Set to false to attempt every archive and report all failures.")
	f.BufferSizeKB = fs.Int("buffer-size-kb", 0, "Size of the copy buffer in kilobytes.")
	f.ReadAheadBlocks = fs.Int("read-ahead-blocks", 0, "Number of 1MB blocks the pgzip decoder decompresses ahead.")
	f.PreExtractHooks = fs.String("pre-extract-hooks", "", "Comma-separated list of commands to run before extraction.")
	f.PostExtractHooks = fs.String("post-extract-hooks", "", "Comma-separated list of commands to run after extraction.")
}

func registerInitFlags(fs *flag.FlagSet, f *cliFlags) {
	// Init supports all extract settings (to generate config) plus 'force'.
	registerExtractSettingFlags(fs, f)
	f.Force = fs.Bool("force", false, "Overwrite an existing configuration file.")
}

// Parse parses the provided arguments (usually os.Args[1:]) and returns the command and flag map.
func Parse(args []string) (Command, map[string]any, error) {
	if len(args) == 0 {
		fs := flag.NewFlagSet("main", flag.ContinueOnError)
		printTopLevelUsage(fs)
		return None, nil, nil
	}

	cmdStr := strings.ToLower(args[0])

	if cmdStr == "help" || cmdStr == "-h" || cmdStr == "-help" || cmdStr == "--help" {
		fs := flag.NewFlagSet("main", flag.ContinueOnError)
		printTopLevelUsage(fs)
		return None, nil, nil
	}

	f := &cliFlags{}

	command, err := ParseCommand(cmdStr)
	if err != nil {
		return None, nil, err
	}

	switch command {
	case Extract:
		fs := flag.NewFlagSet(command.String(), flag.ContinueOnError)
		registerGlobalFlags(fs, f)
		registerExtractSettingFlags(fs, f)

		fs.Usage = func() {
			printSubcommandUsage(command, "Extract every .gz archive in the directory.", fs)
		}

		if err := fs.Parse(args[1:]); err != nil {
			return command, nil, err
		}
		flagMap, err := flagsToMap(fs, f)
		return command, flagMap, err

	case Init:
		fs := flag.NewFlagSet(command.String(), flag.ContinueOnError)
		registerGlobalFlags(fs, f)
		registerInitFlags(fs, f)

		fs.Usage = func() {
			printSubcommandUsage(command, "Write a default configuration file into the directory.", fs)
		}

		if err := fs.Parse(args[1:]); err != nil {
			return command, nil, err
		}
		flagMap, err := flagsToMap(fs, f)
		return command, flagMap, err

	case Version:
		return command, nil, nil

	default:
		return None, nil, fmt.Errorf("unknown command: %s", args[0])
	}
}

func flagsToMap(fs *flag.FlagSet, f *cliFlags) (map[string]any, error) {
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	// Only flags explicitly set by the user end up in the map, so they
	// selectively override the lower configuration layers.
	usedFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { usedFlags[f.Name] = true })

	flagMap := make(map[string]any)

	addIfUsed(flagMap, usedFlags, "log-level", f.LogLevel)
	addIfUsed(flagMap, usedFlags, "dry-run", f.DryRun)
	addIfUsed(flagMap, usedFlags, "metrics", f.Metrics)

	addIfUsed(flagMap, usedFlags, "dir", f.Dir)
	addIfUsed(flagMap, usedFlags, "env-file", f.EnvFile)
	addIfUsed(flagMap, usedFlags, "delete-source", f.DeleteSource)
	addIfUsed(flagMap, usedFlags, "overwrite", f.OverwriteBehavior)
	addIfUsed(flagMap, usedFlags, "decoder", f.Decoder)
	addIfUsed(flagMap, usedFlags, "fail-fast", f.FailFast)
	addIfUsed(flagMap, usedFlags, "buffer-size-kb", f.BufferSizeKB)
	addIfUsed(flagMap, usedFlags, "read-ahead-blocks", f.ReadAheadBlocks)

	addIfUsed(flagMap, usedFlags, "force", f.Force)

	addParsedIfUsed(flagMap, usedFlags, "pre-extract-hooks", f.PreExtractHooks, ParseCmdList)
	addParsedIfUsed(flagMap, usedFlags, "post-extract-hooks", f.PostExtractHooks, ParseCmdList)

	return flagMap, nil
}

// addIfUsed adds the value of ptr to flagMap if ptr is not nil and the flag was set.
func addIfUsed[T any](flagMap map[string]any, usedFlags map[string]bool, name string, ptr *T) {
	if ptr != nil && usedFlags[name] {
		flagMap[name] = *ptr
	}
}

// addParsedIfUsed adds the parsed value of ptr to flagMap if ptr is not nil and the flag was set.
func addParsedIfUsed(flagMap map[string]any, usedFlags map[string]bool, name string, ptr *string, parser func(string) []string) {
	if ptr != nil && usedFlags[name] {
		flagMap[name] = parser(*ptr)
	}
}

func printTopLevelUsage(fs *flag.FlagSet) {
	execName := filepath.Base(os.Args[0])
	fmt.Fprintf(fs.Output(), "%s(%s) ", buildinfo.Name, buildinfo.Version)
	fmt.Fprintf(fs.Output(), "Batch extractor for directories of .gz downloads.\n\n")
	fmt.Fprintf(fs.Output(), "Usage: %s <command> [flags]\n\n", execName)
	fmt.Fprintf(fs.Output(), "Commands:\n")
	fmt.Fprintf(fs.Output(), "  extract     Extract every .gz archive in a directory\n")
	fmt.Fprintf(fs.Output(), "  init        Write a default configuration file\n")
	fmt.Fprintf(fs.Output(), "  version     Print the application version\n")
	fmt.Fprintf(fs.Output(), "\nRun '%s <command> -help' for more information on a command.\n", execName)
}

func printSubcommandUsage(command Command, desc string, fs *flag.FlagSet) {
	execName := filepath.Base(os.Args[0])
	fmt.Fprintf(fs.Output(), "%s(%s) ", buildinfo.Name, buildinfo.Version)
	fmt.Fprintf(fs.Output(), "Batch extractor for directories of .gz downloads.\n\n")
	fmt.Fprintf(fs.Output(), "Usage of the %s command: %s %s [flags]\n\n", command, execName, command)
	fmt.Fprintf(fs.Output(), "%s\n\n", desc)
	fmt.Fprintf(fs.Output(), "Flags:\n")
	fs.PrintDefaults()
}

// ParseCmdList parses a comma-separated list of shell-like commands. Single
// and double quotes group items containing commas. Quotes and backslash
// escapes are preserved for the shell to interpret.
func ParseCmdList(s string) []string {
	var list []string
	var current strings.Builder
	var quoteChar rune

	appendItem := func() {
		trimmed := strings.TrimSpace(current.String())
		if trimmed != "" {
			list = append(list, trimmed)
		}
		current.Reset()
	}

	var isEscaped bool
	for _, r := range s {
		if isEscaped {
			current.WriteRune(r)
			isEscaped = false
			continue
		}

		switch {
		case r == '\\':
			isEscaped = true
			current.WriteRune(r)
		case r == '\'' || r == '"':
			if quoteChar == 0 {
				quoteChar = r
			} else if quoteChar == r {
				quoteChar = 0
			}
			current.WriteRune(r)
		case r == ',' && quoteChar == 0:
			appendItem()
		default:
			current.WriteRune(r)
		}
	}
	appendItem()
	return list
}
