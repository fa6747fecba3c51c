package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable the tool reads.
const EnvPrefix = "PGL_GUNZIP_"

type envKind int

const (
	envString envKind = iota
	envBool
	envInt
)

// envVars maps environment variable suffixes to their flag names.
var envVars = []struct {
	suffix string
	flag   string
	kind   envKind
}{
	{"DIR", "dir", envString},
	{"LOG_LEVEL", "log-level", envString},
	{"DELETE_SOURCE", "delete-source", envBool},
	{"OVERWRITE", "overwrite", envString},
	{"DECODER", "decoder", envString},
	{"FAIL_FAST", "fail-fast", envBool},
	{"METRICS", "metrics", envBool},
	{"BUFFER_SIZE_KB", "buffer-size-kb", envInt},
	{"READ_AHEAD_BLOCKS", "read-ahead-blocks", envInt},
}

// LoadEnv reads PGL_GUNZIP_* settings from the process environment and from
// the dotenv file at envFile. Process variables take precedence over the
// file. A missing file is only an error when required is set.
//
// The result uses flag names as keys so it can be applied with MergeConfigWithFlags.
func LoadEnv(envFile string, required bool) (map[string]any, error) {
	fileVars := map[string]string{}
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileVars = vars
		case os.IsNotExist(err) && !required:
		default:
			return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
		}
	}

	envMap := make(map[string]any)
	for _, v := range envVars {
		key := EnvPrefix + v.suffix
		raw, ok := os.LookupEnv(key)
		if !ok {
			raw, ok = fileVars[key]
		}
		if !ok || raw == "" {
			continue
		}

		switch v.kind {
		case envString:
			envMap[v.flag] = raw
		case envBool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid value for %s: %q is not a boolean", key, raw)
			}
			envMap[v.flag] = b
		case envInt:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid value for %s: %q is not an integer", key, raw)
			}
			envMap[v.flag] = n
		}
	}
	return envMap, nil
}
