package gunzip

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulschiretz/pgl-gunzip/pkg/plog"
	"github.com/paulschiretz/pgl-gunzip/pkg/util"
)

// OverwriteBehavior defines how an existing output file is treated.
type OverwriteBehavior string

const (
	// OverwriteAlways replaces an existing output file. This is the default.
	OverwriteAlways OverwriteBehavior = "always"
	// OverwriteNever keeps an existing output file and skips the archive.
	OverwriteNever OverwriteBehavior = "never"
	// OverwriteIfNewer replaces the output only if the archive was modified after it.
	OverwriteIfNewer OverwriteBehavior = "if-newer"
)

var behaviorToString = map[OverwriteBehavior]string{
	OverwriteAlways:  "always",
	OverwriteNever:   "never",
	OverwriteIfNewer: "if-newer",
}

var stringToBehavior map[string]OverwriteBehavior

func init() {
	stringToBehavior = util.InvertMap(behaviorToString)
}

func (ob OverwriteBehavior) String() string {
	if str, ok := behaviorToString[ob]; ok {
		return str
	}
	return fmt.Sprintf("unknown_overwrite_behavior(%s)", string(ob))
}

// ParseOverwriteBehavior parses an overwrite policy. An empty string selects OverwriteAlways.
func ParseOverwriteBehavior(s string) (OverwriteBehavior, error) {
	if s == "" {
		return OverwriteAlways, nil
	}
	if behavior, ok := stringToBehavior[s]; ok {
		return behavior, nil
	}
	return "", fmt.Errorf("invalid overwrite behavior: %q. Must be 'always', 'never', or 'if-newer'", s)
}

// MarshalJSON implements the json.Marshaler interface for OverwriteBehavior.
func (ob OverwriteBehavior) MarshalJSON() ([]byte, error) {
	return json.Marshal(ob.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for OverwriteBehavior.
func (ob *OverwriteBehavior) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("overwrite behavior should be a string, got %s", data)
	}
	behavior, err := ParseOverwriteBehavior(s)
	if err != nil {
		return err
	}
	*ob = behavior
	return nil
}

// shouldWrite decides whether the archive e may be written to its output path.
// A symlink is judged by its target. A directory in the way is an error
// regardless of the policy.
func shouldWrite(e Entry, overwrite OverwriteBehavior) (bool, error) {
	destInfo, err := os.Stat(e.AbsOutputPath)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat output path %s: %w", e.AbsOutputPath, err)
	}
	if destInfo.IsDir() {
		return false, fmt.Errorf("cannot overwrite directory with a file: %s", e.AbsOutputPath)
	}

	switch overwrite {
	case OverwriteAlways, "":
		return true, nil
	case OverwriteNever:
		plog.Debug("Skipping existing output (overwrite=never)", "path", e.AbsOutputPath)
		return false, nil
	case OverwriteIfNewer:
		if !e.ModTime.After(destInfo.ModTime()) {
			plog.Debug("Skipping up-to-date output (overwrite=if-newer)", "path", e.AbsOutputPath)
			return false, nil
		}
		return true, nil
	default:
		return false, fmt.Errorf("unsupported overwrite behavior: %s", overwrite)
	}
}

// resolveOutputPath follows a symlink at path so the output is written to the
// link's target and the link itself stays in place. A dangling link is an error.
func resolveOutputPath(path string) (string, error) {
	fi, err := os.Lstat(path)
	if err != nil || fi.Mode()&os.ModeSymlink == 0 {
		return path, nil
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve symlink at output path: %w", err)
	}
	return resolved, nil
}
