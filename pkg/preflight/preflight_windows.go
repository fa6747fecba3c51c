//go:build windows

package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// checkVolumeExists verifies that the drive or share root of path exists,
// e.g. "Z:\" for "Z:\Downloads".
func checkVolumeExists(path string) error {
	volume := filepath.VolumeName(path)
	if volume == "" {
		return nil
	}
	root := volume
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	root = filepath.Clean(root)

	if _, err := os.Stat(root); os.IsNotExist(err) {
		return fmt.Errorf("volume root does not exist: %s. Ensure the drive is connected", root)
	}
	return nil
}

// checkWritable proves writability by creating and removing a scratch file.
// Directory ACLs and the read-only attribute do not reliably predict this on Windows.
func checkWritable(path string) error {
	f, err := os.CreateTemp(path, ".pgl-gunzip-writetest-*.tmp")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
