//go:build !windows

package preflight

import "golang.org/x/sys/unix"

func checkVolumeExists(path string) error {
	return nil
}

// checkWritable asks the kernel whether we may create entries in path.
// Creating files needs write and search permission on the directory.
func checkWritable(path string) error {
	return unix.Access(path, unix.W_OK|unix.X_OK)
}
