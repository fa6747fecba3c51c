//go:build windows

package preflight

import (
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/sys/windows"
)

func TestCheckDirectoryAccessible_Windows(t *testing.T) {
	t.Run("Error on Non-Existent Drive", func(t *testing.T) {
		drives, err := windows.GetLogicalDrives()
		if err != nil {
			t.Fatalf("Failed to get logical drives: %v", err)
		}
		missing := ""
		for letter := 'D'; letter <= 'Z'; letter++ {
			if drives&(uint32(1)<<(letter-'A')) == 0 {
				missing = string(letter) + `:\`
				break
			}
		}
		if missing == "" {
			t.Skip("could not find a non-existent drive letter; all letters are in use")
		}

		err = CheckDirectoryAccessible(filepath.Join(missing, "XenaDownloads"))
		if err == nil {
			t.Fatal("expected an error for a non-existent drive, but got nil")
		}
		if !strings.Contains(err.Error(), "volume root does not exist") {
			t.Errorf("expected error to contain 'volume root does not exist', but got: %v", err)
		}
	})
}
