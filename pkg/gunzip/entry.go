package gunzip

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Suffix is the literal, case-sensitive name suffix that marks an archive.
const Suffix = ".gz"

// Entry is one archive found directly inside the scanned directory.
type Entry struct {
	Name          string
	AbsPath       string
	OutputName    string
	AbsOutputPath string
	Size          int64
	ModTime       time.Time
	// Mode holds the archive's permission bits, zero if they could not be read.
	Mode os.FileMode
}

// OutputName derives the decompressed file name by stripping exactly one
// trailing extension: "data.csv.gz" becomes "data.csv", "notes.gz" becomes "notes".
func OutputName(name string) string {
	base := filepath.Base(name)
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		return base[:i]
	}
	return base
}

// validOutputName rejects names that would resolve to the directory itself or its parent.
func validOutputName(name string) bool {
	return name != "" && name != "." && name != ".."
}

// Scan lists the archives directly inside absDirPath in directory order
// (os.ReadDir sorts by name). Subdirectories are never entered, and
// directories whose name happens to end in ".gz" are ignored.
func Scan(absDirPath string) ([]Entry, error) {
	info, err := os.Stat(absDirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory %s does not exist", absDirPath)
		}
		return nil, fmt.Errorf("cannot stat directory %s: %w", absDirPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path %s is not a directory", absDirPath)
	}

	dirEntries, err := os.ReadDir(absDirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", absDirPath, err)
	}

	var entries []Entry
	for _, d := range dirEntries {
		name := d.Name()
		if !strings.HasSuffix(name, Suffix) || d.IsDir() {
			continue
		}

		e := Entry{
			Name:       name,
			AbsPath:    filepath.Join(absDirPath, name),
			OutputName: OutputName(name),
		}
		e.AbsOutputPath = filepath.Join(absDirPath, e.OutputName)

		// Symlinks are followed like a plain open would. A dangling link stays
		// in the list so the open error surfaces for that archive.
		var fi os.FileInfo
		if d.Type()&os.ModeSymlink != 0 {
			fi, err = os.Stat(e.AbsPath)
		} else {
			fi, err = d.Info()
		}
		if err == nil {
			if fi.IsDir() {
				continue
			}
			e.Size = fi.Size()
			e.ModTime = fi.ModTime()
			e.Mode = fi.Mode().Perm()
		}
		entries = append(entries, e)
	}
	return entries, nil
}
