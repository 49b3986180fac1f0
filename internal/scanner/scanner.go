package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Executable describes a launchable file found in the configured folder.
type Executable struct {
	Name   string  `json:"name"`
	Path   string  `json:"path"`
	SubDir string  `json:"subdir,omitempty"`
	Type   string  `json:"type"`
	Ext    string  `json:"extension"`
	SizeMB float64 `json:"size_mb"`
}

// Extensions returns the launchable extension set for the current platform.
func Extensions() []string {
	if runtime.GOOS == "windows" {
		return []string{".jar", ".exe", ".bat"}
	}
	return []string{".jar", ".sh"}
}

func isSupported(ext string) bool {
	for _, e := range Extensions() {
		if ext == e {
			return true
		}
	}
	return false
}

// Scan enumerates launchable files in folder and one level of subfolders,
// filtered by the platform extension set, sorted by type then name.
func Scan(folder string) ([]Executable, error) {
	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("scan folder %s: %w", folder, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan folder %s: not a directory", folder)
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("scan folder %s: %w", folder, err)
	}

	var out []Executable
	for _, e := range entries {
		if e.IsDir() {
			subEntries, err := os.ReadDir(filepath.Join(folder, e.Name()))
			if err != nil {
				continue
			}
			for _, se := range subEntries {
				if se.IsDir() {
					continue
				}
				if x, ok := describe(folder, e.Name(), se.Name()); ok {
					out = append(out, x)
				}
			}
			continue
		}
		if x, ok := describe(folder, "", e.Name()); ok {
			out = append(out, x)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func describe(folder, subdir, name string) (Executable, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if !isSupported(ext) {
		return Executable{}, false
	}
	path := filepath.Join(folder, subdir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return Executable{}, false
	}
	return Executable{
		Name:   name,
		Path:   path,
		SubDir: subdir,
		Type:   strings.ToUpper(strings.TrimPrefix(ext, ".")),
		Ext:    ext,
		SizeMB: float64(info.Size()) / 1024 / 1024,
	}, true
}

// Resolve maps a stable service name to its launch path and working
// directory using the latest folder layout. Subfolder entries launch with
// the subfolder as working directory.
func Resolve(folder, name string) (path, workDir string, err error) {
	execs, err := Scan(folder)
	if err != nil {
		return "", "", err
	}
	for _, x := range execs {
		if strings.EqualFold(x.Name, name) {
			wd := folder
			if x.SubDir != "" {
				wd = filepath.Join(folder, x.SubDir)
			}
			return x.Path, wd, nil
		}
	}
	return "", "", fmt.Errorf("executable %s not found under %s", name, folder)
}
