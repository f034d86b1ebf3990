package api

import (
	"os"
	"path/filepath"
)

// DetectStaticRoot looks for a bundled client (index.html) in dir or the two
// directories above it. It returns "" when there is none.
func DetectStaticRoot(dir string) string {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = wd
	}

	candidates := []string{
		dir,
		filepath.Dir(dir),
		filepath.Dir(filepath.Dir(dir)),
	}
	for _, d := range candidates {
		if fileExists(filepath.Join(d, "index.html")) {
			return d
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
