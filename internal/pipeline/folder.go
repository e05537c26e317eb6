package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"produce-sorter/internal/logger"
)

// FeatureExtensions are the raster types feature extraction accepts.
var FeatureExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// SourceExtensions are the raster types accepted as raw input.
var SourceExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".tga", ".webp"}

// IsImageFile reports whether name carries one of exts, ignoring case.
func IsImageFile(name string, exts []string) bool {
	return slices.Contains(exts, strings.ToLower(filepath.Ext(name)))
}

// Stem is the file name without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ListImages returns the image files of dir in filename order. Directories
// are ignored; other files are skipped with a warning.
func ListImages(dir string, exts []string, log logger.Logger) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !IsImageFile(entry.Name(), exts) {
			log.Warning("FolderScanner", "skipping non-image file", map[string]interface{}{
				"file": entry.Name(),
				"dir":  dir,
			})
			continue
		}
		files = append(files, entry.Name())
	}

	slices.Sort(files)

	return files, nil
}
