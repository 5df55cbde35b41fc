package capture

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/penwyp/go-flight-stepper/internal/util"
)

// Discover walks root and returns every directory that holds a capture:
// a capture.yaml or a render response. Unreadable paths are skipped.
func Discover(root string) ([]string, error) {
	start := time.Now()
	found := make(map[string]bool)
	dirCount := 0

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			util.LogDebugf("Skip path (error): %s - %v", path, err)
			return nil
		}
		if info.IsDir() {
			dirCount++
			return nil
		}

		name := info.Name()
		if name == ManifestFile || (isResponseFile(name) && responseName(name) == "render") {
			found[filepath.Dir(path)] = true
		}
		return nil
	})

	dirs := make([]string, 0, len(found))
	for dir := range found {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	util.LogDebugf("Capture scan completed: duration %v, scanned %d directories, found %d captures",
		time.Since(start), dirCount, len(dirs))
	return dirs, err
}
