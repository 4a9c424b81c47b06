package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindABFFiles finds all Axon binary files in the specified directory
func (d *Discovery) FindABFFiles(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(strings.ToLower(name), ".abf") {
			info, err := entry.Info()
			if err != nil {
				continue
			}

			files = append(files, FileInfo{
				Path:    filepath.Join(fullPath, name),
				Name:    name,
				Size:    info.Size(),
				ModTime: info.ModTime(),
			})
		}
	}

	// Sort by name so sweep numbering matches acquisition order
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// FindPrairieViewFolders finds acquisition folders that contain a
// VoltageRecording or LineScan XML sidecar.
func (d *Discovery) FindPrairieViewFolders(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var folders []FileInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		folder := filepath.Join(fullPath, entry.Name())
		sidecars, err := filepath.Glob(filepath.Join(folder, "*_VoltageRecording_*.xml"))
		if err != nil {
			return nil, fmt.Errorf("invalid sidecar pattern: %w", err)
		}
		if len(sidecars) == 0 {
			linescans, _ := filepath.Glob(filepath.Join(folder, "LineScan-*.csv"))
			if len(linescans) == 0 {
				continue
			}
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		folders = append(folders, FileInfo{
			Path:    folder,
			Name:    entry.Name(),
			ModTime: info.ModTime(),
			IsDir:   true,
		})
	}

	sort.Slice(folders, func(i, j int) bool {
		return folders[i].Name < folders[j].Name
	})

	return folders, nil
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}
