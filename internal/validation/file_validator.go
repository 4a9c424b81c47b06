package validation

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileValidator checks acquisition files and directories before the
// importers touch them, so command-line tools and the pipeline can fail
// with a clear message instead of a mid-import decode error.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator.
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateInputDirectory validates that an input directory exists and,
// when a glob pattern is given, reports how many files match it. An
// empty directory is not an error; there is simply nothing to import.
func (v *FileValidator) ValidateInputDirectory(dir string, requiredPattern string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("Input directory does not exist",
			slog.String("directory", dir))
		return fmt.Errorf("input directory %s does not exist", dir)
	}
	if err != nil {
		v.logger.Error("Failed to stat input directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		v.logger.Error("Input path is not a directory",
			slog.String("path", dir))
		return fmt.Errorf("%s is not a directory", dir)
	}

	if requiredPattern != "" {
		pattern := filepath.Join(dir, requiredPattern)
		matches, err := filepath.Glob(pattern)
		if err != nil {
			v.logger.Error("Failed to check for files",
				slog.String("pattern", pattern),
				slog.String("error", err.Error()))
			return fmt.Errorf("failed to check for files: %w", err)
		}

		if len(matches) == 0 {
			v.logger.Warn("No files matching pattern found",
				slog.String("directory", dir),
				slog.String("pattern", requiredPattern))
			return nil
		}

		v.logger.Info("Input directory validated",
			slog.String("directory", dir),
			slog.Int("files_found", len(matches)),
			slog.String("pattern", requiredPattern))
	}

	return nil
}

// ValidateOutputDirectory ensures an output directory exists, creating
// it if needed, and verifies it is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Info("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateFile checks that a path names a readable regular file.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// CountFiles counts regular files matching a glob pattern in a directory.
func (v *FileValidator) CountFiles(dir string, pattern string) (int, error) {
	fullPattern := filepath.Join(dir, pattern)
	matches, err := filepath.Glob(fullPattern)
	if err != nil {
		v.logger.Error("Failed to count files",
			slog.String("pattern", fullPattern),
			slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to count files: %w", err)
	}

	fileCount := 0
	for _, match := range matches {
		info, err := os.Stat(match)
		if err == nil && !info.IsDir() {
			fileCount++
		}
	}

	v.logger.Debug("Files counted",
		slog.String("directory", dir),
		slog.String("pattern", pattern),
		slog.Int("count", fileCount))
	return fileCount, nil
}

// abfSignatures are the four-byte magics an Axon binary file may open
// with: "ABF " and "CLPS" for the v1 generation, "ABF2" for v2.
var abfSignatures = [][]byte{
	[]byte("ABF "),
	[]byte("CLPS"),
	[]byte("ABF2"),
}

// ValidateABFFile checks that a file looks like an Axon binary file:
// readable, the .abf extension, and a recognized header signature.
func (v *FileValidator) ValidateABFFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".abf" {
		v.logger.Error("File is not an ABF file",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("file %s is not an ABF file (extension: %s)", path, ext)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	defer file.Close()

	sig := make([]byte, 4)
	if _, err := file.Read(sig); err != nil {
		v.logger.Error("File too short for ABF signature",
			slog.String("file", path))
		return fmt.Errorf("file %s is too short for an ABF signature", path)
	}
	for _, want := range abfSignatures {
		if bytes.Equal(sig, want) {
			return nil
		}
	}

	v.logger.Error("Unrecognized ABF signature",
		slog.String("file", path),
		slog.String("signature", string(sig)))
	return fmt.Errorf("file %s has an unrecognized ABF signature %q", path, string(sig))
}

// ValidatePrairieViewFolder checks that a directory looks like a
// PrairieView acquisition folder: it must contain at least one XML
// metadata file.
func (v *FileValidator) ValidatePrairieViewFolder(dir string) error {
	if err := v.ValidateInputDirectory(dir, ""); err != nil {
		return err
	}

	count, err := v.CountFiles(dir, "*.xml")
	if err != nil {
		return err
	}
	if count == 0 {
		v.logger.Error("No PrairieView metadata found",
			slog.String("directory", dir))
		return fmt.Errorf("directory %s contains no PrairieView XML metadata", dir)
	}

	v.logger.Info("PrairieView folder validated",
		slog.String("directory", dir),
		slog.Int("xml_files", count))
	return nil
}

// ValidateCSVFile checks that a file is a readable CSV export.
func (v *FileValidator) ValidateCSVFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" {
		v.logger.Error("File is not a CSV file",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("file %s is not a CSV file (extension: %s)", path, ext)
	}

	return nil
}
