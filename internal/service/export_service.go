package service

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var ErrNoArtifacts = errors.New("no artifacts for task")

// ExportService packages a task's artifacts for download. Every path it
// touches is confined to one task-scoped directory under the output root.
type ExportService struct {
	outputDir string
}

func NewExportService(outputDir string) *ExportService {
	return &ExportService{outputDir: outputDir}
}

// ArtifactPath resolves a single artifact inside the task's directory.
// Filenames carrying path separators or traversal segments are rejected.
func (s *ExportService) ArtifactPath(taskID, filename string) (string, error) {
	if !validPathComponent(taskID) || !validPathComponent(filename) {
		return "", fmt.Errorf("invalid artifact reference")
	}
	p := filepath.Join(s.outputDir, taskID, filename)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("artifact %s: %w", filename, err)
	}
	return p, nil
}

// WriteArchive streams a ZIP of all PNG artifacts in the task's directory,
// in filename order, to w.
func (s *ExportService) WriteArchive(w io.Writer, taskID string) error {
	if !validPathComponent(taskID) {
		return fmt.Errorf("invalid task id")
	}
	dir := filepath.Join(s.outputDir, taskID)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNoArtifacts
		}
		return fmt.Errorf("read task dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".png") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return ErrNoArtifacts
	}
	sort.Strings(names)

	zw := zip.NewWriter(w)
	for _, name := range names {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			zw.Close()
			return fmt.Errorf("open %s: %w", name, err)
		}
		entry, err := zw.Create(name)
		if err != nil {
			f.Close()
			zw.Close()
			return fmt.Errorf("archive %s: %w", name, err)
		}
		if _, err := io.Copy(entry, f); err != nil {
			f.Close()
			zw.Close()
			return fmt.Errorf("archive %s: %w", name, err)
		}
		f.Close()
	}
	return zw.Close()
}

// validPathComponent rejects anything that could escape the task directory.
func validPathComponent(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return true
}
