package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileManager owns the static directory where rendered documents live and the
// stable per-case artifact naming.
type FileManager struct {
	baseDir    string
	staticDir  string
	stagingDir string
}

func NewFileManager(baseDir string) (*FileManager, error) {
	fm := &FileManager{
		baseDir:    baseDir,
		staticDir:  filepath.Join(baseDir, "static"),
		stagingDir: filepath.Join(baseDir, "staging"),
	}

	for _, dir := range []string{fm.baseDir, fm.staticDir, fm.stagingDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	return fm, nil
}

// StaticDir is the directory served at /static.
func (fm *FileManager) StaticDir() string {
	return fm.staticDir
}

// StagingDir is where in-progress renders live. It is never served; documents
// move into StaticDir only when a finalization attempt wins.
func (fm *FileManager) StagingDir() string {
	return fm.stagingDir
}

// DocumentName returns the stable artifact name for a case, case_<id>.pdf.
func (fm *FileManager) DocumentName(caseID uint) string {
	return fmt.Sprintf("case_%d.pdf", caseID)
}

// DocumentPath returns the on-disk path for a case's rendered document.
func (fm *FileManager) DocumentPath(caseID uint) string {
	return filepath.Join(fm.staticDir, fm.DocumentName(caseID))
}

// DocumentExists reports whether the rendered document for a case is on disk.
func (fm *FileManager) DocumentExists(caseID uint) bool {
	_, err := os.Stat(fm.DocumentPath(caseID))
	return err == nil
}

// ResolveDocument maps an artifact name back to its on-disk path. Names that
// escape the static directory resolve to nothing.
func (fm *FileManager) ResolveDocument(name string) (string, bool) {
	if name != filepath.Base(name) {
		return "", false
	}

	path := filepath.Join(fm.staticDir, name)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}
