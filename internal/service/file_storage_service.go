package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lshigami/Tamarin/config"
)

// FileStorageService persists uploaded files on local disk, one directory
// per owner.
type FileStorageService interface {
	Save(ownerID uint, filename string, data []byte) (string, error)
	Read(path string) ([]byte, error)
	Delete(path string) error
}

type fileStorageService struct {
	baseDir string
}

func NewFileStorageService(cfg *config.Config) (FileStorageService, error) {
	baseDir := cfg.Upload.Dir
	if baseDir == "" {
		baseDir = "uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", baseDir, err)
	}
	return &fileStorageService{baseDir: baseDir}, nil
}

func (s *fileStorageService) Save(ownerID uint, filename string, data []byte) (string, error) {
	ownerDir := filepath.Join(s.baseDir, fmt.Sprint(ownerID))
	if err := os.MkdirAll(ownerDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create owner directory %s: %w", ownerDir, err)
	}

	path := filepath.Join(ownerDir, sanitizeFilename(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return path, nil
}

func (s *fileStorageService) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return data, nil
}

// Delete removes the stored file. A missing file is not an error.
func (s *fileStorageService) Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}
	return nil
}

// sanitizeFilename strips path components and characters that are unsafe in
// a filesystem name.
func sanitizeFilename(filename string) string {
	name := filepath.Base(filename)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." || name == ".." {
		name = "upload"
	}
	return name
}
