package services

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tutor-genai-service/internal/logger"
)

// exampleNamespace holds seeded demo documents that survive cleanup.
const exampleNamespace = "example"

// FileStorage persists uploaded documents just long enough to ingest them.
// Documents are ephemeral: the session deletes the file right after loading,
// only the derived chunks persist.
type FileStorage struct {
	dir string
}

func NewFileStorage(dir string) *FileStorage {
	if dir == "" {
		dir = "./documents"
	}
	os.MkdirAll(dir, 0755)
	os.MkdirAll(filepath.Join(dir, exampleNamespace), 0755)
	return &FileStorage{dir: dir}
}

// SaveDocument decodes a base64 payload and writes it under the storage
// directory, returning the file path.
func (fs *FileStorage) SaveDocument(name, documentBase64 string) (string, error) {
	content, err := base64.StdEncoding.DecodeString(documentBase64)
	if err != nil {
		return "", fmt.Errorf("decode document %q: %w", name, err)
	}

	// Uploaded names must not escape the storage directory.
	path := filepath.Join(fs.dir, filepath.Base(name))
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("save document %q: %w", name, err)
	}

	logger.Debug("document saved", "name", name, "path", path, "bytes", len(content))
	return path, nil
}

// DeleteDocument removes an ingested file. Documents under the example
// namespace are protected and silently kept; a missing file is logged, not
// an error.
func (fs *FileStorage) DeleteDocument(path string) error {
	if strings.Contains(filepath.ToSlash(path), "/"+exampleNamespace+"/") {
		return nil
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			logger.Warn("document already gone", "path", path)
			return nil
		}
		return fmt.Errorf("delete document %q: %w", path, err)
	}

	logger.Debug("document deleted", "path", path)
	return nil
}
