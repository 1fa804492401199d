package services

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveDocumentDecodesPayload(t *testing.T) {
	fs := NewFileStorage(t.TempDir())

	payload := base64.StdEncoding.EncodeToString([]byte("document body"))
	path, err := fs.SaveDocument("notes.txt", payload)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "document body" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestSaveDocumentRejectsBadBase64(t *testing.T) {
	fs := NewFileStorage(t.TempDir())
	if _, err := fs.SaveDocument("notes.txt", "not-base64!!!"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSaveDocumentSanitizesName(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStorage(dir)

	payload := base64.StdEncoding.EncodeToString([]byte("x"))
	path, err := fs.SaveDocument("../../etc/evil.txt", payload)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("path escaped storage dir: %q", path)
	}
}

func TestDeleteDocument(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStorage(dir)

	path := filepath.Join(dir, "gone.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := fs.DeleteDocument(path); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("file should be gone")
	}

	// Deleting again is not an error.
	if err := fs.DeleteDocument(path); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestDeleteDocumentProtectsExamples(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStorage(dir)

	path := filepath.Join(dir, exampleNamespace, "seeded.txt")
	if err := os.WriteFile(path, []byte("keep me"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := fs.DeleteDocument(path); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal("example documents must survive deletion")
	}
}
