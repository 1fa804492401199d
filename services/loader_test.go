package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tutor-genai-service/utils"
)

func TestLoadDocumentText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("plain text body"), 0644); err != nil {
		t.Fatal(err)
	}

	docs, err := LoadDocument(path)
	if err != nil {
		t.Fatalf("load text: %v", err)
	}
	if len(docs) != 1 || docs[0] != "plain text body" {
		t.Fatalf("unexpected docs: %#v", docs)
	}
}

func TestLoadDocumentMissingFile(t *testing.T) {
	_, err := LoadDocument(filepath.Join(t.TempDir(), "nope.txt"))
	if !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadDocumentUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.docx")
	if err := os.WriteFile(path, []byte("whatever"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadDocument(path)
	if !errors.Is(err, utils.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoadDocumentCorruptPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	if err := os.WriteFile(path, []byte("not actually a pdf"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadDocument(path); err == nil {
		t.Fatal("expected error for corrupt pdf")
	}
}
