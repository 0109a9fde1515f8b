package upload

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func multipartFile(t *testing.T, name string, content []byte) *multipart.FileHeader {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("image", name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	if err := r.ParseMultipartForm(1 << 20); err != nil {
		t.Fatal(err)
	}
	return r.MultipartForm.File["image"][0]
}

func TestSave(t *testing.T) {
	s, err := NewStore(t.TempDir(), 1024)
	if err != nil {
		t.Fatal(err)
	}

	fh := multipartFile(t, "photo.JPG", []byte("fake image bytes"))

	name, err := s.Save(fh)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if !strings.HasSuffix(name, ".jpg") {
		t.Fatalf("extension was not normalized: %q", name)
	}

	b, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		t.Fatalf("saved file is not readable: %v", err)
	}
	if string(b) != "fake image bytes" {
		t.Fatalf("saved content differs: %q", b)
	}

	// No temp leftovers after a successful save.
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected a single file in the store, found %d", len(entries))
	}
}

func TestSaveRejectsExtension(t *testing.T) {
	s, err := NewStore(t.TempDir(), 1024)
	if err != nil {
		t.Fatal(err)
	}

	fh := multipartFile(t, "script.sh", []byte("#!/bin/sh"))
	if _, err := s.Save(fh); err == nil {
		t.Fatal("a non-image extension was accepted")
	}
}

func TestSaveRejectsOversize(t *testing.T) {
	s, err := NewStore(t.TempDir(), 8)
	if err != nil {
		t.Fatal(err)
	}

	fh := multipartFile(t, "big.png", []byte("way more than eight bytes"))
	if _, err := s.Save(fh); err == nil {
		t.Fatal("an oversized file was accepted")
	}
}

func TestRemove(t *testing.T) {
	s, err := NewStore(t.TempDir(), 1024)
	if err != nil {
		t.Fatal(err)
	}

	fh := multipartFile(t, "photo.png", []byte("img"))
	name, err := s.Save(fh)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Remove(name); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	// Removing twice is fine.
	if err := s.Remove(name); err != nil {
		t.Fatalf("second remove failed: %v", err)
	}

	// Path traversal is refused.
	if err := s.Remove("../outside.png"); err == nil {
		t.Fatal("a path escaping the store was accepted")
	}
}
