package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"shopassist/domain"
)

func TestFileStore_SetGetDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	ctx := context.Background()

	if err := s.Set(ctx, domain.KeyChatSessionID, "sid-file"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := s.Get(ctx, domain.KeyChatSessionID)
	if err != nil || got != "sid-file" {
		t.Fatalf("expected sid-file, got %q (%v)", got, err)
	}
	if err := s.Delete(ctx, domain.KeyChatSessionID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.Get(ctx, domain.KeyChatSessionID); !domain.IsKeyNotFoundError(err) {
		t.Fatalf("expected KeyNotFoundError, got %v", err)
	}
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	ctx := context.Background()

	s1, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := s1.Set(ctx, domain.KeyChatSessionID, "survives"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := s1.Set(ctx, domain.KeyAuthToken, "tok"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	s2, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if v, _ := s2.Get(ctx, domain.KeyChatSessionID); v != "survives" {
		t.Fatalf("expected value to survive reopen, got %q", v)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var onDisk map[string]string
	if err := json.Unmarshal(b, &onDisk); err != nil {
		t.Fatalf("file is not a JSON object: %v", err)
	}
	if onDisk[domain.KeyAuthToken] != "tok" {
		t.Fatalf("unexpected file contents: %s", b)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file should be renamed away")
	}
}

func TestFileStore_EmptyAndCorruptFile(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(empty); err != nil {
		t.Fatalf("empty file should load, got %v", err)
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(corrupt); err == nil {
		t.Fatal("expected error for corrupt file")
	}
}

func TestFileStore_CanceledContext(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "s.json"))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Set(ctx, "k", "v"); err == nil {
		t.Fatal("expected context error")
	}
}
