package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeGreenlist(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "greenlist.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write greenlist: %v", err)
	}
	return path
}

func TestLoadGreenlist(t *testing.T) {
	path := writeGreenlist(t, `{"allowedNames":["alice","bob"],"mediaDirectories":["movies","","shows/"]}`)

	gl, err := LoadGreenlist(path)
	if err != nil {
		t.Fatalf("LoadGreenlist() error = %v", err)
	}
	if len(gl.AllowedNames) != 2 {
		t.Fatalf("unexpected allowedNames: %v", gl.AllowedNames)
	}
	if len(gl.MediaDirectories) != 2 {
		t.Fatalf("empty dir should be dropped, got %v", gl.MediaDirectories)
	}
	if gl.MediaDirectories[1] != "shows" {
		t.Fatalf("dirs should be cleaned, got %q", gl.MediaDirectories[1])
	}
}

func TestLoadGreenlistErrors(t *testing.T) {
	if _, err := LoadGreenlist(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := LoadGreenlist(writeGreenlist(t, `{not json`)); err == nil {
		t.Fatal("expected error for malformed json")
	}
	if _, err := LoadGreenlist(writeGreenlist(t, `{"allowedNames":[],"mediaDirectories":["movies"]}`)); err == nil {
		t.Fatal("expected error for empty allowedNames")
	}
}

func TestGreenlistAllowedExactMatch(t *testing.T) {
	gl := &Greenlist{AllowedNames: []string{"alice", "Bob"}}

	if !gl.Allowed("alice") {
		t.Fatal("alice should be allowed")
	}
	if gl.Allowed("Alice") {
		t.Fatal("matching must be case-sensitive")
	}
	if gl.Allowed("alice ") {
		t.Fatal("matching must be exact, no trimming")
	}
	if gl.Allowed("mallory") {
		t.Fatal("mallory should not be allowed")
	}
}
