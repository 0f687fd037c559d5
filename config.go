package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Greenlist is the process-wide allow-list, loaded once at startup and
// immutable afterwards.
type Greenlist struct {
	AllowedNames     []string `json:"allowedNames"`
	MediaDirectories []string `json:"mediaDirectories"`
}

// LoadGreenlist reads and validates the greenlist file. A failure here
// is the only fatal configuration error in the process.
func LoadGreenlist(path string) (*Greenlist, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read greenlist: %w", err)
	}
	var gl Greenlist
	if err := json.Unmarshal(raw, &gl); err != nil {
		return nil, fmt.Errorf("parse greenlist: %w", err)
	}
	if len(gl.AllowedNames) == 0 {
		return nil, fmt.Errorf("greenlist %s: allowedNames must not be empty", path)
	}
	dirs := gl.MediaDirectories[:0]
	for _, dir := range gl.MediaDirectories {
		if dir == "" {
			continue
		}
		dirs = append(dirs, filepath.Clean(dir))
	}
	gl.MediaDirectories = dirs
	return &gl, nil
}

// Allowed reports whether name may participate. Matching is exact and
// case-sensitive; no normalization is applied.
func (g *Greenlist) Allowed(name string) bool {
	for _, n := range g.AllowedNames {
		if n == name {
			return true
		}
	}
	return false
}
