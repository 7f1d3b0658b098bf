// Package storage persists form schema artifacts to a data folder.
package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/happyhackingspace/formschema/schema"
)

// Artifact file names.
const (
	SchemaFile = "formSchema.json"
	Step1File  = "step1.json"
	Step2File  = "step2.json"
)

// Storage wraps the artifact data folder.
type Storage struct {
	Folder string
}

// NewStorage creates a Storage for the given data folder.
func NewStorage(folder string) *Storage {
	return &Storage{Folder: folder}
}

// ForSource returns the storage of a per-site subfolder named after the
// source's registrable domain.
func (s *Storage) ForSource(source string) *Storage {
	domain := GetDomain(source)
	if domain == "" || domain == "-" {
		domain = "local"
	}
	return NewStorage(filepath.Join(s.Folder, domain))
}

// Save writes the schema and its two step partitions. All three files are
// staged before any is renamed into place, so a failed save leaves the
// previous artifacts untouched.
func (s *Storage) Save(fs *schema.FormSchema) error {
	files := []struct {
		name string
		v    any
	}{
		{Step1File, fs.Step1},
		{Step2File, fs.Step2},
		{SchemaFile, fs},
	}
	staged := make([]stagedFile, 0, len(files))
	defer func() {
		for _, f := range staged {
			_ = os.Remove(f.tmp)
		}
	}()
	for _, f := range files {
		data, err := json.MarshalIndent(f.v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", f.name, err)
		}
		sf, err := s.stage(f.name, append(data, '\n'))
		if err != nil {
			return err
		}
		staged = append(staged, sf)
	}
	for _, f := range staged {
		if info, err := os.Stat(f.target); err == nil && info.IsDir() {
			return fmt.Errorf("write %s: %s is a directory", f.name, f.target)
		}
	}
	for _, f := range staged {
		if err := os.Rename(f.tmp, f.target); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	slog.Info("Schema saved", "folder", s.Folder, "total", fs.Counts.Total,
		"step1", fs.Counts.Step1, "step2", fs.Counts.Step2)
	return nil
}

// WriteFile atomically replaces name inside the folder with data.
func (s *Storage) WriteFile(name string, data []byte) error {
	f, err := s.stage(name, data)
	if err != nil {
		return err
	}
	defer os.Remove(f.tmp)
	if err := os.Rename(f.tmp, f.target); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

type stagedFile struct {
	name   string
	tmp    string
	target string
}

// stage writes data to a temporary file next to its final name.
func (s *Storage) stage(name string, data []byte) (stagedFile, error) {
	if err := os.MkdirAll(s.Folder, 0o755); err != nil {
		return stagedFile{}, fmt.Errorf("write %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(s.Folder, "."+name+".*.tmp")
	if err != nil {
		return stagedFile{}, fmt.Errorf("write %s: %w", name, err)
	}
	f := stagedFile{name: name, tmp: tmp.Name(), target: filepath.Join(s.Folder, name)}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(f.tmp)
		return stagedFile{}, fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(f.tmp)
		return stagedFile{}, fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Chmod(f.tmp, 0o644); err != nil {
		_ = os.Remove(f.tmp)
		return stagedFile{}, fmt.Errorf("write %s: %w", name, err)
	}
	return f, nil
}

// Load reads the schema saved in the folder.
func (s *Storage) Load() (*schema.FormSchema, error) {
	return LoadFile(filepath.Join(s.Folder, SchemaFile))
}

// LoadFile reads a schema artifact from path.
func LoadFile(path string) (*schema.FormSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fs schema.FormSchema
	if err := json.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &fs, nil
}

// GetDomain extracts the domain name from a URL, without its public suffix.
func GetDomain(rawURL string) string {
	// Extract host from URL
	host := rawURL
	if idx := strings.Index(host, "://"); idx >= 0 {
		host = host[idx+3:]
	}
	if idx := strings.Index(host, "/"); idx >= 0 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx >= 0 {
		host = host[:idx]
	}

	// Use publicsuffix to find the eTLD+1, then extract just the domain
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	// domain is like "example.co.uk", we want just "example"
	if idx := strings.Index(domain, "."); idx >= 0 {
		return domain[:idx]
	}
	return domain
}
