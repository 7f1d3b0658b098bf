package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/happyhackingspace/formschema/schema"
)

func TestGetDomain(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"http://example.org/page", "example"},
		{"https://foo.example.co.uk/path", "example"},
		{"http://www.google.com", "google"},
		{"example.org", "example"},
		{"http://localhost:8080/path", "localhost"},
		{"https://udyamregistration.gov.in/UdyamRegistration.aspx", "udyamregistration"},
	}
	for _, tt := range tests {
		got := GetDomain(tt.url)
		if got != tt.want {
			t.Errorf("GetDomain(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestForSource(t *testing.T) {
	s := NewStorage("data")
	tests := []struct {
		source string
		want   string
	}{
		{"https://udyamregistration.gov.in/UdyamRegistration.aspx", filepath.Join("data", "udyamregistration")},
		{"/tmp/saved/form.html", filepath.Join("data", "local")},
		{"-", filepath.Join("data", "local")},
	}
	for _, tt := range tests {
		if got := s.ForSource(tt.source).Folder; got != tt.want {
			t.Errorf("ForSource(%q).Folder = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func sampleSchema(t *testing.T) *schema.FormSchema {
	t.Helper()
	id := "txtadharno"
	maxLen := 12
	fields := []schema.FieldDescriptor{
		{
			Tag: "input", Type: "text", Name: "txtadharno", ID: &id, Label: "Aadhaar Number",
			MaxLength: &maxLen, Dataset: map[string]string{},
			Visibility: schema.Visibility{Style: schema.Style{Display: "inline-block", Visibility: "visible", Opacity: "1"}},
			Step:       schema.Step1,
		},
		{
			Tag: "select", Type: "select", Name: "ddlState", Dataset: map[string]string{"role": "state"},
			Options:    []schema.Option{{Value: "", Text: "Select State", Selected: true}},
			Visibility: schema.Visibility{Hidden: true, Style: schema.Style{Display: "none", Visibility: "visible", Opacity: "1"}},
			Step:       schema.Step2,
		},
	}
	fs, err := schema.Build(fields, "https://example.org/register", nil, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	return fs
}

func TestSaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s := NewStorage(dir)
	fs := sampleSchema(t)

	if err := s.Save(fs); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(fs, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(filepath.Join(dir, Step2File))
	if err != nil {
		t.Fatal(err)
	}
	var step2 []schema.FieldDescriptor
	if err := json.Unmarshal(data, &step2); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(fs.Step2, step2); diff != "" {
		t.Errorf("%s mismatch (-want +got):\n%s", Step2File, diff)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if diff := cmp.Diff([]string{SchemaFile, Step1File, Step2File}, names); diff != "" {
		t.Errorf("folder contents mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := NewStorage(t.TempDir())
	fs := sampleSchema(t)
	if err := s.Save(fs); err != nil {
		t.Fatal(err)
	}
	fs.Source = "https://example.org/other"
	if err := s.Save(fs); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != fs.Source {
		t.Errorf("source = %q, want %q", got.Source, fs.Source)
	}
}

func TestSaveError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	err := NewStorage(filepath.Join(blocker, "out")).Save(sampleSchema(t))
	if err == nil || !strings.HasPrefix(err.Error(), "write "+Step1File+": ") {
		t.Errorf("Save() error = %v, want write failure", err)
	}
}

func TestSaveKeepsPreviousArtifacts(t *testing.T) {
	dir := t.TempDir()
	st := NewStorage(dir)
	if err := os.Mkdir(filepath.Join(dir, SchemaFile), 0o755); err != nil {
		t.Fatal(err)
	}
	old := []byte("[]\n")
	if err := os.WriteFile(filepath.Join(dir, Step2File), old, 0o644); err != nil {
		t.Fatal(err)
	}

	err := st.Save(sampleSchema(t))
	if err == nil || !strings.HasPrefix(err.Error(), "write "+SchemaFile+": ") {
		t.Fatalf("Save() error = %v, want %s failure", err, SchemaFile)
	}
	if _, err := os.Stat(filepath.Join(dir, Step1File)); !os.IsNotExist(err) {
		t.Errorf("%s written by a failed save: %v", Step1File, err)
	}
	got, err := os.ReadFile(filepath.Join(dir, Step2File))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(old) {
		t.Errorf("%s replaced by a failed save: %q", Step2File, got)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), SchemaFile)); !os.IsNotExist(err) {
		t.Errorf("LoadFile(missing) error = %v, want not exist", err)
	}
	bad := filepath.Join(t.TempDir(), SchemaFile)
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(bad); err == nil {
		t.Error("LoadFile(invalid) expected error")
	}
}
