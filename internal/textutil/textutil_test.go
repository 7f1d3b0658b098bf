package textutil

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hello World", "hello world"},
		{"  multiple   spaces  ", "multiple spaces"},
		{"Name as per\n\t Aadhaar", "name as per aadhaar"},
		{"UPPER", "upper"},
		{"", ""},
	}
	for _, tt := range tests {
		got := Normalize(tt.input)
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  Aadhaar\n\t Number  ", "Aadhaar Number"},
		{"", ""},
		{" \n\t ", ""},
		{"PAN", "PAN"},
	}
	for _, tt := range tests {
		got := Clean(tt.input)
		if got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestContainsAny(t *testing.T) {
	tests := []struct {
		text     string
		keywords []string
		want     bool
	}{
		{"aadhaar number", []string{"aadhaar", "otp"}, true},
		{"organisation details", []string{"pan", "gst"}, false},
		{"company name", []string{"pan"}, true},
		{"anything", []string{""}, false},
		{"anything", nil, false},
	}
	for _, tt := range tests {
		got := ContainsAny(tt.text, tt.keywords)
		if got != tt.want {
			t.Errorf("ContainsAny(%q, %v) = %v, want %v", tt.text, tt.keywords, got, tt.want)
		}
	}
}

func TestDatasetKey(t *testing.T) {
	tests := []struct {
		attr   string
		want   string
		wantOK bool
	}{
		{"data-field-id", "fieldId", true},
		{"data-x", "x", true},
		{"data-a-1", "a-1", true},
		{"data-", "", true},
		{"aria-label", "", false},
	}
	for _, tt := range tests {
		got, ok := DatasetKey(tt.attr)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("DatasetKey(%q) = %q, %v, want %q, %v", tt.attr, got, ok, tt.want, tt.wantOK)
		}
	}
}
