package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/happyhackingspace/formschema/extract"
	"github.com/happyhackingspace/formschema/internal/storage"
)

// KeywordsFile is the file name FindKeywords looks for.
const KeywordsFile = "keywords.yaml"

// ErrKeywordsNotFound is returned by FindKeywords when no file exists.
var ErrKeywordsNotFound = errors.New("config: " + KeywordsFile + " not found")

// Profiles holds the step keyword sets, optionally specialized per site.
//
//	default:
//	  step1: [aadhaar, otp]
//	  step2: [pan, gst]
//	profiles:
//	  example:
//	    step1: [passport]
//	    step2: [vat]
//	regexLibrary:
//	  aadhaar: ^\d{12}$
type Profiles struct {
	Default      extract.Keywords            `yaml:"default"`
	Profiles     map[string]extract.Keywords `yaml:"profiles"`
	RegexLibrary map[string]string           `yaml:"regexLibrary"`
}

// LoadKeywords reads a keyword profiles file. Unknown keys are rejected.
func LoadKeywords(path string) (*Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var p Profiles
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &p, nil
}

// For returns the keywords for source: the profile named after its domain,
// else the default profile, else extract.DefaultKeywords.
func (p *Profiles) For(source string) extract.Keywords {
	if p == nil {
		return extract.DefaultKeywords()
	}
	if kw, ok := p.Profiles[storage.GetDomain(source)]; ok && !empty(kw) {
		return kw
	}
	if !empty(p.Default) {
		return p.Default
	}
	return extract.DefaultKeywords()
}

func empty(kw extract.Keywords) bool {
	return len(kw.Step1) == 0 && len(kw.Step2) == 0
}

// FindKeywords searches for keywords.yaml in the current directory and its
// parents up to the module root (where go.mod lives).
func FindKeywords() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, KeywordsFile)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		// Stop at module root
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", ErrKeywordsNotFound
}
