// Package openapi exports a form schema as an OpenAPI 3 document that form
// renderers can consume.
//
// Each wizard step becomes a component schema and a POST operation accepting
// it. Field metadata that has no JSON Schema keyword travels in an x-formgen
// extension on the property.
package openapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/happyhackingspace/formschema/schema"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrUnknownFormat is returned for an output format other than json or yaml.
var ErrUnknownFormat = errors.New("openapi: unknown format")

const extensionNamespace = "x-formgen"

// FileName returns the artifact name for format.
func FileName(format string) string {
	return "formSchema.openapi." + format
}

// Build converts fs into a validated OpenAPI document.
func Build(fs *schema.FormSchema) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "Form schema",
			Description: "Fields extracted from " + fs.Source,
			Version:     fs.ScrapedAt.UTC().Format("2006.01.02"),
			Extensions: map[string]any{
				"x-formschema-source":        fs.Source,
				"x-formschema-scraped-at":    fs.ScrapedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
				"x-formschema-regex-library": fs.RegexLibrary,
			},
		},
		Paths:      openapi3.NewPaths(),
		Components: &openapi3.Components{Schemas: openapi3.Schemas{}},
	}

	steps := []struct {
		name   string
		path   string
		fields []schema.FieldDescriptor
	}{
		{"Step1", "/step1", fs.Step1},
		{"Step2", "/step2", fs.Step2},
	}
	for i, step := range steps {
		s := stepSchema(step.fields)
		s.Title = step.name
		doc.Components.Schemas[step.name] = openapi3.NewSchemaRef("", s)

		op := openapi3.NewOperation()
		op.OperationID = "submit" + step.name
		op.Summary = fmt.Sprintf("Submit wizard step %d", i+1)
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithRequired(true).
				WithJSONSchemaRef(openapi3.NewSchemaRef("#/components/schemas/"+step.name, s)),
		}
		op.Responses = openapi3.NewResponses(
			openapi3.WithStatus(200, &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Step accepted")}),
			openapi3.WithStatus(422, &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Validation failed")}),
		)
		doc.AddOperation(step.path, "POST", op)
	}

	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("openapi: %w", err)
	}
	return doc, nil
}

func stepSchema(fields []schema.FieldDescriptor) *openapi3.Schema {
	obj := openapi3.NewObjectSchema()
	var required []string
	for i, f := range fields {
		name := propertyName(f, i)
		if _, dup := obj.Properties[name]; dup {
			// Radio groups share one submitted key.
			slog.Debug("Skipping duplicate property", "name", name)
			continue
		}
		obj.WithProperty(name, fieldSchema(f))
		if f.Required {
			required = append(required, name)
		}
	}
	obj.Required = required
	return obj
}

func propertyName(f schema.FieldDescriptor, i int) string {
	if f.Name != "" {
		return f.Name
	}
	return "field" + strconv.Itoa(i+1)
}

func fieldSchema(f schema.FieldDescriptor) *openapi3.Schema {
	var s *openapi3.Schema
	switch f.Type {
	case "checkbox":
		s = openapi3.NewBoolSchema()
	case "number", "range":
		s = openapi3.NewFloat64Schema()
	default:
		s = openapi3.NewStringSchema()
		switch f.Type {
		case "email":
			s.Format = "email"
		case "date":
			s.Format = "date"
		case "url":
			s.Format = "uri"
		case "password":
			s.Format = "password"
		}
		applyStringConstraints(s, f)
	}
	s.Description = f.Label

	hints := map[string]any{"step": f.Step, "tag": f.Tag, "type": f.Type}
	for key, v := range map[string]string{"label": f.Label, "placeholder": f.Placeholder, "section": f.Section} {
		if v != "" {
			hints[key] = v
		}
	}
	if f.Visibility.Hidden {
		hints["hidden"] = true
	}
	if a := f.Attributes.Autocomplete; a != nil && *a != "" {
		hints["autocomplete"] = *a
	}
	if m := f.Attributes.InputMode; m != nil && *m != "" {
		hints["inputmode"] = *m
	}
	s.Extensions = map[string]any{extensionNamespace: hints}
	return s
}

func applyStringConstraints(s *openapi3.Schema, f schema.FieldDescriptor) {
	if f.Pattern != nil {
		// HTML patterns match the whole value.
		anchored := "^(?:" + *f.Pattern + ")$"
		if _, err := regexp.Compile(anchored); err == nil {
			s.WithPattern(anchored)
		} else {
			slog.Debug("Dropping pattern unsupported by RE2", "name", f.Name, "pattern", *f.Pattern)
		}
	}
	if f.MinLength != nil && *f.MinLength >= 0 {
		s.WithMinLength(int64(*f.MinLength))
	}
	if f.MaxLength != nil && *f.MaxLength >= 0 {
		s.WithMaxLength(int64(*f.MaxLength))
	}
	if f.IsChoice() {
		var enum []any
		for _, o := range f.Options {
			if o.Value != "" {
				enum = append(enum, o.Value)
			}
		}
		if len(enum) > 0 {
			s.WithEnum(enum...)
		}
	}
}

// Marshal encodes doc in the given format.
func Marshal(doc *openapi3.T, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		return yaml.Marshal(doc)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownFormat, format)
}
