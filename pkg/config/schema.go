package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed settings.schema.json
var settingsSchema string

var (
	compiledOnce   sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// SchemaValidationError represents a single settings validation error.
type SchemaValidationError struct {
	Path    string // e.g. "security.scheme"
	Message string
}

func (e SchemaValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// SchemaValidationResult contains all validation errors for a settings document.
type SchemaValidationResult struct {
	Errors []SchemaValidationError
}

// IsValid returns true if there are no validation errors.
func (r *SchemaValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Error returns a combined error message.
func (r *SchemaValidationResult) Error() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "\n")
}

// AddError adds a validation error.
func (r *SchemaValidationResult) AddError(path, message string) {
	r.Errors = append(r.Errors, SchemaValidationError{Path: path, Message: message})
}

func schema() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("settings.schema.json", strings.NewReader(settingsSchema)); err != nil {
			compileErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile("settings.schema.json")
	})
	return compiledSchema, compileErr
}

// ValidateDocument validates a JSON settings document against the embedded
// schema. Violations are returned as a *SchemaValidationResult.
func ValidateDocument(data []byte) error {
	sch, err := schema()
	if err != nil {
		return fmt.Errorf("schema compilation error: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	if err := sch.Validate(doc); err != nil {
		result := &SchemaValidationResult{}
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			collectSchemaErrors(verr, result)
		} else {
			result.AddError("", err.Error())
		}
		return result
	}
	return nil
}

func collectSchemaErrors(err *jsonschema.ValidationError, result *SchemaValidationResult) {
	if len(err.Causes) == 0 {
		result.AddError(pointerToPath(err.InstanceLocation), err.Message)
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(cause, result)
	}
}

// pointerToPath converts a JSON Pointer to dot notation.
func pointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	return strings.ReplaceAll(ptr, "/", ".")
}
