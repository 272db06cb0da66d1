package dataset

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Task scenarios",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "app", "task", "column", "tags"],
    "properties": {
      "id":     {"type": "string", "minLength": 1},
      "app":    {"type": "string", "minLength": 1},
      "task":   {"type": "string", "minLength": 1},
      "column": {"type": "string", "minLength": 1},
      "tags": {
        "type": "array",
        "items": {"type": "string", "minLength": 1}
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(schemaJSON)

// FieldError is one schema violation.
type FieldError struct {
	Path    string
	Message string
}

// ValidationError lists every schema violation found in a dataset document.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		lines = append(lines, fmt.Sprintf("  - %s: %s", fe.Path, fe.Message))
	}
	return "dataset does not match schema:\n" + strings.Join(lines, "\n")
}

// Validate checks a JSON dataset document against the dataset schema.
func Validate(doc []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{}
	for _, re := range result.Errors() {
		verr.Errors = append(verr.Errors, FieldError{
			Path:    re.Field(),
			Message: re.Description(),
		})
	}
	return verr
}
