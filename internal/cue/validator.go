package cue

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	yamlv3 "gopkg.in/yaml.v3"
)

//go:embed schemas/*.cue
var schemaFS embed.FS

// Document kinds, one per embedded schema file.
const (
	KindResponses = "responses"
	KindActivity  = "activity"
)

// ErrInvalidDocument is wrapped by AsError when validation found problems.
var ErrInvalidDocument = errors.New("document failed schema validation")

// ValidationError represents a validation error
type ValidationError struct {
	File    string
	Path    string // dotted field path inside the document, empty for the root
	Message string
}

func (e ValidationError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteString(": ")
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// Validator handles CUE validation
type Validator struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	return &Validator{
		ctx:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}
}

// LoadSchemas compiles every embedded .cue file. The schema name is the
// file's base name (responses.cue -> responses).
func (v *Validator) LoadSchemas() error {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return fmt.Errorf("could not read embedded schemas: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".cue" {
			continue
		}
		content, err := schemaFS.ReadFile(path.Join("schemas", entry.Name()))
		if err != nil {
			return fmt.Errorf("reading schema %s: %w", entry.Name(), err)
		}
		inst := v.ctx.CompileBytes(content, cue.Filename(entry.Name()))
		if instErr := inst.Err(); instErr != nil {
			return fmt.Errorf("compiling schema %s: %w", entry.Name(), instErr)
		}
		v.schemas[strings.TrimSuffix(entry.Name(), ".cue")] = inst.Value()
	}

	if len(v.schemas) == 0 {
		return fmt.Errorf("no CUE schemas loaded")
	}
	return nil
}

// ValidateResponses validates a decoded response document.
func (v *Validator) ValidateResponses(data map[string]any) ([]ValidationError, error) {
	return v.validate(KindResponses, data)
}

// ValidateActivity validates a decoded activity document.
func (v *Validator) ValidateActivity(data map[string]any) ([]ValidationError, error) {
	return v.validate(KindActivity, data)
}

// ValidateFile decodes YAML or JSON content and validates it against the
// schema for kind. Decode failures are reported as a validation error.
func (v *Validator) ValidateFile(filePath string, content []byte, kind string) ([]ValidationError, error) {
	var data map[string]any
	if err := yamlv3.Unmarshal(content, &data); err != nil {
		return []ValidationError{{File: filePath, Message: fmt.Sprintf("error parsing document: %v", err)}}, nil
	}
	if data == nil {
		return []ValidationError{{File: filePath, Message: "document is empty"}}, nil
	}

	var (
		problems []ValidationError
		err      error
	)
	switch kind {
	case KindResponses:
		problems, err = v.ValidateResponses(data)
	case KindActivity:
		problems, err = v.ValidateActivity(data)
	default:
		return nil, fmt.Errorf("unknown document kind: %s", kind)
	}
	for i := range problems {
		problems[i].File = filePath
	}
	return problems, err
}

func (v *Validator) validate(kind string, data map[string]any) ([]ValidationError, error) {
	schema, ok := v.schemas[kind]
	if !ok {
		return nil, fmt.Errorf("schema %q not loaded", kind)
	}

	dataValue := v.ctx.Encode(data)
	if encErr := dataValue.Err(); encErr != nil {
		return nil, fmt.Errorf("error encoding data: %w", encErr)
	}

	// responses -> #Responses
	def := schema.LookupPath(cue.ParsePath("#" + strings.ToUpper(kind[:1]) + kind[1:]))
	if !def.Exists() {
		return nil, fmt.Errorf("schema %q has no root definition", kind)
	}

	unified := def.Unify(dataValue)
	if err := unified.Err(); err != nil {
		return extractErrors(err), nil
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return extractErrors(err), nil
	}
	return nil, nil
}

func extractErrors(err error) []ValidationError {
	var out []ValidationError
	seen := make(map[string]bool)
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		ve := ValidationError{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		}
		key := ve.Path + "\x00" + ve.Message
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ve)
	}
	if len(out) == 0 {
		out = append(out, ValidationError{Message: err.Error()})
	}
	return out
}

// AsError joins problems into one error wrapping ErrInvalidDocument, or
// returns nil when there are none.
func AsError(problems []ValidationError) error {
	if len(problems) == 0 {
		return nil
	}
	msgs := make([]string, len(problems))
	for i, p := range problems {
		msgs[i] = p.Error()
	}
	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
}
